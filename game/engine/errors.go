package engine

import "errors"

// Code is a stable numeric error code surfaced to clients inside
// acknowledgement payloads. Codes never change meaning between releases
// because the frontend switches on them.
type Code int

const (
	CodeUserOffline     Code = 1
	CodeUnauthenticated Code = 2
	CodeSelfJoin        Code = 3
	CodeNotOwner        Code = 4
	CodeNotFound        Code = 5
	CodeDuplicateEntry  Code = 6

	CodeNotPlaying   Code = 10
	CodeGameEnded    Code = 11
	CodeInvalidTurn  Code = 12
	CodeInvalidMove  Code = 13
	CodeGameNotEnded Code = 14
)

// RuleError is a recoverable client-input failure. It is reported back to
// the single caller through its acknowledgement and never crosses the
// channel boundary as a Go error.
type RuleError struct {
	Code    Code   `json:"errorCode"`
	Message string `json:"errorMessage"`
}

func (e *RuleError) Error() string { return e.Message }

// NewRuleError builds a rule error with a caller-supplied message.
func NewRuleError(code Code, message string) *RuleError {
	return &RuleError{Code: code, Message: message}
}

// Shared rule errors. Handlers hand these back verbatim, so the messages are
// the ones clients display.
var (
	ErrUnauthenticated = &RuleError{CodeUnauthenticated, "User is not authenticated!"}
	ErrSelfJoin        = &RuleError{CodeSelfJoin, "User cannot join a game that he created!"}
	ErrNotOwner        = &RuleError{CodeNotOwner, "User cannot remove a game that he has not created!"}
	ErrNotFound        = &RuleError{CodeNotFound, "Game not found!"}
	ErrDuplicateEntry  = &RuleError{CodeDuplicateEntry, "User already has an open game in the lobby!"}

	ErrNotPlaying   = &RuleError{CodeNotPlaying, "You are not playing this game!"}
	ErrGameEnded    = &RuleError{CodeGameEnded, "Game has already ended!"}
	ErrInvalidTurn  = &RuleError{CodeInvalidTurn, "Invalid play: It is not your turn!"}
	ErrInvalidMove  = &RuleError{CodeInvalidMove, "Invalid move: card already flipped or matched!"}
	ErrResolving    = &RuleError{CodeInvalidMove, "Invalid move: wait for the flipped cards to resolve!"}
	ErrGameNotEnded = &RuleError{CodeGameNotEnded, "Cannot close a game that has not ended!"}
)

// Board construction failures. These are internal invariant violations,
// fatal for the session, and never travel as wire codes.
var (
	ErrOddBoardSize        = errors.New("board size must be an even number")
	ErrBoardTooLarge       = errors.New("board size is too large for the available card symbols")
	ErrBoardSizeNotAllowed = errors.New("board size is not in the allowed set")
	ErrNotPending          = errors.New("session has already been started")
)
