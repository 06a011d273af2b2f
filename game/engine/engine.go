package engine

import (
	"math/rand/v2"
	"time"
)

// PlayOutcome tells the caller what a successful play did, so the dispatcher
// knows which broadcasts and continuations to schedule.
type PlayOutcome int

const (
	// PlayFlipped: a single card was revealed, the turn continues.
	PlayFlipped PlayOutcome = iota
	// PlayMatched: the second card completed a pair. The turn stays with
	// the same player. The session may have ended; check Status.
	PlayMatched
	// PlayMismatched: the second card did not match. The pair stays
	// revealed until ResolveMismatch runs; schedule it after the
	// flip-back delay.
	PlayMismatched
)

// Engine applies the turn rules to sessions. It performs no I/O and never
// blocks; timing and broadcasting belong to the dispatcher.
type Engine struct {
	rules *Rules
	rng   *rand.Rand
}

// New creates an engine seeded from the wall clock.
func New(rules *Rules) *Engine {
	return NewWithRand(rules, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 1)))
}

// NewWithRand creates an engine with a caller-supplied random source.
func NewWithRand(rules *Rules, rng *rand.Rand) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{rules: rules, rng: rng}
}

// Rules returns the rule set the engine was built with.
func (e *Engine) Rules() *Rules {
	return e.rules
}

// NewSession pairs two players into a pending session. The board is not
// built until Start, when the board size is known.
func (e *Engine) NewSession(gameID string, p1 Identity, conn1 string, p2 Identity, conn2 string) *Session {
	return &Session{
		GameID:        gameID,
		Player1:       p1,
		Conn1:         conn1,
		Player2:       p2,
		Conn2:         conn2,
		CurrentPlayer: 1,
		FlippedCards:  []int{},
		MatchedPairs:  []string{},
		Outcome:       OutcomeNone,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
	}
}

// Start builds the shuffled board and moves a pending session to playing.
// A zero boardSize selects the default. Player 1 takes the first turn.
func (e *Engine) Start(s *Session, boardSize int) error {
	if s.Status != StatusPending {
		return ErrNotPending
	}
	if boardSize == 0 {
		boardSize = e.rules.DefaultBoardSize
	}
	if boardSize%2 != 0 {
		return ErrOddBoardSize
	}
	if boardSize/2 > AlphabetSize() {
		return ErrBoardTooLarge
	}
	if !e.rules.boardSizeAllowed(boardSize) {
		return ErrBoardSizeNotAllowed
	}

	board, err := BuildBoard(boardSize, e.rng)
	if err != nil {
		return err
	}

	s.Board = board
	s.CurrentPlayer = 1
	s.Status = StatusPlaying
	s.StartedAt = time.Now()
	return nil
}

// Play flips the card at cardIndex on behalf of the given connection.
// On failure it returns a RuleError and leaves the session untouched.
func (e *Engine) Play(s *Session, cardIndex int, connID string) (PlayOutcome, *RuleError) {
	seat := s.SeatOf(connID)
	if seat == 0 {
		return 0, ErrNotPlaying
	}
	if s.Status == StatusEnded {
		return 0, ErrGameEnded
	}
	if seat != s.CurrentPlayer {
		return 0, ErrInvalidTurn
	}
	// Two cards already revealed and waiting for their flip-back: no
	// further flips until the continuation runs.
	if s.Resolving {
		return 0, ErrResolving
	}
	if cardIndex < 0 || cardIndex >= len(s.Board) {
		return 0, ErrInvalidMove
	}
	card := &s.Board[cardIndex]
	if card.Flipped || card.Matched {
		return 0, ErrInvalidMove
	}

	card.Flipped = true
	s.FlippedCards = append(s.FlippedCards, cardIndex)
	if len(s.FlippedCards) < 2 {
		return PlayFlipped, nil
	}

	// Second card of the turn: the turn is complete either way.
	s.Turns[seat-1]++

	first := &s.Board[s.FlippedCards[0]]
	second := &s.Board[s.FlippedCards[1]]
	if first.Value != second.Value {
		s.Resolving = true
		return PlayMismatched, nil
	}

	first.Matched = true
	second.Matched = true
	s.MatchedPairs = append(s.MatchedPairs, first.Value)
	s.FlippedCards = s.FlippedCards[:0]
	s.PairsDiscovered[seat-1]++
	e.evaluateCompletion(s)
	return PlayMatched, nil
}

// ResolveMismatch is the deferred continuation of a mismatched play: it
// hides both revealed cards and passes the turn. It is a no-op unless the
// session is still playing with a pending mismatch, so a stale timer can
// fire harmlessly.
func (e *Engine) ResolveMismatch(s *Session) bool {
	if s.Status != StatusPlaying || !s.Resolving || len(s.FlippedCards) != 2 {
		return false
	}
	for _, idx := range s.FlippedCards {
		s.Board[idx].Flipped = false
	}
	s.FlippedCards = s.FlippedCards[:0]
	s.Resolving = false
	s.CurrentPlayer = opponentSeat(s.CurrentPlayer)
	return true
}

// evaluateCompletion ends the session once every pair has been matched.
// With unequal pair counts the higher count wins; on a tie the win goes to
// the player who was not on turn for the deciding match.
func (e *Engine) evaluateCompletion(s *Session) {
	if len(s.MatchedPairs) != len(s.Board)/2 {
		return
	}
	p1, p2 := s.PairsDiscovered[0], s.PairsDiscovered[1]
	switch {
	case p1 > p2:
		s.Outcome = OutcomePlayer1
	case p2 > p1:
		s.Outcome = OutcomePlayer2
	default:
		s.Outcome = opponentSeat(s.CurrentPlayer)
	}
	s.Status = StatusEnded
	s.EndedAt = time.Now()
}

// Quit immediately ends the session with the remaining player as winner,
// regardless of score.
func (e *Engine) Quit(s *Session, connID string) *RuleError {
	seat := s.SeatOf(connID)
	if seat == 0 {
		return ErrNotPlaying
	}
	if s.Status == StatusEnded {
		return ErrGameEnded
	}
	s.Outcome = opponentSeat(seat)
	s.Status = StatusEnded
	s.EndedAt = time.Now()
	return nil
}

// Close validates that the requester may release the session's resources.
// The actual teardown belongs to the session store owner.
func (e *Engine) Close(s *Session, connID string) *RuleError {
	if s.SeatOf(connID) == 0 {
		return ErrNotPlaying
	}
	if s.Status != StatusEnded {
		return ErrGameNotEnded
	}
	return nil
}
