package engine

import "time"

// Status represents the lifecycle state of a session.
type Status string

const (
	StatusPending Status = "pending"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// Outcome values mirror the persisted game record: 0 while undecided,
// then the seat number of the winner.
const (
	OutcomeNone    = 0
	OutcomePlayer1 = 1
	OutcomePlayer2 = 2
)

// Identity is the authenticated user attached to a connection. The session
// layer never validates credentials itself; it trusts the identity object
// produced by the auth backend.
type Identity struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
}

// Card is a single board position. A matched card is always also flipped
// and is permanently excluded from further flips.
type Card struct {
	Index   int    `json:"index"`
	Value   string `json:"value"`
	Flipped bool   `json:"flipped"`
	Matched bool   `json:"matched"`
}

// Session is the authoritative state of one match. It is owned by the
// dispatcher loop for its whole lifetime; nothing outside that loop may
// mutate it, and all mutation goes through Engine operations.
type Session struct {
	GameID  string   `json:"gameId"`
	Player1 Identity `json:"player1"`
	Player2 Identity `json:"player2"`

	// Transport-level connection ids, never sent to clients.
	Conn1 string `json:"-"`
	Conn2 string `json:"-"`

	Board         []Card `json:"board"`
	CurrentPlayer int    `json:"currentPlayer"` // seat number, 1 or 2

	Turns           [2]int `json:"turns"`
	PairsDiscovered [2]int `json:"pairsDiscovered"`

	// FlippedCards holds the indices of revealed-but-unresolved cards.
	// At rest its length is 0 or 1; it holds 2 only while a mismatch
	// awaits its flip-back.
	FlippedCards []int    `json:"flippedCards"`
	MatchedPairs []string `json:"matchedPairs"`

	// Resolving is set while two mismatched cards wait for the scheduled
	// flip-back. Further plays are rejected until it clears.
	Resolving bool `json:"resolving"`

	Outcome int    `json:"outcome"`
	Status  Status `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	StartedAt time.Time `json:"startedAt,omitzero"`
	EndedAt   time.Time `json:"endedAt,omitzero"`

	// Generation is bumped on teardown so a scheduled continuation from a
	// previous life of this game id can be discarded.
	Generation uint64 `json:"-"`
}

// SeatOf returns the seat number (1 or 2) held by the given connection,
// or 0 if the connection is not a registered player.
func (s *Session) SeatOf(connID string) int {
	switch connID {
	case s.Conn1:
		return 1
	case s.Conn2:
		return 2
	}
	return 0
}

// ConnOf returns the connection id for a seat number.
func (s *Session) ConnOf(seat int) string {
	if seat == 1 {
		return s.Conn1
	}
	return s.Conn2
}

// PlayerOf returns the identity seated at the given seat number.
func (s *Session) PlayerOf(seat int) Identity {
	if seat == 1 {
		return s.Player1
	}
	return s.Player2
}

// Winner returns the winning identity once the session has ended.
func (s *Session) Winner() (Identity, bool) {
	switch s.Outcome {
	case OutcomePlayer1:
		return s.Player1, true
	case OutcomePlayer2:
		return s.Player2, true
	}
	return Identity{}, false
}

// Loser returns the losing identity once the session has ended.
func (s *Session) Loser() (Identity, bool) {
	switch s.Outcome {
	case OutcomePlayer1:
		return s.Player2, true
	case OutcomePlayer2:
		return s.Player1, true
	}
	return Identity{}, false
}

// TotalTurns is the sum of both players' completed turns.
func (s *Session) TotalTurns() int {
	return s.Turns[0] + s.Turns[1]
}

func opponentSeat(seat int) int {
	if seat == 1 {
		return 2
	}
	return 1
}
