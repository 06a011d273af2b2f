// Package bridge submits finalized match outcomes to the persistent
// record-keeping backend. The core never stores anything durably itself;
// it only hands the outcome over this boundary.
package bridge

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/memorymatch/server/game/engine"
)

// Reasons a match reached its terminal state.
const (
	ReasonEnded       = "ended"       // all pairs matched
	ReasonQuit        = "quit"        // a player quit explicitly
	ReasonInterrupted = "interrupted" // a player's connection was lost
)

var ErrSessionNotEnded = errors.New("session has not ended")

// Outcome is the record submitted for a finished match. It carries every
// field the record store needs; the backend owns everything beyond that.
type Outcome struct {
	GameID string `json:"gameId"`
	Reason string `json:"reason"`

	Winner engine.Identity `json:"winner"`
	Loser  engine.Identity `json:"loser"`

	WinnerPairs int `json:"winnerPairs"`
	LoserPairs  int `json:"loserPairs"`
	TotalTurns  int `json:"totalTurns"`

	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	ElapsedMs int64     `json:"elapsedMs"`
}

// FromSession builds the outcome record for an ended session.
func FromSession(s *engine.Session, reason string) (*Outcome, error) {
	if s.Status != engine.StatusEnded {
		return nil, ErrSessionNotEnded
	}
	winner, _ := s.Winner()
	loser, _ := s.Loser()

	winnerPairs := s.PairsDiscovered[s.Outcome-1]
	loserPairs := s.PairsDiscovered[0] + s.PairsDiscovered[1] - winnerPairs

	started := s.StartedAt
	if started.IsZero() {
		started = s.CreatedAt
	}

	return &Outcome{
		GameID:      s.GameID,
		Reason:      reason,
		Winner:      winner,
		Loser:       loser,
		WinnerPairs: winnerPairs,
		LoserPairs:  loserPairs,
		TotalTurns:  s.TotalTurns(),
		StartedAt:   started,
		EndedAt:     s.EndedAt,
		ElapsedMs:   s.EndedAt.Sub(started).Milliseconds(),
	}, nil
}

// Bridge is the persistence collaborator boundary.
type Bridge interface {
	SubmitOutcome(ctx context.Context, outcome *Outcome) error
}

// Nop is the bridge used when no record store is configured. It only logs,
// so matches still run in isolated development setups.
type Nop struct{}

func (Nop) SubmitOutcome(_ context.Context, outcome *Outcome) error {
	log.Printf("[bridge] no record store configured, outcome for game %s (%s, winner %d) discarded",
		outcome.GameID, outcome.Reason, outcome.Winner.ID)
	return nil
}
