package engine

import (
	"fmt"
	"slices"
	"time"
)

// Rules holds the tunable parameters of the match layer. They are global to
// the server process, loaded once at startup.
type Rules struct {
	// FlipBackDelayMs is how long a mismatched pair stays revealed before
	// the flip-back continuation fires.
	FlipBackDelayMs int `json:"flip_back_delay_ms"`

	// BoardSizes is the fixed set of accepted board sizes.
	BoardSizes []int `json:"board_sizes"`

	// DefaultBoardSize is used when a startGame request carries no size.
	DefaultBoardSize int `json:"default_board_size"`
}

// DefaultRules returns the rules the original frontend was built against:
// a 4x4 board and a one second mismatch reveal.
func DefaultRules() *Rules {
	return &Rules{
		FlipBackDelayMs:  1000,
		BoardSizes:       []int{12, 16, 24, 36},
		DefaultBoardSize: 16,
	}
}

// FlipBackDelay returns the mismatch reveal window as a duration.
func (r *Rules) FlipBackDelay() time.Duration {
	return time.Duration(r.FlipBackDelayMs) * time.Millisecond
}

func (r *Rules) boardSizeAllowed(size int) bool {
	return slices.Contains(r.BoardSizes, size)
}

// ValidateRules rejects rule sets that could never produce a playable match.
func ValidateRules(r *Rules) error {
	if r.FlipBackDelayMs < 0 {
		return fmt.Errorf("flip_back_delay_ms must not be negative, got %d", r.FlipBackDelayMs)
	}
	if len(r.BoardSizes) == 0 {
		return fmt.Errorf("board_sizes must not be empty")
	}
	for _, size := range r.BoardSizes {
		if size < 2 {
			return fmt.Errorf("board size %d is too small", size)
		}
		if size%2 != 0 {
			return fmt.Errorf("board size %d is odd: %w", size, ErrOddBoardSize)
		}
		if size/2 > AlphabetSize() {
			return fmt.Errorf("board size %d: %w", size, ErrBoardTooLarge)
		}
	}
	if !slices.Contains(r.BoardSizes, r.DefaultBoardSize) {
		return fmt.Errorf("default_board_size %d is not in board_sizes", r.DefaultBoardSize)
	}
	return nil
}
