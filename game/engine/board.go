package engine

import (
	"fmt"
	"math/rand/v2"
)

// The symbol alphabet is the cross product of the four card suits and the
// ten card values used by the frontend's deck assets. 40 symbols support
// boards of up to 80 cards.
var (
	cardSuits  = []string{"e", "o", "p", "c"}
	cardValues = []int{1, 2, 3, 4, 5, 6, 7, 11, 12, 13}
)

// AlphabetSize is the number of distinct card symbols available.
func AlphabetSize() int {
	return len(cardSuits) * len(cardValues)
}

func symbolAlphabet() []string {
	symbols := make([]string, 0, AlphabetSize())
	for _, suit := range cardSuits {
		for _, value := range cardValues {
			symbols = append(symbols, fmt.Sprintf("%s%d", suit, value))
		}
	}
	return symbols
}

// BuildBoard produces a shuffled board of boardSize cards where every value
// appears exactly twice. Fails with ErrOddBoardSize or ErrBoardTooLarge.
func BuildBoard(boardSize int, rng *rand.Rand) ([]Card, error) {
	if boardSize%2 != 0 {
		return nil, ErrOddBoardSize
	}
	if boardSize/2 > AlphabetSize() {
		return nil, ErrBoardTooLarge
	}

	symbols := symbolAlphabet()
	rng.Shuffle(len(symbols), func(i, j int) {
		symbols[i], symbols[j] = symbols[j], symbols[i]
	})
	selected := symbols[:boardSize/2]

	values := make([]string, 0, boardSize)
	values = append(values, selected...)
	values = append(values, selected...)
	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})

	board := make([]Card, boardSize)
	for i, value := range values {
		board[i] = Card{Index: i, Value: value}
	}
	return board, nil
}
