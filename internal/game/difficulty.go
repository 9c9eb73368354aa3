package game

import "fmt"

// Difficulty selects puzzle hardness. It scales both the generator's clue
// removal and the assist scheduler's activation threshold.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a difficulty label from config or the wire.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// AssistThreshold is the remaining-empty-cell count at or below which the
// assist scheduler begins auto-completing cells. Harder puzzles get less
// help.
func (d Difficulty) AssistThreshold() int {
	switch d {
	case DifficultyMedium:
		return 8
	case DifficultyHard:
		return 5
	default:
		return 10
	}
}
