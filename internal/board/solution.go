package board

import "fmt"

// Solution is the 81-character reference answer string, one digit per cell
// in row-major order. It is opaque to the engine: every placed digit is
// checked against it, and it is never mutated.
type Solution string

// ParseSolution validates the wire form of a solution string.
func ParseSolution(s string) (Solution, error) {
	if len(s) != NumCells {
		return "", fmt.Errorf("parse solution: want %d characters, got %d", NumCells, len(s))
	}
	for i := 0; i < NumCells; i++ {
		if s[i] < '1' || s[i] > '9' {
			return "", fmt.Errorf("parse solution: illegal character %q at index %d", s[i], i)
		}
	}
	return Solution(s), nil
}

// Digit returns the correct digit for the cell at (row, col).
func (s Solution) Digit(row, col int) uint8 {
	return s[Index(row, col)] - '0'
}

// Matches reports whether v is the correct digit for (row, col).
func (s Solution) Matches(row, col int, v uint8) bool {
	return s.Digit(row, col) == v
}
