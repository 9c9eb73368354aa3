package board

import (
	"fmt"
	"strings"
)

// Size is the side length of the grid.
const Size = 9

// NumCells is the total cell count of the grid.
const NumCells = Size * Size

// Blank is the rune used for empty cells in the 81-character wire format.
const Blank = '-'

// Grid is a 9x9 matrix of cells. A cell holds a digit 1-9, or 0 for empty.
//
// Grid is a value type: assignment copies the whole grid, which is how the
// engine keeps the initial (given-clue) grid immutable while the working
// grid mutates.
type Grid [Size][Size]uint8

// Index converts (row, col) to the row-major cell index used by the
// 81-character wire format and the solution string.
func Index(row, col int) int {
	return row*Size + col
}

// Coord converts a row-major cell index back to (row, col).
func Coord(index int) (row, col int) {
	return index / Size, index % Size
}

// InBounds reports whether (row, col) addresses a cell on the grid.
func InBounds(row, col int) bool {
	return row >= 0 && row < Size && col >= 0 && col < Size
}

// At returns the digit at (row, col), 0 if empty.
func (g *Grid) At(row, col int) uint8 {
	return g[row][col]
}

// Set places a digit (or 0 to clear) at (row, col).
func (g *Grid) Set(row, col int, v uint8) {
	g[row][col] = v
}

// Empty reports whether the cell at (row, col) holds no digit.
func (g *Grid) Empty(row, col int) bool {
	return g[row][col] == 0
}

// CountEmpty returns the number of empty cells. The engine calls this once
// at game start and keeps the count incrementally thereafter.
func (g *Grid) CountEmpty() int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if g[r][c] == 0 {
				n++
			}
		}
	}
	return n
}

// FirstEmpty returns the row-major index of the first empty cell, or -1 if
// the grid is full. The assist scheduler restarts this scan from scratch on
// every state change so a concurrent player move redirects the next target.
func (g *Grid) FirstEmpty() int {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if g[r][c] == 0 {
				return Index(r, c)
			}
		}
	}
	return -1
}

// Parse decodes an 81-character puzzle string into a Grid. Blanks are
// written as '-'. Returns an error for wrong length or illegal characters.
func Parse(s string) (Grid, error) {
	var g Grid
	if len(s) != NumCells {
		return g, fmt.Errorf("parse grid: want %d characters, got %d", NumCells, len(s))
	}
	for i := 0; i < NumCells; i++ {
		ch := s[i]
		r, c := Coord(i)
		switch {
		case ch == Blank:
			g[r][c] = 0
		case ch >= '1' && ch <= '9':
			g[r][c] = ch - '0'
		default:
			return Grid{}, fmt.Errorf("parse grid: illegal character %q at index %d", ch, i)
		}
	}
	return g, nil
}

// Format encodes a Grid back into the 81-character wire format.
func (g *Grid) Format() string {
	var b strings.Builder
	b.Grow(NumCells)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if g[r][c] == 0 {
				b.WriteByte(Blank)
			} else {
				b.WriteByte('0' + g[r][c])
			}
		}
	}
	return b.String()
}

// String renders the grid for terminal display with box rules.
func (g *Grid) String() string {
	var b strings.Builder
	border := strings.Repeat("─", Size*2+5)
	fmt.Fprintf(&b, "┌%s┐\n", border)
	for r := 0; r < Size; r++ {
		b.WriteString("│ ")
		for c := 0; c < Size; c++ {
			if c > 0 && c%3 == 0 {
				b.WriteString("│ ")
			}
			if g[r][c] == 0 {
				b.WriteString("· ")
			} else {
				fmt.Fprintf(&b, "%d ", g[r][c])
			}
		}
		b.WriteString("│\n")
		if r < Size-1 && r%3 == 2 {
			fmt.Fprintf(&b, "├%s┤\n", border)
		}
	}
	fmt.Fprintf(&b, "└%s┘\n", border)
	return b.String()
}
