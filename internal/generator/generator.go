// Package generator produces sudoku puzzle/solution pairs.
//
// Generation is a backtracking fill with shuffled candidates followed by
// difficulty-scaled clue removal. Correctness of play is always judged
// against the retained solution string, so the generator does not need to
// prove clue-set uniqueness.
package generator

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/gridrace/gridrace/internal/board"
	"github.com/gridrace/gridrace/internal/game"
)

// maxAttempts bounds backtracking restarts before generation is reported
// as failed rather than looping forever on a pathological random order.
const maxAttempts = 10

// Backtracking implements game.Generator with a randomized backtracking
// fill. Safe for concurrent use.
type Backtracking struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a generator seeded from wall time.
func New() *Backtracking {
	return &Backtracking{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// blanks returns how many cells are removed from the solved grid for a
// difficulty.
func blanks(d game.Difficulty) int {
	switch d {
	case game.DifficultyMedium:
		return 46
	case game.DifficultyHard:
		return 52
	default:
		return 38
	}
}

// Generate produces a fresh random puzzle for the difficulty.
func (b *Backtracking) Generate(d game.Difficulty) (game.Puzzle, error) {
	b.mu.Lock()
	seed := b.rng.Int63()
	b.mu.Unlock()
	return generate(rand.New(rand.NewSource(seed)), d)
}

// GenerateSeeded produces the same puzzle for the same seed string and
// difficulty, so all clients derive an identical daily puzzle from its
// date key without transmitting it.
func (b *Backtracking) GenerateSeeded(seed string, d game.Difficulty) (game.Puzzle, error) {
	h := fnv.New64a()
	h.Write([]byte(seed))
	h.Write([]byte(d))
	return generate(rand.New(rand.NewSource(int64(h.Sum64()))), d)
}

func generate(rng *rand.Rand, d game.Difficulty) (game.Puzzle, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var grid [board.NumCells]uint8
		if !fill(&grid, rng) {
			continue
		}

		solution := render(grid, nil)

		removed := make(map[int]bool, blanks(d))
		for _, pos := range rng.Perm(board.NumCells)[:blanks(d)] {
			removed[pos] = true
		}

		return game.Puzzle{
			Puzzle:     render(grid, removed),
			Solution:   solution,
			Difficulty: d,
		}, nil
	}
	return game.Puzzle{}, fmt.Errorf("generate: no valid grid after %d attempts", maxAttempts)
}

// fill completes the grid by backtracking over shuffled candidates.
func fill(grid *[board.NumCells]uint8, rng *rand.Rand) bool {
	pos := -1
	for i, v := range grid {
		if v == 0 {
			pos = i
			break
		}
	}
	if pos == -1 {
		return true
	}

	for _, n := range rng.Perm(board.Size) {
		v := uint8(n + 1)
		if !valid(grid, pos, v) {
			continue
		}
		grid[pos] = v
		if fill(grid, rng) {
			return true
		}
		grid[pos] = 0
	}
	return false
}

// valid checks the row, column, and 3x3 box constraints for placing v.
func valid(grid *[board.NumCells]uint8, pos int, v uint8) bool {
	row, col := board.Coord(pos)

	rowStart := row * board.Size
	for i := 0; i < board.Size; i++ {
		if grid[rowStart+i] == v {
			return false
		}
	}
	for i := 0; i < board.Size; i++ {
		if grid[i*board.Size+col] == v {
			return false
		}
	}
	boxRow, boxCol := row/3*3, col/3*3
	for r := boxRow; r < boxRow+3; r++ {
		for c := boxCol; c < boxCol+3; c++ {
			if grid[board.Index(r, c)] == v {
				return false
			}
		}
	}
	return true
}

func render(grid [board.NumCells]uint8, removed map[int]bool) string {
	var b strings.Builder
	b.Grow(board.NumCells)
	for i, v := range grid {
		if removed[i] {
			b.WriteByte(board.Blank)
		} else {
			b.WriteByte('0' + v)
		}
	}
	return b.String()
}
