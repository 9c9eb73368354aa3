package game_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridrace/gridrace/internal/board"
	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/testutil"
)

func newGame(t *testing.T, blanks ...int) *game.Game {
	t.Helper()
	g, err := game.New(testutil.Blank(blanks...), testutil.Solution, game.DifficultyEasy, nil)
	require.NoError(t, err)
	return g
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := game.New("123", testutil.Solution, game.DifficultyEasy, nil)
	require.Error(t, err)

	_, err = game.New(testutil.Blank(0), "not-a-solution", game.DifficultyEasy, nil)
	require.Error(t, err)
}

func TestNewStartsPlaying(t *testing.T) {
	g := newGame(t, 0, 1, 2)
	assert.Equal(t, game.StatusPlaying, g.Status())
	assert.Equal(t, 3, g.Progress())
	assert.Zero(t, g.MistakeCount())
	assert.False(t, g.StartedAt().IsZero())
	assert.True(t, g.FinishedAt().IsZero())
}

func TestApplyRejections(t *testing.T) {
	g := newGame(t, 0)

	assert.False(t, g.Apply(1, 1, 5), "given clue is immutable")
	assert.False(t, g.Apply(-1, 0, 5), "out of bounds")
	assert.False(t, g.Apply(0, 9, 5), "out of bounds")
	assert.False(t, g.Apply(0, 0, 10), "digit out of range")
	assert.False(t, g.Apply(0, 0, 0), "clearing an empty cell is a no-op")

	require.True(t, g.Apply(0, 0, 1))
	assert.False(t, g.Apply(0, 0, 1), "same value is a no-op")
	assert.Equal(t, 0, g.Progress())
}

func TestWinOnLastCorrectCell(t *testing.T) {
	g := newGame(t, 0, 80)

	require.True(t, g.Apply(0, 0, 1))
	assert.Equal(t, game.StatusPlaying, g.Status())

	require.True(t, g.Apply(8, 8, 2))
	assert.Equal(t, game.StatusWon, g.Status())
	assert.False(t, g.FinishedAt().IsZero())
}

func TestFullGridWithMistakeIsNotWon(t *testing.T) {
	g := newGame(t, 0)

	require.True(t, g.Apply(0, 0, 9))
	assert.Equal(t, 0, g.Progress())
	assert.Equal(t, game.StatusPlaying, g.Status(), "full grid with a wrong digit stays in play")
	assert.True(t, g.IsMistake(0, 0))
}

func TestMistakeAccounting(t *testing.T) {
	g := newGame(t, 0, 1)

	require.True(t, g.Apply(0, 0, 9))
	assert.Equal(t, 1, g.MistakeCount())
	assert.Equal(t, []int{0}, g.MistakeCells())

	// Correcting the cell clears the live set but not the lifetime tally.
	require.True(t, g.Apply(0, 0, 1))
	assert.Empty(t, g.MistakeCells())
	assert.Equal(t, 1, g.MistakeCount())
}

func TestClearingAMistake(t *testing.T) {
	g := newGame(t, 0, 1)

	require.True(t, g.Apply(0, 0, 9))
	require.True(t, g.Apply(0, 0, 0))

	assert.False(t, g.IsMistake(0, 0))
	assert.Equal(t, 1, g.MistakeCount())
	assert.Equal(t, 2, g.Progress())
}

func TestThirdMistakeLoses(t *testing.T) {
	g := newGame(t, 0, 1, 2)

	require.True(t, g.Apply(0, 0, 9))
	require.True(t, g.Apply(0, 1, 9))
	assert.Equal(t, game.StatusPlaying, g.Status())

	require.True(t, g.Apply(0, 2, 9))
	assert.Equal(t, game.StatusLost, g.Status())
	assert.Equal(t, 3, g.MistakeCount())

	// Terminal: nothing further is accepted.
	assert.False(t, g.Apply(0, 0, 1))
	assert.False(t, g.ToggleNote(0, 0, 5))
	assert.False(t, g.Undo())
}

func TestRepeatedWrongDigitsOnOneCellLose(t *testing.T) {
	g := newGame(t, 0)

	require.True(t, g.Apply(0, 0, 2))
	require.True(t, g.Apply(0, 0, 3))
	require.True(t, g.Apply(0, 0, 4))
	assert.Equal(t, game.StatusLost, g.Status(), "the lifetime tally counts every wrong placement")
}

func TestUndoRestoresPreviousValue(t *testing.T) {
	g := newGame(t, 0, 1)

	require.True(t, g.Apply(0, 0, 9))
	require.True(t, g.Apply(0, 0, 1))
	require.True(t, g.Undo())

	assert.Equal(t, uint8(9), g.Cell(0, 0))
	assert.Equal(t, 1, g.Progress())
	assert.False(t, g.IsMistake(0, 0), "an undone cell is never flagged")
	assert.Equal(t, 1, g.MistakeCount(), "the lifetime tally is not refunded")
}

func TestUndoEmptyHistory(t *testing.T) {
	g := newGame(t, 0)
	assert.False(t, g.Undo())
}

func TestUndoRevertsVictory(t *testing.T) {
	g := newGame(t, 0)

	require.True(t, g.Apply(0, 0, 1))
	require.Equal(t, game.StatusWon, g.Status())

	require.True(t, g.Undo())
	assert.Equal(t, game.StatusPlaying, g.Status())
	assert.True(t, g.FinishedAt().IsZero())
	assert.Equal(t, 1, g.Progress())
}

func TestResetRestoresStartingPosition(t *testing.T) {
	g := newGame(t, 0, 1, 2)

	require.True(t, g.Apply(0, 0, 9))
	require.True(t, g.Apply(0, 1, 2))
	require.True(t, g.ToggleNote(0, 2, 5))

	g.Reset()
	assert.Equal(t, game.StatusPlaying, g.Status())
	assert.Equal(t, 3, g.Progress())
	assert.Zero(t, g.MistakeCount())
	assert.Zero(t, g.HistoryLen())
	assert.Empty(t, g.NoteDigits(0, 2))
	assert.Equal(t, uint8(0), g.Cell(0, 0))
}

func TestResetAfterLossResumesPlay(t *testing.T) {
	g := newGame(t, 0, 1, 2)
	g.Apply(0, 0, 9)
	g.Apply(0, 1, 9)
	g.Apply(0, 2, 9)
	require.Equal(t, game.StatusLost, g.Status())

	g.Reset()
	assert.Equal(t, game.StatusPlaying, g.Status())
	assert.Zero(t, g.MistakeCount())
}

func TestNotes(t *testing.T) {
	g := newGame(t, 0, 1)

	require.True(t, g.ToggleNote(0, 0, 3))
	require.True(t, g.ToggleNote(0, 0, 7))
	assert.Equal(t, []uint8{3, 7}, g.NoteDigits(0, 0))

	// Toggling again removes.
	require.True(t, g.ToggleNote(0, 0, 3))
	assert.Equal(t, []uint8{7}, g.NoteDigits(0, 0))

	// Placing a value clears that cell's notes.
	require.True(t, g.Apply(0, 0, 1))
	assert.Empty(t, g.NoteDigits(0, 0))

	assert.False(t, g.ToggleNote(0, 0, 5), "filled cell is not annotatable")
	assert.False(t, g.ToggleNote(1, 1, 5), "given cell is not annotatable")
}

func TestClearingKeepsNotes(t *testing.T) {
	g := newGame(t, 0, 1)

	require.True(t, g.ToggleNote(0, 1, 6))
	require.True(t, g.Apply(0, 0, 9))
	require.True(t, g.Apply(0, 0, 0))

	assert.Equal(t, []uint8{6}, g.NoteDigits(0, 1), "clearing one cell leaves other notes alone")
}

func TestMarkTerminalNoOpUnlessPlaying(t *testing.T) {
	g := newGame(t, 0)
	require.True(t, g.Apply(0, 0, 1))
	require.Equal(t, game.StatusWon, g.Status())

	g.MarkLost()
	assert.Equal(t, game.StatusWon, g.Status(), "terminal status never lowers")

	g2 := newGame(t, 0)
	g2.MarkWon()
	assert.Equal(t, game.StatusWon, g2.Status())
	g2.MarkLost()
	assert.Equal(t, game.StatusWon, g2.Status())
}

func TestTimeTaken(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	current := base
	now := func() time.Time { return current }

	g, err := game.New(testutil.Blank(0), testutil.Solution, game.DifficultyEasy, now)
	require.NoError(t, err)
	assert.Zero(t, g.TimeTaken())

	current = base.Add(90 * time.Second)
	require.True(t, g.Apply(0, 0, 1))
	assert.Equal(t, 90*time.Second, g.TimeTaken())
}

// TestProgressMatchesGridScan drives a random walk of placements, clears,
// and undos, checking after every step that the incrementally maintained
// progress equals a full rescan of the working grid.
func TestProgressMatchesGridScan(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	blanks := rng.Perm(81)[:30]
	g := newGame(t, blanks...)

	for step := 0; step < 500 && g.Status() == game.StatusPlaying; step++ {
		idx := blanks[rng.Intn(len(blanks))]
		row, col := board.Coord(idx)

		switch rng.Intn(4) {
		case 0:
			g.Apply(row, col, testutil.SolutionDigit(row, col))
		case 1:
			g.Apply(row, col, uint8(1+rng.Intn(9)))
		case 2:
			g.Apply(row, col, 0)
		case 3:
			g.Undo()
		}

		w := g.Working()
		assert.Equal(t, w.CountEmpty(), g.Progress(), "step %d", step)
		if g.Progress() == 0 && len(g.MistakeCells()) == 0 {
			assert.Equal(t, game.StatusWon, g.Status())
		}
	}
}
