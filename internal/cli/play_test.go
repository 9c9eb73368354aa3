package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/testutil"
)

// playableSession starts a round with the given cells blanked. The fake
// clock keeps the auto-fill assist from firing during the test.
func playableSession(t *testing.T, blanks ...int) *game.Session {
	t.Helper()
	s := game.NewSession(testutil.NewFixedGenerator(blanks...), game.WithClock(testutil.NewFakeClock()))
	t.Cleanup(s.Close)
	require.NoError(t, s.NewGame(game.DifficultyEasy))
	return s
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		ok      bool
		message string
	}{
		{"set correct digit", "set 1 1 1", true, ""},
		{"set rejects bad row", "set 0 1 1", false, "row must be 1-9"},
		{"set rejects bad digit", "set 1 1 x", false, "digit must be 1-9"},
		{"set rejects clue cell", "set 9 9 5", false, "move rejected"},
		{"set missing args", "set 1", false, "usage: set ROW COL DIGIT"},
		{"clear empty cell", "clear 1 1", false, "move rejected"},
		{"note on empty cell", "note 1 1 5", true, ""},
		{"undo with no history", "undo", false, "nothing to undo"},
		{"reset always applies", "reset", true, ""},
		{"unknown verb", "flip 1 1", false, `unknown command "flip"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := playableSession(t, 0, 1)
			ok, msg := dispatch(s, tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.message, msg)
		})
	}
}

func TestDispatchClearAndUndo(t *testing.T) {
	s := playableSession(t, 0, 1)

	ok, _ := dispatch(s, "set 1 1 1")
	require.True(t, ok)
	ok, msg := dispatch(s, "clear 1 1")
	require.True(t, ok, msg)
	ok, msg = dispatch(s, "undo")
	require.True(t, ok, msg)
	assert.Equal(t, 1, s.Snapshot().Progress, "undo restores the placed digit")
}

func TestParseCellIsOneBased(t *testing.T) {
	row, col, digit, err := parseCell([]string{"set", "9", "1", "7"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, row)
	assert.Equal(t, 0, col)
	assert.Equal(t, uint8(7), digit)

	_, _, _, err = parseCell([]string{"clear", "1", "10"}, 2)
	assert.EqualError(t, err, "col must be 1-9")
}

func scriptedCommand(input string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	return cmd, &out
}

func TestPlayLoopWinsRound(t *testing.T) {
	s := playableSession(t, 0, 1)
	cmd, _ := scriptedCommand("set 1 1 1\nset 1 2 2\n")

	final := playLoop(cmd, s)
	assert.Equal(t, game.StatusWon, final.Status)
	assert.Equal(t, 0, final.Progress)
}

func TestPlayLoopStopsOnLoss(t *testing.T) {
	s := playableSession(t, 0, 1)
	// Three wrong placements end the round; later lines must not run.
	cmd, _ := scriptedCommand("set 1 1 9\nset 1 1 8\nset 1 1 7\nset 1 2 2\n")

	final := playLoop(cmd, s)
	assert.Equal(t, game.StatusLost, final.Status)
	assert.Equal(t, 3, final.Mistakes)
}

func TestPlayLoopQuitAbandons(t *testing.T) {
	s := playableSession(t, 0, 1)
	cmd, _ := scriptedCommand("set 1 1 1\nquit\nset 1 2 2\n")

	final := playLoop(cmd, s)
	assert.Equal(t, game.StatusPlaying, final.Status)
	assert.Equal(t, 1, final.Progress)
}

func TestPlayLoopReportsRejections(t *testing.T) {
	s := playableSession(t, 0, 1)
	cmd, out := scriptedCommand("set 9 9 5\n")

	playLoop(cmd, s)
	assert.Contains(t, out.String(), "move rejected")
}

func TestReportOutcomeLostSetsExitCode(t *testing.T) {
	opts := &RootOptions{Format: "text"}
	cmd, out := scriptedCommand("")

	err := reportOutcome(opts, cmd, game.Snapshot{Status: game.StatusLost, Mistakes: 3})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "lost after 3 mistakes")
}

func TestReportOutcomeWon(t *testing.T) {
	opts := &RootOptions{Format: "text"}
	cmd, out := scriptedCommand("")

	require.NoError(t, reportOutcome(opts, cmd, game.Snapshot{Status: game.StatusWon, Mistakes: 1}))
	assert.Contains(t, out.String(), "won in")
}
