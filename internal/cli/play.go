package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/generator"
)

// timePrecision rounds reported round durations for display.
const timePrecision = 100 * time.Millisecond

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Difficulty string
	Seed       string
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a solo round",
		Long: `Play a solo round at the chosen difficulty.

Moves are read line by line:
  set ROW COL DIGIT   place a digit (1-based coordinates)
  clear ROW COL       erase a cell
  note ROW COL DIGIT  toggle a candidate annotation
  undo                take back the last move
  reset               restart from the initial clues
  quit                abandon the round

Example:
  gridrace play --difficulty medium
  gridrace play --seed practice-17 --difficulty hard`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Difficulty, "difficulty", "easy", "round difficulty (easy|medium|hard)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "deterministic generation seed")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command) error {
	configureLogging(opts.RootOptions)

	d, err := game.ParseDifficulty(opts.Difficulty)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid difficulty", err)
	}

	session := game.NewSession(generator.New())
	defer session.Close()

	if opts.Seed != "" {
		err = session.NewSeededGame(opts.Seed, d)
	} else {
		err = session.NewGame(d)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start round", err)
	}

	final := playLoop(cmd, session)
	return reportOutcome(opts.RootOptions, cmd, final)
}

// playLoop drives a session from line-based input until the round ends
// or input runs out. Returns the final snapshot.
func playLoop(cmd *cobra.Command, session *game.Session) game.Snapshot {
	out := cmd.OutOrStdout()
	renderSession(out, session)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			break
		}

		if ok, msg := dispatch(session, line); !ok {
			fmt.Fprintln(out, msg)
			continue
		}
		renderSession(out, session)

		if session.Status().Terminal() {
			break
		}
	}
	return session.Snapshot()
}

// dispatch parses and executes one input line. The second return value
// carries a user-facing message when the line was not applied.
func dispatch(session *game.Session, line string) (bool, string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "set":
		row, col, v, err := parseCell(fields, 3)
		if err != nil {
			return false, err.Error()
		}
		if !session.Apply(row, col, v) {
			return false, "move rejected"
		}
	case "clear":
		row, col, _, err := parseCell(fields, 2)
		if err != nil {
			return false, err.Error()
		}
		if !session.Apply(row, col, 0) {
			return false, "move rejected"
		}
	case "note":
		row, col, d, err := parseCell(fields, 3)
		if err != nil {
			return false, err.Error()
		}
		if !session.ToggleNote(row, col, d) {
			return false, "note rejected"
		}
	case "undo":
		if !session.Undo() {
			return false, "nothing to undo"
		}
	case "reset":
		session.Reset()
	default:
		return false, fmt.Sprintf("unknown command %q", fields[0])
	}
	return true, ""
}

// parseCell parses 1-based "ROW COL [DIGIT]" arguments into 0-based
// coordinates.
func parseCell(fields []string, want int) (row, col int, digit uint8, err error) {
	if len(fields) != want+1 {
		return 0, 0, 0, fmt.Errorf("usage: %s ROW COL%s", fields[0], digitUsage(want))
	}
	row, err = strconv.Atoi(fields[1])
	if err != nil || row < 1 || row > 9 {
		return 0, 0, 0, fmt.Errorf("row must be 1-9")
	}
	col, err = strconv.Atoi(fields[2])
	if err != nil || col < 1 || col > 9 {
		return 0, 0, 0, fmt.Errorf("col must be 1-9")
	}
	if want == 3 {
		n, err := strconv.Atoi(fields[3])
		if err != nil || n < 1 || n > 9 {
			return 0, 0, 0, fmt.Errorf("digit must be 1-9")
		}
		digit = uint8(n)
	}
	return row - 1, col - 1, digit, nil
}

func digitUsage(want int) string {
	if want == 3 {
		return " DIGIT"
	}
	return ""
}

func renderSession(w io.Writer, session *game.Session) {
	session.View(func(g *game.Game) {
		working := g.Working()
		fmt.Fprintln(w, working.String())
		fmt.Fprintf(w, "remaining %d  mistakes %d/%d\n", g.Progress(), g.MistakeCount(), game.MaxMistakes)
	})
}

func reportOutcome(opts *RootOptions, cmd *cobra.Command, snap game.Snapshot) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	switch snap.Status {
	case game.StatusWon:
		return f.Success(fmt.Sprintf("won in %s with %d mistakes", snap.TimeTaken.Round(timePrecision), snap.Mistakes))
	case game.StatusLost:
		if err := f.Error("LOST", fmt.Sprintf("lost after %d mistakes", snap.Mistakes)); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "round lost", nil)
	default:
		return f.Success("round abandoned")
	}
}

func configureLogging(opts *RootOptions) {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}
