package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridrace/gridrace/internal/daily"
	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/generator"
	"github.com/gridrace/gridrace/internal/localstore"
)

// DailyOptions holds flags for the daily command.
type DailyOptions struct {
	*RootOptions
	Difficulty string
	Date       string
}

// NewDailyCommand creates the daily challenge command.
func NewDailyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DailyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Play today's challenge",
		Long: `Play the daily challenge. Every player gets the same round for the
same date, and completions feed your streak.

Example:
  gridrace daily
  gridrace daily --difficulty hard`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaily(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Difficulty, "difficulty", "medium", "round difficulty (easy|medium|hard)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "challenge date (YYYY-MM-DD, defaults to today)")

	return cmd
}

func runDaily(opts *DailyOptions, cmd *cobra.Command) error {
	configureLogging(opts.RootOptions)
	ctx := cmd.Context()

	d, err := game.ParseDifficulty(opts.Difficulty)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid difficulty", err)
	}

	day, err := resolveDay(opts.Date)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid date", err)
	}

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	store, err := openLocalStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open local database", err)
	}
	defer store.Close()

	if done, err := store.DailyCompleted(ctx, day); err == nil && done {
		fmt.Fprintf(cmd.OutOrStdout(), "challenge %s already completed\n", day)
		return printStreak(ctx, cmd, store)
	}

	session := game.NewSession(generator.New())
	defer session.Close()
	if err := session.NewSeededGame(daily.Seed(day), d); err != nil {
		return WrapExitError(ExitCommandError, "failed to start round", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "daily challenge %s (%s)\n", day, d)
	final := playLoop(cmd, session)

	if final.Status == game.StatusWon {
		if err := store.MarkDailyCompleted(ctx, day, time.Now()); err != nil {
			return WrapExitError(ExitCommandError, "failed to record completion", err)
		}
		if err := printStreak(ctx, cmd, store); err != nil {
			return err
		}
	}
	return reportOutcome(opts.RootOptions, cmd, final)
}

func resolveDay(date string) (string, error) {
	if date == "" {
		return daily.Key(time.Now()), nil
	}
	t, err := time.Parse(daily.Layout, date)
	if err != nil {
		return "", err
	}
	return daily.Key(t), nil
}

func printStreak(ctx context.Context, cmd *cobra.Command, store *localstore.Store) error {
	streak, err := daily.Streak(ctx, store, time.Now())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute streak", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "current streak: %d\n", streak)
	return nil
}

func openLocalStore(cfg *Config) (*localstore.Store, error) {
	if dir := filepath.Dir(cfg.Database); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return localstore.Open(cfg.Database)
}
