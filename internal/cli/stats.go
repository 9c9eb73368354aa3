package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gridrace/gridrace/internal/daily"
	"github.com/gridrace/gridrace/internal/ledger"
	"github.com/gridrace/gridrace/internal/realtime"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	SetName string
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daily streak and duel record",
		Long: `Show the daily challenge streak and, when a realtime backend is
configured, the per-opponent duel record.

Example:
  gridrace stats
  gridrace stats --set-name "Ada"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SetName, "set-name", "", "store a new display name and exit")

	return cmd
}

// statsReport is the JSON payload for --format json.
type statsReport struct {
	Player     string        `json:"player"`
	Streak     int           `json:"streak"`
	DaysPlayed int           `json:"days_played"`
	Duels      []opponentRow `json:"duels,omitempty"`
}

type opponentRow struct {
	Opponent string `json:"opponent"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	configureLogging(opts.RootOptions)
	ctx := cmd.Context()

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	local, err := openLocalStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open local database", err)
	}
	defer local.Close()

	if opts.SetName != "" {
		if err := local.SetPlayerName(ctx, opts.SetName); err != nil {
			return WrapExitError(ExitCommandError, "failed to store name", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "display name set to %q\n", opts.SetName)
		return nil
	}

	report := statsReport{}
	if report.Player, err = local.PlayerName(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to read player name", err)
	}
	if report.Streak, err = daily.Streak(ctx, local, time.Now()); err != nil {
		return WrapExitError(ExitCommandError, "failed to compute streak", err)
	}
	days, err := local.CompletedDays(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list completions", err)
	}
	report.DaysPlayed = len(days)

	if cfg.RealtimeURL != "" {
		report.Duels, err = fetchDuelRecord(cmd, cfg, local)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to fetch duel record", err)
		}
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return f.Success(report)
	}
	printStats(cmd, report)
	return nil
}

func fetchDuelRecord(cmd *cobra.Command, cfg *Config, local playerIdentity) ([]opponentRow, error) {
	ctx := cmd.Context()
	selfID, err := local.PlayerID(ctx)
	if err != nil {
		return nil, err
	}

	var restOpts []realtime.RESTOption
	if cfg.AuthToken != "" {
		restOpts = append(restOpts, realtime.WithAuthToken(cfg.AuthToken))
	}
	store := realtime.NewREST(cfg.RealtimeURL, restOpts...)

	records, err := ledger.New(store).Records(ctx, selfID)
	if err != nil {
		return nil, err
	}

	rows := make([]opponentRow, 0, len(records))
	for _, rec := range records {
		name := rec.Name
		if name == "" {
			name = "unknown"
		}
		rows = append(rows, opponentRow{Opponent: name, Wins: rec.Wins, Losses: rec.Losses})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Opponent < rows[j].Opponent })
	return rows, nil
}

type playerIdentity interface {
	PlayerID(ctx context.Context) (string, error)
}

// printStats renders the text report with locale-aware number formatting.
func printStats(cmd *cobra.Command, report statsReport) {
	p := message.NewPrinter(language.English)
	out := cmd.OutOrStdout()

	if report.Player != "" {
		p.Fprintf(out, "player: %s\n", report.Player)
	}
	p.Fprintf(out, "daily streak: %d\n", report.Streak)
	p.Fprintf(out, "dailies completed: %d\n", report.DaysPlayed)

	if len(report.Duels) > 0 {
		p.Fprintf(out, "\nduel record:\n")
		for _, row := range report.Duels {
			p.Fprintf(out, "  %-20s %d won / %d lost\n", row.Opponent, row.Wins, row.Losses)
		}
	}
}
