package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gridrace/gridrace/internal/board"
	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/generator"
	"github.com/gridrace/gridrace/internal/multi"
	"github.com/gridrace/gridrace/internal/realtime"
)

// DuelOptions holds flags for the duel command tree.
type DuelOptions struct {
	*RootOptions
	Difficulty string
	Name       string
}

// NewDuelCommand creates the duel command with its subcommands.
func NewDuelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DuelOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "duel",
		Short: "Race an opponent on a shared room",
	}

	cmd.PersistentFlags().StringVar(&opts.Difficulty, "difficulty", "medium", "round difficulty (easy|medium|hard)")
	cmd.PersistentFlags().StringVar(&opts.Name, "name", "", "display name (defaults to configured player name)")

	cmd.AddCommand(newDuelCreateCommand(opts))
	cmd.AddCommand(newDuelJoinCommand(opts))
	cmd.AddCommand(newDuelSimulateCommand(opts))

	return cmd
}

func newDuelCreateCommand(opts *DuelOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "create",
		Short:         "Create a room and wait for an opponent",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuel(opts, cmd, "")
		},
	}
}

func newDuelJoinCommand(opts *DuelOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "join <room-id>",
		Short:         "Join an existing room",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuel(opts, cmd, args[0])
		},
	}
}

func runDuel(opts *DuelOptions, cmd *cobra.Command, joinRoomID string) error {
	configureLogging(opts.RootOptions)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	d, err := game.ParseDifficulty(opts.Difficulty)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid difficulty", err)
	}

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cfg.RealtimeURL == "" {
		return WrapExitError(ExitCommandError, "no realtime backend configured (set realtime_url or GRIDRACE_REALTIME_URL)", nil)
	}

	local, err := openLocalStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open local database", err)
	}
	defer local.Close()
	selfID, err := local.PlayerID(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve player identity", err)
	}

	name := opts.Name
	if name == "" {
		name = cfg.PlayerName
	}
	if name == "" {
		if stored, err := local.PlayerName(ctx); err == nil && stored != "" {
			name = stored
		}
	}
	if name == "" {
		name = "anonymous"
	}

	var restOpts []realtime.RESTOption
	if cfg.AuthToken != "" {
		restOpts = append(restOpts, realtime.WithAuthToken(cfg.AuthToken))
	}
	store := realtime.NewREST(cfg.RealtimeURL, restOpts...)

	match := multi.NewMatch(store, generator.New(), selfID, name)
	defer match.Close()

	out := cmd.OutOrStdout()
	if joinRoomID == "" {
		if err := match.Create(ctx, d); err != nil {
			return WrapExitError(ExitCommandError, "failed to create room", err)
		}
		fmt.Fprintf(out, "room %s created, share the ID and press enter to start\n", match.RoomID())
		waitForEnter(cmd)
		if err := match.Start(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to start round", err)
		}
	} else {
		if err := match.Join(ctx, joinRoomID); err != nil {
			return WrapExitError(ExitCommandError, joinFailureMessage(err), err)
		}
		fmt.Fprintf(out, "joined room %s, waiting for the owner to start\n", joinRoomID)
	}

	go func() {
		if err := match.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(cmd.ErrOrStderr(), "match loop failed: %v\n", err)
		}
	}()

	waitForRoundStart(ctx, match.Session())
	final := playLoop(cmd, match.Session())
	cancel()
	return reportOutcome(opts.RootOptions, cmd, final)
}

// joinFailureMessage maps the structured join errors onto user-facing
// text.
func joinFailureMessage(err error) string {
	switch {
	case multi.IsRoomNotFound(err):
		return "room not found"
	case multi.IsRoomAlreadyStarted(err):
		return "round already started"
	case multi.IsRoomFull(err):
		return "room is full"
	default:
		return "failed to join room"
	}
}

func waitForEnter(cmd *cobra.Command) {
	buf := make([]byte, 1)
	for {
		n, err := cmd.InOrStdin().Read(buf)
		if err != nil || (n == 1 && buf[0] == '\n') {
			return
		}
	}
}

// waitForRoundStart polls until the session leaves Idle, i.e. until the
// room bootstrap adopted the round.
func waitForRoundStart(ctx context.Context, session *game.Session) {
	for session.Status() == game.StatusIdle {
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func newDuelSimulateCommand(opts *DuelOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "simulate",
		Short:         "Run an automated duel against an in-memory room",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd)
		},
	}
}

// runSimulate races two automated players over an in-memory store. The
// faster bot wins by completion; the slower one is defeated when the
// room finishes.
func runSimulate(opts *DuelOptions, cmd *cobra.Command) error {
	configureLogging(opts.RootOptions)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	d, err := game.ParseDifficulty(opts.Difficulty)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid difficulty", err)
	}

	store := realtime.NewMemStore()
	defer store.Close()
	gen := generator.New()

	fast := multi.NewMatch(store, gen, "bot-fast", "Fast Bot",
		multi.WithDebounceWindow(10*time.Millisecond),
		multi.WithDefeatDelay(50*time.Millisecond),
		multi.WithVictoryGrace(50*time.Millisecond))
	slow := multi.NewMatch(store, gen, "bot-slow", "Slow Bot",
		multi.WithDebounceWindow(10*time.Millisecond),
		multi.WithDefeatDelay(50*time.Millisecond),
		multi.WithVictoryGrace(50*time.Millisecond))
	defer fast.Close()
	defer slow.Close()

	if err := fast.Create(ctx, d); err != nil {
		return WrapExitError(ExitCommandError, "failed to create room", err)
	}
	if err := slow.Join(ctx, fast.RoomID()); err != nil {
		return WrapExitError(ExitCommandError, "failed to join room", err)
	}
	if err := fast.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start round", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(fast.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(slow.Run(gctx)) })
	g.Go(func() error {
		botPlay(gctx, fast.Session(), 2*time.Millisecond)
		botPlay(gctx, slow.Session(), 5*time.Millisecond)
		// Give the debounce and defeat timers room to settle.
		waitForTerminal(gctx, slow.Session())
		time.Sleep(100 * time.Millisecond)
		cancel()
		return nil
	})
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "simulation failed", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "fast bot: %s\n", fast.Session().Status())
	fmt.Fprintf(out, "slow bot: %s\n", slow.Session().Status())
	return nil
}

// botPlay fills the session's empty cells with solved digits until the
// round ends, pausing between moves.
func botPlay(ctx context.Context, session *game.Session, pause time.Duration) {
	for session.Status() == game.StatusIdle {
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}

	for session.Status() == game.StatusPlaying {
		var row, col int
		var digit uint8
		found := false
		session.View(func(g *game.Game) {
			w := g.Working()
			if idx := w.FirstEmpty(); idx >= 0 {
				row, col = board.Coord(idx)
				digit = g.Solution().Digit(row, col)
				found = true
			}
		})
		if !found {
			return
		}
		session.Apply(row, col, digit)

		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}

func waitForTerminal(ctx context.Context, session *game.Session) {
	for !session.Status().Terminal() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
