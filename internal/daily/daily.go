// Package daily derives the shared daily challenge and computes
// completion streaks from the local completion record.
package daily

import (
	"context"
	"time"

	"github.com/gridrace/gridrace/internal/game"
)

// Layout is the canonical day key format.
const Layout = "2006-01-02"

// Key returns the challenge day key for t in t's location.
func Key(t time.Time) string {
	return t.Format(Layout)
}

// Seed returns the generation seed for a day key. Every player derives
// the same seed for the same day, so everyone gets the same round.
func Seed(day string) string {
	return "daily-" + day
}

// Puzzle generates the challenge for the given day at the given
// difficulty. Deterministic in (day, difficulty).
func Puzzle(gen game.Generator, day string, d game.Difficulty) (game.Puzzle, error) {
	return gen.GenerateSeeded(Seed(day), d)
}

// CompletionSource reports which daily challenges were finished.
type CompletionSource interface {
	DailyCompleted(ctx context.Context, day string) (bool, error)
}

// Streak returns the number of consecutive completed days ending at
// today. Today itself counts when completed but an incomplete today does
// not break a run ending yesterday.
func Streak(ctx context.Context, src CompletionSource, today time.Time) (int, error) {
	day := today
	done, err := src.DailyCompleted(ctx, Key(day))
	if err != nil {
		return 0, err
	}
	if !done {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for {
		done, err := src.DailyCompleted(ctx, Key(day))
		if err != nil {
			return 0, err
		}
		if !done {
			return streak, nil
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}
