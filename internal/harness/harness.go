package harness

import (
	"fmt"
	"time"

	"github.com/gridrace/gridrace/internal/game"
	"github.com/gridrace/gridrace/internal/testutil"
)

// TraceEvent records the observable state after one scenario step.
type TraceEvent struct {
	Seq      int    `json:"seq"`
	Op       string `json:"op"`
	Row      *int   `json:"row,omitempty"`
	Col      *int   `json:"col,omitempty"`
	Value    *int   `json:"value,omitempty"`
	Digit    *int   `json:"digit,omitempty"`
	Ms       *int   `json:"ms,omitempty"`
	Accepted bool   `json:"accepted"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Mistakes int    `json:"mistakes"`
}

// Result holds a scenario execution's trace and final state.
type Result struct {
	Trace []TraceEvent
	Final game.Snapshot
}

// Run executes a scenario on a deterministic clock and validates its
// expectations. The returned Result carries the full trace even when
// validation fails, so callers can still snapshot it.
func Run(scenario *Scenario) (*Result, error) {
	d := game.DifficultyEasy
	if scenario.Difficulty != "" {
		var err error
		d, err = game.ParseDifficulty(scenario.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	clock := testutil.NewFakeClock()
	session := game.NewSession(
		&testutil.FixedGenerator{Puzzle: scenario.Puzzle, Solution: scenario.Solution},
		game.WithClock(clock),
	)
	defer session.Close()

	if err := session.Adopt(game.Puzzle{
		Puzzle:     scenario.Puzzle,
		Solution:   scenario.Solution,
		Difficulty: d,
	}); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{}
	for i, step := range scenario.Steps {
		accepted := runStep(session, clock, step)

		snap := session.Snapshot()
		ev := TraceEvent{
			Seq:      i + 1,
			Op:       step.Op,
			Accepted: accepted,
			Status:   snap.Status.String(),
			Progress: snap.Progress,
			Mistakes: snap.Mistakes,
		}
		switch step.Op {
		case OpApply:
			ev.Row, ev.Col, ev.Value = ptr(step.Row), ptr(step.Col), ptr(step.Value)
		case OpNote:
			ev.Row, ev.Col, ev.Digit = ptr(step.Row), ptr(step.Col), ptr(step.Digit)
		case OpAdvance:
			ev.Ms = ptr(step.Ms)
		}
		result.Trace = append(result.Trace, ev)
	}

	result.Final = session.Snapshot()
	if err := checkExpect(scenario, result.Final); err != nil {
		return result, err
	}
	return result, nil
}

func runStep(session *game.Session, clock *testutil.FakeClock, step Step) bool {
	switch step.Op {
	case OpApply:
		return session.Apply(step.Row, step.Col, uint8(step.Value))
	case OpNote:
		return session.ToggleNote(step.Row, step.Col, uint8(step.Digit))
	case OpUndo:
		return session.Undo()
	case OpReset:
		session.Reset()
		return true
	case OpAdvance:
		clock.Advance(time.Duration(step.Ms) * time.Millisecond)
		return true
	}
	return false
}

func checkExpect(scenario *Scenario, final game.Snapshot) error {
	if got := final.Status.String(); got != scenario.Expect.Status {
		return fmt.Errorf("scenario %s: final status = %s, want %s",
			scenario.Name, got, scenario.Expect.Status)
	}
	if final.Progress != scenario.Expect.Progress {
		return fmt.Errorf("scenario %s: final progress = %d, want %d",
			scenario.Name, final.Progress, scenario.Expect.Progress)
	}
	if final.Mistakes != scenario.Expect.Mistakes {
		return fmt.Errorf("scenario %s: final mistakes = %d, want %d",
			scenario.Name, final.Mistakes, scenario.Expect.Mistakes)
	}
	return nil
}

func ptr(v int) *int { return &v }
