package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the serialized form compared against golden files.
type TraceSnapshot struct {
	ScenarioName  string       `json:"scenario_name"`
	Description   string       `json:"description,omitempty"`
	Trace         []TraceEvent `json:"trace"`
	FinalStatus   string       `json:"final_status"`
	FinalProgress int          `json:"final_progress"`
	FinalMistakes int          `json:"final_mistakes"`
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden. Regenerate goldens with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	snapshot := TraceSnapshot{
		ScenarioName:  scenario.Name,
		Description:   scenario.Description,
		Trace:         result.Trace,
		FinalStatus:   result.Final.Status.String(),
		FinalProgress: result.Final.Progress,
		FinalMistakes: result.Final.Mistakes,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
