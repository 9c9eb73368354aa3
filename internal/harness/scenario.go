package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a fixed round, a sequence
// of steps, and the expected final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Puzzle is the 81-character starting grid, '-' for blanks.
	Puzzle string `yaml:"puzzle"`

	// Solution is the 81-character solved grid.
	Solution string `yaml:"solution"`

	// Difficulty selects the assist threshold. Defaults to "easy".
	Difficulty string `yaml:"difficulty,omitempty"`

	// Steps is the main flow, executed in order.
	Steps []Step `yaml:"steps"`

	// Expect validates the final state after all steps.
	Expect Expect `yaml:"expect"`
}

// Step is a single scenario action.
type Step struct {
	// Op is one of "apply", "note", "undo", "reset", "advance".
	Op string `yaml:"op"`

	// Row and Col address a cell (apply, note).
	Row int `yaml:"row,omitempty"`
	Col int `yaml:"col,omitempty"`

	// Value is the digit for apply, 0 to erase.
	Value int `yaml:"value,omitempty"`

	// Digit is the candidate digit for note.
	Digit int `yaml:"digit,omitempty"`

	// Ms advances the deterministic clock (advance).
	Ms int `yaml:"ms,omitempty"`
}

// Expect specifies the expected final state. Status is required; the
// counters are always compared, so scenarios state them explicitly.
type Expect struct {
	Status   string `yaml:"status"`
	Progress int    `yaml:"progress"`
	Mistakes int    `yaml:"mistakes"`
}

// Step op constants.
const (
	OpApply   = "apply"
	OpNote    = "note"
	OpUndo    = "undo"
	OpReset   = "reset"
	OpAdvance = "advance"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Puzzle) != 81 {
		return fmt.Errorf("puzzle must be 81 characters, got %d", len(s.Puzzle))
	}
	if len(s.Solution) != 81 {
		return fmt.Errorf("solution must be 81 characters, got %d", len(s.Solution))
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Expect.Status == "" {
		return fmt.Errorf("expect.status is required")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpApply:
		if err := checkCell(index, st.Row, st.Col); err != nil {
			return err
		}
		if st.Value < 0 || st.Value > 9 {
			return fmt.Errorf("steps[%d]: value must be 0-9, got %d", index, st.Value)
		}
	case OpNote:
		if err := checkCell(index, st.Row, st.Col); err != nil {
			return err
		}
		if st.Digit < 1 || st.Digit > 9 {
			return fmt.Errorf("steps[%d]: digit must be 1-9, got %d", index, st.Digit)
		}
	case OpUndo, OpReset:
		// no arguments
	case OpAdvance:
		if st.Ms <= 0 {
			return fmt.Errorf("steps[%d]: ms must be positive for advance", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

func checkCell(index, row, col int) error {
	if row < 0 || row > 8 || col < 0 || col > 8 {
		return fmt.Errorf("steps[%d]: cell (%d,%d) out of bounds", index, row, col)
	}
	return nil
}
