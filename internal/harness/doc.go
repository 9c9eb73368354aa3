// Package harness executes YAML round scenarios for conformance testing.
//
// A scenario fixes a puzzle, a solution, and a list of steps (cell
// entries, note toggles, undos, resets, and clock advances), then
// asserts on the final round state. Execution runs on a deterministic
// clock, so the per-step trace is byte-stable and can be compared
// against golden files.
//
// Scenarios live in testdata/scenarios/*.yaml and golden traces in
// testdata/golden/*.golden. Regenerate goldens with:
//
//	go test ./internal/harness -update
package harness
