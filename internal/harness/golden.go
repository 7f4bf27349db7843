package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// canonicalMap converts a Result into nested maps so encoding/json
// emits keys in sorted order; the serialized trace is byte-stable
// across runs.
func (r *Result) canonicalMap() map[string]any {
	trace := make([]any, len(r.Trace))
	for i, e := range r.Trace {
		ev := map[string]any{"type": e.Type}
		if e.Type == "step" {
			ev["frontier"] = e.Frontier
			ev["advanced"] = e.Advanced
		} else {
			ev["action_id"] = e.ActionID
			ev["at"] = e.At
			if e.Result != nil {
				ev["result"] = e.Result
			}
		}
		trace[i] = ev
	}
	return map[string]any{
		"scenario": r.Scenario,
		"final":    r.Final.String(),
		"trace":    trace,
	}
}

// MarshalTrace serializes the result as canonical indented JSON.
func (r *Result) MarshalTrace() ([]byte, error) {
	data, err := json.MarshalIndent(r.canonicalMap(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode trace: %w", err)
	}
	return data, nil
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) {
	t.Helper()

	result, err := Run(sc)
	if err != nil {
		t.Fatalf("scenario %s failed: %v", sc.Name, err)
	}
	data, err := result.MarshalTrace()
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
}
