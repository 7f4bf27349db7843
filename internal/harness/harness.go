// Package harness runs declarative co-simulation scenarios and
// captures their complete traces for golden-file comparison. A
// scenario describes a flat hierarchy of fixed-rate pacer nodes plus
// initial broker actions; running it must be fully deterministic, so
// every id is derived from the scenario instead of generated.
package harness

import (
	"context"
	"fmt"

	"github.com/entrainlab/entrain/internal/engine"
	"github.com/entrainlab/entrain/internal/testutil"
)

// PacerSpec declares one fixed-rate leaf node.
type PacerSpec struct {
	Name  string  `yaml:"name"`
	Dt    float64 `yaml:"dt"`
	Until float64 `yaml:"until"`
}

// ImmediateSpec declares an immediate action pending before the first
// step.
type ImmediateSpec struct {
	ID       string `yaml:"id"`
	Priority int    `yaml:"priority"`
}

// FutureSpec declares a delayed action scheduled at a simulated time.
type FutureSpec struct {
	ID string  `yaml:"id"`
	At float64 `yaml:"at"`
}

// ControlSpec declares a recurring per-step action.
type ControlSpec struct {
	ID string `yaml:"id"`
}

// Scenario is a declarative co-simulation setup.
type Scenario struct {
	Name       string          `yaml:"name"`
	Pacers     []PacerSpec     `yaml:"pacers"`
	Immediates []ImmediateSpec `yaml:"immediates"`
	Futures    []FutureSpec    `yaml:"futures"`
	Controls   []ControlSpec   `yaml:"controls"`
	MaxTime    float64         `yaml:"max_time"`
}

// Validate reports the first structural problem with the scenario.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario needs a name")
	}
	if sc.MaxTime <= 0 {
		return fmt.Errorf("scenario %s: max_time must be positive", sc.Name)
	}
	for _, p := range sc.Pacers {
		if p.Name == "" {
			return fmt.Errorf("scenario %s: pacer without a name", sc.Name)
		}
		if p.Dt <= 0 {
			return fmt.Errorf("scenario %s: pacer %s needs a positive dt", sc.Name, p.Name)
		}
	}
	return nil
}

// TraceEvent is one entry of a scenario trace: either a completed step
// round or one executed broker action.
type TraceEvent struct {
	Type     string   // "step", "immediate", "future" or "control"
	Frontier float64  // step events
	Advanced []string // step events: node ids advanced, in visit order
	ActionID string   // action events
	At       float64  // action events: simulated execution time
	Result   any      // action events: thunk return value
}

// Result is a completed scenario execution.
type Result struct {
	Scenario string
	Final    engine.Horizon
	Trace    []TraceEvent
}

// traceRecorder flattens StepRecords into the linear trace.
type traceRecorder struct {
	trace []TraceEvent
}

func (r *traceRecorder) RecordStep(_ context.Context, rec engine.StepRecord) error {
	advanced := rec.Advanced
	if advanced == nil {
		advanced = []string{}
	}
	r.trace = append(r.trace, TraceEvent{
		Type:     "step",
		Frontier: rec.Frontier,
		Advanced: advanced,
	})
	// fixed queue order matching the post-step phase
	for _, e := range rec.Immediates {
		r.trace = append(r.trace, TraceEvent{Type: "immediate", ActionID: e.ID, At: e.Time, Result: e.Result})
	}
	for _, e := range rec.Futures {
		r.trace = append(r.trace, TraceEvent{Type: "future", ActionID: e.ID, At: e.Time, Result: e.Result})
	}
	for _, e := range rec.Controls {
		r.trace = append(r.trace, TraceEvent{Type: "control", ActionID: e.ID, At: e.Time, Result: e.Result})
	}
	return nil
}

// Run executes the scenario to completion or its time horizon and
// returns the trace.
func Run(sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	root := engine.NewContainer("root", engine.WithID("root"))
	for _, p := range sc.Pacers {
		if err := engine.Attach(root, testutil.NewTicker(p.Name, p.Dt, p.Until)); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
	}

	fired := engine.Do(func() (any, error) { return "fired", nil })
	op := root.Opera()
	for _, im := range sc.Immediates {
		op.EnqueueImmediate(fired, im.Priority, engine.WithActionID(im.ID))
	}
	for _, fu := range sc.Futures {
		op.EnqueueFuture(fired, fu.At, engine.WithActionID(fu.ID))
	}
	for _, ct := range sc.Controls {
		op.AddControl(fired, engine.WithActionID(ct.ID))
	}

	rec := &traceRecorder{}
	s := engine.NewScheduler(engine.WithRecorder(rec))
	h, err := s.Simulate(context.Background(), root, sc.MaxTime)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return &Result{Scenario: sc.Name, Final: h, Trace: rec.trace}, nil
}
