package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultMaxSteps is the default step budget per Simulate call. It
// bounds runaway hierarchies whose frontier stops progressing.
const DefaultMaxSteps = 100000

// StepRecord summarizes one completed step for recorders: the frontier
// the step ran at, the ids of the nodes advanced (in visit order), and
// the broker log entries produced during the step.
type StepRecord struct {
	Frontier   float64
	Advanced   []string
	Immediates []LogEntry
	Futures    []LogEntry
	Controls   []LogEntry
}

// Recorder receives a StepRecord after every completed step. The store
// package provides a SQLite-backed implementation; the harness records
// in memory.
type Recorder interface {
	RecordStep(ctx context.Context, rec StepRecord) error
}

// Scheduler drives the synchronized stepping protocol over a
// hierarchy. It holds no per-hierarchy state: one scheduler may step
// any number of roots.
//
// All stepping is synchronous and single-threaded. A node's advance
// runs to completion before the next node's begins; broker drains
// happen only at the root, after the whole advance sweep.
type Scheduler struct {
	log      *slog.Logger
	rec      Recorder
	maxSteps int
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the slog logger used for step-phase debug logging.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = l }
}

// WithRecorder attaches a recorder invoked after every step.
func WithRecorder(r Recorder) SchedulerOption {
	return func(s *Scheduler) { s.rec = r }
}

// WithMaxSteps sets the Simulate step budget.
//
// Default: DefaultMaxSteps. Use a small value to test quota
// enforcement.
func WithMaxSteps(n int) SchedulerOption {
	return func(s *Scheduler) { s.maxSteps = n }
}

// NewScheduler creates a scheduler.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		log:      slog.Default(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Step advances the hierarchy rooted at root by one synchronized
// round:
//
//  1. Compute the frontier: the fold of every node's projected time
//     with the earliest pending future.
//  2. Pre-step sweep: PreAdvance(frontier) on every node, pre-order,
//     exactly once regardless of recursion depth.
//  3. Recursive advance: children first; a node advances only when its
//     own projected time equals the frontier exactly. A node past the
//     frontier is skipped, never advanced.
//  4. Root-only post-step: drain immediates at the frontier, execute
//     due futures (folding the next pending future into the return),
//     run every control, then drain again so immediates enqueued by a
//     future or control still execute within this step.
//
// The returned horizon is done when every node and every pending
// future has finished, otherwise the numeric frontier for the next
// call. Errors from node or thunk code propagate unretried; the
// hierarchy keeps whatever state the partial execution produced.
func (s *Scheduler) Step(ctx context.Context, root Node) (Horizon, error) {
	op := root.Opera()
	frontier := projectTree(root).Merge(op.NextFuture())
	t, ok := frontier.Time()
	if !ok {
		return frontier, nil
	}
	s.log.Debug("step begin", "root", root.Name(), "frontier", t)

	if err := preSweep(root, t); err != nil {
		return frontier, err
	}

	run := stepRun{frontier: t}
	ret, err := s.advance(root, t, &run)
	if err != nil {
		return ret, err
	}

	immMark := len(op.immediateLog)
	futMark := len(op.futureLog)
	ctlMark := len(op.controlLog)

	if err := op.DrainImmediates(root, t); err != nil {
		return ret, err
	}
	next, err := op.RunDueFutures(root, t)
	ret = ret.Merge(next)
	if err != nil {
		return ret, err
	}
	if err := op.RunControls(root, t); err != nil {
		return ret, err
	}
	// futures and controls may enqueue immediates of their own; those
	// run within this step, not the next
	if err := op.DrainImmediates(root, t); err != nil {
		return ret, err
	}

	rec := StepRecord{
		Frontier:   t,
		Advanced:   run.advanced,
		Immediates: op.immediateLog[immMark:],
		Futures:    op.futureLog[futMark:],
		Controls:   op.controlLog[ctlMark:],
	}
	measureStep(ctx, rec)
	if s.rec != nil {
		if err := s.rec.RecordStep(ctx, rec); err != nil {
			return ret, fmt.Errorf("record step at %v: %w", t, err)
		}
	}
	s.log.Debug("step end",
		"root", root.Name(),
		"frontier", t,
		"advanced", len(run.advanced),
		"next", ret.String(),
	)
	return ret, nil
}

// Simulate repeatedly steps the hierarchy until it finishes or the
// frontier reaches maxTime (a simulated-time horizon, not a wall-clock
// timeout). Returns the final horizon: done on completion, otherwise
// the first frontier at or past maxTime.
func (s *Scheduler) Simulate(ctx context.Context, root Node, maxTime float64) (Horizon, error) {
	h := Inert()
	for steps := 0; ; steps++ {
		if steps >= s.maxSteps {
			return h, &ConfigError{
				Code:    ErrCodeQuotaExceeded,
				Message: fmt.Sprintf("simulation exceeded %d steps before %v", s.maxSteps, maxTime),
				NodeID:  root.ID(),
			}
		}
		if err := ctx.Err(); err != nil {
			return h, err
		}
		var err error
		h, err = s.Step(ctx, root)
		if err != nil {
			return h, err
		}
		t, ok := h.Time()
		if !ok || t >= maxTime {
			return h, nil
		}
	}
}

// Reinitialize resets every node of the subtree to its initial
// condition, pre-order. Nodes without a reset operation are skipped.
func (s *Scheduler) Reinitialize(root Node) error {
	var firstErr error
	Inspect(root, func(n Node) bool {
		if firstErr != nil {
			return false
		}
		if r, ok := n.(Reinitializer); ok {
			if err := r.Reinitialize(); err != nil {
				firstErr = fmt.Errorf("reinitialize %s: %w", n.Name(), err)
				return false
			}
		}
		return true
	})
	return firstErr
}

type stepRun struct {
	frontier float64
	advanced []string
}

// ownProjection returns a node's own projected time: inert for pure
// containers, which have no evolution of their own.
func ownProjection(n Node) Horizon {
	if p, ok := n.(Projector); ok {
		return p.ProjectedTime()
	}
	return Inert()
}

// projectTree folds the projected times of the whole subtree: each
// container contributes the fold over its children, leaves contribute
// their own projection.
func projectTree(n Node) Horizon {
	ret := Inert()
	for _, c := range n.Children() {
		ret = ret.Merge(projectTree(c))
	}
	return ret.Merge(ownProjection(n))
}

// preSweep invokes PreAdvance(frontier) on every node, pre-order. Runs
// exactly once per external Step call; the recursive advance never
// triggers it again.
func preSweep(root Node, frontier float64) error {
	var firstErr error
	Inspect(root, func(n Node) bool {
		if firstErr != nil {
			return false
		}
		if pa, ok := n.(PreAdvancer); ok {
			if err := pa.PreAdvance(frontier); err != nil {
				firstErr = fmt.Errorf("pre-advance %s: %w", n.Name(), err)
				return false
			}
		}
		return true
	})
	return firstErr
}

// advance is the recursive advance phase: children first, then the
// node's own advance decision. A node advances only when its own
// projected time equals the frontier exactly; strict equality is the
// anti-front-running guarantee. Returns the fold of post-advance
// projections over the subtree.
func (s *Scheduler) advance(n Node, frontier float64, run *stepRun) (Horizon, error) {
	ret := Inert()
	for _, c := range n.Children() {
		h, err := s.advance(c, frontier, run)
		ret = ret.Merge(h)
		if err != nil {
			return ret, err
		}
	}

	own := ownProjection(n)
	if t, ok := own.Time(); ok && t == frontier {
		adv, ok := n.(Advancer)
		if !ok {
			return ret, &ConfigError{
				Code:    ErrCodeMissingCapability,
				Message: "node projects a time but cannot advance",
				NodeID:  n.ID(),
			}
		}
		if err := adv.AdvanceOneUnit(); err != nil {
			return ret, fmt.Errorf("advance %s: %w", n.Name(), err)
		}
		run.advanced = append(run.advanced, n.ID())
		own = ownProjection(n)
	}
	return ret.Merge(own), nil
}
