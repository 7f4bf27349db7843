package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/entrainlab/entrain/internal/engine")

const (
	// queueAttr associates each action-execution record with the
	// broker collection it came from (immediate, future or control),
	// allowing both per-queue and aggregate analysis.
	queueAttr = "queue"
)

var (
	// stepsTotal counts completed step rounds.
	stepsTotal metric.Int64Counter
	// nodesAdvanced counts node advances per step round.
	nodesAdvanced metric.Int64Counter
	// actionsExecuted counts executed broker actions, attributed per
	// queue via queueAttr.
	actionsExecuted metric.Int64Counter
	// stepFrontier records the frontier each step round ran at.
	stepFrontier metric.Float64Histogram
)

func init() {
	var err error
	stepsTotal, err = meter.Int64Counter(
		"scheduler.steps",
		metric.WithDescription("The number of completed synchronized step rounds."),
	)
	if err != nil {
		panic("engine: failed to init 'scheduler.steps' instrument")
	}

	nodesAdvanced, err = meter.Int64Counter(
		"scheduler.nodes.advanced",
		metric.WithDescription("The number of node advances performed across all step rounds."),
	)
	if err != nil {
		panic("engine: failed to init 'scheduler.nodes.advanced' instrument")
	}

	actionsExecuted, err = meter.Int64Counter(
		"opera.actions.executed",
		metric.WithDescription("The number of broker actions executed, attributed per queue."),
	)
	if err != nil {
		panic("engine: failed to init 'opera.actions.executed' instrument")
	}

	stepFrontier, err = meter.Float64Histogram(
		"scheduler.step.frontier",
		metric.WithDescription("The simulated-time frontier each step round ran at."),
	)
	if err != nil {
		panic("engine: failed to init 'scheduler.step.frontier' instrument")
	}
}

func measureStep(ctx context.Context, rec StepRecord) {
	stepsTotal.Add(ctx, 1)
	nodesAdvanced.Add(ctx, int64(len(rec.Advanced)))
	stepFrontier.Record(ctx, rec.Frontier)
	for queue, entries := range map[string][]LogEntry{
		"immediate": rec.Immediates,
		"future":    rec.Futures,
		"control":   rec.Controls,
	} {
		if len(entries) > 0 {
			actionsExecuted.Add(ctx, int64(len(entries)),
				metric.WithAttributes(attribute.String(queueAttr, queue)))
		}
	}
}
