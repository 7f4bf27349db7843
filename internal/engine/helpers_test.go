package engine

import (
	"context"
	"fmt"
)

// ticker is a deterministic leaf node advancing by a fixed dt until a
// fixed horizon. It records pre-advance frontiers and advance times so
// tests can assert the exact stepping protocol.
type ticker struct {
	*Base
	dt    float64
	until float64

	t      float64
	pres   []float64
	failAt float64 // advance at this time errors; -1 disables

	// emit, when set, runs after each advance; used to register broker
	// actions from within an advance the way interacting subsystems do
	emit func(k *ticker)
}

func newTicker(name string, dt, until float64) *ticker {
	return newTickerID(name, name, dt, until)
}

func newTickerID(id, name string, dt, until float64) *ticker {
	return Wrap(&ticker{
		Base:   NewBase(name, WithID(id)),
		dt:     dt,
		until:  until,
		failAt: -1,
	})
}

func (k *ticker) AdvanceOneUnit() error {
	if k.failAt >= 0 && k.t == k.failAt {
		return fmt.Errorf("solver diverged at t=%v", k.t)
	}
	k.t += k.dt
	if k.emit != nil {
		k.emit(k)
	}
	return nil
}

func (k *ticker) ProjectedTime() Horizon {
	if k.t >= k.until {
		return Done()
	}
	return At(k.t)
}

func (k *ticker) PreAdvance(frontier float64) error {
	k.pres = append(k.pres, frontier)
	return nil
}

func (k *ticker) Reinitialize() error {
	k.t = 0
	k.pres = nil
	return nil
}

// projOnly projects a time but cannot advance: the canonical
// missing-capability configuration error.
type projOnly struct {
	*Base
	t float64
}

func newProjOnly(name string) *projOnly {
	return Wrap(&projOnly{Base: NewBase(name, WithID(name))})
}

func (p *projOnly) ProjectedTime() Horizon { return At(p.t) }

// memRecorder captures StepRecords in memory.
type memRecorder struct {
	records []StepRecord
}

func (r *memRecorder) RecordStep(_ context.Context, rec StepRecord) error {
	r.records = append(r.records, rec)
	return nil
}
