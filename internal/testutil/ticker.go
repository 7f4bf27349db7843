// Package testutil provides deterministic node implementations for
// tests and the scenario harness.
package testutil

import (
	"fmt"

	"github.com/entrainlab/entrain/internal/engine"
)

// Ticker is a deterministic leaf node: it advances its projected time
// by a fixed Dt per advance until it reaches Until, then reports done.
// Reinitialize returns it to t=0, so repeated runs from the same
// hierarchy produce identical traces.
type Ticker struct {
	*engine.Base
	dt    float64
	until float64
	t     float64

	probe *Probe
}

// NewTicker creates an isolated ticker node with a deterministic id
// equal to its name.
func NewTicker(name string, dt, until float64) *Ticker {
	if dt <= 0 {
		panic(fmt.Sprintf("testutil: ticker %s needs a positive dt, got %v", name, dt))
	}
	return engine.Wrap(&Ticker{
		Base:  engine.NewBase(name, engine.WithID(name)),
		dt:    dt,
		until: until,
	})
}

// Observe attaches a probe recording this ticker's advances.
func (k *Ticker) Observe(p *Probe) { k.probe = p }

// AdvanceOneUnit moves the ticker forward by one dt.
func (k *Ticker) AdvanceOneUnit() error {
	k.t += k.dt
	if k.probe != nil {
		k.probe.record(k.Name(), k.t)
	}
	return nil
}

// ProjectedTime reports the ticker's own horizon.
func (k *Ticker) ProjectedTime() engine.Horizon {
	if k.t >= k.until {
		return engine.Done()
	}
	return engine.At(k.t)
}

// Reinitialize resets the ticker to its initial condition.
func (k *Ticker) Reinitialize() error {
	k.t = 0
	return nil
}

// Time returns the ticker's current time, for assertions.
func (k *Ticker) Time() float64 { return k.t }

// Probe records advances across any number of tickers in execution
// order.
type Probe struct {
	advances []Advance
}

// Advance is one recorded ticker advance.
type Advance struct {
	Name string
	To   float64
}

// NewProbe creates an empty probe.
func NewProbe() *Probe { return &Probe{} }

func (p *Probe) record(name string, to float64) {
	p.advances = append(p.advances, Advance{Name: name, To: to})
}

// Advances returns the recorded advances in execution order.
func (p *Probe) Advances() []Advance { return p.advances }
