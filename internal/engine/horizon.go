package engine

import "strconv"

type horizonKind uint8

const (
	horizonInert horizonKind = iota
	horizonAt
	horizonDone
)

// Horizon is a node's projected time: either a plain simulated time
// (evolution still pending), the done sentinel (the node's full time
// span has been reached and it must never advance again), or the inert
// sentinel (the node never advances on its own, e.g. pure containers).
//
// The zero Horizon is inert. Horizons are values; Merge returns a new
// Horizon and never mutates its receiver.
type Horizon struct {
	kind horizonKind
	at   float64
}

// Inert returns the horizon of a node that never advances on its own.
// Inert is the identity of Merge: it contributes nothing to a fold.
func Inert() Horizon { return Horizon{} }

// At returns a numeric horizon: the node has been advanced up to t and
// is still pending.
func At(t float64) Horizon { return Horizon{kind: horizonAt, at: t} }

// Done returns the finished sentinel.
func Done() Horizon { return Horizon{kind: horizonDone} }

// IsInert reports whether h is the inert sentinel.
func (h Horizon) IsInert() bool { return h.kind == horizonInert }

// IsDone reports whether h is the finished sentinel.
func (h Horizon) IsDone() bool { return h.kind == horizonDone }

// Time returns the numeric projected time and true, or (0, false) for
// the inert and done sentinels.
func (h Horizon) Time() (float64, bool) {
	if h.kind != horizonAt {
		return 0, false
	}
	return h.at, true
}

// Merge folds another horizon into h and returns the aggregate.
//
// The fold rules:
//   - inert is the identity: it never changes the aggregate
//   - numeric values combine by min
//   - a numeric value always overrides done: done only survives a fold
//     in which nothing numeric remains
//   - done folded with done stays done
//
// Consequently a fold over children yields done only when every child
// was done or inert and at least one was done, yields inert when every
// child was inert, and otherwise yields the minimum numeric time.
func (h Horizon) Merge(o Horizon) Horizon {
	switch {
	case o.kind == horizonInert:
		return h
	case h.kind == horizonInert:
		return o
	case h.kind == horizonAt && o.kind == horizonAt:
		if o.at < h.at {
			return o
		}
		return h
	case h.kind == horizonAt:
		return h // done never overrides a pending numeric time
	default:
		return o // h is done: numeric wins, done stays done
	}
}

// String renders the horizon for logs and traces.
func (h Horizon) String() string {
	switch h.kind {
	case horizonAt:
		return strconv.FormatFloat(h.at, 'g', -1, 64)
	case horizonDone:
		return "done"
	default:
		return "inert"
	}
}
