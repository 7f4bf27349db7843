package engine

import (
	"container/heap"
	"fmt"
	"sort"
)

// LogEntry records one executed broker action: its id, the simulated
// time it ran at, and the value its thunk returned.
type LogEntry struct {
	ID     string
	Time   float64
	Result any
}

// ActionOption configures a broker entry at registration.
type ActionOption func(*actionMeta)

type actionMeta struct {
	id    string
	owner string
}

// WithActionID pins the action id instead of generating one.
func WithActionID(id string) ActionOption {
	return func(m *actionMeta) { m.id = id }
}

// OwnedBy tags the entry with the id of the node that registered it.
// Ownership decides which broker an in-flight entry travels with when
// its hierarchy is split by a detach.
func OwnedBy(nodeID string) ActionOption {
	return func(m *actionMeta) { m.owner = nodeID }
}

type immediateItem struct {
	actionMeta
	thunk    Thunk
	priority int
	seq      int64
}

// immediateHeap orders by priority descending, insertion seq ascending.
type immediateHeap []immediateItem

func (h immediateHeap) Len() int { return len(h) }
func (h immediateHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h immediateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *immediateHeap) Push(x any) { *h = append(*h, x.(immediateItem)) }
func (h *immediateHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = immediateItem{} // release thunk closures to the GC
	*h = old[:n-1]
	return it
}

type futureItem struct {
	actionMeta
	thunk Thunk
	at    float64
	seq   int64
}

type controlItem struct {
	actionMeta
	thunk Thunk
}

// Opera is the interaction broker shared by one connected hierarchy.
// It holds three collections of pending actions plus an append-only
// execution log per collection:
//
//   - immediates: executed within the current step, highest priority
//     first, equal priorities in insertion order
//   - futures: executed once the frontier reaches their scheduled
//     time, ascending time, ties in insertion order
//   - controls: executed unconditionally on every step, in insertion
//     order
//
// All mutation happens on the single execution thread of the owning
// scheduler; Opera carries no locking of its own.
type Opera struct {
	gen IDGenerator
	seq int64

	immediates immediateHeap
	futures    []futureItem // sorted by (at, seq)
	controls   []controlItem

	immediateLog []LogEntry
	futureLog    []LogEntry
	controlLog   []LogEntry
}

func newOpera() *Opera {
	return &Opera{gen: UUIDv7Generator{}}
}

// SetIDGenerator replaces the generator used for action ids when the
// caller registers an entry without WithActionID.
func (o *Opera) SetIDGenerator(g IDGenerator) { o.gen = g }

func (o *Opera) nextSeq() int64 {
	o.seq++
	return o.seq
}

func (o *Opera) meta(opts []ActionOption) actionMeta {
	var m actionMeta
	for _, opt := range opts {
		opt(&m)
	}
	if m.id == "" {
		m.id = o.gen.Generate()
	}
	return m
}

// EnqueueImmediate registers an action to run within the current step.
// Higher priorities run first; equal priorities run in insertion
// order. Returns the action id.
func (o *Opera) EnqueueImmediate(t Thunk, priority int, opts ...ActionOption) string {
	it := immediateItem{
		actionMeta: o.meta(opts),
		thunk:      t,
		priority:   priority,
		seq:        o.nextSeq(),
	}
	heap.Push(&o.immediates, it)
	return it.id
}

// EnqueueFuture registers an action to run once the frontier reaches
// the simulated time at. Returns the action id.
func (o *Opera) EnqueueFuture(t Thunk, at float64, opts ...ActionOption) string {
	it := futureItem{
		actionMeta: o.meta(opts),
		thunk:      t,
		at:         at,
		seq:        o.nextSeq(),
	}
	// insert after every entry at the same time: seq order within a
	// time is insertion order
	i := sort.Search(len(o.futures), func(i int) bool { return o.futures[i].at > at })
	o.futures = append(o.futures, futureItem{})
	copy(o.futures[i+1:], o.futures[i:])
	o.futures[i] = it
	return it.id
}

// AddControl registers a recurring action executed on every step.
// Returns the action id.
func (o *Opera) AddControl(t Thunk, opts ...ActionOption) string {
	it := controlItem{actionMeta: o.meta(opts), thunk: t}
	o.controls = append(o.controls, it)
	return it.id
}

// DrainImmediates pops and executes immediates until none remain, each
// logged at now. An immediate enqueued by another immediate's thunk is
// executed within the same drain, not deferred. Execution errors abort
// the drain; the failing entry has been consumed, the rest stay
// queued.
func (o *Opera) DrainImmediates(root Node, now float64) error {
	for o.immediates.Len() > 0 {
		it := heap.Pop(&o.immediates).(immediateItem)
		res, err := it.thunk.call(o, root, it.id)
		if err != nil {
			return fmt.Errorf("immediate action %s: %w", it.id, err)
		}
		o.immediateLog = append(o.immediateLog, LogEntry{ID: it.id, Time: now, Result: res})
	}
	return nil
}

// RunDueFutures executes every future with scheduled time <= now, in
// ascending time order, logging each at now. It returns the horizon of
// the next still-pending future (inert when none remain); the
// scheduler folds that into the frontier so a scheduled future can
// hold the frontier back even when every node has finished.
func (o *Opera) RunDueFutures(root Node, now float64) (Horizon, error) {
	for len(o.futures) > 0 && o.futures[0].at <= now {
		it := o.futures[0]
		o.futures[0] = futureItem{}
		o.futures = o.futures[1:]
		res, err := it.thunk.call(o, root, it.id)
		if err != nil {
			return o.NextFuture(), fmt.Errorf("future action %s: %w", it.id, err)
		}
		o.futureLog = append(o.futureLog, LogEntry{ID: it.id, Time: now, Result: res})
	}
	return o.NextFuture(), nil
}

// RunControls executes every control present at the start of the call,
// in insertion order, logging each at now. Controls added during the
// run start firing on the next step.
func (o *Opera) RunControls(root Node, now float64) error {
	n := len(o.controls)
	for i := 0; i < n; i++ {
		it := o.controls[i]
		res, err := it.thunk.call(o, root, it.id)
		if err != nil {
			return fmt.Errorf("control action %s: %w", it.id, err)
		}
		o.controlLog = append(o.controlLog, LogEntry{ID: it.id, Time: now, Result: res})
	}
	return nil
}

// NextFuture returns the horizon of the earliest pending future, or
// inert when none is pending.
func (o *Opera) NextFuture() Horizon {
	if len(o.futures) == 0 {
		return Inert()
	}
	return At(o.futures[0].at)
}

// PendingImmediates returns the number of queued immediate actions.
func (o *Opera) PendingImmediates() int { return o.immediates.Len() }

// PendingFutures returns the number of pending future actions.
func (o *Opera) PendingFutures() int { return len(o.futures) }

// ControlCount returns the number of registered controls.
func (o *Opera) ControlCount() int { return len(o.controls) }

// ImmediateLog returns the executed-immediate log in execution order.
// Do not modify the returned slice.
func (o *Opera) ImmediateLog() []LogEntry { return o.immediateLog }

// FutureLog returns the executed-future log in execution order.
// Do not modify the returned slice.
func (o *Opera) FutureLog() []LogEntry { return o.futureLog }

// ControlLog returns the executed-control log in execution order.
// Do not modify the returned slice.
func (o *Opera) ControlLog() []LogEntry { return o.controlLog }

// absorb moves every pending entry and log record of src into o,
// re-stamping insertion seqs in src's original insertion order. Used
// by Attach when two components merge; src is left empty.
func (o *Opera) absorb(src *Opera) {
	imms := append([]immediateItem(nil), src.immediates...)
	sort.Slice(imms, func(i, j int) bool { return imms[i].seq < imms[j].seq })
	futs := append([]futureItem(nil), src.futures...)
	sort.Slice(futs, func(i, j int) bool { return futs[i].seq < futs[j].seq })

	for _, it := range imms {
		it.seq = o.nextSeq()
		heap.Push(&o.immediates, it)
	}
	for _, it := range futs {
		o.EnqueueFuture(it.thunk, it.at, WithActionID(it.id), OwnedBy(it.owner))
	}
	o.controls = append(o.controls, src.controls...)

	o.immediateLog = append(o.immediateLog, src.immediateLog...)
	o.futureLog = append(o.futureLog, src.futureLog...)
	o.controlLog = append(o.controlLog, src.controlLog...)

	*src = Opera{gen: src.gen}
}

// split removes and returns the pending entries owned by nodes for
// which owns reports true. Ownerless entries stay behind. The returned
// broker starts with empty logs: history belongs to the component the
// actions were executed in. Used by Detach.
func (o *Opera) split(owns func(ownerID string) bool) *Opera {
	out := newOpera()
	out.gen = o.gen

	var keepImm immediateHeap
	imms := append([]immediateItem(nil), o.immediates...)
	sort.Slice(imms, func(i, j int) bool { return imms[i].seq < imms[j].seq })
	for _, it := range imms {
		if it.owner != "" && owns(it.owner) {
			it.seq = out.nextSeq()
			keepImm = append(keepImm, it) // already in seq order
		}
	}
	o.immediates = o.immediates[:0]
	for _, it := range imms {
		if !(it.owner != "" && owns(it.owner)) {
			heap.Push(&o.immediates, it)
		}
	}
	heap.Init(&keepImm)
	out.immediates = keepImm

	var stay []futureItem
	for _, it := range o.futures {
		if it.owner != "" && owns(it.owner) {
			out.EnqueueFuture(it.thunk, it.at, WithActionID(it.id), OwnedBy(it.owner))
		} else {
			stay = append(stay, it)
		}
	}
	o.futures = stay

	var stayCtl []controlItem
	for _, it := range o.controls {
		if it.owner != "" && owns(it.owner) {
			out.controls = append(out.controls, it)
		} else {
			stayCtl = append(stayCtl, it)
		}
	}
	o.controls = stayCtl

	return out
}
