// Package reconcile maps the per-subflow local numbering of a multipath
// connection onto one connection-relative axis and attributes reinjections.
package reconcile

import (
	"math"
	"sort"

	"MPSpectra/internal/core/model"
)

// GlobalStart returns the earliest first timestamp over the given streams,
// one per direction file. Streams with fewer than two events are ignored, as are first timestamps
// equal to 0, which the tracer emits as a placeholder. ok is false when no
// stream qualifies.
func GlobalStart(streams ...[]model.Event) (start float64, ok bool) {
	start = math.Inf(1)
	for _, events := range streams {
		if len(events) < 2 {
			continue
		}
		ts := events[0].Timestamp
		if ts == 0 || ts >= start {
			continue
		}
		start = ts
		ok = true
	}
	if !ok {
		return 0, false
	}
	return start, true
}

// ByFlow splits a direction's interleaved events into per-flow streams,
// preserving their order.
func ByFlow(events []model.Event) map[int][]model.Event {
	flows := make(map[int][]model.Event)
	for _, ev := range events {
		flows[ev.Flow] = append(flows[ev.Flow], ev)
	}
	return flows
}

// Seed holds the local value every flow's accumulator starts from, one per
// numbering space.
type Seed struct {
	Map int64
	Ack int64
}

// SeedFor picks, per event kind, the first local value of the flow whose
// first non-zero timestamp is the earliest in the direction.
func SeedFor(events []model.Event) Seed {
	var seed Seed
	for _, kind := range []model.EventKind{model.KindSegmentMap, model.KindAck} {
		first := make(map[int]model.Event)
		for _, ev := range events {
			if ev.Kind != kind {
				continue
			}
			if _, seen := first[ev.Flow]; !seen {
				first[ev.Flow] = ev
			}
		}

		flows := make([]int, 0, len(first))
		for flow := range first {
			flows = append(flows, flow)
		}
		sort.Ints(flows)

		var (
			best  model.Event
			found bool
		)
		for _, flow := range flows {
			ev := first[flow]
			switch {
			case !found:
				best, found = ev, true
			case best.Timestamp == 0 && ev.Timestamp != 0:
				best = ev
			case ev.Timestamp != 0 && ev.Timestamp < best.Timestamp:
				best = ev
			}
		}
		if !found {
			continue
		}
		if kind == model.KindSegmentMap {
			seed.Map = best.Value
		} else {
			seed.Ack = best.Value
		}
	}
	return seed
}

// OffsetState is the running offset of one flow in one numbering space.
type OffsetState struct {
	LastLocal    int64
	LastRelative int64
}

type stateKey struct {
	flow int
	kind model.EventKind
}

// Reconciler chains each flow's local deltas onto its own accumulator. One
// Reconciler serves one connection direction and is not safe for concurrent use.
type Reconciler struct {
	start  float64
	seed   Seed
	states map[stateKey]*OffsetState
}

// New returns a Reconciler placing points on the time axis starting at start.
func New(start float64, seed Seed) *Reconciler {
	return &Reconciler{
		start:  start,
		seed:   seed,
		states: make(map[stateKey]*OffsetState),
	}
}

func (r *Reconciler) state(flow int, kind model.EventKind) *OffsetState {
	key := stateKey{flow: flow, kind: kind}
	st, ok := r.states[key]
	if !ok {
		local := r.seed.Map
		if kind == model.KindAck {
			local = r.seed.Ack
		}
		st = &OffsetState{LastLocal: local}
		r.states[key] = st
	}
	return st
}

// Apply reconciles one event and advances its flow's state.
func (r *Reconciler) Apply(ev model.Event) model.ReconciledPoint {
	st := r.state(ev.Flow, ev.Kind)
	rel := st.LastRelative + model.Unwrap(ev.Value-st.LastLocal)
	st.LastLocal = ev.Value
	st.LastRelative = rel
	return model.ReconciledPoint{
		Time:  ev.Timestamp - r.start,
		Value: rel,
		Flow:  ev.Flow,
	}
}

// Reconcile applies the events of one stream and returns its points, or nil
// when the stream has fewer than two events.
func (r *Reconciler) Reconcile(events []model.Event) []model.ReconciledPoint {
	if len(events) < 2 {
		return nil
	}
	points := make([]model.ReconciledPoint, 0, len(events))
	for _, ev := range events {
		points = append(points, r.Apply(ev))
	}
	return points
}

// State returns a copy of a flow's current state.
func (r *Reconciler) State(flow int, kind model.EventKind) (OffsetState, bool) {
	st, ok := r.states[stateKey{flow: flow, kind: kind}]
	if !ok {
		return OffsetState{}, false
	}
	return *st, true
}
