package reconcile

import (
	"fmt"
	"sort"

	"MPSpectra/internal/core/model"
)

// Result is the reconstruction of one connection direction.
type Result struct {
	Direction model.Direction
	// Flows, Acks and Reinjected are keyed by 0-based flow index. Reinjected
	// is keyed by the flow of first transmission.
	Flows      map[int][]model.ReconciledPoint
	Acks       map[int][]model.ReconciledPoint
	Reinjected map[int][]model.ReconciledPoint
	// LastMapTime is the relative time of the direction's last SegmentMap.
	LastMapTime float64
	Diagnostics model.Diagnostics
}

// FlowIDs returns the flows that produced a SegmentMap series, in order.
func (r *Result) FlowIDs() []int {
	ids := make([]int, 0, len(r.Flows))
	for id := range r.Flows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Run reconciles every flow of one connection direction and updates conn's
// counters for dir. start is the connection's global start reference.
// Callers skip directions with fewer than two events.
// Events referencing a flow missing from conn create a placeholder subflow.
func Run(conn *model.Connection, dir model.Direction, events []model.Event, start float64, source string) *Result {
	res := &Result{
		Direction: dir,
		Flows:     make(map[int][]model.ReconciledPoint),
		Acks:      make(map[int][]model.ReconciledPoint),
	}

	rec := New(start, SeedFor(events))
	det := NewDetector(conn, dir)
	mutable := !conn.Finalized()

	// Events are applied in file order so every series, including the
	// reinjection series of an origin flow, stays ordered by time.
	for _, ev := range events {
		sf, created := conn.EnsureSubflow(ev.Flow)
		if created {
			res.Diagnostics.Add(source, 0, fmt.Errorf("%w: flow %d of connection %s", model.ErrMissingMetadata, ev.Flow, conn.ID))
		}

		p := rec.Apply(ev)
		if ev.Kind == model.KindAck {
			res.Acks[ev.Flow] = append(res.Acks[ev.Flow], p)
			continue
		}
		res.Flows[ev.Flow] = append(res.Flows[ev.Flow], p)
		det.Observe(ev, p)

		if mutable {
			sf.Packets[dir]++
			conn.Packets[dir]++
			if n := ev.End - ev.Value; n > 0 {
				sf.Bytes[dir] += n
			}
		}
	}

	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == model.KindSegmentMap {
			res.LastMapTime = events[i].Timestamp - start
			break
		}
	}

	det.Finish()
	res.Reinjected = det.Series()

	if mutable {
		conn.Points[dir] = conn.Points[dir][:0]
		for _, flow := range res.FlowIDs() {
			conn.Points[dir] = append(conn.Points[dir], res.Flows[flow]...)
		}
	}
	return res
}
