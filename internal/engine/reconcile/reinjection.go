package reconcile

import "MPSpectra/internal/core/model"

// Detector attributes reinjected segments of one connection direction. The
// point goes to the series of the flow of first transmission while the
// packet counter moves on the flow the segment arrived on.
type Detector struct {
	conn   *model.Connection
	dir    model.Direction
	series map[int][]model.ReconciledPoint
}

// NewDetector returns a Detector updating conn's counters for dir.
func NewDetector(conn *model.Connection, dir model.Direction) *Detector {
	return &Detector{
		conn:   conn,
		dir:    dir,
		series: make(map[int][]model.ReconciledPoint),
	}
}

// Observe records ev when it is a reinjection. p is ev's reconciled point.
func (d *Detector) Observe(ev model.Event, p model.ReconciledPoint) bool {
	if !ev.Reinjected() || d.conn.Finalized() {
		return false
	}
	d.series[ev.ReinjectedFrom] = append(d.series[ev.ReinjectedFrom], p)

	receiver, _ := d.conn.EnsureSubflow(ev.Flow)
	receiver.ReinjectedPackets[d.dir]++
	d.conn.ReinjectedPackets[d.dir]++
	if n := ev.End - ev.Value; n > 0 {
		d.conn.ReinjectedBytes[d.dir] += n
	}
	return true
}

// Series returns the reinjection points keyed by origin flow.
func (d *Detector) Series() map[int][]model.ReconciledPoint {
	return d.series
}

// Finish stores on each known subflow how many of its segments were
// reinjected elsewhere.
func (d *Detector) Finish() {
	if d.conn.Finalized() {
		return
	}
	for id, sf := range d.conn.Subflows {
		sf.ReinjectedOriginPackets[d.dir] = int64(len(d.series[id]))
	}
}
