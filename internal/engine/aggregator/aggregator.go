// Package aggregator turns reconciled flows into the plottable series of a
// connection direction.
package aggregator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"MPSpectra/internal/core/model"
	"MPSpectra/internal/engine/reconcile"
)

// Labels returns the names of the series returned by model.Series.Plotted.
func Labels() []string {
	labels := make([]string, 0, 2*model.MaxPlottedFlows)
	for i := 0; i < model.MaxPlottedFlows; i++ {
		labels = append(labels, strconv.Itoa(i))
	}
	for i := 0; i < model.MaxPlottedFlows; i++ {
		labels = append(labels, "rf"+strconv.Itoa(i))
	}
	return labels
}

// Build assembles the series of one connection direction. Flows beyond
// model.MaxPlottedFlows are only counted in Series.Unplotted.
func Build(conn *model.Connection, res *reconcile.Result, source string, interesting bool) *model.Series {
	s := &model.Series{
		ConnectionID: conn.ID,
		Direction:    res.Direction,
		Source:       source,
		Title:        Title(conn, res.Direction),
		Interesting:  interesting,
	}

	for flow, points := range res.Flows {
		if flow >= model.MaxPlottedFlows {
			s.Unplotted += len(points)
			continue
		}
		last := points[len(points)-1]
		closed := make([]model.ReconciledPoint, 0, len(points)+1)
		closed = append(closed, points...)
		closed = append(closed, model.ReconciledPoint{Time: res.LastMapTime, Value: last.Value, Flow: flow})
		s.Flows[flow] = closed
	}
	for origin, points := range res.Reinjected {
		if origin < 0 || origin >= model.MaxPlottedFlows {
			s.Unplotted += len(points)
			continue
		}
		s.Reinjected[origin] = append([]model.ReconciledPoint(nil), points...)
	}
	for flow, points := range res.Acks {
		if flow < model.MaxPlottedFlows {
			s.Acks[flow] = append([]model.ReconciledPoint(nil), points...)
		}
	}
	return s
}

// Title renders the chart title of a connection direction. Endpoints are
// shown as seen by the sender of dir.
func Title(conn *model.Connection, dir model.Direction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "flows:%d ", len(conn.Subflows))
	for _, id := range conn.SubflowIDs() {
		sf := conn.Subflows[id]
		fmt.Fprintf(&b, "\nsf: %d ", id)
		if dir == model.ServerToClient {
			fmt.Fprintf(&b, "(%s %s) %s:%s -> %s:%s", sf.WScaleDst, sf.WScaleSrc, sf.DstAddr, sf.DstPort, sf.SrcAddr, sf.SrcPort)
		} else {
			fmt.Fprintf(&b, "(%s %s) %s:%s -> %s:%s", sf.WScaleSrc, sf.WScaleDst, sf.SrcAddr, sf.SrcPort, sf.DstAddr, sf.DstPort)
		}
		if sf.Interesting && sf.Interface != model.InterfaceUnknown {
			fmt.Fprintf(&b, " [%s]", sf.Interface)
		}
	}
	return b.String()
}

type timelineKey struct {
	conn string
	flow int
}

type timelinePoint struct {
	model.ReconciledPoint
	key   timelineKey
	iface model.Interface
}

// InterfaceTimeline merges the reconciled points of every flow of conns in
// direction dir into one running total per interface. Points are ordered by
// time; each flow contributes the deltas between its own consecutive values.
// Subflows with an unknown interface are left out.
func InterfaceTimeline(conns []*model.Connection, dir model.Direction) map[model.Interface][]model.ReconciledPoint {
	var all []timelinePoint
	for _, conn := range conns {
		for _, p := range conn.Points[dir] {
			sf, ok := conn.Subflows[p.Flow]
			if !ok || sf.Interface == model.InterfaceUnknown {
				continue
			}
			all = append(all, timelinePoint{
				ReconciledPoint: p,
				key:             timelineKey{conn: conn.ID, flow: p.Flow},
				iface:           sf.Interface,
			})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time < all[j].Time })

	out := make(map[model.Interface][]model.ReconciledPoint)
	totals := make(map[model.Interface]int64)
	last := make(map[timelineKey]int64)
	for _, p := range all {
		prev, seen := last[p.key]
		if seen {
			totals[p.iface] += p.Value - prev
		}
		last[p.key] = p.Value
		out[p.iface] = append(out[p.iface], model.ReconciledPoint{Time: p.Time, Value: totals[p.iface], Flow: p.Flow})
	}
	return out
}
