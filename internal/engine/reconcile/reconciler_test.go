package reconcile

import (
	"testing"

	"MPSpectra/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(ts float64, flow int, value int64) model.Event {
	return model.Event{
		Kind:           model.KindSegmentMap,
		Timestamp:      ts,
		Flow:           flow,
		Value:          value,
		End:            value + 10,
		ReinjectedFrom: model.NotReinjected,
	}
}

func ack(ts float64, flow int, value int64) model.Event {
	return model.Event{Kind: model.KindAck, Timestamp: ts, Flow: flow, Value: value, ReinjectedFrom: model.NotReinjected}
}

func values(points []model.ReconciledPoint) []int64 {
	out := make([]int64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func times(points []model.ReconciledPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Time
	}
	return out
}

func TestGlobalStart(t *testing.T) {
	start, ok := GlobalStart(
		[]model.Event{seg(0, 0, 1), seg(0.5, 0, 2)},   // placeholder timestamp
		[]model.Event{seg(1.5, 1, 1), seg(2, 1, 2)},   // qualifies
		[]model.Event{seg(0.2, 2, 1)},                 // single event
		[]model.Event{seg(1.0, 3, 1), seg(3.0, 3, 2)}, // earliest
	)
	require.True(t, ok)
	assert.Equal(t, 1.0, start)

	_, ok = GlobalStart([]model.Event{seg(0.2, 0, 1)}, nil)
	assert.False(t, ok)
}

func TestTwoFlowScenario(t *testing.T) {
	events := []model.Event{
		seg(1.0, 0, 100),
		seg(1.5, 1, 50),
		seg(2.0, 0, 150),
		seg(2.5, 1, 80),
		seg(3.0, 0, 200),
	}
	flows := ByFlow(events)
	start, ok := GlobalStart(flows[0], flows[1])
	require.True(t, ok)
	assert.Equal(t, 1.0, start)

	seed := SeedFor(events)
	assert.Equal(t, int64(100), seed.Map)

	rec := New(start, seed)
	p0 := rec.Reconcile(flows[0])
	p1 := rec.Reconcile(flows[1])

	assert.Equal(t, []int64{0, 50, 100}, values(p0))
	assert.Equal(t, []float64{0, 1, 2}, times(p0))
	assert.Equal(t, []int64{-50, -20}, values(p1))
	assert.Equal(t, []float64{0.5, 1.5}, times(p1))

	st0, ok := rec.State(0, model.KindSegmentMap)
	require.True(t, ok)
	assert.Equal(t, OffsetState{LastLocal: 200, LastRelative: 100}, st0)
	st1, ok := rec.State(1, model.KindSegmentMap)
	require.True(t, ok)
	assert.Equal(t, OffsetState{LastLocal: 80, LastRelative: -20}, st1)
}

func TestInterleavingDoesNotShareState(t *testing.T) {
	flow0 := []model.Event{seg(1, 0, 100), seg(2, 0, 150), seg(3, 0, 200)}
	flow1 := []model.Event{seg(1.5, 1, 50), seg(2.5, 1, 80)}
	seed := Seed{Map: 100}

	sequential := New(1, seed)
	want0 := sequential.Reconcile(flow0)
	want1 := sequential.Reconcile(flow1)

	interleaved := New(1, seed)
	var got0, got1 []model.ReconciledPoint
	for _, ev := range []model.Event{flow0[0], flow1[0], flow0[1], flow1[1], flow0[2]} {
		p := interleaved.Apply(ev)
		if ev.Flow == 0 {
			got0 = append(got0, p)
		} else {
			got1 = append(got1, p)
		}
	}
	assert.Equal(t, want0, got0)
	assert.Equal(t, want1, got1)
}

func TestMonotonicChaining(t *testing.T) {
	locals := []int64{1000, 1400, 1400, 2900, 5000}
	events := make([]model.Event, len(locals))
	for i, v := range locals {
		events[i] = seg(float64(i+1), 0, v)
	}
	points := New(1, Seed{Map: 1000}).Reconcile(events)
	require.Len(t, points, len(locals))
	for i := 1; i < len(points); i++ {
		assert.Equal(t, locals[i]-locals[i-1], points[i].Value-points[i-1].Value)
		assert.GreaterOrEqual(t, points[i].Value, points[i-1].Value)
	}
}

func TestWraparound(t *testing.T) {
	events := []model.Event{seg(1, 0, 3_000_000_100), seg(2, 0, 100)}
	points := New(1, Seed{Map: 3_000_000_100}).Reconcile(events)
	require.Len(t, points, 2)
	assert.Equal(t, int64(1_294_967_296), points[1].Value)
}

func TestReconcileEmptySeries(t *testing.T) {
	rec := New(0, Seed{})
	assert.Nil(t, rec.Reconcile(nil))
	assert.Nil(t, rec.Reconcile([]model.Event{seg(1, 0, 1)}))
	_, ok := rec.State(0, model.KindSegmentMap)
	assert.False(t, ok)
}

func TestSeedForSkipsPlaceholderTimestamps(t *testing.T) {
	events := []model.Event{
		seg(0, 0, 7),
		ack(0.7, 1, 900),
		seg(2, 1, 40),
		ack(0.9, 0, 800),
		seg(3, 0, 8),
		seg(4, 2, 11),
	}
	seed := SeedFor(events)
	assert.Equal(t, int64(40), seed.Map)
	assert.Equal(t, int64(900), seed.Ack)
}

func TestAcksUseTheirOwnNumberingSpace(t *testing.T) {
	rec := New(1, Seed{Map: 100, Ack: 5000})
	pm := rec.Apply(seg(1, 0, 150))
	pa := rec.Apply(ack(1.1, 0, 5200))
	assert.Equal(t, int64(50), pm.Value)
	assert.Equal(t, int64(200), pa.Value)
}
