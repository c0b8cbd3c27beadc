package reconcile

import (
	"testing"

	"MPSpectra/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConn(flows ...int) *model.Connection {
	conn := model.NewConnection("2")
	for _, id := range flows {
		conn.Subflows[id] = &model.Subflow{ID: id, Family: model.FamilyIPv4}
	}
	return conn
}

func TestDetectorAttributionAsymmetry(t *testing.T) {
	conn := newConn(0, 1)
	det := NewDetector(conn, model.ServerToClient)

	ev := seg(2, 1, 500)
	ev.ReinjectedFrom = 0
	p := model.ReconciledPoint{Time: 1, Value: 400, Flow: 1}

	require.True(t, det.Observe(ev, p))
	det.Finish()

	assert.Equal(t, []model.ReconciledPoint{p}, det.Series()[0])
	assert.Empty(t, det.Series()[1])

	assert.Equal(t, int64(1), conn.Subflows[1].ReinjectedPackets[model.ServerToClient])
	assert.Zero(t, conn.Subflows[0].ReinjectedPackets[model.ServerToClient])
	assert.Equal(t, int64(1), conn.Subflows[0].ReinjectedOriginPackets[model.ServerToClient])
	assert.Zero(t, conn.Subflows[1].ReinjectedOriginPackets[model.ServerToClient])

	assert.Equal(t, int64(1), conn.ReinjectedPackets[model.ServerToClient])
	assert.Equal(t, int64(10), conn.ReinjectedBytes[model.ServerToClient])
	assert.Zero(t, conn.ReinjectedPackets[model.ClientToServer])
}

func TestDetectorIgnoresSentinel(t *testing.T) {
	conn := newConn(0)
	det := NewDetector(conn, model.ClientToServer)

	assert.False(t, det.Observe(seg(1, 0, 10), model.ReconciledPoint{}))
	assert.False(t, det.Observe(ack(1, 0, 10), model.ReconciledPoint{}))
	det.Finish()

	assert.Empty(t, det.Series())
	assert.Equal(t, model.PerDirection{}, conn.ReinjectedPackets)
	assert.Equal(t, model.PerDirection{}, conn.Subflows[0].ReinjectedPackets)
	assert.Equal(t, model.PerDirection{}, conn.Subflows[0].ReinjectedOriginPackets)
}

func TestDetectorFrozenAfterFinalize(t *testing.T) {
	conn := newConn(0, 1)
	conn.Finalize()
	det := NewDetector(conn, model.ClientToServer)

	ev := seg(2, 1, 500)
	ev.ReinjectedFrom = 0
	assert.False(t, det.Observe(ev, model.ReconciledPoint{}))
	assert.Zero(t, conn.ReinjectedPackets[model.ClientToServer])
}
