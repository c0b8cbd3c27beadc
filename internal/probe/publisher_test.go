package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	core "MPSpectra/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type fakeConn struct {
	subjects []string
	msgs     [][]byte
	flushErr error
	drained  bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.subjects = append(c.subjects, subject)
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *fakeConn) FlushWithContext(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("flush needs a deadline")
	}
	return c.flushErr
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

func sampleResult() *core.TraceResult {
	a := core.NewConnection("2")
	a.Duration = 3.5
	a.Bytes = core.PerDirection{100, 2000}
	a.Subflows[0] = &core.Subflow{ID: 0, SrcAddr: "192.168.1.10", Interface: core.InterfaceWiFi, Interesting: true, Packets: core.PerDirection{4, 1}}
	b := core.NewConnection("5")
	return &core.TraceResult{Pcap: "mptcp_phone", Connections: map[string]*core.Connection{"2": a, "5": b}}
}

func TestPublisherWrite(t *testing.T) {
	fc := &fakeConn{}
	p := &Publisher{nc: fc, subject: "mptcp.connections"}

	require.NoError(t, p.Write(context.Background(), sampleResult()))
	require.Len(t, fc.msgs, 2)
	assert.Equal(t, []string{"mptcp.connections", "mptcp.connections"}, fc.subjects)

	record, err := DecodeRecord(fc.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, "mptcp_phone", record["pcap"])
	assert.Equal(t, "2", record["conn_id"])
	assert.Equal(t, 3.5, record["duration"])
	assert.Equal(t, map[string]any{"c2s": 100.0, "s2c": 2000.0}, record["bytes"])

	subflows, ok := record["subflows"].([]any)
	require.True(t, ok)
	require.Len(t, subflows, 1)
	sf := subflows[0].(map[string]any)
	assert.Equal(t, "wifi", sf["interface"])
	assert.Equal(t, map[string]any{"c2s": 4.0, "s2c": 1.0}, sf["packets"])

	fc.flushErr = errors.New("timeout")
	assert.Error(t, p.Write(context.Background(), sampleResult()))

	require.NoError(t, p.Close())
	assert.True(t, fc.drained)
}

func TestConnectionRecordTimestamp(t *testing.T) {
	at := timestamppb.New(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	record, err := ConnectionRecord("p", core.NewConnection("1"), at)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02T03:04:05Z", record.AsMap()["published_at"])
}

func TestDecodeRecordGarbage(t *testing.T) {
	_, err := DecodeRecord([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}
