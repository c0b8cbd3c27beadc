package protocol

import (
	"strings"
	"testing"

	"MPSpectra/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetadata = `mptcptrace version 0.0.1
MPTCP connection 0 with id 2
	Subflow 0 with wscale : 6 0 IPv4 sport 59570 dport 443 saddr 192.168.1.10 daddr 194.78.99.114
	Subflow 1 with wscale : 6 7 IPv4 sport 40001 dport 443 saddr 37.185.171.74 daddr 194.78.99.114
	Subflow 2 with wscale : broken
Some trailing line
	Subflow 9 with wscale : 6 0 IPv4 sport 1 dport 2 saddr 1.1.1.1 daddr 2.2.2.2
MPTCP connection 1 with id 5
	Subflow 0 with wscale : 0 0 IPv6 sport 1 dport 2 saddr ::1 daddr ::1
`

func TestParseMetadata(t *testing.T) {
	conns, diags, err := ParseMetadata(strings.NewReader(sampleMetadata))
	require.NoError(t, err)
	require.Len(t, conns, 2)

	c := conns["2"]
	require.NotNil(t, c)
	assert.Equal(t, []int{0, 1}, c.SubflowIDs(), "subflow outside a connection block must be ignored")

	sf := c.Subflows[1]
	assert.Equal(t, "6", sf.WScaleSrc)
	assert.Equal(t, "7", sf.WScaleDst)
	assert.Equal(t, model.FamilyIPv4, sf.Family)
	assert.Equal(t, "40001", sf.SrcPort)
	assert.Equal(t, "443", sf.DstPort)
	assert.Equal(t, "37.185.171.74", sf.SrcAddr)
	assert.Equal(t, "194.78.99.114", sf.DstAddr)
	assert.Equal(t, model.InterfaceUnknown, sf.Interface)
	assert.False(t, sf.Unknown)

	assert.Equal(t, "IPv6", conns["5"].Subflows[0].Family)

	require.Len(t, diags, 1)
	assert.Equal(t, 5, diags[0].Line)
	assert.ErrorIs(t, diags[0].Err, model.ErrMalformedRecord)
}
