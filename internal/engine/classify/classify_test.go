package classify

import (
	"testing"

	"MPSpectra/internal/core/model"

	"github.com/stretchr/testify/assert"
)

func TestInterface(t *testing.T) {
	tests := []struct {
		saddr, daddr, family string
		want                 model.Interface
	}{
		{"192.168.1.10", "8.8.8.8", "IPv4", model.InterfaceWiFi},
		{"8.8.8.8", "192.168.1.10", "IPv4", model.InterfaceWiFi},
		{"37.185.171.74", "194.78.99.114", "IPv4", model.InterfaceCellular},
		{"2001:db8::1", "2001:db8::2", "IPv6", model.InterfaceUnknown},
		{"not-an-ip", "8.8.8.8", "IPv4", model.InterfaceUnknown},
		{"::ffff:192.168.1.1", "8.8.8.8", "IPv4", model.InterfaceUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Interface(tt.saddr, tt.daddr, tt.family, DefaultWiFiPrefixes), tt.saddr)
	}

	assert.Equal(t, model.InterfaceWiFi, Interface("10.0.0.1", "8.8.8.8", "IPv4", []string{"10."}))
	assert.Equal(t, model.InterfaceCellular, Interface("10.0.0.1", "8.8.8.8", "IPv4", nil))
}

func TestInteresting(t *testing.T) {
	assert.False(t, Interesting(&model.Subflow{Family: "IPv4", SrcAddr: "127.0.0.1", DstAddr: "127.0.0.1"}))
	assert.True(t, Interesting(&model.Subflow{Family: "IPv4", SrcAddr: "127.0.0.1", DstAddr: "8.8.8.8"}))
	assert.True(t, Interesting(&model.Subflow{Family: "IPv6", SrcAddr: "::1", DstAddr: "::1"}))
}

func TestLabel(t *testing.T) {
	loopback := model.NewConnection("1")
	loopback.Subflows[0] = &model.Subflow{ID: 0, Family: "IPv4", SrcAddr: "127.0.0.1", DstAddr: "127.0.0.1", Interface: model.InterfaceUnknown}
	loopback.Subflows[1] = &model.Subflow{ID: 1, Family: "IPv4", SrcAddr: "127.0.0.1", DstAddr: "127.0.0.1", Interface: model.InterfaceUnknown}
	assert.False(t, Label(loopback, DefaultWiFiPrefixes))
	assert.Equal(t, model.InterfaceUnknown, loopback.Subflows[0].Interface)

	mixed := model.NewConnection("2")
	mixed.Subflows[0] = &model.Subflow{ID: 0, Family: "IPv4", SrcAddr: "127.0.0.1", DstAddr: "127.0.0.1", Interface: model.InterfaceUnknown}
	mixed.Subflows[1] = &model.Subflow{ID: 1, Family: "IPv4", SrcAddr: "192.168.0.3", DstAddr: "1.2.3.4", Interface: model.InterfaceUnknown}
	mixed.Subflows[2] = &model.Subflow{ID: 2, Family: "IPv4", SrcAddr: "100.64.0.9", DstAddr: "1.2.3.4", Interface: model.InterfaceUnknown}
	assert.True(t, Label(mixed, DefaultWiFiPrefixes))
	assert.False(t, mixed.Subflows[0].Interesting)
	assert.Equal(t, model.InterfaceWiFi, mixed.Subflows[1].Interface)
	assert.Equal(t, model.InterfaceCellular, mixed.Subflows[2].Interface)
}
