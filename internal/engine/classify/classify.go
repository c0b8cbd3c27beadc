// Package classify labels subflows with the access network they used.
package classify

import (
	"net"
	"strings"

	"MPSpectra/internal/core/model"
)

// DefaultWiFiPrefixes are the source/destination prefixes treated as Wi-Fi.
var DefaultWiFiPrefixes = []string{"192.168."}

// Interface classifies one subflow endpoint pair.
func Interface(saddr, daddr, family string, wifiPrefixes []string) model.Interface {
	if family != model.FamilyIPv4 || !isIPv4(saddr) || !isIPv4(daddr) {
		return model.InterfaceUnknown
	}
	for _, prefix := range wifiPrefixes {
		if strings.HasPrefix(saddr, prefix) || strings.HasPrefix(daddr, prefix) {
			return model.InterfaceWiFi
		}
	}
	return model.InterfaceCellular
}

func isIPv4(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && ip.To4() != nil && !strings.Contains(addr, ":")
}

// Interesting reports whether a subflow carries traffic worth reporting.
// Only IPv4 loopback-to-loopback subflows are not.
func Interesting(sf *model.Subflow) bool {
	if sf.Family != model.FamilyIPv4 {
		return true
	}
	return !(isLoopback(sf.SrcAddr) && isLoopback(sf.DstAddr))
}

func isLoopback(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

// Label marks every subflow of conn and sets the interface of the
// interesting ones. It reports whether conn has any interesting subflow.
func Label(conn *model.Connection, wifiPrefixes []string) bool {
	interesting := false
	for _, sf := range conn.Subflows {
		sf.Interesting = Interesting(sf)
		if !sf.Interesting {
			continue
		}
		interesting = true
		sf.Interface = Interface(sf.SrcAddr, sf.DstAddr, sf.Family, wifiPrefixes)
	}
	return interesting
}
