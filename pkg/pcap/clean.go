package pcap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// NoisyPort is the local port whose traffic is dropped by CleanLoopback.
const NoisyPort = 1984

// keep reports whether a packet survives cleaning: neither IPv4
// loopback-to-loopback nor TCP to or from NoisyPort.
func keep(packet gopacket.Packet) bool {
	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		if ip.SrcIP.IsLoopback() && ip.DstIP.IsLoopback() {
			return false
		}
	}
	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		if tcp.SrcPort == NoisyPort || tcp.DstPort == NoisyPort {
			return false
		}
	}
	return true
}

// CleanLoopback rewrites the capture at path in place without its loopback
// noise. It returns the number of packets kept and dropped.
func CleanLoopback(path string) (kept, dropped int, err error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open capture: %w", err)
	}
	defer in.Close()

	reader, err := pcapgo.NewReader(in)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read pcap header of %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".clean-*")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create cleaned capture: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := pcapgo.NewWriter(tmp)
	if err := writer.WriteFileHeader(reader.Snaplen(), reader.LinkType()); err != nil {
		tmp.Close()
		return 0, 0, fmt.Errorf("failed to write pcap header: %w", err)
	}

	for {
		data, ci, err := reader.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			tmp.Close()
			return kept, dropped, fmt.Errorf("failed to read packet %d of %s: %w", kept+dropped+1, path, err)
		}
		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		if !keep(packet) {
			dropped++
			continue
		}
		if err := writer.WritePacket(ci, data); err != nil {
			tmp.Close()
			return kept, dropped, fmt.Errorf("failed to write packet: %w", err)
		}
		kept++
	}

	if err := tmp.Close(); err != nil {
		return kept, dropped, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return kept, dropped, fmt.Errorf("failed to replace capture: %w", err)
	}
	return kept, dropped, nil
}
