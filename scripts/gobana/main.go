package main

import (
	"fmt"
	"log"
	"os"
	"sort"

	"MPSpectra/internal/engine/impl/stats"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <connections.gob>")
		os.Exit(1)
	}
	gobFile := os.Args[1]

	conns, err := stats.ReadConnections(gobFile)
	if err != nil {
		log.Fatalf("Unable to read connections: %v", err)
	}

	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := conns[id]
		fmt.Printf("connection %s: start=%.6f duration=%.3fs bytes c2s=%d s2c=%d reinjected c2s=%d s2c=%d\n",
			c.ID, c.Start, c.Duration, c.Bytes[0], c.Bytes[1], c.ReinjectedPackets[0], c.ReinjectedPackets[1])
		for _, sfID := range c.SubflowIDs() {
			sf := c.Subflows[sfID]
			fmt.Printf("  sf %d %s:%s -> %s:%s [%s] packets c2s=%d s2c=%d\n",
				sf.ID, sf.SrcAddr, sf.SrcPort, sf.DstAddr, sf.DstPort, sf.Interface, sf.Packets[0], sf.Packets[1])
		}
	}
	fmt.Printf("Total connections: %d\n", len(conns))
}
