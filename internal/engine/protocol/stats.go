package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"MPSpectra/internal/core/model"
)

// Stats is the content of a tracer stats file for one connection.
type Stats struct {
	// Bytes per direction, corrected for sequence number wraparound.
	Bytes       model.PerDirection
	HasBytes    bool
	Duration    float64
	HasDuration bool
}

// ParseStats reads a stats_<id>.csv file.
//
//	firstSeq;<c2s first>;<s2c first>
//	lastAck;<s2c last ack>;<c2s last ack>
//	conTime;<seconds>
func ParseStats(r io.Reader) (Stats, error) {
	var (
		st        Stats
		firstSeqs []string
		lastAcks  []string
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Split(line, ";")
		switch {
		case strings.Contains(line, "firstSeq") && len(fields) >= 3:
			firstSeqs = fields[len(fields)-2:]
		case strings.Contains(line, "lastAck") && len(fields) >= 3:
			lastAcks = fields[len(fields)-2:]
		case strings.Contains(line, "conTime") && len(fields) >= 2:
			d, err := strconv.ParseFloat(strings.TrimSpace(fields[len(fields)-1]), 64)
			if err != nil {
				return st, fmt.Errorf("%w: bad conTime %q", model.ErrMalformedRecord, line)
			}
			st.Duration = d
			st.HasDuration = true
		}
	}
	if err := scanner.Err(); err != nil {
		return st, fmt.Errorf("failed to read stats: %w", err)
	}

	if firstSeqs != nil && lastAcks != nil {
		values := make([]int64, 4)
		for i, s := range append(append([]string{}, firstSeqs...), lastAcks...) {
			v, err := parseInt(s)
			if err != nil {
				return st, fmt.Errorf("%w: bad sequence value %q", model.ErrMalformedRecord, s)
			}
			values[i] = v
		}
		st.Bytes[model.ClientToServer] = model.Unwrap(values[3] - values[0])
		st.Bytes[model.ServerToClient] = model.Unwrap(values[2] - values[1])
		st.HasBytes = true
	}
	return st, nil
}

// Apply copies the stats into the connection's aggregate counters.
func (s Stats) Apply(conn *model.Connection) {
	if s.HasBytes {
		conn.Bytes = s.Bytes
	}
	if s.HasDuration {
		conn.Duration = s.Duration
	}
}
