package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"MPSpectra/internal/core/model"
)

// Column positions of a mptcptrace sequence record.
const (
	colTimestamp = iota
	colValue
	colFlow
	colType
	colEnd
	colReinjected
)

const (
	typeAck = 0
	typeMap = 1
)

// splitFields splits a record on ',' or ';'.
func splitFields(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(line, ";", ","), ",")
}

// ParseEvent classifies one raw trace record into an Ack or a SegmentMap.
// Flow indexes are 1-based on the wire and 0-based in the returned Event.
func ParseEvent(line string) (model.Event, error) {
	fields := splitFields(line)
	if len(fields) < 4 || len(fields) > 6 {
		return model.Event{}, fmt.Errorf("%w: expected 4 to 6 fields, got %d in %q", model.ErrMalformedRecord, len(fields), line)
	}

	ts, err := strconv.ParseFloat(strings.TrimSpace(fields[colTimestamp]), 64)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: bad timestamp in %q", model.ErrMalformedRecord, line)
	}
	value, err := parseInt(fields[colValue])
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: bad value in %q", model.ErrMalformedRecord, line)
	}
	flow, err := parseInt(fields[colFlow])
	if err != nil || flow < 1 {
		return model.Event{}, fmt.Errorf("%w: bad flow index in %q", model.ErrMalformedRecord, line)
	}
	kind, err := parseInt(fields[colType])
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: bad event type in %q", model.ErrMalformedRecord, line)
	}

	ev := model.Event{
		Timestamp:      ts,
		Flow:           int(flow) - 1,
		Value:          value,
		ReinjectedFrom: model.NotReinjected,
	}

	switch kind {
	case typeAck:
		ev.Kind = model.KindAck
		return ev, nil
	case typeMap:
		ev.Kind = model.KindSegmentMap
	default:
		return model.Event{}, fmt.Errorf("%w: unknown event type %d in %q", model.ErrMalformedRecord, kind, line)
	}

	if len(fields) < 5 {
		return model.Event{}, fmt.Errorf("%w: segment map without range end in %q", model.ErrMalformedRecord, line)
	}
	if ev.End, err = parseInt(fields[colEnd]); err != nil {
		return model.Event{}, fmt.Errorf("%w: bad range end in %q", model.ErrMalformedRecord, line)
	}
	if len(fields) == 6 {
		src, err := parseInt(fields[colReinjected])
		if err != nil {
			return model.Event{}, fmt.Errorf("%w: bad reinjection source in %q", model.ErrMalformedRecord, line)
		}
		switch {
		case src == -1:
		case src >= 1:
			ev.ReinjectedFrom = int(src) - 1
		default:
			return model.Event{}, fmt.Errorf("%w: invalid reinjection source %d in %q", model.ErrMalformedRecord, src, line)
		}
	}
	return ev, nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// ParseEvents reads every record of a sequence file. Lines that cannot be
// classified are skipped and reported in the returned diagnostics.
func ParseEvents(r io.Reader, source string) ([]model.Event, model.Diagnostics, error) {
	var (
		events []model.Event
		diags  model.Diagnostics
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		ev, err := ParseEvent(line)
		if err != nil {
			diags.Add(source, lineNo, err)
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, diags, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return events, diags, nil
}
