package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"MPSpectra/internal/core/model"
)

const (
	connectionPrefix = "MPTCP connection"
	subflowPrefix    = "\tSubflow"
	metadataSource   = "tracer output"
)

// metadataState is the state of the metadata block scanner.
type metadataState int

const (
	stateNoConnection metadataState = iota
	stateInConnection
)

// metadataParser walks the tracer's connection listing line by line.
//
//	MPTCP connection 0 with id 2
//		Subflow 0 with wscale : 6 0 IPv4 sport 59570 dport 443 saddr 37.185.171.74 daddr 194.78.99.114
type metadataParser struct {
	state       metadataState
	current     *model.Connection
	connections map[string]*model.Connection
	diags       model.Diagnostics
}

// ParseMetadata extracts the connections and their subflows from the
// tracer's standard output.
func ParseMetadata(r io.Reader) (map[string]*model.Connection, model.Diagnostics, error) {
	p := &metadataParser{connections: make(map[string]*model.Connection)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		p.step(scanner.Text(), lineNo)
	}
	if err := scanner.Err(); err != nil {
		return p.connections, p.diags, fmt.Errorf("failed to read tracer output: %w", err)
	}
	return p.connections, p.diags, nil
}

func (p *metadataParser) step(line string, lineNo int) {
	switch {
	case strings.HasPrefix(line, connectionPrefix):
		words := strings.Fields(line)
		id := words[len(words)-1]
		conn, ok := p.connections[id]
		if !ok {
			conn = model.NewConnection(id)
			p.connections[id] = conn
		}
		p.current = conn
		p.state = stateInConnection

	case p.state == stateInConnection && strings.HasPrefix(line, subflowPrefix):
		sf, err := parseSubflow(line)
		if err != nil {
			p.diags.Add(metadataSource, lineNo, err)
			return
		}
		p.current.Subflows[sf.ID] = sf

	default:
		p.state = stateNoConnection
		p.current = nil
	}
}

// parseSubflow decodes one "\tSubflow" line.
func parseSubflow(line string) (*model.Subflow, error) {
	words := strings.Fields(line)
	if len(words) < 2 {
		return nil, fmt.Errorf("%w: subflow line too short: %q", model.ErrMalformedRecord, line)
	}
	id, err := strconv.Atoi(words[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad subflow id in %q", model.ErrMalformedRecord, line)
	}

	idxWScale := indexOf(words, "wscale")
	if idxWScale < 0 || idxWScale+4 >= len(words) {
		return nil, fmt.Errorf("%w: missing wscale in %q", model.ErrMalformedRecord, line)
	}
	sf := &model.Subflow{
		ID:        id,
		WScaleSrc: words[idxWScale+2],
		WScaleDst: words[idxWScale+3],
		Family:    words[idxWScale+4],
		Interface: model.InterfaceUnknown,
	}

	idx := indexOf(words, "sport")
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing endpoints in %q", model.ErrMalformedRecord, line)
	}
	for ; idx+1 < len(words); idx += 2 {
		value := words[idx+1]
		switch words[idx] {
		case "sport":
			sf.SrcPort = value
		case "dport":
			sf.DstPort = value
		case "saddr":
			sf.SrcAddr = value
		case "daddr":
			sf.DstAddr = value
		}
	}
	return sf, nil
}

func indexOf(words []string, word string) int {
	for i, w := range words {
		if w == word {
			return i
		}
	}
	return -1
}
