package model

import (
	"sort"
)

// MaxPlottedFlows is the number of subflows that get their own plotted series.
// Subflows with a higher index are counted but never plotted.
const MaxPlottedFlows = 4

// NotReinjected marks a SegmentMap that was seen for the first time.
const NotReinjected = -1

// Direction is one logical direction of a connection.
type Direction int

const (
	ClientToServer Direction = iota
	ServerToClient
	NumDirections
)

// Short returns the abbreviation used in tracer file names.
func (d Direction) Short() string {
	switch d {
	case ClientToServer:
		return "c2s"
	case ServerToClient:
		return "s2c"
	default:
		return "?"
	}
}

func (d Direction) String() string {
	switch d {
	case ClientToServer:
		return "client_to_server"
	case ServerToClient:
		return "server_to_client"
	default:
		return "unknown"
	}
}

// Interface is the access network a subflow was sent over.
type Interface string

const (
	InterfaceUnknown  Interface = "unknown"
	InterfaceWiFi     Interface = "wifi"
	InterfaceCellular Interface = "cellular"
)

// FamilyIPv4 is the address-family tag emitted by the tracer for IPv4 subflows.
const FamilyIPv4 = "IPv4"

// PerDirection holds one counter value per direction.
type PerDirection [NumDirections]int64

// Subflow is one path (4-tuple) of a multipath connection.
type Subflow struct {
	ID        int
	SrcAddr   string
	DstAddr   string
	SrcPort   string
	DstPort   string
	WScaleSrc string
	WScaleDst string
	Family    string

	Interface   Interface
	Interesting bool
	// Unknown is set when the subflow was referenced by trace events but never
	// described by the tracer's metadata block.
	Unknown bool

	Packets                 PerDirection
	Bytes                   PerDirection
	ReinjectedPackets       PerDirection // arrived on this path as a reinjection
	ReinjectedOriginPackets PerDirection // first transmitted on this path, reinjected elsewhere
}

// Connection is one multipath transport session found in a trace.
type Connection struct {
	ID string
	// Start is the connection's global start reference in trace seconds.
	Start    float64
	Duration float64
	Subflows map[int]*Subflow

	Bytes             PerDirection
	Packets           PerDirection
	ReinjectedPackets PerDirection
	ReinjectedBytes   PerDirection

	// Points holds the reconciled SegmentMap points of every flow, per direction.
	Points [NumDirections][]ReconciledPoint

	finalized bool
}

// NewConnection creates an empty connection with the given id.
func NewConnection(id string) *Connection {
	return &Connection{
		ID:       id,
		Subflows: make(map[int]*Subflow),
	}
}

// EnsureSubflow returns the subflow with the given id, creating a placeholder
// with unknown fields when it does not exist yet. The second result reports
// whether a placeholder was created.
func (c *Connection) EnsureSubflow(id int) (*Subflow, bool) {
	if sf, ok := c.Subflows[id]; ok {
		return sf, false
	}
	sf := &Subflow{ID: id, Interface: InterfaceUnknown, Unknown: true}
	c.Subflows[id] = sf
	return sf, true
}

// SubflowIDs returns the subflow ids in ascending order.
func (c *Connection) SubflowIDs() []int {
	ids := make([]int, 0, len(c.Subflows))
	for id := range c.Subflows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Finalize freezes the counters once the owning trace has been fully processed.
func (c *Connection) Finalize() {
	c.finalized = true
}

// Finalized reports whether Finalize was called.
func (c *Connection) Finalized() bool {
	return c.finalized
}

// EventKind discriminates the Event variants.
type EventKind int

const (
	KindAck EventKind = iota
	KindSegmentMap
)

func (k EventKind) String() string {
	if k == KindAck {
		return "ack"
	}
	return "map"
}

// Event is one parsed record from a per-direction trace stream.
type Event struct {
	Kind      EventKind
	Timestamp float64
	// Flow is the 0-based subflow index.
	Flow int
	// Value is the local sequence start (SegmentMap) or the acknowledged value (Ack).
	Value int64
	// End is the end of the mapped range. Unused for acks.
	End int64
	// ReinjectedFrom is the 0-based flow the payload was first sent on, or NotReinjected.
	ReinjectedFrom int
}

// Reinjected reports whether the event is a SegmentMap already seen on another flow.
func (e Event) Reinjected() bool {
	return e.Kind == KindSegmentMap && e.ReinjectedFrom != NotReinjected
}

// ReconciledPoint is one point of a connection-relative series.
type ReconciledPoint struct {
	Time  float64
	Value int64
	Flow  int
}

// Series is the plottable output for one connection direction.
type Series struct {
	ConnectionID string
	Direction    Direction
	// Source is the tracer file the series was reconstructed from.
	Source      string
	Title       string
	Interesting bool

	Flows      [MaxPlottedFlows][]ReconciledPoint
	Reinjected [MaxPlottedFlows][]ReconciledPoint
	Acks       [MaxPlottedFlows][]ReconciledPoint

	// Unplotted counts the events of flows beyond MaxPlottedFlows.
	Unplotted int
}

// Plotted returns the data series in downstream order: one per flow followed
// by one reinjection series per flow of first transmission.
func (s *Series) Plotted() [2 * MaxPlottedFlows][]ReconciledPoint {
	var out [2 * MaxPlottedFlows][]ReconciledPoint
	for i := 0; i < MaxPlottedFlows; i++ {
		out[i] = s.Flows[i]
		out[MaxPlottedFlows+i] = s.Reinjected[i]
	}
	return out
}

// TraceResult is everything reconstructed from one trace file.
type TraceResult struct {
	// Pcap is the trace base name without extension.
	Pcap        string
	Connections map[string]*Connection
	Series      []*Series
	Diagnostics Diagnostics
}

// ConnectionIDs returns the connection ids in lexical order.
func (r *TraceResult) ConnectionIDs() []string {
	ids := make([]string, 0, len(r.Connections))
	for id := range r.Connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
