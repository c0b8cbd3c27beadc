package stats

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/model"
)

// CSV file name prefixes; the pcap name and ".csv" follow.
const (
	ConnectionsCSVPrefix = "mptcp_conns_o2o_"
	SubflowsCSVPrefix    = "mptcp_sfs_o2o_"
)

var (
	connectionFields    = []string{"duration", "start"}
	connectionDirFields = []string{"bytes_mptcptrace", "packets", "reinjected_bytes", "reinjected_packets"}
	subflowFields       = []string{"saddr", "sport", "daddr", "dport", "type", "interface", "wscalesrc", "wscaledst", "interesting", "unknown"}
	subflowDirFields    = []string{"bytes", "packets", "reinjected_packets", "reinjected_orig_packets"}
)

func withDirections(base, perDir []string) []string {
	out := append([]string(nil), base...)
	for d := core.Direction(0); d < core.NumDirections; d++ {
		for _, f := range perDir {
			out = append(out, d.Short()+"_"+f)
		}
	}
	return out
}

// ConnectionHeader returns the header of the connections table.
func ConnectionHeader() []string {
	return withDirections(append([]string{"fname", "conn_id"}, connectionFields...), connectionDirFields)
}

// SubflowHeader returns the header of the subflows table.
func SubflowHeader() []string {
	return withDirections(append([]string{"fname", "conn_id", "flow_id"}, subflowFields...), subflowDirFields)
}

func sortedIDs(conns map[string]*core.Connection) []string {
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func i64(v int64) string { return strconv.FormatInt(v, 10) }

func f64(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// ConnectionRows flattens connections into one row per connection.
func ConnectionRows(pcap string, conns map[string]*core.Connection) [][]string {
	var rows [][]string
	for _, id := range sortedIDs(conns) {
		conn := conns[id]
		row := []string{pcap, id, f64(conn.Duration), f64(conn.Start)}
		for d := core.Direction(0); d < core.NumDirections; d++ {
			row = append(row, i64(conn.Bytes[d]), i64(conn.Packets[d]), i64(conn.ReinjectedBytes[d]), i64(conn.ReinjectedPackets[d]))
		}
		rows = append(rows, row)
	}
	return rows
}

// SubflowRows flattens connections into one row per subflow.
func SubflowRows(pcap string, conns map[string]*core.Connection) [][]string {
	var rows [][]string
	for _, id := range sortedIDs(conns) {
		conn := conns[id]
		for _, flowID := range conn.SubflowIDs() {
			sf := conn.Subflows[flowID]
			row := []string{
				pcap, id, strconv.Itoa(flowID),
				sf.SrcAddr, sf.SrcPort, sf.DstAddr, sf.DstPort, sf.Family, string(sf.Interface),
				sf.WScaleSrc, sf.WScaleDst, strconv.FormatBool(sf.Interesting), strconv.FormatBool(sf.Unknown),
			}
			for d := core.Direction(0); d < core.NumDirections; d++ {
				row = append(row, i64(sf.Bytes[d]), i64(sf.Packets[d]), i64(sf.ReinjectedPackets[d]), i64(sf.ReinjectedOriginPackets[d]))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteTable writes a ';' separated table to path.
func WriteTable(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file '%s': %w", path, err)
	}
	w := csv.NewWriter(file)
	w.Comma = ';'
	if err := w.Write(header); err != nil {
		file.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write csv file '%s': %w", path, err)
	}
	return file.Close()
}

// CSVWriter exports the connections and subflows of a trace as tables.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a writer storing tables in dir.
func NewCSVWriter(dir string) model.Writer {
	return &CSVWriter{dir: dir}
}

// Name returns the writer type.
func (w *CSVWriter) Name() string { return "csv" }

// Write exports result.
func (w *CSVWriter) Write(_ context.Context, result *core.TraceResult) error {
	return ExportCSV(w.dir, result.Pcap, result.Connections)
}

// ExportCSV writes both tables of one trace into dir.
func ExportCSV(dir, pcap string, conns map[string]*core.Connection) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create csv directory: %w", err)
	}
	if err := WriteTable(filepath.Join(dir, ConnectionsCSVPrefix+pcap+".csv"), ConnectionHeader(), ConnectionRows(pcap, conns)); err != nil {
		return err
	}
	return WriteTable(filepath.Join(dir, SubflowsCSVPrefix+pcap+".csv"), SubflowHeader(), SubflowRows(pcap, conns))
}
