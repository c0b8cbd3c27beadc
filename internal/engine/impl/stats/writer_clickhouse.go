package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"MPSpectra/internal/config"
	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS mptcp_connections (
    Timestamp              DateTime,
    Pcap                   String,
    ConnID                 String,
    Start                  Float64,
    Duration               Float64,
    Subflows               UInt32,
    WiFiSubflows           UInt32,
    CellularSubflows       UInt32,
    C2SBytes               Int64,
    S2CBytes               Int64,
    C2SPackets             Int64,
    S2CPackets             Int64,
    C2SReinjectedPackets   Int64,
    S2CReinjectedPackets   Int64,
    C2SReinjectedBytes     Int64,
    S2CReinjectedBytes     Int64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Pcap, ConnID, Timestamp);
`

// batch is the part of driver.Batch used by the writer.
type batch interface {
	Append(v ...any) error
	Send() error
}

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
	// prepare opens an insert batch; replaced in tests.
	prepare func(ctx context.Context) (batch, error)
}

// NewClickHouseWriter connects, ensures the table exists and returns the writer.
func NewClickHouseWriter(ctx context.Context, cfg config.ClickHouseConfig) (model.Writer, error) {
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(ctx, createTableStatement); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	slog.Info("connected to ClickHouse and ensured table exists", "host", cfg.Host, "database", cfg.Database)

	w := &ClickHouseWriter{conn: conn}
	w.prepare = func(ctx context.Context) (batch, error) {
		return w.conn.PrepareBatch(ctx, "INSERT INTO mptcp_connections")
	}
	return w, nil
}

func connect(ctx context.Context, cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Name returns the writer type.
func (w *ClickHouseWriter) Name() string { return "clickhouse" }

// Close closes the connection.
func (w *ClickHouseWriter) Close() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

// Write inserts one row per connection into the mptcp_connections table.
func (w *ClickHouseWriter) Write(ctx context.Context, result *core.TraceResult) error {
	if len(result.Connections) == 0 {
		return nil // Nothing to write
	}

	b, err := w.prepare(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	now := time.Now().UTC()
	for _, id := range result.ConnectionIDs() {
		if err := b.Append(connectionRow(now, result.Pcap, result.Connections[id])...); err != nil {
			return fmt.Errorf("failed to append connection %s to batch: %w", id, err)
		}
	}

	if err := b.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	slog.Info("wrote connections to ClickHouse", "pcap", result.Pcap, "connections", len(result.Connections))
	return nil
}

// connectionRow returns the column values of one connection, in table order.
func connectionRow(ts time.Time, pcap string, conn *core.Connection) []any {
	var wifi, cell uint32
	for _, sf := range conn.Subflows {
		switch sf.Interface {
		case core.InterfaceWiFi:
			wifi++
		case core.InterfaceCellular:
			cell++
		}
	}
	c2s, s2c := core.ClientToServer, core.ServerToClient
	return []any{
		ts,
		pcap,
		conn.ID,
		conn.Start,
		conn.Duration,
		uint32(len(conn.Subflows)),
		wifi,
		cell,
		conn.Bytes[c2s],
		conn.Bytes[s2c],
		conn.Packets[c2s],
		conn.Packets[s2c],
		conn.ReinjectedPackets[c2s],
		conn.ReinjectedPackets[s2c],
		conn.ReinjectedBytes[c2s],
		conn.ReinjectedBytes[s2c],
	}
}
