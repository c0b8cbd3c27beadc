// Package probe ships aggregate connection records to NATS.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"MPSpectra/internal/config"
	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/factory"
	"MPSpectra/internal/model"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const flushTimeout = 5 * time.Second

func init() {
	factory.RegisterWriter("nats", func(def config.WriterDef, _ *config.Config) (model.Writer, error) {
		return NewPublisher(def.NATS)
	})
}

// conn is the part of *nats.Conn used by the publisher.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Publisher is responsible for publishing connection records to a NATS subject.
type Publisher struct {
	nc      conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("mpspectra"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	slog.Info("connected to NATS server", "url", cfg.URL, "subject", cfg.Subject)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Name returns the writer type.
func (p *Publisher) Name() string { return "nats" }

// Write publishes one message per connection and waits for the server to
// acknowledge the batch.
func (p *Publisher) Write(ctx context.Context, result *core.TraceResult) error {
	now := timestamppb.Now()
	for _, id := range result.ConnectionIDs() {
		record, err := ConnectionRecord(result.Pcap, result.Connections[id], now)
		if err != nil {
			return fmt.Errorf("failed to encode connection %s: %w", id, err)
		}
		// Serialize to binary format
		data, err := proto.Marshal(record)
		if err != nil {
			return err
		}
		if err := p.nc.Publish(p.subject, data); err != nil {
			return fmt.Errorf("failed to publish connection %s: %w", id, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	return p.nc.FlushWithContext(ctx)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	slog.Info("draining NATS connection")
	return p.nc.Drain()
}

// ConnectionRecord converts a connection to its wire form.
func ConnectionRecord(pcap string, c *core.Connection, at *timestamppb.Timestamp) (*structpb.Struct, error) {
	subflows := make([]any, 0, len(c.Subflows))
	for _, id := range c.SubflowIDs() {
		sf := c.Subflows[id]
		subflows = append(subflows, map[string]any{
			"id":                     id,
			"saddr":                  sf.SrcAddr,
			"sport":                  sf.SrcPort,
			"daddr":                  sf.DstAddr,
			"dport":                  sf.DstPort,
			"family":                 sf.Family,
			"interface":              string(sf.Interface),
			"interesting":            sf.Interesting,
			"unknown":                sf.Unknown,
			"packets":                perDirection(sf.Packets),
			"bytes":                  perDirection(sf.Bytes),
			"reinjected_packets":     perDirection(sf.ReinjectedPackets),
			"reinjected_origin_pkts": perDirection(sf.ReinjectedOriginPackets),
		})
	}
	return structpb.NewStruct(map[string]any{
		"pcap":               pcap,
		"conn_id":            c.ID,
		"start":              c.Start,
		"duration":           c.Duration,
		"published_at":       at.AsTime().Format(time.RFC3339Nano),
		"bytes":              perDirection(c.Bytes),
		"packets":            perDirection(c.Packets),
		"reinjected_packets": perDirection(c.ReinjectedPackets),
		"reinjected_bytes":   perDirection(c.ReinjectedBytes),
		"subflows":           subflows,
	})
}

func perDirection(v core.PerDirection) map[string]any {
	out := make(map[string]any, core.NumDirections)
	for d := core.Direction(0); d < core.NumDirections; d++ {
		out[d.Short()] = v[d]
	}
	return out
}

// DecodeRecord parses a message published by Publisher.
func DecodeRecord(data []byte) (map[string]any, error) {
	var record structpb.Struct
	if err := proto.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("error unmarshalling protobuf: %w", err)
	}
	return record.AsMap(), nil
}
