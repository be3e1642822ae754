package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"solanaetl/internal/model"
)

// StreamRetention is how long published items are retained.
const StreamRetention = 7 * 24 * time.Hour

// publisher is the part of JetStream the exporter needs.
type publisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSExporter publishes items to JetStream, one subject per entity type:
// "<prefix>.blocks", "<prefix>.transactions" and so on.
type NATSExporter struct {
	url    string
	prefix string
	logger *zap.Logger

	nc *nats.Conn
	js publisher
}

// ParseNATSOutput splits "nats://host:port/prefix" into a server URL and subject prefix.
func ParseNATSOutput(output string) (serverURL, prefix string, err error) {
	u, err := url.Parse(output)
	if err != nil {
		return "", "", fmt.Errorf("parse nats output: %w", err)
	}
	if u.Scheme != "nats" || u.Host == "" {
		return "", "", fmt.Errorf("invalid nats output %q", output)
	}
	prefix = strings.Trim(u.Path, "/")
	prefix = strings.ReplaceAll(prefix, "/", ".")
	if prefix == "" {
		prefix = "solana"
	}
	u.Path = ""
	return u.String(), prefix, nil
}

// NewNATSExporter builds an exporter for a nats:// output string.
func NewNATSExporter(output string, logger *zap.Logger) (*NATSExporter, error) {
	serverURL, prefix, err := ParseNATSOutput(output)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSExporter{url: serverURL, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject items of type typ are published to.
func (e *NATSExporter) Subject(typ string) string {
	return e.prefix + "." + typ + "s"
}

// StreamName returns the JetStream stream that captures the prefix.
func (e *NATSExporter) StreamName() string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(e.prefix))
}

// Open connects and ensures the stream exists.
func (e *NATSExporter) Open(ctx context.Context) error {
	nc, err := nats.Connect(e.url,
		nats.Name("solanaetl"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return fmt.Errorf("create jetstream context: %w", err)
	}

	if err := e.ensureStream(ctx, js); err != nil {
		nc.Close()
		return fmt.Errorf("ensure stream %s: %w", e.StreamName(), err)
	}

	e.nc, e.js = nc, js
	e.logger.Info("nats exporter ready", zap.String("url", e.url), zap.String("stream", e.StreamName()))
	return nil
}

func (e *NATSExporter) ensureStream(ctx context.Context, js jetstream.JetStream) error {
	if _, err := js.Stream(ctx, e.StreamName()); err == nil {
		return nil
	}
	e.logger.Info("creating jetstream stream", zap.String("stream", e.StreamName()))
	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        e.StreamName(),
		Description: "Solana ETL items",
		Subjects:    []string{e.prefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	return err
}

// ExportItems publishes every item, carrying its item_id as a message header.
func (e *NATSExporter) ExportItems(ctx context.Context, items []model.Item) error {
	if e.js == nil {
		return fmt.Errorf("nats exporter is not open")
	}
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal item: %w", err)
		}
		msg := nats.NewMsg(e.Subject(item.Type()))
		msg.Data = data
		var opts []jetstream.PublishOpt
		if id, ok := item["item_id"].(string); ok && id != "" {
			msg.Header.Set("item_id", id)
			opts = append(opts, jetstream.WithMsgID(id))
		}
		if _, err := e.js.PublishMsg(ctx, msg, opts...); err != nil {
			return fmt.Errorf("publish %s: %w", msg.Subject, err)
		}
	}
	return nil
}

// Close drains the connection.
func (e *NATSExporter) Close() error {
	if e.nc == nil {
		return nil
	}
	err := e.nc.Drain()
	e.nc, e.js = nil, nil
	return err
}
