package natsadapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/civicmap/internal/core/domain"
)

const (
	// HotspotStream holds hotspot alerts for late consumers.
	HotspotStream = "CIVIC_HOTSPOTS"
	// HotspotSubjectPrefix is followed by the lower-cased category.
	HotspotSubjectPrefix = "civic.hotspots."
	// HotspotSubjectAll matches every hotspot alert.
	HotspotSubjectAll = HotspotSubjectPrefix + ">"
)

// HotspotSubject returns the subject alerts for category are published on.
func HotspotSubject(category domain.Category) string {
	return HotspotSubjectPrefix + strings.ToLower(string(category))
}

// Publisher implements ports.AlertPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      HotspotStream,
		Subjects:  []string{HotspotSubjectAll},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishHotspotAlert publishes alert on its category subject, using the
// alert ID as the JetStream message ID.
func (p *Publisher) PublishHotspotAlert(ctx context.Context, alert *domain.HotspotAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	_, err = p.js.Publish(HotspotSubject(alert.Hotspot.Category), data,
		nats.Context(ctx), nats.MsgId(alert.ID))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
