package natsadapter

import (
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/civicmap/internal/core/domain"
)

// Subscriber delivers hotspot alerts from a shared NATS connection.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber wraps an existing connection.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// SubscribeHotspotAlerts calls handler for every alert of category, or of
// every category when category is empty. Undecodable messages are dropped.
// The returned func cancels the subscription.
func (s *Subscriber) SubscribeHotspotAlerts(category domain.Category, handler func(alert *domain.HotspotAlert)) (func(), error) {
	subject := HotspotSubjectAll
	if category != "" {
		subject = HotspotSubject(category)
	}

	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		var alert domain.HotspotAlert
		if err := json.Unmarshal(msg.Data, &alert); err != nil {
			slog.Warn("dropping malformed hotspot alert", "subject", msg.Subject, "error", err)
			return
		}
		handler(&alert)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}
