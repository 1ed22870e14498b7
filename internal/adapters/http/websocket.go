package http

import (
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to a category feed.
type wsMessage struct {
	Action   string `json:"action"`   // "subscribe" | "unsubscribe"
	Category string `json:"category"` // "" = all categories
}

// wsAlert is pushed to clients for every hotspot alert.
type wsAlert struct {
	Type  string               `json:"type"`
	Alert *domain.HotspotAlert `json:"alert"`
}

// feedKey turns a client message into the subscription key it refers to.
// The empty category stands for every category.
func feedKey(m wsMessage) (domain.Category, error) {
	if m.Category == "" || m.Category == "*" {
		return "", nil
	}
	return domain.ParseCategory(m.Category)
}

// WebSocketHandler returns a handler that relays hotspot alerts to map
// clients. Every client starts subscribed to all categories and can narrow
// or widen the feed with {"action":"subscribe","category":"POTHOLE"}.
func WebSocketHandler(feed HotspotFeed) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		log := slog.Default().With("remote_addr", remoteAddr)
		log.Info("ws client connected")

		var mu sync.Mutex
		subs := make(map[domain.Category]func())

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(alert *domain.HotspotAlert) {
			_ = writeJSON(wsAlert{Type: "hotspot", Alert: alert})
		}

		unsubscribe, err := feed.SubscribeHotspotAlerts("", relay)
		if err != nil {
			log.Error("ws default subscribe failed", "error", err)
			return
		}
		subs[""] = unsubscribe

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			category, err := feedKey(m)
			if err != nil {
				_ = writeJSON(map[string]string{"error": err.Error()})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[category]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "category": string(category)})
					continue
				}
				unsub, err := feed.SubscribeHotspotAlerts(category, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed"})
					log.Warn("ws subscribe failed", "category", category, "error", err)
					continue
				}
				subs[category] = unsub
				_ = writeJSON(map[string]string{"status": "subscribed", "category": string(category)})

			case "unsubscribe":
				if unsub, exists := subs[category]; exists {
					unsub()
					delete(subs, category)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "category": string(category)})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + string(category)})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, unsub := range subs {
			unsub()
		}
		log.Info("ws client disconnected")
	}
}
