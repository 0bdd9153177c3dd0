package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// wsSink delivers broker events over a websocket connection. Deliveries
// arrive from whichever connection's goroutine triggered the routing, and
// the owning read loop replies on the same socket, so writes are serialized
// with a mutex. A failed write is logged and dropped; one recipient's
// transport failure never affects delivery to the rest.
type wsSink struct {
	conn   *websocket.Conn
	logger *slog.Logger
	mu     sync.Mutex
}

func newSink(conn *websocket.Conn, logger *slog.Logger) *wsSink {
	return &wsSink{
		conn:   conn,
		logger: logger,
	}
}

// Deliver implements broker.Sink.
func (s *wsSink) Deliver(eventType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal event payload", "event", eventType, "error", err)
		return
	}

	frame, err := json.Marshal(Envelope{Type: eventType, Payload: body})
	if err != nil {
		s.logger.Error("failed to marshal event frame", "event", eventType, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Error("event delivery failed", "event", eventType, "error", err)
	}
}
