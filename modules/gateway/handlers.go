package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/example/chat-relay/domain/relay"
	"github.com/example/chat-relay/modules/broker"
)

// guestNameAttempts bounds the retry loop on the rare generated-name
// collision.
const guestNameAttempts = 5

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes() {
	// Health check
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	// REST API v1: read-only presence views
	api := m.app.Group("/api/v1")
	api.Get("/rooms", m.listRooms)
	api.Get("/rooms/:name/members", m.roomMembers)
	api.Get("/users", m.listUsers)
}

// handleWebSocket owns one client connection: it claims a guest name,
// greets the client, then decodes intents until the socket closes. The
// deferred Disconnect is unconditional so partially set up connections are
// cleaned up the same way as fully joined ones.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	sink := newSink(c, m.logger)
	conn := m.broker.Connect(sink)
	defer m.broker.Disconnect(conn)

	name := m.claimGuestName(conn)
	sink.Deliver(relay.EventConnected, relay.Welcome{
		SessionID: conn.ID(),
		Name:      name,
	})

	limiter := newRateLimiter(burstSize, messagesPerSecond)

	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Error("websocket read error", "sessionID", conn.ID(), "error", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			m.sendFailure(sink, relay.ReasonInvalidArgument)
			continue
		}

		m.dispatch(sink, conn, limiter, env)
	}
}

// claimGuestName binds a generated name so the client is addressable
// before it ever sends set_name, mirroring the guest-user flow of the web
// client. Returns the claimed name, or "" if every attempt collided.
func (m *Module) claimGuestName(conn *broker.Conn) string {
	for range guestNameAttempts {
		name := guestName()
		if err := m.broker.SetName(conn, name); err == nil {
			return name
		}
	}
	m.logger.Warn("could not claim a guest name", "sessionID", conn.ID())
	return ""
}

// guestName generates names like user14021234: a time-of-day prefix plus a
// random suffix.
func guestName() string {
	return fmt.Sprintf("user%s%04d", time.Now().Format("1504"), rand.IntN(10000))
}

// dispatch routes one decoded intent to the broker.
func (m *Module) dispatch(sink *wsSink, conn *broker.Conn, limiter *rateLimiter, env Envelope) {
	switch env.Type {
	case relay.IntentSetName:
		var p SetNamePayload
		if !m.decode(sink, env.Payload, &p) {
			return
		}
		if err := m.broker.SetName(conn, p.Name); err != nil {
			m.sendFailure(sink, reasonFor(err))
			return
		}
		sink.Deliver(relay.EventConnected, relay.Welcome{SessionID: conn.ID(), Name: p.Name})

	case relay.IntentJoin:
		var p RoomPayload
		if !m.decode(sink, env.Payload, &p) {
			return
		}
		if err := m.broker.Join(conn, p.Room); err != nil {
			m.sendFailure(sink, reasonFor(err))
		}

	case relay.IntentLeave:
		var p RoomPayload
		if !m.decode(sink, env.Payload, &p) {
			return
		}
		m.broker.Leave(conn, p.Room)

	case relay.IntentMessage:
		if !limiter.allow() {
			m.sendFailure(sink, relay.ReasonRateLimited)
			return
		}
		var p MessagePayload
		if !m.decode(sink, env.Payload, &p) {
			return
		}
		if err := m.broker.Send(conn, p.Room, p.Text); err != nil {
			m.sendFailure(sink, reasonFor(err))
		}

	case relay.IntentPrivateMessage:
		if !limiter.allow() {
			m.sendFailure(sink, relay.ReasonRateLimited)
			return
		}
		var p PrivateMessagePayload
		if !m.decode(sink, env.Payload, &p) {
			return
		}
		if err := m.broker.SendDirect(conn, p.Target, p.Text); err != nil {
			m.sendFailure(sink, reasonFor(err))
		}

	case relay.IntentSessionRequest:
		var p SessionRequestPayload
		if !m.decode(sink, env.Payload, &p) {
			return
		}
		m.broker.RequestSession(conn, p.Target)

	case relay.IntentSessionResponse:
		var p SessionResponsePayload
		if !m.decode(sink, env.Payload, &p) {
			return
		}
		m.broker.RespondSession(conn, p.Target, p.Accepted)

	case relay.IntentMembers:
		// On-demand roster fetch for a refreshing client; delivered to the
		// requester only, unlike the broadcast announce.
		var p RoomPayload
		if !m.decode(sink, env.Payload, &p) {
			return
		}
		sink.Deliver(relay.EventActiveUsers, relay.Roster{
			Room:  p.Room,
			Users: m.broker.RoomMembers(p.Room),
		})

	default:
		m.sendFailure(sink, relay.ReasonInvalidArgument)
	}
}

func (m *Module) decode(sink *wsSink, raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		m.sendFailure(sink, relay.ReasonInvalidArgument)
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		m.sendFailure(sink, relay.ReasonInvalidArgument)
		return false
	}
	return true
}

func (m *Module) sendFailure(sink *wsSink, reason relay.FailureReason) {
	sink.Deliver(relay.EventActionFailed, relay.Failure{Reason: reason})
}

// reasonFor maps broker errors onto the wire-level failure taxonomy.
// Validation errors collapse into invalid_argument.
func reasonFor(err error) relay.FailureReason {
	switch {
	case errors.Is(err, broker.ErrNameTaken):
		return relay.ReasonNameTaken
	case errors.Is(err, broker.ErrUnknownUser):
		return relay.ReasonUnknownUser
	case errors.Is(err, broker.ErrNotInRoom):
		return relay.ReasonNotInRoom
	default:
		return relay.ReasonInvalidArgument
	}
}

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "gateway",
			"named_connections": m.broker.ConnCount(),
		},
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *Module) listRooms(c *fiber.Ctx) error {
	rooms := m.broker.Rooms()
	return c.JSON(RoomListResponse{
		Rooms: rooms,
		Total: len(rooms),
	})
}

// roomMembers handles GET /api/v1/rooms/:name/members.
func (m *Module) roomMembers(c *fiber.Ctx) error {
	room := c.Params("name")
	users := m.broker.RoomMembers(room)
	if users == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Room not found",
		})
	}

	return c.JSON(MembersResponse{
		Room:  room,
		Users: users,
		Total: len(users),
	})
}

// listUsers handles GET /api/v1/users.
func (m *Module) listUsers(c *fiber.Ctx) error {
	users := m.broker.Users()
	return c.JSON(UsersResponse{
		Users: users,
		Total: len(users),
	})
}
