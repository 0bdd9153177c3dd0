package broker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"

	"github.com/example/chat-relay/domain/relay"
	"github.com/example/chat-relay/events"
)

// Broker resolves and routes chat intents: it owns the connection registry
// and room directory and emits presence snapshots on every membership
// change. A single mutex guards both structures jointly because routing
// operations touch both; every operation runs to completion under it.
// Sink delivery is fire-and-forget: the broker never waits on, retries, or
// acknowledges transport-level delivery.
type Broker struct {
	mu        sync.Mutex
	registry  *registry
	directory *directory
	eventBus  mono.EventBus
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Broker with empty registry and directory.
func New(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		registry:  newRegistry(),
		directory: newDirectory(),
		logger:    logger,
		now:       time.Now,
	}
}

// SetEventBus wires the audit event bus. Optional; routing works without it.
func (b *Broker) SetEventBus(bus mono.EventBus) {
	b.eventBus = bus
}

// Connect creates a new session handle delivering through sink.
func (b *Broker) Connect(sink Sink) *Conn {
	c := &Conn{
		id:   uuid.New().String(),
		sink: sink,
	}
	b.logger.Info("connection opened", "sessionID", c.id)
	return c
}

// Disconnect tears down a connection unconditionally: the name binding and
// room membership are removed and the affected room's presence is
// recomputed. Safe for connections that never registered or joined.
func (b *Broker) Disconnect(c *Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	name := c.name
	b.registry.unregister(c)

	room, ok := b.directory.leaveAll(c)
	if ok {
		b.announce(room)
		if name != "" {
			b.status(room, name+" has left the room.")
		}
		b.publishRoomLeft(c, name, room)
	}

	b.logger.Info("connection closed", "sessionID", c.id, "name", name)
}

// SetName binds name to the connection. First-write-wins among live
// connections: a conflict fails with ErrNameTaken and leaves all state
// unchanged. A connection that already holds a name may rebind to a free
// one, releasing its previous claim.
func (b *Broker) SetName(c *Conn, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.registry.register(c, name); err != nil {
		return err
	}

	b.publish(func() error {
		return events.NameClaimedV1.Publish(b.eventBus, events.NameClaimedEvent{
			SessionID: c.id,
			Name:      name,
			Timestamp: b.now(),
		}, nil)
	})

	b.logger.Info("name claimed", "sessionID", c.id, "name", name)
	return nil
}

// Join adds the connection to room, creating it if absent. Joining while a
// member of another room leaves that room first; both rooms get a presence
// announce. Re-joining the current room is a no-op that still announces, so
// a refreshing client receives the current roster.
func (b *Broker) Join(c *Conn, room string) error {
	if err := ValidateRoomName(room); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if c.name == "" {
		return ErrNotNamed
	}

	rejoin := c.room == room
	_, moved := b.directory.join(c, room)

	if moved != "" {
		b.announce(moved)
		b.status(moved, c.name+" has left the room.")
		b.publishRoomLeft(c, c.name, moved)
	}

	b.announce(room)
	if !rejoin {
		b.status(room, c.name+" has joined the room.")
		b.publish(func() error {
			return events.RoomJoinedV1.Publish(b.eventBus, events.RoomJoinedEvent{
				SessionID: c.id,
				Name:      c.name,
				Room:      room,
				Timestamp: b.now(),
			}, nil)
		})
	}

	b.logger.Info("room joined", "sessionID", c.id, "name", c.name, "room", room)
	return nil
}

// Leave removes the connection from the named room. No-op if the
// connection is not a member.
func (b *Broker) Leave(c *Conn, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c.room != room {
		return
	}

	b.directory.leave(c, room)
	b.announce(room)
	if c.name != "" {
		b.status(room, c.name+" has left the room.")
	}
	b.publishRoomLeft(c, c.name, room)

	b.logger.Info("room left", "sessionID", c.id, "name", c.name, "room", room)
}

// Send broadcasts text to every member of room including the sender, tagged
// with the sender's name and a server-assigned timestamp. Fails with
// ErrNotInRoom if the sender is not currently a member, guarding against a
// stale-room race after a server-side forced leave.
func (b *Broker) Send(c *Conn, room, text string) error {
	if err := ValidateMessage(text); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if c.room != room {
		return ErrNotInRoom
	}

	members := b.directory.membersOf(room)
	payload := relay.Message{
		From:      c.name,
		Room:      room,
		Text:      text,
		Timestamp: b.now(),
	}
	for _, member := range members {
		member.sink.Deliver(relay.EventMessage, payload)
	}

	b.publish(func() error {
		return events.MessageRoutedV1.Publish(b.eventBus, events.MessageRoutedEvent{
			SessionID:  c.id,
			Name:       c.name,
			Room:       room,
			Recipients: len(members),
			Timestamp:  b.now(),
		}, nil)
	})

	b.logger.Debug("message routed", "sessionID", c.id, "room", room, "recipients", len(members))
	return nil
}

// SendDirect delivers text to the connection holding targetName only. The
// sender gets no echo; rendering its own bubble is the client's concern.
// Fails with ErrUnknownUser if the name is not bound.
func (b *Broker) SendDirect(c *Conn, targetName, text string) error {
	if err := ValidateMessage(text); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	target, ok := b.registry.lookup(targetName)
	if !ok {
		return ErrUnknownUser
	}

	target.sink.Deliver(relay.EventPrivateMessage, relay.PrivateMessage{
		From:      c.name,
		Text:      text,
		Timestamp: b.now(),
	})

	b.publish(func() error {
		return events.MessageRoutedV1.Publish(b.eventBus, events.MessageRoutedEvent{
			SessionID:  c.id,
			Name:       c.name,
			Recipients: 1,
			Direct:     true,
			Timestamp:  b.now(),
		}, nil)
	})

	b.logger.Debug("private message routed", "sessionID", c.id, "target", targetName)
	return nil
}

// RequestSession asks targetName to open a private chat. A missing target
// is silently dropped: the request is ephemeral and a stale one has no
// observable effect.
func (b *Broker) RequestSession(c *Conn, targetName string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	target, ok := b.registry.lookup(targetName)
	if !ok {
		b.logger.Info("session request dropped, target absent", "sessionID", c.id, "target", targetName)
		return
	}

	target.sink.Deliver(relay.EventSessionRequested, relay.SessionRequest{From: c.name})
}

// RespondSession carries the accept/decline answer back to targetName.
// Silent drop if the target disconnected before the answer arrived.
func (b *Broker) RespondSession(c *Conn, targetName string, accepted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	target, ok := b.registry.lookup(targetName)
	if !ok {
		b.logger.Info("session response dropped, target absent", "sessionID", c.id, "target", targetName)
		return
	}

	target.sink.Deliver(relay.EventSessionResponded, relay.SessionResponse{
		From:     c.name,
		Accepted: accepted,
	})
}

// Announce re-sends the full roster of room to every member, on demand.
func (b *Broker) Announce(room string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.announce(room)
}

// RoomInfo describes an active room for introspection surfaces.
type RoomInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// Rooms returns every non-empty room with its member count, sorted by name.
func (b *Broker) Rooms() []RoomInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := b.directory.roomNames()
	rooms := make([]RoomInfo, 0, len(names))
	for _, name := range names {
		rooms = append(rooms, RoomInfo{
			Name:    name,
			Members: b.directory.memberCount(name),
		})
	}
	return rooms
}

// RoomMembers returns the room's roster in join order, or nil if the room
// has no members (and therefore does not exist).
func (b *Broker) RoomMembers(room string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rosterLocked(room)
}

// Users returns every claimed display name, sorted.
func (b *Broker) Users() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.allNames()
}

// ConnCount returns the number of claimed names, a proxy for live users.
func (b *Broker) ConnCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.registry.names)
}

// announce emits the full ordered display-name roster to every member of
// room. Full resend, no diffing: membership sets are chat-room scale and
// the authoritative snapshot removes a whole class of desync bugs.
// Callers hold b.mu.
func (b *Broker) announce(room string) {
	members := b.directory.membersOf(room)
	if len(members) == 0 {
		return
	}

	payload := relay.Roster{
		Room:  room,
		Users: b.rosterLocked(room),
	}
	for _, member := range members {
		member.sink.Deliver(relay.EventActiveUsers, payload)
	}
}

// status sends a membership change note to every member of room.
// Callers hold b.mu.
func (b *Broker) status(room, text string) {
	payload := relay.StatusNote{
		Room:      room,
		Text:      text,
		Timestamp: b.now(),
	}
	for _, member := range b.directory.membersOf(room) {
		member.sink.Deliver(relay.EventStatus, payload)
	}
}

// rosterLocked returns the display names of room members in join order.
// Callers hold b.mu.
func (b *Broker) rosterLocked(room string) []string {
	members := b.directory.membersOf(room)
	if len(members) == 0 {
		return nil
	}
	names := make([]string, 0, len(members))
	for _, member := range members {
		names = append(names, member.name)
	}
	return names
}

func (b *Broker) publishRoomLeft(c *Conn, name, room string) {
	b.publish(func() error {
		return events.RoomLeftV1.Publish(b.eventBus, events.RoomLeftEvent{
			SessionID: c.id,
			Name:      name,
			Room:      room,
			Timestamp: b.now(),
		}, nil)
	})
}

// publish runs fn if the event bus is wired. Publish failures are logged
// and never affect routing.
func (b *Broker) publish(fn func() error) {
	if b.eventBus == nil {
		return
	}
	if err := fn(); err != nil {
		b.logger.Warn("failed to publish audit event", "error", err)
	}
}
