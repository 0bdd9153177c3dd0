package broker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/chat-relay/domain/relay"
)

// fakeSink records every delivered event for assertions.
type fakeSink struct {
	events []deliveredEvent
}

type deliveredEvent struct {
	eventType string
	payload   any
}

func (s *fakeSink) Deliver(eventType string, payload any) {
	s.events = append(s.events, deliveredEvent{eventType: eventType, payload: payload})
}

func (s *fakeSink) count(eventType string) int {
	n := 0
	for _, e := range s.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

func (s *fakeSink) last(eventType string) (any, bool) {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].eventType == eventType {
			return s.events[i].payload, true
		}
	}
	return nil, false
}

func (s *fakeSink) lastRoster(t *testing.T) relay.Roster {
	t.Helper()
	payload, ok := s.last(relay.EventActiveUsers)
	if !ok {
		t.Fatal("no active_users event delivered")
	}
	return payload.(relay.Roster)
}

func sameNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestBroker_EndToEndScenario(t *testing.T) {
	b := New(nil)

	s1 := &fakeSink{}
	s2 := &fakeSink{}
	c1 := b.Connect(s1)
	c2 := b.Connect(s2)

	if c1.ID() == c2.ID() {
		t.Fatal("session identifiers must be unique")
	}

	if err := b.SetName(c1, "alice"); err != nil {
		t.Fatalf("SetName(c1, alice) unexpected error: %v", err)
	}
	if err := b.SetName(c2, "alice"); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("SetName(c2, alice) error = %v, want ErrNameTaken", err)
	}
	if err := b.SetName(c2, "bob"); err != nil {
		t.Fatalf("SetName(c2, bob) unexpected error: %v", err)
	}

	if err := b.Join(c1, "General"); err != nil {
		t.Fatalf("Join(c1) unexpected error: %v", err)
	}
	if err := b.Join(c2, "General"); err != nil {
		t.Fatalf("Join(c2) unexpected error: %v", err)
	}

	for i, sink := range []*fakeSink{s1, s2} {
		roster := sink.lastRoster(t)
		if roster.Room != "General" || !sameNames(roster.Users, []string{"alice", "bob"}) {
			t.Errorf("sink %d roster = %+v, want General [alice bob]", i+1, roster)
		}
	}

	if err := b.Send(c1, "General", "hi"); err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}
	for i, sink := range []*fakeSink{s1, s2} {
		payload, ok := sink.last(relay.EventMessage)
		if !ok {
			t.Fatalf("sink %d received no message", i+1)
		}
		msg := payload.(relay.Message)
		if msg.From != "alice" || msg.Text != "hi" || msg.Room != "General" {
			t.Errorf("sink %d message = %+v, want from alice, hi, General", i+1, msg)
		}
		if msg.Timestamp.IsZero() {
			t.Errorf("sink %d message timestamp is zero", i+1)
		}
	}

	b.RequestSession(c1, "bob")
	payload, ok := s2.last(relay.EventSessionRequested)
	if !ok {
		t.Fatal("bob received no session request")
	}
	if req := payload.(relay.SessionRequest); req.From != "alice" {
		t.Errorf("session request from = %q, want alice", req.From)
	}

	b.RespondSession(c2, "alice", true)
	payload, ok = s1.last(relay.EventSessionResponded)
	if !ok {
		t.Fatal("alice received no session response")
	}
	if resp := payload.(relay.SessionResponse); resp.From != "bob" || !resp.Accepted {
		t.Errorf("session response = %+v, want from bob accepted", resp)
	}

	b.Disconnect(c1)
	roster := s2.lastRoster(t)
	if roster.Room != "General" || !sameNames(roster.Users, []string{"bob"}) {
		t.Errorf("roster after disconnect = %+v, want General [bob]", roster)
	}
	if _, found := b.registry.lookup("alice"); found {
		t.Error("alice still resolvable after disconnect")
	}
}

func TestBroker_SendNotInRoom(t *testing.T) {
	b := New(nil)

	sender := &fakeSink{}
	member := &fakeSink{}
	c1 := b.Connect(sender)
	c2 := b.Connect(member)

	mustSetName(t, b, c1, "alice")
	mustSetName(t, b, c2, "bob")
	if err := b.Join(c2, "General"); err != nil {
		t.Fatalf("Join() unexpected error: %v", err)
	}

	if err := b.Send(c1, "General", "hi"); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("Send() error = %v, want ErrNotInRoom", err)
	}
	if member.count(relay.EventMessage) != 0 {
		t.Error("rejected broadcast still delivered to room members")
	}
}

func TestBroker_SendDirect(t *testing.T) {
	b := New(nil)

	s1 := &fakeSink{}
	s2 := &fakeSink{}
	s3 := &fakeSink{}
	c1 := b.Connect(s1)
	c2 := b.Connect(s2)
	c3 := b.Connect(s3)

	mustSetName(t, b, c1, "alice")
	mustSetName(t, b, c2, "bob")
	mustSetName(t, b, c3, "carol")
	for _, c := range []*Conn{c1, c2, c3} {
		if err := b.Join(c, "General"); err != nil {
			t.Fatalf("Join() unexpected error: %v", err)
		}
	}

	if err := b.SendDirect(c1, "bob", "psst"); err != nil {
		t.Fatalf("SendDirect() unexpected error: %v", err)
	}

	payload, ok := s2.last(relay.EventPrivateMessage)
	if !ok {
		t.Fatal("target received no private message")
	}
	pm := payload.(relay.PrivateMessage)
	if pm.From != "alice" || pm.Text != "psst" {
		t.Errorf("private message = %+v, want from alice, psst", pm)
	}

	// Not echoed to the sender or to other room members.
	if s1.count(relay.EventPrivateMessage) != 0 {
		t.Error("private message echoed to sender")
	}
	if s3.count(relay.EventPrivateMessage) != 0 {
		t.Error("private message leaked to a third party")
	}
}

func TestBroker_SendDirectUnknownUser(t *testing.T) {
	b := New(nil)
	c := b.Connect(&fakeSink{})
	mustSetName(t, b, c, "alice")

	if err := b.SendDirect(c, "ghost", "hello?"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("SendDirect() error = %v, want ErrUnknownUser", err)
	}
}

func TestBroker_SessionRequestMissingTargetIsSilent(t *testing.T) {
	b := New(nil)
	sink := &fakeSink{}
	c := b.Connect(sink)
	mustSetName(t, b, c, "alice")

	b.RequestSession(c, "ghost")
	b.RespondSession(c, "ghost", false)

	if len(sink.events) != 0 {
		t.Errorf("stale session traffic produced %d events, want 0", len(sink.events))
	}
}

func TestBroker_JoinSecondRoomAnnouncesBoth(t *testing.T) {
	b := New(nil)

	stay := &fakeSink{}
	move := &fakeSink{}
	c1 := b.Connect(stay)
	c2 := b.Connect(move)

	mustSetName(t, b, c1, "alice")
	mustSetName(t, b, c2, "bob")
	if err := b.Join(c1, "General"); err != nil {
		t.Fatalf("Join() unexpected error: %v", err)
	}
	if err := b.Join(c2, "General"); err != nil {
		t.Fatalf("Join() unexpected error: %v", err)
	}

	before := stay.count(relay.EventActiveUsers)
	if err := b.Join(c2, "Hobbies"); err != nil {
		t.Fatalf("Join(second room) unexpected error: %v", err)
	}

	// Exactly one departure announce for the old room.
	if got := stay.count(relay.EventActiveUsers) - before; got != 1 {
		t.Errorf("old room received %d announces, want 1", got)
	}
	roster := stay.lastRoster(t)
	if !sameNames(roster.Users, []string{"alice"}) {
		t.Errorf("old room roster = %v, want [alice]", roster.Users)
	}

	// Arrival announce for the new room carries only the mover.
	roster = move.lastRoster(t)
	if roster.Room != "Hobbies" || !sameNames(roster.Users, []string{"bob"}) {
		t.Errorf("new room roster = %+v, want Hobbies [bob]", roster)
	}
	if c2.room != "Hobbies" {
		t.Errorf("c2.room = %q, want Hobbies", c2.room)
	}
}

func TestBroker_RejoinStillAnnounces(t *testing.T) {
	b := New(nil)
	sink := &fakeSink{}
	c := b.Connect(sink)
	mustSetName(t, b, c, "alice")

	if err := b.Join(c, "General"); err != nil {
		t.Fatalf("Join() unexpected error: %v", err)
	}
	before := sink.count(relay.EventActiveUsers)

	if err := b.Join(c, "General"); err != nil {
		t.Fatalf("rejoin unexpected error: %v", err)
	}
	if got := sink.count(relay.EventActiveUsers) - before; got != 1 {
		t.Errorf("rejoin produced %d announces, want 1", got)
	}
}

func TestBroker_StatusNotesOnJoinAndLeave(t *testing.T) {
	b := New(nil)

	s1 := &fakeSink{}
	s2 := &fakeSink{}
	c1 := b.Connect(s1)
	c2 := b.Connect(s2)

	mustSetName(t, b, c1, "alice")
	mustSetName(t, b, c2, "bob")
	if err := b.Join(c1, "General"); err != nil {
		t.Fatalf("Join() unexpected error: %v", err)
	}
	if err := b.Join(c2, "General"); err != nil {
		t.Fatalf("Join() unexpected error: %v", err)
	}

	payload, ok := s1.last(relay.EventStatus)
	if !ok {
		t.Fatal("no status note after join")
	}
	if note := payload.(relay.StatusNote); note.Text != "bob has joined the room." {
		t.Errorf("join note = %q, want %q", note.Text, "bob has joined the room.")
	}

	b.Leave(c2, "General")
	payload, ok = s1.last(relay.EventStatus)
	if !ok {
		t.Fatal("no status note after leave")
	}
	if note := payload.(relay.StatusNote); note.Text != "bob has left the room." {
		t.Errorf("leave note = %q, want %q", note.Text, "bob has left the room.")
	}
}

func TestBroker_JoinRequiresName(t *testing.T) {
	b := New(nil)
	c := b.Connect(&fakeSink{})

	if err := b.Join(c, "General"); !errors.Is(err, ErrNotNamed) {
		t.Fatalf("Join() error = %v, want ErrNotNamed", err)
	}
}

func TestBroker_DisconnectCleansUpPartialState(t *testing.T) {
	b := New(nil)

	// Never named, never joined: disconnect must not fail.
	b.Disconnect(b.Connect(&fakeSink{}))

	// Named but roomless.
	c := b.Connect(&fakeSink{})
	mustSetName(t, b, c, "alice")
	b.Disconnect(c)

	if _, ok := b.registry.lookup("alice"); ok {
		t.Error("name still bound after disconnect")
	}

	// Fully set up.
	c = b.Connect(&fakeSink{})
	mustSetName(t, b, c, "alice")
	if err := b.Join(c, "General"); err != nil {
		t.Fatalf("Join() unexpected error: %v", err)
	}
	b.Disconnect(c)

	if _, ok := b.registry.lookup("alice"); ok {
		t.Error("name still bound after disconnect")
	}
	if len(b.Rooms()) != 0 {
		t.Errorf("Rooms() = %v, want empty after last member disconnected", b.Rooms())
	}
}

func TestBroker_ValidationRejectsBadInput(t *testing.T) {
	b := New(nil)
	c := b.Connect(&fakeSink{})

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name:    "empty display name",
			run:     func() error { return b.SetName(c, "") },
			wantErr: ErrNameEmpty,
		},
		{
			name:    "oversized display name",
			run:     func() error { return b.SetName(c, string(make([]byte, MaxNameLength+1))) },
			wantErr: ErrNameTooLong,
		},
		{
			name:    "empty room name",
			run:     func() error { return b.Join(c, "") },
			wantErr: ErrRoomNameEmpty,
		},
		{
			name:    "empty message",
			run:     func() error { return b.Send(c, "General", "") },
			wantErr: ErrMessageEmpty,
		},
		{
			name:    "empty direct message",
			run:     func() error { return b.SendDirect(c, "bob", "") },
			wantErr: ErrMessageEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBroker_Introspection(t *testing.T) {
	b := New(nil)

	c1 := b.Connect(&fakeSink{})
	c2 := b.Connect(&fakeSink{})
	mustSetName(t, b, c1, "alice")
	mustSetName(t, b, c2, "bob")
	if err := b.Join(c1, "General"); err != nil {
		t.Fatalf("Join() unexpected error: %v", err)
	}
	if err := b.Join(c2, "General"); err != nil {
		t.Fatalf("Join() unexpected error: %v", err)
	}

	rooms := b.Rooms()
	if len(rooms) != 1 || rooms[0].Name != "General" || rooms[0].Members != 2 {
		t.Errorf("Rooms() = %+v, want [General:2]", rooms)
	}

	if got := b.RoomMembers("General"); !sameNames(got, []string{"alice", "bob"}) {
		t.Errorf("RoomMembers() = %v, want [alice bob]", got)
	}
	if got := b.RoomMembers("Empty"); got != nil {
		t.Errorf("RoomMembers(absent room) = %v, want nil", got)
	}

	if got := b.Users(); !sameNames(got, []string{"alice", "bob"}) {
		t.Errorf("Users() = %v, want [alice bob]", got)
	}
	if got := b.ConnCount(); got != 2 {
		t.Errorf("ConnCount() = %d, want 2", got)
	}
}

func mustSetName(t *testing.T, b *Broker, c *Conn, name string) {
	t.Helper()
	if err := b.SetName(c, name); err != nil {
		t.Fatalf("SetName(%s) unexpected error: %v", name, err)
	}
}

func BenchmarkBroker_Send(b *testing.B) {
	broker := New(nil)

	const members = 50
	conns := make([]*Conn, members)
	for i := range conns {
		c := broker.Connect(&fakeSink{})
		if err := broker.SetName(c, fmt.Sprintf("user%d", i)); err != nil {
			b.Fatalf("SetName() unexpected error: %v", err)
		}
		if err := broker.Join(c, "General"); err != nil {
			b.Fatalf("Join() unexpected error: %v", err)
		}
		conns[i] = c
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = broker.Send(conns[0], "General", "benchmark message")
	}
}
