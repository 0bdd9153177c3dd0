package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/chat-relay/events"
)

// Module is an EventConsumerModule that writes a structured log trail of
// broker activity. It observes; it never participates in routing.
type Module struct {
	logger *slog.Logger
	seen   atomic.Uint64
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the audit module.
func NewModule() *Module {
	return &Module{
		logger: slog.Default(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "audit"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("audit module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("audit module stopped", "eventsAudited", m.seen.Load())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"events_audited": m.seen.Load(),
		},
	}
}

// RegisterEventConsumers subscribes to the broker's event stream.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.NameClaimedV1, m.handleNameClaimed, m,
	); err != nil {
		return fmt.Errorf("failed to register NameClaimed consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomJoinedV1, m.handleRoomJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomLeftV1, m.handleRoomLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomLeft consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageRoutedV1, m.handleMessageRouted, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageRouted consumer: %w", err)
	}

	m.logger.Info("registered audit consumers: NameClaimed, RoomJoined, RoomLeft, MessageRouted")
	return nil
}

func (m *Module) handleNameClaimed(_ context.Context, event events.NameClaimedEvent, _ *mono.Msg) error {
	m.seen.Add(1)
	m.logger.Info("audit: name claimed",
		"sessionID", event.SessionID,
		"name", event.Name)
	return nil
}

func (m *Module) handleRoomJoined(_ context.Context, event events.RoomJoinedEvent, _ *mono.Msg) error {
	m.seen.Add(1)
	m.logger.Info("audit: room joined",
		"sessionID", event.SessionID,
		"name", event.Name,
		"room", event.Room)
	return nil
}

func (m *Module) handleRoomLeft(_ context.Context, event events.RoomLeftEvent, _ *mono.Msg) error {
	m.seen.Add(1)
	m.logger.Info("audit: room left",
		"sessionID", event.SessionID,
		"name", event.Name,
		"room", event.Room)
	return nil
}

func (m *Module) handleMessageRouted(_ context.Context, event events.MessageRoutedEvent, _ *mono.Msg) error {
	m.seen.Add(1)
	m.logger.Info("audit: message routed",
		"sessionID", event.SessionID,
		"name", event.Name,
		"room", event.Room,
		"recipients", event.Recipients,
		"direct", event.Direct)
	return nil
}
