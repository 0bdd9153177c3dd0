package broker

import (
	"context"
	"log/slog"

	"github.com/go-monolith/mono"

	"github.com/example/chat-relay/events"
)

// Module wraps the Broker for the mono application framework.
type Module struct {
	broker *Broker
	logger *slog.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the broker module.
func NewModule() *Module {
	logger := slog.Default()
	return &Module{
		broker: New(logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broker"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.broker.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.NameClaimedV1.ToBase(),
		events.RoomJoinedV1.ToBase(),
		events.RoomLeftV1.ToBase(),
		events.MessageRoutedV1.ToBase(),
	}
}

// Start initializes the module. The broker holds no external resources.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("broker module started")
	return nil
}

// Stop shuts down the module. Connection teardown is driven by the
// transport closing its sockets, not by the broker.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("broker module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"named_connections": m.broker.ConnCount(),
			"active_rooms":      len(m.broker.Rooms()),
		},
	}
}

// Broker returns the broker for the transport layer to use.
func (m *Module) Broker() *Broker {
	return m.broker
}
