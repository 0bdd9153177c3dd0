package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/chat-relay/modules/audit"
	"github.com/example/chat-relay/modules/broker"
	"github.com/example/chat-relay/modules/gateway"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== chat-relay - room presence and message routing ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	brokerModule := broker.NewModule()
	auditModule := audit.NewModule()
	gatewayModule := gateway.NewModule(brokerModule.Broker())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - broker: presence and routing core (EventEmitterModule)
	// - audit: event consumer writing the activity trail
	// - gateway: driving adapter (Fiber WebSocket/REST server)
	app.Register(brokerModule)
	app.Register(auditModule)
	app.Register(gatewayModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET /health                       - Health check")
	log.Println("  GET /api/v1/rooms                 - List active rooms")
	log.Println("  GET /api/v1/rooms/:name/members   - Room roster in join order")
	log.Println("  GET /api/v1/users                 - All claimed display names")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Intents: set_name, join, leave, message, private_message,")
	log.Println("           session_request, session_response, members")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
