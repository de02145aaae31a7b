package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/robertkruk/parent-connect-app/modules/api"
	"github.com/robertkruk/parent-connect-app/modules/auth"
	"github.com/robertkruk/parent-connect-app/modules/chat"
	"github.com/robertkruk/parent-connect-app/modules/realtime"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== ParentConnect - Parent Messaging Backend ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	authModule := auth.NewModule()
	chatModule := chat.NewModule()
	realtimeModule := realtime.NewModule()
	apiModule := api.NewModule()

	// The realtime router is not exposed via ServiceContainer, so the API
	// module resolves it lazily once the realtime module has started.
	apiModule.SetRouterProvider(realtimeModule.Router)

	// Order: service providers first, then their dependents.
	// - auth: accounts + JWT (ServiceProviderModule)
	// - chat: SQLite message store (ServiceProviderModule)
	// - realtime: connection registry + envelope router (depends on auth, chat)
	// - api: Fiber HTTP/WebSocket server (depends on auth, chat, realtime)
	app.Register(authModule)
	app.Register(chatModule)
	app.Register(realtimeModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

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
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "parentconnect.db"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Printf("  - Storage: SQLite via GORM (%s)", dbPath)
	log.Println("  - Auth: JWT bearer tokens (bcrypt password hashing)")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  POST   /api/auth/register                        - Create account")
	log.Println("  POST   /api/auth/login                           - Log in")
	log.Println("  POST   /api/auth/refresh                         - Refresh tokens")
	log.Println("  GET    /api/users/me                             - Profile + children")
	log.Println("  GET    /api/users/presence                       - Own presence")
	log.Println("  GET    /api/users/online                         - Online users")
	log.Println("  POST   /api/children                             - Add a child")
	log.Println("  GET    /api/children                             - List children")
	log.Println("  GET    /api/chats                                - Chats with unread counts")
	log.Println("  GET    /api/chats/:id                            - Chat details")
	log.Println("  GET    /api/chats/:id/messages                   - Message history")
	log.Println("  POST   /api/chats/:id/messages                   - Send a message")
	log.Println("  POST   /api/chats/:id/messages/:messageId/read   - Mark read")
	log.Println("  GET    /api/messages/:id/status                  - Delivery status")
	log.Println("  GET    /api/messages/:id/receipts                - Receipts")
	log.Println("  GET    /api/websocket/stats                      - Connection stats")
	log.Println("  GET    /health                                   - Health check")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Envelope types: auth, message, typing, receipt, heartbeat")
	log.Println("  Authenticate with: {\"type\":\"auth\",\"data\":{\"token\":\"<jwt>\"}}")
	log.Println("")
	if os.Getenv("SEED") == "true" {
		log.Println("Demo accounts (password: password123):")
		log.Println("  sarah.johnson@email.com, michael.chen@email.com,")
		log.Println("  emily.rodriguez@email.com, david.thompson@email.com,")
		log.Println("  lisa.wang@email.com")
		log.Println("")
	}
	log.Println("Press Ctrl+C to shutdown gracefully")
}
