package realtime

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/robertkruk/parent-connect-app/modules/auth"
	"github.com/robertkruk/parent-connect-app/modules/chat"
)

// Heartbeat constants. A connection silent past the timeout is closed on the
// next sweep tick.
const (
	heartbeatSweepInterval = 10 * time.Second
	heartbeatTimeout       = 30 * time.Second
)

// RealtimeModule owns the connection registry, the envelope router and the
// heartbeat sweep goroutine.
type RealtimeModule struct {
	registry    *Registry
	router      *Router
	auth        Authenticator
	store       Store
	cancelSweep context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*RealtimeModule)(nil)
var _ mono.DependentModule = (*RealtimeModule)(nil)
var _ mono.HealthCheckableModule = (*RealtimeModule)(nil)

// NewModule creates a new RealtimeModule.
func NewModule() *RealtimeModule {
	return &RealtimeModule{
		registry: NewRegistry(),
	}
}

// Name returns the module name.
func (m *RealtimeModule) Name() string {
	return "realtime"
}

// Dependencies returns the list of module dependencies.
func (m *RealtimeModule) Dependencies() []string {
	return []string{"auth", "chat"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *RealtimeModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.auth = auth.NewAuthAdapter(container)
	case "chat":
		m.store = chat.NewChatAdapter(container)
	}
}

// Start builds the router and launches the heartbeat sweep.
func (m *RealtimeModule) Start(_ context.Context) error {
	if m.auth == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.store == nil {
		return fmt.Errorf("chat dependency not set")
	}

	m.router = NewRouter(m.registry, m.auth, m.store)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelSweep = cancel
	go m.runSweep(ctx)

	log.Println("[realtime] Module started - heartbeat sweep running")
	return nil
}

// Stop cancels the sweep and closes every live connection.
func (m *RealtimeModule) Stop(_ context.Context) error {
	if m.cancelSweep != nil {
		m.cancelSweep()
	}
	stats := m.registry.Stats()
	m.registry.CloseAll()
	log.Printf("[realtime] Module stopped - %d connections closed", stats.TotalConnections)
	return nil
}

// Health returns the health status with connection counts.
func (m *RealtimeModule) Health(_ context.Context) mono.HealthStatus {
	if m.router == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "router not initialized",
		}
	}

	stats := m.router.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"total_connections":         stats.TotalConnections,
			"authenticated_connections": stats.AuthenticatedConnections,
			"total_users":               stats.TotalUsers,
		},
	}
}

// Router exposes the envelope router for the HTTP layer's WebSocket
// endpoint.
func (m *RealtimeModule) Router() *Router {
	return m.router
}

// runSweep evicts timed-out connections on a fixed interval, independent of
// message processing.
func (m *RealtimeModule) runSweep(ctx context.Context) {
	ticker := time.NewTicker(heartbeatSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.router.Sweep(ctx, now, heartbeatTimeout)
		}
	}
}
