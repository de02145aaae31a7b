package realtime

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Transport is the write side of one client socket. *websocket.Conn
// satisfies it; tests substitute fakes.
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Connection is one live socket. A connection starts unauthenticated and
// becomes bound to a user after a successful auth frame.
type Connection struct {
	ID            string
	UserID        string
	Authenticated bool
	LastHeartbeat time.Time
	transport     Transport
}

// Eviction reports a connection removed during a registry operation.
// WasLast is true when the removal emptied the owning user's connection set.
type Eviction struct {
	ConnectionID string
	UserID       string
	WasLast      bool
}

// Stats is a point-in-time snapshot of the registry.
type Stats struct {
	TotalConnections         int `json:"totalConnections"`
	AuthenticatedConnections int `json:"authenticatedConnections"`
	TotalUsers               int `json:"totalUsers"`
}

// Registry owns the live connection table and the user to connections index.
// It holds no protocol logic; the router decides what eviction reports mean.
// All writes happen under one mutex, which also serializes socket writes so
// a transport is never written from two goroutines at once.
type Registry struct {
	mu        sync.RWMutex
	conns     map[string]*Connection
	userConns map[string]map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]*Connection),
		userConns: make(map[string]map[string]struct{}),
	}
}

// Admit stores a new unauthenticated connection and returns its ID.
func (r *Registry) Admit(transport Transport) string {
	conn := &Connection{
		ID:            uuid.New().String(),
		LastHeartbeat: time.Now(),
		transport:     transport,
	}

	r.mu.Lock()
	r.conns[conn.ID] = conn
	r.mu.Unlock()

	return conn.ID
}

// Authenticate binds a connection to a user and refreshes its heartbeat.
// Re-authenticating with the same user is idempotent; re-authenticating
// with a different user moves the connection out of the prior user's set.
// Returns false when the connection no longer exists.
func (r *Registry) Authenticate(connID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return false
	}

	if conn.Authenticated && conn.UserID != userID {
		r.removeFromUserSet(conn.UserID, connID)
	}

	conn.UserID = userID
	conn.Authenticated = true
	conn.LastHeartbeat = time.Now()

	if r.userConns[userID] == nil {
		r.userConns[userID] = make(map[string]struct{})
	}
	r.userConns[userID][connID] = struct{}{}

	return true
}

// TouchHeartbeat refreshes a connection's heartbeat timestamp. Unknown
// connection IDs are ignored.
func (r *Registry) TouchHeartbeat(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[connID]; ok {
		conn.LastHeartbeat = time.Now()
	}
}

// Evict removes a connection. It returns the owning user ID (empty when the
// connection was unauthenticated or unknown) and whether the removal emptied
// that user's connection set.
func (r *Registry) Evict(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictLocked(connID)
}

func (r *Registry) evictLocked(connID string) (string, bool) {
	conn, ok := r.conns[connID]
	if !ok {
		return "", false
	}

	delete(r.conns, connID)

	if !conn.Authenticated {
		return "", false
	}
	return conn.UserID, r.removeFromUserSet(conn.UserID, connID)
}

// removeFromUserSet reports true when the set became empty. Caller holds the
// write lock.
func (r *Registry) removeFromUserSet(userID, connID string) bool {
	set, ok := r.userConns[userID]
	if !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.userConns, userID)
		return true
	}
	return false
}

// Lookup returns a copy of the connection's public state.
func (r *Registry) Lookup(connID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return Connection{}, false
	}
	return *conn, true
}

// Connected reports whether a user has at least one live connection.
func (r *Registry) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns[userID]) > 0
}

// Send writes a payload to one connection. A write failure closes and
// removes the connection; the returned eviction (if any) tells the caller
// what was lost.
func (r *Registry) Send(connID string, data []byte) *Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendLocked(connID, data)
}

func (r *Registry) sendLocked(connID string, data []byte) *Eviction {
	conn, ok := r.conns[connID]
	if !ok {
		return nil
	}

	if err := conn.transport.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = conn.transport.Close()
		userID, wasLast := r.evictLocked(connID)
		return &Eviction{ConnectionID: connID, UserID: userID, WasLast: wasLast}
	}
	return nil
}

// Broadcast writes a payload to every connection matching the predicate.
// Per-connection write failures evict that connection and never abort the
// rest of the fan-out.
func (r *Registry) Broadcast(data []byte, match func(Connection) bool) []Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evictions []Eviction
	for _, connID := range r.matchingLocked(match) {
		if ev := r.sendLocked(connID, data); ev != nil {
			evictions = append(evictions, *ev)
		}
	}
	return evictions
}

// matchingLocked snapshots matching connection IDs so eviction during the
// send loop cannot invalidate iteration.
func (r *Registry) matchingLocked(match func(Connection) bool) []string {
	ids := make([]string, 0, len(r.conns))
	for id, conn := range r.conns {
		if match(*conn) {
			ids = append(ids, id)
		}
	}
	return ids
}

// SendToUser writes a payload to every connection of one user. A user with
// no connections is a no-op.
func (r *Registry) SendToUser(userID string, data []byte) []Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.userConns[userID]))
	for connID := range r.userConns[userID] {
		ids = append(ids, connID)
	}

	var evictions []Eviction
	for _, connID := range ids {
		if ev := r.sendLocked(connID, data); ev != nil {
			evictions = append(evictions, *ev)
		}
	}
	return evictions
}

// SweepTimeouts closes and evicts every connection silent for longer than
// the timeout.
func (r *Registry) SweepTimeouts(now time.Time, timeout time.Duration) []Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []string
	for id, conn := range r.conns {
		if now.Sub(conn.LastHeartbeat) > timeout {
			stale = append(stale, id)
		}
	}

	var evictions []Eviction
	for _, connID := range stale {
		conn := r.conns[connID]
		_ = conn.transport.Close()
		userID, wasLast := r.evictLocked(connID)
		evictions = append(evictions, Eviction{ConnectionID: connID, UserID: userID, WasLast: wasLast})
	}
	return evictions
}

// CloseAll closes every transport and clears the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, conn := range r.conns {
		_ = conn.transport.Close()
	}
	r.conns = make(map[string]*Connection)
	r.userConns = make(map[string]map[string]struct{})
}

// Stats returns a snapshot of the registry's size.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	authenticated := 0
	for _, conn := range r.conns {
		if conn.Authenticated {
			authenticated++
		}
	}
	return Stats{
		TotalConnections:         len(r.conns),
		AuthenticatedConnections: authenticated,
		TotalUsers:               len(r.userConns),
	}
}
