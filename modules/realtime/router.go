package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	domain "github.com/robertkruk/parent-connect-app/domain/chat"
	user "github.com/robertkruk/parent-connect-app/domain/user"
)

// Client-facing error strings. Clients key off these exact values.
const (
	errInvalidFormat    = "Invalid message format"
	errNotAuthenticated = "Not authenticated"
	errAuthFailed       = "Authentication failed"
	errInvalidUser      = "Invalid user"
	errSendFailed       = "Failed to send message"
)

// Authenticator resolves bearer tokens to users for auth frames.
type Authenticator interface {
	VerifyToken(ctx context.Context, token string) (string, error)
	GetUser(ctx context.Context, userID string) (*user.User, error)
}

// Store is the persistence surface the router drives. The chat module's
// adapter satisfies it; router tests substitute a fake.
type Store interface {
	CreateMessage(ctx context.Context, chatID, senderID, content string, msgType domain.MessageType, attachments []string, replyTo string) (*domain.Message, error)
	UpdateMessageStatus(ctx context.Context, messageID string, status domain.DeliveryStatus) error
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)
	RecordReceipt(ctx context.Context, messageID, userID string, receiptType domain.ReceiptType) error
	UpdatePresence(ctx context.Context, userID string, status domain.PresenceStatus, socketID string) error
	OnlineUsers(ctx context.Context) ([]string, error)
	ChatParticipants(ctx context.Context, chatID string) ([]string, error)
	EnqueueMessage(ctx context.Context, userID, messageID string) error
	QueuedMessages(ctx context.Context, userID string) ([]*domain.Message, error)
	RemoveQueuedMessage(ctx context.Context, userID, messageID string) error
}

// RouterStats extends registry stats with the size of the typing set.
type RouterStats struct {
	Stats
	TypingUsers int `json:"typingUsers"`
}

// Router interprets inbound envelopes per connection: it enforces the
// authentication precondition, mutates the store, and drives registry
// fan-out. Connections move Unauthenticated to Authenticated once and never
// back until disconnect.
type Router struct {
	registry *Registry
	auth     Authenticator
	store    Store

	typingMu sync.Mutex
	typing   map[string]map[string]struct{} // chatID -> set of userIDs
}

// NewRouter creates a Router over a registry and its collaborators.
func NewRouter(registry *Registry, auth Authenticator, store Store) *Router {
	return &Router{
		registry: registry,
		auth:     auth,
		store:    store,
		typing:   make(map[string]map[string]struct{}),
	}
}

// Registry exposes the connection registry for transport wiring.
func (rt *Router) Registry() *Registry {
	return rt.registry
}

// HandleConnect admits a transport and sends the connection ack. The
// returned ID keys all later envelope and disconnect calls.
func (rt *Router) HandleConnect(transport Transport) string {
	connID := rt.registry.Admit(transport)
	rt.registry.Send(connID, encode(newEnvelope(EnvelopeAuth, ConnectedPayload{
		Status:       "connected",
		ConnectionID: connID,
	})))
	return connID
}

// HandleEnvelope processes one inbound frame. Envelopes on a connection are
// handled in arrival order by the caller's read loop.
func (rt *Router) HandleEnvelope(ctx context.Context, connID string, raw []byte) {
	var env Envelope
	if err := decodeEnvelope(raw, &env); err != nil {
		rt.sendError(connID, errInvalidFormat)
		return
	}

	conn, ok := rt.registry.Lookup(connID)
	if !ok {
		return
	}

	switch env.Type {
	case EnvelopeAuth:
		rt.handleAuth(ctx, connID, env)
	case EnvelopeMessage:
		if !conn.Authenticated {
			rt.sendError(connID, errNotAuthenticated)
			return
		}
		rt.handleMessage(ctx, conn, env, raw)
	case EnvelopeTyping:
		if !conn.Authenticated {
			rt.sendError(connID, errNotAuthenticated)
			return
		}
		rt.handleTyping(conn, env, raw)
	case EnvelopeReceipt:
		if !conn.Authenticated {
			rt.sendError(connID, errNotAuthenticated)
			return
		}
		rt.handleReceipt(ctx, conn, env)
	case EnvelopeHeartbeat:
		rt.registry.TouchHeartbeat(connID)
	default:
		rt.sendError(connID, "Unknown message type: "+string(env.Type))
	}
}

// HandleDisconnect evicts a closed connection and, when it was the user's
// last one, transitions the user offline.
func (rt *Router) HandleDisconnect(ctx context.Context, connID string) {
	userID, wasLast := rt.registry.Evict(connID)
	if userID == "" {
		return
	}

	rt.clearTyping(userID)

	if wasLast {
		rt.markOffline(ctx, userID)
	}
}

// Stats returns registry stats plus the current typing set size.
func (rt *Router) Stats() RouterStats {
	rt.typingMu.Lock()
	typingUsers := 0
	for _, users := range rt.typing {
		typingUsers += len(users)
	}
	rt.typingMu.Unlock()

	return RouterStats{
		Stats:       rt.registry.Stats(),
		TypingUsers: typingUsers,
	}
}

func (rt *Router) handleAuth(ctx context.Context, connID string, env Envelope) {
	var payload AuthPayload
	if err := decodePayload(env.Data, &payload); err != nil {
		rt.sendError(connID, errInvalidFormat)
		return
	}

	userID, err := rt.auth.VerifyToken(ctx, payload.Token)
	if err != nil {
		rt.sendError(connID, errAuthFailed)
		return
	}

	authedUser, err := rt.auth.GetUser(ctx, userID)
	if err != nil {
		rt.sendError(connID, errInvalidUser)
		return
	}

	if !rt.registry.Authenticate(connID, userID) {
		return
	}

	if err := rt.store.UpdatePresence(ctx, userID, domain.PresenceOnline, connID); err != nil {
		log.Printf("[realtime] Failed to persist presence for %s: %v", userID, err)
	}

	rt.broadcastPresence(ctx, userID, domain.PresenceOnline)

	rt.registry.Send(connID, encode(newEnvelope(EnvelopeAuth, AuthenticatedPayload{
		Status: "authenticated",
		User:   UserSummary{ID: authedUser.ID, Name: authedUser.Name},
	})))

	rt.sendOnlineSnapshot(ctx, connID, userID)
	rt.drainQueue(ctx, connID, userID)

	log.Printf("[realtime] User %s authenticated on connection %s", userID, connID)
}

// sendOnlineSnapshot tells a newly authenticated connection who is already
// online.
func (rt *Router) sendOnlineSnapshot(ctx context.Context, connID, userID string) {
	online, err := rt.store.OnlineUsers(ctx)
	if err != nil {
		log.Printf("[realtime] Failed to load online users: %v", err)
		return
	}
	for _, otherID := range online {
		if otherID == userID {
			continue
		}
		rt.registry.Send(connID, encode(newEnvelope(EnvelopePresence, PresencePayload{
			UserID: otherID,
			Status: string(domain.PresenceOnline),
		})))
	}
}

// drainQueue delivers messages queued while the user was offline, oldest
// first, removing each entry after a successful send.
func (rt *Router) drainQueue(ctx context.Context, connID, userID string) {
	queued, err := rt.store.QueuedMessages(ctx, userID)
	if err != nil {
		log.Printf("[realtime] Failed to load queued messages for %s: %v", userID, err)
		return
	}

	for _, msg := range queued {
		env := newEnvelope(EnvelopeMessage, MessagePayload{
			ID:          msg.ID,
			ChatID:      msg.ChatID,
			Content:     msg.Content,
			SenderID:    msg.SenderID,
			MessageType: string(msg.Type),
			Attachments: msg.Attachments,
			ReplyTo:     msg.ReplyTo,
			Timestamp:   msg.CreatedAt.UnixMilli(),
		})
		if ev := rt.registry.Send(connID, encode(env)); ev != nil {
			rt.handleEvictions(ctx, []Eviction{*ev})
			return
		}
		if err := rt.store.RemoveQueuedMessage(ctx, userID, msg.ID); err != nil {
			log.Printf("[realtime] Failed to dequeue message %s for %s: %v", msg.ID, userID, err)
		}
	}
}

func (rt *Router) handleMessage(ctx context.Context, conn Connection, env Envelope, _ []byte) {
	var payload MessagePayload
	if err := decodePayload(env.Data, &payload); err != nil {
		rt.sendError(conn.ID, errInvalidFormat)
		return
	}

	msgType := domain.MessageType(payload.MessageType)
	if payload.MessageType == "" {
		msgType = domain.MessageTypeText
	}

	msg, err := rt.store.CreateMessage(ctx, payload.ChatID, conn.UserID, payload.Content, msgType, payload.Attachments, payload.ReplyTo)
	if err != nil {
		rt.sendError(conn.ID, errSendFailed)
		return
	}

	outbound := newEnvelope(EnvelopeMessage, MessagePayload{
		ID:          msg.ID,
		ChatID:      msg.ChatID,
		Content:     msg.Content,
		SenderID:    msg.SenderID,
		MessageType: string(msg.Type),
		Attachments: msg.Attachments,
		ReplyTo:     msg.ReplyTo,
		Timestamp:   time.Now().UnixMilli(),
	})

	evictions := rt.registry.Broadcast(encode(outbound), rt.resolveRecipients(msg.ChatID, conn.UserID))
	rt.handleEvictions(ctx, evictions)

	if err := rt.store.UpdateMessageStatus(ctx, msg.ID, domain.StatusSent); err != nil {
		log.Printf("[realtime] Failed to mark message %s sent: %v", msg.ID, err)
	}

	rt.enqueueForOffline(ctx, msg)
}

// resolveRecipients decides who a chat frame fans out to. It currently
// targets every authenticated connection except the sender, matching the
// behavior clients were built against; restricting the audience to the
// chat's participants would be a one-line change here.
func (rt *Router) resolveRecipients(_ string, excludeUserID string) func(Connection) bool {
	return func(conn Connection) bool {
		return conn.Authenticated && conn.UserID != excludeUserID
	}
}

// enqueueForOffline queues a message for each chat participant with no live
// connection, so they receive it on next authentication.
func (rt *Router) enqueueForOffline(ctx context.Context, msg *domain.Message) {
	participants, err := rt.store.ChatParticipants(ctx, msg.ChatID)
	if err != nil {
		log.Printf("[realtime] Failed to load participants of chat %s: %v", msg.ChatID, err)
		return
	}
	for _, participantID := range participants {
		if participantID == msg.SenderID || rt.registry.Connected(participantID) {
			continue
		}
		if err := rt.store.EnqueueMessage(ctx, participantID, msg.ID); err != nil {
			log.Printf("[realtime] Failed to queue message %s for %s: %v", msg.ID, participantID, err)
		}
	}
}

func (rt *Router) handleTyping(conn Connection, env Envelope, raw []byte) {
	var payload TypingPayload
	if err := decodePayload(env.Data, &payload); err != nil {
		rt.sendError(conn.ID, errInvalidFormat)
		return
	}

	rt.typingMu.Lock()
	if payload.IsTyping {
		if rt.typing[payload.ChatID] == nil {
			rt.typing[payload.ChatID] = make(map[string]struct{})
		}
		rt.typing[payload.ChatID][payload.UserID] = struct{}{}
	} else if set, ok := rt.typing[payload.ChatID]; ok {
		delete(set, payload.UserID)
		if len(set) == 0 {
			delete(rt.typing, payload.ChatID)
		}
	}
	rt.typingMu.Unlock()

	// Relay the indicator frame untouched.
	evictions := rt.registry.Broadcast(raw, rt.resolveRecipients(payload.ChatID, payload.UserID))
	rt.handleEvictions(context.Background(), evictions)
}

// TypingUsers returns the users currently typing in a chat.
func (rt *Router) TypingUsers(chatID string) []string {
	rt.typingMu.Lock()
	defer rt.typingMu.Unlock()

	users := make([]string, 0, len(rt.typing[chatID]))
	for userID := range rt.typing[chatID] {
		users = append(users, userID)
	}
	return users
}

// clearTyping removes a user from every chat's typing set.
func (rt *Router) clearTyping(userID string) {
	rt.typingMu.Lock()
	defer rt.typingMu.Unlock()

	for chatID, set := range rt.typing {
		delete(set, userID)
		if len(set) == 0 {
			delete(rt.typing, chatID)
		}
	}
}

func (rt *Router) handleReceipt(ctx context.Context, conn Connection, env Envelope) {
	var payload ReceiptPayload
	if err := decodePayload(env.Data, &payload); err != nil {
		rt.sendError(conn.ID, errInvalidFormat)
		return
	}

	receiptType := domain.ReceiptType(payload.ReceiptType)
	if !receiptType.Valid() {
		receiptType = domain.ReceiptDelivered
	}

	if err := rt.store.RecordReceipt(ctx, payload.MessageID, conn.UserID, receiptType); err != nil {
		log.Printf("[realtime] Failed to record receipt for message %s: %v", payload.MessageID, err)
		return
	}
	if err := rt.store.UpdateMessageStatus(ctx, payload.MessageID, receiptType.Status()); err != nil {
		log.Printf("[realtime] Failed to update status of message %s: %v", payload.MessageID, err)
	}

	original, err := rt.store.GetMessage(ctx, payload.MessageID)
	if err != nil || original == nil {
		return
	}

	evictions := rt.registry.SendToUser(original.SenderID, encode(newEnvelope(EnvelopeReceipt, payload)))
	rt.handleEvictions(ctx, evictions)
}

// Sweep closes connections silent beyond the timeout and runs offline
// transitions for users whose last connection timed out.
func (rt *Router) Sweep(ctx context.Context, now time.Time, timeout time.Duration) {
	evictions := rt.registry.SweepTimeouts(now, timeout)
	rt.handleEvictions(ctx, evictions)
}

// handleEvictions runs the disconnect protocol for connections lost during
// fan-out or sweeping. Offline broadcasts may evict further connections, so
// this loops until the cascade settles.
func (rt *Router) handleEvictions(ctx context.Context, evictions []Eviction) {
	for len(evictions) > 0 {
		var next []Eviction
		for _, ev := range evictions {
			if ev.UserID == "" {
				continue
			}
			rt.clearTyping(ev.UserID)
			if !ev.WasLast {
				continue
			}
			next = append(next, rt.offlineTransition(ctx, ev.UserID)...)
		}
		evictions = next
	}
}

// markOffline persists and announces a user going offline.
func (rt *Router) markOffline(ctx context.Context, userID string) {
	rt.handleEvictions(ctx, rt.offlineTransition(ctx, userID))
}

func (rt *Router) offlineTransition(ctx context.Context, userID string) []Eviction {
	if err := rt.store.UpdatePresence(ctx, userID, domain.PresenceOffline, ""); err != nil {
		log.Printf("[realtime] Failed to persist offline presence for %s: %v", userID, err)
	}

	lastSeen := time.Now().UnixMilli()
	env := newEnvelope(EnvelopePresence, PresencePayload{
		UserID:   userID,
		Status:   string(domain.PresenceOffline),
		LastSeen: &lastSeen,
	})
	return rt.registry.Broadcast(encode(env), func(conn Connection) bool {
		return conn.Authenticated && conn.UserID != userID
	})
}

// broadcastPresence announces a presence change to everyone but the subject.
func (rt *Router) broadcastPresence(ctx context.Context, userID string, status domain.PresenceStatus) {
	env := newEnvelope(EnvelopePresence, PresencePayload{
		UserID: userID,
		Status: string(status),
	})
	evictions := rt.registry.Broadcast(encode(env), func(conn Connection) bool {
		return conn.Authenticated && conn.UserID != userID
	})
	rt.handleEvictions(ctx, evictions)
}

func (rt *Router) sendError(connID, message string) {
	rt.registry.Send(connID, encode(newEnvelope(EnvelopeError, ErrorPayload{Error: message})))
}
