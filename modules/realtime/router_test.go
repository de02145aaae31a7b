package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domain "github.com/robertkruk/parent-connect-app/domain/chat"
	user "github.com/robertkruk/parent-connect-app/domain/user"
)

// fakeAuthenticator resolves canned tokens to canned users.
type fakeAuthenticator struct {
	tokens map[string]string
	users  map[string]*user.User
}

func (a *fakeAuthenticator) VerifyToken(_ context.Context, token string) (string, error) {
	userID, ok := a.tokens[token]
	if !ok {
		return "", errors.New("bad token")
	}
	return userID, nil
}

func (a *fakeAuthenticator) GetUser(_ context.Context, userID string) (*user.User, error) {
	u, ok := a.users[userID]
	if !ok {
		return nil, errors.New("no such user")
	}
	return u, nil
}

type statusUpdate struct {
	messageID string
	status    domain.DeliveryStatus
}

type receiptCall struct {
	messageID   string
	userID      string
	receiptType domain.ReceiptType
}

type presenceCall struct {
	userID string
	status domain.PresenceStatus
}

type queueCall struct {
	userID    string
	messageID string
}

// fakeStore records every mutation the router asks for.
type fakeStore struct {
	mu sync.Mutex

	calls     []string
	createErr error
	nextID    int

	messages      map[string]*domain.Message
	statusUpdates []statusUpdate
	receipts      []receiptCall
	presence      []presenceCall
	online        []string
	participants  map[string][]string
	queued        map[string][]*domain.Message
	enqueued      []queueCall
	dequeued      []queueCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages:     make(map[string]*domain.Message),
		participants: make(map[string][]string),
		queued:       make(map[string][]*domain.Message),
	}
}

func (s *fakeStore) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeStore) CreateMessage(_ context.Context, chatID, senderID, content string, msgType domain.MessageType, attachments []string, replyTo string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateMessage")

	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	msg := &domain.Message{
		ID:          fmt.Sprintf("msg-%d", s.nextID),
		ChatID:      chatID,
		SenderID:    senderID,
		Content:     content,
		Type:        msgType,
		Attachments: attachments,
		ReplyTo:     replyTo,
		CreatedAt:   time.Now(),
	}
	s.messages[msg.ID] = msg
	return msg, nil
}

func (s *fakeStore) UpdateMessageStatus(_ context.Context, messageID string, status domain.DeliveryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpdateMessageStatus")
	s.statusUpdates = append(s.statusUpdates, statusUpdate{messageID: messageID, status: status})
	return nil
}

func (s *fakeStore) GetMessage(_ context.Context, messageID string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetMessage")
	msg, ok := s.messages[messageID]
	if !ok {
		return nil, errors.New("message not found")
	}
	return msg, nil
}

func (s *fakeStore) RecordReceipt(_ context.Context, messageID, userID string, receiptType domain.ReceiptType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("RecordReceipt")
	s.receipts = append(s.receipts, receiptCall{messageID: messageID, userID: userID, receiptType: receiptType})
	return nil
}

func (s *fakeStore) UpdatePresence(_ context.Context, userID string, status domain.PresenceStatus, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpdatePresence")
	s.presence = append(s.presence, presenceCall{userID: userID, status: status})
	return nil
}

func (s *fakeStore) OnlineUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("OnlineUsers")
	return s.online, nil
}

func (s *fakeStore) ChatParticipants(_ context.Context, chatID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ChatParticipants")
	return s.participants[chatID], nil
}

func (s *fakeStore) EnqueueMessage(_ context.Context, userID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("EnqueueMessage")
	s.enqueued = append(s.enqueued, queueCall{userID: userID, messageID: messageID})
	return nil
}

func (s *fakeStore) QueuedMessages(_ context.Context, userID string) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("QueuedMessages")
	return s.queued[userID], nil
}

func (s *fakeStore) RemoveQueuedMessage(_ context.Context, userID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("RemoveQueuedMessage")
	s.dequeued = append(s.dequeued, queueCall{userID: userID, messageID: messageID})
	return nil
}

func (s *fakeStore) presenceFor(userID string) []presenceCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []presenceCall
	for _, p := range s.presence {
		if p.userID == userID {
			out = append(out, p)
		}
	}
	return out
}

func newTestRouter(t *testing.T) (*Router, *fakeStore) {
	t.Helper()

	auth := &fakeAuthenticator{
		tokens: map[string]string{
			"token-1": "user-1",
			"token-2": "user-2",
			"token-3": "missing-user",
		},
		users: map[string]*user.User{
			"user-1": {ID: "user-1", Name: "Sarah Johnson"},
			"user-2": {ID: "user-2", Name: "Michael Chen"},
		},
	}
	store := newFakeStore()
	return NewRouter(NewRegistry(), auth, store), store
}

func connect(t *testing.T, router *Router) (*fakeTransport, string) {
	t.Helper()
	transport := newFakeTransport()
	connID := router.HandleConnect(transport)
	return transport, connID
}

func authenticate(t *testing.T, router *Router, connID, token string) {
	t.Helper()
	frame := encode(newEnvelope(EnvelopeAuth, AuthPayload{Token: token}))
	router.HandleEnvelope(context.Background(), connID, frame)
}

func decodeAs[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var payload T
	if err := decodePayload(env.Data, &payload); err != nil {
		t.Fatalf("failed to decode %s payload: %v", env.Type, err)
	}
	return payload
}

func errorMessages(t *testing.T, transport *fakeTransport) []string {
	t.Helper()
	var out []string
	for _, env := range transport.envelopesOfType(t, EnvelopeError) {
		out = append(out, decodeAs[ErrorPayload](t, env).Error)
	}
	return out
}

func TestRouter_ConnectSendsAck(t *testing.T) {
	router, _ := newTestRouter(t)
	transport, connID := connect(t, router)

	acks := transport.envelopesOfType(t, EnvelopeAuth)
	if len(acks) != 1 {
		t.Fatalf("auth envelope count = %d, want 1", len(acks))
	}
	payload := decodeAs[ConnectedPayload](t, acks[0])
	if payload.Status != "connected" {
		t.Errorf("status = %s, want connected", payload.Status)
	}
	if payload.ConnectionID != connID {
		t.Errorf("connectionId = %s, want %s", payload.ConnectionID, connID)
	}
}

func TestRouter_AuthenticateSuccess(t *testing.T) {
	router, store := newTestRouter(t)
	store.online = []string{"user-2"}

	transport, connID := connect(t, router)
	authenticate(t, router, connID, "token-1")

	acks := transport.envelopesOfType(t, EnvelopeAuth)
	if len(acks) != 2 {
		t.Fatalf("auth envelope count = %d, want connected plus authenticated", len(acks))
	}
	payload := decodeAs[AuthenticatedPayload](t, acks[1])
	if payload.Status != "authenticated" {
		t.Errorf("status = %s, want authenticated", payload.Status)
	}
	if payload.User.ID != "user-1" || payload.User.Name != "Sarah Johnson" {
		t.Errorf("user = %+v, want user-1 Sarah Johnson", payload.User)
	}

	// The new connection learns who is already online.
	snapshot := transport.envelopesOfType(t, EnvelopePresence)
	if len(snapshot) != 1 {
		t.Fatalf("presence snapshot count = %d, want 1", len(snapshot))
	}
	presence := decodeAs[PresencePayload](t, snapshot[0])
	if presence.UserID != "user-2" || presence.Status != string(domain.PresenceOnline) {
		t.Errorf("snapshot = %+v, want user-2 online", presence)
	}

	online := store.presenceFor("user-1")
	if len(online) != 1 || online[0].status != domain.PresenceOnline {
		t.Errorf("persisted presence = %v, want online", online)
	}
}

func TestRouter_AuthenticateAnnouncesToOthers(t *testing.T) {
	router, _ := newTestRouter(t)

	observer, observerID := connect(t, router)
	authenticate(t, router, observerID, "token-1")

	_, connID := connect(t, router)
	authenticate(t, router, connID, "token-2")

	announcements := observer.envelopesOfType(t, EnvelopePresence)
	if len(announcements) != 1 {
		t.Fatalf("presence announcement count = %d, want 1", len(announcements))
	}
	presence := decodeAs[PresencePayload](t, announcements[0])
	if presence.UserID != "user-2" || presence.Status != string(domain.PresenceOnline) {
		t.Errorf("announcement = %+v, want user-2 online", presence)
	}
}

func TestRouter_AuthenticateFailures(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr string
	}{
		{name: "bad token", token: "bogus", wantErr: errAuthFailed},
		{name: "unknown user", token: "token-3", wantErr: errInvalidUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, store := newTestRouter(t)
			transport, connID := connect(t, router)
			authenticate(t, router, connID, tt.token)

			msgs := errorMessages(t, transport)
			if len(msgs) != 1 || msgs[0] != tt.wantErr {
				t.Errorf("errors = %v, want [%s]", msgs, tt.wantErr)
			}
			if store.callCount() != 0 {
				t.Errorf("store calls = %d, want 0 after failed auth", store.callCount())
			}
		})
	}
}

func TestRouter_PreAuthFramesRejected(t *testing.T) {
	frames := map[string][]byte{
		"message": encode(newEnvelope(EnvelopeMessage, MessagePayload{ChatID: "chat-1", Content: "hi"})),
		"typing":  encode(newEnvelope(EnvelopeTyping, TypingPayload{ChatID: "chat-1", UserID: "user-1", IsTyping: true})),
		"receipt": encode(newEnvelope(EnvelopeReceipt, ReceiptPayload{MessageID: "msg-1", ReceiptType: "read"})),
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			router, store := newTestRouter(t)
			transport, connID := connect(t, router)

			router.HandleEnvelope(context.Background(), connID, frame)

			msgs := errorMessages(t, transport)
			if len(msgs) != 1 || msgs[0] != errNotAuthenticated {
				t.Errorf("errors = %v, want [%s]", msgs, errNotAuthenticated)
			}
			if store.callCount() != 0 {
				t.Errorf("store calls = %d, want 0 before authentication", store.callCount())
			}
		})
	}
}

func TestRouter_HeartbeatAllowedPreAuth(t *testing.T) {
	router, store := newTestRouter(t)
	transport, connID := connect(t, router)

	frame := encode(newEnvelope(EnvelopeHeartbeat, struct{}{}))
	router.HandleEnvelope(context.Background(), connID, frame)

	if msgs := errorMessages(t, transport); len(msgs) != 0 {
		t.Errorf("errors = %v, want none for a heartbeat", msgs)
	}
	if store.callCount() != 0 {
		t.Errorf("store calls = %d, want 0 for a heartbeat", store.callCount())
	}
}

func TestRouter_MalformedFrame(t *testing.T) {
	router, _ := newTestRouter(t)
	transport, connID := connect(t, router)

	router.HandleEnvelope(context.Background(), connID, []byte("{not json"))

	msgs := errorMessages(t, transport)
	if len(msgs) != 1 || msgs[0] != errInvalidFormat {
		t.Errorf("errors = %v, want [%s]", msgs, errInvalidFormat)
	}
}

func TestRouter_UnknownEnvelopeType(t *testing.T) {
	router, _ := newTestRouter(t)
	transport, connID := connect(t, router)

	router.HandleEnvelope(context.Background(), connID, []byte(`{"id":"x","type":"dance","timestamp":0,"data":{}}`))

	msgs := errorMessages(t, transport)
	if len(msgs) != 1 || msgs[0] != "Unknown message type: dance" {
		t.Errorf("errors = %v, want unknown type error", msgs)
	}
}

func TestRouter_MessageFanout(t *testing.T) {
	router, store := newTestRouter(t)
	store.participants["chat-1"] = []string{"user-1", "user-2", "user-9"}

	sender, senderID := connect(t, router)
	authenticate(t, router, senderID, "token-1")
	receiver, receiverID := connect(t, router)
	authenticate(t, router, receiverID, "token-2")
	bystander, _ := connect(t, router) // never authenticates

	frame := encode(newEnvelope(EnvelopeMessage, MessagePayload{ChatID: "chat-1", Content: "pickup at 3?"}))
	router.HandleEnvelope(context.Background(), senderID, frame)

	// The receiver gets the persisted message with the store-assigned ID.
	got := receiver.envelopesOfType(t, EnvelopeMessage)
	if len(got) != 1 {
		t.Fatalf("receiver message count = %d, want 1", len(got))
	}
	payload := decodeAs[MessagePayload](t, got[0])
	if payload.ID != "msg-1" || payload.SenderID != "user-1" || payload.Content != "pickup at 3?" {
		t.Errorf("payload = %+v, want persisted message from user-1", payload)
	}
	if payload.MessageType != string(domain.MessageTypeText) {
		t.Errorf("messageType = %s, want text default", payload.MessageType)
	}

	if n := len(sender.envelopesOfType(t, EnvelopeMessage)); n != 0 {
		t.Errorf("sender echo count = %d, want 0", n)
	}
	if n := len(bystander.envelopesOfType(t, EnvelopeMessage)); n != 0 {
		t.Errorf("unauthenticated connection got %d messages, want 0", n)
	}

	// Status advances to sent after fan-out.
	if len(store.statusUpdates) != 1 || store.statusUpdates[0] != (statusUpdate{messageID: "msg-1", status: domain.StatusSent}) {
		t.Errorf("status updates = %v, want msg-1 sent", store.statusUpdates)
	}

	// Only the offline participant gets a queue entry.
	if len(store.enqueued) != 1 || store.enqueued[0] != (queueCall{userID: "user-9", messageID: "msg-1"}) {
		t.Errorf("enqueued = %v, want msg-1 for user-9", store.enqueued)
	}
}

func TestRouter_MessageStoreFailure(t *testing.T) {
	router, store := newTestRouter(t)
	store.createErr = errors.New("database is on fire")

	sender, senderID := connect(t, router)
	authenticate(t, router, senderID, "token-1")
	receiver, receiverID := connect(t, router)
	authenticate(t, router, receiverID, "token-2")

	frame := encode(newEnvelope(EnvelopeMessage, MessagePayload{ChatID: "chat-1", Content: "hello"}))
	router.HandleEnvelope(context.Background(), senderID, frame)

	msgs := errorMessages(t, sender)
	if len(msgs) != 1 || msgs[0] != errSendFailed {
		t.Errorf("errors = %v, want [%s]", msgs, errSendFailed)
	}
	if n := len(receiver.envelopesOfType(t, EnvelopeMessage)); n != 0 {
		t.Errorf("receiver got %d messages despite store failure, want 0", n)
	}
}

func TestRouter_ReceiptRoutedToSender(t *testing.T) {
	router, store := newTestRouter(t)

	sender, senderID := connect(t, router)
	authenticate(t, router, senderID, "token-1")
	reader, readerID := connect(t, router)
	authenticate(t, router, readerID, "token-2")

	// user-1 sends; the stored message gets ID msg-1.
	frame := encode(newEnvelope(EnvelopeMessage, MessagePayload{ChatID: "chat-1", Content: "hello"}))
	router.HandleEnvelope(context.Background(), senderID, frame)

	receipt := encode(newEnvelope(EnvelopeReceipt, ReceiptPayload{MessageID: "msg-1", ReceiptType: "read"}))
	router.HandleEnvelope(context.Background(), readerID, receipt)

	if len(store.receipts) != 1 || store.receipts[0] != (receiptCall{messageID: "msg-1", userID: "user-2", receiptType: domain.ReceiptRead}) {
		t.Errorf("receipts = %v, want read receipt from user-2", store.receipts)
	}

	last := store.statusUpdates[len(store.statusUpdates)-1]
	if last != (statusUpdate{messageID: "msg-1", status: domain.StatusRead}) {
		t.Errorf("final status update = %v, want msg-1 read", last)
	}

	// Exactly one receipt envelope reaches the original sender.
	got := sender.envelopesOfType(t, EnvelopeReceipt)
	if len(got) != 1 {
		t.Fatalf("sender receipt count = %d, want 1", len(got))
	}
	payload := decodeAs[ReceiptPayload](t, got[0])
	if payload.MessageID != "msg-1" || payload.ReceiptType != "read" {
		t.Errorf("receipt payload = %+v, want msg-1 read", payload)
	}

	if n := len(reader.envelopesOfType(t, EnvelopeReceipt)); n != 0 {
		t.Errorf("reader receipt echo count = %d, want 0", n)
	}
}

func TestRouter_ReceiptUnknownTypeDefaultsToDelivered(t *testing.T) {
	router, store := newTestRouter(t)

	_, senderID := connect(t, router)
	authenticate(t, router, senderID, "token-1")
	_, readerID := connect(t, router)
	authenticate(t, router, readerID, "token-2")

	frame := encode(newEnvelope(EnvelopeMessage, MessagePayload{ChatID: "chat-1", Content: "hello"}))
	router.HandleEnvelope(context.Background(), senderID, frame)

	receipt := encode(newEnvelope(EnvelopeReceipt, ReceiptPayload{MessageID: "msg-1", ReceiptType: "glanced"}))
	router.HandleEnvelope(context.Background(), readerID, receipt)

	if len(store.receipts) != 1 || store.receipts[0].receiptType != domain.ReceiptDelivered {
		t.Errorf("receipts = %v, want delivered fallback", store.receipts)
	}
}

func TestRouter_TypingRelay(t *testing.T) {
	router, _ := newTestRouter(t)

	typist, typistID := connect(t, router)
	authenticate(t, router, typistID, "token-1")
	observer, observerID := connect(t, router)
	authenticate(t, router, observerID, "token-2")

	start := encode(newEnvelope(EnvelopeTyping, TypingPayload{ChatID: "chat-1", UserID: "user-1", IsTyping: true}))
	router.HandleEnvelope(context.Background(), typistID, start)

	if users := router.TypingUsers("chat-1"); len(users) != 1 || users[0] != "user-1" {
		t.Errorf("typing users = %v, want [user-1]", users)
	}

	relayed := observer.envelopesOfType(t, EnvelopeTyping)
	if len(relayed) != 1 {
		t.Fatalf("observer typing count = %d, want 1", len(relayed))
	}
	payload := decodeAs[TypingPayload](t, relayed[0])
	if payload.UserID != "user-1" || !payload.IsTyping {
		t.Errorf("relayed payload = %+v, want user-1 typing", payload)
	}
	if n := len(typist.envelopesOfType(t, EnvelopeTyping)); n != 0 {
		t.Errorf("typist echo count = %d, want 0", n)
	}

	// Repeating the start frame keeps a single entry.
	router.HandleEnvelope(context.Background(), typistID, start)
	if users := router.TypingUsers("chat-1"); len(users) != 1 {
		t.Errorf("typing users after repeat = %v, want one entry", users)
	}

	stop := encode(newEnvelope(EnvelopeTyping, TypingPayload{ChatID: "chat-1", UserID: "user-1", IsTyping: false}))
	router.HandleEnvelope(context.Background(), typistID, stop)
	if users := router.TypingUsers("chat-1"); len(users) != 0 {
		t.Errorf("typing users after stop = %v, want empty", users)
	}
}

func TestRouter_DisconnectLastConnectionGoesOffline(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	_, first := connect(t, router)
	authenticate(t, router, first, "token-1")
	_, second := connect(t, router)
	authenticate(t, router, second, "token-1")

	observer, observerID := connect(t, router)
	authenticate(t, router, observerID, "token-2")

	router.HandleDisconnect(ctx, first)
	if calls := store.presenceFor("user-1"); calls[len(calls)-1].status != domain.PresenceOnline {
		t.Error("user with a surviving connection must stay online")
	}

	router.HandleDisconnect(ctx, second)
	calls := store.presenceFor("user-1")
	if calls[len(calls)-1].status != domain.PresenceOffline {
		t.Error("user must go offline after the last disconnect")
	}

	// Exactly one offline announcement, with lastSeen attached.
	var offline []PresencePayload
	for _, env := range observer.envelopesOfType(t, EnvelopePresence) {
		p := decodeAs[PresencePayload](t, env)
		if p.Status == string(domain.PresenceOffline) {
			offline = append(offline, p)
		}
	}
	if len(offline) != 1 {
		t.Fatalf("offline announcement count = %d, want 1", len(offline))
	}
	if offline[0].UserID != "user-1" || offline[0].LastSeen == nil {
		t.Errorf("announcement = %+v, want user-1 with lastSeen", offline[0])
	}
}

func TestRouter_TypingClearedOnDisconnect(t *testing.T) {
	router, _ := newTestRouter(t)
	ctx := context.Background()

	_, connID := connect(t, router)
	authenticate(t, router, connID, "token-1")

	start := encode(newEnvelope(EnvelopeTyping, TypingPayload{ChatID: "chat-1", UserID: "user-1", IsTyping: true}))
	router.HandleEnvelope(ctx, connID, start)

	router.HandleDisconnect(ctx, connID)
	if users := router.TypingUsers("chat-1"); len(users) != 0 {
		t.Errorf("typing users after disconnect = %v, want empty", users)
	}
}

func TestRouter_SweepMarksTimedOutUsersOffline(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	_, connID := connect(t, router)
	authenticate(t, router, connID, "token-1")

	router.Sweep(ctx, time.Now().Add(time.Minute), 30*time.Second)

	calls := store.presenceFor("user-1")
	if len(calls) == 0 || calls[len(calls)-1].status != domain.PresenceOffline {
		t.Errorf("presence calls = %v, want trailing offline", calls)
	}
	if stats := router.Stats(); stats.TotalConnections != 0 {
		t.Errorf("connections after sweep = %d, want 0", stats.TotalConnections)
	}
}

func TestRouter_QueueDrainOnAuthentication(t *testing.T) {
	router, store := newTestRouter(t)
	store.queued["user-1"] = []*domain.Message{
		{ID: "q-1", ChatID: "chat-1", SenderID: "user-2", Content: "first", Type: domain.MessageTypeText, CreatedAt: time.Now()},
		{ID: "q-2", ChatID: "chat-1", SenderID: "user-2", Content: "second", Type: domain.MessageTypeText, CreatedAt: time.Now()},
	}

	transport, connID := connect(t, router)
	authenticate(t, router, connID, "token-1")

	delivered := transport.envelopesOfType(t, EnvelopeMessage)
	if len(delivered) != 2 {
		t.Fatalf("drained message count = %d, want 2", len(delivered))
	}
	first := decodeAs[MessagePayload](t, delivered[0])
	second := decodeAs[MessagePayload](t, delivered[1])
	if first.ID != "q-1" || second.ID != "q-2" {
		t.Errorf("drain order = [%s %s], want [q-1 q-2]", first.ID, second.ID)
	}

	want := []queueCall{
		{userID: "user-1", messageID: "q-1"},
		{userID: "user-1", messageID: "q-2"},
	}
	if len(store.dequeued) != 2 || store.dequeued[0] != want[0] || store.dequeued[1] != want[1] {
		t.Errorf("dequeued = %v, want %v", store.dequeued, want)
	}
}

func TestRouter_Stats(t *testing.T) {
	router, _ := newTestRouter(t)

	_, connID := connect(t, router)
	authenticate(t, router, connID, "token-1")

	start := encode(newEnvelope(EnvelopeTyping, TypingPayload{ChatID: "chat-1", UserID: "user-1", IsTyping: true}))
	router.HandleEnvelope(context.Background(), connID, start)

	stats := router.Stats()
	if stats.TotalConnections != 1 || stats.AuthenticatedConnections != 1 {
		t.Errorf("stats = %+v, want one authenticated connection", stats)
	}
	if stats.TypingUsers != 1 {
		t.Errorf("typing users = %d, want 1", stats.TypingUsers)
	}
}
