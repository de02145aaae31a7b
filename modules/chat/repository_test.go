package chat

import (
	"errors"
	"testing"
	"time"

	domain "github.com/robertkruk/parent-connect-app/domain/chat"
	school "github.com/robertkruk/parent-connect-app/domain/school"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&domain.Chat{},
		&domain.ChatParticipant{},
		&domain.Message{},
		&domain.MessageStatus{},
		&domain.MessageReceipt{},
		&domain.UserPresence{},
		&domain.QueuedMessage{},
		&school.Child{},
		&school.Class{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(setupTestDB(t))
}

func makeChat(t *testing.T, repo *Repository, participants ...string) *domain.Chat {
	t.Helper()
	now := time.Now()
	chat := &domain.Chat{
		ID:        "chat-" + participants[0],
		Name:      "Test Chat",
		Type:      domain.ChatTypeGroup,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateChat(chat, participants); err != nil {
		t.Fatalf("CreateChat() error = %v", err)
	}
	return chat
}

func makeMessage(t *testing.T, repo *Repository, id, chatID, senderID, content string) *domain.Message {
	t.Helper()
	now := time.Now()
	msg := &domain.Message{
		ID:        id,
		Content:   content,
		SenderID:  senderID,
		ChatID:    chatID,
		Type:      domain.MessageTypeText,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateMessage(msg); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	return msg
}

func TestRepository_CreateAndFindChat(t *testing.T) {
	repo := newTestRepo(t)
	chat := makeChat(t, repo, "user-1", "user-2")

	found, err := repo.FindChatByID(chat.ID)
	if err != nil {
		t.Fatalf("FindChatByID() error = %v", err)
	}
	if found.Name != "Test Chat" {
		t.Errorf("chat name = %s, want Test Chat", found.Name)
	}

	participants, err := repo.FindChatParticipants(chat.ID)
	if err != nil {
		t.Fatalf("FindChatParticipants() error = %v", err)
	}
	if len(participants) != 2 {
		t.Errorf("participant count = %d, want 2", len(participants))
	}

	if _, err := repo.FindChatByID("missing"); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("FindChatByID(missing) error = %v, want %v", err, ErrChatNotFound)
	}
}

func TestRepository_AddChatParticipantIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	chat := makeChat(t, repo, "user-1")

	if err := repo.AddChatParticipant(chat.ID, "user-2"); err != nil {
		t.Fatalf("AddChatParticipant() error = %v", err)
	}
	if err := repo.AddChatParticipant(chat.ID, "user-2"); err != nil {
		t.Fatalf("AddChatParticipant() duplicate error = %v", err)
	}

	participants, err := repo.FindChatParticipants(chat.ID)
	if err != nil {
		t.Fatalf("FindChatParticipants() error = %v", err)
	}
	if len(participants) != 2 {
		t.Errorf("participant count = %d, want 2", len(participants))
	}
}

func TestRepository_FindChatsByUserID(t *testing.T) {
	repo := newTestRepo(t)
	makeChat(t, repo, "user-1", "user-2")
	makeChat(t, repo, "user-3")

	chats, err := repo.FindChatsByUserID("user-1")
	if err != nil {
		t.Fatalf("FindChatsByUserID() error = %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("chat count = %d, want 1", len(chats))
	}
}

func TestRepository_CreateMessageInitializesStatus(t *testing.T) {
	repo := newTestRepo(t)
	chat := makeChat(t, repo, "user-1", "user-2")
	msg := makeMessage(t, repo, "msg-1", chat.ID, "user-1", "hello")

	status, err := repo.FindMessageStatus(msg.ID)
	if err != nil {
		t.Fatalf("FindMessageStatus() error = %v", err)
	}
	if status == nil {
		t.Fatal("expected a status row after CreateMessage")
	}
	if status.Status != domain.StatusSending {
		t.Errorf("initial status = %s, want %s", status.Status, domain.StatusSending)
	}
}

func TestRepository_UpsertMessageStatusLastWriteWins(t *testing.T) {
	repo := newTestRepo(t)
	chat := makeChat(t, repo, "user-1")
	msg := makeMessage(t, repo, "msg-1", chat.ID, "user-1", "hello")

	// Forward then backward; the store does not enforce ordering.
	steps := []domain.DeliveryStatus{domain.StatusSent, domain.StatusRead, domain.StatusDelivered}
	for _, s := range steps {
		if err := repo.UpsertMessageStatus(msg.ID, s); err != nil {
			t.Fatalf("UpsertMessageStatus(%s) error = %v", s, err)
		}
	}

	status, err := repo.FindMessageStatus(msg.ID)
	if err != nil {
		t.Fatalf("FindMessageStatus() error = %v", err)
	}
	if status.Status != domain.StatusDelivered {
		t.Errorf("status = %s, want %s", status.Status, domain.StatusDelivered)
	}
}

func TestRepository_MessagePagination(t *testing.T) {
	repo := newTestRepo(t)
	chat := makeChat(t, repo, "user-1")

	for i, id := range []string{"msg-1", "msg-2", "msg-3"} {
		msg := &domain.Message{
			ID:        id,
			Content:   "message " + id,
			SenderID:  "user-1",
			ChatID:    chat.ID,
			Type:      domain.MessageTypeText,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := repo.CreateMessage(msg); err != nil {
			t.Fatalf("CreateMessage() error = %v", err)
		}
	}

	page, err := repo.FindMessagesByChatID(chat.ID, 2, 0)
	if err != nil {
		t.Fatalf("FindMessagesByChatID() error = %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].ID != "msg-3" {
		t.Errorf("newest first: got %s, want msg-3", page[0].ID)
	}

	rest, err := repo.FindMessagesByChatID(chat.ID, 2, 2)
	if err != nil {
		t.Fatalf("FindMessagesByChatID() offset error = %v", err)
	}
	if len(rest) != 1 || rest[0].ID != "msg-1" {
		t.Errorf("offset page = %v, want [msg-1]", rest)
	}
}

func TestRepository_UpsertReceiptDeduplicates(t *testing.T) {
	repo := newTestRepo(t)
	chat := makeChat(t, repo, "user-1", "user-2")
	msg := makeMessage(t, repo, "msg-1", chat.ID, "user-1", "hello")

	for _, id := range []string{"rcpt-1", "rcpt-2"} {
		receipt := &domain.MessageReceipt{
			ID:          id,
			MessageID:   msg.ID,
			UserID:      "user-2",
			ReceiptType: domain.ReceiptRead,
			Timestamp:   time.Now(),
		}
		if err := repo.UpsertReceipt(receipt); err != nil {
			t.Fatalf("UpsertReceipt() error = %v", err)
		}
	}

	receipts, err := repo.FindMessageReceipts(msg.ID)
	if err != nil {
		t.Fatalf("FindMessageReceipts() error = %v", err)
	}
	if len(receipts) != 1 {
		t.Errorf("receipt count = %d, want 1 (one row per message/user/type)", len(receipts))
	}
}

func TestRepository_UnreadCount(t *testing.T) {
	repo := newTestRepo(t)
	chat := makeChat(t, repo, "user-1", "user-2")
	makeMessage(t, repo, "msg-1", chat.ID, "user-1", "first")
	makeMessage(t, repo, "msg-2", chat.ID, "user-1", "second")
	makeMessage(t, repo, "msg-3", chat.ID, "user-2", "reply")

	// user-2 has two unread; own message does not count.
	count, err := repo.UnreadCount(chat.ID, "user-2")
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("unread count = %d, want 2", count)
	}

	receipt := &domain.MessageReceipt{
		ID:          "rcpt-1",
		MessageID:   "msg-1",
		UserID:      "user-2",
		ReceiptType: domain.ReceiptRead,
		Timestamp:   time.Now(),
	}
	if err := repo.UpsertReceipt(receipt); err != nil {
		t.Fatalf("UpsertReceipt() error = %v", err)
	}

	count, err = repo.UnreadCount(chat.ID, "user-2")
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("unread count after read receipt = %d, want 1", count)
	}
}

func TestRepository_Presence(t *testing.T) {
	repo := newTestRepo(t)

	none, err := repo.FindPresence("user-1")
	if err != nil {
		t.Fatalf("FindPresence() error = %v", err)
	}
	if none != nil {
		t.Fatal("expected nil presence before any update")
	}

	if err := repo.UpsertPresence("user-1", domain.PresenceOnline, "sock-1"); err != nil {
		t.Fatalf("UpsertPresence() error = %v", err)
	}
	if err := repo.UpsertPresence("user-2", domain.PresenceOffline, ""); err != nil {
		t.Fatalf("UpsertPresence() error = %v", err)
	}

	online, err := repo.FindOnlineUsers()
	if err != nil {
		t.Fatalf("FindOnlineUsers() error = %v", err)
	}
	if len(online) != 1 || online[0] != "user-1" {
		t.Errorf("online users = %v, want [user-1]", online)
	}

	// Last write wins; going offline replaces the row.
	if err := repo.UpsertPresence("user-1", domain.PresenceOffline, ""); err != nil {
		t.Fatalf("UpsertPresence() error = %v", err)
	}
	presence, err := repo.FindPresence("user-1")
	if err != nil {
		t.Fatalf("FindPresence() error = %v", err)
	}
	if presence.Status != domain.PresenceOffline {
		t.Errorf("presence status = %s, want %s", presence.Status, domain.PresenceOffline)
	}
}

func TestRepository_MessageQueue(t *testing.T) {
	repo := newTestRepo(t)
	chat := makeChat(t, repo, "user-1", "user-2")
	first := makeMessage(t, repo, "msg-1", chat.ID, "user-1", "first")
	second := makeMessage(t, repo, "msg-2", chat.ID, "user-1", "second")

	now := time.Now()
	if err := repo.Enqueue("user-2", second.ID, "q-2", now.Add(time.Second)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := repo.Enqueue("user-2", first.ID, "q-1", now); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	queued, err := repo.FindQueuedMessages("user-2")
	if err != nil {
		t.Fatalf("FindQueuedMessages() error = %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("queued count = %d, want 2", len(queued))
	}
	if queued[0].ID != first.ID {
		t.Errorf("oldest first: got %s, want %s", queued[0].ID, first.ID)
	}

	if err := repo.RemoveFromQueue("user-2", first.ID); err != nil {
		t.Fatalf("RemoveFromQueue() error = %v", err)
	}
	queued, err = repo.FindQueuedMessages("user-2")
	if err != nil {
		t.Fatalf("FindQueuedMessages() error = %v", err)
	}
	if len(queued) != 1 || queued[0].ID != second.ID {
		t.Errorf("remaining queue = %v, want just %s", queued, second.ID)
	}

	// Other users see an empty queue.
	other, err := repo.FindQueuedMessages("user-1")
	if err != nil {
		t.Fatalf("FindQueuedMessages() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("queue for user-1 = %v, want empty", other)
	}
}

func TestRepository_ChildrenAndClasses(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now()
	child := &school.Child{
		ID:        "child-1",
		Name:      "Emma Johnson",
		Grade:     "3rd Grade",
		School:    "Lincoln Elementary",
		ParentID:  "user-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateChild(child); err != nil {
		t.Fatalf("CreateChild() error = %v", err)
	}

	children, err := repo.FindChildrenByParentID("user-1")
	if err != nil {
		t.Fatalf("FindChildrenByParentID() error = %v", err)
	}
	if len(children) != 1 || children[0].Name != "Emma Johnson" {
		t.Errorf("children = %v, want Emma Johnson", children)
	}

	cls := &school.Class{
		ID:        "class-1",
		Name:      "Mrs. Smith's 3rd Grade",
		Grade:     "3rd Grade",
		School:    "Lincoln Elementary",
		Teacher:   "Mrs. Sarah Smith",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateClass(cls); err != nil {
		t.Fatalf("CreateClass() error = %v", err)
	}

	found, err := repo.FindClassByID("class-1")
	if err != nil {
		t.Fatalf("FindClassByID() error = %v", err)
	}
	if found == nil || found.Teacher != "Mrs. Sarah Smith" {
		t.Errorf("class = %v, want teacher Mrs. Sarah Smith", found)
	}

	missing, err := repo.FindClassByID("missing")
	if err != nil {
		t.Fatalf("FindClassByID(missing) error = %v", err)
	}
	if missing != nil {
		t.Error("expected nil for a missing class")
	}
}
