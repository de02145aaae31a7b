package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	domain "github.com/robertkruk/parent-connect-app/domain/chat"
	school "github.com/robertkruk/parent-connect-app/domain/school"
)

// Validation constants
const (
	MaxMessageLength  = 5000
	MaxChatNameLength = 100
)

// Validation errors
var (
	ErrMessageEmpty       = errors.New("message content cannot be empty")
	ErrMessageTooLong     = errors.New("message exceeds maximum length")
	ErrMessageInvalid     = errors.New("message contains invalid characters")
	ErrInvalidMessageType = errors.New("unknown message type")
	ErrInvalidStatus      = errors.New("unknown delivery status")
	ErrInvalidReceipt     = errors.New("unknown receipt type")
	ErrInvalidPresence    = errors.New("unknown presence status")
	ErrInvalidChatType    = errors.New("unknown chat type")
	ErrChatNameEmpty      = errors.New("chat name cannot be empty")
	ErrChatNameTooLong    = errors.New("chat name exceeds maximum length")
)

// ChatWithDetails is a chat together with the derived fields the sidebar
// needs: unread count, last message, and participant IDs.
type ChatWithDetails struct {
	Chat         *domain.Chat
	UnreadCount  int64
	LastMessage  *domain.Message
	Participants []string
}

// MessageWithStatus pairs a message with its current delivery status.
type MessageWithStatus struct {
	Message *domain.Message
	Status  domain.DeliveryStatus
}

// Service provides chat store operations over the repository.
type Service struct {
	repo *Repository
}

// NewService creates a new chat service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ValidateContent validates message content.
func ValidateContent(content string) error {
	if content == "" {
		return ErrMessageEmpty
	}
	if len(content) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(content) {
		return ErrMessageInvalid
	}
	return nil
}

// CreateChat creates a chat with its participants.
func (s *Service) CreateChat(_ context.Context, name string, chatType domain.ChatType, classID string, participants []string) (*domain.Chat, error) {
	if name == "" {
		return nil, ErrChatNameEmpty
	}
	if len(name) > MaxChatNameLength {
		return nil, ErrChatNameTooLong
	}
	if !chatType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChatType, chatType)
	}

	now := time.Now()
	chat := &domain.Chat{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      chatType,
		ClassID:   classID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateChat(chat, participants); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetChat retrieves a chat by ID.
func (s *Service) GetChat(_ context.Context, chatID string) (*domain.Chat, error) {
	return s.repo.FindChatByID(chatID)
}

// ListChats returns a user's chats with unread counts, last messages, and
// participants attached.
func (s *Service) ListChats(_ context.Context, userID string) ([]*ChatWithDetails, error) {
	chats, err := s.repo.FindChatsByUserID(userID)
	if err != nil {
		return nil, err
	}

	result := make([]*ChatWithDetails, 0, len(chats))
	for _, chat := range chats {
		unread, err := s.repo.UnreadCount(chat.ID, userID)
		if err != nil {
			return nil, err
		}
		participants, err := s.repo.FindChatParticipants(chat.ID)
		if err != nil {
			return nil, err
		}
		var last *domain.Message
		recent, err := s.repo.FindMessagesByChatID(chat.ID, 1, 0)
		if err != nil {
			return nil, err
		}
		if len(recent) > 0 {
			last = recent[0]
		}
		result = append(result, &ChatWithDetails{
			Chat:         chat,
			UnreadCount:  unread,
			LastMessage:  last,
			Participants: participants,
		})
	}
	return result, nil
}

// Participants returns the user IDs participating in a chat.
func (s *Service) Participants(_ context.Context, chatID string) ([]string, error) {
	return s.repo.FindChatParticipants(chatID)
}

// SendMessage validates and persists a new message. The status row starts at
// "sending"; callers advance it once fan-out has happened.
func (s *Service) SendMessage(_ context.Context, chatID, senderID, content string, msgType domain.MessageType, attachments []string, replyTo string) (*domain.Message, error) {
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if !msgType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMessageType, msgType)
	}
	if _, err := s.repo.FindChatByID(chatID); err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &domain.Message{
		ID:          uuid.New().String(),
		Content:     content,
		SenderID:    senderID,
		ChatID:      chatID,
		Type:        msgType,
		Attachments: domain.AttachmentList(attachments),
		ReplyTo:     replyTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessage retrieves a message by ID.
func (s *Service) GetMessage(_ context.Context, messageID string) (*domain.Message, error) {
	return s.repo.FindMessageByID(messageID)
}

// ListMessages returns a page of chat messages with their statuses.
func (s *Service) ListMessages(_ context.Context, chatID string, limit, offset int) ([]*MessageWithStatus, error) {
	if limit <= 0 {
		limit = 50
	}
	messages, err := s.repo.FindMessagesByChatID(chatID, limit, offset)
	if err != nil {
		return nil, err
	}

	result := make([]*MessageWithStatus, 0, len(messages))
	for _, msg := range messages {
		status := domain.StatusSent
		row, err := s.repo.FindMessageStatus(msg.ID)
		if err != nil {
			return nil, err
		}
		if row != nil {
			status = row.Status
		}
		result = append(result, &MessageWithStatus{Message: msg, Status: status})
	}
	return result, nil
}

// UpdateMessageStatus overwrites a message's delivery status.
func (s *Service) UpdateMessageStatus(_ context.Context, messageID string, status domain.DeliveryStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.repo.UpsertMessageStatus(messageID, status)
}

// GetMessageStatus returns a message's current status, defaulting to "sent"
// when no row exists.
func (s *Service) GetMessageStatus(_ context.Context, messageID string) (domain.DeliveryStatus, error) {
	row, err := s.repo.FindMessageStatus(messageID)
	if err != nil {
		return "", err
	}
	if row == nil {
		return domain.StatusSent, nil
	}
	return row.Status, nil
}

// RecordReceipt stores a receipt row and advances the message status to the
// status the receipt implies.
func (s *Service) RecordReceipt(_ context.Context, messageID, userID string, receiptType domain.ReceiptType) error {
	if !receiptType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidReceipt, receiptType)
	}
	receipt := &domain.MessageReceipt{
		ID:          uuid.New().String(),
		MessageID:   messageID,
		UserID:      userID,
		ReceiptType: receiptType,
		Timestamp:   time.Now(),
	}
	if err := s.repo.UpsertReceipt(receipt); err != nil {
		return err
	}
	return s.repo.UpsertMessageStatus(messageID, receiptType.Status())
}

// ListReceipts returns all receipts for a message.
func (s *Service) ListReceipts(_ context.Context, messageID string) ([]*domain.MessageReceipt, error) {
	return s.repo.FindMessageReceipts(messageID)
}

// MarkMessageRead records a read receipt for the user.
func (s *Service) MarkMessageRead(ctx context.Context, messageID, userID string) error {
	return s.RecordReceipt(ctx, messageID, userID, domain.ReceiptRead)
}

// UpdatePresence overwrites a user's presence row.
func (s *Service) UpdatePresence(_ context.Context, userID string, status domain.PresenceStatus, socketID string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPresence, status)
	}
	return s.repo.UpsertPresence(userID, status, socketID)
}

// GetPresence returns a user's presence row, or nil if never recorded.
func (s *Service) GetPresence(_ context.Context, userID string) (*domain.UserPresence, error) {
	return s.repo.FindPresence(userID)
}

// OnlineUsers returns the IDs of currently online users.
func (s *Service) OnlineUsers(_ context.Context) ([]string, error) {
	return s.repo.FindOnlineUsers()
}

// EnqueueMessage queues a message for delivery to an offline user.
func (s *Service) EnqueueMessage(_ context.Context, userID, messageID string) error {
	return s.repo.Enqueue(userID, messageID, uuid.New().String(), time.Now())
}

// QueuedMessages returns the messages queued for a user, oldest first.
func (s *Service) QueuedMessages(_ context.Context, userID string) ([]*domain.Message, error) {
	return s.repo.FindQueuedMessages(userID)
}

// RemoveQueuedMessage deletes a queue entry after delivery.
func (s *Service) RemoveQueuedMessage(_ context.Context, userID, messageID string) error {
	return s.repo.RemoveFromQueue(userID, messageID)
}

// AddChild creates a child record for a parent.
func (s *Service) AddChild(_ context.Context, parentID, name, grade, schoolName string) (*school.Child, error) {
	if name == "" || grade == "" || schoolName == "" {
		return nil, errors.New("name, grade, and school are required")
	}
	now := time.Now()
	child := &school.Child{
		ID:        uuid.New().String(),
		Name:      name,
		Grade:     grade,
		School:    schoolName,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateChild(child); err != nil {
		return nil, err
	}
	return child, nil
}

// ListChildren returns a parent's children.
func (s *Service) ListChildren(_ context.Context, parentID string) ([]*school.Child, error) {
	return s.repo.FindChildrenByParentID(parentID)
}
