package chat

import (
	"errors"
	"fmt"
	"time"

	domain "github.com/robertkruk/parent-connect-app/domain/chat"
	school "github.com/robertkruk/parent-connect-app/domain/school"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrChatNotFound is returned when a chat is not found.
	ErrChatNotFound = errors.New("chat not found")
	// ErrMessageNotFound is returned when a message is not found.
	ErrMessageNotFound = errors.New("message not found")
)

// Repository provides access to the chat relational store.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new chat repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Chat operations

// CreateChat saves a new chat and its participant rows.
func (r *Repository) CreateChat(chat *domain.Chat, participants []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}
		for _, userID := range participants {
			row := domain.ChatParticipant{ChatID: chat.ID, UserID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to add participant: %w", err)
			}
		}
		return nil
	})
}

// FindChatByID retrieves a chat by its ID.
func (r *Repository) FindChatByID(id string) (*domain.Chat, error) {
	var chat domain.Chat
	if err := r.db.First(&chat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to find chat: %w", err)
	}
	return &chat, nil
}

// FindChatsByUserID retrieves the chats a user participates in, most
// recently updated first.
func (r *Repository) FindChatsByUserID(userID string) ([]*domain.Chat, error) {
	var chats []*domain.Chat
	err := r.db.
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id").
		Where("cp.user_id = ?", userID).
		Order("chats.updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find chats: %w", err)
	}
	return chats, nil
}

// FindChatParticipants returns the user IDs participating in a chat.
func (r *Repository) FindChatParticipants(chatID string) ([]string, error) {
	var userIDs []string
	err := r.db.Model(&domain.ChatParticipant{}).
		Where("chat_id = ?", chatID).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find participants: %w", err)
	}
	return userIDs, nil
}

// AddChatParticipant adds a user to a chat, ignoring duplicates.
func (r *Repository) AddChatParticipant(chatID, userID string) error {
	row := domain.ChatParticipant{ChatID: chatID, UserID: userID}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// Message operations

// CreateMessage saves a new message, bumps the chat's updated_at, and
// initializes the status row to "sending".
func (r *Repository) CreateMessage(msg *domain.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		if err := tx.Model(&domain.Chat{}).
			Where("id = ?", msg.ChatID).
			Update("updated_at", msg.CreatedAt).Error; err != nil {
			return fmt.Errorf("failed to touch chat: %w", err)
		}
		status := domain.MessageStatus{
			MessageID: msg.ID,
			Status:    domain.StatusSending,
			UpdatedAt: msg.CreatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&status).Error; err != nil {
			return fmt.Errorf("failed to initialize message status: %w", err)
		}
		return nil
	})
}

// FindMessageByID retrieves a message by its ID.
func (r *Repository) FindMessageByID(id string) (*domain.Message, error) {
	var msg domain.Message
	if err := r.db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &msg, nil
}

// FindMessagesByChatID returns a page of messages for a chat, newest first.
func (r *Repository) FindMessagesByChatID(chatID string, limit, offset int) ([]*domain.Message, error) {
	var messages []*domain.Message
	err := r.db.
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	return messages, nil
}

// Message status operations

// UpsertMessageStatus overwrites the status row for a message.
// No monotonicity is enforced; last write wins.
func (r *Repository) UpsertMessageStatus(messageID string, status domain.DeliveryStatus) error {
	row := domain.MessageStatus{
		MessageID: messageID,
		Status:    status,
		UpdatedAt: time.Now(),
	}
	if err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	return nil
}

// FindMessageStatus returns the status row for a message, or nil if none.
func (r *Repository) FindMessageStatus(messageID string) (*domain.MessageStatus, error) {
	var status domain.MessageStatus
	if err := r.db.First(&status, "message_id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find message status: %w", err)
	}
	return &status, nil
}

// Receipt operations

// UpsertReceipt records a receipt. One row per (message, user, type); the
// latest timestamp wins on conflict.
func (r *Repository) UpsertReceipt(receipt *domain.MessageReceipt) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}, {Name: "receipt_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(receipt).Error
	if err != nil {
		return fmt.Errorf("failed to record receipt: %w", err)
	}
	return nil
}

// FindMessageReceipts returns all receipts for a message, oldest first.
func (r *Repository) FindMessageReceipts(messageID string) ([]*domain.MessageReceipt, error) {
	var receipts []*domain.MessageReceipt
	err := r.db.
		Where("message_id = ?", messageID).
		Order("timestamp ASC").
		Find(&receipts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find receipts: %w", err)
	}
	return receipts, nil
}

// UnreadCount counts messages in a chat the user has not read and did not
// send, based on read receipts.
func (r *Repository) UnreadCount(chatID, userID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Message{}).
		Where("chat_id = ? AND sender_id != ?", chatID, userID).
		Where("id NOT IN (?)", r.db.Model(&domain.MessageReceipt{}).
			Select("message_id").
			Where("user_id = ? AND receipt_type = ?", userID, domain.ReceiptRead)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// Presence operations

// UpsertPresence overwrites the presence row for a user. Last write wins.
func (r *Repository) UpsertPresence(userID string, status domain.PresenceStatus, socketID string) error {
	row := domain.UserPresence{
		UserID:   userID,
		Status:   status,
		LastSeen: time.Now(),
		SocketID: socketID,
	}
	if err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	return nil
}

// FindPresence returns the presence row for a user, or nil if none.
func (r *Repository) FindPresence(userID string) (*domain.UserPresence, error) {
	var presence domain.UserPresence
	if err := r.db.First(&presence, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find presence: %w", err)
	}
	return &presence, nil
}

// FindOnlineUsers returns the IDs of users whose presence row says online.
func (r *Repository) FindOnlineUsers() ([]string, error) {
	var userIDs []string
	err := r.db.Model(&domain.UserPresence{}).
		Where("status = ?", domain.PresenceOnline).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find online users: %w", err)
	}
	return userIDs, nil
}

// Queue operations

// Enqueue stores a message for later delivery to an offline user.
func (r *Repository) Enqueue(userID, messageID string, id string, now time.Time) error {
	row := domain.QueuedMessage{
		ID:          id,
		UserID:      userID,
		MessageID:   messageID,
		QueuedAt:    now,
		Attempts:    0,
		MaxAttempts: 3,
		NextAttempt: now.Add(5 * time.Minute),
	}
	if err := r.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

// FindQueuedMessages returns the undelivered messages queued for a user,
// oldest first, skipping entries past their attempt budget.
func (r *Repository) FindQueuedMessages(userID string) ([]*domain.Message, error) {
	var messages []*domain.Message
	err := r.db.Model(&domain.Message{}).
		Joins("JOIN message_queue mq ON mq.message_id = messages.id").
		Where("mq.user_id = ? AND mq.attempts < mq.max_attempts", userID).
		Order("mq.queued_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find queued messages: %w", err)
	}
	return messages, nil
}

// RemoveFromQueue deletes a queue entry after successful delivery.
func (r *Repository) RemoveFromQueue(userID, messageID string) error {
	err := r.db.
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&domain.QueuedMessage{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove queue entry: %w", err)
	}
	return nil
}

// Children and classes

// CreateChild saves a new child record.
func (r *Repository) CreateChild(child *school.Child) error {
	if err := r.db.Create(child).Error; err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}
	return nil
}

// FindChildrenByParentID retrieves all children for a parent.
func (r *Repository) FindChildrenByParentID(parentID string) ([]*school.Child, error) {
	var children []*school.Child
	if err := r.db.Where("parent_id = ?", parentID).Find(&children).Error; err != nil {
		return nil, fmt.Errorf("failed to find children: %w", err)
	}
	return children, nil
}

// CreateClass saves a new class record.
func (r *Repository) CreateClass(cls *school.Class) error {
	if err := r.db.Create(cls).Error; err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}
	return nil
}

// FindClassByID retrieves a class by its ID.
func (r *Repository) FindClassByID(id string) (*school.Class, error) {
	var cls school.Class
	if err := r.db.First(&cls, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find class: %w", err)
	}
	return &cls, nil
}
