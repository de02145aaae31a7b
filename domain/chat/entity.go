package chat

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ChatType identifies how a chat was formed.
type ChatType string

// Chat types.
const (
	ChatTypeClass  ChatType = "class"
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
)

// Valid reports whether t is a known chat type.
func (t ChatType) Valid() bool {
	switch t {
	case ChatTypeClass, ChatTypeDirect, ChatTypeGroup:
		return true
	}
	return false
}

// MessageType identifies the content kind of a message.
type MessageType string

// Message types.
const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeVoice MessageType = "voice"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeVoice:
		return true
	}
	return false
}

// DeliveryStatus is the lifecycle status of a message.
type DeliveryStatus string

// Delivery statuses. The store allows overwrites in either direction;
// the router only ever advances sending -> sent -> delivered -> read.
const (
	StatusSending   DeliveryStatus = "sending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
	StatusFailed    DeliveryStatus = "failed"
)

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case StatusSending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// ReceiptType distinguishes delivery receipts from read receipts.
type ReceiptType string

// Receipt types.
const (
	ReceiptDelivered ReceiptType = "delivered"
	ReceiptRead      ReceiptType = "read"
)

// Valid reports whether t is a known receipt type.
func (t ReceiptType) Valid() bool {
	return t == ReceiptDelivered || t == ReceiptRead
}

// Status returns the delivery status a receipt of this type implies.
func (t ReceiptType) Status() DeliveryStatus {
	if t == ReceiptRead {
		return StatusRead
	}
	return StatusDelivered
}

// PresenceStatus is a user's realtime availability.
type PresenceStatus string

// Presence statuses.
const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
)

// Valid reports whether s is a known presence status.
func (s PresenceStatus) Valid() bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceOffline:
		return true
	}
	return false
}

// AttachmentList stores an ordered list of attachment references as a JSON
// column, matching how the schema serializes attachments.
type AttachmentList []string

// Value implements driver.Valuer.
func (a AttachmentList) Value() (driver.Value, error) {
	if len(a) == 0 {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *AttachmentList) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return fmt.Errorf("unsupported attachment column type %T", value)
}

// Chat represents a conversation between parents.
type Chat struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Type      ChatType  `gorm:"size:20;not null" json:"type"`
	ClassID   string    `gorm:"size:36;index" json:"classId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Chat model.
func (Chat) TableName() string {
	return "chats"
}

// ChatParticipant links a user to a chat.
type ChatParticipant struct {
	ChatID string `gorm:"primarykey;size:36" json:"chatId"`
	UserID string `gorm:"primarykey;size:36" json:"userId"`
}

// TableName returns the table name for the ChatParticipant model.
func (ChatParticipant) TableName() string {
	return "chat_participants"
}

// Message represents a persisted chat message. Messages are immutable after
// creation; only their associated status row changes.
type Message struct {
	ID          string         `gorm:"primarykey;size:36" json:"id"`
	Content     string         `gorm:"size:5000;not null" json:"content"`
	SenderID    string         `gorm:"size:36;index;not null" json:"senderId"`
	ChatID      string         `gorm:"size:36;index;not null" json:"chatId"`
	Type        MessageType    `gorm:"size:20;not null" json:"type"`
	Attachments AttachmentList `gorm:"type:text" json:"attachments,omitempty"`
	ReplyTo     string         `gorm:"size:36" json:"replyTo,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// TableName returns the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}

// MessageStatus is the single status row kept per message. Last write wins.
type MessageStatus struct {
	MessageID string         `gorm:"primarykey;size:36" json:"messageId"`
	Status    DeliveryStatus `gorm:"size:20;not null" json:"status"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// TableName returns the table name for the MessageStatus model.
func (MessageStatus) TableName() string {
	return "message_status"
}

// MessageReceipt records that a user received or read a message. One row per
// (message, user, type); the latest timestamp wins on conflict.
type MessageReceipt struct {
	ID          string      `gorm:"primarykey;size:36" json:"id"`
	MessageID   string      `gorm:"size:36;uniqueIndex:idx_receipt_key;not null" json:"messageId"`
	UserID      string      `gorm:"size:36;uniqueIndex:idx_receipt_key;not null" json:"userId"`
	ReceiptType ReceiptType `gorm:"size:20;uniqueIndex:idx_receipt_key;not null" json:"receiptType"`
	Timestamp   time.Time   `json:"timestamp"`
}

// TableName returns the table name for the MessageReceipt model.
func (MessageReceipt) TableName() string {
	return "message_receipts"
}

// UserPresence is the per-user presence row. One row per user, last write wins.
type UserPresence struct {
	UserID   string         `gorm:"primarykey;size:36" json:"userId"`
	Status   PresenceStatus `gorm:"size:20;not null" json:"status"`
	LastSeen time.Time      `json:"lastSeen"`
	SocketID string         `gorm:"size:36" json:"socketId,omitempty"`
}

// TableName returns the table name for the UserPresence model.
func (UserPresence) TableName() string {
	return "user_presence"
}

// QueuedMessage holds a message waiting for delivery to a user who had no
// live connection when it was sent.
type QueuedMessage struct {
	ID          string    `gorm:"primarykey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;index;not null" json:"userId"`
	MessageID   string    `gorm:"size:36;index;not null" json:"messageId"`
	QueuedAt    time.Time `json:"queuedAt"`
	Attempts    int       `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts int       `gorm:"not null;default:3" json:"maxAttempts"`
	NextAttempt time.Time `json:"nextAttempt"`
}

// TableName returns the table name for the QueuedMessage model.
func (QueuedMessage) TableName() string {
	return "message_queue"
}
