package chat

import (
	"time"

	domain "github.com/robertkruk/parent-connect-app/domain/chat"
)

// Service names registered in the chat module's service container.
const (
	ServiceCreateMessage       = "create-message"
	ServiceGetMessage          = "get-message"
	ServiceListMessages        = "list-messages"
	ServiceUpdateMessageStatus = "update-message-status"
	ServiceGetMessageStatus    = "get-message-status"
	ServiceRecordReceipt       = "record-receipt"
	ServiceListReceipts        = "list-receipts"
	ServiceMarkRead            = "mark-read"
	ServiceUpdatePresence      = "update-presence"
	ServiceGetPresence         = "get-presence"
	ServiceGetOnlineUsers      = "get-online-users"
	ServiceListChats           = "list-chats"
	ServiceGetChat             = "get-chat"
	ServiceGetParticipants     = "get-participants"
	ServiceEnqueueMessage      = "enqueue-message"
	ServiceListQueued          = "list-queued"
	ServiceRemoveQueued        = "remove-queued"
	ServiceCreateChild         = "create-child"
	ServiceListChildren        = "list-children"
)

// MessagePayload is the wire form of a persisted message.
type MessagePayload struct {
	ID          string             `json:"id"`
	Content     string             `json:"content"`
	SenderID    string             `json:"senderId"`
	ChatID      string             `json:"chatId"`
	Type        domain.MessageType `json:"type"`
	Attachments []string           `json:"attachments,omitempty"`
	ReplyTo     string             `json:"replyTo,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// NewMessagePayload converts a domain message to its wire form.
func NewMessagePayload(msg *domain.Message) MessagePayload {
	return MessagePayload{
		ID:          msg.ID,
		Content:     msg.Content,
		SenderID:    msg.SenderID,
		ChatID:      msg.ChatID,
		Type:        msg.Type,
		Attachments: msg.Attachments,
		ReplyTo:     msg.ReplyTo,
		CreatedAt:   msg.CreatedAt,
		UpdatedAt:   msg.UpdatedAt,
	}
}

// ToDomain converts the payload back to a domain message.
func (p MessagePayload) ToDomain() *domain.Message {
	return &domain.Message{
		ID:          p.ID,
		Content:     p.Content,
		SenderID:    p.SenderID,
		ChatID:      p.ChatID,
		Type:        p.Type,
		Attachments: domain.AttachmentList(p.Attachments),
		ReplyTo:     p.ReplyTo,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// CreateMessageRequest is the request for persisting a new message.
type CreateMessageRequest struct {
	ChatID      string             `json:"chatId"`
	SenderID    string             `json:"senderId"`
	Content     string             `json:"content"`
	Type        domain.MessageType `json:"type,omitempty"`
	Attachments []string           `json:"attachments,omitempty"`
	ReplyTo     string             `json:"replyTo,omitempty"`
}

// CreateMessageResponse carries the stored message.
type CreateMessageResponse struct {
	Message MessagePayload `json:"message"`
}

// GetMessageRequest is the request for fetching a message by ID.
type GetMessageRequest struct {
	MessageID string `json:"messageId"`
}

// GetMessageResponse carries the message if it exists.
type GetMessageResponse struct {
	Found   bool           `json:"found"`
	Message MessagePayload `json:"message,omitempty"`
}

// ListMessagesRequest is the request for a page of chat messages.
type ListMessagesRequest struct {
	ChatID string `json:"chatId"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// MessageWithStatusPayload pairs a message with its delivery status.
type MessageWithStatusPayload struct {
	MessagePayload
	Status domain.DeliveryStatus `json:"status"`
}

// ListMessagesResponse carries a page of messages with statuses.
type ListMessagesResponse struct {
	Messages []MessageWithStatusPayload `json:"messages"`
}

// UpdateMessageStatusRequest overwrites a message's delivery status.
type UpdateMessageStatusRequest struct {
	MessageID string                `json:"messageId"`
	Status    domain.DeliveryStatus `json:"status"`
}

// UpdateMessageStatusResponse acknowledges the update.
type UpdateMessageStatusResponse struct {
	Success bool `json:"success"`
}

// GetMessageStatusRequest is the request for a message's status.
type GetMessageStatusRequest struct {
	MessageID string `json:"messageId"`
}

// GetMessageStatusResponse carries the current status.
type GetMessageStatusResponse struct {
	MessageID string                `json:"messageId"`
	Status    domain.DeliveryStatus `json:"status"`
}

// RecordReceiptRequest records a delivered/read receipt.
type RecordReceiptRequest struct {
	MessageID   string             `json:"messageId"`
	UserID      string             `json:"userId"`
	ReceiptType domain.ReceiptType `json:"receiptType"`
}

// RecordReceiptResponse acknowledges the receipt.
type RecordReceiptResponse struct {
	Success bool `json:"success"`
}

// ReceiptPayload is the wire form of a receipt row.
type ReceiptPayload struct {
	ID          string             `json:"id"`
	MessageID   string             `json:"messageId"`
	UserID      string             `json:"userId"`
	ReceiptType domain.ReceiptType `json:"receiptType"`
	Timestamp   time.Time          `json:"timestamp"`
}

// ListReceiptsRequest is the request for a message's receipts.
type ListReceiptsRequest struct {
	MessageID string `json:"messageId"`
}

// ListReceiptsResponse carries all receipts for a message.
type ListReceiptsResponse struct {
	Receipts []ReceiptPayload `json:"receipts"`
}

// MarkReadRequest records a read receipt for a user.
type MarkReadRequest struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// MarkReadResponse acknowledges the read.
type MarkReadResponse struct {
	Success bool `json:"success"`
}

// UpdatePresenceRequest overwrites a user's presence.
type UpdatePresenceRequest struct {
	UserID   string                `json:"userId"`
	Status   domain.PresenceStatus `json:"status"`
	SocketID string                `json:"socketId,omitempty"`
}

// UpdatePresenceResponse acknowledges the update.
type UpdatePresenceResponse struct {
	Success bool `json:"success"`
}

// GetPresenceRequest is the request for a user's presence.
type GetPresenceRequest struct {
	UserID string `json:"userId"`
}

// GetPresenceResponse carries the presence row if one exists.
type GetPresenceResponse struct {
	Found    bool                  `json:"found"`
	UserID   string                `json:"userId,omitempty"`
	Status   domain.PresenceStatus `json:"status,omitempty"`
	LastSeen time.Time             `json:"lastSeen,omitempty"`
}

// GetOnlineUsersRequest is the request for currently online user IDs.
type GetOnlineUsersRequest struct{}

// GetOnlineUsersResponse carries the online user IDs.
type GetOnlineUsersResponse struct {
	UserIDs []string `json:"userIds"`
}

// ChatPayload is the wire form of a chat with sidebar details.
type ChatPayload struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         domain.ChatType `json:"type"`
	ClassID      string          `json:"classId,omitempty"`
	UnreadCount  int64           `json:"unreadCount"`
	LastMessage  *MessagePayload `json:"lastMessage,omitempty"`
	Participants []string        `json:"participants,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ListChatsRequest is the request for a user's chats.
type ListChatsRequest struct {
	UserID string `json:"userId"`
}

// ListChatsResponse carries the user's chats.
type ListChatsResponse struct {
	Chats []ChatPayload `json:"chats"`
}

// GetChatRequest is the request for a single chat.
type GetChatRequest struct {
	ChatID string `json:"chatId"`
}

// GetChatResponse carries the chat if it exists.
type GetChatResponse struct {
	Found bool        `json:"found"`
	Chat  ChatPayload `json:"chat,omitempty"`
}

// GetParticipantsRequest is the request for a chat's participants.
type GetParticipantsRequest struct {
	ChatID string `json:"chatId"`
}

// GetParticipantsResponse carries the participant user IDs.
type GetParticipantsResponse struct {
	UserIDs []string `json:"userIds"`
}

// EnqueueMessageRequest queues a message for an offline user.
type EnqueueMessageRequest struct {
	UserID    string `json:"userId"`
	MessageID string `json:"messageId"`
}

// EnqueueMessageResponse acknowledges the enqueue.
type EnqueueMessageResponse struct {
	Success bool `json:"success"`
}

// ListQueuedRequest is the request for a user's queued messages.
type ListQueuedRequest struct {
	UserID string `json:"userId"`
}

// ListQueuedResponse carries the queued messages, oldest first.
type ListQueuedResponse struct {
	Messages []MessagePayload `json:"messages"`
}

// RemoveQueuedRequest deletes a queue entry after delivery.
type RemoveQueuedRequest struct {
	UserID    string `json:"userId"`
	MessageID string `json:"messageId"`
}

// RemoveQueuedResponse acknowledges the removal.
type RemoveQueuedResponse struct {
	Success bool `json:"success"`
}

// CreateChildRequest creates a child record for a parent.
type CreateChildRequest struct {
	ParentID string `json:"parentId"`
	Name     string `json:"name"`
	Grade    string `json:"grade"`
	School   string `json:"school"`
}

// ChildPayload is the wire form of a child record.
type ChildPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	School    string    `json:"school"`
	ParentID  string    `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateChildResponse carries the created child.
type CreateChildResponse struct {
	Child ChildPayload `json:"child"`
}

// ListChildrenRequest is the request for a parent's children.
type ListChildrenRequest struct {
	ParentID string `json:"parentId"`
}

// ListChildrenResponse carries the parent's children.
type ListChildrenResponse struct {
	Children []ChildPayload `json:"children"`
}
