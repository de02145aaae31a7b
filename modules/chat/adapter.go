package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	domain "github.com/robertkruk/parent-connect-app/domain/chat"
)

// ChatPort defines the interface other modules use to access the message
// store. The realtime router uses the message, receipt, presence and queue
// operations; the HTTP layer uses the rest.
type ChatPort interface {
	CreateMessage(ctx context.Context, chatID, senderID, content string, msgType domain.MessageType, attachments []string, replyTo string) (*domain.Message, error)
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)
	ListMessages(ctx context.Context, chatID string, limit, offset int) ([]MessageWithStatusPayload, error)
	UpdateMessageStatus(ctx context.Context, messageID string, status domain.DeliveryStatus) error
	GetMessageStatus(ctx context.Context, messageID string) (domain.DeliveryStatus, error)
	RecordReceipt(ctx context.Context, messageID, userID string, receiptType domain.ReceiptType) error
	ListReceipts(ctx context.Context, messageID string) ([]ReceiptPayload, error)
	MarkRead(ctx context.Context, messageID, userID string) error
	UpdatePresence(ctx context.Context, userID string, status domain.PresenceStatus, socketID string) error
	GetPresence(ctx context.Context, userID string) (*domain.UserPresence, error)
	OnlineUsers(ctx context.Context) ([]string, error)
	ListChats(ctx context.Context, userID string) ([]ChatPayload, error)
	GetChat(ctx context.Context, chatID string) (*ChatPayload, error)
	ChatParticipants(ctx context.Context, chatID string) ([]string, error)
	EnqueueMessage(ctx context.Context, userID, messageID string) error
	QueuedMessages(ctx context.Context, userID string) ([]*domain.Message, error)
	RemoveQueuedMessage(ctx context.Context, userID, messageID string) error
	CreateChild(ctx context.Context, parentID, name, grade, school string) (*ChildPayload, error)
	ListChildren(ctx context.Context, parentID string) ([]ChildPayload, error)
}

// ChatAdapter implements ChatPort over the service container.
type ChatAdapter struct {
	container mono.ServiceContainer
}

var _ ChatPort = (*ChatAdapter)(nil)

// NewChatAdapter creates a new ChatAdapter.
func NewChatAdapter(container mono.ServiceContainer) *ChatAdapter {
	return &ChatAdapter{
		container: container,
	}
}

// call issues a JSON request-reply round trip against a named service.
func call[Req any, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req Req) (Resp, error) {
	var resp Resp
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return resp, fmt.Errorf("%s request failed: %w", service, err)
	}
	return resp, nil
}

// CreateMessage persists a new message and returns it with server-assigned
// ID and timestamps.
func (a *ChatAdapter) CreateMessage(ctx context.Context, chatID, senderID, content string, msgType domain.MessageType, attachments []string, replyTo string) (*domain.Message, error) {
	resp, err := call[CreateMessageRequest, CreateMessageResponse](ctx, a.container, ServiceCreateMessage, CreateMessageRequest{
		ChatID:      chatID,
		SenderID:    senderID,
		Content:     content,
		Type:        msgType,
		Attachments: attachments,
		ReplyTo:     replyTo,
	})
	if err != nil {
		return nil, err
	}
	return resp.Message.ToDomain(), nil
}

// GetMessage retrieves a message by ID.
func (a *ChatAdapter) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	resp, err := call[GetMessageRequest, GetMessageResponse](ctx, a.container, ServiceGetMessage, GetMessageRequest{MessageID: messageID})
	if err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, ErrMessageNotFound
	}
	return resp.Message.ToDomain(), nil
}

// ListMessages retrieves a page of chat history with delivery statuses.
func (a *ChatAdapter) ListMessages(ctx context.Context, chatID string, limit, offset int) ([]MessageWithStatusPayload, error) {
	resp, err := call[ListMessagesRequest, ListMessagesResponse](ctx, a.container, ServiceListMessages, ListMessagesRequest{
		ChatID: chatID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// UpdateMessageStatus sets the delivery status of a message.
func (a *ChatAdapter) UpdateMessageStatus(ctx context.Context, messageID string, status domain.DeliveryStatus) error {
	_, err := call[UpdateMessageStatusRequest, UpdateMessageStatusResponse](ctx, a.container, ServiceUpdateMessageStatus, UpdateMessageStatusRequest{
		MessageID: messageID,
		Status:    status,
	})
	return err
}

// GetMessageStatus retrieves the delivery status of a message.
func (a *ChatAdapter) GetMessageStatus(ctx context.Context, messageID string) (domain.DeliveryStatus, error) {
	resp, err := call[GetMessageStatusRequest, GetMessageStatusResponse](ctx, a.container, ServiceGetMessageStatus, GetMessageStatusRequest{MessageID: messageID})
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// RecordReceipt records a delivered or read receipt for a message.
func (a *ChatAdapter) RecordReceipt(ctx context.Context, messageID, userID string, receiptType domain.ReceiptType) error {
	_, err := call[RecordReceiptRequest, RecordReceiptResponse](ctx, a.container, ServiceRecordReceipt, RecordReceiptRequest{
		MessageID:   messageID,
		UserID:      userID,
		ReceiptType: receiptType,
	})
	return err
}

// ListReceipts retrieves all receipts recorded for a message.
func (a *ChatAdapter) ListReceipts(ctx context.Context, messageID string) ([]ReceiptPayload, error) {
	resp, err := call[ListReceiptsRequest, ListReceiptsResponse](ctx, a.container, ServiceListReceipts, ListReceiptsRequest{MessageID: messageID})
	if err != nil {
		return nil, err
	}
	return resp.Receipts, nil
}

// MarkRead records a read receipt and advances the message status.
func (a *ChatAdapter) MarkRead(ctx context.Context, messageID, userID string) error {
	_, err := call[MarkReadRequest, MarkReadResponse](ctx, a.container, ServiceMarkRead, MarkReadRequest{
		MessageID: messageID,
		UserID:    userID,
	})
	return err
}

// UpdatePresence upserts a user's presence row.
func (a *ChatAdapter) UpdatePresence(ctx context.Context, userID string, status domain.PresenceStatus, socketID string) error {
	_, err := call[UpdatePresenceRequest, UpdatePresenceResponse](ctx, a.container, ServiceUpdatePresence, UpdatePresenceRequest{
		UserID:   userID,
		Status:   status,
		SocketID: socketID,
	})
	return err
}

// GetPresence retrieves a user's presence, or nil when never recorded.
func (a *ChatAdapter) GetPresence(ctx context.Context, userID string) (*domain.UserPresence, error) {
	resp, err := call[GetPresenceRequest, GetPresenceResponse](ctx, a.container, ServiceGetPresence, GetPresenceRequest{UserID: userID})
	if err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, nil
	}
	return &domain.UserPresence{
		UserID:   resp.UserID,
		Status:   resp.Status,
		LastSeen: resp.LastSeen,
	}, nil
}

// OnlineUsers retrieves the IDs of users currently marked online.
func (a *ChatAdapter) OnlineUsers(ctx context.Context) ([]string, error) {
	resp, err := call[GetOnlineUsersRequest, GetOnlineUsersResponse](ctx, a.container, ServiceGetOnlineUsers, GetOnlineUsersRequest{})
	if err != nil {
		return nil, err
	}
	return resp.UserIDs, nil
}

// ListChats retrieves a user's chats with unread counts and last messages.
func (a *ChatAdapter) ListChats(ctx context.Context, userID string) ([]ChatPayload, error) {
	resp, err := call[ListChatsRequest, ListChatsResponse](ctx, a.container, ServiceListChats, ListChatsRequest{UserID: userID})
	if err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

// GetChat retrieves a chat by ID.
func (a *ChatAdapter) GetChat(ctx context.Context, chatID string) (*ChatPayload, error) {
	resp, err := call[GetChatRequest, GetChatResponse](ctx, a.container, ServiceGetChat, GetChatRequest{ChatID: chatID})
	if err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, ErrChatNotFound
	}
	return &resp.Chat, nil
}

// ChatParticipants retrieves the user IDs participating in a chat.
func (a *ChatAdapter) ChatParticipants(ctx context.Context, chatID string) ([]string, error) {
	resp, err := call[GetParticipantsRequest, GetParticipantsResponse](ctx, a.container, ServiceGetParticipants, GetParticipantsRequest{ChatID: chatID})
	if err != nil {
		return nil, err
	}
	return resp.UserIDs, nil
}

// EnqueueMessage queues a message for an offline user.
func (a *ChatAdapter) EnqueueMessage(ctx context.Context, userID, messageID string) error {
	_, err := call[EnqueueMessageRequest, EnqueueMessageResponse](ctx, a.container, ServiceEnqueueMessage, EnqueueMessageRequest{
		UserID:    userID,
		MessageID: messageID,
	})
	return err
}

// QueuedMessages retrieves the messages queued for a user, oldest first.
func (a *ChatAdapter) QueuedMessages(ctx context.Context, userID string) ([]*domain.Message, error) {
	resp, err := call[ListQueuedRequest, ListQueuedResponse](ctx, a.container, ServiceListQueued, ListQueuedRequest{UserID: userID})
	if err != nil {
		return nil, err
	}
	messages := make([]*domain.Message, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		messages = append(messages, msg.ToDomain())
	}
	return messages, nil
}

// RemoveQueuedMessage removes a delivered message from a user's queue.
func (a *ChatAdapter) RemoveQueuedMessage(ctx context.Context, userID, messageID string) error {
	_, err := call[RemoveQueuedRequest, RemoveQueuedResponse](ctx, a.container, ServiceRemoveQueued, RemoveQueuedRequest{
		UserID:    userID,
		MessageID: messageID,
	})
	return err
}

// CreateChild registers a child under a parent account.
func (a *ChatAdapter) CreateChild(ctx context.Context, parentID, name, grade, school string) (*ChildPayload, error) {
	resp, err := call[CreateChildRequest, CreateChildResponse](ctx, a.container, ServiceCreateChild, CreateChildRequest{
		ParentID: parentID,
		Name:     name,
		Grade:    grade,
		School:   school,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Child, nil
}

// ListChildren retrieves the children registered under a parent account.
func (a *ChatAdapter) ListChildren(ctx context.Context, parentID string) ([]ChildPayload, error) {
	resp, err := call[ListChildrenRequest, ListChildrenResponse](ctx, a.container, ServiceListChildren, ListChildrenRequest{ParentID: parentID})
	if err != nil {
		return nil, err
	}
	return resp.Children, nil
}
