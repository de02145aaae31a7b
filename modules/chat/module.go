package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	domain "github.com/robertkruk/parent-connect-app/domain/chat"
	school "github.com/robertkruk/parent-connect-app/domain/school"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ChatModule owns the relational store behind the messaging layer: chats,
// participants, messages, statuses, receipts, presence, the offline queue,
// and the school records (children, classes).
type ChatModule struct {
	db      *gorm.DB
	service *Service
	dbPath  string
}

// Compile-time interface checks.
var _ mono.Module = (*ChatModule)(nil)
var _ mono.ServiceProviderModule = (*ChatModule)(nil)
var _ mono.HealthCheckableModule = (*ChatModule)(nil)

// NewModule creates a new ChatModule.
func NewModule() *ChatModule {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "parentconnect.db"
	}
	return &ChatModule{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *ChatModule) Name() string {
	return "chat"
}

// Start initializes the database connection and runs migrations.
func (m *ChatModule) Start(ctx context.Context) error {
	log.Printf("[chat] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(
		&domain.Chat{},
		&domain.ChatParticipant{},
		&domain.Message{},
		&domain.MessageStatus{},
		&domain.MessageReceipt{},
		&domain.UserPresence{},
		&domain.QueuedMessage{},
		&school.Child{},
		&school.Class{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.service = NewService(NewRepository(m.db))

	if os.Getenv("SEED") == "true" {
		if err := m.seed(ctx); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	log.Println("[chat] Module started successfully")
	return nil
}

// Stop gracefully closes the database connection.
func (m *ChatModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	log.Println("[chat] Closing database connection...")

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[chat] Database connection closed")
	return nil
}

// Health performs a health check on the chat module.
func (m *ChatModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *ChatModule) RegisterServices(container mono.ServiceContainer) error {
	type registration struct {
		name string
		fn   func() error
	}

	registrations := []registration{
		{ServiceCreateMessage, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceCreateMessage, json.Unmarshal, json.Marshal, m.handleCreateMessage)
		}},
		{ServiceGetMessage, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceGetMessage, json.Unmarshal, json.Marshal, m.handleGetMessage)
		}},
		{ServiceListMessages, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceListMessages, json.Unmarshal, json.Marshal, m.handleListMessages)
		}},
		{ServiceUpdateMessageStatus, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceUpdateMessageStatus, json.Unmarshal, json.Marshal, m.handleUpdateMessageStatus)
		}},
		{ServiceGetMessageStatus, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceGetMessageStatus, json.Unmarshal, json.Marshal, m.handleGetMessageStatus)
		}},
		{ServiceRecordReceipt, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceRecordReceipt, json.Unmarshal, json.Marshal, m.handleRecordReceipt)
		}},
		{ServiceListReceipts, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceListReceipts, json.Unmarshal, json.Marshal, m.handleListReceipts)
		}},
		{ServiceMarkRead, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceMarkRead, json.Unmarshal, json.Marshal, m.handleMarkRead)
		}},
		{ServiceUpdatePresence, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceUpdatePresence, json.Unmarshal, json.Marshal, m.handleUpdatePresence)
		}},
		{ServiceGetPresence, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceGetPresence, json.Unmarshal, json.Marshal, m.handleGetPresence)
		}},
		{ServiceGetOnlineUsers, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceGetOnlineUsers, json.Unmarshal, json.Marshal, m.handleGetOnlineUsers)
		}},
		{ServiceListChats, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceListChats, json.Unmarshal, json.Marshal, m.handleListChats)
		}},
		{ServiceGetChat, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceGetChat, json.Unmarshal, json.Marshal, m.handleGetChat)
		}},
		{ServiceGetParticipants, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceGetParticipants, json.Unmarshal, json.Marshal, m.handleGetParticipants)
		}},
		{ServiceEnqueueMessage, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceEnqueueMessage, json.Unmarshal, json.Marshal, m.handleEnqueueMessage)
		}},
		{ServiceListQueued, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceListQueued, json.Unmarshal, json.Marshal, m.handleListQueued)
		}},
		{ServiceRemoveQueued, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceRemoveQueued, json.Unmarshal, json.Marshal, m.handleRemoveQueued)
		}},
		{ServiceCreateChild, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceCreateChild, json.Unmarshal, json.Marshal, m.handleCreateChild)
		}},
		{ServiceListChildren, func() error {
			return helper.RegisterTypedRequestReplyService(container, ServiceListChildren, json.Unmarshal, json.Marshal, m.handleListChildren)
		}},
	}

	for _, reg := range registrations {
		if err := reg.fn(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", reg.name, err)
		}
	}

	log.Printf("[chat] Registered %d store services", len(registrations))
	return nil
}

// Service handlers

func (m *ChatModule) handleCreateMessage(ctx context.Context, req CreateMessageRequest, _ *mono.Msg) (CreateMessageResponse, error) {
	msg, err := m.service.SendMessage(ctx, req.ChatID, req.SenderID, req.Content, req.Type, req.Attachments, req.ReplyTo)
	if err != nil {
		return CreateMessageResponse{}, err
	}
	return CreateMessageResponse{Message: NewMessagePayload(msg)}, nil
}

func (m *ChatModule) handleGetMessage(ctx context.Context, req GetMessageRequest, _ *mono.Msg) (GetMessageResponse, error) {
	msg, err := m.service.GetMessage(ctx, req.MessageID)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return GetMessageResponse{Found: false}, nil
		}
		return GetMessageResponse{}, err
	}
	return GetMessageResponse{Found: true, Message: NewMessagePayload(msg)}, nil
}

func (m *ChatModule) handleListMessages(ctx context.Context, req ListMessagesRequest, _ *mono.Msg) (ListMessagesResponse, error) {
	messages, err := m.service.ListMessages(ctx, req.ChatID, req.Limit, req.Offset)
	if err != nil {
		return ListMessagesResponse{}, err
	}
	resp := ListMessagesResponse{Messages: make([]MessageWithStatusPayload, 0, len(messages))}
	for _, mws := range messages {
		resp.Messages = append(resp.Messages, MessageWithStatusPayload{
			MessagePayload: NewMessagePayload(mws.Message),
			Status:         mws.Status,
		})
	}
	return resp, nil
}

func (m *ChatModule) handleUpdateMessageStatus(ctx context.Context, req UpdateMessageStatusRequest, _ *mono.Msg) (UpdateMessageStatusResponse, error) {
	if err := m.service.UpdateMessageStatus(ctx, req.MessageID, req.Status); err != nil {
		return UpdateMessageStatusResponse{}, err
	}
	return UpdateMessageStatusResponse{Success: true}, nil
}

func (m *ChatModule) handleGetMessageStatus(ctx context.Context, req GetMessageStatusRequest, _ *mono.Msg) (GetMessageStatusResponse, error) {
	status, err := m.service.GetMessageStatus(ctx, req.MessageID)
	if err != nil {
		return GetMessageStatusResponse{}, err
	}
	return GetMessageStatusResponse{MessageID: req.MessageID, Status: status}, nil
}

func (m *ChatModule) handleRecordReceipt(ctx context.Context, req RecordReceiptRequest, _ *mono.Msg) (RecordReceiptResponse, error) {
	if err := m.service.RecordReceipt(ctx, req.MessageID, req.UserID, req.ReceiptType); err != nil {
		return RecordReceiptResponse{}, err
	}
	return RecordReceiptResponse{Success: true}, nil
}

func (m *ChatModule) handleListReceipts(ctx context.Context, req ListReceiptsRequest, _ *mono.Msg) (ListReceiptsResponse, error) {
	receipts, err := m.service.ListReceipts(ctx, req.MessageID)
	if err != nil {
		return ListReceiptsResponse{}, err
	}
	resp := ListReceiptsResponse{Receipts: make([]ReceiptPayload, 0, len(receipts))}
	for _, r := range receipts {
		resp.Receipts = append(resp.Receipts, ReceiptPayload{
			ID:          r.ID,
			MessageID:   r.MessageID,
			UserID:      r.UserID,
			ReceiptType: r.ReceiptType,
			Timestamp:   r.Timestamp,
		})
	}
	return resp, nil
}

func (m *ChatModule) handleMarkRead(ctx context.Context, req MarkReadRequest, _ *mono.Msg) (MarkReadResponse, error) {
	if err := m.service.MarkMessageRead(ctx, req.MessageID, req.UserID); err != nil {
		return MarkReadResponse{}, err
	}
	return MarkReadResponse{Success: true}, nil
}

func (m *ChatModule) handleUpdatePresence(ctx context.Context, req UpdatePresenceRequest, _ *mono.Msg) (UpdatePresenceResponse, error) {
	if err := m.service.UpdatePresence(ctx, req.UserID, req.Status, req.SocketID); err != nil {
		return UpdatePresenceResponse{}, err
	}
	return UpdatePresenceResponse{Success: true}, nil
}

func (m *ChatModule) handleGetPresence(ctx context.Context, req GetPresenceRequest, _ *mono.Msg) (GetPresenceResponse, error) {
	presence, err := m.service.GetPresence(ctx, req.UserID)
	if err != nil {
		return GetPresenceResponse{}, err
	}
	if presence == nil {
		return GetPresenceResponse{Found: false}, nil
	}
	return GetPresenceResponse{
		Found:    true,
		UserID:   presence.UserID,
		Status:   presence.Status,
		LastSeen: presence.LastSeen,
	}, nil
}

func (m *ChatModule) handleGetOnlineUsers(ctx context.Context, _ GetOnlineUsersRequest, _ *mono.Msg) (GetOnlineUsersResponse, error) {
	userIDs, err := m.service.OnlineUsers(ctx)
	if err != nil {
		return GetOnlineUsersResponse{}, err
	}
	return GetOnlineUsersResponse{UserIDs: userIDs}, nil
}

func (m *ChatModule) handleListChats(ctx context.Context, req ListChatsRequest, _ *mono.Msg) (ListChatsResponse, error) {
	chats, err := m.service.ListChats(ctx, req.UserID)
	if err != nil {
		return ListChatsResponse{}, err
	}
	resp := ListChatsResponse{Chats: make([]ChatPayload, 0, len(chats))}
	for _, details := range chats {
		payload := ChatPayload{
			ID:           details.Chat.ID,
			Name:         details.Chat.Name,
			Type:         details.Chat.Type,
			ClassID:      details.Chat.ClassID,
			UnreadCount:  details.UnreadCount,
			Participants: details.Participants,
			CreatedAt:    details.Chat.CreatedAt,
			UpdatedAt:    details.Chat.UpdatedAt,
		}
		if details.LastMessage != nil {
			last := NewMessagePayload(details.LastMessage)
			payload.LastMessage = &last
		}
		resp.Chats = append(resp.Chats, payload)
	}
	return resp, nil
}

func (m *ChatModule) handleGetChat(ctx context.Context, req GetChatRequest, _ *mono.Msg) (GetChatResponse, error) {
	chat, err := m.service.GetChat(ctx, req.ChatID)
	if err != nil {
		if errors.Is(err, ErrChatNotFound) {
			return GetChatResponse{Found: false}, nil
		}
		return GetChatResponse{}, err
	}
	return GetChatResponse{
		Found: true,
		Chat: ChatPayload{
			ID:        chat.ID,
			Name:      chat.Name,
			Type:      chat.Type,
			ClassID:   chat.ClassID,
			CreatedAt: chat.CreatedAt,
			UpdatedAt: chat.UpdatedAt,
		},
	}, nil
}

func (m *ChatModule) handleGetParticipants(ctx context.Context, req GetParticipantsRequest, _ *mono.Msg) (GetParticipantsResponse, error) {
	userIDs, err := m.service.Participants(ctx, req.ChatID)
	if err != nil {
		return GetParticipantsResponse{}, err
	}
	return GetParticipantsResponse{UserIDs: userIDs}, nil
}

func (m *ChatModule) handleEnqueueMessage(ctx context.Context, req EnqueueMessageRequest, _ *mono.Msg) (EnqueueMessageResponse, error) {
	if err := m.service.EnqueueMessage(ctx, req.UserID, req.MessageID); err != nil {
		return EnqueueMessageResponse{}, err
	}
	return EnqueueMessageResponse{Success: true}, nil
}

func (m *ChatModule) handleListQueued(ctx context.Context, req ListQueuedRequest, _ *mono.Msg) (ListQueuedResponse, error) {
	messages, err := m.service.QueuedMessages(ctx, req.UserID)
	if err != nil {
		return ListQueuedResponse{}, err
	}
	resp := ListQueuedResponse{Messages: make([]MessagePayload, 0, len(messages))}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, NewMessagePayload(msg))
	}
	return resp, nil
}

func (m *ChatModule) handleRemoveQueued(ctx context.Context, req RemoveQueuedRequest, _ *mono.Msg) (RemoveQueuedResponse, error) {
	if err := m.service.RemoveQueuedMessage(ctx, req.UserID, req.MessageID); err != nil {
		return RemoveQueuedResponse{}, err
	}
	return RemoveQueuedResponse{Success: true}, nil
}

func (m *ChatModule) handleCreateChild(ctx context.Context, req CreateChildRequest, _ *mono.Msg) (CreateChildResponse, error) {
	child, err := m.service.AddChild(ctx, req.ParentID, req.Name, req.Grade, req.School)
	if err != nil {
		return CreateChildResponse{}, err
	}
	return CreateChildResponse{Child: ChildPayload{
		ID:        child.ID,
		Name:      child.Name,
		Grade:     child.Grade,
		School:    child.School,
		ParentID:  child.ParentID,
		CreatedAt: child.CreatedAt,
	}}, nil
}

func (m *ChatModule) handleListChildren(ctx context.Context, req ListChildrenRequest, _ *mono.Msg) (ListChildrenResponse, error) {
	children, err := m.service.ListChildren(ctx, req.ParentID)
	if err != nil {
		return ListChildrenResponse{}, err
	}
	resp := ListChildrenResponse{Children: make([]ChildPayload, 0, len(children))}
	for _, child := range children {
		resp.Children = append(resp.Children, ChildPayload{
			ID:        child.ID,
			Name:      child.Name,
			Grade:     child.Grade,
			School:    child.School,
			ParentID:  child.ParentID,
			CreatedAt: child.CreatedAt,
		})
	}
	return resp, nil
}
