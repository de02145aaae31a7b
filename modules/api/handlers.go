package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/go-monolith/mono/pkg/helper"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	chatdomain "github.com/robertkruk/parent-connect-app/domain/chat"
	domain "github.com/robertkruk/parent-connect-app/domain/user"
	"github.com/robertkruk/parent-connect-app/modules/auth"
	"github.com/robertkruk/parent-connect-app/modules/chat"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	m.app.Get("/", m.serviceInfo)
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	api := m.app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", m.register)
	authRoutes.Post("/login", m.login)
	authRoutes.Post("/refresh", m.refresh)

	requireAuth := AuthMiddleware(m.authAdapter)

	users := api.Group("/users", requireAuth)
	users.Get("/me", m.me)
	users.Get("/presence", m.myPresence)
	users.Get("/online", m.onlineUsers)

	children := api.Group("/children", requireAuth)
	children.Post("/", m.createChild)
	children.Get("/", m.listChildren)

	chats := api.Group("/chats", requireAuth)
	chats.Get("/", m.listChats)
	chats.Get("/:id", m.getChat)
	chats.Get("/:id/messages", m.listMessages)
	chats.Post("/:id/messages", m.sendMessage)
	chats.Post("/:id/messages/:messageId/read", m.markRead)

	messages := api.Group("/messages", requireAuth)
	messages.Get("/:id/status", m.messageStatus)
	messages.Get("/:id/receipts", m.messageReceipts)

	ws := api.Group("/websocket", requireAuth)
	ws.Get("/stats", m.websocketStats)
}

// serviceInfo handles GET /.
func (m *APIModule) serviceInfo(c *fiber.Ctx) error {
	return c.JSON(ServiceInfoResponse{
		Message: "ParentConnect API",
		Version: "1.0.0",
		Status:  "running",
		Features: map[string]bool{
			"realTime":      true,
			"webSocket":     true,
			"messageStatus": true,
			"userPresence":  true,
		},
	})
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	stats := m.router.Stats()
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":      "api",
			"connections": stats.TotalConnections,
		},
	})
}

// handleWebSocket handles WebSocket connections at /ws. Each connection gets
// its own read loop; frame interpretation lives in the realtime router.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	ctx := context.Background()
	connID := m.router.HandleConnect(c)
	defer m.router.HandleDisconnect(ctx, connID)

	log.Printf("[api] WebSocket client connected: %s", connID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] WebSocket client %s closed connection", connID)
			} else {
				log.Printf("[api] WebSocket read error from %s: %v", connID, err)
			}
			return
		}
		m.router.HandleEnvelope(ctx, connID, raw)
	}
}

// register handles POST /api/auth/register.
func (m *APIModule) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email and password are required",
		})
	}

	authReq := auth.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	}
	var resp auth.RegisterResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		m.authContainer,
		auth.ServiceRegister,
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return m.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Success:      true,
		Token:        resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		User: UserResponse{
			ID:         resp.ID,
			Name:       resp.Name,
			Email:      resp.Email,
			Phone:      resp.Phone,
			IsVerified: resp.IsVerified,
			CreatedAt:  resp.CreatedAt,
		},
	})
}

// login handles POST /api/auth/login.
func (m *APIModule) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email and password are required",
		})
	}

	authReq := auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	}
	var resp auth.LoginResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		m.authContainer,
		auth.ServiceLogin,
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return m.handleAuthError(c, err)
	}

	return c.JSON(AuthResponse{
		Success:      true,
		Token:        resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		User: UserResponse{
			ID:         resp.ID,
			Name:       resp.Name,
			Email:      resp.Email,
			Phone:      resp.Phone,
			IsVerified: resp.IsVerified,
		},
	})
}

// refresh handles POST /api/auth/refresh.
func (m *APIModule) refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Refresh token is required",
		})
	}

	authReq := auth.RefreshRequest{RefreshToken: req.RefreshToken}
	var resp auth.RefreshResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		m.authContainer,
		auth.ServiceRefreshToken,
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}

	return c.JSON(TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
	})
}

// me handles GET /api/users/me.
func (m *APIModule) me(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := m.authAdapter.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve user profile",
		})
	}

	children, err := m.chatAdapter.ListChildren(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve children",
		})
	}

	return c.JSON(ProfileResponse{
		UserResponse: UserResponse{
			ID:         user.ID,
			Name:       user.Name,
			Email:      user.Email,
			Phone:      user.Phone,
			Avatar:     user.Avatar,
			IsVerified: user.IsVerified,
			CreatedAt:  user.CreatedAt,
		},
		Children: children,
	})
}

// myPresence handles GET /api/users/presence.
func (m *APIModule) myPresence(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}

	presence, err := m.chatAdapter.GetPresence(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve presence",
		})
	}
	if presence == nil {
		return c.JSON(PresenceResponse{
			UserID: claims.UserID,
			Status: string(chatdomain.PresenceOffline),
		})
	}

	return c.JSON(PresenceResponse{
		UserID:   presence.UserID,
		Status:   string(presence.Status),
		LastSeen: presence.LastSeen,
	})
}

// onlineUsers handles GET /api/users/online.
func (m *APIModule) onlineUsers(c *fiber.Ctx) error {
	userIDs, err := m.chatAdapter.OnlineUsers(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve online users",
		})
	}
	return c.JSON(OnlineUsersResponse{UserIDs: userIDs})
}

// createChild handles POST /api/children.
func (m *APIModule) createChild(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateChildRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Name == "" || req.Grade == "" || req.School == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Name, grade, and school are required",
		})
	}

	child, err := m.chatAdapter.CreateChild(c.UserContext(), claims.UserID, req.Name, req.Grade, req.School)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "create_failed",
			Message: "Failed to create child",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(child)
}

// listChildren handles GET /api/children.
func (m *APIModule) listChildren(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}

	children, err := m.chatAdapter.ListChildren(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list children",
		})
	}
	return c.JSON(children)
}

// listChats handles GET /api/chats.
func (m *APIModule) listChats(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}

	chats, err := m.chatAdapter.ListChats(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list chats",
		})
	}
	return c.JSON(chats)
}

// getChat handles GET /api/chats/:id.
func (m *APIModule) getChat(c *fiber.Ctx) error {
	chatInfo, err := m.chatAdapter.GetChat(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "not_found",
				Message: "Chat not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve chat",
		})
	}
	return c.JSON(chatInfo)
}

// listMessages handles GET /api/chats/:id/messages.
func (m *APIModule) listMessages(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	messages, err := m.chatAdapter.ListMessages(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list messages",
		})
	}
	return c.JSON(messages)
}

// sendMessage handles POST /api/chats/:id/messages.
func (m *APIModule) sendMessage(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	msgType := chatdomain.MessageType(req.Type)
	if req.Type == "" {
		msgType = chatdomain.MessageTypeText
	}

	msg, err := m.chatAdapter.CreateMessage(c.UserContext(), c.Params("id"), claims.UserID, req.Content, msgType, req.Attachments, req.ReplyTo)
	if err != nil {
		return m.handleChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// markRead handles POST /api/chats/:id/messages/:messageId/read.
func (m *APIModule) markRead(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}

	if err := m.chatAdapter.MarkRead(c.UserContext(), c.Params("messageId"), claims.UserID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "update_failed",
			Message: "Failed to mark message as read",
		})
	}
	return c.JSON(SuccessResponse{Success: true})
}

// messageStatus handles GET /api/messages/:id/status.
func (m *APIModule) messageStatus(c *fiber.Ctx) error {
	messageID := c.Params("id")
	status, err := m.chatAdapter.GetMessageStatus(c.UserContext(), messageID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve message status",
		})
	}
	return c.JSON(MessageStatusResponse{
		MessageID: messageID,
		Status:    string(status),
	})
}

// messageReceipts handles GET /api/messages/:id/receipts.
func (m *APIModule) messageReceipts(c *fiber.Ctx) error {
	receipts, err := m.chatAdapter.ListReceipts(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve receipts",
		})
	}
	return c.JSON(receipts)
}

// websocketStats handles GET /api/websocket/stats.
func (m *APIModule) websocketStats(c *fiber.Ctx) error {
	return c.JSON(m.router.Stats())
}

// currentClaims returns the claims stored by AuthMiddleware.
func currentClaims(c *fiber.Ctx) (*domain.Claims, bool) {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	return claims, ok
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}

// handleAuthError maps auth service failures to HTTP responses without
// exposing internals.
func (m *APIModule) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "invalid email or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid email or password",
		})
	case strings.Contains(errStr, "user with this email already exists"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User with this email already exists",
		})
	case strings.Contains(errStr, "invalid email format"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid email format",
		})
	case strings.Contains(errStr, "name is required"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Name is required",
		})
	case strings.Contains(errStr, "password must be at least"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Password must be at least 8 characters",
		})
	case strings.Contains(errStr, "password must be at most"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Password must be at most 72 characters",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Authentication service error",
		})
	}
}

// handleChatError maps store validation failures to HTTP responses.
func (m *APIModule) handleChatError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "chat not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Chat not found",
		})
	case strings.Contains(errStr, "content cannot be empty"),
		strings.Contains(errStr, "exceeds maximum length"),
		strings.Contains(errStr, "invalid characters"),
		strings.Contains(errStr, "unknown message type"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid message",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to send message",
		})
	}
}
