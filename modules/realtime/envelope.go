package realtime

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EnvelopeType identifies the kind of frame carried on the wire.
type EnvelopeType string

// Envelope types exchanged with clients. Presence frames are always
// server-originated.
const (
	EnvelopeAuth      EnvelopeType = "auth"
	EnvelopeMessage   EnvelopeType = "message"
	EnvelopeTyping    EnvelopeType = "typing"
	EnvelopePresence  EnvelopeType = "presence"
	EnvelopeReceipt   EnvelopeType = "receipt"
	EnvelopeHeartbeat EnvelopeType = "heartbeat"
	EnvelopeError     EnvelopeType = "error"
)

// Envelope is the frame exchanged over the WebSocket. Timestamp is
// milliseconds since epoch.
type Envelope struct {
	ID        string          `json:"id"`
	Type      EnvelopeType    `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// AuthPayload is the client request to authenticate a connection.
type AuthPayload struct {
	Token string `json:"token"`
}

// ConnectedPayload acknowledges a freshly accepted connection.
type ConnectedPayload struct {
	Status       string `json:"status"`
	ConnectionID string `json:"connectionId"`
}

// AuthenticatedPayload acknowledges a successful authentication.
type AuthenticatedPayload struct {
	Status string      `json:"status"`
	User   UserSummary `json:"user"`
}

// UserSummary is the public identity sent in authentication acks.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessagePayload is a chat message frame.
type MessagePayload struct {
	ID          string   `json:"id"`
	ChatID      string   `json:"chatId"`
	Content     string   `json:"content"`
	SenderID    string   `json:"senderId"`
	MessageType string   `json:"messageType"`
	Attachments []string `json:"attachments,omitempty"`
	ReplyTo     string   `json:"replyTo,omitempty"`
	Timestamp   int64    `json:"timestamp"`
}

// TypingPayload is a typing indicator frame.
type TypingPayload struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// PresencePayload is a server-originated presence change frame. LastSeen is
// set only for offline transitions.
type PresencePayload struct {
	UserID   string `json:"userId"`
	Status   string `json:"status"`
	LastSeen *int64 `json:"lastSeen,omitempty"`
}

// ReceiptPayload is a delivery/read receipt frame.
type ReceiptPayload struct {
	MessageID   string `json:"messageId"`
	ReceiptType string `json:"receiptType"`
	Timestamp   int64  `json:"timestamp"`
}

// ErrorPayload carries a protocol-level error to the client.
type ErrorPayload struct {
	Error string `json:"error"`
}

// newEnvelope wraps a payload in a fresh envelope. Marshal errors cannot
// occur for the payload types above, so the raw data is set best-effort.
func newEnvelope(envType EnvelopeType, payload any) Envelope {
	data, _ := json.Marshal(payload)
	return Envelope{
		ID:        uuid.New().String(),
		Type:      envType,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// encode serializes an envelope for the wire.
func encode(env Envelope) []byte {
	data, _ := json.Marshal(env)
	return data
}

// decodeEnvelope parses an inbound frame.
func decodeEnvelope(raw []byte, env *Envelope) error {
	return json.Unmarshal(raw, env)
}

// decodePayload parses an envelope's data object into a payload struct.
func decodePayload(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(data, v)
}
