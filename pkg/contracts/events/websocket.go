// Package events defines the messages pushed to websocket clients following
// a session. Every message is a JSON object with a type, the session it
// belongs to and a type specific data payload.
package events

import (
	"time"

	"github.com/google/uuid"

	"datacleaner/pkg/contracts/domain"
)

// ProtocolVersion is announced in the connect message.
const ProtocolVersion = "1.0"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeConnect is the first message a client receives.
	MessageTypeConnect MessageType = "connect"

	// MessageTypeOperation reports the result of a dataset operation.
	MessageTypeOperation MessageType = "operation"

	// MessageTypeSessionClosed is sent when a session is closed or expires.
	// The server closes the stream afterwards.
	MessageTypeSessionClosed MessageType = "session:closed"

	MessageTypeError MessageType = "error"
)

// Message levels, shared with conversion outcomes.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Message is the envelope of every websocket message.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// NewMessage stamps a message with a fresh ID and the current time.
func NewMessage(msgType MessageType, sessionID string, data interface{}) Message {
	return Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ConnectEvent acknowledges a subscription.
type ConnectEvent struct {
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
	Protocol string `json:"protocol"`
}

// OperationEvent describes one completed operation on a session dataset.
type OperationEvent struct {
	Operation string                    `json:"operation"`
	Level     string                    `json:"level"`
	Message   string                    `json:"message"`
	Column    string                    `json:"column,omitempty"`
	Rows      int                       `json:"rows"`
	Columns   int                       `json:"columns"`
	Outcome   *domain.ConversionOutcome `json:"outcome,omitempty"`
	Details   map[string]interface{}    `json:"details,omitempty"`
}

// SessionClosedEvent tells subscribers why their session ended.
type SessionClosedEvent struct {
	Reason string `json:"reason"`
}

// ErrorEvent reports a failed operation.
type ErrorEvent struct {
	Operation string `json:"operation"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}
