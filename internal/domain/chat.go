package domain

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageKindError marks a terminal assistant message produced when an
// orchestration cycle fails.
const MessageKindError = "error"

// MessageMetadata is attached to an assistant message exactly once, at
// finalization (or when a terminal error message is appended).
type MessageMetadata struct {
	Kind       string     `json:"kind,omitempty"`
	Intent     IntentKind `json:"intent,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
}

// ChatMessage is a single entry in the conversation timeline. Once
// Streaming is false the message is immutable.
type ChatMessage struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Text      string           `json:"text"`
	CreatedAt time.Time        `json:"createdAt"`
	Streaming bool             `json:"streaming"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}
