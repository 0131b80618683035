package chat

import (
	"fmt"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleFunction  Role = "function"
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleFunction:
		return true
	}
	return false
}

// FunctionCall is a directive from the assistant requesting a capability
// invocation. Arguments is a JSON object serialized by the model.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one turn-unit in a conversation. Only assistant messages carry a
// FunctionCall, and only function messages carry a Name (the capability that
// produced the result).
type Message struct {
	Role         Role          `json:"role"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// Conversation is an ordered message list owned by the store. Ids are
// assigned by the store, never by callers.
type Conversation struct {
	ID        int       `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// GeneratedImage records one successful render. ConversationID is a weak
// back-reference; the store does not enforce that it exists.
type GeneratedImage struct {
	ID             int       `json:"id"`
	Prompt         string    `json:"prompt"`
	FilePath       string    `json:"filePath"`
	ConversationID *int      `json:"conversationId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ValidationError reports which field of an inbound message violated the
// schema, so the boundary can reject it before the pipeline runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s %s", e.Field, e.Reason)
}

// Validate checks an inbound message against the role schema. It returns a
// *ValidationError naming the offending field, or nil.
func (m *Message) Validate() error {
	if !m.Role.Valid() {
		return &ValidationError{Field: "role", Reason: fmt.Sprintf("must be one of user, assistant, system, function (got %q)", m.Role)}
	}
	if m.FunctionCall != nil && m.Role != RoleAssistant {
		return &ValidationError{Field: "function_call", Reason: "is only allowed on assistant messages"}
	}
	if m.Name != "" && m.Role != RoleFunction {
		return &ValidationError{Field: "name", Reason: "is only allowed on function messages"}
	}
	if m.Role == RoleFunction && m.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required on function messages"}
	}
	return nil
}
