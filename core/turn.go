package core

import (
	"time"

	"github.com/google/uuid"
)

// Conversation roles used throughout the system.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Turn is one message in a conversation. After being appended to a session it
// must be treated as immutable.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user, assistant or tool
	Content   Content   `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a bare turn with a fresh id and UTC timestamp.
func NewTurn(role string, content Content) Turn {
	return Turn{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserTurn creates a user-authored text turn.
func NewUserTurn(text string) Turn {
	return NewTurn(RoleUser, NewTextContent(RoleUser, text))
}

// NewAssistantTurn creates an assistant text turn.
func NewAssistantTurn(text string) Turn {
	return NewTurn(RoleAssistant, NewTextContent(RoleAssistant, text))
}

// NewFunctionCallTurn records an assistant turn requesting execution of a
// named tool.
func NewFunctionCallTurn(call FunctionCall) Turn {
	return NewTurn(RoleAssistant, Content{
		Role:  RoleAssistant,
		Parts: []Part{FunctionCallPart{FunctionCall: call}},
	})
}

// NewFunctionResponseTurn records the observation of a completed tool call.
func NewFunctionResponseTurn(resp FunctionResponse) Turn {
	return NewTurn(RoleTool, Content{
		Role:  RoleTool,
		Parts: []Part{FunctionResponsePart{FunctionResponse: resp}},
	})
}

// Text returns the concatenated text parts of the turn.
func (t Turn) Text() string { return t.Content.Text() }

// NewID generates a unique identifier for turns and invocations.
func NewID() string { return uuid.NewString() }
