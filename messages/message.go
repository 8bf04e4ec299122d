package messages

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUnknown   Role = "unknown"
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (r Role) String() string {
	if r == "" {
		return string(RoleUnknown)
	}
	return string(r)
}

// Valid reports whether r is one of the canonical roles a request may carry.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Message is a single turn in a conversation.
type Message struct {
	Role       Role    `json:"role"`
	Content    *string `json:"content,omitempty"`
	Name       *string `json:"name,omitempty"`
	ToolCalls  []Tool  `json:"tool_calls,omitempty"`
	ToolCallID *string `json:"tool_call_id,omitempty"`
}

// Tool is a function invocation requested by the model.
type Tool struct {
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// Arguments returns the raw parameters, or an empty JSON object when the model sent none.
func (t Tool) Arguments() json.RawMessage {
	if len(t.Parameters) == 0 {
		return json.RawMessage(`{}`)
	}
	return t.Parameters
}

// Text returns the content of the message or an empty string.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// Validate checks the structural rules a message must follow before it is sent.
func (m Message) Validate() error {
	var errs []error
	if !m.Role.Valid() {
		errs = append(errs, fmt.Errorf("unsupported role %q", m.Role))
	}
	if len(m.ToolCalls) > 0 && m.Role != RoleAssistant {
		errs = append(errs, fmt.Errorf("tool calls are only allowed on assistant messages, got %s", m.Role))
	}
	for _, tc := range m.ToolCalls {
		if tc.Name == "" {
			errs = append(errs, errors.New("tool call without a name"))
		}
	}
	if m.Role == RoleTool && m.ToolCallID == nil {
		errs = append(errs, errors.New("tool message requires a tool call id"))
	}
	return errors.Join(errs...)
}

// System creates a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: &content}
}

// User creates a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: &content}
}

// Assistant creates an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: &content}
}

// AssistantToolCalls creates the assistant turn that asked for the given tool calls.
// Content may be nil when the model produced no text alongside the calls.
func AssistantToolCalls(content *string, calls []Tool) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: append([]Tool(nil), calls...)}
}

// ToolResult creates the reply to a tool call.
func ToolResult(call Tool, result string) Message {
	id, name := call.ID, call.Name
	return Message{
		Role:       RoleTool,
		Content:    &result,
		Name:       &name,
		ToolCallID: &id,
	}
}

// Ptr returns a pointer to s; handy for optional content.
func Ptr(s string) *string {
	return &s
}
