package anthropic

import (
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

type messagesRequest struct {
	Model       string     `json:"model"`
	System      string     `json:"system,omitempty"`
	Messages    []turn     `json:"messages"`
	MaxTokens   int        `json:"max_tokens"`
	Temperature *float64   `json:"temperature,omitempty"`
	TopP        *float64   `json:"top_p,omitempty"`
	TopK        *int       `json:"top_k,omitempty"`
	Stream      bool       `json:"stream"`
	Tools       []toolSpec `json:"tools,omitempty"`
}

type turn struct {
	Role    string  `json:"role"`
	Content []block `json:"content"`
}

// block is the union of the content block shapes this adapter sends and reads.
type block struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type toolSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

type messageResponse struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Role       string  `json:"role"`
	Model      string  `json:"model"`
	Content    []block `json:"content"`
	StopReason *string `json:"stop_reason"`
	Usage      usage   `json:"usage"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Message *messageResponse `json:"message"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const (
	eventContentDelta = "content_block_delta"
	eventMessageStart = "message_start"
	eventError        = "error"
)

func relevant(e *streamEvent) bool {
	switch e.Type {
	case eventContentDelta:
		return e.Delta != nil
	case eventMessageStart, eventError:
		return true
	default:
		return false
	}
}
