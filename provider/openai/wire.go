package openai

import (
	"strings"
	"time"

	"github.com/casualjim/omnichat/messages"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
)

type chatRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	TopK           *int            `json:"top_k,omitempty"`
	Stream         bool            `json:"stream"`
	Tools          []toolParam     `json:"tools,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	Name       *string    `json:"name,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID *string    `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolParam struct {
	Type     string             `json:"type"`
	Function functionDefinition `json:"function"`
}

type functionDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletion struct {
	ID      string   `json:"id"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage"`
}

type choice struct {
	Index        int              `json:"index"`
	Message      *responseMessage `json:"message"`
	Delta        *responseMessage `json:"delta"`
	FinishReason *string          `json:"finish_reason"`
}

type responseMessage struct {
	Role         string        `json:"role"`
	Content      *string       `json:"content"`
	ToolCalls    []toolCall    `json:"tool_calls"`
	FunctionCall *functionCall `json:"function_call"`
	Refusal      *string       `json:"refusal"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func choiceAt(choices []choice, index int) (choice, bool) {
	for _, c := range choices {
		if c.Index == index {
			return c, true
		}
	}
	return choice{}, false
}

func hasChoices(c *chatCompletion) bool {
	return len(c.Choices) > 0
}

func createdAt(unix int64) strfmt.DateTime {
	if unix <= 0 {
		return strfmt.DateTime(time.Now().UTC())
	}
	return strfmt.DateTime(time.Unix(unix, 0).UTC())
}

// arguments turns the JSON encoded argument string into a structured node.
// Models occasionally emit invalid JSON; that text is kept as a JSON string.
func arguments(raw string) json.RawMessage {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return json.RawMessage(`{}`)
	}
	if gjson.Valid(raw) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}

func toolCalls(calls []messages.Tool) []toolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]toolCall, len(calls))
	for i, tc := range calls {
		out[i] = toolCall{
			ID:   tc.ID,
			Type: "function",
			Function: functionCall{
				Name:      tc.Name,
				Arguments: string(tc.Arguments()),
			},
		}
	}
	return out
}
