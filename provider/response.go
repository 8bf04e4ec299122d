package provider

import (
	"github.com/casualjim/omnichat/messages"
	"github.com/go-openapi/strfmt"
)

// FinishReason is the canonical reason a completion ended.
type FinishReason int

const (
	FinishNone FinishReason = iota
	FinishStop
	FinishLength
	FinishContentFilter
	FinishTool
)

func (f FinishReason) String() string {
	switch f {
	case FinishStop:
		return "stop"
	case FinishLength:
		return "length"
	case FinishContentFilter:
		return "content_filter"
	case FinishTool:
		return "tool"
	default:
		return "none"
	}
}

// Usage counts the tokens spent on a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Total is always the sum of prompt and completion tokens, whatever the vendor reported.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// Add returns the element wise sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
	}
}

// ChatResponse is the canonical result of a non-streaming completion.
type ChatResponse struct {
	ID           string          `json:"id"`
	CreatedAt    strfmt.DateTime `json:"created_at"`
	Content      *string         `json:"content,omitempty"`
	FinishReason FinishReason    `json:"finish_reason"`
	Role         messages.Role   `json:"role"`
	Tools        []messages.Tool `json:"tools,omitempty"`
	Usage        Usage           `json:"usage"`
	RateLimits   *RateLimits     `json:"rate_limits,omitempty"`
}

// Text returns the content or an empty string.
func (r *ChatResponse) Text() string {
	if r == nil || r.Content == nil {
		return ""
	}
	return *r.Content
}

// ChunkResponse is one increment of a streaming completion.
type ChunkResponse struct {
	ID           string          `json:"id"`
	CreatedAt    strfmt.DateTime `json:"created_at"`
	Content      string          `json:"content"`
	FinishReason *FinishReason   `json:"finish_reason,omitempty"`
}
