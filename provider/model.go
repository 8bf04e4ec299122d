package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/casualjim/omnichat/messages"
)

// Provider defines the interface for LLM vendors (e.g., OpenAI, Anthropic, Gemini).
// Implementations translate the canonical request into the vendor wire format,
// perform the call and translate the answer back, so callers never see vendor types.
type Provider interface {
	// Name is the vendor name used in errors and logs.
	Name() string

	// GetChat performs a single non-streaming completion.
	GetChat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// StreamChat performs a streaming completion. The sequence ends after the
	// vendor's end-of-stream marker, after the first error, or when the caller
	// stops ranging over it.
	StreamChat(ctx context.Context, req ChatRequest) iter.Seq2[ChunkResponse, error]
}

// ResponseFormat selects between free text and a JSON object answer.
type ResponseFormat int

const (
	Text ResponseFormat = iota
	JSONObject
)

func (f ResponseFormat) String() string {
	if f == JSONObject {
		return "json_object"
	}
	return "text"
}

// ChatRequest encapsulates the parameters of a chat completion.
type ChatRequest struct {
	// Messages is the conversation so far, oldest first.
	Messages []messages.Message

	// Model names the vendor model. Some vendors bind the model elsewhere and
	// require this to be empty.
	Model string

	// MaxTokens caps the completion length; zero leaves it to the vendor.
	MaxTokens int

	Temperature *float64
	TopP        *float64
	TopK        *int

	// Functions are the callables the model may request.
	Functions []messages.Function

	ResponseFormat ResponseFormat

	// Stream is set by the adapters themselves; callers pick GetChat or StreamChat.
	Stream bool
}

// Validate checks the vendor independent rules of a request.
func (r *ChatRequest) Validate() error {
	var errs []error
	if len(r.Messages) == 0 {
		errs = append(errs, errors.New("at least one message is required"))
	}
	for i, m := range r.Messages {
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("message %d: %w", i, err))
		}
	}
	seen := make(map[string]struct{}, len(r.Functions))
	for _, fn := range r.Functions {
		if !messages.ValidFunctionName(fn.Name) {
			errs = append(errs, fmt.Errorf("invalid function name %q", fn.Name))
		}
		if _, dup := seen[fn.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate function %q", fn.Name))
		}
		seen[fn.Name] = struct{}{}
	}
	if r.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max tokens must not be negative, got %d", r.MaxTokens))
	}
	if r.TopK != nil && *r.TopK < 0 {
		errs = append(errs, fmt.Errorf("top k must not be negative, got %d", *r.TopK))
	}
	return errors.Join(errs...)
}

// HasFunctions reports whether the request declares any function.
func (r *ChatRequest) HasFunctions() bool {
	return len(r.Functions) > 0
}

// SystemPrompt joins the content of every system message with newlines.
// Vendors with a dedicated system field use it instead of a system turn.
func (r *ChatRequest) SystemPrompt() (string, bool) {
	var parts []string
	for _, m := range r.Messages {
		if m.Role == messages.RoleSystem && m.Content != nil {
			parts = append(parts, *m.Content)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}

// Conversation returns the messages without the system turns.
func (r *ChatRequest) Conversation() []messages.Message {
	out := make([]messages.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		if m.Role != messages.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// CheckRange validates an optional float parameter against [lo, hi].
// When open is true the upper bound is exclusive.
func CheckRange(vendor, field string, v *float64, lo, hi float64, open bool) error {
	if v == nil {
		return nil
	}
	if *v < lo || *v > hi || (open && *v == hi) {
		bound := "]"
		if open {
			bound = ")"
		}
		return Invalid(vendor, field, "must be in [%g, %g%s, got %g", lo, hi, bound, *v)
	}
	return nil
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
