// Package anthropic implements provider.Provider for the Anthropic Messages API.
//
// System messages are lifted into the top level system field, tool calls travel
// as tool_use blocks on assistant turns and tool replies as tool_result blocks on
// user turns. Consecutive turns of the same role are merged because the API
// requires user and assistant turns to alternate. JSON mode is not available and
// tools cannot be combined with streaming.
package anthropic

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/casualjim/omnichat/internal/wire"
	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/pkg/sse"
	"github.com/casualjim/omnichat/pkg/uuidx"
	"github.com/casualjim/omnichat/provider"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	APIVersion     = "2023-06-01"

	// DefaultMaxTokens is sent when the request leaves max tokens unset; the API requires one.
	DefaultMaxTokens = 4096

	Claude35Sonnet = "claude-3-5-sonnet-latest"
	Claude35Haiku  = "claude-3-5-haiku-latest"

	vendor = "anthropic"
)

var roles = provider.NewRoleTable(vendor, map[messages.Role]string{
	messages.RoleUser:      "user",
	messages.RoleAssistant: "assistant",
})

var finishReasons = provider.NewFinishReasons(map[string]provider.FinishReason{
	"end_turn":      provider.FinishStop,
	"stop_sequence": provider.FinishStop,
	"max_tokens":    provider.FinishLength,
	"tool_use":      provider.FinishTool,
	"refusal":       provider.FinishContentFilter,
})

var _ provider.Provider = (*Provider)(nil)

type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	client *wire.Client
}

type Option = opts.Option[Provider]

var (
	WithAPIKey     = opts.ForName[Provider, string]("apiKey")
	WithBaseURL    = opts.ForName[Provider, string]("baseURL")
	WithHTTPClient = opts.ForName[Provider, *http.Client]("httpClient")
)

func New(options ...Option) *Provider {
	p := &Provider{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}
	if err := opts.Apply(p, options); err != nil {
		panic(err)
	}

	header := http.Header{}
	header.Set("anthropic-version", APIVersion)
	if p.apiKey != "" {
		header.Set("x-api-key", p.apiKey)
	}
	p.client = &wire.Client{
		Vendor:     vendor,
		HTTP:       p.httpClient,
		BaseURL:    p.baseURL,
		Header:     header,
		RateLimits: provider.AnthropicRateLimitHeaders,
	}
	return p
}

func (p *Provider) Name() string {
	return vendor
}

func (p *Provider) GetChat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	body, err := buildRequest(&req, false)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Post(ctx, "messages", body, false)
	if err != nil {
		return nil, err
	}
	var msg messageResponse
	if err := p.client.DecodeJSON(ctx, resp, &msg); err != nil {
		return nil, err
	}
	if err := checkMessage(&msg); err != nil {
		return nil, err
	}
	return toResponse(&msg, resp.RateLimits), nil
}

// checkMessage rejects 2xx bodies that are not a message, or that carry
// neither content nor a stop reason.
func checkMessage(msg *messageResponse) error {
	if msg.Type != "message" {
		return &provider.ProtocolError{Provider: vendor, Reason: fmt.Sprintf("unexpected response type %q", msg.Type)}
	}
	if len(msg.Content) == 0 && msg.StopReason == nil {
		return &provider.ProtocolError{Provider: vendor, Reason: "message has no content and no stop reason"}
	}
	return nil
}

func (p *Provider) StreamChat(ctx context.Context, req provider.ChatRequest) iter.Seq2[provider.ChunkResponse, error] {
	return func(yield func(provider.ChunkResponse, error) bool) {
		body, err := buildRequest(&req, true)
		if err != nil {
			yield(provider.ChunkResponse{}, err)
			return
		}
		resp, err := p.client.Post(ctx, "messages", body, true)
		if err != nil {
			yield(provider.ChunkResponse{}, err)
			return
		}
		defer resp.Body.Close()

		id, created := "", strfmt.DateTime(time.Now().UTC())
		for event, err := range sse.Decode(ctx, resp.Body, relevant) {
			if err != nil {
				yield(provider.ChunkResponse{}, wire.StreamError(ctx, vendor, err))
				return
			}
			switch event.Type {
			case eventMessageStart:
				if event.Message != nil {
					id = event.Message.ID
				}
			case eventError:
				te := &provider.TransportError{Provider: vendor, Message: "stream error"}
				if event.Error != nil {
					te.Message = event.Error.Message
				}
				yield(provider.ChunkResponse{}, te)
				return
			case eventContentDelta:
				if !yield(provider.ChunkResponse{ID: id, CreatedAt: created, Content: event.Delta.Text}, nil) {
					return
				}
			}
		}
	}
}

func validate(req *provider.ChatRequest, stream bool) error {
	if err := req.Validate(); err != nil {
		return &provider.ValidationError{Provider: vendor, Reason: err.Error()}
	}
	if req.Model == "" {
		return provider.Invalid(vendor, "model", "is required")
	}
	if req.ResponseFormat == provider.JSONObject {
		return provider.Invalid(vendor, "response format", "json_object is not supported")
	}
	if stream && req.HasFunctions() {
		return provider.Invalid(vendor, "functions", "are not supported when streaming")
	}
	if err := provider.CheckRange(vendor, "temperature", req.Temperature, 0, 1, false); err != nil {
		return err
	}
	return provider.CheckRange(vendor, "top_p", req.TopP, 0, 1, false)
}

func buildRequest(req *provider.ChatRequest, stream bool) (*messagesRequest, error) {
	if err := validate(req, stream); err != nil {
		return nil, err
	}

	out := &messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		TopK:        req.TopK,
		Stream:      stream,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = DefaultMaxTokens
	}
	if system, ok := req.SystemPrompt(); ok {
		out.System = system
	}

	for i, m := range req.Conversation() {
		t, err := toTurn(m)
		if err != nil {
			return nil, err
		}
		if len(t.Content) == 0 {
			return nil, provider.Invalid(vendor, "messages", "message %d has no content", i)
		}
		if n := len(out.Messages); n > 0 && out.Messages[n-1].Role == t.Role {
			out.Messages[n-1].Content = append(out.Messages[n-1].Content, t.Content...)
			continue
		}
		out.Messages = append(out.Messages, t)
	}

	for _, fn := range req.Functions {
		out.Tools = append(out.Tools, toolSpec{
			Name:        fn.Name,
			Description: fn.Description,
			InputSchema: fn.Schema(),
		})
	}
	return out, nil
}

func toTurn(m messages.Message) (turn, error) {
	if m.Role == messages.RoleTool {
		id := ""
		if m.ToolCallID != nil {
			id = *m.ToolCallID
		}
		return turn{
			Role:    "user",
			Content: []block{{Type: "tool_result", ToolUseID: id, Content: m.Text()}},
		}, nil
	}

	role, err := roles.ToWire(m.Role)
	if err != nil {
		return turn{}, err
	}
	t := turn{Role: role}
	if text := m.Text(); text != "" {
		t.Content = append(t.Content, block{Type: "text", Text: text})
	}
	for _, tc := range m.ToolCalls {
		t.Content = append(t.Content, block{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Name,
			Input: tc.Arguments(),
		})
	}
	return t, nil
}

func toResponse(msg *messageResponse, limits *provider.RateLimits) *provider.ChatResponse {
	resp := &provider.ChatResponse{
		ID:         msg.ID,
		CreatedAt:  strfmt.DateTime(time.Now().UTC()),
		Role:       messages.RoleAssistant,
		RateLimits: limits,
		Usage: provider.Usage{
			PromptTokens:     msg.Usage.InputTokens,
			CompletionTokens: msg.Usage.OutputTokens,
		},
	}
	if resp.ID == "" {
		resp.ID = uuidx.NewString()
	}
	if msg.Role != "" {
		resp.Role = roles.FromWire(msg.Role)
	}
	if msg.StopReason != nil {
		resp.FinishReason = finishReasons.Map(*msg.StopReason)
	}
	for _, b := range msg.Content {
		switch b.Type {
		case "text":
			if resp.Content == nil {
				text := b.Text
				resp.Content = &text
			}
		case "tool_use":
			resp.Tools = append(resp.Tools, messages.Tool{
				ID:         b.ID,
				Name:       b.Name,
				Parameters: b.Input,
			})
		}
	}
	return resp
}
