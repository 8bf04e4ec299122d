package openai

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/casualjim/omnichat/internal/wire"
	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/pkg/sse"
	"github.com/casualjim/omnichat/pkg/uuidx"
	"github.com/casualjim/omnichat/provider"
	"github.com/fogfish/opts"
)

var _ provider.Provider = (*Provider)(nil)

// Provider talks to any vendor exposing the OpenAI chat completions API.
type Provider struct {
	dialect      Dialect
	apiKey       string
	baseURL      string
	organization string
	project      string
	httpClient   *http.Client

	client *wire.Client
}

type Option = opts.Option[Provider]

var (
	WithAPIKey       = opts.ForName[Provider, string]("apiKey")
	WithBaseURL      = opts.ForName[Provider, string]("baseURL")
	WithOrganization = opts.ForName[Provider, string]("organization")
	WithProject      = opts.ForName[Provider, string]("project")
	WithHTTPClient   = opts.ForName[Provider, *http.Client]("httpClient")
)

// New creates a provider for api.openai.com.
func New(options ...Option) *Provider {
	return NewCompatible(OpenAI(), options...)
}

// NewCompatible creates a provider for an OpenAI compatible vendor.
func NewCompatible(dialect Dialect, options ...Option) *Provider {
	p := &Provider{
		dialect:    dialect,
		baseURL:    dialect.BaseURL,
		httpClient: http.DefaultClient,
	}
	if err := opts.Apply(p, options); err != nil {
		panic(err)
	}

	header := http.Header{}
	if dialect.Authorize != nil {
		dialect.Authorize(header, p.apiKey)
	}
	if p.organization != "" {
		header.Set("OpenAI-Organization", p.organization)
	}
	if p.project != "" {
		header.Set("OpenAI-Project", p.project)
	}
	p.client = &wire.Client{
		Vendor:     dialect.Name,
		HTTP:       p.httpClient,
		BaseURL:    p.baseURL,
		Header:     header,
		Query:      dialect.Query,
		RateLimits: dialect.RateLimits,
	}
	return p
}

func (p *Provider) Name() string {
	return p.dialect.Name
}

// Dialect returns the vendor description the provider was built with.
func (p *Provider) Dialect() Dialect {
	return p.dialect
}

func (p *Provider) GetChat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	body, err := p.buildRequest(&req, false)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Post(ctx, p.dialect.Path, body, false)
	if err != nil {
		return nil, err
	}

	var completion chatCompletion
	if err := p.client.DecodeJSON(ctx, resp, &completion); err != nil {
		return nil, err
	}
	return p.toResponse(&completion, resp.RateLimits)
}

func (p *Provider) StreamChat(ctx context.Context, req provider.ChatRequest) iter.Seq2[provider.ChunkResponse, error] {
	return func(yield func(provider.ChunkResponse, error) bool) {
		body, err := p.buildRequest(&req, true)
		if err != nil {
			yield(provider.ChunkResponse{}, err)
			return
		}

		resp, err := p.client.Post(ctx, p.dialect.Path, body, true)
		if err != nil {
			yield(provider.ChunkResponse{}, err)
			return
		}
		defer resp.Body.Close()

		for event, err := range sse.Decode(ctx, resp.Body, hasChoices) {
			if err != nil {
				yield(provider.ChunkResponse{}, wire.StreamError(ctx, p.Name(), err))
				return
			}
			c := event.Choices[0]
			chunk := provider.ChunkResponse{
				ID:           event.ID,
				CreatedAt:    createdAt(event.Created),
				FinishReason: FinishReasons.MapPtr(c.FinishReason),
			}
			if c.Delta != nil && c.Delta.Content != nil {
				chunk.Content = *c.Delta.Content
			}
			// role-only and other empty deltas carry no text
			if chunk.Content == "" && chunk.FinishReason == nil {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (p *Provider) validate(req *provider.ChatRequest, stream bool) error {
	d := p.dialect
	if err := req.Validate(); err != nil {
		return &provider.ValidationError{Provider: d.Name, Reason: err.Error()}
	}

	switch d.Model {
	case ModelForbidden:
		if req.Model != "" {
			return provider.Invalid(d.Name, "model", "must be empty, the deployment selects the model")
		}
	default:
		if req.Model == "" && d.DefaultModel == "" {
			return provider.Invalid(d.Name, "model", "is required")
		}
	}

	if req.HasFunctions() {
		if !d.Tools {
			return provider.Invalid(d.Name, "functions", "are not supported")
		}
		if stream && !d.StreamTools {
			return provider.Invalid(d.Name, "functions", "are not supported when streaming")
		}
	}
	if req.ResponseFormat == provider.JSONObject {
		if !d.JSONMode {
			return provider.Invalid(d.Name, "response format", "json_object is not supported")
		}
		if stream && !d.StreamJSONMode {
			return provider.Invalid(d.Name, "response format", "json_object is not supported when streaming")
		}
	}
	if req.TopK != nil && !d.TopK {
		return provider.Invalid(d.Name, "top_k", "is not supported")
	}
	if d.MaxTokensLimit > 0 && req.MaxTokens > d.MaxTokensLimit {
		return provider.Invalid(d.Name, "max_tokens", "must be at most %d, got %d", d.MaxTokensLimit, req.MaxTokens)
	}
	if err := provider.CheckRange(d.Name, "temperature", req.Temperature, 0, d.MaxTemperature, d.OpenTemperature); err != nil {
		return err
	}
	if err := provider.CheckRange(d.Name, "top_p", req.TopP, 0, 1, false); err != nil {
		return err
	}
	for _, m := range req.Messages {
		if !d.Roles.Supports(m.Role) {
			return provider.Invalid(d.Name, "role", "%q is not supported", m.Role.String())
		}
	}
	return nil
}

func (p *Provider) buildRequest(req *provider.ChatRequest, stream bool) (*chatRequest, error) {
	if err := p.validate(req, stream); err != nil {
		return nil, err
	}

	out := &chatRequest{
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		TopK:        req.TopK,
		Stream:      stream,
	}
	if p.dialect.Model != ModelForbidden {
		out.Model = req.Model
		if out.Model == "" {
			out.Model = p.dialect.DefaultModel
		}
	}

	for _, m := range req.Messages {
		role, err := p.dialect.Roles.ToWire(m.Role)
		if err != nil {
			return nil, err
		}
		cm := chatMessage{
			Role:       role,
			Content:    m.Content,
			ToolCalls:  toolCalls(m.ToolCalls),
			ToolCallID: m.ToolCallID,
		}
		if m.Role != messages.RoleTool {
			cm.Name = m.Name
		}
		out.Messages = append(out.Messages, cm)
	}

	for _, fn := range req.Functions {
		out.Tools = append(out.Tools, toolParam{
			Type: "function",
			Function: functionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Schema(),
			},
		})
	}

	if req.ResponseFormat == provider.JSONObject {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return out, nil
}

func (p *Provider) toResponse(completion *chatCompletion, limits *provider.RateLimits) (*provider.ChatResponse, error) {
	c, ok := choiceAt(completion.Choices, 0)
	if !ok || c.Message == nil {
		return nil, &provider.ProtocolError{Provider: p.Name(), Reason: "response has no choice with index 0"}
	}

	resp := &provider.ChatResponse{
		ID:         completion.ID,
		CreatedAt:  createdAt(completion.Created),
		Content:    c.Message.Content,
		Role:       messages.RoleAssistant,
		RateLimits: limits,
	}
	if resp.ID == "" {
		resp.ID = uuidx.NewString()
	}
	if c.Message.Role != "" {
		resp.Role = p.dialect.Roles.FromWire(c.Message.Role)
	}
	if c.FinishReason != nil {
		resp.FinishReason = FinishReasons.Map(*c.FinishReason)
	}
	if completion.Usage != nil {
		resp.Usage = provider.Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
		}
	}
	if resp.Content == nil && c.Message.Refusal != nil {
		resp.Content = c.Message.Refusal
	}

	for _, tc := range c.Message.ToolCalls {
		resp.Tools = append(resp.Tools, messages.Tool{
			ID:         tc.ID,
			Name:       tc.Function.Name,
			Parameters: arguments(tc.Function.Arguments),
		})
	}
	if fc := c.Message.FunctionCall; fc != nil && len(resp.Tools) == 0 {
		resp.Tools = append(resp.Tools, messages.Tool{
			ID:         fmt.Sprintf("%s-0", fc.Name),
			Name:       fc.Name,
			Parameters: arguments(fc.Arguments),
		})
	}

	slog.Debug("chat completion", slog.String("vendor", p.Name()), slog.String("id", resp.ID), slog.String("finish_reason", resp.FinishReason.String()), slog.Int("tools", len(resp.Tools)))
	return resp, nil
}
