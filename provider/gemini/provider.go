// Package gemini implements provider.Provider for the Google Gemini generateContent API.
//
// Assistant turns are sent with the "model" role, tool replies as function_response
// parts and tool calls as function_call parts. Gemini reports no call ids, so each
// call gets a synthesized "<name>-<index>" id. JSON mode is requested through the
// response MIME type. Streaming is not offered by this adapter.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/casualjim/omnichat/internal/wire"
	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/pkg/jsonx"
	"github.com/casualjim/omnichat/pkg/uuidx"
	"github.com/casualjim/omnichat/provider"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = Gemini15Flash

	Gemini15Flash = "gemini-1.5-flash"
	Gemini15Pro   = "gemini-1.5-pro"

	vendor = "gemini"
)

var roles = provider.NewRoleTable(vendor, map[messages.Role]string{
	messages.RoleUser:      "user",
	messages.RoleAssistant: "model",
	messages.RoleTool:      "function",
})

var finishReasons = provider.NewFinishReasons(map[string]provider.FinishReason{
	"stop":               provider.FinishStop,
	"max_tokens":         provider.FinishLength,
	"safety":             provider.FinishContentFilter,
	"recitation":         provider.FinishContentFilter,
	"blocklist":          provider.FinishContentFilter,
	"prohibited_content": provider.FinishContentFilter,
	"spii":               provider.FinishContentFilter,
}).CaseInsensitive()

// schema keywords the function declaration schema subset rejects
var unsupportedSchemaKeys = []string{"$schema", "$id", "$defs", "$ref", "definitions", "additionalProperties"}

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
	if p.apiKey != "" {
		header.Set("x-goog-api-key", p.apiKey)
	}
	p.client = &wire.Client{
		Vendor:  vendor,
		HTTP:    p.httpClient,
		BaseURL: p.baseURL,
		Header:  header,
	}
	return p
}

func (p *Provider) Name() string {
	return vendor
}

func (p *Provider) GetChat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	body, model, err := buildRequest(&req)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Post(ctx, "models/"+url.PathEscape(model)+":generateContent", body, false)
	if err != nil {
		return nil, err
	}
	var out generateContentResponse
	if err := p.client.DecodeJSON(ctx, resp, &out); err != nil {
		return nil, err
	}
	chat, err := toResponse(&out)
	if err != nil {
		return nil, err
	}
	chat.RateLimits = resp.RateLimits
	return chat, nil
}

// StreamChat always fails: this adapter offers no streaming path.
func (p *Provider) StreamChat(context.Context, provider.ChatRequest) iter.Seq2[provider.ChunkResponse, error] {
	return func(yield func(provider.ChunkResponse, error) bool) {
		yield(provider.ChunkResponse{}, provider.Invalid(vendor, "stream", "is not supported"))
	}
}

func validate(req *provider.ChatRequest) error {
	if err := req.Validate(); err != nil {
		return &provider.ValidationError{Provider: vendor, Reason: err.Error()}
	}
	if err := provider.CheckRange(vendor, "temperature", req.Temperature, 0, 2, false); err != nil {
		return err
	}
	return provider.CheckRange(vendor, "top_p", req.TopP, 0, 1, false)
}

func buildRequest(req *provider.ChatRequest) (*generateContentRequest, string, error) {
	if err := validate(req); err != nil {
		return nil, "", err
	}

	model := strings.TrimPrefix(req.Model, "models/")
	if model == "" {
		model = DefaultModel
	}
	out := &generateContentRequest{Model: "models/" + model}

	if system, ok := req.SystemPrompt(); ok {
		out.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	for i, m := range req.Conversation() {
		c, err := toContent(m)
		if err != nil {
			return nil, "", err
		}
		if len(c.Parts) == 0 {
			return nil, "", provider.Invalid(vendor, "messages", "message %d has no content", i)
		}
		if n := len(out.Contents); n > 0 && out.Contents[n-1].Role == c.Role {
			out.Contents[n-1].Parts = append(out.Contents[n-1].Parts, c.Parts...)
			continue
		}
		out.Contents = append(out.Contents, c)
	}

	if len(req.Functions) > 0 {
		decl := toolDecl{}
		for _, fn := range req.Functions {
			params, err := parameters(fn)
			if err != nil {
				return nil, "", err
			}
			decl.FunctionDeclarations = append(decl.FunctionDeclarations, functionDeclaration{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  params,
			})
		}
		out.Tools = []toolDecl{decl}
	}

	cfg := generationConfig{
		MaxOutputTokens: req.MaxTokens,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		TopK:            req.TopK,
	}
	if req.ResponseFormat == provider.JSONObject {
		cfg.ResponseMimeType = "application/json"
	}
	if cfg != (generationConfig{}) {
		out.GenerationConfig = &cfg
	}
	return out, model, nil
}

func toContent(m messages.Message) (content, error) {
	role, err := roles.ToWire(m.Role)
	if err != nil {
		return content{}, err
	}
	c := content{Role: role}

	if m.Role == messages.RoleTool {
		if m.Name == nil || *m.Name == "" {
			return content{}, provider.Invalid(vendor, "name", "is required on tool messages")
		}
		response, err := responseBody(m.Text())
		if err != nil {
			return content{}, err
		}
		c.Parts = append(c.Parts, part{FunctionResponse: &functionResponse{Name: *m.Name, Response: response}})
		return c, nil
	}

	if text := m.Text(); text != "" {
		c.Parts = append(c.Parts, part{Text: text})
	}
	for _, tc := range m.ToolCalls {
		c.Parts = append(c.Parts, part{FunctionCall: &functionCall{Name: tc.Name, Args: tc.Arguments()}})
	}
	return c, nil
}

// responseBody wraps a tool result into the object Gemini expects. JSON object
// results are passed through, anything else becomes {"content": text}.
func responseBody(text string) (json.RawMessage, error) {
	if trimmed := strings.TrimSpace(text); gjson.Valid(trimmed) && gjson.Parse(trimmed).IsObject() {
		return json.RawMessage(trimmed), nil
	}
	b, err := sjson.SetBytes([]byte(`{}`), "content", text)
	if err != nil {
		return nil, fmt.Errorf("%s: wrap tool result: %w", vendor, err)
	}
	return b, nil
}

func parameters(fn messages.Function) (map[string]any, error) {
	doc, err := jsonx.ToDynamicJSON(fn.Schema())
	if err != nil {
		return nil, fmt.Errorf("%s: convert parameters of %s: %w", vendor, fn.Name, err)
	}
	doc = jsonx.Prune(doc, unsupportedSchemaKeys...)
	// object schemas without properties are rejected, omit them entirely
	if props, ok := doc["properties"].(map[string]any); !ok || len(props) == 0 {
		return nil, nil
	}
	return doc, nil
}

func toResponse(out *generateContentResponse) (*provider.ChatResponse, error) {
	c, ok := candidateAt(out.Candidates, 0)
	if !ok {
		reason := "response has no candidate with index 0"
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			reason += ", prompt blocked: " + out.PromptFeedback.BlockReason
		}
		return nil, &provider.ProtocolError{Provider: vendor, Reason: reason}
	}

	resp := &provider.ChatResponse{
		ID:           uuidx.NewString(),
		CreatedAt:    strfmt.DateTime(time.Now().UTC()),
		Role:         messages.RoleAssistant,
		FinishReason: finishReasons.Map(c.FinishReason),
	}
	if out.UsageMetadata != nil {
		resp.Usage = provider.Usage{
			PromptTokens:     out.UsageMetadata.PromptTokenCount,
			CompletionTokens: out.UsageMetadata.CandidatesTokenCount,
		}
	}
	if c.Content != nil {
		if c.Content.Role != "" {
			resp.Role = roles.FromWire(c.Content.Role)
		}
		for _, pt := range c.Content.Parts {
			if pt.Text != nil && resp.Content == nil {
				text := *pt.Text
				resp.Content = &text
			}
			if pt.FunctionCall != nil {
				args := pt.FunctionCall.Args
				if len(args) == 0 {
					args = json.RawMessage(`{}`)
				}
				resp.Tools = append(resp.Tools, messages.Tool{
					ID:         fmt.Sprintf("%s-%d", pt.FunctionCall.Name, len(resp.Tools)),
					Name:       pt.FunctionCall.Name,
					Parameters: args,
				})
			}
		}
	}
	// Gemini reports STOP for turns that end in function calls
	if len(resp.Tools) > 0 && resp.FinishReason == provider.FinishStop {
		resp.FinishReason = provider.FinishTool
	}
	return resp, nil
}
