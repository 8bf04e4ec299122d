package openai

import (
	"net/http"
	"net/url"

	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/provider"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"

	GPT4oMini = "gpt-4o-mini"
	GPT4o     = "gpt-4o"
	O1Mini    = "o1-mini"
	O1        = "o1"
)

// ModelPolicy says how a vendor treats the model field of a request.
type ModelPolicy int

const (
	// ModelRequired vendors need a model name on every request.
	ModelRequired ModelPolicy = iota
	// ModelForbidden vendors bind the model elsewhere (an Azure deployment) and reject one in the request.
	ModelForbidden
)

// Dialect describes an OpenAI compatible vendor: where to send requests, how to
// authenticate and which features it accepts.
type Dialect struct {
	Name       string
	BaseURL    string
	Path       string
	Query      url.Values
	Authorize  func(h http.Header, apiKey string)
	RateLimits provider.RateLimitHeaders
	Roles      provider.RoleTable

	Model        ModelPolicy
	DefaultModel string

	Tools          bool
	StreamTools    bool
	JSONMode       bool
	StreamJSONMode bool
	TopK           bool

	// MaxTemperature is inclusive unless OpenTemperature is set.
	MaxTemperature  float64
	OpenTemperature bool
	// MaxTokensLimit caps max tokens when positive.
	MaxTokensLimit int
}

// Roles is the role table shared by every vendor speaking the OpenAI chat format.
var Roles = provider.NewRoleTable("openai", map[messages.Role]string{
	messages.RoleSystem:    "system",
	messages.RoleUser:      "user",
	messages.RoleAssistant: "assistant",
	messages.RoleTool:      "tool",
})

// FinishReasons maps OpenAI finish reasons, including the legacy function_call.
var FinishReasons = provider.NewFinishReasons(map[string]provider.FinishReason{
	"stop":           provider.FinishStop,
	"length":         provider.FinishLength,
	"content_filter": provider.FinishContentFilter,
	"tool_calls":     provider.FinishTool,
	"function_call":  provider.FinishTool,
})

// BearerAuth sets a bearer token Authorization header.
func BearerAuth(h http.Header, apiKey string) {
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
}

// OpenAI is the dialect of api.openai.com itself.
func OpenAI() Dialect {
	return Dialect{
		Name:           "openai",
		BaseURL:        DefaultBaseURL,
		Path:           "chat/completions",
		Authorize:      BearerAuth,
		RateLimits:     provider.OpenAIRateLimitHeaders,
		Roles:          Roles,
		Model:          ModelRequired,
		DefaultModel:   GPT4oMini,
		Tools:          true,
		StreamTools:    true,
		JSONMode:       true,
		StreamJSONMode: true,
		MaxTemperature: 2,
	}
}
