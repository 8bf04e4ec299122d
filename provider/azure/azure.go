// Package azure provides the Azure OpenAI dialect of the OpenAI chat provider.
// The model is bound by the deployment, so requests must leave it empty.
package azure

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/casualjim/omnichat/provider"
	"github.com/casualjim/omnichat/provider/openai"
)

const DefaultAPIVersion = "2024-02-01"

var rateLimits = provider.RateLimitHeaders{
	RemainingRequests: "x-ratelimit-remaining-requests",
	RemainingTokens:   "x-ratelimit-remaining-tokens",
}

// Config locates a deployment.
type Config struct {
	// Endpoint is the resource endpoint, e.g. https://my-resource.openai.azure.com
	Endpoint   string
	Deployment string
	APIVersion string
}

// Dialect returns the openai.Dialect for the deployment in cfg.
func Dialect(cfg Config) openai.Dialect {
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return openai.Dialect{
		Name:           "azure",
		BaseURL:        strings.TrimSuffix(cfg.Endpoint, "/") + "/openai/deployments/" + url.PathEscape(cfg.Deployment),
		Path:           "chat/completions",
		Query:          url.Values{"api-version": {version}},
		Authorize:      apiKeyAuth,
		RateLimits:     rateLimits,
		Roles:          openai.Roles,
		Model:          openai.ModelForbidden,
		Tools:          true,
		StreamTools:    true,
		JSONMode:       true,
		StreamJSONMode: true,
		MaxTemperature: 2,
	}
}

func apiKeyAuth(h http.Header, apiKey string) {
	if apiKey != "" {
		h.Set("api-key", apiKey)
	}
}

// New creates a provider for an Azure OpenAI deployment.
func New(cfg Config, options ...openai.Option) *openai.Provider {
	return openai.NewCompatible(Dialect(cfg), options...)
}
