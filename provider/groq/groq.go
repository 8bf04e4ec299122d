// Package groq provides the Groq dialect of the OpenAI chat provider.
// Groq cannot combine streaming with tools or JSON mode.
package groq

import (
	"github.com/casualjim/omnichat/provider"
	"github.com/casualjim/omnichat/provider/openai"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	Llama31_8B  = "llama-3.1-8b-instant"
	Llama33_70B = "llama-3.3-70b-versatile"
)

// Dialect returns the Groq openai.Dialect.
func Dialect() openai.Dialect {
	return openai.Dialect{
		Name:           "groq",
		BaseURL:        DefaultBaseURL,
		Path:           "chat/completions",
		Authorize:      openai.BearerAuth,
		RateLimits:     provider.OpenAIRateLimitHeaders,
		Roles:          openai.Roles,
		Model:          openai.ModelRequired,
		Tools:          true,
		StreamTools:    false,
		JSONMode:       true,
		StreamJSONMode: false,
		MaxTemperature: 2,
	}
}

// New creates a Groq provider.
func New(options ...openai.Option) *openai.Provider {
	return openai.NewCompatible(Dialect(), options...)
}
