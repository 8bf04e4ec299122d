// Package perplexity provides the Perplexity dialect of the OpenAI chat provider.
// Perplexity accepts neither tools nor JSON mode and sends no rate limit headers.
package perplexity

import (
	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/provider"
	"github.com/casualjim/omnichat/provider/openai"
)

const (
	DefaultBaseURL = "https://api.perplexity.ai"

	// MaxTokens is the largest completion Perplexity accepts.
	MaxTokens = 4000

	Sonar    = "sonar"
	SonarPro = "sonar-pro"
)

var roles = provider.NewRoleTable("perplexity", map[messages.Role]string{
	messages.RoleSystem:    "system",
	messages.RoleUser:      "user",
	messages.RoleAssistant: "assistant",
})

// Dialect returns the Perplexity openai.Dialect.
func Dialect() openai.Dialect {
	return openai.Dialect{
		Name:            "perplexity",
		BaseURL:         DefaultBaseURL,
		Path:            "chat/completions",
		Authorize:       openai.BearerAuth,
		Roles:           roles,
		Model:           openai.ModelRequired,
		DefaultModel:    Sonar,
		TopK:            true,
		MaxTemperature:  2,
		OpenTemperature: true,
		MaxTokensLimit:  MaxTokens,
	}
}

// New creates a Perplexity provider.
func New(options ...openai.Option) *openai.Provider {
	return openai.NewCompatible(Dialect(), options...)
}
