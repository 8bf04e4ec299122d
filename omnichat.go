package omnichat

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/casualjim/omnichat/config"
	"github.com/casualjim/omnichat/executor"
	"github.com/casualjim/omnichat/provider"
	"github.com/casualjim/omnichat/provider/anthropic"
	"github.com/casualjim/omnichat/provider/azure"
	"github.com/casualjim/omnichat/provider/gemini"
	"github.com/casualjim/omnichat/provider/groq"
	"github.com/casualjim/omnichat/provider/openai"
	"github.com/casualjim/omnichat/provider/perplexity"
	"github.com/casualjim/omnichat/resilience"
	"github.com/fogfish/opts"
)

// DefaultModels is the model each vendor is asked for when the configuration names none.
var DefaultModels = map[string]string{
	config.OpenAI:     openai.GPT4oMini,
	config.Groq:       groq.Llama31_8B,
	config.Perplexity: perplexity.Sonar,
	config.Anthropic:  anthropic.Claude35Haiku,
	config.Gemini:     gemini.DefaultModel,
}

type settings struct {
	httpClient *http.Client
	raw        bool
}

type Option = opts.Option[settings]

var (
	// WithHTTPClient sets the client every vendor talks through.
	WithHTTPClient = opts.ForName[settings, *http.Client]("httpClient")
	// Raw skips the resilience pipeline.
	Raw = opts.ForName[settings, bool]("raw")
)

type factory func(cfg *config.Config, hc *http.Client) provider.Provider

var factories = map[string]factory{
	config.OpenAI: func(cfg *config.Config, hc *http.Client) provider.Provider {
		options := []openai.Option{
			openai.WithAPIKey(cfg.OpenAI.APIKey),
			openai.WithOrganization(cfg.OpenAI.Organization),
			openai.WithProject(cfg.OpenAI.Project),
			openai.WithHTTPClient(hc),
		}
		if cfg.OpenAI.BaseURL != "" {
			options = append(options, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return openai.New(options...)
	},
	config.Azure: func(cfg *config.Config, hc *http.Client) provider.Provider {
		return azure.New(azure.Config{
			Endpoint:   cfg.Azure.Endpoint,
			Deployment: cfg.Azure.Deployment,
			APIVersion: cfg.Azure.APIVersion,
		}, openai.WithAPIKey(cfg.Azure.APIKey), openai.WithHTTPClient(hc))
	},
	config.Groq: func(cfg *config.Config, hc *http.Client) provider.Provider {
		return groq.New(compatibleOptions(cfg.Groq, hc)...)
	},
	config.Perplexity: func(cfg *config.Config, hc *http.Client) provider.Provider {
		return perplexity.New(compatibleOptions(cfg.Perplexity, hc)...)
	},
	config.Anthropic: func(cfg *config.Config, hc *http.Client) provider.Provider {
		options := []anthropic.Option{anthropic.WithAPIKey(cfg.Anthropic.APIKey), anthropic.WithHTTPClient(hc)}
		if cfg.Anthropic.BaseURL != "" {
			options = append(options, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		return anthropic.New(options...)
	},
	config.Gemini: func(cfg *config.Config, hc *http.Client) provider.Provider {
		options := []gemini.Option{gemini.WithAPIKey(cfg.Gemini.APIKey), gemini.WithHTTPClient(hc)}
		if cfg.Gemini.BaseURL != "" {
			options = append(options, gemini.WithBaseURL(cfg.Gemini.BaseURL))
		}
		return gemini.New(options...)
	},
}

func compatibleOptions(vc config.VendorConfig, hc *http.Client) []openai.Option {
	options := []openai.Option{openai.WithAPIKey(vc.APIKey), openai.WithHTTPClient(hc)}
	if vc.BaseURL != "" {
		options = append(options, openai.WithBaseURL(vc.BaseURL))
	}
	return options
}

// Open builds the provider for vendor from cfg. Unless Raw is given the
// provider runs behind its own resilience pipeline.
func Open(cfg *config.Config, vendor string, options ...Option) (provider.Provider, error) {
	s := settings{httpClient: http.DefaultClient}
	if err := opts.Apply(&s, options); err != nil {
		return nil, err
	}
	build, ok := factories[vendor]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", vendor)
	}

	p := build(cfg, s.httpClient)
	if s.raw {
		return p, nil
	}
	return resilience.Wrap(p, resilience.New(cfg.Resilience)), nil
}

// Setup opens every vendor cfg holds credentials for and registers it with
// provider.Global. It returns the registered names.
func Setup(cfg *config.Config, options ...Option) ([]string, error) {
	var names []string
	for _, vendor := range config.Vendors {
		if !cfg.Configured(vendor) {
			continue
		}
		p, err := Open(cfg, vendor, options...)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", vendor, err)
		}
		provider.Register(p)
		names = append(names, vendor)
		slog.Debug("registered provider", slog.String("provider", vendor))
	}
	return names, nil
}

// Model returns the model configured for vendor, falling back to DefaultModels.
// Azure binds the model through the deployment and always yields "".
func Model(cfg *config.Config, vendor string) string {
	var model string
	switch vendor {
	case config.Azure:
		return ""
	case config.OpenAI:
		model = cfg.OpenAI.Model
	case config.Groq:
		model = cfg.Groq.Model
	case config.Perplexity:
		model = cfg.Perplexity.Model
	case config.Anthropic:
		model = cfg.Anthropic.Model
	case config.Gemini:
		model = cfg.Gemini.Model
	}
	if model == "" {
		model = DefaultModels[vendor]
	}
	return model
}

// NewExecutor creates an executor for p using the conversation settings of cfg.
// Extra options are applied last.
func NewExecutor(cfg *config.Config, p provider.Provider, extra ...executor.Option) *executor.Executor {
	options := []executor.Option{
		executor.WithModel(Model(cfg, p.Name())),
		executor.WithMaxTurns(cfg.Executor.MaxTurns),
		executor.WithMaxTokens(cfg.Executor.MaxTokens),
		executor.WithParallelTools(cfg.Executor.ParallelTools),
	}
	if cfg.Executor.ContinuePrompt != "" {
		options = append(options, executor.WithContinuePrompt(cfg.Executor.ContinuePrompt))
	}
	if cfg.Executor.Temperature != nil {
		options = append(options, executor.WithTemperature(*cfg.Executor.Temperature))
	}
	return executor.New(p, append(options, extra...)...)
}
