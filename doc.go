/*
Package omnichat talks to OpenAI, Azure OpenAI, Groq, Perplexity, Anthropic and Gemini
chat models through one canonical request and response model.

The building blocks live in their own packages:

  - messages: roles, messages, tool calls and function declarations
  - provider: the Provider interface, canonical request and response types, errors
    and the per vendor adapters under provider/...
  - resilience: rate limiting, timeouts, retries honouring vendor rate limit hints
    and an optional circuit breaker
  - tool: Go functions and explicitly declared handlers the model may call
  - executor: the conversation loop that continues truncated answers and resolves tool calls
  - config: YAML and environment configuration

This package ties them together from a config.Config.

# Basic Usage

	cfg, err := config.Load("omnichat.yaml")
	if err != nil {
		return err
	}
	p, err := omnichat.Open(cfg, config.Anthropic)
	if err != nil {
		return err
	}
	exec := omnichat.NewExecutor(cfg, p, executor.WithTools(tools))
	history, err := exec.RunThread(ctx, []messages.Message{
		messages.System("You are terse."),
		messages.User("Summarize the weather in Lima"),
	})

# Structured Output

GetJSON and GetObject ask for a JSON object answer and keep asking the model to
continue until the object is complete:

	type forecast struct {
		City  string  `json:"city"`
		TempC float64 `json:"temp_c"`
	}
	f, err := executor.GetObject[forecast](ctx, exec, history)

# Errors

Every failure is typed: *provider.ValidationError for requests a vendor cannot
take (raised before any network call), *provider.TransportError for HTTP and network
failures, *provider.ProtocolError for answers that cannot be understood,
*provider.CancellationError for cancelled or timed out calls and
*executor.OrchestrationError when a conversation cannot make progress.
*/
package omnichat
