/*
Package openai implements the provider.Provider interface for the OpenAI chat
completions API and for every vendor that speaks the same wire format.

# Design Decisions

  - Dialects: vendor differences (base URL, auth header, feature support,
    parameter ranges, rate limit headers) are data in a Dialect, not subclasses
  - Own the bytes: requests and responses are plain structs encoded with
    goccy/go-json, so the same decoder serves OpenAI, Azure, Groq and Perplexity
  - Validation before I/O: unsupported features fail with a
    provider.ValidationError and no request is sent
  - Thread Safe: a Provider holds no per-request state

# Available Models

Model name constants are provided for convenience:

  - GPT4oMini: the default when a request leaves the model empty
  - GPT4o
  - O1Mini
  - O1

# Vendors

New builds a provider for api.openai.com. NewCompatible accepts any Dialect;
the azure, groq and perplexity packages ship the dialects of those vendors:

	p := openai.New(
	    openai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
	    openai.WithOrganization("org-123"),
	)

	resp, err := p.GetChat(ctx, provider.ChatRequest{
	    Model:    openai.GPT4o,
	    Messages: []messages.Message{messages.User("Hello")},
	})

# Tool Calls

Functions declared on the request are sent as tools of type "function". Tool
calls in the answer come back as messages.Tool values with their arguments
decoded from the JSON encoded string OpenAI uses. The legacy function_call
field is understood as well.

# Streaming

StreamChat decodes the server-sent events with pkg/sse, skipping events with
no choices, and yields the content delta of the first choice together with its
finish reason when present.
*/
package openai
