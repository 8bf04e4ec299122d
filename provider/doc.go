// Package provider implements the vendor-neutral contract for talking to LLM chat
// APIs (OpenAI, Azure OpenAI, Groq, Perplexity, Anthropic, Gemini). It defines the
// canonical request and response types, the error taxonomy and the lookup tables
// every adapter uses to translate roles, finish reasons and rate limit headers.
//
// Design decisions:
//   - Provider abstraction: one interface, one adapter per vendor under provider/<vendor>
//   - Pull based streaming: StreamChat returns an iter.Seq2 so the consumer controls
//     the pace and stopping early releases the connection
//   - Lookup tables: role and finish reason translation are data, not switch statements
//   - Typed errors: validation, transport, protocol and cancellation failures are
//     distinct types; IsTransient decides what the resilience layer may retry
//   - Derived totals: Usage.Total is computed, never trusted from the wire
//
// Key concepts:
//   - ChatRequest: messages, sampling parameters, functions and response format
//   - ChatResponse: content, tool calls, finish reason, usage and rate limits
//   - ChunkResponse: one text increment of a streamed completion
//   - RoleTable / FinishReasons: per vendor translation tables
//   - RateLimitHeaders: per vendor header names parsed into RateLimits
//
// Example usage:
//
//	p := openai.New(openai.WithAPIKey(key))
//	resp, err := p.GetChat(ctx, provider.ChatRequest{
//	    Model:    "gpt-4o-mini",
//	    Messages: []messages.Message{messages.User("Hello")},
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Text())
//
//	for chunk, err := range p.StreamChat(ctx, req) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Content)
//	}
//
// New vendors are added by implementing Provider in their own package and
// registering a constructor with the providers registry.
package provider
