package perplexity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/provider"
	"github.com/casualjim/omnichat/provider/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestPerplexity_Validation(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer server.Close()
	p := New(openai.WithBaseURL(server.URL), openai.WithHTTPClient(server.Client()))

	user := []messages.Message{messages.User("hi")}
	tests := []struct {
		name  string
		req   provider.ChatRequest
		field string
	}{
		{"tools", provider.ChatRequest{Messages: user, Functions: []messages.Function{messages.MustFunction("f", "", nil)}}, "functions"},
		{"json", provider.ChatRequest{Messages: user, ResponseFormat: provider.JSONObject}, "response format"},
		{"temperature upper bound is exclusive", provider.ChatRequest{Messages: user, Temperature: provider.Float(2)}, "temperature"},
		{"max tokens", provider.ChatRequest{Messages: user, MaxTokens: MaxTokens + 1}, "max_tokens"},
		{"tool role", provider.ChatRequest{Messages: append(user, messages.ToolResult(messages.Tool{ID: "1", Name: "f"}, "x"))}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.GetChat(context.Background(), tt.req)
			ve, ok := provider.AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.False(t, called)
}

func TestPerplexity_GetChat(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("x-ratelimit-remaining-requests", "5")
		fmt.Fprint(w, `{"id":"p","choices":[{"index":0,"message":{"role":"assistant","content":"Answer"},"finish_reason":"stop"}],"usage":{"prompt_tokens":4,"completion_tokens":2}}`)
	}))
	defer server.Close()
	p := New(openai.WithAPIKey("pplx"), openai.WithBaseURL(server.URL), openai.WithHTTPClient(server.Client()))

	resp, err := p.GetChat(context.Background(), provider.ChatRequest{
		Messages:    []messages.Message{messages.User("hi")},
		Temperature: provider.Float(1.99),
		TopK:        provider.Int(3),
		MaxTokens:   MaxTokens,
	})
	require.NoError(t, err)
	assert.Equal(t, "Answer", resp.Text())
	assert.Equal(t, &provider.RateLimits{}, resp.RateLimits)
	assert.Equal(t, Sonar, gjson.GetBytes(body, "model").String())
	assert.Equal(t, int64(3), gjson.GetBytes(body, "top_k").Int())
}
