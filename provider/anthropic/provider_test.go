package anthropic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/provider"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(WithAPIKey("ant-key"), WithBaseURL(server.URL), WithHTTPClient(server.Client()))
}

func TestProvider_GetChat(t *testing.T) {
	var body []byte
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "ant-key", r.Header.Get("x-api-key"))
		assert.Equal(t, APIVersion, r.Header.Get("anthropic-version"))
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("anthropic-ratelimit-requests-remaining", "49")
		w.Header().Set("anthropic-ratelimit-requests-reset", "30")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"Bonjour"}],"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":3}}`)
	})

	resp, err := p.GetChat(context.Background(), provider.ChatRequest{
		Model: Claude35Haiku,
		Messages: []messages.Message{
			messages.System("translate to french"),
			messages.User("Hello"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, "Bonjour", resp.Text())
	assert.Equal(t, provider.FinishStop, resp.FinishReason)
	assert.Equal(t, messages.RoleAssistant, resp.Role)
	assert.Equal(t, 15, resp.Usage.Total())
	require.NotNil(t, resp.RateLimits)
	assert.Equal(t, 49, resp.RateLimits.RemainingRequests)

	assert.Equal(t, "translate to french", gjson.GetBytes(body, "system").String())
	assert.Equal(t, int64(DefaultMaxTokens), gjson.GetBytes(body, "max_tokens").Int())
	assert.Equal(t, int64(1), gjson.GetBytes(body, "messages.#").Int())
	assert.Equal(t, "user", gjson.GetBytes(body, "messages.0.role").String())
	assert.Equal(t, "text", gjson.GetBytes(body, "messages.0.content.0.type").String())
	assert.Equal(t, "Hello", gjson.GetBytes(body, "messages.0.content.0.text").String())
	assert.False(t, gjson.GetBytes(body, "stream").Bool())
}

func TestProvider_GetChat_ForcesStreamOff(t *testing.T) {
	var body []byte
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"id":"msg_3","type":"message","role":"assistant","content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn"}`)
	})

	resp, err := p.GetChat(context.Background(), provider.ChatRequest{
		Model:    Claude35Haiku,
		Messages: []messages.Message{messages.User("Hello")},
		Stream:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.True(t, gjson.GetBytes(body, "stream").Exists())
	assert.False(t, gjson.GetBytes(body, "stream").Bool())
	assert.Equal(t, &provider.RateLimits{}, resp.RateLimits)
}

func TestProvider_GetChat_MalformedMessage(t *testing.T) {
	tests := map[string]string{
		"empty object":       `{}`,
		"wrong type":         `{"type":"error","error":{"type":"overloaded_error"}}`,
		"no content or stop": `{"id":"msg_4","type":"message","role":"assistant","content":[]}`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, payload)
			})
			resp, err := p.GetChat(context.Background(), provider.ChatRequest{
				Model:    Claude35Haiku,
				Messages: []messages.Message{messages.User("Hello")},
			})
			assert.Nil(t, resp)
			var pe *provider.ProtocolError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "anthropic", pe.Provider)
		})
	}
}

func TestProvider_GetChat_ToolRoundTrip(t *testing.T) {
	var body []byte
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"id":"msg_2","type":"message","role":"assistant","content":[{"type":"text","text":"checking"},{"type":"tool_use","id":"toolu_9","name":"get_weather","input":{"city":"Oslo"}}],"stop_reason":"tool_use","usage":{"input_tokens":1,"output_tokens":1}}`)
	})

	history := []messages.Message{
		messages.User("weather in Paris and Rome?"),
		messages.AssistantToolCalls(messages.Ptr("looking"), []messages.Tool{
			{ID: "toolu_1", Name: "get_weather", Parameters: json.RawMessage(`{"city":"Paris"}`)},
			{ID: "toolu_2", Name: "get_weather", Parameters: json.RawMessage(`{"city":"Rome"}`)},
		}),
		messages.ToolResult(messages.Tool{ID: "toolu_1", Name: "get_weather"}, "sunny"),
		messages.ToolResult(messages.Tool{ID: "toolu_2", Name: "get_weather"}, "cloudy"),
	}
	resp, err := p.GetChat(context.Background(), provider.ChatRequest{
		Model:     Claude35Sonnet,
		Messages:  history,
		Functions: []messages.Function{messages.MustFunction("get_weather", "weather", nil)},
	})
	require.NoError(t, err)

	assert.Equal(t, provider.FinishTool, resp.FinishReason)
	assert.Equal(t, "checking", resp.Text())
	require.Len(t, resp.Tools, 1)
	assert.Equal(t, "toolu_9", resp.Tools[0].ID)
	assert.JSONEq(t, `{"city":"Oslo"}`, string(resp.Tools[0].Parameters))

	// user, assistant, merged tool results
	assert.Equal(t, int64(3), gjson.GetBytes(body, "messages.#").Int())
	assistant := gjson.GetBytes(body, "messages.1")
	assert.Equal(t, "assistant", assistant.Get("role").String())
	assert.Equal(t, "text", assistant.Get("content.0.type").String())
	assert.Equal(t, "tool_use", assistant.Get("content.1.type").String())
	assert.Equal(t, "toolu_1", assistant.Get("content.1.id").String())
	assert.Equal(t, "Paris", assistant.Get("content.1.input.city").String())

	results := gjson.GetBytes(body, "messages.2")
	assert.Equal(t, "user", results.Get("role").String())
	assert.Equal(t, int64(2), results.Get("content.#").Int())
	assert.Equal(t, "tool_result", results.Get("content.0.type").String())
	assert.Equal(t, "toolu_1", results.Get("content.0.tool_use_id").String())
	assert.Equal(t, "sunny", results.Get("content.0.content").String())
	assert.Equal(t, "toolu_2", results.Get("content.1.tool_use_id").String())

	assert.Equal(t, "get_weather", gjson.GetBytes(body, "tools.0.name").String())
	assert.Equal(t, "object", gjson.GetBytes(body, "tools.0.input_schema.type").String())
}

func TestProvider_FinishReasons(t *testing.T) {
	tests := map[string]provider.FinishReason{
		"end_turn":      provider.FinishStop,
		"stop_sequence": provider.FinishStop,
		"max_tokens":    provider.FinishLength,
		"tool_use":      provider.FinishTool,
		"refusal":       provider.FinishContentFilter,
		"pause_turn":    provider.FinishNone,
	}
	for token, want := range tests {
		t.Run(token, func(t *testing.T) {
			resp := toResponse(&messageResponse{StopReason: &token}, nil)
			assert.Equal(t, want, resp.FinishReason)
		})
	}
}

func TestProvider_Validation(t *testing.T) {
	called := false
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	user := []messages.Message{messages.User("hi")}

	_, err := p.GetChat(context.Background(), provider.ChatRequest{Messages: user})
	ve, ok := provider.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "model", ve.Field)

	_, err = p.GetChat(context.Background(), provider.ChatRequest{Model: Claude35Haiku, Messages: user, ResponseFormat: provider.JSONObject})
	_, ok = provider.AsValidationError(err)
	assert.True(t, ok)

	_, err = p.GetChat(context.Background(), provider.ChatRequest{Model: Claude35Haiku, Messages: user, Temperature: provider.Float(1.5)})
	ve, ok = provider.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "temperature", ve.Field)

	var errs []error
	for _, err := range p.StreamChat(context.Background(), provider.ChatRequest{
		Model:     Claude35Haiku,
		Messages:  user,
		Functions: []messages.Function{messages.MustFunction("f", "", nil)},
	}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	_, ok = provider.AsValidationError(errs[0])
	assert.True(t, ok)
	assert.False(t, called)
}

func TestProvider_StreamChat(t *testing.T) {
	var body []byte
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		events := []struct{ name, data string }{
			{"message_start", `{"type":"message_start","message":{"id":"msg_s","role":"assistant","content":[]}}`},
			{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`},
			{"ping", `{"type":"ping"}`},
			{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"He"}}`},
			{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"llo"}}`},
			{"content_block_stop", `{"type":"content_block_stop","index":0}`},
			{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`},
			{"message_stop", `{"type":"message_stop"}`},
		}
		for _, e := range events {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, e.data)
		}
	})

	var chunks []string
	for chunk, err := range p.StreamChat(context.Background(), provider.ChatRequest{Model: Claude35Haiku, Messages: []messages.Message{messages.User("hi")}}) {
		require.NoError(t, err)
		assert.Equal(t, "msg_s", chunk.ID)
		chunks = append(chunks, chunk.Content)
	}
	assert.Equal(t, []string{"He", "llo"}, chunks)
	assert.True(t, gjson.GetBytes(body, "stream").Bool())
}

func TestProvider_StreamChat_ErrorEvent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"par\"}}\n\n")
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"never\"}}\n\n")
	})

	var (
		chunks []string
		errs   []error
	)
	for chunk, err := range p.StreamChat(context.Background(), provider.ChatRequest{Model: Claude35Haiku, Messages: []messages.Message{messages.User("hi")}}) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		chunks = append(chunks, chunk.Content)
	}
	assert.Equal(t, []string{"par"}, chunks)
	require.Len(t, errs, 1)
	te, ok := provider.AsTransportError(errs[0])
	require.True(t, ok)
	assert.Equal(t, "Overloaded", te.Message)
}

func TestBuildRequest_MergesSameRoleTurns(t *testing.T) {
	out, err := buildRequest(&provider.ChatRequest{
		Model: Claude35Haiku,
		Messages: []messages.Message{
			messages.User("one"),
			messages.User("two"),
			messages.Assistant("three"),
		},
	}, false)
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	assert.Len(t, out.Messages[0].Content, 2)
	assert.Equal(t, "two", out.Messages[0].Content[1].Text)
}

func TestBuildRequest_EmptyMessage(t *testing.T) {
	_, err := buildRequest(&provider.ChatRequest{
		Model:    Claude35Haiku,
		Messages: []messages.Message{{Role: messages.RoleUser}},
	}, false)
	ve, ok := provider.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "messages", ve.Field)
}
