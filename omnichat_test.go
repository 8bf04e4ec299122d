package omnichat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casualjim/omnichat/config"
	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.OpenAI.APIKey = "sk-test"
	cfg.OpenAI.BaseURL = baseURL
	cfg.Resilience.BaseDelay = time.Millisecond
	cfg.Resilience.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestOpen_RetriesRateLimited(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if calls.Add(1) == 1 {
			w.Header().Set("x-ratelimit-reset-requests", "1ms")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"Hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
	}))
	defer server.Close()

	p, err := Open(testConfig(server.URL), config.OpenAI, WithHTTPClient(server.Client()))
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	resp, err := p.GetChat(context.Background(), provider.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []messages.Message{messages.User("Hello")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi", resp.Text())
	assert.Equal(t, 7, resp.Usage.Total())
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpen_Raw(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p, err := Open(testConfig(server.URL), config.OpenAI, WithHTTPClient(server.Client()), Raw(true))
	require.NoError(t, err)

	_, err = p.GetChat(context.Background(), provider.ChatRequest{Model: "m", Messages: []messages.Message{messages.User("x")}})
	te, ok := provider.AsTransportError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(config.Default(), "nope")
	assert.Error(t, err)
}

func TestSetup(t *testing.T) {
	cfg := config.Default()
	cfg.Anthropic.APIKey = "ant"
	cfg.Gemini.APIKey = "goog"
	t.Cleanup(func() {
		provider.Unregister(config.Anthropic)
		provider.Unregister(config.Gemini)
	})

	names, err := Setup(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{config.Anthropic, config.Gemini}, names)

	p, ok := provider.Lookup(config.Gemini)
	require.True(t, ok)
	assert.Equal(t, "gemini", p.Name())
}

func TestModel(t *testing.T) {
	cfg := config.Default()
	cfg.Groq.Model = "mixtral"
	assert.Equal(t, "mixtral", Model(cfg, config.Groq))
	assert.Equal(t, DefaultModels[config.OpenAI], Model(cfg, config.OpenAI))
	assert.Empty(t, Model(cfg, config.Azure))
}

func TestNewExecutor(t *testing.T) {
	var bodies [][]byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, b)
		if len(bodies) == 1 {
			fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"Once"},"finish_reason":"length"}]}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":" upon"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	temperature := 0.4
	cfg.Executor.Temperature = &temperature
	p, err := Open(cfg, config.OpenAI, WithHTTPClient(server.Client()))
	require.NoError(t, err)

	history, err := NewExecutor(cfg, p).RunThread(context.Background(), []messages.Message{messages.User("story")})
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "continue", history[2].Text())

	require.Len(t, bodies, 2)
	assert.Equal(t, DefaultModels[config.OpenAI], gjson.GetBytes(bodies[0], "model").String())
	assert.InDelta(t, 0.4, gjson.GetBytes(bodies[0], "temperature").Float(), 1e-9)
	assert.False(t, gjson.GetBytes(bodies[0], "stream").Bool())
	assert.Equal(t, int64(3), gjson.GetBytes(bodies[1], "messages.#").Int())
}
