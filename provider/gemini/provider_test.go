package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/provider"
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(WithAPIKey("goog"), WithBaseURL(server.URL), WithHTTPClient(server.Client()))
}

func citySchema() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("city", &jsonschema.Schema{Type: "string"})
	return &jsonschema.Schema{
		Version:              "https://json-schema.org/draft/2020-12/schema",
		Type:                 "object",
		Properties:           props,
		Required:             []string{"city"},
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

func TestProvider_GetChat(t *testing.T) {
	var (
		body []byte
		path string
	)
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "goog", r.Header.Get("x-goog-api-key"))
		body, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"candidates":[{"index":0,"content":{"role":"model","parts":[{"text":"Hi"},{"text":"there"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":8,"candidatesTokenCount":2,"totalTokenCount":10}}`)
	})

	resp, err := p.GetChat(context.Background(), provider.ChatRequest{
		Messages: []messages.Message{
			messages.System("be kind"),
			messages.User("Hello"),
		},
		Temperature: provider.Float(0.5),
	})
	require.NoError(t, err)

	assert.Equal(t, "/models/gemini-1.5-flash:generateContent", path)
	assert.Equal(t, "Hi", resp.Text())
	assert.Equal(t, provider.FinishStop, resp.FinishReason)
	assert.Equal(t, messages.RoleAssistant, resp.Role)
	assert.Equal(t, 10, resp.Usage.Total())
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, &provider.RateLimits{}, resp.RateLimits)

	assert.Equal(t, "models/gemini-1.5-flash", gjson.GetBytes(body, "model").String())
	assert.Equal(t, "be kind", gjson.GetBytes(body, "systemInstruction.parts.0.text").String())
	assert.Equal(t, "user", gjson.GetBytes(body, "contents.0.role").String())
	assert.Equal(t, "Hello", gjson.GetBytes(body, "contents.0.parts.0.text").String())
	assert.Equal(t, 0.5, gjson.GetBytes(body, "generationConfig.temperature").Float())
	assert.False(t, gjson.GetBytes(body, "generationConfig.responseMimeType").Exists())
}

func TestProvider_GetChat_JSONMode(t *testing.T) {
	var body []byte
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":true}"}]},"finishReason":"MAX_TOKENS"}]}`)
	})

	resp, err := p.GetChat(context.Background(), provider.ChatRequest{
		Model:          "models/" + Gemini15Pro,
		Messages:       []messages.Message{messages.User("json")},
		ResponseFormat: provider.JSONObject,
		MaxTokens:      64,
	})
	require.NoError(t, err)
	assert.Equal(t, provider.FinishLength, resp.FinishReason)
	assert.Equal(t, "application/json", gjson.GetBytes(body, "generationConfig.responseMimeType").String())
	assert.Equal(t, int64(64), gjson.GetBytes(body, "generationConfig.maxOutputTokens").Int())
	assert.Equal(t, "models/gemini-1.5-pro", gjson.GetBytes(body, "model").String())
}

func TestProvider_GetChat_Tools(t *testing.T) {
	var body []byte
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"candidates":[{"index":0,"content":{"role":"model","parts":[{"functionCall":{"name":"get_weather","args":{"city":"Lima"}}},{"functionCall":{"name":"get_time"}}]},"finishReason":"STOP"}]}`)
	})

	history := []messages.Message{
		messages.User("weather?"),
		messages.AssistantToolCalls(nil, []messages.Tool{{ID: "get_weather-0", Name: "get_weather", Parameters: json.RawMessage(`{"city":"Quito"}`)}}),
		messages.ToolResult(messages.Tool{ID: "get_weather-0", Name: "get_weather"}, "sunny"),
	}
	resp, err := p.GetChat(context.Background(), provider.ChatRequest{
		Messages: history,
		Functions: []messages.Function{
			messages.MustFunction("get_weather", "Weather for a city", citySchema()),
			messages.MustFunction("get_time", "Current time", nil),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, provider.FinishTool, resp.FinishReason)
	require.Len(t, resp.Tools, 2)
	assert.Equal(t, "get_weather-0", resp.Tools[0].ID)
	assert.JSONEq(t, `{"city":"Lima"}`, string(resp.Tools[0].Parameters))
	assert.Equal(t, "get_time-1", resp.Tools[1].ID)
	assert.JSONEq(t, `{}`, string(resp.Tools[1].Parameters))

	assert.Equal(t, "model", gjson.GetBytes(body, "contents.1.role").String())
	assert.Equal(t, "get_weather", gjson.GetBytes(body, "contents.1.parts.0.function_call.name").String())
	assert.Equal(t, "Quito", gjson.GetBytes(body, "contents.1.parts.0.function_call.args.city").String())
	assert.Equal(t, "function", gjson.GetBytes(body, "contents.2.role").String())
	assert.Equal(t, "get_weather", gjson.GetBytes(body, "contents.2.parts.0.function_response.name").String())
	assert.Equal(t, "sunny", gjson.GetBytes(body, "contents.2.parts.0.function_response.response.content").String())

	decl := gjson.GetBytes(body, "tools.0.functionDeclarations")
	assert.Equal(t, int64(2), decl.Get("#").Int())
	assert.Equal(t, "string", decl.Get("0.parameters.properties.city.type").String())
	assert.False(t, decl.Get("0.parameters.additionalProperties").Exists())
	assert.False(t, decl.Get("0.parameters.$schema").Exists())
	assert.False(t, decl.Get("1.parameters").Exists())
}

func TestProvider_GetChat_NoCandidate(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`)
	})

	_, err := p.GetChat(context.Background(), provider.ChatRequest{Messages: []messages.Message{messages.User("x")}})
	var pe *provider.ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Error(), "SAFETY")
}

func TestProvider_StreamChat_Unsupported(t *testing.T) {
	p := New()
	var errs []error
	for _, err := range p.StreamChat(context.Background(), provider.ChatRequest{Messages: []messages.Message{messages.User("x")}}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	ve, ok := provider.AsValidationError(errs[0])
	require.True(t, ok)
	assert.Equal(t, "stream", ve.Field)
}

func TestFinishReasons(t *testing.T) {
	tests := map[string]provider.FinishReason{
		"STOP":               provider.FinishStop,
		"stop":               provider.FinishStop,
		"MAX_TOKENS":         provider.FinishLength,
		"SAFETY":             provider.FinishContentFilter,
		"RECITATION":         provider.FinishContentFilter,
		"BLOCKLIST":          provider.FinishContentFilter,
		"PROHIBITED_CONTENT": provider.FinishContentFilter,
		"SPII":               provider.FinishContentFilter,
		"OTHER":              provider.FinishNone,
	}
	for token, want := range tests {
		assert.Equal(t, want, finishReasons.Map(token), token)
	}
}

func TestRoles_RoundTrip(t *testing.T) {
	for _, role := range roles.Roles() {
		token, err := roles.ToWire(role)
		require.NoError(t, err)
		assert.Equal(t, role, roles.FromWire(token))
	}
	_, err := roles.ToWire(messages.RoleSystem)
	assert.Error(t, err)
}

func TestResponseBody(t *testing.T) {
	b, err := responseBody(`{"temp": 21}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"temp":21}`, string(b))

	b, err = responseBody(`[1,2]`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"[1,2]"}`, string(b))

	b, err = responseBody("plain")
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"plain"}`, string(b))
}

func TestToContent_ToolWithoutName(t *testing.T) {
	id := "x"
	_, err := toContent(messages.Message{Role: messages.RoleTool, ToolCallID: &id, Content: messages.Ptr("r")})
	ve, ok := provider.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "name", ve.Field)
}
