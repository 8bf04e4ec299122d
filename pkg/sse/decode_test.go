package sse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	Type    string `json:"type"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func collect[T any](t *testing.T, seq func(func(T, error) bool)) ([]T, error) {
	t.Helper()
	var (
		out []T
		err error
	)
	seq(func(v T, e error) bool {
		if e != nil {
			err = e
			return false
		}
		out = append(out, v)
		return true
	})
	return out, err
}

func TestLines(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"",
		"event: message",
		`data: {"a":1}`,
		"id: 7",
		"",
		`data:{"b":2}`,
		"data: ",
		"data: [DONE]",
		`data: {"after":"done"}`,
	}, "\n")

	lines, err := collect[[]byte](t, Lines(context.Background(), strings.NewReader(stream)))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"a":1}`, string(lines[0]))
	assert.JSONEq(t, `{"b":2}`, string(lines[1]))
}

func TestLines_CRLF(t *testing.T) {
	lines, err := collect[[]byte](t, Lines(context.Background(), strings.NewReader("data: {\"a\":1}\r\n\r\n")))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, `{"a":1}`, string(lines[0]))
}

func TestLines_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := collect[[]byte](t, Lines(ctx, strings.NewReader("data: {}\n")))
	assert.ErrorIs(t, err, context.Canceled)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLines_ReadError(t *testing.T) {
	_, err := collect[[]byte](t, Lines(context.Background(), failingReader{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestLines_StopEarly(t *testing.T) {
	r := io.MultiReader(strings.NewReader("data: 1\ndata: 2\ndata: 3\n"))
	var seen int
	for range Lines(context.Background(), r) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestDecode(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"He\"}}]}\n\n" +
		"data: not json\n\n" +
		"data: null\n\n" +
		"data: {\"choices\":[]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"llo\"}}]}\n\n" +
		"data: [DONE]\n\n"

	keep := func(e *event) bool { return len(e.Choices) > 0 }
	events, err := collect[event](t, Decode(context.Background(), strings.NewReader(stream), keep))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "He", events[0].Choices[0].Delta.Content)
	assert.Equal(t, "llo", events[1].Choices[0].Delta.Content)
}

func TestDecode_TypedEnvelope(t *testing.T) {
	stream := "event: message_start\ndata: {\"type\":\"message_start\"}\n\n" +
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\"}\n\n" +
		"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"

	keep := func(e *event) bool { return e.Type == "content_block_delta" }
	events, err := collect[event](t, Decode(context.Background(), strings.NewReader(stream), keep))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "content_block_delta", events[0].Type)
}

func TestDecode_NilKeep(t *testing.T) {
	events, err := collect[event](t, Decode[event](context.Background(), strings.NewReader("data: {\"type\":\"x\"}\n"), nil))
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestDecode_Deterministic(t *testing.T) {
	transcript := ": keep-alive\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"The \"}}]}\n\n" +
		"event: ping\nid: 7\n\n" +
		"data:{\"choices\":[{\"delta\":{\"content\":\"quick\"}}]}\r\n\r\n" +
		"data: {broken\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\" fox\"}}]}\n\n" +
		"data: [DONE]\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"after done\"}}]}\n\n"

	decode := func() []string {
		events, err := collect[event](t, Decode(context.Background(), strings.NewReader(transcript), func(e *event) bool { return len(e.Choices) > 0 }))
		require.NoError(t, err)
		texts := make([]string, 0, len(events))
		for _, e := range events {
			texts = append(texts, e.Choices[0].Delta.Content)
		}
		return texts
	}

	first, second := decode(), decode()
	assert.Equal(t, []string{"The ", "quick", " fox"}, first)
	assert.Equal(t, first, second)
}
