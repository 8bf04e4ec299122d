package executor

import (
	"context"
	"log/slog"
	"slices"

	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/pkg/slogx"
	"github.com/casualjim/omnichat/provider"
)

// Hook observes a conversation as the executor drives it. There is no no-op
// implementation: implement every method, or combine hooks with CompositeHook.
type Hook interface {
	// OnRequest fires before every vendor call. turn starts at 1.
	OnRequest(ctx context.Context, turn int, req provider.ChatRequest)
	// OnResponse fires after every successful call with the usage summed over the conversation so far.
	OnResponse(ctx context.Context, turn int, resp *provider.ChatResponse, total provider.Usage)
	// OnChunk fires for every streamed increment.
	OnChunk(ctx context.Context, chunk provider.ChunkResponse)
	// OnToolResult fires once per executed tool call, in call order.
	OnToolResult(ctx context.Context, call messages.Tool, result messages.Message)
	OnError(ctx context.Context, err error)
}

// LoggingHook logs every request, response, tool result and error through slog.
func LoggingHook() Hook {
	return loggingHook{}
}

type loggingHook struct{}

func (loggingHook) OnRequest(ctx context.Context, turn int, req provider.ChatRequest) {
	slog.InfoContext(ctx, "chat request",
		slog.Int("turn", turn),
		slog.Int("messages", len(req.Messages)),
		slog.Int("functions", len(req.Functions)),
		slogx.Stringer("format", req.ResponseFormat),
	)
}

func (loggingHook) OnResponse(ctx context.Context, turn int, resp *provider.ChatResponse, total provider.Usage) {
	slog.InfoContext(ctx, "chat response",
		slog.Int("turn", turn),
		slog.String("id", resp.ID),
		slogx.Stringer("finish_reason", resp.FinishReason),
		slog.Int("tools", len(resp.Tools)),
		slog.Int("tokens", resp.Usage.Total()),
		slog.Int("total_tokens", total.Total()),
	)
}

func (loggingHook) OnChunk(ctx context.Context, chunk provider.ChunkResponse) {
	slog.DebugContext(ctx, "chat chunk", slog.String("id", chunk.ID), slog.Int("len", len(chunk.Content)))
}

func (loggingHook) OnToolResult(ctx context.Context, call messages.Tool, result messages.Message) {
	slog.InfoContext(ctx, "tool result",
		slog.String("tool", call.Name),
		slog.String("id", call.ID),
		slogx.ByteString("arguments", call.Arguments()),
		slog.String("result", result.Text()),
	)
}

func (loggingHook) OnError(ctx context.Context, err error) {
	slog.ErrorContext(ctx, "chat error", slogx.Error(err))
}

// NewCompositeHook combines hooks into one that calls each of them in order.
func NewCompositeHook(hooks ...Hook) Hook {
	return CompositeHook(hooks)
}

// CompositeHook fans every event out to its hooks in order.
type CompositeHook []Hook

func (c CompositeHook) OnRequest(ctx context.Context, turn int, req provider.ChatRequest) {
	for h := range slices.Values(c) {
		h.OnRequest(ctx, turn, req)
	}
}

func (c CompositeHook) OnResponse(ctx context.Context, turn int, resp *provider.ChatResponse, total provider.Usage) {
	for h := range slices.Values(c) {
		h.OnResponse(ctx, turn, resp, total)
	}
}

func (c CompositeHook) OnChunk(ctx context.Context, chunk provider.ChunkResponse) {
	for h := range slices.Values(c) {
		h.OnChunk(ctx, chunk)
	}
}

func (c CompositeHook) OnToolResult(ctx context.Context, call messages.Tool, result messages.Message) {
	for h := range slices.Values(c) {
		h.OnToolResult(ctx, call, result)
	}
}

func (c CompositeHook) OnError(ctx context.Context, err error) {
	for h := range slices.Values(c) {
		h.OnError(ctx, err)
	}
}
