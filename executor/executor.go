package executor

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/provider"
	"github.com/casualjim/omnichat/tool"
	"github.com/fogfish/opts"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxTurns       = 16
	DefaultContinuePrompt = "continue"
)

// Executor drives a conversation with one provider until the model stops.
// It is safe for concurrent use: every call works on its own copy of the history.
type Executor struct {
	provider       provider.Provider
	tools          tool.Executor
	functions      []messages.Function
	model          string
	maxTokens      int
	temperature    *float64
	maxTurns       int
	continuePrompt string
	parallelTools  bool
	hook           Hook
}

type Option = opts.Option[Executor]

var (
	WithModel          = opts.ForName[Executor, string]("model")
	WithMaxTokens      = opts.ForName[Executor, int]("maxTokens")
	WithMaxTurns       = opts.ForName[Executor, int]("maxTurns")
	WithContinuePrompt = opts.ForName[Executor, string]("continuePrompt")
	WithParallelTools  = opts.ForName[Executor, bool]("parallelTools")
	WithHook           = opts.ForName[Executor, Hook]("hook")
)

// WithTemperature sets the sampling temperature sent with every request.
func WithTemperature(t float64) Option {
	return opts.Type[Executor](func(e *Executor) error {
		e.temperature = &t
		return nil
	})
}

// WithTools offers every function of reg to the model and executes the calls through it.
func WithTools(reg *tool.Registry) Option {
	return opts.Type[Executor](func(e *Executor) error {
		if reg == nil {
			return fmt.Errorf("tool registry cannot be nil")
		}
		e.tools = reg
		e.functions = reg.Functions()
		return nil
	})
}

// WithToolExecutor offers functions to the model and runs the calls with exec.
func WithToolExecutor(exec tool.Executor, functions ...messages.Function) Option {
	return opts.Type[Executor](func(e *Executor) error {
		if exec == nil {
			return fmt.Errorf("tool executor cannot be nil")
		}
		e.tools = exec
		e.functions = functions
		return nil
	})
}

// New creates an executor that talks to p. It panics when p is nil or an option fails.
func New(p provider.Provider, options ...Option) *Executor {
	if p == nil {
		panic("provider cannot be nil")
	}
	e := &Executor{
		provider:       p,
		maxTurns:       DefaultMaxTurns,
		continuePrompt: DefaultContinuePrompt,
		hook:           CompositeHook(nil),
	}
	if err := opts.Apply(e, options); err != nil {
		panic(err)
	}
	if e.maxTurns < 1 {
		e.maxTurns = DefaultMaxTurns
	}
	if e.hook == nil {
		e.hook = CompositeHook(nil)
	}
	return e
}

// Provider returns the provider the executor talks to.
func (e *Executor) Provider() provider.Provider {
	return e.provider
}

// RunThread continues history until the model stops and returns the history
// with every generated message appended. Truncated answers are continued, tool
// calls are executed and their results fed back. history itself is never modified.
func (e *Executor) RunThread(ctx context.Context, history []messages.Message) ([]messages.Message, error) {
	thread := slices.Clone(history)
	var usage provider.Usage

	for turn := 1; turn <= e.maxTurns; turn++ {
		resp, err := e.complete(ctx, turn, e.request(thread, provider.Text, true), &usage)
		if err != nil {
			return nil, err
		}

		switch resp.FinishReason {
		case provider.FinishLength:
			thread = append(thread, messages.Assistant(resp.Text()), messages.User(e.continuePrompt))
		case provider.FinishTool:
			calls := assignCallIDs(resp.Tools)
			results, err := e.runTools(ctx, turn, calls)
			if err != nil {
				return nil, err
			}
			thread = append(thread, messages.AssistantToolCalls(resp.Content, calls))
			thread = append(thread, results...)
		case provider.FinishStop, provider.FinishContentFilter:
			return append(thread, messages.Assistant(resp.Text())), nil
		default:
			return nil, e.fail(ctx, &OrchestrationError{
				Provider:     e.provider.Name(),
				Turn:         turn,
				FinishReason: resp.FinishReason,
				Reason:       "unexpected finish reason " + resp.FinishReason.String(),
			})
		}
	}
	return nil, e.fail(ctx, e.exhausted())
}

// GetJSON asks for a JSON object answer and returns it, stitching together the
// parts of answers that were cut off by the token limit.
func (e *Executor) GetJSON(ctx context.Context, history []messages.Message) (string, error) {
	thread := slices.Clone(history)
	var (
		usage provider.Usage
		buf   strings.Builder
	)

	for turn := 1; turn <= e.maxTurns; turn++ {
		resp, err := e.complete(ctx, turn, e.request(thread, provider.JSONObject, false), &usage)
		if err != nil {
			return "", err
		}

		switch resp.FinishReason {
		case provider.FinishLength:
			buf.WriteString(resp.Text())
			thread = append(thread, messages.Assistant(resp.Text()), messages.User(e.continuePrompt))
		case provider.FinishStop:
			buf.WriteString(resp.Text())
			return buf.String(), nil
		default:
			return "", e.fail(ctx, &OrchestrationError{
				Provider:     e.provider.Name(),
				Turn:         turn,
				FinishReason: resp.FinishReason,
				Reason:       "finish reason " + resp.FinishReason.String() + " is not valid while extracting JSON",
			})
		}
	}
	return "", e.fail(ctx, e.exhausted())
}

// GetObject runs GetJSON and decodes the answer into a T.
func GetObject[T any](ctx context.Context, e *Executor, history []messages.Message) (T, error) {
	var out T
	doc, err := e.GetJSON(ctx, history)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		var zero T
		return zero, e.fail(ctx, &OrchestrationError{
			Provider: e.provider.Name(),
			Reason:   fmt.Sprintf("answer does not decode into %T", out),
			Err:      err,
		})
	}
	return out, nil
}

// StreamThread streams the next assistant turn for history. Functions are
// not offered since tool calls cannot be resolved mid stream.
func (e *Executor) StreamThread(ctx context.Context, history []messages.Message) iter.Seq2[provider.ChunkResponse, error] {
	return func(yield func(provider.ChunkResponse, error) bool) {
		req := e.request(slices.Clone(history), provider.Text, false)
		req.Stream = true
		e.hook.OnRequest(ctx, 1, req)
		for chunk, err := range e.provider.StreamChat(ctx, req) {
			if err != nil {
				e.hook.OnError(ctx, err)
				yield(provider.ChunkResponse{}, err)
				return
			}
			e.hook.OnChunk(ctx, chunk)
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (e *Executor) request(thread []messages.Message, format provider.ResponseFormat, withTools bool) provider.ChatRequest {
	req := provider.ChatRequest{
		Messages:       slices.Clip(thread),
		Model:          e.model,
		MaxTokens:      e.maxTokens,
		Temperature:    e.temperature,
		ResponseFormat: format,
	}
	if withTools {
		req.Functions = e.functions
	}
	return req
}

func (e *Executor) complete(ctx context.Context, turn int, req provider.ChatRequest, usage *provider.Usage) (*provider.ChatResponse, error) {
	e.hook.OnRequest(ctx, turn, req)
	resp, err := e.provider.GetChat(ctx, req)
	if err != nil {
		e.hook.OnError(ctx, err)
		return nil, err
	}
	*usage = usage.Add(resp.Usage)
	e.hook.OnResponse(ctx, turn, resp, *usage)
	return resp, nil
}

func (e *Executor) runTools(ctx context.Context, turn int, calls []messages.Tool) ([]messages.Message, error) {
	if len(calls) == 0 {
		return nil, e.fail(ctx, &OrchestrationError{
			Provider:     e.provider.Name(),
			Turn:         turn,
			FinishReason: provider.FinishTool,
			Reason:       "model asked for tools without naming any",
		})
	}
	if e.tools == nil {
		return nil, e.fail(ctx, &OrchestrationError{
			Provider:     e.provider.Name(),
			Turn:         turn,
			FinishReason: provider.FinishTool,
			Reason:       "model asked for tools but no tool executor is configured",
		})
	}

	outputs := make([]string, len(calls))
	run := func(ctx context.Context, i int) error {
		out, err := e.tools.Execute(ctx, calls[i])
		if err != nil {
			return &OrchestrationError{
				Provider:     e.provider.Name(),
				Turn:         turn,
				FinishReason: provider.FinishTool,
				Reason:       fmt.Sprintf("tool %s (%s) failed", calls[i].Name, calls[i].ID),
				Err:          err,
			}
		}
		outputs[i] = out
		return nil
	}

	if e.parallelTools && len(calls) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for i := range calls {
			g.Go(func() error { return run(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return nil, e.fail(ctx, err)
		}
	} else {
		for i := range calls {
			if err := run(ctx, i); err != nil {
				return nil, e.fail(ctx, err)
			}
		}
	}

	results := make([]messages.Message, len(calls))
	for i, call := range calls {
		results[i] = messages.ToolResult(call, outputs[i])
		e.hook.OnToolResult(ctx, call, results[i])
	}
	return results, nil
}

func (e *Executor) exhausted() *OrchestrationError {
	return &OrchestrationError{
		Provider: e.provider.Name(),
		Turn:     e.maxTurns,
		Reason:   fmt.Sprintf("no final answer after %d turns", e.maxTurns),
	}
}

func (e *Executor) fail(ctx context.Context, err error) error {
	e.hook.OnError(ctx, err)
	return err
}

// assignCallIDs gives calls without an id a stable one so results can refer to them.
func assignCallIDs(calls []messages.Tool) []messages.Tool {
	out := slices.Clone(calls)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = fmt.Sprintf("%s-%d", out[i].Name, i)
		}
	}
	return out
}
