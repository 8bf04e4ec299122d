package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/omnichat/internal/registry"
	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/pkg/slogx"
)

// ErrUnknownTool is returned when the model calls a function nobody registered.
var ErrUnknownTool = errors.New("unknown tool")

// Executor runs the tool calls a model asks for.
type Executor interface {
	Execute(ctx context.Context, call messages.Tool) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, call messages.Tool) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, call messages.Tool) (string, error) {
	return f(ctx, call)
}

// Registry is a concurrent set of tool definitions keyed by name.
type Registry struct {
	defs registry.Registry[Definition]
}

// NewRegistry creates a registry holding defs.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: registry.New[Definition]()}
	for _, d := range defs {
		r.Add(d)
	}
	return r
}

// Add registers def, replacing a previous definition with the same name.
func (r *Registry) Add(def Definition) {
	r.defs.Add(def.Name, def)
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	return r.defs.Get(name)
}

// Del removes the tool called name, if any.
func (r *Registry) Del(name string) {
	r.defs.Del(name)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return r.defs.Len()
}

// Functions returns the declarations of every registered tool, sorted by name.
func (r *Registry) Functions() []messages.Function {
	names := r.defs.Names()
	out := make([]messages.Function, 0, len(names))
	for _, name := range names {
		if def, ok := r.defs.Get(name); ok {
			out = append(out, def.Declare())
		}
	}
	return out
}

// Execute runs the tool the call names with the call's arguments.
func (r *Registry) Execute(ctx context.Context, call messages.Tool) (string, error) {
	def, ok := r.defs.Get(call.Name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}

	start := time.Now()
	result, err := def.Call(ctx, call.Arguments())
	if err != nil {
		slog.DebugContext(ctx, "tool call failed", slog.String("tool", call.Name), slog.String("id", call.ID), slogx.Error(err))
		return "", err
	}
	slog.DebugContext(ctx, "tool call finished", slog.String("tool", call.Name), slog.String("id", call.ID), slog.Duration("elapsed", time.Since(start)))
	return result, nil
}
