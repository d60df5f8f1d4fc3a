package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

type Registry struct {
	tools   map[string]Tool
	mu      sync.RWMutex
	timeout time.Duration
}

// NewRegistry returns an empty registry. A positive timeout bounds every
// invocation with a context deadline.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		timeout: timeout,
	}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Invoke runs the named tool. It never panics and never returns a Go error:
// every failure is classified into the result.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (result types.ToolResult) {
	t, ok := r.Get(name)
	if !ok {
		e := types.NewInputError("unknown tool %q", name)
		e.Tool = name
		return types.ToolResult{Err: e}
	}
	if args == nil {
		args = map[string]any{}
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("tools: recovered panic", "tool", name, "panic", p)
			result = types.ToolResult{Err: &types.MCPError{
				Code:    types.ErrCodeInternalError,
				Tool:    name,
				Message: fmt.Sprintf("Error executing %s: panic: %v", name, p),
			}}
		}
	}()

	text, err := t.Run(ctx, args)
	if err != nil {
		classified := *types.Classify(err, "executing "+name)
		classified.Tool = name
		slog.Debug("tools: invocation failed", "tool", name, "code", classified.Code, "error", err)
		return types.ToolResult{Err: &classified}
	}
	return types.ToolResult{Text: text}
}
