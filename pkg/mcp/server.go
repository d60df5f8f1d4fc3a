package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/ptr"

	"github.com/isitobservable/platform-ops-mcp/pkg/telemetry"
	"github.com/isitobservable/platform-ops-mcp/pkg/tools"
	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

const (
	serverName         = "platform-ops-mcp"
	mcpProtocolVersion = "2025-06-18"
	maxResultAttrLen   = 1024
)

// sensitiveKeys are argument key substrings that should be redacted from span attributes.
var sensitiveKeys = []string{"secret", "token", "key", "password", "credential"}

type Server struct {
	mcpServer  *mcp.Server
	httpServer *http.Server
	registry   *tools.Registry
	meters     *telemetry.Meters

	mu              sync.Mutex
	registeredTools map[string]struct{} // tracks tools currently registered in mcpServer
}

func NewServer(registry *tools.Registry, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, &mcp.ServerOptions{Logger: slog.Default()})

	meters, err := telemetry.NewMeters()
	if err != nil {
		slog.Warn("mcp: failed to create OTel meters, metrics will be unavailable", "error", err)
	}

	return &Server{
		mcpServer:       mcpServer,
		registry:        registry,
		meters:          meters,
		registeredTools: make(map[string]struct{}),
	}
}

// SyncTools registers every registry tool not yet known to the MCP server.
// The registry only grows, so repeated calls are no-ops.
func (s *Server) SyncTools() {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, t := range s.registry.List() {
		if _, ok := s.registeredTools[t.Name()]; ok {
			continue
		}
		s.mcpServer.AddTool(buildMCPTool(t), s.buildInstrumentedHandler(t))
		s.registeredTools[t.Name()] = struct{}{}
		added++
	}

	slog.Info("mcp: synced tools", "total", len(s.registeredTools), "added", added)
}

// Run serves a single session over stdin/stdout until ctx is cancelled or
// the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.SyncTools()
	slog.Info("mcp: serving over stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Start serves the Streamable HTTP transport on addr at /mcp.
func (s *Server) Start(addr string) error {
	s.SyncTools()

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", otelhttp.NewHandler(handler, "mcp"))

	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	slog.Info("mcp: starting Streamable HTTP server", "addr", addr)
	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func buildMCPTool(t tools.Tool) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		ReadOnlyHint:  !tools.IsMutating(t),
		OpenWorldHint: ptr.To(true),
	}
	if m, ok := t.(tools.Mutator); ok {
		annotations.DestructiveHint = ptr.To(m.Destructive())
		annotations.IdempotentHint = m.Idempotent()
	}
	return &mcp.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
		Annotations: annotations,
	}
}

// buildInstrumentedHandler creates a ToolHandler that wraps tool execution
// with OTel spans, metrics, and context propagation per GenAI + MCP semantic conventions.
func (s *Server) buildInstrumentedHandler(t tools.Tool) mcp.ToolHandler {
	tracer := otel.Tracer(serverName)

	return func(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// traceparent/tracestate travel in params._meta
		if meta := request.Params.GetMeta(); meta != nil {
			carrier := propagation.MapCarrier{}
			for k, v := range meta {
				if str, ok := v.(string); ok {
					carrier.Set(k, str)
				}
			}
			ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
		}

		sessionID := ""
		if request.Session != nil {
			sessionID = request.Session.ID()
		}

		ctx, span := tracer.Start(ctx, fmt.Sprintf("execute_tool %s", t.Name()),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		span.SetAttributes(
			attribute.String("gen_ai.operation.name", "execute_tool"),
			attribute.String("gen_ai.tool.name", t.Name()),
			attribute.String("mcp.method.name", "tools/call"),
			attribute.String("mcp.protocol.version", mcpProtocolVersion),
			attribute.String("mcp.session.id", sessionID),
		)

		var args map[string]any
		if len(request.Params.Arguments) > 0 {
			if err := json.Unmarshal(request.Params.Arguments, &args); err != nil {
				mcpErr := types.NewInputError("arguments must be a JSON object: %v", err)
				mcpErr.Tool = t.Name()
				s.recordError(ctx, span, t.Name(), mcpErr.Code, err)
				return textResult(types.ToolResult{Err: mcpErr}), nil
			}
		}

		sanitized := sanitizeArgs(args)
		span.SetAttributes(attribute.String("gen_ai.tool.call.arguments", sanitized))
		slog.Debug("mcp: tool call", "tool", t.Name(), "session", sessionID, "arguments", sanitized)

		start := time.Now()
		res := s.registry.Invoke(ctx, t.Name(), args)
		duration := time.Since(start).Seconds()

		if res.IsError() {
			s.recordMetrics(ctx, t.Name(), res.Err.Code, duration)
			s.recordError(ctx, span, t.Name(), res.Err.Code, res.Err)
			return textResult(res), nil
		}

		s.recordMetrics(ctx, t.Name(), "", duration)
		span.SetStatus(codes.Ok, "")

		resultStr := res.Text
		if len(resultStr) > maxResultAttrLen {
			resultStr = resultStr[:maxResultAttrLen]
		}
		span.SetAttributes(attribute.String("gen_ai.tool.call.result", resultStr))

		return textResult(res), nil
	}
}

func textResult(res types.ToolResult) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: res.Render()}},
		IsError: res.IsError(),
	}
}

// recordMetrics records GenAI request duration and count metrics.
func (s *Server) recordMetrics(ctx context.Context, toolName, errType string, duration float64) {
	if s.meters == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.tool.name", toolName),
	}
	if errType != "" {
		attrs = append(attrs, attribute.String("error.type", errType))
	}
	s.meters.RequestDuration.Record(ctx, duration, telemetry.WithAttrs(attrs...))
	s.meters.RequestCount.Add(ctx, 1, telemetry.WithAttrs(attrs...))
}

// recordError records error metrics and sets span error status.
func (s *Server) recordError(ctx context.Context, span trace.Span, toolName, errType string, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", errType))
	span.RecordError(err)

	if s.meters == nil {
		return
	}
	s.meters.ErrorsTotal.Add(ctx, 1, telemetry.WithAttrs(
		attribute.String("error.code", errType),
		attribute.String("gen_ai.tool.name", toolName),
	))
}

// sanitizeArgs returns a JSON string of the arguments with sensitive values redacted.
func sanitizeArgs(args map[string]any) string {
	sanitized := make(map[string]any, len(args))
	for k, v := range args {
		if isSensitiveKey(k) {
			sanitized[k] = "[REDACTED]"
		} else {
			sanitized[k] = v
		}
	}
	b, err := json.Marshal(sanitized)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// isSensitiveKey checks if a key name suggests it contains sensitive data.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
