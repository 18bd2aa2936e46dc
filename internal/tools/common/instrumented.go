package common

import (
	"context"
	"errors"
	"time"

	mcpoauth "github.com/giantswarm/mcp-oauth"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/app"
	"github.com/teemow/inboxassist/internal/instrumentation"
)

// Handler is the signature of an MCP tool handler.
type Handler = server.ToolHandlerFunc

// errToolResult marks invocations that returned an error result rather than
// a Go error.
var errToolResult = errors.New("tool returned an error result")

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", a, handler))
func InstrumentedToolHandler(toolName string, a *app.App, handler Handler) Handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var (
			metrics     *instrumentation.Metrics
			auditLogger *instrumentation.AuditLogger
		)
		if a != nil {
			metrics = a.Provider.Metrics()
			auditLogger = a.Audit
		}

		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewInvocation(instrumentation.InvocationTool, toolName).
			WithSpanContext(ctx)
		if user, ok := mcpoauth.UserInfoFromContext(ctx); ok && user != nil {
			invocation.WithCaller(user.Email)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errToolResult
		}
		if failure != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, failure)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		invocation.Complete(failure)

		metrics.RecordToolInvocation(ctx, toolName, status, duration)
		auditLogger.Log(ctx, invocation)

		return result, err
	}
}
