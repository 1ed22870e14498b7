package http

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/civicmap/internal/pkg/telemetry"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	loggerKey    ctxKey = "logger"
)

// RequestContextMiddleware opens the request span and stores a
// request-scoped logger in the user context. Services started from the
// handler become children of the request span.
func RequestContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := telemetry.StartSpan(c.UserContext(),
			fmt.Sprintf("HTTP %s %s", c.Method(), c.Path()),
			attribute.String("http.method", c.Method()),
			attribute.String("http.target", c.OriginalURL()),
		)

		reqLogger := slog.Default()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ctx = context.WithValue(ctx, requestIDKey, rid)
			reqLogger = reqLogger.With("request_id", rid)
			span.SetAttributes(attribute.String("request_id", rid))
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			reqLogger = reqLogger.With("trace_id", sc.TraceID().String())
		}
		ctx = context.WithValue(ctx, loggerKey, reqLogger)
		c.SetUserContext(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err == nil && status >= 500 {
			err = fmt.Errorf("http %d", status)
		}
		telemetry.EndSpan(span, err)
		return err
	}
}

// LoggerFromCtx extracts the per-request slog.Logger from a context.
// Falls back to the default logger if none is set.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
