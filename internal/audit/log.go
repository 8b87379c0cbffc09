// Package audit emits structured audit events for authentication
// activity. Entries are enriched with the request id and the verified
// principal when present; credentials are never included.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sartainstudios/authentication-api/internal/obs"
	"github.com/sartainstudios/authentication-api/internal/token"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request and principal
// context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	attrs := []slog.Attr{
		slog.String("type", "audit"),
		slog.String("event", event),
		slog.Time("ts", time.Now().UTC()),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if principal, ok := token.PrincipalFromContext(ctx); ok {
		attrs = append(attrs, slog.String("principal_kind", string(principal.Kind)))
		if principal.UserID != "" {
			attrs = append(attrs, slog.String("user_id", principal.UserID))
		}
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	obs.Logger().LogAttrs(ctx, slog.LevelInfo, event, attrs...)
	return nil
}
