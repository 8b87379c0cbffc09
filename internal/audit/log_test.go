package audit

import (
	"context"
	"testing"
	"time"

	"github.com/sartainstudios/authentication-api/internal/token"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("request id = %q, want req-1", got)
	}
}

func TestRequestIDBlankIsDropped(t *testing.T) {
	ctx := WithRequestID(context.Background(), "   ")
	if got := RequestIDFromContext(ctx); got != "" {
		t.Fatalf("request id = %q, want empty", got)
	}
}

func TestRequestIDMissing(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("request id = %q, want empty", got)
	}
	if got := RequestIDFromContext(nil); got != "" { //nolint:staticcheck
		t.Fatalf("request id from nil context = %q, want empty", got)
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatalf("expected an error for a blank event name")
	}
}

func TestLogEventAcceptsEnrichedContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-2")
	ctx = token.ContextWithPrincipal(ctx, token.Principal{
		Kind:      token.KindUser,
		UserID:    "u1",
		Roles:     []string{"User"},
		ExpiresAt: time.Now().Add(time.Minute),
	})
	if err := LogEvent(ctx, "auth.token.issued", map[string]any{"user_id": "u1"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
}
