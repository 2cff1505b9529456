package audit

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Fatalf("empty context yielded %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Fatalf("got %q", got)
	}

	if blank := WithRequestID(context.Background(), "  "); RequestIDFromContext(blank) != "" {
		t.Fatal("blank request id should not be stored")
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
	if err := LogEvent(context.Background(), "identity.login", map[string]any{"email": "x@example.org"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
}
