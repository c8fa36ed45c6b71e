package xerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{Transient, true},
		{Permanent, false},
		{RateLimit, false},
		{InvalidOrder, false},
		{InsufficientBalance, false},
		{Connection, false},
		{WebSocket, false},
		{InvalidTransition, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			if got := tt.kind.Retryable(); got != tt.want {
				t.Errorf("Kind(%s).Retryable() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	t.Parallel()
	err := New(Transient, "server hiccup")
	if !Is(err, Transient) {
		t.Error("expected Is(err, Transient) to be true")
	}
	if Is(err, Permanent) {
		t.Error("expected Is(err, Permanent) to be false")
	}
}

func TestErrorsIsSentinelComparison(t *testing.T) {
	t.Parallel()
	err := New(RateLimit, "too many requests").WithCode(-1003)
	sentinel := New(RateLimit, "")
	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to match on Kind")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Wrap(Connection, cause, "failed to connect")
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the original cause")
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()
	err := New(InvalidOrder, "missing price")
	kind, ok := KindOf(err)
	if !ok || kind != InvalidOrder {
		t.Errorf("KindOf() = %v, %v, want InvalidOrder, true", kind, ok)
	}

	_, ok = KindOf(fmt.Errorf("plain error"))
	if ok {
		t.Error("KindOf() on a plain error should return ok=false")
	}
}

func TestErrorMessageFormatting(t *testing.T) {
	t.Parallel()
	withoutCode := New(Transient, "boom").Error()
	if withoutCode != "TRANSIENT: boom" {
		t.Errorf("Error() = %q", withoutCode)
	}
	withCode := New(InvalidOrder, "bad qty").WithCode(-4003).Error()
	if withCode != "INVALID_ORDER: bad qty (code: -4003)" {
		t.Errorf("Error() = %q", withCode)
	}
}
