package oms

import (
	"testing"

	"github.com/tradecore/binancefutures-core/internal/xerr"
	"github.com/tradecore/binancefutures-core/pkg/types"
)

var allStatuses = []types.OrderStatus{
	types.StatusPendingNew,
	types.StatusNew,
	types.StatusPartiallyFilled,
	types.StatusFilled,
	types.StatusPendingCancel,
	types.StatusCanceled,
	types.StatusRejected,
	types.StatusExpired,
}

// TestValidateTransitionExhaustive walks every (from, to) pair in the
// lifecycle and checks it against the transition table exactly, covering
// P1 (state-machine soundness).
func TestValidateTransitionExhaustive(t *testing.T) {
	t.Parallel()
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			err := validateTransition(from, to)
			wantOK := from == to || validTransitions[from][to]
			if wantOK && err != nil {
				t.Errorf("validateTransition(%s, %s): expected success, got %v", from, to, err)
			}
			if !wantOK && err == nil {
				t.Errorf("validateTransition(%s, %s): expected error, got nil", from, to)
			}
			if err != nil && !xerr.Is(err, xerr.InvalidTransition) {
				t.Errorf("validateTransition(%s, %s): expected xerr.InvalidTransition, got %v", from, to, err)
			}
		}
	}
}

func TestValidateTransitionSelfTransitionAlwaysAllowed(t *testing.T) {
	t.Parallel()
	for _, s := range allStatuses {
		if err := validateTransition(s, s); err != nil {
			t.Errorf("self-transition %s -> %s should be allowed, got %v", s, s, err)
		}
	}
}

func TestValidateTransitionRejectsRegression(t *testing.T) {
	t.Parallel()
	if err := validateTransition(types.StatusFilled, types.StatusNew); err == nil {
		t.Fatal("expected regression from a terminal state to fail")
	}
	if err := validateTransition(types.StatusPartiallyFilled, types.StatusPendingNew); err == nil {
		t.Fatal("expected regression to PENDING_NEW to fail")
	}
}
