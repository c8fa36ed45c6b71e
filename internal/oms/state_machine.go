// Package oms implements the order management system (C8): the state
// machine governing order status transitions, the registry holding the
// set of known orders, and the reconciler that detects and repairs drift
// against the venue.
package oms

import (
	"github.com/tradecore/binancefutures-core/internal/xerr"
	"github.com/tradecore/binancefutures-core/pkg/types"
)

// validTransitions is the order lifecycle's transition table. A status not
// present as a key (FILLED, CANCELED, REJECTED, EXPIRED) is terminal and
// admits no outgoing transition.
var validTransitions = map[types.OrderStatus]map[types.OrderStatus]bool{
	types.StatusPendingNew: {
		types.StatusNew:      true,
		types.StatusRejected: true,
	},
	types.StatusNew: {
		types.StatusPartiallyFilled: true,
		types.StatusFilled:          true,
		types.StatusPendingCancel:   true,
		types.StatusCanceled:        true,
		types.StatusExpired:         true,
	},
	types.StatusPartiallyFilled: {
		types.StatusFilled:        true,
		types.StatusPendingCancel: true,
		types.StatusCanceled:      true,
	},
	types.StatusPendingCancel: {
		types.StatusCanceled: true,
	},
}

// validateTransition checks from -> to against the lifecycle table.
// Self-transitions (from == to) always succeed, including from a terminal
// state, so repeated delivery of the same status over REST and WebSocket
// never fails the update.
func validateTransition(from, to types.OrderStatus) error {
	if from == to {
		return nil
	}
	allowed, ok := validTransitions[from]
	if !ok || !allowed[to] {
		return xerr.Newf(xerr.InvalidTransition, "invalid order state transition %s -> %s", from, to)
	}
	return nil
}
