package oms

import (
	"context"
	"log/slog"

	"github.com/tradecore/binancefutures-core/internal/gateway"
	"github.com/tradecore/binancefutures-core/pkg/types"
)

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	AddedFromVenue int // E\L: stray venue orders inserted locally
	QueriedMissing int // L\E: local orders absent on the venue, status queried
	Overwritten    int // E∩L: local record replaced with the venue's
	UpdatesApplied int // total registry mutations this pass caused
}

// Reconciler defends against drift between the local Registry and the
// venue's own view of open orders.
type Reconciler struct {
	gw       gateway.Gateway
	registry *Registry
	logger   *slog.Logger
}

// NewReconciler constructs a Reconciler over gw and registry.
func NewReconciler(gw gateway.Gateway, registry *Registry, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		gw:       gw,
		registry: registry,
		logger:   logger.With("component", "oms_reconciler"),
	}
}

// Reconcile pulls open orders for sym (or every symbol, if sym is "") from
// the venue and repairs drift against the local registry: venue-only
// orders are inserted, local-only orders have their status queried and
// applied, and orders present on both sides are overwritten locally when
// their statuses disagree.
func (rc *Reconciler) Reconcile(ctx context.Context, sym types.Symbol) (ReconcileReport, error) {
	venueOrders, err := rc.gw.GetOpenOrders(ctx, sym)
	if err != nil {
		return ReconcileReport{}, err
	}

	venueByID := make(map[string]types.Order, len(venueOrders))
	for _, o := range venueOrders {
		venueByID[o.OrderID] = o
	}

	localOrders := rc.registry.OpenOrders(sym)
	localByID := make(map[string]types.Order, len(localOrders))
	for _, o := range localOrders {
		localByID[o.OrderID] = o
	}

	var report ReconcileReport

	for id, venueOrder := range venueByID {
		if _, ok := localByID[id]; ok {
			continue
		}
		if err := rc.registry.Add(venueOrder); err != nil {
			rc.logger.Warn("failed to add stray venue order", "order_id", id, "error", err)
			continue
		}
		report.AddedFromVenue++
		report.UpdatesApplied++
	}

	for id, localOrder := range localByID {
		if _, ok := venueByID[id]; ok {
			continue
		}
		report.QueriedMissing++
		authoritative, err := rc.gw.GetOrderStatus(ctx, localOrder.Symbol, id, "")
		if err != nil {
			rc.logger.Warn("failed to query status of locally-only order", "order_id", id, "error", err)
			continue
		}
		if err := rc.registry.Update(*authoritative); err != nil {
			rc.logger.Warn("failed to apply authoritative status to local order", "order_id", id, "error", err)
			continue
		}
		report.UpdatesApplied++
	}

	for id, venueOrder := range venueByID {
		localOrder, ok := localByID[id]
		if !ok || localOrder.Status == venueOrder.Status {
			continue
		}
		if err := rc.registry.Update(venueOrder); err != nil {
			rc.logger.Warn("failed to overwrite local order from venue record", "order_id", id, "error", err)
			continue
		}
		report.Overwritten++
		report.UpdatesApplied++
	}

	globalMetrics.addUpdatesApplied(report.UpdatesApplied)
	return report, nil
}

// SyncAll reconciles every symbol in a single pass.
func (rc *Reconciler) SyncAll(ctx context.Context) (ReconcileReport, error) {
	return rc.Reconcile(ctx, "")
}

// CancelStray cancels every venue order for sym (or every symbol, if sym
// is "") that the local registry doesn't know about. This is the
// reconciler's dangerous inverse of Reconcile: callers must gate it behind
// explicit operator confirmation before invoking it.
func (rc *Reconciler) CancelStray(ctx context.Context, sym types.Symbol) (int, error) {
	venueOrders, err := rc.gw.GetOpenOrders(ctx, sym)
	if err != nil {
		return 0, err
	}

	canceled := 0
	for _, venueOrder := range venueOrders {
		if _, ok := rc.registry.Get(venueOrder.OrderID); ok {
			continue
		}
		if _, err := rc.gw.CancelOrder(ctx, venueOrder.Symbol, venueOrder.OrderID, ""); err != nil {
			rc.logger.Warn("failed to cancel stray venue order", "order_id", venueOrder.OrderID, "error", err)
			continue
		}
		canceled++
	}
	return canceled, nil
}
