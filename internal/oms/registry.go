package oms

import (
	"log/slog"
	"sync"

	"github.com/tradecore/binancefutures-core/internal/xerr"
	"github.com/tradecore/binancefutures-core/pkg/types"
)

// Callback observes every successful add or update to the registry.
type Callback func(types.Order)

// Registry holds the connectivity core's local view of open and recently
// terminal orders, indexed by both venue order id and client order id.
// Every operation is safe for concurrent use.
type Registry struct {
	mu              sync.RWMutex
	byOrderID       map[string]types.Order
	byClientOrderID map[string]string // client order id -> order id
	callbacks       []Callback
	logger          *slog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byOrderID:       make(map[string]types.Order),
		byClientOrderID: make(map[string]string),
		logger:          logger.With("component", "oms_registry"),
	}
}

// OnUpdate registers a callback to be invoked, in registration order, on
// every successful Add or Update.
func (r *Registry) OnUpdate(cb Callback) {
	r.mu.Lock()
	r.callbacks = append(r.callbacks, cb)
	r.mu.Unlock()
}

// Add inserts a new order, failing with xerr.AlreadyExists if its order id
// is already registered.
func (r *Registry) Add(order types.Order) error {
	r.mu.Lock()
	if _, exists := r.byOrderID[order.OrderID]; exists {
		r.mu.Unlock()
		return xerr.Newf(xerr.AlreadyExists, "order %s is already registered", order.OrderID)
	}
	r.byOrderID[order.OrderID] = order
	if order.ClientOrderID != "" {
		r.byClientOrderID[order.ClientOrderID] = order.OrderID
	}
	size := len(r.byOrderID)
	r.mu.Unlock()

	globalMetrics.setRegistrySize(size)
	r.dispatch(order)
	return nil
}

// Update replaces the stored record for order.OrderID after validating the
// status transition. An order id the registry doesn't know about is
// delegated to Add, so the first observed state of an order (however it
// arrives) always registers it.
func (r *Registry) Update(order types.Order) error {
	r.mu.Lock()
	existing, ok := r.byOrderID[order.OrderID]
	if !ok {
		r.mu.Unlock()
		return r.Add(order)
	}
	if err := validateTransition(existing.Status, order.Status); err != nil {
		r.mu.Unlock()
		return err
	}
	r.byOrderID[order.OrderID] = order
	if order.ClientOrderID != "" {
		r.byClientOrderID[order.ClientOrderID] = order.OrderID
	}
	r.mu.Unlock()

	r.dispatch(order)
	return nil
}

// Remove deletes orderID from both indices. A no-op if unknown.
func (r *Registry) Remove(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.byOrderID[orderID]
	if !ok {
		return
	}
	delete(r.byOrderID, orderID)
	if order.ClientOrderID != "" {
		delete(r.byClientOrderID, order.ClientOrderID)
	}
	globalMetrics.setRegistrySize(len(r.byOrderID))
}

// Get returns the order registered under orderID.
func (r *Registry) Get(orderID string) (types.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.byOrderID[orderID]
	return order, ok
}

// GetByClientOrderID returns the order registered under clientOrderID.
func (r *Registry) GetByClientOrderID(clientOrderID string) (types.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orderID, ok := r.byClientOrderID[clientOrderID]
	if !ok {
		return types.Order{}, false
	}
	order, ok := r.byOrderID[orderID]
	return order, ok
}

// OpenOrders returns every order whose status is NEW or PARTIALLY_FILLED,
// optionally filtered to one symbol (pass "" for all symbols).
func (r *Registry) OpenOrders(symbol types.Symbol) []types.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.Order
	for _, order := range r.byOrderID {
		if !order.Status.IsActive() {
			continue
		}
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		out = append(out, order)
	}
	return out
}

// AllOrders returns every registered order, optionally filtered to one
// symbol (pass "" for all symbols).
func (r *Registry) AllOrders(symbol types.Symbol) []types.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Order, 0, len(r.byOrderID))
	for _, order := range r.byOrderID {
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		out = append(out, order)
	}
	return out
}

// ClearTerminal drops every order in a terminal status and returns how
// many were removed.
func (r *Registry) ClearTerminal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, order := range r.byOrderID {
		if !order.Status.IsTerminal() {
			continue
		}
		delete(r.byOrderID, id)
		if order.ClientOrderID != "" {
			delete(r.byClientOrderID, order.ClientOrderID)
		}
		count++
	}
	globalMetrics.setRegistrySize(len(r.byOrderID))
	return count
}

// dispatch invokes every registered callback with order, isolating each
// call so one subscriber's panic or error never blocks the others.
func (r *Registry) dispatch(order types.Order) {
	r.mu.RLock()
	callbacks := make([]Callback, len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.RUnlock()

	for _, cb := range callbacks {
		r.invoke(cb, order)
	}
}

func (r *Registry) invoke(cb Callback, order types.Order) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("registry callback panicked", "panic", rec, "order_id", order.OrderID)
		}
	}()
	cb(order)
}
