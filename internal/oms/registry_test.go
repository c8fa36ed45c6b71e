package oms

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/tradecore/binancefutures-core/internal/xerr"
	"github.com/tradecore/binancefutures-core/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newOrder(id, clientID string, status types.OrderStatus) types.Order {
	return types.Order{
		OrderID:       id,
		ClientOrderID: clientID,
		Symbol:        "BTC/USDT",
		Side:          types.Buy,
		Type:          types.OrderTypeLimit,
		Status:        status,
	}
}

func TestRegistryAddRejectsDuplicateOrderID(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testLogger())
	order := newOrder("1", "c1", types.StatusNew)
	if err := r.Add(order); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := r.Add(order)
	if err == nil || !xerr.Is(err, xerr.AlreadyExists) {
		t.Fatalf("expected xerr.AlreadyExists, got %v", err)
	}
}

// TestRegistryBijection covers P2: every order added is reachable by both
// its order id and its client order id, and only that order.
func TestRegistryBijection(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testLogger())
	o1 := newOrder("1", "c1", types.StatusNew)
	o2 := newOrder("2", "c2", types.StatusNew)
	if err := r.Add(o1); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(o2); err != nil {
		t.Fatal(err)
	}

	got, ok := r.Get("1")
	if !ok || got.OrderID != "1" {
		t.Fatalf("Get(1): %+v, %v", got, ok)
	}
	got, ok = r.GetByClientOrderID("c2")
	if !ok || got.OrderID != "2" {
		t.Fatalf("GetByClientOrderID(c2): %+v, %v", got, ok)
	}
	if _, ok := r.Get("nonexistent"); ok {
		t.Fatal("expected Get on unknown id to fail")
	}
}

func TestRegistryUpdateDelegatesToAddWhenUnknown(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testLogger())
	order := newOrder("1", "c1", types.StatusNew)
	if err := r.Update(order); err != nil {
		t.Fatalf("expected update of unknown order to succeed via add, got %v", err)
	}
	if _, ok := r.Get("1"); !ok {
		t.Fatal("expected order to be registered")
	}
}

func TestRegistryUpdateRejectsInvalidTransition(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testLogger())
	order := newOrder("1", "c1", types.StatusFilled)
	if err := r.Add(order); err != nil {
		t.Fatal(err)
	}
	regressed := order
	regressed.Status = types.StatusNew
	err := r.Update(regressed)
	if err == nil || !xerr.Is(err, xerr.InvalidTransition) {
		t.Fatalf("expected xerr.InvalidTransition, got %v", err)
	}
	// the registry must be unaffected by a rejected update
	got, _ := r.Get("1")
	if got.Status != types.StatusFilled {
		t.Fatalf("registry mutated despite rejected transition: %+v", got)
	}
}

// TestRegistryOpenOrdersInvariant covers P3: open_orders returns exactly
// the orders in NEW or PARTIALLY_FILLED, nothing else.
func TestRegistryOpenOrdersInvariant(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testLogger())
	statuses := []types.OrderStatus{
		types.StatusNew, types.StatusPartiallyFilled, types.StatusFilled,
		types.StatusCanceled, types.StatusRejected, types.StatusExpired,
	}
	for i, s := range statuses {
		order := newOrder(string(rune('a'+i)), "", s)
		if err := r.Add(order); err != nil {
			t.Fatal(err)
		}
	}
	open := r.OpenOrders("")
	if len(open) != 2 {
		t.Fatalf("expected 2 open orders, got %d: %+v", len(open), open)
	}
	for _, o := range open {
		if !o.Status.IsActive() {
			t.Fatalf("non-active order returned by OpenOrders: %+v", o)
		}
	}
}

func TestRegistryClearTerminalRemovesOnlyTerminalOrders(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testLogger())
	_ = r.Add(newOrder("1", "", types.StatusNew))
	_ = r.Add(newOrder("2", "", types.StatusFilled))
	_ = r.Add(newOrder("3", "", types.StatusCanceled))

	n := r.ClearTerminal()
	if n != 2 {
		t.Fatalf("expected 2 cleared, got %d", n)
	}
	if _, ok := r.Get("1"); !ok {
		t.Fatal("expected active order to survive ClearTerminal")
	}
	if _, ok := r.Get("2"); ok {
		t.Fatal("expected terminal order to be removed")
	}
}

// TestRegistryCallbacksRunEvenWhenOneFails covers the swallow-and-log
// semantics for subscriber callbacks.
func TestRegistryCallbacksRunEvenWhenOneFails(t *testing.T) {
	t.Parallel()
	r := NewRegistry(testLogger())

	var mu sync.Mutex
	var calledFirst, calledThird bool

	r.OnUpdate(func(types.Order) {
		mu.Lock()
		calledFirst = true
		mu.Unlock()
	})
	r.OnUpdate(func(types.Order) {
		panic("subscriber failure")
	})
	r.OnUpdate(func(types.Order) {
		mu.Lock()
		calledThird = true
		mu.Unlock()
	})

	if err := r.Add(newOrder("1", "", types.StatusNew)); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !calledFirst || !calledThird {
		t.Fatalf("expected both surviving callbacks to run: first=%v third=%v", calledFirst, calledThird)
	}
}
