package oms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tradecore/binancefutures-core/internal/gateway"
	"github.com/tradecore/binancefutures-core/pkg/types"
)

// fakeGateway implements gateway.Gateway with just enough behavior to
// drive the reconciler; every unused operation panics if called.
type fakeGateway struct {
	openOrders     []types.Order
	orderStatus    map[string]*types.Order
	orderStatusErr map[string]error
	canceled       []string
}

func (f *fakeGateway) Connect(ctx context.Context) error    { panic("unused") }
func (f *fakeGateway) Disconnect(ctx context.Context) error  { panic("unused") }
func (f *fakeGateway) IsConnected() bool                     { panic("unused") }
func (f *fakeGateway) GetSymbolInfo(ctx context.Context, symbol types.Symbol) (*types.SymbolInfo, error) {
	panic("unused")
}
func (f *fakeGateway) GetOHLC(ctx context.Context, symbol types.Symbol, interval string, start, end *time.Time, limit int) ([]types.Candle, error) {
	panic("unused")
}
func (f *fakeGateway) GetTicker24h(ctx context.Context, symbol types.Symbol) (*types.Ticker, error) {
	panic("unused")
}
func (f *fakeGateway) GetOrderBook(ctx context.Context, symbol types.Symbol, depth int) (*types.OrderBook, error) {
	panic("unused")
}
func (f *fakeGateway) GetBalances(ctx context.Context) ([]types.Balance, error) { panic("unused") }
func (f *fakeGateway) GetPositions(ctx context.Context) ([]types.Position, error) {
	panic("unused")
}
func (f *fakeGateway) GetPositionMode(ctx context.Context) (types.PositionMode, error) {
	panic("unused")
}
func (f *fakeGateway) SetPositionMode(ctx context.Context, mode types.PositionMode) error {
	panic("unused")
}
func (f *fakeGateway) SetLeverage(ctx context.Context, symbol types.Symbol, leverage int) error {
	panic("unused")
}
func (f *fakeGateway) SubmitOrder(ctx context.Context, req gateway.SubmitOrderRequest) (*types.Order, error) {
	panic("unused")
}
func (f *fakeGateway) ModifyOrder(ctx context.Context, req gateway.ModifyOrderRequest) (*types.Order, error) {
	panic("unused")
}
func (f *fakeGateway) GetListenKey(ctx context.Context) (string, error)            { panic("unused") }
func (f *fakeGateway) RefreshListenKey(ctx context.Context, listenKey string) error { panic("unused") }

func (f *fakeGateway) GetOpenOrders(ctx context.Context, symbol types.Symbol) ([]types.Order, error) {
	return f.openOrders, nil
}

func (f *fakeGateway) GetOrderStatus(ctx context.Context, symbol types.Symbol, orderID, clientOrderID string) (*types.Order, error) {
	if err, ok := f.orderStatusErr[orderID]; ok {
		return nil, err
	}
	if o, ok := f.orderStatus[orderID]; ok {
		return o, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeGateway) CancelOrder(ctx context.Context, symbol types.Symbol, orderID, clientOrderID string) (*types.Order, error) {
	f.canceled = append(f.canceled, orderID)
	return &types.Order{OrderID: orderID, Status: types.StatusCanceled}, nil
}

var _ gateway.Gateway = (*fakeGateway)(nil)

// TestReconcileAddsStrayVenueOrder covers the E\L bucket and scenario S5.
func TestReconcileAddsStrayVenueOrder(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(testLogger())
	fg := &fakeGateway{
		openOrders: []types.Order{newOrder("100", "", types.StatusNew)},
	}
	rc := NewReconciler(fg, registry, testLogger())

	report, err := rc.Reconcile(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.AddedFromVenue != 1 || report.UpdatesApplied != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if _, ok := registry.Get("100"); !ok {
		t.Fatal("expected stray venue order to be added locally")
	}
}

// TestReconcileQueriesAndAppliesMissingLocalOrder covers the L\E bucket:
// an order known locally but absent from the venue's open-orders snapshot
// gets its authoritative terminal status applied.
func TestReconcileQueriesAndAppliesMissingLocalOrder(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(testLogger())
	if err := registry.Add(newOrder("200", "", types.StatusNew)); err != nil {
		t.Fatal(err)
	}

	filled := newOrder("200", "", types.StatusFilled)
	fg := &fakeGateway{
		openOrders:  nil,
		orderStatus: map[string]*types.Order{"200": &filled},
	}
	rc := NewReconciler(fg, registry, testLogger())

	report, err := rc.Reconcile(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.QueriedMissing != 1 || report.UpdatesApplied != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	got, _ := registry.Get("200")
	if got.Status != types.StatusFilled {
		t.Fatalf("expected local order to be updated to FILLED, got %s", got.Status)
	}
}

func TestReconcileLeavesMissingOrderInPlaceOnQueryFailure(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(testLogger())
	if err := registry.Add(newOrder("300", "", types.StatusNew)); err != nil {
		t.Fatal(err)
	}

	fg := &fakeGateway{
		orderStatusErr: map[string]error{"300": errors.New("network error")},
	}
	rc := NewReconciler(fg, registry, testLogger())

	report, err := rc.Reconcile(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.UpdatesApplied != 0 {
		t.Fatalf("expected no updates applied on query failure, got %+v", report)
	}
	got, ok := registry.Get("300")
	if !ok || got.Status != types.StatusNew {
		t.Fatalf("expected order to remain unchanged, got %+v, %v", got, ok)
	}
}

// TestReconcileOverwritesMismatchedStatus covers the E∩L bucket.
func TestReconcileOverwritesMismatchedStatus(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(testLogger())
	if err := registry.Add(newOrder("400", "", types.StatusNew)); err != nil {
		t.Fatal(err)
	}

	fg := &fakeGateway{
		openOrders: []types.Order{newOrder("400", "", types.StatusPartiallyFilled)},
	}
	rc := NewReconciler(fg, registry, testLogger())

	report, err := rc.Reconcile(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Overwritten != 1 || report.UpdatesApplied != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	got, _ := registry.Get("400")
	if got.Status != types.StatusPartiallyFilled {
		t.Fatalf("expected status overwritten from venue, got %s", got.Status)
	}
}

// TestReconcileIdempotent covers P7: reconciling twice in a row with no
// venue-side change between calls applies zero updates the second time.
func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(testLogger())
	fg := &fakeGateway{
		openOrders: []types.Order{newOrder("500", "", types.StatusNew)},
	}
	rc := NewReconciler(fg, registry, testLogger())

	first, err := rc.Reconcile(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatal(err)
	}
	if first.UpdatesApplied == 0 {
		t.Fatal("expected first reconcile to register the venue order")
	}

	second, err := rc.Reconcile(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatal(err)
	}
	if second.UpdatesApplied != 0 {
		t.Fatalf("expected idempotent second reconcile, got %+v", second)
	}
}

func TestCancelStrayCancelsOnlyUnregisteredOrders(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(testLogger())
	if err := registry.Add(newOrder("600", "", types.StatusNew)); err != nil {
		t.Fatal(err)
	}

	fg := &fakeGateway{
		openOrders: []types.Order{
			newOrder("600", "", types.StatusNew), // known locally, must survive
			newOrder("601", "", types.StatusNew), // stray, must be canceled
		},
	}
	rc := NewReconciler(fg, registry, testLogger())

	n, err := rc.CancelStray(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("CancelStray: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 cancellation, got %d", n)
	}
	if len(fg.canceled) != 1 || fg.canceled[0] != "601" {
		t.Fatalf("unexpected canceled set: %+v", fg.canceled)
	}
}
