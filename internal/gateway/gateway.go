// Package gateway implements the uniform REST surface (C6) over a
// derivatives venue: market data, account state, and order lifecycle
// operations expressed in the connectivity core's normalized types.
//
// Gateway is a capability interface so strategy code depends on behavior,
// not on a concrete venue. BinanceFuturesGateway is the sole implementor
// today; the interface leaves room for others with the same shape.
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradecore/binancefutures-core/pkg/types"
)

// SubmitOrderRequest carries the arguments to SubmitOrder. Which fields are
// required depends on Type: Price is mandatory for LIMIT/STOP_LOSS_LIMIT/
// TAKE_PROFIT_LIMIT, StopPrice for any STOP_LOSS/TAKE_PROFIT variant.
type SubmitOrderRequest struct {
	Symbol        types.Symbol
	Side          types.Side
	Type          types.OrderType
	Quantity      decimal.Decimal
	Price         *decimal.Decimal
	StopPrice     *decimal.Decimal
	TimeInForce   types.TimeInForce
	ClientOrderID string // generated if empty
	ReduceOnly    bool
}

// ModifyOrderRequest carries the arguments to ModifyOrder. Exactly one of
// OrderID or ClientOrderID must identify the order being replaced.
type ModifyOrderRequest struct {
	Symbol        types.Symbol
	OrderID       string
	ClientOrderID string
	Quantity      *decimal.Decimal
	Price         *decimal.Decimal
}

// Gateway is the venue-agnostic REST surface. Every operation consults the
// rate limiter before any wire call, maps raw venue errors onto xerr.Kind,
// and wraps retryable operations in the retry policy.
type Gateway interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	GetSymbolInfo(ctx context.Context, symbol types.Symbol) (*types.SymbolInfo, error)
	GetOHLC(ctx context.Context, symbol types.Symbol, interval string, start, end *time.Time, limit int) ([]types.Candle, error)
	GetTicker24h(ctx context.Context, symbol types.Symbol) (*types.Ticker, error)
	GetOrderBook(ctx context.Context, symbol types.Symbol, depth int) (*types.OrderBook, error)

	GetBalances(ctx context.Context) ([]types.Balance, error)
	GetPositions(ctx context.Context) ([]types.Position, error)
	GetPositionMode(ctx context.Context) (types.PositionMode, error)
	SetPositionMode(ctx context.Context, mode types.PositionMode) error
	SetLeverage(ctx context.Context, symbol types.Symbol, leverage int) error

	SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*types.Order, error)
	ModifyOrder(ctx context.Context, req ModifyOrderRequest) (*types.Order, error)
	CancelOrder(ctx context.Context, symbol types.Symbol, orderID, clientOrderID string) (*types.Order, error)
	GetOpenOrders(ctx context.Context, symbol types.Symbol) ([]types.Order, error)
	GetOrderStatus(ctx context.Context, symbol types.Symbol, orderID, clientOrderID string) (*types.Order, error)

	// GetListenKey and RefreshListenKey back the user-data stream's
	// connection and keepalive; the WS fan-in only observes these, it
	// never owns the REST calls itself (the gateway does).
	GetListenKey(ctx context.Context) (string, error)
	RefreshListenKey(ctx context.Context, listenKey string) error
}

// ErrModifyPartialFailure is returned by ModifyOrderFallback, the explicit
// cancel-then-submit path, when the cancel succeeds but the
// replacement submit fails: the caller is left with no resting order and
// must decide whether to retry the submit or treat the position as flat.
var ErrModifyPartialFailure = modifyPartialFailureError{}

type modifyPartialFailureError struct{}

func (modifyPartialFailureError) Error() string {
	return "gateway: order canceled but replacement submit failed"
}
