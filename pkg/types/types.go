// Package types defines the venue-agnostic data model shared by every layer
// of the connectivity core — the gateway, the WebSocket fan-in, and the
// order management system all speak these types instead of raw venue JSON.
//
// Every monetary or quantity field is a decimal.Decimal. Floating point is
// never used for price, quantity, or PnL: venues return these as strings
// precisely so they aren't rounded through a binary float, and converting
// them to float64 here would throw that precision away.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderType enumerates the order lifecycles the gateway accepts.
type OrderType string

const (
	OrderTypeLimit           OrderType = "LIMIT"
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeStopLoss        OrderType = "STOP_LOSS"
	OrderTypeStopLossLimit   OrderType = "STOP_LOSS_LIMIT"
	OrderTypeTakeProfit      OrderType = "TAKE_PROFIT"
	OrderTypeTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
)

// RequiresPrice reports whether this order type must carry a limit price.
func (t OrderType) RequiresPrice() bool {
	switch t {
	case OrderTypeLimit, OrderTypeStopLossLimit, OrderTypeTakeProfitLimit:
		return true
	default:
		return false
	}
}

// RequiresStopPrice reports whether this order type must carry a stop/trigger price.
func (t OrderType) RequiresStopPrice() bool {
	switch t {
	case OrderTypeStopLoss, OrderTypeStopLossLimit, OrderTypeTakeProfit, OrderTypeTakeProfitLimit:
		return true
	default:
		return false
	}
}

// TimeInForce controls how long a resting order remains eligible to match.
type TimeInForce string

const (
	GTC TimeInForce = "GTC" // Good-Til-Cancelled
	IOC TimeInForce = "IOC" // Immediate-Or-Cancel
	FOK TimeInForce = "FOK" // Fill-Or-Kill
)

// PositionSide distinguishes directional futures exposure. LONG and SHORT
// are the two legs a symbol may carry at once in hedge mode; BOTH is the
// side of the single net position in one-way mode.
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
	PositionBoth  PositionSide = "BOTH"
)

// PositionMode selects whether an account may hold opposing positions per symbol.
type PositionMode string

const (
	PositionModeOneWay PositionMode = "ONE_WAY"
	PositionModeHedge  PositionMode = "HEDGE"
)

// OrderStatus is a closed enumeration of venue-reported order lifecycle states.
type OrderStatus string

const (
	StatusPendingNew      OrderStatus = "PENDING_NEW"
	StatusNew             OrderStatus = "NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusPendingCancel   OrderStatus = "PENDING_CANCEL"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
)

// IsTerminal reports whether status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// IsActive reports whether an order in this status can still be filled or canceled.
func (s OrderStatus) IsActive() bool {
	return s == StatusNew || s == StatusPartiallyFilled
}

// ————————————————————————————————————————————————————————————————————————
// Symbols
// ————————————————————————————————————————————————————————————————————————

// Symbol is the canonical BASE/QUOTE representation used outside the
// gateway. Venue-specific forms are produced by a symbol codec.
type Symbol string

// String returns the canonical "BASE/QUOTE" form.
func (s Symbol) String() string { return string(s) }

// SymbolInfo describes a venue's trading constraints for one symbol.
type SymbolInfo struct {
	Symbol     Symbol
	BaseAsset  string
	QuoteAsset string

	MinQuantity  decimal.Decimal
	MaxQuantity  decimal.Decimal
	QuantityStep decimal.Decimal // lot size step; > 0

	MinPrice  decimal.Decimal
	MaxPrice  decimal.Decimal
	PriceStep decimal.Decimal // tick size; > 0

	MinNotional decimal.Decimal // >= 0

	IsSpot    bool
	IsFutures bool
	IsMargin  bool
	IsTrading bool

	// RawData is a slot for venue-specific fields the normalized model does
	// not surface. BinanceFuturesGateway leaves it nil.
	RawData map[string]any
}

// RoundPrice rounds p down to the nearest multiple of PriceStep (toward zero).
func (si SymbolInfo) RoundPrice(p decimal.Decimal) decimal.Decimal {
	return roundToStep(p, si.PriceStep)
}

// RoundQuantity rounds q down to the nearest multiple of QuantityStep (toward zero).
func (si SymbolInfo) RoundQuantity(q decimal.Decimal) decimal.Decimal {
	return roundToStep(q, si.QuantityStep)
}

// roundToStep truncates v to the nearest multiple of step, toward zero —
// never rounding up, since an over-rounded price or quantity could violate
// the venue's tick/lot constraints.
func roundToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	quotient := v.DivRound(step, 8).Truncate(0)
	return quotient.Mul(step)
}

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

// Candle is a single OHLCV bucket over a fixed interval.
type Candle struct {
	Symbol    Symbol
	Interval  string
	OpenTime  time.Time
	CloseTime time.Time

	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
	Volume decimal.Decimal

	QuoteVolume decimal.Decimal
	Trades      int
}

// Trade is a single executed trade observed on the trade stream.
type Trade struct {
	Symbol Symbol
	Price  decimal.Decimal
	Qty    decimal.Decimal
	Time   time.Time
}

// Ticker is a 24h (or book-ticker) price summary.
type Ticker struct {
	Symbol          Symbol
	Last            decimal.Decimal
	Bid             decimal.Decimal
	Ask             decimal.Decimal
	BidQty          decimal.Decimal
	AskQty          decimal.Decimal
	Volume24h       decimal.Decimal
	QuoteVolume24h  decimal.Decimal
	PriceChange24h  decimal.Decimal
	PriceChangePct  decimal.Decimal
	High24h         decimal.Decimal
	Low24h          decimal.Decimal
	Timestamp       time.Time
}

// PriceLevel is one bid or ask level in an order book.
type PriceLevel struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// OrderBook is a point-in-time snapshot of one symbol's book. Bids descend
// by price, asks ascend.
type OrderBook struct {
	Symbol    Symbol
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the top bid level, or false if the book has no bids.
func (ob OrderBook) BestBid() (PriceLevel, bool) {
	if len(ob.Bids) == 0 {
		return PriceLevel{}, false
	}
	return ob.Bids[0], true
}

// BestAsk returns the top ask level, or false if the book has no asks.
func (ob OrderBook) BestAsk() (PriceLevel, bool) {
	if len(ob.Asks) == 0 {
		return PriceLevel{}, false
	}
	return ob.Asks[0], true
}

// Spread returns BestAsk - BestBid, or false if either side is empty.
func (ob OrderBook) Spread() (decimal.Decimal, bool) {
	bid, ok := ob.BestBid()
	if !ok {
		return decimal.Decimal{}, false
	}
	ask, ok := ob.BestAsk()
	if !ok {
		return decimal.Decimal{}, false
	}
	return ask.Price.Sub(bid.Price), true
}

// ————————————————————————————————————————————————————————————————————————
// Account state
// ————————————————————————————————————————————————————————————————————————

// Balance is an account's holdings of a single asset.
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
	Total  decimal.Decimal // Free + Locked
}

// Position is a futures position in one symbol.
type Position struct {
	Symbol         Symbol
	Side           PositionSide
	Quantity       decimal.Decimal // > 0; zero-quantity positions are filtered by the gateway
	EntryPrice     decimal.Decimal
	MarkPrice      decimal.Decimal
	UnrealizedPnL  decimal.Decimal
	Leverage       int
	LiquidationPrice *decimal.Decimal
	Margin           *decimal.Decimal
	RawData          map[string]any
}

// ————————————————————————————————————————————————————————————————————————
// Orders
// ————————————————————————————————————————————————————————————————————————

// Order is the central entity of the connectivity core: the canonical local
// object the OMS state machine operates on.
type Order struct {
	OrderID       string
	ClientOrderID string
	Symbol        Symbol
	Side          Side
	Type          OrderType
	Status        OrderStatus

	Quantity     decimal.Decimal
	ExecutedQty  decimal.Decimal
	RemainingQty decimal.Decimal // computed: Quantity - ExecutedQty

	Price         *decimal.Decimal // nil for MARKET orders
	AvgFillPrice  decimal.Decimal  // zero until the first fill
	StopPrice     *decimal.Decimal

	CumulativeQuoteQty decimal.Decimal
	Commission         decimal.Decimal
	CommissionAsset    string

	TimeInForce TimeInForce
	CreatedAt   time.Time
	UpdatedAt   time.Time

	RawData map[string]any
}

// WithComputedFields returns a copy of o with RemainingQty recomputed from
// Quantity and ExecutedQty. Call this after constructing or updating an
// Order from a raw venue response, mirroring the source model's
// post-construction invariant enforcement.
func (o Order) WithComputedFields() Order {
	o.RemainingQty = o.Quantity.Sub(o.ExecutedQty)
	return o
}

// IsFilled reports whether the order has fully executed.
func (o Order) IsFilled() bool { return o.Status == StatusFilled }

// IsActive reports whether the order can still be filled or canceled.
func (o Order) IsActive() bool { return o.Status.IsActive() }

// FillPercentage returns executed/quantity * 100, or 0 if quantity is zero.
func (o Order) FillPercentage() float64 {
	if o.Quantity.IsZero() {
		return 0.0
	}
	pct, _ := o.ExecutedQty.Div(o.Quantity).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// ————————————————————————————————————————————————————————————————————————
// User-data stream payloads
// ————————————————————————————————————————————————————————————————————————

// AccountBalance is one asset entry within an AccountUpdate.
type AccountBalance struct {
	Asset             string
	WalletBalance     decimal.Decimal
	CrossWalletBalance decimal.Decimal
}

// AccountPosition is one position entry within an AccountUpdate.
type AccountPosition struct {
	Symbol          Symbol
	PositionAmount  decimal.Decimal // signed: positive long, negative short
	EntryPrice      decimal.Decimal
	UnrealizedPnL   decimal.Decimal
	PositionSide    PositionSide
}

// AccountUpdate is emitted by the user-data stream whenever account state
// (balances and/or positions) changes.
type AccountUpdate struct {
	EventTime       time.Time
	TransactionTime time.Time
	Balances        []AccountBalance
	Positions       []AccountPosition
	Reason          string
}
