package gateway

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradecore/binancefutures-core/pkg/types"
)

// binanceOrderResponse mirrors the JSON shape Binance USD-M Futures returns
// from /fapi/v1/order (and the futures_create_order/futures_cancel_order/
// futures_cancel_replace response bodies, which share this shape).
type binanceOrderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"timeInForce"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	CumQuote      string `json:"cumQuote"`
	Price         string `json:"price"`
	AvgPrice      string `json:"avgPrice"`
	StopPrice     string `json:"stopPrice"`
	UpdateTime    int64  `json:"updateTime"`
}

// binanceOrderStatus maps Binance's order status tokens onto types.OrderStatus.
var binanceOrderStatus = map[string]types.OrderStatus{
	"NEW":              types.StatusNew,
	"PARTIALLY_FILLED": types.StatusPartiallyFilled,
	"FILLED":           types.StatusFilled,
	"CANCELED":         types.StatusCanceled,
	"PENDING_CANCEL":   types.StatusPendingCancel,
	"REJECTED":         types.StatusRejected,
	"EXPIRED":          types.StatusExpired,
	"NEW_INSURANCE":    types.StatusNew,
	"NEW_ADL":          types.StatusNew,
}

func parseOrderStatus(raw string) types.OrderStatus {
	if s, ok := binanceOrderStatus[raw]; ok {
		return s
	}
	return types.StatusNew
}

func decimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseOrderResponse builds an Order from a raw Binance order payload,
// grounded exactly on _parse_order_response: price is nil for MARKET
// orders; avg_fill_price comes from the venue's avgPrice field, or
// from cumQuote/executedQty when that field is zero but the order has
// partially or fully filled.
func parseOrderResponse(symbol types.Symbol, orderType types.OrderType, raw binanceOrderResponse) *types.Order {
	executedQty := decimalOrZero(raw.ExecutedQty)
	cumQuote := decimalOrZero(raw.CumQuote)

	var price *decimal.Decimal
	if orderType != types.OrderTypeMarket && raw.Price != "" && raw.Price != "0" {
		p := decimalOrZero(raw.Price)
		price = &p
	}

	avgFillPrice := decimalOrZero(raw.AvgPrice)
	if avgFillPrice.IsZero() && !executedQty.IsZero() {
		avgFillPrice = cumQuote.Div(executedQty)
	}

	var stopPrice *decimal.Decimal
	if raw.StopPrice != "" && raw.StopPrice != "0" {
		sp := decimalOrZero(raw.StopPrice)
		stopPrice = &sp
	}

	order := types.Order{
		OrderID:            formatOrderID(raw.OrderID),
		ClientOrderID:      raw.ClientOrderID,
		Symbol:             symbol,
		Side:               types.Side(raw.Side),
		Type:               orderType,
		Status:             parseOrderStatus(raw.Status),
		Quantity:           decimalOrZero(raw.OrigQty),
		ExecutedQty:        executedQty,
		Price:              price,
		AvgFillPrice:       avgFillPrice,
		StopPrice:          stopPrice,
		CumulativeQuoteQty: cumQuote,
		Commission:         decimal.Zero,
		CommissionAsset:    "USDT",
		TimeInForce:        types.TimeInForce(raw.TimeInForce),
		UpdatedAt:          millisToTime(raw.UpdateTime),
	}
	order = order.WithComputedFields()
	return &order
}

func formatOrderID(id int64) string {
	return decimal.NewFromInt(id).String()
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
