// Package stream implements the WebSocket fan-in (C7): resilient
// market-data and user-data streams that feed typed events to subscriber
// callbacks, with auto-reconnection, keepalive, and a closed-candle filter.
package stream

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradecore/binancefutures-core/internal/symbol"
	"github.com/tradecore/binancefutures-core/pkg/types"
)

type klineFrame struct {
	Symbol string `json:"s"`
	Kline  struct {
		OpenTime  int64  `json:"t"`
		CloseTime int64  `json:"T"`
		Interval  string `json:"i"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		Closed    bool   `json:"x"`
	} `json:"k"`
}

// parseKline decodes a kline frame, returning ok=false for malformed JSON
// or an open (not-yet-closed) candle. The closed-candle filter is the
// contract subscribers rely on: at most one emission per candle.
func parseKline(raw []byte, codec symbol.Codec, logger *slog.Logger) (types.Candle, bool) {
	var f klineFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		logger.Error("failed to parse kline frame", "error", err)
		return types.Candle{}, false
	}
	if !f.Kline.Closed {
		return types.Candle{}, false
	}
	sym, err := codec.Normalize(f.Symbol)
	if err != nil {
		logger.Error("failed to normalize kline symbol", "symbol", f.Symbol, "error", err)
		return types.Candle{}, false
	}
	return types.Candle{
		Symbol:    sym,
		Interval:  f.Kline.Interval,
		OpenTime:  time.UnixMilli(f.Kline.OpenTime).UTC(),
		CloseTime: time.UnixMilli(f.Kline.CloseTime).UTC(),
		Open:      decOrZero(f.Kline.Open),
		High:      decOrZero(f.Kline.High),
		Low:       decOrZero(f.Kline.Low),
		Close:     decOrZero(f.Kline.Close),
		Volume:    decOrZero(f.Kline.Volume),
	}, true
}

type tradeFrame struct {
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Qty    string `json:"q"`
	Time   int64  `json:"T"`
}

func parseTrade(raw []byte, codec symbol.Codec, logger *slog.Logger) (types.Trade, bool) {
	var f tradeFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		logger.Error("failed to parse trade frame", "error", err)
		return types.Trade{}, false
	}
	sym, err := codec.Normalize(f.Symbol)
	if err != nil {
		logger.Error("failed to normalize trade symbol", "symbol", f.Symbol, "error", err)
		return types.Trade{}, false
	}
	return types.Trade{
		Symbol: sym,
		Price:  decOrZero(f.Price),
		Qty:    decOrZero(f.Qty),
		Time:   time.UnixMilli(f.Time).UTC(),
	}, true
}

type bookTickerFrame struct {
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// parseBookTicker approximates last with best bid, per the frame's field
// set: subscribers needing true last traded price must use the trade stream.
func parseBookTicker(raw []byte, codec symbol.Codec, logger *slog.Logger) (types.Ticker, bool) {
	var f bookTickerFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		logger.Error("failed to parse book ticker frame", "error", err)
		return types.Ticker{}, false
	}
	sym, err := codec.Normalize(f.Symbol)
	if err != nil {
		logger.Error("failed to normalize book ticker symbol", "symbol", f.Symbol, "error", err)
		return types.Ticker{}, false
	}
	bid := decOrZero(f.BidPrice)
	return types.Ticker{
		Symbol:    sym,
		Last:      bid,
		Bid:       bid,
		Ask:       decOrZero(f.AskPrice),
		BidQty:    decOrZero(f.BidQty),
		AskQty:    decOrZero(f.AskQty),
		Timestamp: time.Now().UTC(),
	}, true
}

type orderTradeUpdateFrame struct {
	EventType       string `json:"e"`
	TransactionTime int64  `json:"T"`
	Order           struct {
		Symbol          string `json:"s"`
		ClientOrderID   string `json:"c"`
		Side            string `json:"S"`
		Type            string `json:"o"`
		TimeInForce     string `json:"f"`
		Quantity        string `json:"q"`
		Price           string `json:"p"`
		AvgPrice        string `json:"ap"`
		StopPrice       string `json:"sp"`
		Status          string `json:"X"`
		OrderID         int64  `json:"i"`
		CumFilledQty    string `json:"z"`
		LastFilledPrice string `json:"L"`
		Commission      string `json:"n"`
		CommissionAsset string `json:"N"`
	} `json:"o"`
}

var userStreamOrderStatus = map[string]types.OrderStatus{
	"NEW":              types.StatusNew,
	"PARTIALLY_FILLED": types.StatusPartiallyFilled,
	"FILLED":           types.StatusFilled,
	"CANCELED":         types.StatusCanceled,
	"PENDING_CANCEL":   types.StatusPendingCancel,
	"REJECTED":         types.StatusRejected,
	"EXPIRED":          types.StatusExpired,
}

func parseOrderTradeUpdate(raw []byte, codec symbol.Codec, logger *slog.Logger) (types.Order, bool) {
	var f orderTradeUpdateFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		logger.Error("failed to parse order update frame", "error", err)
		return types.Order{}, false
	}
	sym, err := codec.Normalize(f.Order.Symbol)
	if err != nil {
		logger.Error("failed to normalize order update symbol", "symbol", f.Order.Symbol, "error", err)
		return types.Order{}, false
	}

	orderType := types.OrderType(f.Order.Type)
	var price *decimal.Decimal
	if orderType != types.OrderTypeMarket && f.Order.Price != "" && f.Order.Price != "0" {
		p := decOrZero(f.Order.Price)
		price = &p
	}
	var stopPrice *decimal.Decimal
	if f.Order.StopPrice != "" && f.Order.StopPrice != "0" {
		sp := decOrZero(f.Order.StopPrice)
		stopPrice = &sp
	}

	avgPrice := decOrZero(f.Order.AvgPrice)
	if avgPrice.IsZero() {
		avgPrice = decOrZero(f.Order.LastFilledPrice)
	}

	status, ok := userStreamOrderStatus[f.Order.Status]
	if !ok {
		status = types.StatusNew
	}

	commissionAsset := f.Order.CommissionAsset
	if commissionAsset == "" {
		commissionAsset = "USDT"
	}

	order := types.Order{
		OrderID:         decimal.NewFromInt(f.Order.OrderID).String(),
		ClientOrderID:   f.Order.ClientOrderID,
		Symbol:          sym,
		Side:            types.Side(f.Order.Side),
		Type:            orderType,
		Status:          status,
		Quantity:        decOrZero(f.Order.Quantity),
		ExecutedQty:     decOrZero(f.Order.CumFilledQty),
		Price:           price,
		AvgFillPrice:    avgPrice,
		StopPrice:       stopPrice,
		Commission:      decOrZero(f.Order.Commission),
		CommissionAsset: commissionAsset,
		TimeInForce:     types.TimeInForce(f.Order.TimeInForce),
		UpdatedAt:       time.UnixMilli(f.TransactionTime).UTC(),
	}
	return order.WithComputedFields(), true
}

type accountUpdateFrame struct {
	EventTime       int64 `json:"E"`
	TransactionTime int64 `json:"T"`
	Update          struct {
		Reason    string `json:"m"`
		Balances  []struct {
			Asset              string `json:"a"`
			WalletBalance      string `json:"wb"`
			CrossWalletBalance string `json:"cw"`
		} `json:"B"`
		Positions []struct {
			Symbol        string `json:"s"`
			PositionAmt   string `json:"pa"`
			EntryPrice    string `json:"ep"`
			UnrealizedPnL string `json:"up"`
			PositionSide  string `json:"ps"`
		} `json:"P"`
	} `json:"a"`
}

func parseAccountUpdate(raw []byte, codec symbol.Codec, logger *slog.Logger) (types.AccountUpdate, bool) {
	var f accountUpdateFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		logger.Error("failed to parse account update frame", "error", err)
		return types.AccountUpdate{}, false
	}

	balances := make([]types.AccountBalance, 0, len(f.Update.Balances))
	for _, b := range f.Update.Balances {
		balances = append(balances, types.AccountBalance{
			Asset:              b.Asset,
			WalletBalance:      decOrZero(b.WalletBalance),
			CrossWalletBalance: decOrZero(b.CrossWalletBalance),
		})
	}

	positions := make([]types.AccountPosition, 0, len(f.Update.Positions))
	for _, p := range f.Update.Positions {
		sym, err := codec.Normalize(p.Symbol)
		if err != nil {
			logger.Warn("skipping account update position for unrecognized symbol", "symbol", p.Symbol)
			continue
		}
		positions = append(positions, types.AccountPosition{
			Symbol:         sym,
			PositionAmount: decOrZero(p.PositionAmt),
			EntryPrice:     decOrZero(p.EntryPrice),
			UnrealizedPnL:  decOrZero(p.UnrealizedPnL),
			PositionSide:   types.PositionSide(p.PositionSide),
		})
	}

	reason := f.Update.Reason
	if reason == "" {
		reason = "UNKNOWN"
	}

	return types.AccountUpdate{
		EventTime:       time.UnixMilli(f.EventTime).UTC(),
		TransactionTime: time.UnixMilli(f.TransactionTime).UTC(),
		Balances:        balances,
		Positions:       positions,
		Reason:          reason,
	}, true
}

// parseUserData routes a user-data-stream frame by its "e" event type.
// ORDER_TRADE_UPDATE and executionReport both go through
// parseOrderTradeUpdate, which reads the futures layout (order fields
// nested under "o"); an executionReport in the flat spot layout fails to
// parse and yields nil. ACCOUNT_UPDATE yields an AccountUpdate. Anything else is surfaced as raw
// data with a warning, per the fallback the source's parse_user_data takes
// for event types it doesn't model explicitly.
func parseUserData(raw []byte, codec symbol.Codec, logger *slog.Logger) any {
	var envelope struct {
		EventType string `json:"e"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		logger.Error("failed to parse user data envelope", "error", err)
		return nil
	}

	switch envelope.EventType {
	case "ORDER_TRADE_UPDATE", "executionReport":
		if order, ok := parseOrderTradeUpdate(raw, codec, logger); ok {
			return order
		}
		return nil
	case "ACCOUNT_UPDATE":
		if update, ok := parseAccountUpdate(raw, codec, logger); ok {
			return update
		}
		return nil
	default:
		logger.Warn("unrecognized user data event type", "event_type", envelope.EventType)
		var generic map[string]any
		_ = json.Unmarshal(raw, &generic)
		return generic
	}
}

func decOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
