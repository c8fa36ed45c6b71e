package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradecore/binancefutures-core/internal/ratelimit"
	"github.com/tradecore/binancefutures-core/internal/retry"
	"github.com/tradecore/binancefutures-core/internal/symbol"
	"github.com/tradecore/binancefutures-core/internal/xerr"
	"github.com/tradecore/binancefutures-core/pkg/types"
)

const (
	productionBaseURL = "https://fapi.binance.com"
	testnetBaseURL     = "https://testnet.binancefuture.com"

	recvWindowMs = 5000
)

// BinanceFuturesGateway is the Gateway implementor for Binance USD-M
// Futures. Credentials are passed to the constructor, never read from the
// environment or a CLI flag.
type BinanceFuturesGateway struct {
	http       *resty.Client
	codec      symbol.Codec
	limiter    *ratelimit.Limiter
	retryPolicy retry.Policy
	logger     *slog.Logger

	apiKey    string
	apiSecret string

	mu        sync.RWMutex
	connected bool
}

// NewBinanceFuturesGateway constructs a gateway bound to either the
// production or testnet venue, sharing the venue-wide rate limiter
// instance via registry so every gateway instance for "binance-futures"
// throttles against the same buckets.
func NewBinanceFuturesGateway(apiKey, apiSecret string, testnet bool, registry *ratelimit.Registry, logger *slog.Logger) *BinanceFuturesGateway {
	base := productionBaseURL
	if testnet {
		base = testnetBaseURL
	}
	venue := "binance-futures"
	if testnet {
		venue = "binance-futures-testnet"
	}

	httpClient := resty.New().
		SetBaseURL(base).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")

	return &BinanceFuturesGateway{
		http:        httpClient,
		codec:       symbol.NewBinanceCodec(),
		limiter:     registry.Get(venue),
		retryPolicy: retry.DefaultPolicy(),
		logger:      logger.With("component", "gateway", "venue", venue),
		apiKey:      apiKey,
		apiSecret:   apiSecret,
	}
}

// Connect marks the gateway ready for use. There is no persistent REST
// connection to establish; WebSocket connection lifecycle is owned by the
// stream package, not the gateway.
func (g *BinanceFuturesGateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = true
	g.logger.Info("gateway connected")
	return nil
}

// Disconnect marks the gateway unusable. Safe to call multiple times.
func (g *BinanceFuturesGateway) Disconnect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
	g.logger.Info("gateway disconnected")
	return nil
}

func (g *BinanceFuturesGateway) IsConnected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connected
}

// sign computes the HMAC-SHA256 query signature Binance requires on every
// authenticated endpoint.
func (g *BinanceFuturesGateway) sign(params url.Values) string {
	mac := hmac.New(sha256.New, []byte(g.apiSecret))
	mac.Write([]byte(params.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

type apiErrorBody struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// restOp describes one REST call: its weight for the rate limiter, whether
// it counts against the order bucket, and whether it must carry the
// authenticated signature.
type restOp struct {
	method  string
	path    string
	params  url.Values
	weight  int
	isOrder bool
	signed  bool
}

// doJSON executes op, unmarshalling a successful JSON body into T. It
// consults the rate limiter, maps raw errors through classifyAPIError, and
// is wrapped in the retry policy so Transient failures are retried
// transparently; any other kind short-circuits to the caller.
func doJSON[T any](ctx context.Context, g *BinanceFuturesGateway, op restOp) (T, error) {
	return retry.Do(ctx, g.retryPolicy, func(ctx context.Context) (T, error) {
		var zero T
		if err := g.limiter.Acquire(ctx, op.weight, op.isOrder); err != nil {
			return zero, xerr.Wrap(xerr.Connection, err, "rate limiter acquire interrupted")
		}

		params := op.params
		if params == nil {
			params = url.Values{}
		}
		req := g.http.R().SetContext(ctx)

		if op.signed {
			params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
			params.Set("recvWindow", strconv.Itoa(recvWindowMs))
			params.Set("signature", g.sign(params))
			req.SetHeader("X-MBX-APIKEY", g.apiKey)
		}

		var resp *resty.Response
		var err error
		switch op.method {
		case http.MethodGet:
			resp, err = req.SetQueryParamsFromValues(params).Get(op.path)
		case http.MethodPost:
			resp, err = req.SetBody(params.Encode()).Post(op.path)
		case http.MethodPut:
			resp, err = req.SetBody(params.Encode()).Put(op.path)
		case http.MethodDelete:
			resp, err = req.SetQueryParamsFromValues(params).Delete(op.path)
		default:
			return zero, xerr.Newf(xerr.Permanent, "unsupported method %s", op.method)
		}
		if err != nil {
			return zero, xerr.Wrap(xerr.Connection, err, "request failed")
		}

		if resp.StatusCode() >= http.StatusBadRequest {
			var body apiErrorBody
			_ = json.Unmarshal(resp.Body(), &body)
			if body.Code == 0 {
				body.Msg = resp.String()
			}
			return zero, mapAPIError(body.Code, body.Msg)
		}

		var out T
		if err := json.Unmarshal(resp.Body(), &out); err != nil {
			return zero, xerr.Wrap(xerr.Permanent, err, "decode response")
		}
		return out, nil
	})
}

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

type binanceSymbolFilter struct {
	FilterType  string `json:"filterType"`
	MinQty      string `json:"minQty"`
	MaxQty      string `json:"maxQty"`
	StepSize    string `json:"stepSize"`
	MinPrice    string `json:"minPrice"`
	MaxPrice    string `json:"maxPrice"`
	TickSize    string `json:"tickSize"`
	Notional    string `json:"notional"`
}

type binanceSymbolInfo struct {
	Symbol     string                `json:"symbol"`
	BaseAsset  string                `json:"baseAsset"`
	QuoteAsset string                `json:"quoteAsset"`
	Status     string                `json:"status"`
	Filters    []binanceSymbolFilter `json:"filters"`
}

type binanceExchangeInfo struct {
	Symbols []binanceSymbolInfo `json:"symbols"`
}

func (g *BinanceFuturesGateway) GetSymbolInfo(ctx context.Context, sym types.Symbol) (*types.SymbolInfo, error) {
	venueSymbol := g.codec.Denormalize(sym)
	info, err := doJSON[binanceExchangeInfo](ctx, g, restOp{
		method: http.MethodGet,
		path:   "/fapi/v1/exchangeInfo",
		weight: 1,
	})
	if err != nil {
		return nil, err
	}
	for _, s := range info.Symbols {
		if s.Symbol != venueSymbol {
			continue
		}
		return symbolInfoFromBinance(sym, s), nil
	}
	return nil, xerr.Newf(xerr.InvalidOrder, "symbol %s not listed on venue", sym)
}

func symbolInfoFromBinance(sym types.Symbol, s binanceSymbolInfo) *types.SymbolInfo {
	out := &types.SymbolInfo{
		Symbol:     sym,
		BaseAsset:  s.BaseAsset,
		QuoteAsset: s.QuoteAsset,
		IsFutures:  true,
		IsTrading:  s.Status == "TRADING",
	}
	for _, f := range s.Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			out.MinQuantity = decimalOrZero(f.MinQty)
			out.MaxQuantity = decimalOrZero(f.MaxQty)
			out.QuantityStep = decimalOrZero(f.StepSize)
		case "PRICE_FILTER":
			out.MinPrice = decimalOrZero(f.MinPrice)
			out.MaxPrice = decimalOrZero(f.MaxPrice)
			out.PriceStep = decimalOrZero(f.TickSize)
		case "MIN_NOTIONAL":
			out.MinNotional = decimalOrZero(f.Notional)
		}
	}
	return out
}

type binanceKline []any

func (g *BinanceFuturesGateway) GetOHLC(ctx context.Context, sym types.Symbol, interval string, start, end *time.Time, limit int) ([]types.Candle, error) {
	if limit <= 0 || limit > 1500 {
		limit = 500
	}
	params := url.Values{}
	params.Set("symbol", g.codec.Denormalize(sym))
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if start != nil {
		params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	}
	if end != nil {
		params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	}

	raw, err := doJSON[[]binanceKline](ctx, g, restOp{
		method: http.MethodGet,
		path:   "/fapi/v1/klines",
		params: params,
		weight: 5,
	})
	if err != nil {
		return nil, err
	}

	candles := make([]types.Candle, 0, len(raw))
	for _, k := range raw {
		c, ok := parseKline(sym, interval, k)
		if !ok {
			g.logger.Warn("dropping malformed kline frame")
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// parseKline decodes a REST kline array: k[0] open_time, k[1..4] OHLC,
// k[5] volume, k[6] close_time, k[7] quote_volume, k[8] trade count.
func parseKline(sym types.Symbol, interval string, k binanceKline) (types.Candle, bool) {
	if len(k) < 9 {
		return types.Candle{}, false
	}
	asNumber := func(v any) float64 {
		f, _ := v.(float64)
		return f
	}
	asString := func(v any) string {
		s, _ := v.(string)
		return s
	}
	return types.Candle{
		Symbol:      sym,
		Interval:    interval,
		OpenTime:    time.UnixMilli(int64(asNumber(k[0]))).UTC(),
		Open:        decimalOrZero(asString(k[1])),
		High:        decimalOrZero(asString(k[2])),
		Low:         decimalOrZero(asString(k[3])),
		Close:       decimalOrZero(asString(k[4])),
		Volume:      decimalOrZero(asString(k[5])),
		CloseTime:   time.UnixMilli(int64(asNumber(k[6]))).UTC(),
		QuoteVolume: decimalOrZero(asString(k[7])),
		Trades:      int(asNumber(k[8])),
	}, true
}

type binanceTicker24h struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	CloseTime          int64  `json:"closeTime"`
}

type binanceBookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

func (g *BinanceFuturesGateway) GetTicker24h(ctx context.Context, sym types.Symbol) (*types.Ticker, error) {
	venueSymbol := g.codec.Denormalize(sym)
	params := url.Values{"symbol": {venueSymbol}}

	ticker, err := doJSON[binanceTicker24h](ctx, g, restOp{method: http.MethodGet, path: "/fapi/v1/ticker/24hr", params: params, weight: 1})
	if err != nil {
		return nil, err
	}
	book, err := doJSON[binanceBookTicker](ctx, g, restOp{method: http.MethodGet, path: "/fapi/v1/ticker/bookTicker", params: params, weight: 1})
	if err != nil {
		return nil, err
	}

	return &types.Ticker{
		Symbol:         sym,
		Last:           decimalOrZero(ticker.LastPrice),
		Bid:            decimalOrZero(book.BidPrice),
		Ask:            decimalOrZero(book.AskPrice),
		BidQty:         decimalOrZero(book.BidQty),
		AskQty:         decimalOrZero(book.AskQty),
		Volume24h:      decimalOrZero(ticker.Volume),
		QuoteVolume24h: decimalOrZero(ticker.QuoteVolume),
		PriceChange24h: decimalOrZero(ticker.PriceChange),
		PriceChangePct: decimalOrZero(ticker.PriceChangePercent),
		High24h:        decimalOrZero(ticker.HighPrice),
		Low24h:         decimalOrZero(ticker.LowPrice),
		Timestamp:      millisToTime(ticker.CloseTime),
	}, nil
}

var validDepths = map[int]bool{5: true, 10: true, 20: true, 50: true, 100: true, 500: true, 1000: true}

type binanceOrderBook struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
	Time int64       `json:"E"`
}

func (g *BinanceFuturesGateway) GetOrderBook(ctx context.Context, sym types.Symbol, depth int) (*types.OrderBook, error) {
	if !validDepths[depth] {
		depth = 100
	}
	params := url.Values{
		"symbol": {g.codec.Denormalize(sym)},
		"limit":  {strconv.Itoa(depth)},
	}
	raw, err := doJSON[binanceOrderBook](ctx, g, restOp{method: http.MethodGet, path: "/fapi/v1/depth", params: params, weight: 5})
	if err != nil {
		return nil, err
	}
	return &types.OrderBook{
		Symbol:    sym,
		Bids:      priceLevels(raw.Bids),
		Asks:      priceLevels(raw.Asks),
		Timestamp: millisToTime(raw.Time),
	}, nil
}

func priceLevels(levels [][2]string) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, types.PriceLevel{Price: decimalOrZero(l[0]), Qty: decimalOrZero(l[1])})
	}
	return out
}

// ————————————————————————————————————————————————————————————————————————
// Account state
// ————————————————————————————————————————————————————————————————————————

type binanceAccountAsset struct {
	Asset              string `json:"asset"`
	AvailableBalance   string `json:"availableBalance"`
	InitialMargin      string `json:"initialMargin"`
}

type binanceAccount struct {
	Assets []binanceAccountAsset `json:"assets"`
}

func (g *BinanceFuturesGateway) GetBalances(ctx context.Context) ([]types.Balance, error) {
	account, err := doJSON[binanceAccount](ctx, g, restOp{method: http.MethodGet, path: "/fapi/v2/account", weight: 5, signed: true})
	if err != nil {
		return nil, err
	}
	balances := make([]types.Balance, 0, len(account.Assets))
	for _, a := range account.Assets {
		free := decimalOrZero(a.AvailableBalance)
		locked := decimalOrZero(a.InitialMargin)
		total := free.Add(locked)
		if total.IsZero() {
			continue
		}
		balances = append(balances, types.Balance{Asset: a.Asset, Free: free, Locked: locked, Total: total})
	}
	return balances, nil
}

type binancePosition struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	Leverage         string `json:"leverage"`
	LiquidationPrice string `json:"liquidationPrice"`
	PositionSide     string `json:"positionSide"`
}

func (g *BinanceFuturesGateway) GetPositions(ctx context.Context) ([]types.Position, error) {
	raw, err := doJSON[[]binancePosition](ctx, g, restOp{method: http.MethodGet, path: "/fapi/v2/positionRisk", weight: 5, signed: true})
	if err != nil {
		return nil, err
	}
	positions := make([]types.Position, 0, len(raw))
	for _, p := range raw {
		amt := decimalOrZero(p.PositionAmt)
		if amt.IsZero() {
			continue
		}
		side := types.PositionLong
		if amt.IsNegative() {
			side = types.PositionShort
		}
		qty := amt.Abs()
		leverage, _ := strconv.Atoi(p.Leverage)

		var liqPrice *decimal.Decimal
		if lp := decimalOrZero(p.LiquidationPrice); !lp.IsZero() {
			liqPrice = &lp
		}

		sym, err := g.codec.Normalize(p.Symbol)
		if err != nil {
			g.logger.Warn("skipping position for unrecognized symbol", "symbol", p.Symbol)
			continue
		}

		positions = append(positions, types.Position{
			Symbol:           sym,
			Side:             side,
			Quantity:         qty,
			EntryPrice:       decimalOrZero(p.EntryPrice),
			MarkPrice:        decimalOrZero(p.MarkPrice),
			UnrealizedPnL:    decimalOrZero(p.UnRealizedProfit),
			Leverage:         leverage,
			LiquidationPrice: liqPrice,
		})
	}
	return positions, nil
}

type binancePositionModeResponse struct {
	DualSidePosition bool `json:"dualSidePosition"`
}

func (g *BinanceFuturesGateway) GetPositionMode(ctx context.Context) (types.PositionMode, error) {
	resp, err := doJSON[binancePositionModeResponse](ctx, g, restOp{method: http.MethodGet, path: "/fapi/v1/positionSide/dual", weight: 30, signed: true})
	if err != nil {
		return "", err
	}
	if resp.DualSidePosition {
		return types.PositionModeHedge, nil
	}
	return types.PositionModeOneWay, nil
}

func (g *BinanceFuturesGateway) SetPositionMode(ctx context.Context, mode types.PositionMode) error {
	params := url.Values{"dualSidePosition": {strconv.FormatBool(mode == types.PositionModeHedge)}}
	_, err := doJSON[map[string]any](ctx, g, restOp{method: http.MethodPost, path: "/fapi/v1/positionSide/dual", params: params, weight: 1, signed: true})
	return err
}

func (g *BinanceFuturesGateway) SetLeverage(ctx context.Context, sym types.Symbol, leverage int) error {
	params := url.Values{
		"symbol":   {g.codec.Denormalize(sym)},
		"leverage": {strconv.Itoa(leverage)},
	}
	_, err := doJSON[map[string]any](ctx, g, restOp{method: http.MethodPost, path: "/fapi/v1/leverage", params: params, weight: 1, signed: true})
	return err
}

// ————————————————————————————————————————————————————————————————————————
// Orders
// ————————————————————————————————————————————————————————————————————————

func (g *BinanceFuturesGateway) SubmitOrder(ctx context.Context, order SubmitOrderRequest) (*types.Order, error) {
	if order.Type.RequiresPrice() && order.Price == nil {
		return nil, xerr.Newf(xerr.InvalidOrder, "order type %s requires a price", order.Type)
	}
	if order.Type.RequiresStopPrice() && order.StopPrice == nil {
		return nil, xerr.Newf(xerr.InvalidOrder, "order type %s requires a stop price", order.Type)
	}

	clientOrderID := order.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	params := url.Values{
		"symbol":           {g.codec.Denormalize(order.Symbol)},
		"side":             {string(order.Side)},
		"type":             {string(order.Type)},
		"quantity":         {order.Quantity.String()},
		"newClientOrderId": {clientOrderID},
	}
	if order.Price != nil {
		params.Set("price", order.Price.String())
	}
	if order.StopPrice != nil {
		params.Set("stopPrice", order.StopPrice.String())
	}
	if order.TimeInForce != "" {
		params.Set("timeInForce", string(order.TimeInForce))
	}
	if order.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	raw, err := doJSON[binanceOrderResponse](ctx, g, restOp{method: http.MethodPost, path: "/fapi/v1/order", params: params, weight: 0, isOrder: true, signed: true})
	if err != nil {
		return nil, err
	}
	return parseOrderResponse(order.Symbol, order.Type, raw), nil
}

// ModifyOrder replaces an existing order via Binance's cancel-replace
// endpoint, which atomically cancels the original and submits the
// replacement in one venue-side operation.
func (g *BinanceFuturesGateway) ModifyOrder(ctx context.Context, req ModifyOrderRequest) (*types.Order, error) {
	if req.OrderID == "" && req.ClientOrderID == "" {
		return nil, xerr.New(xerr.InvalidOrder, "modify requires order_id or client_order_id")
	}

	params := url.Values{
		"symbol":            {g.codec.Denormalize(req.Symbol)},
		"cancelReplaceMode": {"STOP_ON_FAILURE"},
	}
	if req.OrderID != "" {
		params.Set("cancelOrderId", req.OrderID)
	} else {
		params.Set("cancelOrigClientOrderId", req.ClientOrderID)
	}
	if req.Quantity != nil {
		params.Set("quantity", req.Quantity.String())
	}
	if req.Price != nil {
		params.Set("price", req.Price.String())
	}

	type cancelReplaceResponse struct {
		NewOrderResponse binanceOrderResponse `json:"newOrderResponse"`
	}

	resp, err := doJSON[cancelReplaceResponse](ctx, g, restOp{method: http.MethodPost, path: "/fapi/v1/order/cancelReplace", params: params, weight: 0, isOrder: true, signed: true})
	if err != nil {
		return nil, err
	}
	return parseOrderResponse(req.Symbol, types.OrderTypeLimit, resp.NewOrderResponse), nil
}

// ModifyOrderFallback is the explicit cancel-then-submit path used on
// venues/paths without a native cancel-replace operation. If the cancel
// succeeds but the replacement submit fails, it returns
// ErrModifyPartialFailure wrapping the submit error so the caller knows
// the original order no longer rests on the book.
func (g *BinanceFuturesGateway) ModifyOrderFallback(ctx context.Context, req ModifyOrderRequest, resubmit SubmitOrderRequest) (*types.Order, error) {
	if _, err := g.CancelOrder(ctx, req.Symbol, req.OrderID, req.ClientOrderID); err != nil {
		return nil, err
	}
	order, err := g.SubmitOrder(ctx, resubmit)
	if err != nil {
		kind, ok := xerr.KindOf(err)
		if !ok {
			kind = xerr.Transient
		}
		return nil, xerr.Wrap(kind, fmt.Errorf("%w: %v", ErrModifyPartialFailure, err), "replacement submit failed after cancel")
	}
	return order, nil
}

func (g *BinanceFuturesGateway) CancelOrder(ctx context.Context, sym types.Symbol, orderID, clientOrderID string) (*types.Order, error) {
	if orderID == "" && clientOrderID == "" {
		return nil, xerr.New(xerr.InvalidOrder, "cancel requires order_id or client_order_id")
	}
	params := url.Values{"symbol": {g.codec.Denormalize(sym)}}
	if orderID != "" {
		params.Set("orderId", orderID)
	} else {
		params.Set("origClientOrderId", clientOrderID)
	}
	raw, err := doJSON[binanceOrderResponse](ctx, g, restOp{method: http.MethodDelete, path: "/fapi/v1/order", params: params, weight: 1, signed: true})
	if err != nil {
		return nil, err
	}
	return parseOrderResponse(sym, types.OrderType(raw.Type), raw), nil
}

func (g *BinanceFuturesGateway) GetOpenOrders(ctx context.Context, sym types.Symbol) ([]types.Order, error) {
	params := url.Values{}
	weight := 40
	if sym != "" {
		params.Set("symbol", g.codec.Denormalize(sym))
		weight = 1
	}
	raw, err := doJSON[[]binanceOrderResponse](ctx, g, restOp{method: http.MethodGet, path: "/fapi/v1/openOrders", params: params, weight: weight, signed: true})
	if err != nil {
		return nil, err
	}
	orders := make([]types.Order, 0, len(raw))
	for _, r := range raw {
		orderSymbol := sym
		if orderSymbol == "" {
			if s, err := g.codec.Normalize(r.Symbol); err == nil {
				orderSymbol = s
			}
		}
		orders = append(orders, *parseOrderResponse(orderSymbol, types.OrderType(r.Type), r))
	}
	return orders, nil
}

func (g *BinanceFuturesGateway) GetOrderStatus(ctx context.Context, sym types.Symbol, orderID, clientOrderID string) (*types.Order, error) {
	if orderID == "" && clientOrderID == "" {
		return nil, xerr.New(xerr.InvalidOrder, "get_order_status requires order_id or client_order_id")
	}
	params := url.Values{"symbol": {g.codec.Denormalize(sym)}}
	if orderID != "" {
		params.Set("orderId", orderID)
	} else {
		params.Set("origClientOrderId", clientOrderID)
	}
	raw, err := doJSON[binanceOrderResponse](ctx, g, restOp{method: http.MethodGet, path: "/fapi/v1/order", params: params, weight: 1, signed: true})
	if err != nil {
		return nil, err
	}
	return parseOrderResponse(sym, types.OrderType(raw.Type), raw), nil
}

// ————————————————————————————————————————————————————————————————————————
// Listen key lifecycle (owned here; the stream package only observes)
// ————————————————————————————————————————————————————————————————————————

type binanceListenKeyResponse struct {
	ListenKey string `json:"listenKey"`
}

func (g *BinanceFuturesGateway) GetListenKey(ctx context.Context) (string, error) {
	resp, err := doJSON[binanceListenKeyResponse](ctx, g, restOp{method: http.MethodPost, path: "/fapi/v1/listenKey", weight: 1, signed: true})
	if err != nil {
		return "", err
	}
	return resp.ListenKey, nil
}

func (g *BinanceFuturesGateway) RefreshListenKey(ctx context.Context, listenKey string) error {
	params := url.Values{"listenKey": {listenKey}}
	_, err := doJSON[map[string]any](ctx, g, restOp{method: http.MethodPut, path: "/fapi/v1/listenKey", params: params, weight: 1, signed: true})
	return err
}
