package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tradecore/binancefutures-core/internal/symbol"
	"github.com/tradecore/binancefutures-core/pkg/types"
)

const (
	pingInterval             = 60 * time.Second
	pongTimeout              = 10 * time.Second
	initialReconnectDelay    = 1 * time.Second
	maxReconnectDelay        = 120 * time.Second
	reconnectBackoffFactor   = 2
	listenKeyRefreshInterval = 30 * time.Minute
)

// KlineHandler, TradeHandler, and TickerHandler receive parsed market-data
// events. Handlers run synchronously on the read loop's goroutine; a slow
// or blocking handler stalls that stream, matching the source's
// direct-callback-invocation design.
type KlineHandler func(types.Candle)
type TradeHandler func(types.Trade)
type TickerHandler func(types.Ticker)

type streamKind int

const (
	kindKline streamKind = iota
	kindTrade
	kindBookTicker
)

// MarketStream fans a single combined-streams WebSocket connection out to
// per-stream-name callbacks, reconnecting with exponential backoff and
// restarting the connection gracefully whenever the subscription set
// changes while running.
type MarketStream struct {
	baseURL string
	codec   symbol.Codec
	logger  *slog.Logger

	mu            sync.Mutex
	subscriptions map[string]streamKind
	klineHandlers map[string]KlineHandler
	tradeHandlers map[string]TradeHandler
	tickerHandlers map[string]TickerHandler
	running       bool
	cancel        context.CancelFunc
	restartSignal chan struct{}
	done          chan struct{}

	reconnections atomic.Int64
}

// NewMarketStream constructs a MarketStream against baseURL (e.g.
// "wss://fstream.binance.com").
func NewMarketStream(baseURL string, codec symbol.Codec, logger *slog.Logger) *MarketStream {
	return &MarketStream{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		codec:          codec,
		logger:         logger.With("component", "market_stream"),
		subscriptions:  make(map[string]streamKind),
		klineHandlers:  make(map[string]KlineHandler),
		tradeHandlers:  make(map[string]TradeHandler),
		tickerHandlers: make(map[string]TickerHandler),
	}
}

func klineStreamName(venueSymbol, interval string) string {
	return fmt.Sprintf("%s@kline_%s", strings.ToLower(venueSymbol), interval)
}

func tradeStreamName(venueSymbol string) string {
	return fmt.Sprintf("%s@trade", strings.ToLower(venueSymbol))
}

func bookTickerStreamName(venueSymbol string) string {
	return fmt.Sprintf("%s@bookTicker", strings.ToLower(venueSymbol))
}

// SubscribeKline registers a callback for closed klines on sym/interval.
// If the stream is already running, the connection is gracefully
// restarted so the new combined-streams URL takes effect.
func (s *MarketStream) SubscribeKline(sym types.Symbol, interval string, handler KlineHandler) {
	name := klineStreamName(s.codec.Denormalize(sym), interval)
	s.mu.Lock()
	s.subscriptions[name] = kindKline
	s.klineHandlers[name] = handler
	s.mu.Unlock()
	s.restartIfRunning()
}

// SubscribeTrade registers a callback for trades on sym.
func (s *MarketStream) SubscribeTrade(sym types.Symbol, handler TradeHandler) {
	name := tradeStreamName(s.codec.Denormalize(sym))
	s.mu.Lock()
	s.subscriptions[name] = kindTrade
	s.tradeHandlers[name] = handler
	s.mu.Unlock()
	s.restartIfRunning()
}

// SubscribeBookTicker registers a callback for best-bid/ask updates on sym.
func (s *MarketStream) SubscribeBookTicker(sym types.Symbol, handler TickerHandler) {
	name := bookTickerStreamName(s.codec.Denormalize(sym))
	s.mu.Lock()
	s.subscriptions[name] = kindBookTicker
	s.tickerHandlers[name] = handler
	s.mu.Unlock()
	s.restartIfRunning()
}

// Unsubscribe removes a single stream by name (as built by klineStreamName
// et al.), restarting the connection if running.
func (s *MarketStream) Unsubscribe(name string) {
	s.mu.Lock()
	delete(s.subscriptions, name)
	delete(s.klineHandlers, name)
	delete(s.tradeHandlers, name)
	delete(s.tickerHandlers, name)
	s.mu.Unlock()
	s.restartIfRunning()
}

// UnsubscribeAll clears every subscription, restarting (and, with nothing
// left to stream, stopping) the connection if running.
func (s *MarketStream) UnsubscribeAll() {
	s.mu.Lock()
	s.subscriptions = make(map[string]streamKind)
	s.klineHandlers = make(map[string]KlineHandler)
	s.tradeHandlers = make(map[string]TradeHandler)
	s.tickerHandlers = make(map[string]TickerHandler)
	s.mu.Unlock()
	s.restartIfRunning()
}

// Reconnections reports how many times the connection was re-established
// after an unexpected close, for telemetry.
func (s *MarketStream) Reconnections() int64 {
	return s.reconnections.Load()
}

func (s *MarketStream) restartIfRunning() {
	s.mu.Lock()
	running := s.running
	signal := s.restartSignal
	s.mu.Unlock()
	if running && signal != nil {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}

// Start begins the connection loop if there are subscriptions and it isn't
// already running. It returns immediately; the loop runs in the
// background until ctx is canceled or Stop is called.
func (s *MarketStream) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.restartSignal = make(chan struct{}, 1)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(runCtx)
}

// Stop halts the connection loop and waits for it to exit.
func (s *MarketStream) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	cancel()
	<-done
}

func (s *MarketStream) snapshotStreams() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.subscriptions))
	for name := range s.subscriptions {
		names = append(names, name)
	}
	return names
}

func (s *MarketStream) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		close(s.done)
		s.mu.Unlock()
	}()

	delay := initialReconnectDelay
	for {
		if ctx.Err() != nil {
			return
		}
		streams := s.snapshotStreams()
		if len(streams) == 0 {
			return
		}

		url := s.baseURL + "/stream?streams=" + strings.Join(streams, "/")
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("market stream dial failed", "error", err, "retry_in", delay)
			if !sleepOrDone(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		}

		s.logger.Info("market stream connected", "streams", streams)
		delay = initialReconnectDelay

		_ = conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
		})

		connCtx, connCancel := context.WithCancel(ctx)
		readDone := make(chan error, 1)
		go s.pingLoop(connCtx, conn)
		go func() { readDone <- s.readLoop(conn) }()

		select {
		case <-s.restartSignal:
			connCancel()
			_ = conn.Close()
			<-readDone
			continue
		case err := <-readDone:
			connCancel()
			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			s.reconnections.Add(1)
			globalMetrics.observeReconnection("market")
			s.logger.Warn("market stream closed, reconnecting", "error", err, "retry_in", delay)
			if !sleepOrDone(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
		}
	}
}

func (s *MarketStream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(pongTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Warn("market stream ping failed", "error", err)
				_ = conn.Close()
				return
			}
			// tighten the read deadline to this ping's response window; the
			// pong handler loosens it again once the pong arrives.
			_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
		}
	}
}

func (s *MarketStream) readLoop(conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		globalMetrics.observeMessage("market")
		s.handleMessage(message)
	}
}

type combinedEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

func (s *MarketStream) handleMessage(message []byte) {
	var env combinedEnvelope
	streamName := ""
	payload := message
	if err := json.Unmarshal(message, &env); err == nil && env.Stream != "" {
		streamName = env.Stream
		payload = env.Data
	} else {
		// single-stream frame: synthesize the stream name from its event type
		var single struct {
			EventType string `json:"e"`
			Symbol    string `json:"s"`
			Kline     struct {
				Interval string `json:"i"`
			} `json:"k"`
		}
		_ = json.Unmarshal(message, &single)
		switch single.EventType {
		case "kline":
			streamName = klineStreamName(single.Symbol, single.Kline.Interval)
		case "trade":
			streamName = tradeStreamName(single.Symbol)
		case "bookTicker":
			streamName = bookTickerStreamName(single.Symbol)
		default:
			streamName = single.EventType
		}
	}

	s.mu.Lock()
	klineHandler := s.klineHandlers[streamName]
	tradeHandler := s.tradeHandlers[streamName]
	tickerHandler := s.tickerHandlers[streamName]
	s.mu.Unlock()

	switch {
	case strings.Contains(streamName, "@kline_"):
		s.dispatchKline(payload, klineHandler)
	case strings.Contains(streamName, "@trade"):
		s.dispatchTrade(payload, tradeHandler)
	case strings.Contains(streamName, "@bookTicker"):
		s.dispatchBookTicker(payload, tickerHandler)
	default:
		s.logger.Warn("unknown market stream type", "stream", streamName)
	}
}

func (s *MarketStream) dispatchKline(payload []byte, handler KlineHandler) {
	if handler == nil {
		return
	}
	candle, ok := parseKline(payload, s.codec, s.logger)
	if !ok {
		return
	}
	s.invoke(func() { handler(candle) })
}

func (s *MarketStream) dispatchTrade(payload []byte, handler TradeHandler) {
	if handler == nil {
		return
	}
	trade, ok := parseTrade(payload, s.codec, s.logger)
	if !ok {
		return
	}
	s.invoke(func() { handler(trade) })
}

func (s *MarketStream) dispatchBookTicker(payload []byte, handler TickerHandler) {
	if handler == nil {
		return
	}
	ticker, ok := parseBookTicker(payload, s.codec, s.logger)
	if !ok {
		return
	}
	s.invoke(func() { handler(ticker) })
}

// invoke runs a subscriber callback with panic isolation, so one
// misbehaving handler cannot take down the read loop or starve other
// subscribers on the same connection.
func (s *MarketStream) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("market stream handler panicked", "panic", r)
		}
	}()
	fn()
}

func nextDelay(d time.Duration) time.Duration {
	next := d * reconnectBackoffFactor
	if next > maxReconnectDelay {
		return maxReconnectDelay
	}
	return next
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
