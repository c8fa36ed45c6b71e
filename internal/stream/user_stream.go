package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tradecore/binancefutures-core/internal/symbol"
)

// ListenKeyProvider is the capability UserStream needs from the gateway: it
// obtains and refreshes the listen key, but never issues the REST calls
// itself. The gateway owns listen-key lifecycle; the stream only observes it.
type ListenKeyProvider interface {
	GetListenKey(ctx context.Context) (string, error)
	RefreshListenKey(ctx context.Context, listenKey string) error
}

// UserDataHandler receives parsed user-data events: a types.Order for
// ORDER_TRADE_UPDATE (and executionReport frames in the same nested
// layout), a types.AccountUpdate for ACCOUNT_UPDATE, or a raw map for
// anything unrecognized.
type UserDataHandler func(any)

// UserStream is the single-connection account/order event feed. It
// schedules listen-key acquisition and periodic refresh through its
// ListenKeyProvider, reconnecting with the same backoff policy as
// MarketStream.
type UserStream struct {
	baseURL  string
	provider ListenKeyProvider
	codec    symbol.Codec
	logger   *slog.Logger

	mu        sync.Mutex
	listenKey string
	handler   UserDataHandler
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}

	reconnections int64
	reconnectsMu  sync.Mutex
}

// NewUserStream constructs a UserStream against baseURL (e.g.
// "wss://fstream.binance.com").
func NewUserStream(baseURL string, provider ListenKeyProvider, codec symbol.Codec, logger *slog.Logger) *UserStream {
	return &UserStream{
		baseURL:  baseURL,
		provider: provider,
		codec:    codec,
		logger:   logger.With("component", "user_stream"),
	}
}

// Start obtains a listen key, then runs the connection and keepalive loops
// in the background until ctx is canceled or Stop is called.
func (s *UserStream) Start(ctx context.Context, handler UserDataHandler) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("user stream already running")
	}
	s.mu.Unlock()

	listenKey, err := s.provider.GetListenKey(ctx)
	if err != nil {
		return fmt.Errorf("obtain listen key: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.listenKey = listenKey
	s.handler = handler
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(runCtx)
	go s.keepAlive(runCtx)
	return nil
}

// Stop halts both loops and waits for the connection loop to exit.
func (s *UserStream) Stop() {
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

// Reconnections reports how many times the connection was re-established
// after an unexpected close, for telemetry.
func (s *UserStream) Reconnections() int64 {
	s.reconnectsMu.Lock()
	defer s.reconnectsMu.Unlock()
	return s.reconnections
}

func (s *UserStream) run(ctx context.Context) {
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

		s.mu.Lock()
		listenKey := s.listenKey
		s.mu.Unlock()

		url := s.baseURL + "/ws/" + listenKey
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("user stream dial failed", "error", err, "retry_in", delay)
			if !sleepOrDone(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		}

		s.logger.Info("user stream connected")
		delay = initialReconnectDelay

		_ = conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
		})

		connCtx, connCancel := context.WithCancel(ctx)
		go s.pingLoop(connCtx, conn)
		err = s.readLoop(conn)
		connCancel()
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		s.reconnectsMu.Lock()
		s.reconnections++
		s.reconnectsMu.Unlock()
		globalMetrics.observeReconnection("user")
		s.logger.Warn("user stream closed, reconnecting", "error", err, "retry_in", delay)
		if !sleepOrDone(ctx, delay) {
			return
		}
		delay = nextDelay(delay)
	}
}

func (s *UserStream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(pongTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Warn("user stream ping failed", "error", err)
				_ = conn.Close()
				return
			}
			// tighten the read deadline to this ping's response window; the
			// pong handler loosens it again once the pong arrives.
			_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
		}
	}
}

func (s *UserStream) readLoop(conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		globalMetrics.observeMessage("user")
		s.mu.Lock()
		handler := s.handler
		s.mu.Unlock()
		if handler == nil {
			continue
		}
		event := parseUserData(message, s.codec, s.logger)
		if event == nil {
			continue
		}
		s.invoke(func() { handler(event) })
	}
}

// keepAlive refreshes the listen key every listenKeyRefreshInterval via the
// gateway's REST call, improving on a source that only logs the intent to
// do so without ever issuing the refresh.
func (s *UserStream) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(listenKeyRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			listenKey := s.listenKey
			s.mu.Unlock()
			if err := s.provider.RefreshListenKey(ctx, listenKey); err != nil {
				s.logger.Error("failed to refresh listen key", "error", err)
			}
		}
	}
}

func (s *UserStream) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("user stream handler panicked", "panic", r)
		}
	}()
	fn()
}
