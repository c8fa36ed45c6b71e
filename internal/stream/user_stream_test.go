package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tradecore/binancefutures-core/internal/symbol"
	"github.com/tradecore/binancefutures-core/pkg/types"
)

type fakeListenKeyProvider struct {
	key       string
	refreshes atomic.Int64
}

func (f *fakeListenKeyProvider) GetListenKey(ctx context.Context) (string, error) {
	return f.key, nil
}

func (f *fakeListenKeyProvider) RefreshListenKey(ctx context.Context, listenKey string) error {
	f.refreshes.Add(1)
	return nil
}

func TestUserStreamDeliversOrderUpdate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		msg := `{"e":"ORDER_TRADE_UPDATE","T":1,"o":{"s":"BTCUSDT","c":"c1","S":"BUY","o":"MARKET","q":"1","p":"0","ap":"100","sp":"0","X":"FILLED","i":1,"z":"1","n":"0","N":"USDT"}}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	provider := &fakeListenKeyProvider{key: "test-listen-key"}
	us := NewUserStream(wsURL, provider, symbol.NewBinanceCodec(), testLogger())

	events := make(chan any, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := us.Start(ctx, func(e any) { events <- e }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer us.Stop()

	select {
	case e := <-events:
		order, ok := e.(types.Order)
		if !ok {
			t.Fatalf("expected types.Order, got %T", e)
		}
		if order.Status != types.StatusFilled || order.Symbol != "BTC/USDT" {
			t.Fatalf("unexpected order: %+v", order)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an order update event")
	}
}

// TestUserStreamDetectsStalledPong mirrors TestMarketStreamDetectsStalledPong
// for the user-data connection: a server that never reads again after
// upgrading never emits a pong, so the armed read deadline must lapse and
// force a reconnect.
func TestUserStreamDetectsStalledPong(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(pingInterval + 2*pongTimeout)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	provider := &fakeListenKeyProvider{key: "stalled-key"}
	us := NewUserStream(wsURL, provider, symbol.NewBinanceCodec(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := us.Start(ctx, func(any) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer us.Stop()

	deadline := time.After(pingInterval + 2*pongTimeout)
	for {
		select {
		case <-deadline:
			t.Fatal("expected a reconnect after the stalled ping went unanswered")
		case <-time.After(100 * time.Millisecond):
			if us.Reconnections() >= 1 {
				return
			}
		}
	}
}

func TestUserStreamStartUsesListenKeyFromProvider(t *testing.T) {
	t.Parallel()

	var gotPath string
	pathCh := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pathCh <- r.URL.Path
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	provider := &fakeListenKeyProvider{key: "abc123"}
	us := NewUserStream(wsURL, provider, symbol.NewBinanceCodec(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := us.Start(ctx, func(any) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer us.Stop()

	select {
	case gotPath = <-pathCh:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a connection attempt")
	}

	if gotPath != "/ws/abc123" {
		t.Fatalf("expected path /ws/abc123, got %s", gotPath)
	}
}
