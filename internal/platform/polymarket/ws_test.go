package polymarket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

var upgrader = websocket.Upgrader{}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// wsServer runs script against each accepted connection after reading the
// subscription handshake into sub.
func wsServer(t *testing.T, sub chan<- SubscribeMessage, script func(*websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		var msg SubscribeMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("read handshake: %v", err)
			return
		}
		if sub != nil {
			sub <- msg
		}
		script(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

const bookFrame = `{"event_type":"book","asset_id":"A1","bids":[{"price":"0.61","size":"10"},{"price":"0.65","size":"4"}],"asks":[{"price":"0.66","size":"3"}]}`

func TestWSClient_HandshakeAndBooks(t *testing.T) {
	sub := make(chan SubscribeMessage, 1)
	release := make(chan struct{})
	url := wsServer(t, sub, func(c *websocket.Conn) {
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"price_change","asset_id":"A1"}`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`[`+bookFrame+`,{"type":"last_trade_price"}]`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"book","asset_id":"A1","bids":[],"asks":[]}`))
		<-release
	})
	defer close(release)

	c := NewWSClient(url, discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx, []string{"A1"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	hs := <-sub
	if hs.Type != "MARKET" || len(hs.AssetsIDs) != 1 || hs.AssetsIDs[0] != "A1" {
		t.Fatalf("handshake=%+v", hs)
	}

	b, err := c.ReadBook(ctx)
	if err != nil {
		t.Fatalf("read first book: %v", err)
	}
	q := b.ToQuote()
	if q.BestBid != 0.65 || q.BestAsk != 0.66 || q.Instrument != "A1" {
		t.Fatalf("quote=%+v", q)
	}

	b, err = c.ReadBook(ctx)
	if err != nil {
		t.Fatalf("read second book: %v", err)
	}
	if q := b.ToQuote(); q.BestBid != 0 || q.BestAsk != 0 {
		t.Fatalf("empty book quote=%+v", q)
	}
}

func TestWSClient_TimeoutKeepsConnection(t *testing.T) {
	send := make(chan struct{})
	done := make(chan struct{})
	url := wsServer(t, nil, func(c *websocket.Conn) {
		<-send
		_ = c.WriteMessage(websocket.TextMessage, []byte(bookFrame))
		<-done
	})
	defer close(done)

	c := NewWSClient(url, discardLogger())
	if err := c.Connect(context.Background(), []string{"A1"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	_, err := c.ReadBook(short)
	cancel()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want deadline exceeded", err)
	}

	close(send)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.ReadBook(ctx); err != nil {
		t.Fatalf("read after timeout: %v", err)
	}
}

func TestWSClient_ServerCloseIsTransportError(t *testing.T) {
	url := wsServer(t, nil, func(c *websocket.Conn) {
		_ = c.WriteMessage(websocket.TextMessage, []byte(bookFrame))
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	c := NewWSClient(url, discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx, []string{"A1"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	if _, err := c.ReadBook(ctx); err != nil {
		t.Fatalf("book before close should be delivered: %v", err)
	}
	_, err := c.ReadBook(ctx)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err=%v want ErrTransport", err)
	}
	if c.Connected() {
		t.Fatalf("client should be disconnected")
	}
	_, err = c.ReadBook(ctx)
	if !errors.Is(err, domain.ErrNotConnected) || !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err=%v want ErrNotConnected", err)
	}
}

func TestWSClient_DialFailure(t *testing.T) {
	c := NewWSClient("ws://127.0.0.1:1/ws/market", discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx, []string{"A1"}); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err=%v want ErrTransport", err)
	}
	if c.Connected() {
		t.Fatalf("client should not be connected")
	}
}
