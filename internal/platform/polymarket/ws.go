package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// DefaultWSURL is the CLOB market channel endpoint.
const DefaultWSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// bookBuffer bounds the decoded snapshots waiting for ReadBook. The
	// oldest snapshot is dropped when it is full.
	bookBuffer = 256
)

// WSClient is a WebSocket client for the Polymarket CLOB market channel.
// Each successful Connect starts a read goroutine that decodes book frames
// into a bounded queue drained by ReadBook, so a caller's read timeout never
// touches the socket. The client does not reconnect on its own.
type WSClient struct {
	wsURL  string
	dialer websocket.Dialer
	logger *slog.Logger
	debug  bool

	mu   sync.Mutex
	sess *session
}

// session is one dialed connection and its read goroutine.
type session struct {
	conn    *websocket.Conn
	books   chan BookMessage
	errc    chan error
	done    chan struct{}
	writeMu sync.Mutex
	once    sync.Once
}

// NewWSClient creates a new WebSocket client for the given WebSocket URL.
//
// wsURL is the CLOB WebSocket endpoint, e.g. "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string, logger *slog.Logger) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		dialer: websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
		logger: logger.With(slog.String("component", "polymarket_ws")),
	}
}

// SetDebug makes the client log every raw inbound frame.
func (w *WSClient) SetDebug(debug bool) {
	w.debug = debug
}

// Connect dials the market channel and sends the subscription handshake for
// assetIDs. An existing connection is replaced and closed.
func (w *WSClient) Connect(ctx context.Context, assetIDs []string) error {
	conn, _, err := w.dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w: %w", domain.ErrTransport, err)
	}

	s := &session{
		conn:  conn,
		books: make(chan BookMessage, bookBuffer),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
	}
	if err := s.writeJSON(NewSubscribeMessage(assetIDs)); err != nil {
		s.close()
		return fmt.Errorf("polymarket/ws: subscribe: %w: %w", domain.ErrTransport, err)
	}

	w.mu.Lock()
	old := w.sess
	w.sess = s
	w.mu.Unlock()
	if old != nil {
		old.close()
	}

	go w.readLoop(s)
	go s.pingLoop()

	w.logger.InfoContext(ctx, "websocket connected",
		slog.String("url", w.wsURL),
		slog.Any("assets", assetIDs),
	)
	return nil
}

// ReadBook returns the next decoded book snapshot. It returns ctx.Err() when
// ctx ends first and leaves the connection usable. A closed or failed socket
// yields an error wrapping domain.ErrTransport; the connection is then
// dropped and later calls report domain.ErrNotConnected until Connect.
func (w *WSClient) ReadBook(ctx context.Context) (BookMessage, error) {
	w.mu.Lock()
	s := w.sess
	w.mu.Unlock()
	if s == nil {
		return BookMessage{}, fmt.Errorf("polymarket/ws: %w: %w", domain.ErrTransport, domain.ErrNotConnected)
	}

	select {
	case b := <-s.books:
		return b, nil
	default:
	}

	select {
	case b := <-s.books:
		return b, nil
	case err := <-s.errc:
		// Drain snapshots that arrived before the failure first.
		select {
		case b := <-s.books:
			s.errc <- err
			return b, nil
		default:
		}
		w.detach(s)
		return BookMessage{}, fmt.Errorf("polymarket/ws: read: %w: %w", domain.ErrTransport, err)
	case <-ctx.Done():
		return BookMessage{}, ctx.Err()
	}
}

// Connected reports whether a session is live.
func (w *WSClient) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sess != nil
}

// Close sends a close frame and shuts down the current connection.
func (w *WSClient) Close() error {
	w.mu.Lock()
	s := w.sess
	w.sess = nil
	w.mu.Unlock()

	if s == nil {
		return nil
	}
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	s.close()
	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

func (w *WSClient) detach(s *session) {
	w.mu.Lock()
	if w.sess == s {
		w.sess = nil
	}
	w.mu.Unlock()
	s.close()
}

// readLoop decodes frames until the socket fails or the session closes.
func (w *WSClient) readLoop(s *session) {
	defer s.close()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				err = fmt.Errorf("connection closed: %w", err)
			default:
			}
			select {
			case s.errc <- err:
			default:
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		if w.debug {
			w.logger.Debug("raw frame", slog.String("body", string(msg)))
		}
		for _, b := range decodeBooks(msg) {
			s.push(b)
		}
	}
}

// push enqueues b, discarding the oldest queued snapshot when full.
func (s *session) push(b BookMessage) {
	for {
		select {
		case s.books <- b:
			return
		default:
		}
		select {
		case <-s.books:
		default:
		}
	}
}

// pingLoop sends periodic ping messages to keep the WebSocket alive.
func (s *session) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
