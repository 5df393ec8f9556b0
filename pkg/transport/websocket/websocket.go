// Package websocket implements pkg/session's Callbacks.SendData/
// ReceiveData pair over a gorilla/websocket connection. Each container
// frame is sent as exactly one binary WebSocket message, so unlike the
// raw TCP transport no header peek is needed on receive: the frame is
// whatever ReadMessage hands back.
package websocket

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
)

// Config holds the dial/accept parameters for a Transport.
type Config struct {
	URL              string
	TLSConfig        *tls.Config
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64
}

// DefaultConfig returns sane defaults for interactive use.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   1 << 20,
	}
}

// Transport wraps a single *websocket.Conn with framed, synchronous
// SendData/ReceiveData methods.
type Transport struct {
	cfg  Config
	conn *gorilla.Conn
	mu   sync.Mutex
}

// Dial establishes a client-side WebSocket connection.
func Dial(cfg Config) (*Transport, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("websocket: invalid url: %w", err)
	}

	dialer := gorilla.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		TLSClientConfig:  cfg.TLSConfig,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := &net.Dialer{Timeout: cfg.HandshakeTimeout}
			return d.DialContext(ctx, network, addr)
		},
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket: dial %s: %w", cfg.URL, err)
	}
	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Transport{cfg: cfg, conn: conn}, nil
}

// New wraps a server-side connection already upgraded by Upgrade.
func New(conn *gorilla.Conn, cfg Config) *Transport {
	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Transport{cfg: cfg, conn: conn}
}

// Upgrader is shared by server binaries that accept WebSocket
// connections ahead of handing them to New.
var Upgrader = gorilla.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// SendData implements session.Callbacks.SendData, writing frame as a
// single binary WebSocket message.
func (t *Transport) SendData(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfg.WriteTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if err := t.conn.WriteMessage(gorilla.BinaryMessage, frame); err != nil {
		return fmt.Errorf("websocket: write: %w", err)
	}
	return nil
}

// ReceiveData implements session.Callbacks.ReceiveData, returning the
// next binary message verbatim.
func (t *Transport) ReceiveData() ([]byte, error) {
	if t.cfg.ReadTimeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}

	kind, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("websocket: read: %w", err)
	}
	if kind != gorilla.BinaryMessage {
		return nil, fmt.Errorf("websocket: unexpected message type %d", kind)
	}
	return data, nil
}

// Close sends a close frame and releases the connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	closeMsg := gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "closing")
	_ = t.conn.WriteControl(gorilla.CloseMessage, closeMsg, time.Now().Add(time.Second))
	return t.conn.Close()
}
