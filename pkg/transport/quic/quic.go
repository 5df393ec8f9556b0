// Package quic implements pkg/session's Callbacks.SendData/
// ReceiveData pair over a single QUIC bidirectional stream: one stream
// per peer, a UDP-backed listener, and session-scoped keepalives.
// Frames carry no separate length prefix, since pkg/container's header
// already declares the frame's total size, and this package adds no
// encryption of its own beyond the TLS that every QUIC connection runs.
package quic

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/vaultline/securesession/pkg/container"
)

// Config holds the QUIC listener/dialer tuning knobs.
type Config struct {
	KeepAlivePeriod time.Duration
	MaxIdleTimeout  time.Duration
}

// DefaultConfig returns a reasonable tuning: one stream per
// connection, moderate keepalive and idle timeout.
func DefaultConfig() Config {
	return Config{
		KeepAlivePeriod: 10 * time.Second,
		MaxIdleTimeout:  30 * time.Second,
	}
}

func (c Config) quicConfig() *quic.Config {
	return &quic.Config{
		MaxIncomingStreams:    1,
		MaxIncomingUniStreams: 0,
		KeepAlivePeriod:       c.KeepAlivePeriod,
		MaxIdleTimeout:        c.MaxIdleTimeout,
	}
}

// Listener accepts incoming QUIC connections and hands back one
// Transport per accepted stream.
type Listener struct {
	udpConn net.PacketConn
	ln      *quic.Listener
	cfg     Config
}

// Listen opens a UDP-backed QUIC listener on addr.
func Listen(addr string, tlsConfig *tls.Config, cfg Config) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("quic: resolve %s: %w", addr, err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("quic: listen udp: %w", err)
	}

	ln, err := quic.Listen(udpConn, tlsConfig, cfg.quicConfig())
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("quic: listen: %w", err)
	}

	return &Listener{udpConn: udpConn, ln: ln, cfg: cfg}, nil
}

// Accept waits for an incoming connection and its one bidirectional
// stream, then wraps it as a Transport.
func (l *Listener) Accept(ctx context.Context) (*Transport, error) {
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("quic: accept: %w", err)
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(1, "failed to accept stream")
		return nil, fmt.Errorf("quic: accept stream: %w", err)
	}
	return &Transport{conn: conn, stream: stream}, nil
}

// Close shuts down the listener and its UDP socket.
func (l *Listener) Close() error {
	err := l.ln.Close()
	l.udpConn.Close()
	return err
}

// Dial opens an outbound QUIC connection and its one bidirectional
// stream.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config, cfg Config) (*Transport, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConfig, cfg.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("quic: dial %s: %w", addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(1, "failed to open stream")
		return nil, fmt.Errorf("quic: open stream: %w", err)
	}
	return &Transport{conn: conn, stream: stream}, nil
}

// Transport wraps a single QUIC stream with framed, synchronous
// SendData/ReceiveData methods.
type Transport struct {
	conn   *quic.Conn
	stream *quic.Stream
	mu     sync.Mutex
}

// SendData implements session.Callbacks.SendData.
func (t *Transport) SendData(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.stream.Write(frame); err != nil {
		return fmt.Errorf("quic: write: %w", err)
	}
	return nil
}

// ReceiveData implements session.Callbacks.ReceiveData: it reads the
// fixed container header, then exactly the payload length it declares.
func (t *Transport) ReceiveData() ([]byte, error) {
	header := make([]byte, container.HeaderSize)
	if _, err := io.ReadFull(t.stream, header); err != nil {
		return nil, fmt.Errorf("quic: read header: %w", err)
	}

	total := binary.BigEndian.Uint32(header[4:8])
	if total < container.HeaderSize {
		return nil, fmt.Errorf("quic: declared frame size %d smaller than header", total)
	}

	frame := make([]byte, total)
	copy(frame, header)
	if _, err := io.ReadFull(t.stream, frame[container.HeaderSize:]); err != nil {
		return nil, fmt.Errorf("quic: read payload: %w", err)
	}
	return frame, nil
}

// Close closes the stream and the underlying connection.
func (t *Transport) Close() error {
	t.stream.Close()
	return t.conn.CloseWithError(0, "closing")
}
