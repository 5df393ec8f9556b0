// Package tcp implements pkg/session's Callbacks.SendData/ReceiveData
// pair over a plain net.Conn. Every message exchanged by the session
// core is a self-delimiting container frame (pkg/container.HeaderSize
// bytes of header, carrying its own total length), so no additional
// length-prefixing is needed on top of the stream: ReceiveData reads
// the header first, then exactly the remaining declared bytes.
package tcp

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/vaultline/securesession/pkg/container"
)

// Config holds dial/accept parameters for a Transport.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sane defaults for interactive use.
func DefaultConfig() Config {
	return Config{
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Transport wraps a single net.Conn with framed, synchronous
// SendData/ReceiveData methods. Concurrent SendData calls are
// serialized by an internal mutex; concurrent ReceiveData calls are
// not safe, and the session core never makes them.
type Transport struct {
	cfg  Config
	conn net.Conn
	mu   sync.Mutex
}

// Dial connects to addr and returns a ready Transport.
func Dial(addr string, cfg Config) (*Transport, error) {
	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("tcp: dial %s: %w", addr, err)
	}
	return &Transport{cfg: cfg, conn: conn}, nil
}

// Listen starts a listener on addr. Callers Accept connections and
// wrap each with New.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %s: %w", addr, err)
	}
	return ln, nil
}

// New wraps an already-accepted connection.
func New(conn net.Conn, cfg Config) *Transport {
	return &Transport{cfg: cfg, conn: conn}
}

// SendData implements session.Callbacks.SendData.
func (t *Transport) SendData(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfg.WriteTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := t.conn.Write(frame); err != nil {
		return fmt.Errorf("tcp: write: %w", err)
	}
	return nil
}

// ReceiveData implements session.Callbacks.ReceiveData. It reads
// exactly one container frame: the fixed header, then the payload
// length the header declares.
func (t *Transport) ReceiveData() ([]byte, error) {
	if t.cfg.ReadTimeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}

	header := make([]byte, container.HeaderSize)
	if _, err := io.ReadFull(t.conn, header); err != nil {
		return nil, fmt.Errorf("tcp: read header: %w", err)
	}

	total := binary.BigEndian.Uint32(header[4:8])
	if total < container.HeaderSize {
		return nil, fmt.Errorf("tcp: declared frame size %d smaller than header", total)
	}

	frame := make([]byte, total)
	copy(frame, header)
	if _, err := io.ReadFull(t.conn, frame[container.HeaderSize:]); err != nil {
		return nil, fmt.Errorf("tcp: read payload: %w", err)
	}
	return frame, nil
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}
