package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/vaultline/securesession/pkg/container"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := New(clientConn, DefaultConfig())
	server := New(serverConn, DefaultConfig())

	frame := container.Build(container.TagProto, []byte("hello"))

	errCh := make(chan error, 1)
	go func() { errCh <- client.SendData(frame) }()

	got, err := server.ReceiveData()
	if err != nil {
		t.Fatalf("ReceiveData: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("SendData: %v", err)
	}

	payload, _, err := container.Parse(got, container.TagProto)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if string(payload) != "hello" {
		t.Fatalf("payload = %q, want %q", payload, "hello")
	}
}

func TestReceiveDataRejectsShortHeader(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	server := New(serverConn, DefaultConfig())

	go func() {
		clientConn.Write([]byte{1, 2, 3})
		clientConn.Close()
	}()

	if _, err := server.ReceiveData(); err == nil {
		t.Fatal("expected error on truncated header")
	}
}

func TestDialTimeoutOnUnroutableAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DialTimeout = 50 * time.Millisecond
	if _, err := Dial("10.255.255.1:65000", cfg); err == nil {
		t.Fatal("expected dial to time out or fail")
	}
}
