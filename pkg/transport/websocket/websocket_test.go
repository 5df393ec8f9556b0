package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vaultline/securesession/pkg/container"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	serverDone := make(chan *Transport, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverDone <- New(conn, DefaultConfig())
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := Dial(cfg)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var server *Transport
	select {
	case server = <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server upgrade")
	}
	defer server.Close()

	frame := container.Build(container.TagProto, []byte("ping"))
	if err := client.SendData(frame); err != nil {
		t.Fatalf("SendData: %v", err)
	}

	got, err := server.ReceiveData()
	if err != nil {
		t.Fatalf("ReceiveData: %v", err)
	}
	payload, _, err := container.Parse(got, container.TagProto)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if string(payload) != "ping" {
		t.Fatalf("payload = %q, want %q", payload, "ping")
	}
}

func TestDialRejectsBadURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "://not-a-url"
	if _, err := Dial(cfg); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}
