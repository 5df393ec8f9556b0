package identity

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vaultline/securesession/pkg/apperr"
	"github.com/vaultline/securesession/pkg/container"
)

func TestMemoryRegistryRoundTrip(t *testing.T) {
	reg := NewMemoryRegistry()
	pub := []byte("a-fake-uncompressed-point-65-bytes-long-aaaaaaaaaaaaaaaaaaaaaaaaa")
	reg.Register([]byte("alice"), pub)

	got, err := reg.Lookup([]byte("alice"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	payload, _, err := container.Parse(got, container.TagECPubKey)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bytes.Equal(payload, pub) {
		t.Fatalf("payload = %q, want %q", payload, pub)
	}
}

func TestMemoryRegistryUnknownIdentity(t *testing.T) {
	reg := NewMemoryRegistry()
	_, err := reg.Lookup([]byte("ghost"))
	if !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}
