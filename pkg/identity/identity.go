// Package identity resolves a peer identity to its long-term signing
// public key, wrapped in a container.TagECPubKey container. Three
// backends share the same Registry interface: an in-memory map for
// tests and demos, PostgreSQL, and Redis.
package identity

import (
	"encoding/hex"
	"fmt"

	"github.com/vaultline/securesession/pkg/apperr"
	"github.com/vaultline/securesession/pkg/container"
)

// Registry resolves a peer identity to its signing public key,
// wrapped in a container.TagECPubKey container, matching the
// Callbacks.GetPublicKeyForID shape pkg/session expects.
type Registry interface {
	Lookup(id []byte) (pubKeyContainer []byte, err error)
}

// MemoryRegistry is an in-process map, used for tests and the demo CLI.
type MemoryRegistry struct {
	keys map[string][]byte
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{keys: make(map[string][]byte)}
}

// Register binds id to a raw uncompressed signing public key; the key
// is stored already wrapped in a container.TagECPubKey container.
func (m *MemoryRegistry) Register(id, signPubKey []byte) {
	m.keys[string(id)] = container.Build(container.TagECPubKey, signPubKey)
}

// Lookup implements Registry.
func (m *MemoryRegistry) Lookup(id []byte) ([]byte, error) {
	v, ok := m.keys[string(id)]
	if !ok {
		return nil, fmt.Errorf("identity: unknown peer %q: %w", hex.EncodeToString(id), apperr.ErrInvalidParameter)
	}
	return v, nil
}
