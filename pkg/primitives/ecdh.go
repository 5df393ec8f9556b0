// Package primitives wraps the concrete cryptographic building blocks
// the session core is built on: P-256 ECDH key agreement, P-256 ECDSA
// signatures over ordered fragment lists, an HKDF-based key derivation
// function, a ChaCha20-Poly1305 AEAD, and secure zeroization helpers.
//
// Everything here is a thin, fail-fast wrapper around the standard
// library and golang.org/x/crypto — pkg/session never touches
// crypto/ecdh or crypto/ecdsa directly.
package primitives

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"github.com/vaultline/securesession/pkg/apperr"
)

// curve is the single elliptic curve used for key agreement throughout
// the protocol.
func curve() ecdh.Curve {
	return ecdh.P256()
}

// ECDHKeyPair holds an ephemeral P-256 key agreement keypair.
type ECDHKeyPair struct {
	Private *ecdh.PrivateKey
	Public  *ecdh.PublicKey
}

// GenerateECDHKeyPair creates a fresh ephemeral P-256 keypair.
func GenerateECDHKeyPair() (*ECDHKeyPair, error) {
	priv, err := curve().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("primitives: generate ecdh keypair: %w", apperr.ErrCrypto)
	}
	return &ECDHKeyPair{Private: priv, Public: priv.PublicKey()}, nil
}

// ECDHPublicKeyBytes returns the uncompressed point encoding of pub, the
// form carried inside TagECPubKey containers.
func ECDHPublicKeyBytes(pub *ecdh.PublicKey) []byte {
	return pub.Bytes()
}

// ParseECDHPublicKey decodes an uncompressed P-256 point received over
// the wire.
func ParseECDHPublicKey(data []byte) (*ecdh.PublicKey, error) {
	pub, err := curve().NewPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("primitives: parse ecdh public key: %w", apperr.ErrInvalidParameter)
	}
	return pub, nil
}

// SharedSecret computes the ECDH shared secret between a local private
// key and a peer's public key.
func SharedSecret(priv *ecdh.PrivateKey, peerPub *ecdh.PublicKey) ([]byte, error) {
	secret, err := priv.ECDH(peerPub)
	if err != nil {
		return nil, fmt.Errorf("primitives: ecdh agreement: %w", apperr.ErrCrypto)
	}
	return secret, nil
}
