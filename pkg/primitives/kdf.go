package primitives

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/vaultline/securesession/pkg/apperr"
	"golang.org/x/crypto/hkdf"
)

// zeroIKM stands in for "no shared secret yet" when deriving the
// session id, which is bound only to public handshake fields.
var zeroIKM = make([]byte, sha256.Size)

// KDF derives length bytes of key material from ikm via HKDF-SHA256,
// with label||context as the info parameter. label is a fixed domain
// separation string distinguishing the derivation steps (session id,
// master key, and the two per-direction record keys); context is the
// ordered byte string each derivation step binds to.
//
// Pass nil ikm to derive the session id, where there is no shared
// secret yet and the derivation is keyed only by the public ordered
// field list in context.
func KDF(ikm []byte, label string, context []byte, length int) ([]byte, error) {
	if ikm == nil {
		ikm = zeroIKM
	}
	info := append([]byte(label), context...)
	reader := hkdf.New(sha256.New, ikm, nil, info)

	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("primitives: kdf: %w", apperr.ErrCrypto)
	}
	return out, nil
}
