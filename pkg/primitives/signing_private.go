package primitives

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"math/big"

	"github.com/vaultline/securesession/pkg/apperr"
)

// SigningPrivateKeyBytes returns the raw 32-byte big-endian scalar of a
// P-256 signing private key, the form a caller passes into session.New.
func SigningPrivateKeyBytes(priv *ecdsa.PrivateKey) []byte {
	out := make([]byte, 32)
	priv.D.FillBytes(out)
	return out
}

// ParseSigningPrivateKey reconstructs a P-256 ECDSA private key from its
// raw 32-byte scalar.
func ParseSigningPrivateKey(d []byte) (*ecdsa.PrivateKey, error) {
	if len(d) != 32 {
		return nil, fmt.Errorf("primitives: signing private key length %d, want 32: %w", len(d), apperr.ErrInvalidParameter)
	}
	curve := elliptic.P256()
	priv := new(ecdsa.PrivateKey)
	priv.PublicKey.Curve = curve
	priv.D = new(big.Int).SetBytes(d)
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(d)
	return priv, nil
}
