package primitives

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/vaultline/securesession/pkg/apperr"
)

// SignatureSize is the length of a raw R||S P-256 ECDSA signature.
const SignatureSize = 64

// SigningKeyPair holds a long-term P-256 ECDSA identity keypair.
type SigningKeyPair struct {
	Private *ecdsa.PrivateKey
	Public  *ecdsa.PublicKey
}

// GenerateSigningKeyPair creates a new long-term P-256 signing identity.
func GenerateSigningKeyPair() (*SigningKeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("primitives: generate signing keypair: %w", apperr.ErrCrypto)
	}
	return &SigningKeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// SigningPublicKeyBytes returns the uncompressed point encoding of pub,
// 0x04 || X || Y, the form exchanged and looked up via pkg/identity.
func SigningPublicKeyBytes(pub *ecdsa.PublicKey) []byte {
	out := make([]byte, 65)
	out[0] = 0x04
	pub.X.FillBytes(out[1:33])
	pub.Y.FillBytes(out[33:65])
	return out
}

// ParseSigningPublicKey decodes an uncompressed P-256 point into a
// verification key.
func ParseSigningPublicKey(data []byte) (*ecdsa.PublicKey, error) {
	if len(data) != 65 || data[0] != 0x04 {
		return nil, fmt.Errorf("primitives: malformed signing public key: %w", apperr.ErrInvalidParameter)
	}
	x := new(big.Int).SetBytes(data[1:33])
	y := new(big.Int).SetBytes(data[33:65])
	if !elliptic.P256().IsOnCurve(x, y) {
		return nil, fmt.Errorf("primitives: signing public key off curve: %w", apperr.ErrInvalidParameter)
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

// Sign signs the concatenation of the given fragments with SHA-256 and
// returns a raw 64-byte R||S signature. Fragments are concatenated in
// the order given; callers are responsible for ordering them to match
// the handshake transcript each signature must cover.
func Sign(priv *ecdsa.PrivateKey, fragments ...[]byte) ([]byte, error) {
	digest := hashFragments(fragments)

	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("primitives: sign: %w", apperr.ErrCrypto)
	}

	sig := make([]byte, SignatureSize)
	rBytes := r.Bytes()
	sBytes := s.Bytes()
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	return sig, nil
}

// Verify checks a raw 64-byte R||S signature over the concatenation of
// fragments, in the same order Sign was called with.
func Verify(pub *ecdsa.PublicKey, signature []byte, fragments ...[]byte) error {
	if len(signature) != SignatureSize {
		return fmt.Errorf("primitives: signature length %d, want %d: %w", len(signature), SignatureSize, apperr.ErrInvalidParameter)
	}

	digest := hashFragments(fragments)
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])

	if !ecdsa.Verify(pub, digest[:], r, s) {
		return fmt.Errorf("primitives: signature verification failed: %w", apperr.ErrInvalidParameter)
	}
	return nil
}

func hashFragments(fragments [][]byte) [32]byte {
	h := sha256.New()
	for _, f := range fragments {
		h.Write(f)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
