package primitives

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/vaultline/securesession/pkg/apperr"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the length in bytes of a ChaCha20-Poly1305 record key.
	KeySize = chacha20poly1305.KeySize
	// NonceSize is the length in bytes of the AEAD nonce.
	NonceSize = chacha20poly1305.NonceSize
	// TagSize is the length in bytes of the Poly1305 authentication tag.
	TagSize = 16
)

// Cipher is the minimal direction-scoped AEAD surface pkg/session
// consumes. *RecordCipher implements it; Default.NewRecordCipher
// returns it as an interface value so pkg/session never imports this
// package's concrete types.
type Cipher interface {
	Seal(plaintext []byte) []byte
	Open(record []byte) ([]byte, error)
}

// RecordCipher wraps a single-direction ChaCha20-Poly1305 key with a
// monotonically increasing counter used to build unique nonces. A
// session holds two independent RecordCiphers, one per direction, so
// that a message replayed back to its sender cannot reuse a nonce the
// sender has already consumed.
//
// RecordCipher is not safe for concurrent use; pkg/session takes no
// lock around it and relies on each Session being driven from a single
// goroutine.
type RecordCipher struct {
	aead    cipher.AEAD
	counter uint64
	prefix  [4]byte
}

// NewRecordCipher constructs a RecordCipher bound to a single
// direction's derived message key.
func NewRecordCipher(key []byte) (*RecordCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("primitives: record key length %d, want %d: %w", len(key), KeySize, apperr.ErrInvalidParameter)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("primitives: new aead: %w", apperr.ErrCrypto)
	}
	rc := &RecordCipher{aead: aead}
	if _, err := rand.Read(rc.prefix[:]); err != nil {
		return nil, fmt.Errorf("primitives: nonce prefix: %w", apperr.ErrCrypto)
	}
	return rc, nil
}

func (rc *RecordCipher) nextNonce() [NonceSize]byte {
	var nonce [NonceSize]byte
	count := atomic.AddUint64(&rc.counter, 1) - 1
	binary.BigEndian.PutUint64(nonce[0:8], count)
	copy(nonce[8:12], rc.prefix[:])
	return nonce
}

// Seal encrypts and authenticates plaintext, returning
// nonce || ciphertext || tag.
func (rc *RecordCipher) Seal(plaintext []byte) []byte {
	nonce := rc.nextNonce()
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	copy(out, nonce[:])
	return rc.aead.Seal(out, nonce[:], plaintext, nil)
}

// Open verifies and decrypts a record produced by Seal.
func (rc *RecordCipher) Open(record []byte) ([]byte, error) {
	if len(record) < NonceSize+TagSize {
		return nil, fmt.Errorf("primitives: record too short: %w", apperr.ErrInvalidParameter)
	}
	nonce := record[:NonceSize]
	plaintext, err := rc.aead.Open(nil, nonce, record[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("primitives: record authentication failed: %w", apperr.ErrInvalidParameter)
	}
	return plaintext, nil
}

// ComputeMAC seals an empty plaintext under key and returns the result,
// used for the M3/M4 proof-of-master-key exchange where no payload is
// carried, only a tag binding the transcript under the master key.
func ComputeMAC(key, transcript []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("primitives: mac key length %d, want %d: %w", len(key), KeySize, apperr.ErrInvalidParameter)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("primitives: new mac aead: %w", apperr.ErrCrypto)
	}
	var nonce [NonceSize]byte
	return aead.Seal(nil, nonce[:], nil, transcript), nil
}

// VerifyMAC checks a tag produced by ComputeMAC.
func VerifyMAC(key, transcript, tag []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("primitives: mac key length %d, want %d: %w", len(key), KeySize, apperr.ErrInvalidParameter)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return fmt.Errorf("primitives: new mac aead: %w", apperr.ErrCrypto)
	}
	var nonce [NonceSize]byte
	if _, err := aead.Open(nil, nonce[:], tag, transcript); err != nil {
		return fmt.Errorf("primitives: mac verification failed: %w", apperr.ErrInvalidParameter)
	}
	return nil
}
