package session

import "github.com/vaultline/securesession/pkg/primitives"

// Primitives is the structural interface the handshake state machine
// and record layer consume for every cryptographic operation. It is
// satisfied by pkg/primitives.Default; keys cross this boundary as
// opaque byte slices, never as crypto/ecdh or crypto/ecdsa values.
// handshake.go does not go through this interface for everything: it
// validates received ECDH public keys with primitives.ParseECDHPublicKey
// (P-256 only) and uses the fixed primitives.SignatureSize and
// primitives.TagSize, so a provider with another curve or signature or
// tag size is rejected by the state machine.
type Primitives interface {
	// GenerateECDHKeyPair returns a fresh ephemeral keypair: the raw
	// private scalar and the uncompressed public point.
	GenerateECDHKeyPair() (privBytes, pubBytes []byte, err error)

	// ECDHSharedSecret computes the shared secret from a local private
	// scalar and a peer's uncompressed public point.
	ECDHSharedSecret(privBytes, peerPubBytes []byte) ([]byte, error)

	// Sign signs the concatenation of fragments, in order, with a raw
	// signing private key.
	Sign(privBytes []byte, fragments ...[]byte) ([]byte, error)

	// Verify checks a signature over ordered fragments with a raw
	// signing public key.
	Verify(pubBytes, signature []byte, fragments ...[]byte) error

	// KDF derives length bytes from ikm (nil for the session-id step)
	// using label and context as the HKDF info parameter.
	KDF(ikm []byte, label string, context []byte, length int) ([]byte, error)

	// NewRecordCipher constructs a direction-scoped AEAD cipher bound
	// to key.
	NewRecordCipher(key []byte) (primitives.Cipher, error)

	// ComputeMAC produces a keyed tag over transcript.
	ComputeMAC(key, transcript []byte) ([]byte, error)

	// VerifyMAC checks a tag produced by ComputeMAC.
	VerifyMAC(key, transcript, tag []byte) error

	// Zero overwrites b with zero bytes.
	Zero(b []byte)
}
