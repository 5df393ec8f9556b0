package primitives

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vaultline/securesession/pkg/apperr"
)

func TestECDHAgreementMatches(t *testing.T) {
	a, err := GenerateECDHKeyPair()
	if err != nil {
		t.Fatalf("GenerateECDHKeyPair: %v", err)
	}
	b, err := GenerateECDHKeyPair()
	if err != nil {
		t.Fatalf("GenerateECDHKeyPair: %v", err)
	}

	secretA, err := SharedSecret(a.Private, b.Public)
	if err != nil {
		t.Fatalf("SharedSecret(a,b): %v", err)
	}
	secretB, err := SharedSecret(b.Private, a.Public)
	if err != nil {
		t.Fatalf("SharedSecret(b,a): %v", err)
	}
	if !bytes.Equal(secretA, secretB) {
		t.Fatalf("shared secrets differ")
	}
}

func TestECDHPublicKeyRoundTrip(t *testing.T) {
	kp, err := GenerateECDHKeyPair()
	if err != nil {
		t.Fatalf("GenerateECDHKeyPair: %v", err)
	}
	encoded := ECDHPublicKeyBytes(kp.Public)
	decoded, err := ParseECDHPublicKey(encoded)
	if err != nil {
		t.Fatalf("ParseECDHPublicKey: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), encoded) {
		t.Fatalf("round trip mismatch")
	}
}

func TestParseECDHPublicKeyRejectsGarbage(t *testing.T) {
	_, err := ParseECDHPublicKey([]byte{1, 2, 3})
	if !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair: %v", err)
	}
	fragA := []byte("fragment-a")
	fragB := []byte("fragment-b")

	sig, err := Sign(kp.Private, fragA, fragB)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != SignatureSize {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureSize)
	}
	if err := Verify(kp.Public, sig, fragA, fragB); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyRejectsWrongOrder(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair: %v", err)
	}
	fragA := []byte("fragment-a")
	fragB := []byte("fragment-b")

	sig, err := Sign(kp.Private, fragA, fragB)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(kp.Public, sig, fragB, fragA); err == nil {
		t.Fatalf("Verify succeeded on reordered fragments, want failure")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair: %v", err)
	}
	msg := []byte("transcript")
	sig, err := Sign(kp.Private, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig[0] ^= 0xFF
	if err := Verify(kp.Public, sig, msg); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestSigningPublicKeyRoundTrip(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair: %v", err)
	}
	encoded := SigningPublicKeyBytes(kp.Public)
	decoded, err := ParseSigningPublicKey(encoded)
	if err != nil {
		t.Fatalf("ParseSigningPublicKey: %v", err)
	}
	if decoded.X.Cmp(kp.Public.X) != 0 || decoded.Y.Cmp(kp.Public.Y) != 0 {
		t.Fatalf("round trip mismatch")
	}
}

func TestKDFDeterministic(t *testing.T) {
	ctx := []byte("client-id||server-id||client-pub||server-pub")
	a, err := KDF(nil, "session-id", ctx, 32)
	if err != nil {
		t.Fatalf("KDF: %v", err)
	}
	b, err := KDF(nil, "session-id", ctx, 32)
	if err != nil {
		t.Fatalf("KDF: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("KDF not deterministic")
	}
}

func TestKDFDiffersByLabel(t *testing.T) {
	ctx := []byte("same-context")
	a, err := KDF([]byte("secret"), "label-a", ctx, 32)
	if err != nil {
		t.Fatalf("KDF: %v", err)
	}
	b, err := KDF([]byte("secret"), "label-b", ctx, 32)
	if err != nil {
		t.Fatalf("KDF: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("KDF output identical across labels")
	}
}

func TestRecordCipherRoundTrip(t *testing.T) {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	tx, err := NewRecordCipher(key)
	if err != nil {
		t.Fatalf("NewRecordCipher: %v", err)
	}
	rx, err := NewRecordCipher(key)
	if err != nil {
		t.Fatalf("NewRecordCipher: %v", err)
	}

	plaintext := []byte("hello world")
	record := tx.Seal(plaintext)
	got, err := rx.Open(record)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("decrypted = %q, want %q", got, plaintext)
	}
}

func TestRecordCipherRejectsTamperedCiphertext(t *testing.T) {
	key := make([]byte, KeySize)
	rc, err := NewRecordCipher(key)
	if err != nil {
		t.Fatalf("NewRecordCipher: %v", err)
	}
	record := rc.Seal([]byte("payload"))
	record[len(record)-1] ^= 0xFF
	if _, err := rc.Open(record); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestMACRoundTrip(t *testing.T) {
	key := make([]byte, KeySize)
	transcript := []byte("client-id||server-id||client-pub||server-pub")
	tag, err := ComputeMAC(key, transcript)
	if err != nil {
		t.Fatalf("ComputeMAC: %v", err)
	}
	if err := VerifyMAC(key, transcript, tag); err != nil {
		t.Fatalf("VerifyMAC: %v", err)
	}
}

func TestMACRejectsWrongTranscript(t *testing.T) {
	key := make([]byte, KeySize)
	tag, err := ComputeMAC(key, []byte("transcript-a"))
	if err != nil {
		t.Fatalf("ComputeMAC: %v", err)
	}
	if err := VerifyMAC(key, []byte("transcript-b"), tag); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestZeroOverwritesBuffer(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d = %d, want 0", i, v)
		}
	}
}
