package session

import (
	"bytes"
	"fmt"

	"github.com/vaultline/securesession/pkg/apperr"
	"github.com/vaultline/securesession/pkg/container"
	"github.com/vaultline/securesession/pkg/primitives"
)

// macSize is the length of the fixed-size MAC tag produced by
// Primitives.ComputeMAC: an AEAD seal of an empty plaintext carries no
// ciphertext, only the authentication tag.
const macSize = primitives.TagSize

// fragments is an ordered list of byte slices passed to Sign/Verify as
// separate fields, never spliced into one slice at the call site. The
// fragments are hashed back to back with no length prefixes, so the
// digest equals that of their concatenation.
type fragments [][]byte

func concatAll(frags ...[]byte) []byte {
	total := 0
	for _, f := range frags {
		total += len(f)
	}
	out := make([]byte, 0, total)
	for _, f := range frags {
		out = append(out, f...)
	}
	return out
}

// ownFirst returns the four-field transcript fragments in the order
// the local side uses when it is the signer: own ecdh pub, peer ecdh
// pub, own id, peer id.
func (s *Session) ownFirst() fragments {
	return fragments{s.local.ECDHPub, s.peer.ECDHPub, s.local.ID, s.peer.ID}
}

// peerFirst returns the same four fields in the order the local side
// uses when verifying a signature the peer produced: peer ecdh pub,
// own ecdh pub, peer id, own id. Because client and server always see
// opposite "own/peer", ownFirst on the signer and peerFirst on the
// verifier name the identical underlying bytes in the identical order.
func (s *Session) peerFirst() fragments {
	return fragments{s.peer.ECDHPub, s.local.ECDHPub, s.peer.ID, s.local.ID}
}

// sessionIDContext builds the canonical client-first context for the
// session id KDF step: client_ecdh_pub, server_ecdh_pub, client_id,
// server_id, regardless of which side is computing it.
func (s *Session) sessionIDContext() []byte {
	if s.isClient {
		return concatAll(s.local.ECDHPub, s.peer.ECDHPub, s.local.ID, s.peer.ID)
	}
	return concatAll(s.peer.ECDHPub, s.local.ECDHPub, s.peer.ID, s.local.ID)
}

// deriveSessionKeys computes shared_secret, session_id, and master_key
// once both ephemeral public keys and both identities are known. It is
// called once by the server after M1 and once by the client after M2,
// the earliest point on each side where that full state is available.
func (s *Session) deriveSessionKeys() error {
	sharedSecret, err := s.prims.ECDHSharedSecret(s.local.ECDHPriv, s.peer.ECDHPub)
	if err != nil {
		return fmt.Errorf("session: ecdh agreement: %w", err)
	}
	defer s.prims.Zero(sharedSecret)

	sessionID, err := s.prims.KDF(nil, sessionIDLabel, s.sessionIDContext(), sessionIDSize)
	if err != nil {
		return fmt.Errorf("session: derive session id: %w", err)
	}

	masterKey, err := s.prims.KDF(sharedSecret, masterKeyLabel, sessionID, masterKeySize)
	if err != nil {
		s.prims.Zero(sessionID)
		return fmt.Errorf("session: derive master key: %w", err)
	}

	s.sessionID = sessionID
	s.masterKey = masterKey
	return nil
}

// verifySessionIDConsistency re-derives the session id from the
// session's current view and compares it against the value computed
// after M1. Both values come from this side's own stored fields, so the
// check fails only if that local view changed in between; a divergence
// from the peer's transcript is caught by the M3 signature and MAC
// checks instead.
func (s *Session) verifySessionIDConsistency() error {
	recomputed, err := s.prims.KDF(nil, sessionIDLabel, s.sessionIDContext(), sessionIDSize)
	if err != nil {
		return fmt.Errorf("session: recompute session id: %w", err)
	}
	defer s.prims.Zero(recomputed)
	if !bytes.Equal(recomputed, s.sessionID) {
		return fmt.Errorf("session: session id mismatch on M3: %w", apperr.ErrInvalidParameter)
	}
	return nil
}

// lookupPeerSigningKey resolves id via Callbacks.GetPublicKeyForID and
// unwraps the returned container.
func (s *Session) lookupPeerSigningKey(id []byte) ([]byte, error) {
	wrapped, err := s.callbacks.GetPublicKeyForID(id)
	if err != nil {
		return nil, fmt.Errorf("session: unknown peer identity: %w", apperr.ErrInvalidParameter)
	}
	pubKey, _, err := container.Parse(wrapped, container.TagECPubKey)
	if err != nil {
		return nil, fmt.Errorf("session: malformed registry response: %w", err)
	}
	return pubKey, nil
}

// --- M1: client -> server ---------------------------------------------

func (s *Session) buildM1() ([]byte, error) {
	sig, err := s.prims.Sign(s.local.SignPriv, s.local.ECDHPub)
	if err != nil {
		return nil, fmt.Errorf("session: sign M1: %w", err)
	}

	idC := container.Build(container.TagSessionID, s.local.ID)
	pubC := container.Build(container.TagECPubKey, s.local.ECDHPub)
	payload := concatAll(idC, pubC, sig)
	return container.Build(container.TagProto, payload), nil
}

// onM1 is the server's handler: AcceptWait -> FinishServerWait.
func (s *Session) onM1(frame []byte) error {
	s.isClient = false

	payload, _, err := container.Parse(frame, container.TagProto)
	if err != nil {
		return err
	}

	clientID, idConsumed, err := container.Parse(payload, container.TagSessionID)
	if err != nil {
		return err
	}
	rest := payload[idConsumed:]

	clientECDHPub, pubConsumed, err := container.Parse(rest, container.TagECPubKey)
	if err != nil {
		return err
	}
	sig := rest[pubConsumed:]
	if len(sig) != primitives.SignatureSize {
		return fmt.Errorf("session: M1 signature length %d, want %d: %w", len(sig), primitives.SignatureSize, apperr.ErrInvalidParameter)
	}

	if _, err := primitives.ParseECDHPublicKey(clientECDHPub); err != nil {
		return err
	}

	peerSignPub, err := s.lookupPeerSigningKey(clientID)
	if err != nil {
		return err
	}

	// M1's signature covers only the client's ephemeral ECDH public
	// key, not the full four-field transcript.
	if err := s.prims.Verify(peerSignPub, sig, clientECDHPub); err != nil {
		return fmt.Errorf("session: M1 signature invalid: %w", apperr.ErrInvalidParameter)
	}

	s.peer = PeerRecord{
		ID:         append([]byte(nil), clientID...),
		SignPubKey: append([]byte(nil), peerSignPub...),
		ECDHPub:    append([]byte(nil), clientECDHPub...),
	}

	if err := s.deriveSessionKeys(); err != nil {
		return err
	}

	m2, err := s.buildM2()
	if err != nil {
		return err
	}
	if err := s.callbacks.SendData(m2); err != nil {
		return fmt.Errorf("session: send M2: %w", err)
	}
	s.state = FinishServerWait
	return nil
}

// --- M2: server -> client ----------------------------------------------

func (s *Session) buildM2() ([]byte, error) {
	own := s.ownFirst()
	sig, err := s.prims.Sign(s.local.SignPriv, own...)
	if err != nil {
		return nil, fmt.Errorf("session: sign M2: %w", err)
	}

	idC := container.Build(container.TagSessionID, s.local.ID)
	pubC := container.Build(container.TagECPubKey, s.local.ECDHPub)
	payload := concatAll(idC, pubC, sig)
	return container.Build(container.TagProto, payload), nil
}

// onM2 is the client's handler: ProceedClientWait -> FinishClientWait.
func (s *Session) onM2(frame []byte) error {
	payload, _, err := container.Parse(frame, container.TagProto)
	if err != nil {
		return err
	}

	serverID, idConsumed, err := container.Parse(payload, container.TagSessionID)
	if err != nil {
		return err
	}
	rest := payload[idConsumed:]

	serverECDHPub, pubConsumed, err := container.Parse(rest, container.TagECPubKey)
	if err != nil {
		return err
	}
	sig := rest[pubConsumed:]
	if len(sig) != primitives.SignatureSize {
		return fmt.Errorf("session: M2 signature length %d, want %d: %w", len(sig), primitives.SignatureSize, apperr.ErrInvalidParameter)
	}

	if _, err := primitives.ParseECDHPublicKey(serverECDHPub); err != nil {
		return err
	}

	peerSignPub, err := s.lookupPeerSigningKey(serverID)
	if err != nil {
		return err
	}

	s.peer = PeerRecord{
		ID:         append([]byte(nil), serverID...),
		SignPubKey: append([]byte(nil), peerSignPub...),
		ECDHPub:    append([]byte(nil), serverECDHPub...),
	}

	// client verifies sig_server over the four-tuple (peer_ecdh_pub,
	// own_ecdh_pub, peer_id, own_id).
	if err := s.prims.Verify(peerSignPub, sig, s.peerFirst()...); err != nil {
		s.peer.wipe()
		return fmt.Errorf("session: M2 signature invalid: %w", apperr.ErrInvalidParameter)
	}

	if err := s.deriveSessionKeys(); err != nil {
		return err
	}

	m3, err := s.buildM3()
	if err != nil {
		return err
	}
	if err := s.callbacks.SendData(m3); err != nil {
		return fmt.Errorf("session: send M3: %w", err)
	}
	s.state = FinishClientWait
	return nil
}

// --- M3: client -> server ----------------------------------------------

func (s *Session) buildM3() ([]byte, error) {
	sig, err := s.prims.Sign(s.local.SignPriv, s.ownFirst()...)
	if err != nil {
		return nil, fmt.Errorf("session: sign M3: %w", err)
	}

	// MAC_K(server_ecdh_pub || session_id): from the client's own
	// view, server_ecdh_pub is its peer's ephemeral key.
	mac, err := s.prims.ComputeMAC(s.masterKey, concatAll(s.peer.ECDHPub, s.sessionID))
	if err != nil {
		return nil, fmt.Errorf("session: M3 mac: %w", err)
	}

	payload := concatAll(sig, mac)
	return container.Build(container.TagProto, payload), nil
}

// onM3 is the server's handler: FinishServerWait -> Established.
func (s *Session) onM3(frame []byte) error {
	payload, _, err := container.Parse(frame, container.TagProto)
	if err != nil {
		return err
	}
	if len(payload) != primitives.SignatureSize+macSize {
		return fmt.Errorf("session: M3 payload length %d, want %d: %w", len(payload), primitives.SignatureSize+macSize, apperr.ErrInvalidParameter)
	}
	sig := payload[:primitives.SignatureSize]
	mac := payload[primitives.SignatureSize:]

	// server verifies sig_client over (peer_ecdh_pub, own_ecdh_pub,
	// peer_id, own_id) = client-first.
	if err := s.prims.Verify(s.peer.SignPubKey, sig, s.peerFirst()...); err != nil {
		return fmt.Errorf("session: M3 signature invalid: %w", apperr.ErrInvalidParameter)
	}

	if err := s.verifySessionIDConsistency(); err != nil {
		return err
	}

	// MAC_K(server_ecdh_pub || session_id): from the server's own
	// view, server_ecdh_pub is its own key.
	if err := s.prims.VerifyMAC(s.masterKey, concatAll(s.local.ECDHPub, s.sessionID), mac); err != nil {
		return fmt.Errorf("session: M3 mac invalid: %w", apperr.ErrInvalidParameter)
	}

	if err := s.deriveRecordKeys(); err != nil {
		return err
	}

	m4, err := s.buildM4()
	if err != nil {
		return err
	}
	if err := s.callbacks.SendData(m4); err != nil {
		return fmt.Errorf("session: send M4: %w", err)
	}

	s.local.wipeEphemeral()
	s.state = Established
	s.notifyEstablished()
	return nil
}

// --- M4: server -> client ----------------------------------------------

func (s *Session) buildM4() ([]byte, error) {
	// MAC_K(client_ecdh_pub || session_id): from the server's own
	// view, client_ecdh_pub is its peer's ephemeral key.
	mac, err := s.prims.ComputeMAC(s.masterKey, concatAll(s.peer.ECDHPub, s.sessionID))
	if err != nil {
		return nil, fmt.Errorf("session: M4 mac: %w", err)
	}
	return container.Build(container.TagProto, mac), nil
}

// onM4 is the client's handler: FinishClientWait -> Established.
func (s *Session) onM4(frame []byte) error {
	payload, _, err := container.Parse(frame, container.TagProto)
	if err != nil {
		return err
	}
	if len(payload) != macSize {
		return fmt.Errorf("session: M4 payload length %d, want %d: %w", len(payload), macSize, apperr.ErrInvalidParameter)
	}

	// MAC_K(client_ecdh_pub || session_id): from the client's own
	// view, client_ecdh_pub is its own key.
	if err := s.prims.VerifyMAC(s.masterKey, concatAll(s.local.ECDHPub, s.sessionID), payload); err != nil {
		return fmt.Errorf("session: M4 mac invalid: %w", apperr.ErrInvalidParameter)
	}

	if err := s.deriveRecordKeys(); err != nil {
		return err
	}

	s.local.wipeEphemeral()
	s.state = Established
	s.notifyEstablished()
	return nil
}
