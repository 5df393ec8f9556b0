package session

import (
	"fmt"

	"github.com/vaultline/securesession/pkg/apperr"
	"github.com/vaultline/securesession/pkg/container"
)

// deriveRecordKeys derives the two per-direction message keys as a
// deterministic function of the master key and side role. Client and
// server derive the same pair of underlying keys under complementary
// labels, so that each side's TX cipher matches the other's RX cipher.
func (s *Session) deriveRecordKeys() error {
	clientToServer, err := s.prims.KDF(s.masterKey, clientToServerKeyLabel, s.sessionID, messageKeySize)
	if err != nil {
		return fmt.Errorf("session: derive client-to-server key: %w", err)
	}
	serverToClient, err := s.prims.KDF(s.masterKey, serverToClientKeyLabel, s.sessionID, messageKeySize)
	if err != nil {
		s.prims.Zero(clientToServer)
		return fmt.Errorf("session: derive server-to-client key: %w", err)
	}

	var txKey, rxKey []byte
	if s.isClient {
		txKey, rxKey = clientToServer, serverToClient
	} else {
		txKey, rxKey = serverToClient, clientToServer
	}
	defer func() {
		s.prims.Zero(txKey)
		s.prims.Zero(rxKey)
	}()

	tx, err := s.prims.NewRecordCipher(txKey)
	if err != nil {
		return fmt.Errorf("session: tx cipher: %w", err)
	}
	rx, err := s.prims.NewRecordCipher(rxKey)
	if err != nil {
		return fmt.Errorf("session: rx cipher: %w", err)
	}

	s.txCipher = tx
	s.rxCipher = rx
	return nil
}

// sendRecord wraps plaintext using the TX cipher and transmits it
// inside the same outer container framing the handshake uses.
func (s *Session) sendRecord(plaintext []byte) error {
	sealed := s.txCipher.Seal(plaintext)
	frame := container.Build(container.TagProto, sealed)
	if err := s.callbacks.SendData(frame); err != nil {
		return fmt.Errorf("session: send record: %w", err)
	}
	return nil
}

// recvRecord unwraps a received frame using the RX cipher.
func (s *Session) recvRecord(frame []byte) ([]byte, error) {
	sealed, _, err := container.Parse(frame, container.TagProto)
	if err != nil {
		return nil, err
	}
	plaintext, err := s.rxCipher.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("session: record authentication failed: %w", apperr.ErrInvalidParameter)
	}
	return plaintext, nil
}
