// Package session implements the secure session handshake state
// machine and the authenticated-encryption record layer built on top
// of it: Peer Record, Session Context, the five-state handshake driving
// messages M1–M4, and Send/Receive once Established.
package session

import (
	"fmt"

	"github.com/vaultline/securesession/pkg/apperr"
	"github.com/vaultline/securesession/pkg/primitives"
)

// State is one of the five handshake states. The terminal state,
// Established, accepts no further handshake messages — only Send and
// Receive over the record layer.
type State int

const (
	AcceptWait State = iota
	ProceedClientWait
	FinishServerWait
	FinishClientWait
	Established
)

func (s State) String() string {
	switch s {
	case AcceptWait:
		return "AcceptWait"
	case ProceedClientWait:
		return "ProceedClientWait"
	case FinishServerWait:
		return "FinishServerWait"
	case FinishClientWait:
		return "FinishClientWait"
	case Established:
		return "Established"
	default:
		return "Unknown"
	}
}

const (
	sessionIDSize  = 32
	masterKeySize  = 32
	messageKeySize = primitives.KeySize
)

const (
	sessionIDLabel        = "Themis secure session unique identifier"
	masterKeyLabel        = "Themis secure session master key"
	clientToServerKeyLabel = "secure session client-to-server key"
	serverToClientKeyLabel = "secure session server-to-client key"
)

// Session is the top-level mutable state machine driving one peer
// connection through its handshake and into the record layer. A
// Session is single-threaded and non-reentrant; it must not be driven
// from more than one goroutine concurrently, but distinct Sessions
// share no state and may run in parallel.
type Session struct {
	prims     Primitives
	callbacks Callbacks

	isClient bool
	state    State

	local localIdentity
	peer  PeerRecord

	sessionID []byte
	masterKey []byte

	txCipher primitives.Cipher
	rxCipher primitives.Cipher
}

// New allocates a Session Context: it generates the ephemeral ECDH
// keypair and initializes the Peer Record to its empty state. It does
// not send any network traffic; call Connect to begin the client
// handshake, or simply start calling Receive to act as the server.
//
// id must be non-empty (boundary test: id_length = 0 is rejected).
func New(prims Primitives, id, signPriv []byte, callbacks Callbacks) (*Session, error) {
	if len(id) == 0 {
		return nil, fmt.Errorf("session: empty identity: %w", apperr.ErrInvalidParameter)
	}
	if callbacks.SendData == nil || callbacks.ReceiveData == nil || callbacks.GetPublicKeyForID == nil {
		return nil, fmt.Errorf("session: incomplete callback bundle: %w", apperr.ErrInvalidParameter)
	}

	ecdhPriv, ecdhPub, err := prims.GenerateECDHKeyPair()
	if err != nil {
		return nil, fmt.Errorf("session: init ecdh keypair: %w", err)
	}

	return &Session{
		prims:     prims,
		callbacks: callbacks,
		state:     AcceptWait,
		local: localIdentity{
			ID:       append([]byte(nil), id...),
			SignPriv: append([]byte(nil), signPriv...),
			ECDHPriv: ecdhPriv,
			ECDHPub:  ecdhPub,
		},
	}, nil
}

// State returns the session's current handshake state.
func (s *Session) State() State { return s.state }

// Close zeroes the ephemeral ECDH private key, the copy of the signing
// private key, the session id and the master key, and wipes the Peer
// Record. The record-layer ciphers keep their own key copies, which
// Close does not clear. Close is idempotent.
func (s *Session) Close() {
	s.local.wipeEphemeral()
	zero(s.local.SignPriv)
	s.local.SignPriv = nil
	zero(s.sessionID)
	zero(s.masterKey)
	s.sessionID = nil
	s.masterKey = nil
	s.peer.wipe()
	s.state = AcceptWait
}

// Connect initiates the client handshake: it builds and sends M1 and
// transitions to ProceedClientWait. Connect must be called at most
// once, before any call to Receive.
func (s *Session) Connect() error {
	if s.state != AcceptWait {
		return fmt.Errorf("session: connect from state %s: %w", s.state, apperr.ErrInvalidParameter)
	}
	s.isClient = true

	frame, err := s.buildM1()
	if err != nil {
		s.abort()
		return err
	}
	if err := s.callbacks.SendData(frame); err != nil {
		s.abort()
		return fmt.Errorf("session: send M1: %w", err)
	}
	s.state = ProceedClientWait
	return nil
}

// Send encrypts plaintext and transmits it through SendData. Send is
// rejected with ErrInvalidParameter unless the session is Established,
// and rejects an empty message (boundary test: len=0).
func (s *Session) Send(plaintext []byte) error {
	if s.state != Established {
		return fmt.Errorf("session: send in state %s: %w", s.state, apperr.ErrInvalidParameter)
	}
	if len(plaintext) == 0 {
		return fmt.Errorf("session: empty message: %w", apperr.ErrInvalidParameter)
	}
	return s.sendRecord(plaintext)
}

// Receive pulls one framed message via ReceiveData and dispatches it.
//
// During the handshake, dst is ignored and Receive returns (0, nil)
// once the corresponding state transition has completed, or a non-nil
// error on any failure; it never returns a positive count before
// Established. Once Established, Receive decrypts one application
// record and copies it into dst, returning its length; if dst is too
// small it returns ErrBufferTooSmall and the record is dropped — the
// caller must discard the session, since the record layer does not
// resynchronize after a failed delivery. The zero/non-zero count
// difference between the two regimes lets callers distinguish them by
// checking State() or simply by n > 0.
func (s *Session) Receive(dst []byte) (int, error) {
	frame, err := s.callbacks.ReceiveData()
	if err != nil {
		return 0, fmt.Errorf("session: receive_data: %w", err)
	}

	if s.state == Established {
		plaintext, err := s.recvRecord(frame)
		if err != nil {
			return 0, err
		}
		if len(dst) < len(plaintext) {
			return 0, fmt.Errorf("session: destination buffer too small: %w", apperr.ErrBufferTooSmall)
		}
		n := copy(dst, plaintext)
		return n, nil
	}

	if err := s.dispatchHandshake(frame); err != nil {
		s.abort()
		return 0, err
	}
	return 0, nil
}

// dispatchHandshake routes frame to the handler for the current state.
// No message is ever accepted out of state.
func (s *Session) dispatchHandshake(frame []byte) error {
	switch s.state {
	case AcceptWait:
		return s.onM1(frame)
	case ProceedClientWait:
		return s.onM2(frame)
	case FinishServerWait:
		return s.onM3(frame)
	case FinishClientWait:
		return s.onM4(frame)
	default:
		return fmt.Errorf("session: unexpected message in state %s: %w", s.state, apperr.ErrInvalidParameter)
	}
}

// abort handles any handshake failure: it wipes the Peer Record and
// leaves the session unable to make further progress.
func (s *Session) abort() {
	s.peer.wipe()
	s.local.wipeEphemeral()
}

func (s *Session) notifyEstablished() {
	if s.callbacks.StateChanged != nil {
		s.callbacks.StateChanged(EventEstablished)
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
