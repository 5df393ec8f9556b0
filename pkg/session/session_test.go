package session

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vaultline/securesession/pkg/apperr"
	"github.com/vaultline/securesession/pkg/container"
	"github.com/vaultline/securesession/pkg/primitives"
)

// memRegistry is a minimal in-process identity-to-signing-key registry
// used only by this package's own tests; pkg/identity ships the real
// interchangeable backends.
type memRegistry map[string][]byte

func (m memRegistry) lookup(id []byte) ([]byte, error) {
	v, ok := m[string(id)]
	if !ok {
		return nil, apperr.ErrInvalidParameter
	}
	return v, nil
}

type testIdentity struct {
	id        []byte
	signPriv  []byte
	pubWrapped []byte
}

func newTestIdentity(t *testing.T, id string) testIdentity {
	t.Helper()
	kp, err := primitives.GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair: %v", err)
	}
	pub := primitives.SigningPublicKeyBytes(kp.Public)
	return testIdentity{
		id:         []byte(id),
		signPriv:   primitives.SigningPrivateKeyBytes(kp.Private),
		pubWrapped: container.Build(container.TagECPubKey, pub),
	}
}

// pipe wires two Sessions' Callbacks together over plain Go channels,
// one per direction, so the test can drive the handshake step by step
// without real network I/O.
type pipe struct {
	clientToServer chan []byte
	serverToClient chan []byte
}

func newPipe() *pipe {
	return &pipe{
		clientToServer: make(chan []byte, 8),
		serverToClient: make(chan []byte, 8),
	}
}

func (p *pipe) clientCallbacks(registry memRegistry) Callbacks {
	return Callbacks{
		SendData: func(frame []byte) error {
			p.clientToServer <- frame
			return nil
		},
		ReceiveData: func() ([]byte, error) {
			return <-p.serverToClient, nil
		},
		GetPublicKeyForID: registry.lookup,
	}
}

func (p *pipe) serverCallbacks(registry memRegistry) Callbacks {
	return Callbacks{
		SendData: func(frame []byte) error {
			p.serverToClient <- frame
			return nil
		},
		ReceiveData: func() ([]byte, error) {
			return <-p.clientToServer, nil
		},
		GetPublicKeyForID: registry.lookup,
	}
}

// newEstablishedPair drives a full M1-M4 handshake and returns both
// sessions in the Established state.
func newEstablishedPair(t *testing.T) (client, server *Session, registry memRegistry) {
	t.Helper()

	clientID := newTestIdentity(t, "client")
	serverID := newTestIdentity(t, "server")

	registry = memRegistry{
		"client": clientID.pubWrapped,
		"server": serverID.pubWrapped,
	}

	p := newPipe()
	prims := primitives.Default{}

	client, err := New(prims, clientID.id, clientID.signPriv, p.clientCallbacks(registry))
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	server, err = New(prims, serverID.id, serverID.signPriv, p.serverCallbacks(registry))
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}

	if err := client.Connect(); err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	if _, err := server.Receive(nil); err != nil {
		t.Fatalf("server.Receive(M1): %v", err)
	}
	if _, err := client.Receive(nil); err != nil {
		t.Fatalf("client.Receive(M2): %v", err)
	}
	if _, err := server.Receive(nil); err != nil {
		t.Fatalf("server.Receive(M3): %v", err)
	}
	if _, err := client.Receive(nil); err != nil {
		t.Fatalf("client.Receive(M4): %v", err)
	}

	if client.State() != Established {
		t.Fatalf("client state = %s, want Established", client.State())
	}
	if server.State() != Established {
		t.Fatalf("server state = %s, want Established", server.State())
	}
	return client, server, registry
}

func TestHappyHandshake(t *testing.T) {
	client, server, _ := newEstablishedPair(t)

	if !bytes.Equal(client.sessionID, server.sessionID) {
		t.Fatalf("session ids differ: client=%x server=%x", client.sessionID, server.sessionID)
	}
	if !bytes.Equal(client.masterKey, server.masterKey) {
		t.Fatalf("master keys differ")
	}
}

func TestClientEcho(t *testing.T) {
	client, server, _ := newEstablishedPair(t)

	if err := client.Send([]byte("ping")); err != nil {
		t.Fatalf("client.Send: %v", err)
	}
	buf := make([]byte, 64)
	n, err := server.Receive(buf)
	if err != nil {
		t.Fatalf("server.Receive: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("server received %q, want %q", buf[:n], "ping")
	}

	if err := server.Send([]byte("pong")); err != nil {
		t.Fatalf("server.Send: %v", err)
	}
	n, err = client.Receive(buf)
	if err != nil {
		t.Fatalf("client.Receive: %v", err)
	}
	if string(buf[:n]) != "pong" {
		t.Fatalf("client received %q, want %q", buf[:n], "pong")
	}
}

func TestSendRejectedBeforeEstablished(t *testing.T) {
	clientID := newTestIdentity(t, "client")
	registry := memRegistry{"client": clientID.pubWrapped}
	p := newPipe()
	client, err := New(primitives.Default{}, clientID.id, clientID.signPriv, p.clientCallbacks(registry))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = client.Send([]byte("too early"))
	if !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	client, _, _ := newEstablishedPair(t)
	err := client.Send(nil)
	if !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestOutOfOrderM3Rejected(t *testing.T) {
	clientID := newTestIdentity(t, "client")
	serverID := newTestIdentity(t, "server")
	registry := memRegistry{"client": clientID.pubWrapped, "server": serverID.pubWrapped}

	p := newPipe()
	prims := primitives.Default{}

	client, err := New(prims, clientID.id, clientID.signPriv, p.clientCallbacks(registry))
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	server, err := New(prims, serverID.id, serverID.signPriv, p.serverCallbacks(registry))
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}

	// Build a well-formed M3 payload (signature + MAC sized correctly)
	// and deliver it to a server that has not yet seen M1.
	fakeSig := make([]byte, primitives.SignatureSize)
	fakeMAC := make([]byte, macSize)
	frame := container.Build(container.TagProto, concatAll(fakeSig, fakeMAC))
	p.clientToServer <- frame

	if _, err := server.Receive(nil); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
	if server.State() != AcceptWait {
		t.Fatalf("server state = %s, want AcceptWait (unchanged)", server.State())
	}
	_ = client
}

func TestBadSignatureInM2Rejected(t *testing.T) {
	clientID := newTestIdentity(t, "client")
	serverID := newTestIdentity(t, "server")
	registry := memRegistry{"client": clientID.pubWrapped, "server": serverID.pubWrapped}

	p := newPipe()
	prims := primitives.Default{}

	client, err := New(prims, clientID.id, clientID.signPriv, p.clientCallbacks(registry))
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	server, err := New(prims, serverID.id, serverID.signPriv, p.serverCallbacks(registry))
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}

	if err := client.Connect(); err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	if _, err := server.Receive(nil); err != nil {
		t.Fatalf("server.Receive(M1): %v", err)
	}

	// Tamper with one byte of the server's ephemeral ECDH public key
	// inside M2 before the client processes it.
	m2 := <-p.serverToClient
	tampered := append([]byte(nil), m2...)
	tampered[len(tampered)-primitives.SignatureSize-10] ^= 0xFF
	p.serverToClient <- tampered

	if _, err := client.Receive(nil); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
	if client.peer.ID != nil {
		t.Fatalf("peer record not wiped after bad signature")
	}
	if client.sessionID != nil {
		t.Fatalf("session id derived despite bad signature")
	}
}

func TestUnknownIdentityRejected(t *testing.T) {
	clientID := newTestIdentity(t, "client")
	serverID := newTestIdentity(t, "server")
	// Registry only knows the server; client's identity is unregistered.
	registry := memRegistry{"server": serverID.pubWrapped}

	p := newPipe()
	prims := primitives.Default{}

	client, err := New(prims, clientID.id, clientID.signPriv, p.clientCallbacks(registry))
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	server, err := New(prims, serverID.id, serverID.signPriv, p.serverCallbacks(registry))
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}

	if err := client.Connect(); err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	if _, err := server.Receive(nil); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestTruncatedFrameRejected(t *testing.T) {
	clientID := newTestIdentity(t, "client")
	serverID := newTestIdentity(t, "server")
	registry := memRegistry{"client": clientID.pubWrapped, "server": serverID.pubWrapped}

	p := newPipe()
	server, err := New(primitives.Default{}, serverID.id, serverID.signPriv, p.serverCallbacks(registry))
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}

	declared := make([]byte, container.HeaderSize)
	copy(declared[0:4], container.TagProto[:])
	declared[4], declared[5], declared[6], declared[7] = 0, 0, 1, 244 // declares size 500
	actual := append(declared, make([]byte, 200-container.HeaderSize)...)
	p.clientToServer <- actual

	if _, err := server.Receive(nil); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestInitRejectsEmptyIdentity(t *testing.T) {
	p := newPipe()
	registry := memRegistry{}
	_, err := New(primitives.Default{}, nil, make([]byte, 32), p.clientCallbacks(registry))
	if !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestConcurrentSessionsDoNotInterfere(t *testing.T) {
	clientA, serverA, _ := newEstablishedPair(t)
	clientB, serverB, _ := newEstablishedPair(t)

	if bytes.Equal(clientA.sessionID, clientB.sessionID) {
		t.Fatalf("independent sessions derived identical session ids")
	}

	if err := clientA.Send([]byte("a")); err != nil {
		t.Fatalf("clientA.Send: %v", err)
	}
	if err := clientB.Send([]byte("b")); err != nil {
		t.Fatalf("clientB.Send: %v", err)
	}

	buf := make([]byte, 16)
	n, err := serverA.Receive(buf)
	if err != nil || string(buf[:n]) != "a" {
		t.Fatalf("serverA received %q, err %v", buf[:n], err)
	}
	n, err = serverB.Receive(buf)
	if err != nil || string(buf[:n]) != "b" {
		t.Fatalf("serverB received %q, err %v", buf[:n], err)
	}
}
