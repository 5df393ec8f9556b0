package session

// StateEvent identifies a lifecycle notification delivered through
// Callbacks.StateChanged. Established is the only event the core
// currently emits.
type StateEvent int

const (
	// EventEstablished fires exactly once, after M4 (server) or the
	// receipt of M4 (client) completes successfully.
	EventEstablished StateEvent = iota
)

// Callbacks bundles every external collaborator a Session reaches
// through: transport I/O, lifecycle notification, and peer identity
// resolution. SendData, ReceiveData and GetPublicKeyForID are required;
// StateChanged is optional.
type Callbacks struct {
	// SendData transmits one fully framed wire message. The transport
	// is assumed reliable and in-order (TCP-like); SendData must not
	// return until the bytes are handed off.
	SendData func(frame []byte) error

	// ReceiveData blocks until exactly one framed wire message is
	// available and returns it.
	ReceiveData func() ([]byte, error)

	// StateChanged, if set, is invoked once a session reaches
	// Established.
	StateChanged func(event StateEvent)

	// GetPublicKeyForID resolves a peer identity to its long-term
	// signing public key, wrapped in a container with tag
	// container.TagECPubKey. A not-found identity must be reported as
	// apperr.ErrInvalidParameter.
	GetPublicKeyForID func(id []byte) (pubKeyContainer []byte, err error)
}
