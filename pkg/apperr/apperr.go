// Package apperr defines the sentinel error kinds shared across the
// container, primitives, session, identity, and transport packages.
package apperr

import "errors"

var (
	// ErrInvalidParameter covers malformed frames, failed checksums,
	// unknown identities, wrong handshake state, and signature/MAC
	// mismatches.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoMemory is returned when an allocation needed to proceed
	// could not be satisfied.
	ErrNoMemory = errors.New("no memory")

	// ErrBufferTooSmall is returned when a caller's destination buffer
	// cannot hold the result (Session.Receive); no required size is
	// reported, and the record that did not fit is dropped.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrCrypto is a pass-through for primitive-library failures that
	// are not themselves a parameter or parsing problem.
	ErrCrypto = errors.New("crypto failure")
)
