// Package container implements the tagged, checksummed wire framing used
// for every message exchanged by the secure session core: a 4-byte ASCII
// tag, a 4-byte big-endian total length, a 4-byte big-endian CRC-32
// checksum over the payload, and the payload itself.
//
// No field is trusted until the whole header has been validated: the
// length is checked against the buffer it was read from before any
// payload byte is touched, and the checksum is verified before the
// payload is handed to a caller.
package container

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/vaultline/securesession/pkg/apperr"
)

// HeaderSize is the fixed size, in bytes, of a container header:
// tag(4) || size(4) || checksum(4).
const HeaderSize = 12

// Tag identifies a container's message class.
type Tag [4]byte

// String renders a tag as its ASCII form for logging.
func (t Tag) String() string {
	return string(t[:])
}

var (
	// TagProto frames the outer handshake and record-layer messages.
	TagProto = Tag{'S', 'S', 'P', 'R'}

	// TagSessionID frames the inner identity sub-container carried
	// inside M1 and M2.
	TagSessionID = Tag{'S', 'S', 'I', 'D'}

	// TagECPubKey prefixes ECDH and signing public keys as emitted by
	// pkg/primitives.
	TagECPubKey = Tag{'E', 'C', 'P', 'K'}
)

// Build assembles a container frame: header followed by payload.
func Build(tag Tag, payload []byte) []byte {
	total := HeaderSize + len(payload)
	out := make([]byte, total)
	copy(out[0:4], tag[:])
	binary.BigEndian.PutUint32(out[4:8], uint32(total))
	binary.BigEndian.PutUint32(out[8:12], crc32.ChecksumIEEE(payload))
	copy(out[HeaderSize:], payload)
	return out
}

// PeekTag reads the tag of a buffer without validating size or checksum.
// The session dispatcher does not call it: it routes by handshake state
// and lets Parse check the tag.
func PeekTag(data []byte) (Tag, error) {
	if len(data) < HeaderSize {
		return Tag{}, fmt.Errorf("container: short buffer (%d bytes): %w", len(data), apperr.ErrInvalidParameter)
	}
	var tag Tag
	copy(tag[:], data[0:4])
	return tag, nil
}

// Parse validates and decodes a container whose tag must equal want.
// It returns the payload slice (a view into data, not a copy) and the
// total number of bytes the container occupies in data, so that callers
// composing several containers back to back can advance past it.
//
// Validation order matches the parsing contract: length, tag, declared
// size, checksum. Any failure is ErrInvalidParameter.
func Parse(data []byte, want Tag) (payload []byte, consumed int, err error) {
	if len(data) < HeaderSize {
		return nil, 0, fmt.Errorf("container: buffer of %d bytes shorter than header: %w", len(data), apperr.ErrInvalidParameter)
	}

	var gotTag Tag
	copy(gotTag[:], data[0:4])
	if gotTag != want {
		return nil, 0, fmt.Errorf("container: tag %q, want %q: %w", gotTag, want, apperr.ErrInvalidParameter)
	}

	size := binary.BigEndian.Uint32(data[4:8])
	if size < HeaderSize || int(size) > len(data) {
		return nil, 0, fmt.Errorf("container: declared size %d exceeds buffer of %d bytes: %w", size, len(data), apperr.ErrInvalidParameter)
	}

	declaredChecksum := binary.BigEndian.Uint32(data[8:12])
	body := data[HeaderSize:size]
	if crc32.ChecksumIEEE(body) != declaredChecksum {
		return nil, 0, fmt.Errorf("container: checksum mismatch: %w", apperr.ErrInvalidParameter)
	}

	return body, int(size), nil
}
