package primitives

import "runtime"

// Zero overwrites b with zero bytes in place. It is used to scrub
// ephemeral private keys, shared secrets, and derived session keys once
// a session is established or torn down.
//
// Go's garbage collector may have already copied the backing array
// elsewhere before Zero runs; this reduces the window secret material
// sits in memory but is not a guarantee no copy survives.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ZeroAll zeroes every slice in bs.
func ZeroAll(bs ...[]byte) {
	for _, b := range bs {
		Zero(b)
	}
}
