// Package transport delivers whole protocol frames over either a direct
// TCP stream or a relayed session, behind one interface.
package transport

import "errors"

// MaxFrameSize bounds a single frame. An oversized length prefix is fatal
// and closes the connection immediately to prevent unbounded allocation.
const MaxFrameSize = 100 * 1024 * 1024 // 100 MiB

// ErrFrameTooLarge reports a frame whose declared length exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")

// Transport carries whole application messages between two peers. Send and
// Receive block until the underlying socket operation completes; Close
// unblocks any pending Receive. A Transport wraps exactly one established
// connection — no multiplexing.
type Transport interface {
	// Send transmits one frame in its entirety.
	Send(data []byte) error
	// Receive blocks until the next whole frame arrives. Partial frames
	// are never delivered.
	Receive() ([]byte, error)
	// Close tears down the underlying connection.
	Close() error
}
