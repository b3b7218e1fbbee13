package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/zapxfer/zap/internal/util"
)

// lenPrefixSize is the size of the big-endian length header on every frame.
const lenPrefixSize = 4

// Direct is the length-prefixed framing over a single raw TCP stream:
// a 4-byte big-endian length followed by that many payload bytes.
type Direct struct {
	conn net.Conn
}

// NewDirect wraps an established connection.
func NewDirect(conn net.Conn) *Direct {
	return &Direct{conn: conn}
}

// Listen binds the given TCP port, waits for exactly one peer to connect,
// and returns the framed connection. The listener is closed as soon as the
// first peer is accepted; cancelling ctx aborts the wait.
func Listen(ctx context.Context, port int) (*Direct, error) {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}
	defer listener.Close()

	// Close the listener on cancellation so Accept unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			listener.Close()
		case <-done:
		}
	}()

	util.LogInfo("listening on %s", listener.Addr())

	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	util.LogInfo("peer connected from %s", conn.RemoteAddr())
	return NewDirect(conn), nil
}

// Dial connects to a listening peer.
func Dial(ctx context.Context, host string, port int) (*Direct, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return NewDirect(conn), nil
}

// Send writes the length prefix and payload.
func (d *Direct) Send(data []byte) error {
	if len(data) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}
	var header [lenPrefixSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := d.conn.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := d.conn.Write(data); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// Receive reads exactly one frame. An oversized prefix closes the
// connection before any payload allocation happens.
func (d *Direct) Receive() ([]byte, error) {
	var header [lenPrefixSize]byte
	if _, err := io.ReadFull(d.conn, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		d.conn.Close()
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(d.conn, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}

// Close tears down the connection, unblocking any pending Receive.
func (d *Direct) Close() error {
	return d.conn.Close()
}

// RemoteAddr reports the peer's address.
func (d *Direct) RemoteAddr() net.Addr {
	return d.conn.RemoteAddr()
}
