// Package crypto implements the code-derived key agreement and the
// authenticated encryption used for every protocol message.
package crypto

import (
	"errors"
	"fmt"

	"github.com/schollz/pake/v3"

	"github.com/zapxfer/zap/internal/protocol"
)

// ErrKeyExchangeFailed reports a malformed or unprocessable PAKE payload.
// A peer that knows a *different* code does not trigger this error: the
// exchange converges silently on divergent secrets and the mismatch is only
// detected by the first authentication failure downstream.
var ErrKeyExchangeFailed = errors.New("key exchange failed")

// pakeCurve is the elliptic curve group used for the exchange.
const pakeCurve = "siec"

// KeyExchange derives a shared secret from the transfer code via a
// password-authenticated key exchange. Both sides must know the code to
// converge on the same secret, and a recorded exchange admits no offline
// code guessing. The two roles hold distinct positions in the exchange, so
// a peer's own payload replayed back at it cannot complete the protocol.
//
// The sender initiates: its payload is ready at construction time. The
// receiver's payload only becomes valid after consuming the sender's.
type KeyExchange struct {
	p    *pake.Pake
	role protocol.Role
}

// NewKeyExchange starts an exchange for the given code and role.
func NewKeyExchange(code string, role protocol.Role) (*KeyExchange, error) {
	p, err := pake.InitCurve([]byte(code), int(role), pakeCurve)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyExchangeFailed, err)
	}
	return &KeyExchange{p: p, role: role}, nil
}

// Payload returns the outbound exchange message for the peer.
func (kx *KeyExchange) Payload() []byte {
	return kx.p.Bytes()
}

// Consume processes the peer's exchange payload.
func (kx *KeyExchange) Consume(peerPayload []byte) error {
	if err := kx.p.Update(peerPayload); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyExchangeFailed, err)
	}
	return nil
}

// Secret yields the derived shared secret. It is only valid after Consume
// has succeeded; the secret lives in memory for one session and is never
// persisted or transmitted.
func (kx *KeyExchange) Secret() ([]byte, error) {
	key, err := kx.p.SessionKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyExchangeFailed, err)
	}
	return key, nil
}
