// Package session drives the transfer protocol: handshake, code-derived
// key agreement, and the chunked transfer state machine used identically
// by both roles over any transport.
package session

import (
	"errors"
	"fmt"

	"github.com/zapxfer/zap/internal/crypto"
	"github.com/zapxfer/zap/internal/protocol"
	"github.com/zapxfer/zap/internal/transport"
)

var (
	// ErrVersionMismatch reports incompatible protocol versions. The wire
	// formats cannot interoperate, so the session ends before any data moves.
	ErrVersionMismatch = errors.New("protocol version mismatch")

	// ErrTransferIncomplete reports that the finalized sink holds a
	// different byte count than the announced size.
	ErrTransferIncomplete = errors.New("transfer incomplete")

	// ErrUnexpectedMessage reports a message that is illegal in the
	// session's current state.
	ErrUnexpectedMessage = errors.New("unexpected message")

	// ErrRemoteAbort carries an Error message sent by the peer.
	ErrRemoteAbort = errors.New("aborted by peer")
)

// State is the explicit position of a session in the protocol. Transitions
// happen only through the methods below; an illegal transition is an error,
// not a flag left unset.
type State uint8

const (
	StateInit State = iota
	StateHandshakeSent
	StateHandshakeConfirmed
	StateMetadataSent
	StateMetadataReceived
	StateAckExchanged
	StateTransferring
	StateCompleted
	StateError
)

var stateNames = map[State]string{
	StateInit:               "init",
	StateHandshakeSent:      "handshake-sent",
	StateHandshakeConfirmed: "handshake-confirmed",
	StateMetadataSent:       "metadata-sent",
	StateMetadataReceived:   "metadata-received",
	StateAckExchanged:       "ack-exchanged",
	StateTransferring:       "transferring",
	StateCompleted:          "completed",
	StateError:              "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Observer receives progress samples (bytes transferred, total bytes).
// It has no effect on the protocol.
type Observer func(transferred, total uint64)

// Session is the per-connection protocol state shared by both roles. One
// session drives exactly one transfer attempt; every failure is terminal
// and the only recovery is a fresh session carrying a Resume.
type Session struct {
	role   protocol.Role
	tr     transport.Transport
	state  State
	cipher *crypto.Cipher
	meta   protocol.Metadata
}

// New creates a session in the Init state.
func New(role protocol.Role, tr transport.Transport) *Session {
	return &Session{role: role, tr: tr}
}

// State reports the session's current protocol state.
func (s *Session) State() State { return s.state }

// Role reports which side of the transfer this session is.
func (s *Session) Role() protocol.Role { return s.role }

// fail absorbs the session into the Error state.
func (s *Session) fail(err error) error {
	s.state = StateError
	return err
}

// Handshake exchanges unsealed Hello messages and verifies the peer speaks
// the same protocol version. A mismatch is fatal and non-retriable.
func (s *Session) Handshake() error {
	if s.state != StateInit {
		return s.fail(fmt.Errorf("handshake in state %s", s.state))
	}
	if err := s.send(protocol.Hello{Version: protocol.Version}); err != nil {
		return s.fail(err)
	}
	s.state = StateHandshakeSent

	msg, err := s.receive()
	if err != nil {
		return s.fail(err)
	}
	hello, ok := msg.(protocol.Hello)
	if !ok {
		return s.fail(fmt.Errorf("%w: want hello, got %T", ErrUnexpectedMessage, msg))
	}
	if hello.Version != protocol.Version {
		return s.fail(fmt.Errorf("%w: local %d, peer %d",
			ErrVersionMismatch, protocol.Version, hello.Version))
	}
	s.state = StateHandshakeConfirmed
	return nil
}

// Authenticate runs the password-authenticated key exchange once, bound to
// the confirmed handshake, and seals the channel with the derived secret.
// The sender's payload travels first; the receiver replies with its own.
// A code mismatch is not detected here — the secrets silently diverge and
// the first sealed message fails to open.
func (s *Session) Authenticate(transferCode string) error {
	if s.state != StateHandshakeConfirmed || s.cipher != nil {
		return s.fail(fmt.Errorf("authenticate in state %s", s.state))
	}

	kx, err := crypto.NewKeyExchange(transferCode, s.role)
	if err != nil {
		return s.fail(err)
	}

	if s.role == protocol.RoleSender {
		if err := s.send(protocol.KeyExchange{Data: kx.Payload()}); err != nil {
			return s.fail(err)
		}
		if err := s.consumePeerPayload(kx); err != nil {
			return s.fail(err)
		}
	} else {
		if err := s.consumePeerPayload(kx); err != nil {
			return s.fail(err)
		}
		if err := s.send(protocol.KeyExchange{Data: kx.Payload()}); err != nil {
			return s.fail(err)
		}
	}

	secret, err := kx.Secret()
	if err != nil {
		return s.fail(err)
	}
	cipher, err := crypto.NewCipher(secret)
	if err != nil {
		return s.fail(err)
	}
	s.cipher = cipher
	return nil
}

func (s *Session) consumePeerPayload(kx *crypto.KeyExchange) error {
	msg, err := s.receive()
	if err != nil {
		return err
	}
	peer, ok := msg.(protocol.KeyExchange)
	if !ok {
		return fmt.Errorf("%w: want key exchange, got %T", ErrUnexpectedMessage, msg)
	}
	return kx.Consume(peer.Data)
}

// Abort sends an Error message to the peer and absorbs the session into the
// Error state. Delivery is best effort; the session is finished either way.
func (s *Session) Abort(reason string) {
	_ = s.send(protocol.Error{Message: reason})
	s.state = StateError
}

// send encodes a message and, once the channel is authenticated, seals it.
func (s *Session) send(m protocol.Message) error {
	plain, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	frame := plain
	if s.cipher != nil {
		if frame, err = s.cipher.Seal(plain); err != nil {
			return err
		}
	}
	return s.tr.Send(frame)
}

// receive reads one frame and, once the channel is authenticated, opens it.
// Tampering and a code mismatch are indistinguishable: both surface as the
// cipher's authentication failure, fatal to the session.
func (s *Session) receive() (protocol.Message, error) {
	frame, err := s.tr.Receive()
	if err != nil {
		return nil, err
	}
	plain := frame
	if s.cipher != nil {
		if plain, err = s.cipher.Open(frame); err != nil {
			return nil, err
		}
	}
	return protocol.Decode(plain)
}
