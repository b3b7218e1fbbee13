package session

import (
	"context"
	"fmt"
	"io"

	"github.com/zapxfer/zap/internal/protocol"
	"github.com/zapxfer/zap/internal/transfer"
)

// SendFile announces the metadata, waits on the one-shot gate (a single
// Ack, or a Resume carrying the chunk index to restart from), then streams
// chunks in strictly increasing index order with one message in flight.
// Backpressure is implicit: a blocked transport write throttles the loop to
// the slower of network and disk. Complete is emitted only after every
// chunk implied by the announced size has been sent.
func SendFile(ctx context.Context, s *Session, meta protocol.Metadata, src transfer.Source, obs Observer) error {
	if s.role != protocol.RoleSender {
		return s.fail(fmt.Errorf("send from %s session", s.role))
	}
	if s.state != StateHandshakeConfirmed || s.cipher == nil {
		return s.fail(fmt.Errorf("send file in state %s", s.state))
	}
	s.meta = meta

	if err := s.send(meta); err != nil {
		return s.fail(err)
	}
	s.state = StateMetadataSent

	startChunk, err := s.awaitGate()
	if err != nil {
		return err
	}
	s.state = StateAckExchanged

	if startChunk > 0 {
		if err := src.SeekChunk(startChunk); err != nil {
			return s.fail(err)
		}
	}

	s.state = StateTransferring
	index := startChunk
	for {
		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}
		data, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.fail(fmt.Errorf("read chunk %d: %w", index, err))
		}
		if err := s.send(protocol.Chunk{Index: index, Data: data}); err != nil {
			return s.fail(err)
		}
		index++
		if obs != nil {
			obs(src.BytesRead(), meta.Size)
		}
	}

	if err := s.send(protocol.Complete{}); err != nil {
		return s.fail(err)
	}
	s.state = StateCompleted
	return nil
}

// awaitGate blocks until the receiver has acknowledged the metadata.
// Chunk 0 must never leave before this returns.
func (s *Session) awaitGate() (uint64, error) {
	msg, err := s.receive()
	if err != nil {
		return 0, s.fail(err)
	}
	switch m := msg.(type) {
	case protocol.Ack:
		return 0, nil
	case protocol.Resume:
		return m.FromChunk, nil
	case protocol.Error:
		return 0, s.fail(fmt.Errorf("%w: %s", ErrRemoteAbort, m.Message))
	default:
		return 0, s.fail(fmt.Errorf("%w: want ack or resume, got %T", ErrUnexpectedMessage, msg))
	}
}
