package session

import (
	"context"
	"fmt"

	"github.com/zapxfer/zap/internal/protocol"
	"github.com/zapxfer/zap/internal/transfer"
)

// ReceiveMetadata waits for the sender's sealed Metadata announcement.
// This is the first sealed message of a session, so a transfer-code
// mismatch between the peers surfaces here as an authentication failure.
func ReceiveMetadata(s *Session) (protocol.Metadata, error) {
	if s.role != protocol.RoleReceiver {
		return protocol.Metadata{}, s.fail(fmt.Errorf("receive on %s session", s.role))
	}
	if s.state != StateHandshakeConfirmed || s.cipher == nil {
		return protocol.Metadata{}, s.fail(fmt.Errorf("receive metadata in state %s", s.state))
	}

	msg, err := s.receive()
	if err != nil {
		return protocol.Metadata{}, s.fail(err)
	}
	switch m := msg.(type) {
	case protocol.Metadata:
		s.meta = m
		s.state = StateMetadataReceived
		return m, nil
	case protocol.Error:
		return protocol.Metadata{}, s.fail(fmt.Errorf("%w: %s", ErrRemoteAbort, m.Message))
	default:
		return protocol.Metadata{}, s.fail(fmt.Errorf("%w: want metadata, got %T", ErrUnexpectedMessage, msg))
	}
}

// ReceiveFile acknowledges the metadata (exactly one Ack, or one Resume
// when restarting at fromChunk) and consumes the chunk stream into sink.
// Chunk indices must arrive contiguous and increasing. Complete is the
// authoritative end of stream: the sink is finalized, then the byte count
// must equal the announced size or the transfer is incomplete.
func ReceiveFile(ctx context.Context, s *Session, sink transfer.Sink, fromChunk uint64, obs Observer) error {
	if s.state != StateMetadataReceived {
		return s.fail(fmt.Errorf("receive file in state %s", s.state))
	}

	var gate protocol.Message = protocol.Ack{}
	if fromChunk > 0 {
		gate = protocol.Resume{FromChunk: fromChunk}
	}
	if err := s.send(gate); err != nil {
		return s.fail(err)
	}
	s.state = StateAckExchanged

	next := fromChunk
	for {
		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}
		msg, err := s.receive()
		if err != nil {
			return s.fail(err)
		}
		s.state = StateTransferring

		switch m := msg.(type) {
		case protocol.Chunk:
			if m.Index != next {
				return s.fail(fmt.Errorf("%w: chunk %d, want %d",
					ErrUnexpectedMessage, m.Index, next))
			}
			if err := sink.WriteChunk(m.Data); err != nil {
				return s.fail(fmt.Errorf("write chunk %d: %w", m.Index, err))
			}
			next++
			if obs != nil {
				obs(sink.BytesWritten(), s.meta.Size)
			}

		case protocol.Complete:
			if err := sink.Finalize(); err != nil {
				return s.fail(err)
			}
			if got := sink.BytesWritten(); got != s.meta.Size {
				return s.fail(fmt.Errorf("%w: wrote %d bytes, announced %d",
					ErrTransferIncomplete, got, s.meta.Size))
			}
			s.state = StateCompleted
			return nil

		case protocol.Error:
			return s.fail(fmt.Errorf("%w: %s", ErrRemoteAbort, m.Message))

		default:
			return s.fail(fmt.Errorf("%w: %T during transfer", ErrUnexpectedMessage, msg))
		}
	}
}
