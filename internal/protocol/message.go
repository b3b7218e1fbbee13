// Package protocol defines the messages exchanged during a transfer and
// their binary wire encoding.
package protocol

// Version is the protocol version carried in Hello. Peers with different
// versions cannot proceed: the wire format is only stable within a version.
const Version uint8 = 1

// Message type constants (first byte of every encoded message).
const (
	TypeHello       uint8 = 0x01 // handshake, carries the protocol version
	TypeKeyExchange uint8 = 0x02 // PAKE payload
	TypeMetadata    uint8 = 0x03 // transfer metadata (sealed)
	TypeChunk       uint8 = 0x04 // file chunk (sealed)
	TypeResume      uint8 = 0x05 // resume request from the receiver (sealed)
	TypeComplete    uint8 = 0x06 // end of stream (sealed)
	TypeError       uint8 = 0x07 // abort with reason (sealed)
	TypeAck         uint8 = 0x08 // single metadata acknowledgement (sealed)
)

// Role identifies which side of a transfer a peer is.
type Role uint8

const (
	RoleSender Role = iota
	RoleReceiver
)

func (r Role) String() string {
	if r == RoleSender {
		return "sender"
	}
	return "receiver"
}

// Message is the tagged union of everything that can travel between the two
// peers. Each variant encodes to a single frame.
type Message interface {
	messageType() uint8
}

// Hello opens the handshake. It is the only message ever sent unsealed
// together with the KeyExchange payloads that bootstrap the cipher.
type Hello struct {
	Version uint8
}

// KeyExchange carries one side's PAKE payload.
type KeyExchange struct {
	Data []byte
}

// Metadata announces what is about to be transferred.
type Metadata struct {
	Filename    string
	Size        uint64
	IsDirectory bool
	Checksum    string
}

// Chunk is one piece of file data. Indices are strictly increasing and
// gap-free; exactly one chunk is in flight at a time.
type Chunk struct {
	Index uint64
	Data  []byte
}

// Resume asks the sender to restart at the given chunk index — the first
// chunk the receiver has not durably written.
type Resume struct {
	FromChunk uint64
}

// Complete marks the authoritative end of the chunk stream.
type Complete struct{}

// Error aborts the transfer with a human-readable reason.
type Error struct {
	Message string
}

// Ack is the receiver's single acknowledgement of Metadata. The sender must
// not emit chunk 0 before it arrives.
type Ack struct{}

func (Hello) messageType() uint8       { return TypeHello }
func (KeyExchange) messageType() uint8 { return TypeKeyExchange }
func (Metadata) messageType() uint8    { return TypeMetadata }
func (Chunk) messageType() uint8       { return TypeChunk }
func (Resume) messageType() uint8      { return TypeResume }
func (Complete) messageType() uint8    { return TypeComplete }
func (Error) messageType() uint8       { return TypeError }
func (Ack) messageType() uint8         { return TypeAck }
