package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes a Message into a byte slice for transmission.
// Layout: 1 type byte, then big-endian fixed-width fields, u16
// length-prefixed strings, and any trailing byte blob.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case Hello:
		return []byte{TypeHello, v.Version}, nil

	case KeyExchange:
		buf := make([]byte, 1+len(v.Data))
		buf[0] = TypeKeyExchange
		copy(buf[1:], v.Data)
		return buf, nil

	case Metadata:
		if len(v.Filename) > math.MaxUint16 || len(v.Checksum) > math.MaxUint16 {
			return nil, fmt.Errorf("metadata field too long")
		}
		buf := make([]byte, 0, 1+2+len(v.Filename)+8+1+2+len(v.Checksum))
		buf = append(buf, TypeMetadata)
		buf = appendString(buf, v.Filename)
		buf = binary.BigEndian.AppendUint64(buf, v.Size)
		if v.IsDirectory {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = appendString(buf, v.Checksum)
		return buf, nil

	case Chunk:
		buf := make([]byte, 1+8+len(v.Data))
		buf[0] = TypeChunk
		binary.BigEndian.PutUint64(buf[1:9], v.Index)
		copy(buf[9:], v.Data)
		return buf, nil

	case Resume:
		buf := make([]byte, 1+8)
		buf[0] = TypeResume
		binary.BigEndian.PutUint64(buf[1:9], v.FromChunk)
		return buf, nil

	case Complete:
		return []byte{TypeComplete}, nil

	case Error:
		buf := make([]byte, 1+len(v.Message))
		buf[0] = TypeError
		copy(buf[1:], v.Message)
		return buf, nil

	case Ack:
		return []byte{TypeAck}, nil

	default:
		return nil, fmt.Errorf("unknown message variant %T", m)
	}
}

// Decode deserializes a byte slice into a Message.
func Decode(data []byte) (Message, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("empty message")
	}
	body := data[1:]

	switch data[0] {
	case TypeHello:
		if len(body) < 1 {
			return nil, fmt.Errorf("hello too short: %d bytes", len(data))
		}
		return Hello{Version: body[0]}, nil

	case TypeKeyExchange:
		return KeyExchange{Data: cloneBytes(body)}, nil

	case TypeMetadata:
		filename, rest, err := readString(body)
		if err != nil {
			return nil, fmt.Errorf("metadata filename: %w", err)
		}
		if len(rest) < 9 {
			return nil, fmt.Errorf("metadata truncated: %d bytes", len(data))
		}
		size := binary.BigEndian.Uint64(rest[:8])
		isDir := rest[8] != 0
		checksum, rest, err := readString(rest[9:])
		if err != nil {
			return nil, fmt.Errorf("metadata checksum: %w", err)
		}
		if len(rest) != 0 {
			return nil, fmt.Errorf("metadata has %d trailing bytes", len(rest))
		}
		return Metadata{Filename: filename, Size: size, IsDirectory: isDir, Checksum: checksum}, nil

	case TypeChunk:
		if len(body) < 8 {
			return nil, fmt.Errorf("chunk too short: %d bytes", len(data))
		}
		return Chunk{
			Index: binary.BigEndian.Uint64(body[:8]),
			Data:  cloneBytes(body[8:]),
		}, nil

	case TypeResume:
		if len(body) < 8 {
			return nil, fmt.Errorf("resume too short: %d bytes", len(data))
		}
		return Resume{FromChunk: binary.BigEndian.Uint64(body[:8])}, nil

	case TypeComplete:
		return Complete{}, nil

	case TypeError:
		return Error{Message: string(body)}, nil

	case TypeAck:
		return Ack{}, nil

	default:
		return nil, fmt.Errorf("unknown message type 0x%02x", data[0])
	}
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("missing length prefix")
	}
	n := int(binary.BigEndian.Uint16(data[:2]))
	if len(data) < 2+n {
		return "", nil, fmt.Errorf("declared %d bytes, have %d", n, len(data)-2)
	}
	return string(data[2 : 2+n]), data[2+n:], nil
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
