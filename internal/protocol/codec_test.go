package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeDecodeRoundTrip verifies that encoding and decoding are inverse
// operations for every message variant.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		msg  Message
	}{
		{
			name: "Hello",
			msg:  Hello{Version: 1},
		},
		{
			name: "KeyExchange with payload",
			msg:  KeyExchange{Data: []byte{0xde, 0xad, 0xbe, 0xef}},
		},
		{
			name: "KeyExchange empty",
			msg:  KeyExchange{},
		},
		{
			name: "Metadata",
			msg: Metadata{
				Filename:    "report.pdf",
				Size:        1 << 30,
				IsDirectory: false,
				Checksum:    strings.Repeat("ab", 32),
			},
		},
		{
			name: "Metadata directory without checksum",
			msg:  Metadata{Filename: "photos", Size: 4096, IsDirectory: true},
		},
		{
			name: "Chunk",
			msg:  Chunk{Index: 42, Data: []byte("hello world")},
		},
		{
			name: "Chunk with empty data",
			msg:  Chunk{Index: 0},
		},
		{
			name: "Chunk with large payload",
			msg:  Chunk{Index: 999, Data: make([]byte, 64*1024)},
		},
		{
			name: "Resume",
			msg:  Resume{FromChunk: 5},
		},
		{
			name: "Complete",
			msg:  Complete{},
		},
		{
			name: "Error",
			msg:  Error{Message: "duplicate role"},
		},
		{
			name: "Ack",
			msg:  Ack{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Encode(tc.msg)
			require.NoError(t, err)

			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.msg, decoded)
		})
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{name: "empty input", data: nil},
		{name: "unknown type", data: []byte{0xff, 0x00}},
		{name: "hello without version", data: []byte{TypeHello}},
		{name: "chunk without index", data: []byte{TypeChunk, 0x01, 0x02}},
		{name: "resume truncated", data: []byte{TypeResume, 0x00}},
		{name: "metadata missing length prefix", data: []byte{TypeMetadata, 0x00}},
		{name: "metadata lying length prefix", data: []byte{TypeMetadata, 0x00, 0xff, 'a'}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			assert.Error(t, err)
		})
	}
}

// Trailing garbage after a fixed-layout message must not round-trip into a
// valid value silently.
func TestDecodeMetadataRejectsTrailingBytes(t *testing.T) {
	encoded, err := Encode(Metadata{Filename: "a", Size: 1})
	require.NoError(t, err)

	_, err = Decode(append(encoded, 0x00))
	assert.Error(t, err)
}
