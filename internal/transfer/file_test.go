package transfer

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

// Reassembling chunks written in order must reproduce the source exactly.
func TestChunkerWriterRoundTrip(t *testing.T) {
	src := randomBytes(t, 10_000)
	srcPath := writeTempFile(t, src)
	dstPath := filepath.Join(t.TempDir(), "dst.bin")

	chunker, err := NewChunker(srcPath, 1024)
	require.NoError(t, err)
	defer chunker.Close()
	assert.Equal(t, uint64(10_000), chunker.TotalSize())

	writer, err := NewFileWriter(dstPath)
	require.NoError(t, err)

	for {
		chunk, err := chunker.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.LessOrEqual(t, len(chunk), 1024)
		require.NoError(t, writer.WriteChunk(chunk))
	}
	require.NoError(t, writer.Finalize())

	assert.Equal(t, uint64(10_000), writer.BytesWritten())
	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(src, got))
}

func TestChunkerEmptyFile(t *testing.T) {
	path := writeTempFile(t, nil)
	chunker, err := NewChunker(path, 1024)
	require.NoError(t, err)
	defer chunker.Close()

	_, err = chunker.Next()
	assert.Equal(t, io.EOF, err)
}

func TestChunkerSeekChunk(t *testing.T) {
	src := randomBytes(t, 100)
	chunker, err := NewChunker(writeTempFile(t, src), 16)
	require.NoError(t, err)
	defer chunker.Close()

	require.NoError(t, chunker.SeekChunk(5))
	assert.Equal(t, uint64(80), chunker.BytesRead())

	chunk, err := chunker.Next()
	require.NoError(t, err)
	assert.Equal(t, src[80:96], chunk)

	chunk, err = chunker.Next()
	require.NoError(t, err)
	assert.Equal(t, src[96:], chunk)

	_, err = chunker.Next()
	assert.Equal(t, io.EOF, err)
}

// A resumed writer truncates to the resume offset and counts the retained
// prefix as already written.
func TestResumeFileWriter(t *testing.T) {
	src := randomBytes(t, 100)
	path := filepath.Join(t.TempDir(), "partial.bin")

	// Simulate a transfer interrupted mid-way through chunk 5 (chunk size
	// 16): 85 bytes on disk, only 80 of them durable chunk boundaries.
	require.NoError(t, os.WriteFile(path, src[:85], 0o644))
	assert.Equal(t, uint64(5), ResumePoint(path, 16))

	writer, err := ResumeFileWriter(path, 5, 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(80), writer.BytesWritten())

	require.NoError(t, writer.WriteChunk(src[80:96]))
	require.NoError(t, writer.WriteChunk(src[96:]))
	require.NoError(t, writer.Finalize())
	assert.Equal(t, uint64(100), writer.BytesWritten())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(src, got))
}

func TestResumePointMissingFile(t *testing.T) {
	assert.Equal(t, uint64(0), ResumePoint(filepath.Join(t.TempDir(), "nope"), 16))
}

func TestFileMetadata(t *testing.T) {
	src := []byte("Hello, Zap!")
	path := writeTempFile(t, src)

	meta, err := FileMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "src.bin", meta.Filename)
	assert.Equal(t, uint64(len(src)), meta.Size)
	assert.False(t, meta.IsDirectory)
	assert.Len(t, meta.Checksum, 64)

	_, err = FileMetadata(t.TempDir())
	assert.Error(t, err)
}
