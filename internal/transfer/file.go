// Package transfer provides the file-side collaborators of a transfer:
// sequential chunk reading, resume-aware chunk writing, and directory
// archiving.
package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zapxfer/zap/internal/crypto"
	"github.com/zapxfer/zap/internal/protocol"
)

// ChunkSize is the fixed chunk length. Only the final chunk of a file may
// be shorter; resume offsets are computed as fromChunk × ChunkSize.
const ChunkSize = 64 * 1024

// Source reads a file as a sequence of chunks.
type Source interface {
	// Next returns the next chunk (≤ ChunkSize bytes) or io.EOF at the end.
	Next() ([]byte, error)
	// SeekChunk positions the source at the given chunk index.
	SeekChunk(index uint64) error
	// BytesRead reports the cumulative byte position, counting bytes
	// skipped over by SeekChunk as read.
	BytesRead() uint64
}

// Sink consumes chunks and reports cumulative bytes written.
type Sink interface {
	WriteChunk(data []byte) error
	BytesWritten() uint64
	// Finalize flushes and syncs the sink. No writes may follow.
	Finalize() error
}

// FileMetadata builds the transfer metadata for a regular file, including
// its streaming SHA-256 checksum.
func FileMetadata(path string) (protocol.Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return protocol.Metadata{}, err
	}
	if info.IsDir() {
		return protocol.Metadata{}, fmt.Errorf("%s is a directory", path)
	}
	checksum, err := crypto.ChecksumFile(path)
	if err != nil {
		return protocol.Metadata{}, err
	}
	return protocol.Metadata{
		Filename: filepath.Base(path),
		Size:     uint64(info.Size()),
		Checksum: checksum,
	}, nil
}

// Chunker is the file-backed Source.
type Chunker struct {
	f         *os.File
	chunkSize int
	totalSize uint64
	bytesRead uint64
}

// NewChunker opens a file for chunked reading.
func NewChunker(path string, chunkSize int) (*Chunker, error) {
	if chunkSize <= 0 {
		chunkSize = ChunkSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Chunker{f: f, chunkSize: chunkSize, totalSize: uint64(info.Size())}, nil
}

// Next reads the next chunk, or io.EOF once the file is exhausted.
func (c *Chunker) Next() ([]byte, error) {
	if c.bytesRead >= c.totalSize {
		return nil, io.EOF
	}
	buf := make([]byte, c.chunkSize)
	n, err := c.f.Read(buf)
	if n == 0 {
		if err == nil || err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	c.bytesRead += uint64(n)
	return buf[:n], nil
}

// SeekChunk repositions the chunker at chunk index × chunk size.
func (c *Chunker) SeekChunk(index uint64) error {
	offset := int64(index) * int64(c.chunkSize)
	if _, err := c.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to chunk %d: %w", index, err)
	}
	c.bytesRead = uint64(offset)
	return nil
}

// BytesRead reports the cumulative bytes read so far.
func (c *Chunker) BytesRead() uint64 { return c.bytesRead }

// TotalSize reports the file size.
func (c *Chunker) TotalSize() uint64 { return c.totalSize }

// Close releases the underlying file.
func (c *Chunker) Close() error { return c.f.Close() }

// FileWriter is the file-backed Sink.
type FileWriter struct {
	f       *os.File
	written uint64
}

// NewFileWriter creates (or truncates) the output file.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{f: f}, nil
}

// ResumeFileWriter reopens a partially written file, truncates it to the
// resume offset (fromChunk × chunkSize — the first chunk not yet durably
// written), and positions writes there. The returned writer counts the
// retained bytes as already written.
func ResumeFileWriter(path string, fromChunk uint64, chunkSize int) (*FileWriter, error) {
	if chunkSize <= 0 {
		chunkSize = ChunkSize
	}
	offset := int64(fromChunk) * int64(chunkSize)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(offset); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &FileWriter{f: f, written: uint64(offset)}, nil
}

// WriteChunk appends one chunk.
func (w *FileWriter) WriteChunk(data []byte) error {
	n, err := w.f.Write(data)
	w.written += uint64(n)
	if err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	return nil
}

// BytesWritten reports the cumulative bytes written, including retained
// bytes on a resumed transfer.
func (w *FileWriter) BytesWritten() uint64 { return w.written }

// Finalize syncs the file to durable storage and closes it.
func (w *FileWriter) Finalize() error {
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return fmt.Errorf("sync: %w", err)
	}
	return w.f.Close()
}

// ResumePoint inspects an existing partial file and returns the chunk index
// to resume from: the first chunk not yet fully written. A missing file
// resumes from zero.
func ResumePoint(path string, chunkSize int) uint64 {
	if chunkSize <= 0 {
		chunkSize = ChunkSize
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return uint64(info.Size()) / uint64(chunkSize)
}
