package transfer

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTarEntry(t *testing.T, w io.Writer, name string, data []byte) {
	t.Helper()
	tw := tar.NewWriter(w)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: name,
		Mode: 0o644,
		Size: int64(len(data)),
	}))
	_, err := tw.Write(data)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
}

func TestPackExtractRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "nested", "deep"), 0o755))
	files := map[string][]byte{
		"top.txt":               []byte("top level"),
		"nested/mid.txt":        []byte("middle"),
		"nested/deep/leaf.bin":  {0x00, 0x01, 0x02},
		"nested/deep/empty.txt": {},
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, name), data, 0o644))
	}

	tarPath, err := PackDir(srcDir)
	require.NoError(t, err)
	defer os.Remove(tarPath)

	dstDir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, ExtractArchive(tarPath, dstDir))

	for name, want := range files {
		got, err := os.ReadFile(filepath.Join(dstDir, name))
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	// Hand-build an archive containing a path traversal entry.
	evil := filepath.Join(t.TempDir(), "evil.tar")
	f, err := os.Create(evil)
	require.NoError(t, err)
	writeTarEntry(t, f, "../escape.txt", []byte("nope"))
	require.NoError(t, f.Close())

	err = ExtractArchive(evil, filepath.Join(t.TempDir(), "out"))
	assert.Error(t, err)
}
