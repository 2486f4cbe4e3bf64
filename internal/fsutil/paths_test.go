package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveFileNameFromURL(t *testing.T) {
	assert.Equal(t, "archive.zip", DeriveFileName("http://example.com/path/archive.zip", "abcdef0123456789"))
}

func TestDeriveFileNameStripsQuery(t *testing.T) {
	assert.Equal(t, "file.bin", DeriveFileName("http://example.com/file.bin?token=x", "abcdef0123456789"))
}

func TestDeriveFileNameFallsBackOnTrailingSlash(t *testing.T) {
	name := DeriveFileName("http://example.com/", "abcdef0123456789")
	assert.Equal(t, "download_abcdef01", name)
}

func TestUniquePathNoCollision(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "file.bin")
	assert.Equal(t, p, UniquePath(p))
}

func TestUniquePathAvoidsCollision(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "file.bin")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	got := UniquePath(p)
	assert.Equal(t, filepath.Join(dir, "file (1).bin"), got)
}
