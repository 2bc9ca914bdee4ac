package crypto

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum_Deterministic(t *testing.T) {
	payload := []byte("the same bytes every time")

	first, err := Checksum(bytes.NewReader(payload))
	require.NoError(t, err)
	second, err := Checksum(bytes.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "hex-encoded SHA-256")
}

func TestChecksum_SingleByteDifference(t *testing.T) {
	payload := bytes.Repeat([]byte{0x10}, 4096)
	flipped := append([]byte(nil), payload...)
	flipped[2048] ^= 0x01

	a, err := Checksum(bytes.NewReader(payload))
	require.NoError(t, err)
	b, err := Checksum(bytes.NewReader(flipped))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestChecksumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.bin")
	payload := []byte("file contents to digest")
	require.NoError(t, os.WriteFile(path, payload, 0600))

	fromFile, err := ChecksumFile(path)
	require.NoError(t, err)
	fromStream, err := Checksum(bytes.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, fromStream, fromFile)

	_, err = ChecksumFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
