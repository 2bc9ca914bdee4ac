package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Checksum streams r through SHA-256 and returns the hex digest.
func Checksum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.Wrap(err, "failed to hash stream")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumFile computes the SHA-256 digest of a file on disk without
// reading it into memory.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to open file for checksum")
	}
	defer f.Close()

	return Checksum(f)
}
