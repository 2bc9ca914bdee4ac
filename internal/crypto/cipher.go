package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Streamer encrypts and decrypts arbitrarily large streams under a
// single 32-byte key. The wire format is a random 12-byte base nonce
// followed by length-prefixed AES-256-GCM chunks; each chunk's nonce is
// the base nonce XORed with a running counter, and the final chunk is
// sealed under a distinct counter bit so a truncated stream never
// decrypts cleanly. A wrong key or a flipped ciphertext byte fails the
// GCM open rather than producing garbage plaintext.
type Streamer struct {
	key []byte
}

const (
	chunkSize = 1 << 16 // 64KiB of plaintext per chunk

	// high bit of the chunk counter marks the final chunk
	finalChunkFlag = uint64(1) << 63
)

var ErrDecrypt = errors.New("decryption failed: wrong key or corrupted ciphertext")

func NewStreamer(key []byte) (*Streamer, error) {
	if len(key) != 32 {
		return nil, errors.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return &Streamer{key: key}, nil
}

func (s *Streamer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt reads plaintext from src and writes the encrypted stream to
// dst. A fresh base nonce is drawn per call, so encrypting the same
// payload twice never reuses a nonce.
func (s *Streamer) Encrypt(dst io.Writer, src io.Reader) (int64, error) {
	aead, err := s.aead()
	if err != nil {
		return 0, err
	}

	baseNonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, baseNonce); err != nil {
		return 0, errors.Wrap(err, "failed to generate nonce")
	}

	var written int64
	n, err := dst.Write(baseNonce)
	if err != nil {
		return written, errors.Wrap(err, "failed to write nonce")
	}
	written += int64(n)

	buf := make([]byte, chunkSize)
	lenPrefix := make([]byte, 4)
	var counter uint64

	for {
		n, readErr := io.ReadFull(src, buf)
		if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
			return written, errors.Wrap(readErr, "failed to read plaintext")
		}

		// a zero-length final chunk is still sealed so empty payloads
		// and exact chunk multiples terminate authenticated
		final := readErr == io.EOF || readErr == io.ErrUnexpectedEOF

		seq := counter
		if final {
			seq |= finalChunkFlag
		}

		sealed := aead.Seal(nil, chunkNonce(baseNonce, seq), buf[:n], nil)
		binary.BigEndian.PutUint32(lenPrefix, uint32(len(sealed)))

		if _, err := dst.Write(lenPrefix); err != nil {
			return written, errors.Wrap(err, "failed to write chunk header")
		}
		written += int64(len(lenPrefix))

		wn, err := dst.Write(sealed)
		if err != nil {
			return written, errors.Wrap(err, "failed to write ciphertext")
		}
		written += int64(wn)

		if final {
			return written, nil
		}
		counter++
	}
}

// Decrypt reads an encrypted stream from src and writes the recovered
// plaintext to dst. Any authentication failure, including truncation
// before the final chunk, returns ErrDecrypt.
func (s *Streamer) Decrypt(dst io.Writer, src io.Reader) error {
	aead, err := s.aead()
	if err != nil {
		return err
	}

	baseNonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(src, baseNonce); err != nil {
		return ErrDecrypt
	}

	lenPrefix := make([]byte, 4)
	buf := make([]byte, chunkSize+aead.Overhead())
	var counter uint64

	for {
		if _, err := io.ReadFull(src, lenPrefix); err != nil {
			// the final chunk carries the termination flag, so a
			// clean EOF here means the stream was cut short
			return ErrDecrypt
		}

		sealedLen := binary.BigEndian.Uint32(lenPrefix)
		if sealedLen > uint32(len(buf)) {
			return ErrDecrypt
		}

		if _, err := io.ReadFull(src, buf[:sealedLen]); err != nil {
			return ErrDecrypt
		}

		plain, openErr := aead.Open(nil, chunkNonce(baseNonce, counter), buf[:sealedLen], nil)
		if openErr != nil {
			// retry as the final chunk before giving up
			plain, openErr = aead.Open(nil, chunkNonce(baseNonce, counter|finalChunkFlag), buf[:sealedLen], nil)
			if openErr != nil {
				return ErrDecrypt
			}

			if _, err := dst.Write(plain); err != nil {
				return errors.Wrap(err, "failed to write plaintext")
			}
			return nil
		}

		if _, err := dst.Write(plain); err != nil {
			return errors.Wrap(err, "failed to write plaintext")
		}
		counter++
	}
}

// chunkNonce XORs the sequence number into the trailing 8 bytes of the
// base nonce.
func chunkNonce(base []byte, seq uint64) []byte {
	nonce := make([]byte, len(base))
	copy(nonce, base)

	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-8+i] ^= seqBytes[i]
	}
	return nonce
}
