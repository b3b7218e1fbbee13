package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the length of the random nonce prepended to every frame.
const NonceSize = chacha20poly1305.NonceSize

// ErrAuthFailure reports that a frame failed authentication. Tampering,
// truncation, and decryption under the wrong key (a code mismatch between
// peers) are indistinguishable and all surface as this error.
var ErrAuthFailure = errors.New("message authentication failed")

// Cipher seals and opens protocol messages with ChaCha20-Poly1305.
// The AEAD key is the SHA-256 digest of the shared secret, fixing it to the
// cipher's required length.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher binds a cipher to the shared secret derived for this session.
func NewCipher(secret []byte) (*Cipher, error) {
	key := sha256.Sum256(secret)
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext into a frame: nonce ‖ ciphertext ‖ tag.
// Every call draws a fresh random nonce; nonce reuse under one secret is
// forbidden.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts a frame produced by Seal. Any bit flip,
// truncation, or reordering fails deterministically and never yields
// corrupted plaintext.
func (c *Cipher) Open(frame []byte) ([]byte, error) {
	if len(frame) < NonceSize {
		return nil, fmt.Errorf("%w: frame shorter than nonce", ErrAuthFailure)
	}
	plaintext, err := c.aead.Open(nil, frame[:NonceSize], frame[NonceSize:], nil)
	if err != nil {
		return nil, ErrAuthFailure
	}
	return plaintext, nil
}

// Checksum returns the SHA-256 hex digest of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumFile streams a file through SHA-256 and returns the hex digest.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
