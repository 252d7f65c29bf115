// Package cipher implements the deterministic field cipher used to protect
// sensitive columns (account numbers, notes, serial values) before they reach
// storage.
//
// The scheme is AES-256 in CBC mode with a fixed, process-wide key and IV
// loaded from configuration. Because the IV is never regenerated, identical
// plaintexts always produce identical ciphertexts. That determinism is what
// allows exact-match filtering against encrypted columns, at the cost of
// leaking equality between rows. This is a deliberate trade-off, not an
// accident; do not switch to a per-record IV without dropping the exact-match
// filters that depend on it.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
)

// blockSize is the padding boundary. Plaintext is padded to a multiple of 32
// bytes (two AES blocks), matching the storage format of existing rows.
const blockSize = 32

// Cipher-specific errors.
var (
	ErrInvalidKey        = errors.New("key must be 32 bytes (64 hex characters)")
	ErrInvalidIV         = errors.New("iv must be 16 bytes (32 hex characters)")
	ErrInvalidCiphertext = errors.New("ciphertext is not a valid encrypted value")
)

// Cipher encrypts and decrypts individual string fields. Safe for concurrent
// use; the key and IV are read-only after construction.
type Cipher struct {
	key    []byte
	iv     []byte
	logger *slog.Logger
}

// New creates a Cipher from hex-encoded key and IV material.
func New(keyHex, ivHex string) (*Cipher, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return nil, ErrInvalidIV
	}
	return &Cipher{key: key, iv: iv, logger: slog.Default()}, nil
}

// NewWithLogger creates a Cipher that reports lenient-mode degradations to the
// given logger instead of the default one.
func NewWithLogger(keyHex, ivHex string, logger *slog.Logger) (*Cipher, error) {
	c, err := New(keyHex, ivHex)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		c.logger = logger
	}
	return c, nil
}

// Encrypt encrypts plaintext and returns the base64-encoded ciphertext.
// The output is deterministic: encrypting the same plaintext twice yields the
// same ciphertext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}

	raw := pad([]byte(plaintext))
	enc := make([]byte, len(raw))
	stdcipher.NewCBCEncrypter(block, c.iv).CryptBlocks(enc, raw)

	return base64.StdEncoding.EncodeToString(enc), nil
}

// Decrypt decodes and decrypts a base64-encoded ciphertext produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	enc, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(enc) == 0 || len(enc)%aes.BlockSize != 0 {
		return "", ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}

	dec := make([]byte, len(enc))
	stdcipher.NewCBCDecrypter(block, c.iv).CryptBlocks(dec, enc)

	out, err := unpad(dec)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncryptLenient encrypts a value, degrading to the original input when the
// operation fails. The failure is logged, never propagated, so a cipher error
// can result in plaintext being stored. Callers that must distinguish a
// degraded result from a successful one should call Encrypt directly.
func (c *Cipher) EncryptLenient(plaintext string) string {
	out, err := c.Encrypt(plaintext)
	if err != nil {
		c.logger.Warn("field encryption degraded to passthrough", "error", err)
		return plaintext
	}
	return out
}

// DecryptLenient decrypts a value, degrading to the original input when the
// operation fails. Values written before encryption was enabled (or written
// through a degraded EncryptLenient call) pass through unchanged.
func (c *Cipher) DecryptLenient(ciphertext string) string {
	out, err := c.Decrypt(ciphertext)
	if err != nil {
		c.logger.Warn("field decryption degraded to passthrough", "error", err)
		return ciphertext
	}
	return out
}

// pad appends PKCS-style padding up to the next blockSize boundary. The pad
// value is the number of padding bytes as a raw byte. A plaintext that already
// sits on a boundary gains a full block of padding.
func pad(b []byte) []byte {
	n := blockSize - len(b)%blockSize
	padded := make([]byte, len(b), len(b)+n)
	copy(padded, b)
	for i := 0; i < n; i++ {
		padded = append(padded, byte(n))
	}
	return padded
}

// unpad trims the trailing pad bytes indicated by the final byte's value.
func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrInvalidCiphertext
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, ErrInvalidCiphertext
	}
	return b[:len(b)-n], nil
}
