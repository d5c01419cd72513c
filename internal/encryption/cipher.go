// Package encryption implements the at-rest message cipher shared by both
// participants of a conversation.
//
// Keys are derived from the conversation id alone. Anyone who knows a
// conversation id can derive its key: this protects stored message bodies
// from casual inspection and is not end-to-end secrecy.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyIterations is the PBKDF2 iteration count used for every conversation key
	KeyIterations = 100000

	// KeySize is the derived key length in bytes (AES-256)
	KeySize = 32

	// NonceSize is the GCM nonce length in bytes (96 bits)
	NonceSize = 12

	// DefaultSalt is the application-wide salt. Both parties must use the same value.
	DefaultSalt = "wedding-chat-message-salt-v1"

	// UndecryptableText replaces any body that fails to decrypt
	UndecryptableText = "[Encrypted message - unable to decrypt]"

	separator = ":"
)

var (
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	ErrDecryptFailed       = errors.New("decryption failed")
)

// Cipher encrypts and decrypts message bodies keyed by conversation id
type Cipher struct {
	salt   []byte
	logger *slog.Logger
	rand   io.Reader

	mu   sync.Mutex
	aead map[string]cipher.AEAD
}

// New creates a cipher using the given application-wide salt
func New(salt string, logger *slog.Logger) *Cipher {
	if salt == "" {
		salt = DefaultSalt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cipher{
		salt:   []byte(salt),
		logger: logger,
		rand:   rand.Reader,
		aead:   make(map[string]cipher.AEAD),
	}
}

// DeriveKey stretches a conversation id into a 256-bit key.
// The result is deterministic for a given (conversation id, salt) pair.
func DeriveKey(conversationID string, salt []byte) []byte {
	return pbkdf2.Key([]byte(conversationID), salt, KeyIterations, KeySize, sha256.New)
}

// Encrypt seals plaintext under the conversation key with a fresh random nonce.
// The result has the form base64(nonce) + ":" + base64(ciphertext||tag).
func (c *Cipher) Encrypt(plaintext, conversationID string) (string, error) {
	aead, err := c.aeadFor(conversationID)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(nonce) + separator + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an encoded body. It never fails: any error is logged and
// UndecryptableText is returned instead.
func (c *Cipher) Decrypt(encoded, conversationID string) string {
	plaintext, err := c.Open(encoded, conversationID)
	if err != nil {
		c.logger.Warn("failed to decrypt message", "conversation_id", conversationID, "error", err)
		return UndecryptableText
	}
	return plaintext
}

// Open is Decrypt with the error exposed
func (c *Cipher) Open(encoded, conversationID string) (string, error) {
	nonceB64, sealedB64, ok := strings.Cut(encoded, separator)
	if !ok {
		return "", ErrMalformedCiphertext
	}

	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrMalformedCiphertext, err)
	}
	if len(nonce) != NonceSize {
		return "", fmt.Errorf("%w: nonce length %d", ErrMalformedCiphertext, len(nonce))
	}

	sealed, err := base64.StdEncoding.DecodeString(sealedB64)
	if err != nil {
		return "", fmt.Errorf("%w: body: %v", ErrMalformedCiphertext, err)
	}

	aead, err := c.aeadFor(conversationID)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plaintext), nil
}

// aeadFor returns the GCM instance for a conversation, deriving it once
func (c *Cipher) aeadFor(conversationID string) (cipher.AEAD, error) {
	c.mu.Lock()
	aead, ok := c.aead[conversationID]
	c.mu.Unlock()
	if ok {
		return aead, nil
	}

	// PBKDF2 runs outside the lock so unrelated conversations derive in parallel
	block, err := aes.NewCipher(DeriveKey(conversationID, c.salt))
	if err != nil {
		return nil, fmt.Errorf("creating block cipher: %w", err)
	}
	aead, err = cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}

	c.mu.Lock()
	c.aead[conversationID] = aead
	c.mu.Unlock()
	return aead, nil
}
