// Package encryption wraps preference names and serialized values before
// they reach storage. It never changes the codec wire format: values are
// encrypted after serialization and decrypted before deserialization.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"io"
)

// Errors
var (
	ErrKeyTooShort     = errors.New("encryption: xor secret must be at least 16 bytes")
	ErrInvalidKeySize  = errors.New("encryption: aes key must be 16, 24 or 32 bytes")
	ErrCiphertextShort = errors.New("encryption: ciphertext too short")
	ErrInvalidName     = errors.New("encryption: invalid encrypted name")
)

// KeyEncryption maps preference keys to storage names and back
type KeyEncryption interface {
	Encrypt(name string) (string, error)
	Decrypt(name string) (string, error)
}

// ValueEncryption wraps serialized values
type ValueEncryption interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// NoKeyEncryption stores keys as they are
type NoKeyEncryption struct{}

func (NoKeyEncryption) Encrypt(name string) (string, error) { return name, nil }

func (NoKeyEncryption) Decrypt(name string) (string, error) { return name, nil }

// NoValueEncryption stores values as they are
type NoValueEncryption struct{}

func (NoValueEncryption) Encrypt(plaintext []byte) ([]byte, error) { return plaintext, nil }

func (NoValueEncryption) Decrypt(ciphertext []byte) ([]byte, error) { return ciphertext, nil }

// nameEncoding is lower case and unpadded so results are valid file names
// on case-insensitive file systems too.
var nameEncoding = base32.NewEncoding("0123456789abcdefghijklmnopqrstuv").WithPadding(base32.NoPadding)

// XorKeyEncryption obfuscates key names with a repeating XOR secret.
// The mapping is deterministic so the same key always lands on the same name.
type XorKeyEncryption struct {
	secret []byte
}

// NewXorKeyEncryption creates a key encryption from a secret of 16 bytes or more
func NewXorKeyEncryption(secret []byte) (*XorKeyEncryption, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("%w (got %d)", ErrKeyTooShort, len(secret))
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &XorKeyEncryption{secret: s}, nil
}

func (x *XorKeyEncryption) xor(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[i] ^ x.secret[i%len(x.secret)]
	}
	return out
}

func (x *XorKeyEncryption) Encrypt(name string) (string, error) {
	return nameEncoding.EncodeToString(x.xor([]byte(name))), nil
}

func (x *XorKeyEncryption) Decrypt(name string) (string, error) {
	b, err := nameEncoding.DecodeString(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidName, name, err)
	}
	return string(x.xor(b)), nil
}

// AESValueEncryption seals values with AES-GCM. Output: nonce || ciphertext.
type AESValueEncryption struct {
	aead cipher.AEAD
}

// NewAESValueEncryption creates a value encryption from a 16, 24 or 32 byte key
func NewAESValueEncryption(key []byte) (*AESValueEncryption, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESValueEncryption{aead: aead}, nil
}

func (e *AESValueEncryption) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *AESValueEncryption) Decrypt(ciphertext []byte) ([]byte, error) {
	n := e.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrCiphertextShort
	}
	return e.aead.Open(nil, ciphertext[:n], ciphertext[n:], nil)
}
