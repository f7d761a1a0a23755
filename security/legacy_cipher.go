package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/jigardalal/engageninja-messaging/core"
)

// LegacyCredentialCipher reproduces the scheme existing credential rows were
// written with: the configured key string is SHA-256 hashed and truncated to
// the AES-256 key length, and the IV is a fixed all-zero block. The zero IV
// and deterministic key derivation are known weaknesses; the cipher exists so
// those rows stay readable during the migration window, and Encrypt is kept
// only so the migration can be exercised in both directions. New writes must
// go through AppKeySecretProvider.
type LegacyCredentialCipher struct {
	key []byte
}

func NewLegacyCredentialCipher(keyString string) (*LegacyCredentialCipher, error) {
	trimmed := strings.TrimSpace(keyString)
	if trimmed == "" {
		return nil, fmt.Errorf("security: legacy key string is required")
	}
	sum := sha256.Sum256([]byte(trimmed))
	key := make([]byte, aes.BlockSize*2)
	copy(key, sum[:])
	return &LegacyCredentialCipher{key: key}, nil
}

func (c *LegacyCredentialCipher) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("security: legacy cipher is nil")
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("security: plaintext is required")
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	padded := padPKCS7(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	iv := make([]byte, block.BlockSize())
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return []byte(base64.StdEncoding.EncodeToString(out)), nil
}

func (c *LegacyCredentialCipher) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("security: legacy cipher is nil")
	}
	trimmed := strings.TrimSpace(string(ciphertext))
	if trimmed == "" {
		return nil, fmt.Errorf("security: ciphertext is required")
	}
	raw, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("security: decode legacy ciphertext: %w", err)
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("security: legacy ciphertext length is not a block multiple")
	}
	out := make([]byte, len(raw))
	iv := make([]byte, block.BlockSize())
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)
	plaintext, err := unpadPKCS7(out, block.BlockSize())
	if err != nil {
		return nil, fmt.Errorf("security: legacy decrypt failed: %w", err)
	}
	return plaintext, nil
}

func padPKCS7(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(append([]byte(nil), data...), bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding byte")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}

var _ core.SecretProvider = (*LegacyCredentialCipher)(nil)
