package security

import (
	"context"
	"fmt"
	"strings"

	"github.com/jigardalal/engageninja-messaging/core"
)

// FailoverSecretProvider decrypts with the primary (envelope) scheme first and
// falls back to the legacy cipher for rows that predate the migration. It only
// ever encrypts with the primary, so every write moves a row forward.
type FailoverSecretProvider struct {
	primary  core.SecretProvider
	fallback core.SecretProvider
}

func NewFailoverSecretProvider(primary core.SecretProvider, fallback core.SecretProvider) (*FailoverSecretProvider, error) {
	if primary == nil {
		return nil, fmt.Errorf("security: primary secret provider is required")
	}
	return &FailoverSecretProvider{primary: primary, fallback: fallback}, nil
}

// NewTransitionSecretProvider wires the standard migration pair from the
// configured encryption settings.
func NewTransitionSecretProvider(cfg core.EncryptionConfig) (core.SecretProvider, error) {
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		return nil, fmt.Errorf("security: encryption key is required")
	}
	primary, err := NewAppKeySecretProviderFromString(key, WithKeyID(cfg.KeyID))
	if err != nil {
		return nil, err
	}
	if !cfg.AllowLegacy {
		return primary, nil
	}
	legacy, err := NewLegacyCredentialCipher(key)
	if err != nil {
		return nil, err
	}
	return NewFailoverSecretProvider(primary, legacy)
}

func (p *FailoverSecretProvider) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if p == nil || p.primary == nil {
		return nil, fmt.Errorf("security: failover secret provider is not configured")
	}
	return p.primary.Encrypt(ctx, plaintext)
}

func (p *FailoverSecretProvider) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if p == nil || p.primary == nil {
		return nil, fmt.Errorf("security: failover secret provider is not configured")
	}
	plaintext, primaryErr := p.primary.Decrypt(ctx, ciphertext)
	if primaryErr == nil {
		return plaintext, nil
	}
	if p.fallback == nil {
		return nil, primaryErr
	}
	plaintext, fallbackErr := p.fallback.Decrypt(ctx, ciphertext)
	if fallbackErr != nil {
		return nil, fmt.Errorf("security: decrypt failed under both schemes: %v (legacy: %v)", primaryErr, fallbackErr)
	}
	return plaintext, nil
}

var _ core.SecretProvider = (*FailoverSecretProvider)(nil)
