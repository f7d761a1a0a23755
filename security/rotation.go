package security

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jigardalal/engageninja-messaging/core"
)

// Reencrypt moves one credential blob from the legacy scheme to the target
// scheme. Blobs already written under the target scheme pass through
// unchanged, so the migration can be re-run safely.
func Reencrypt(ctx context.Context, legacy core.SecretProvider, target core.SecretProvider, ciphertext []byte) ([]byte, bool, error) {
	if legacy == nil || target == nil {
		return nil, false, fmt.Errorf("security: reencrypt requires both providers")
	}
	if len(ciphertext) == 0 {
		return nil, false, fmt.Errorf("security: ciphertext is required")
	}
	if bytes.HasPrefix(ciphertext, []byte(envelopePrefix)) {
		return ciphertext, false, nil
	}
	plaintext, err := legacy.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, false, fmt.Errorf("security: legacy decrypt during reencrypt: %w", err)
	}
	sealed, err := target.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, false, fmt.Errorf("security: target encrypt during reencrypt: %w", err)
	}
	return sealed, true, nil
}
