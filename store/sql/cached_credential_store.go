package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/jigardalal/engageninja-messaging/core"
)

const credentialCacheKeyPrefix = "engageninja::channel_credential::v1"

// CachedChannelCredentialStore fronts credential reads with a cache. Every
// send resolves a credential row, so this is the hottest read in the system;
// the channel-setup flow calls Invalidate after writing a row.
type CachedChannelCredentialStore struct {
	base  core.ChannelCredentialStore
	cache repositorycache.CacheService
}

func NewCachedChannelCredentialStore(
	base core.ChannelCredentialStore,
	cacheService repositorycache.CacheService,
) (*CachedChannelCredentialStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base channel credential store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: credential cache service is required")
	}
	return &CachedChannelCredentialStore{base: base, cache: cacheService}, nil
}

// ChannelCredentialCacheKey returns the deterministic cache key contract for
// credential reads: engageninja::channel_credential::v1::<tenant_id>::<channel>
// with each segment URL-path escaped.
func ChannelCredentialCacheKey(tenantID string, channel core.Channel) (string, error) {
	trimmedTenantID := strings.TrimSpace(tenantID)
	if trimmedTenantID == "" {
		return "", fmt.Errorf("sqlstore: tenant id is required")
	}
	if err := channel.Validate(); err != nil {
		return "", err
	}
	segments := []string{
		url.PathEscape(trimmedTenantID),
		url.PathEscape(string(channel)),
	}
	return strings.Join(append([]string{credentialCacheKeyPrefix}, segments...), "::"), nil
}

func (s *CachedChannelCredentialStore) GetByTenantChannel(ctx context.Context, tenantID string, channel core.Channel) (core.ChannelCredential, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.ChannelCredential{}, fmt.Errorf("sqlstore: cached channel credential store is not configured")
	}
	cacheKey, err := ChannelCredentialCacheKey(tenantID, channel)
	if err != nil {
		return core.ChannelCredential{}, err
	}

	credential, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.ChannelCredential, error) {
		fetched, fetchErr := s.base.GetByTenantChannel(ctx, tenantID, channel)
		if fetchErr != nil {
			return core.ChannelCredential{}, fetchErr
		}
		return cloneCredential(fetched), nil
	})
	if err != nil {
		return core.ChannelCredential{}, err
	}
	return cloneCredential(credential), nil
}

func (s *CachedChannelCredentialStore) Invalidate(ctx context.Context, tenantID string, channel core.Channel) error {
	if s == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached channel credential store is not configured")
	}
	cacheKey, err := ChannelCredentialCacheKey(tenantID, channel)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneCredential(in core.ChannelCredential) core.ChannelCredential {
	out := in
	out.EncryptedSecret = append([]byte(nil), in.EncryptedSecret...)
	out.Config = cloneConfig(in.Config)
	if in.VerifiedAt != nil {
		verifiedAt := in.VerifiedAt.UTC()
		out.VerifiedAt = &verifiedAt
	}
	return out
}

var _ core.ChannelCredentialStore = (*CachedChannelCredentialStore)(nil)
