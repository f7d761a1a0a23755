package sqlstore

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/jigardalal/engageninja-messaging/core"
)

// ChannelCredentialStore reads carrier configuration rows. Rows are written
// by the channel-setup flow, not by this layer, so the surface is
// intentionally read-only.
type ChannelCredentialStore struct {
	db   *bun.DB
	repo repository.Repository[*channelCredentialRecord]
}

func (s *ChannelCredentialStore) GetByTenantChannel(ctx context.Context, tenantID string, channel core.Channel) (core.ChannelCredential, error) {
	if s == nil || s.repo == nil {
		return core.ChannelCredential{}, fmt.Errorf("sqlstore: channel credential store is not configured")
	}
	trimmedTenantID := strings.TrimSpace(tenantID)
	if trimmedTenantID == "" {
		return core.ChannelCredential{}, fmt.Errorf("sqlstore: tenant id is required")
	}
	if err := channel.Validate(); err != nil {
		return core.ChannelCredential{}, err
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("tenant_id", "=", trimmedTenantID),
		repository.SelectBy("channel", "=", string(channel)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.ChannelCredential{}, err
	}
	if len(records) == 0 {
		return core.ChannelCredential{}, fmt.Errorf(
			"%w: tenant %s channel %s", core.ErrChannelNotConfigured, trimmedTenantID, channel,
		)
	}
	return records[0].toDomain(), nil
}
