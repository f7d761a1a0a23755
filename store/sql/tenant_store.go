package sqlstore

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/jigardalal/engageninja-messaging/core"
)

type TenantStore struct {
	db   *bun.DB
	repo repository.Repository[*tenantRecord]
}

func (s *TenantStore) Get(ctx context.Context, id string) (core.Tenant, error) {
	if s == nil || s.repo == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: tenant store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return core.Tenant{}, fmt.Errorf("sqlstore: tenant id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", trimmedID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Tenant{}, err
	}
	if len(records) == 0 {
		return core.Tenant{}, fmt.Errorf("%w: %s", core.ErrTenantNotFound, trimmedID)
	}
	return records[0].toDomain(), nil
}
