package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/jigardalal/engageninja-messaging/core"
)

type MappingLedgerStore struct {
	db   *bun.DB
	repo repository.Repository[*messageProviderMappingRecord]
}

func (s *MappingLedgerStore) Create(ctx context.Context, mapping core.MessageProviderMapping) (core.MessageProviderMapping, error) {
	if s == nil || s.repo == nil {
		return core.MessageProviderMapping{}, fmt.Errorf("sqlstore: mapping ledger store is not configured")
	}
	if strings.TrimSpace(mapping.MessageID) == "" {
		return core.MessageProviderMapping{}, fmt.Errorf("sqlstore: mapping requires a message id")
	}
	if strings.TrimSpace(mapping.CarrierMessageID) == "" {
		return core.MessageProviderMapping{}, fmt.Errorf("sqlstore: mapping requires a carrier message id")
	}
	if err := mapping.Carrier.Validate(); err != nil {
		return core.MessageProviderMapping{}, err
	}
	if err := mapping.Channel.Validate(); err != nil {
		return core.MessageProviderMapping{}, err
	}

	if strings.TrimSpace(mapping.ID) == "" {
		mapping.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	if mapping.UpdatedAt.IsZero() {
		mapping.UpdatedAt = now
	}

	created, err := s.repo.Create(ctx, newMappingRecord(mapping))
	if err != nil {
		return core.MessageProviderMapping{}, err
	}
	return created.toDomain(), nil
}

func (s *MappingLedgerStore) GetByCarrierMessageID(ctx context.Context, carrierMessageID string) (core.MessageProviderMapping, error) {
	if s == nil || s.repo == nil {
		return core.MessageProviderMapping{}, fmt.Errorf("sqlstore: mapping ledger store is not configured")
	}
	trimmed := strings.TrimSpace(carrierMessageID)
	if trimmed == "" {
		return core.MessageProviderMapping{}, fmt.Errorf("sqlstore: carrier message id is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("carrier_message_id", "=", trimmed),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.MessageProviderMapping{}, err
	}
	if len(records) == 0 {
		return core.MessageProviderMapping{}, fmt.Errorf("%w: %s", core.ErrMappingNotFound, trimmed)
	}
	return records[0].toDomain(), nil
}

func (s *MappingLedgerStore) GetByMessage(ctx context.Context, messageID string, carrier core.Carrier) (core.MessageProviderMapping, error) {
	if s == nil || s.repo == nil {
		return core.MessageProviderMapping{}, fmt.Errorf("sqlstore: mapping ledger store is not configured")
	}
	trimmedMessageID := strings.TrimSpace(messageID)
	if trimmedMessageID == "" {
		return core.MessageProviderMapping{}, fmt.Errorf("sqlstore: message id is required")
	}
	if err := carrier.Validate(); err != nil {
		return core.MessageProviderMapping{}, err
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("message_id", "=", trimmedMessageID),
		repository.SelectBy("carrier", "=", string(carrier)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.MessageProviderMapping{}, err
	}
	if len(records) == 0 {
		return core.MessageProviderMapping{}, fmt.Errorf(
			"%w: message %s carrier %s", core.ErrMappingNotFound, trimmedMessageID, carrier,
		)
	}
	return records[0].toDomain(), nil
}

// UpdateStatus records the raw carrier vocabulary last seen for a mapping.
// The normalized history lives in the status event table; this column is a
// convenience for operators inspecting the ledger directly.
func (s *MappingLedgerStore) UpdateStatus(ctx context.Context, carrierMessageID string, rawStatus string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: mapping ledger store is not configured")
	}
	trimmed := strings.TrimSpace(carrierMessageID)
	if trimmed == "" {
		return fmt.Errorf("sqlstore: carrier message id is required")
	}

	result, err := s.db.NewUpdate().
		Model((*messageProviderMappingRecord)(nil)).
		Set("last_carrier_status = ?", strings.TrimSpace(rawStatus)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("carrier_message_id = ?", trimmed).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrMappingNotFound, trimmed)
	}
	return nil
}
