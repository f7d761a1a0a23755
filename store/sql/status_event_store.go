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

// StatusEventStore appends normalized delivery events. Duplicate deliveries
// append duplicate rows on purpose; collapsing them would lose the carrier's
// actual behavior, and readers already order by occurrence time.
type StatusEventStore struct {
	db   *bun.DB
	repo repository.Repository[*statusEventRecord]
}

func (s *StatusEventStore) Append(ctx context.Context, event core.StatusEvent) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: status event store is not configured")
	}
	if strings.TrimSpace(event.CarrierMessageID) == "" {
		return fmt.Errorf("sqlstore: status event requires a carrier message id")
	}
	if strings.TrimSpace(string(event.Status)) == "" {
		return fmt.Errorf("sqlstore: status event requires a status")
	}

	if strings.TrimSpace(event.ID) == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}

	_, err := s.repo.Create(ctx, newStatusEventRecord(event))
	return err
}

func (s *StatusEventStore) List(ctx context.Context, carrierMessageID string) ([]core.StatusEvent, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: status event store is not configured")
	}
	trimmed := strings.TrimSpace(carrierMessageID)
	if trimmed == "" {
		return nil, fmt.Errorf("sqlstore: carrier message id is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("carrier_message_id", "=", trimmed),
		repository.OrderBy("occurred_at ASC, created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.StatusEvent, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
