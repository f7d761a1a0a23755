package devkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jigardalal/engageninja-messaging/core"
)

// In-memory store fixtures backing adapter and service tests. They enforce
// the same uniqueness rules as the SQL stores so tests exercise realistic
// failure paths.

type MemoryTenantStore struct {
	mu      sync.RWMutex
	tenants map[string]core.Tenant
}

func NewMemoryTenantStore(tenants ...core.Tenant) *MemoryTenantStore {
	store := &MemoryTenantStore{tenants: map[string]core.Tenant{}}
	for _, tenant := range tenants {
		store.tenants[tenant.ID] = tenant
	}
	return store
}

func (s *MemoryTenantStore) Put(tenant core.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[tenant.ID] = tenant
}

func (s *MemoryTenantStore) Get(_ context.Context, id string) (core.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenant, ok := s.tenants[id]
	if !ok {
		return core.Tenant{}, fmt.Errorf("%w: %s", core.ErrTenantNotFound, id)
	}
	return tenant, nil
}

type MemoryCredentialStore struct {
	mu   sync.RWMutex
	rows map[string]core.ChannelCredential
}

func NewMemoryCredentialStore(rows ...core.ChannelCredential) *MemoryCredentialStore {
	store := &MemoryCredentialStore{rows: map[string]core.ChannelCredential{}}
	for _, row := range rows {
		store.rows[credentialKey(row.TenantID, row.Channel)] = row
	}
	return store
}

func (s *MemoryCredentialStore) Put(row core.ChannelCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[credentialKey(row.TenantID, row.Channel)] = row
}

func (s *MemoryCredentialStore) GetByTenantChannel(_ context.Context, tenantID string, channel core.Channel) (core.ChannelCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[credentialKey(tenantID, channel)]
	if !ok {
		return core.ChannelCredential{}, fmt.Errorf("%w: tenant %s channel %s", core.ErrChannelNotConfigured, tenantID, channel)
	}
	return row, nil
}

func credentialKey(tenantID string, channel core.Channel) string {
	return tenantID + "/" + string(channel)
}

type MemoryMappingLedger struct {
	mu          sync.RWMutex
	byCarrierID map[string]core.MessageProviderMapping
}

func NewMemoryMappingLedger() *MemoryMappingLedger {
	return &MemoryMappingLedger{byCarrierID: map[string]core.MessageProviderMapping{}}
}

func (l *MemoryMappingLedger) Create(_ context.Context, mapping core.MessageProviderMapping) (core.MessageProviderMapping, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if mapping.CarrierMessageID == "" {
		return core.MessageProviderMapping{}, fmt.Errorf("devkit: mapping requires a carrier message id")
	}
	if _, exists := l.byCarrierID[mapping.CarrierMessageID]; exists {
		return core.MessageProviderMapping{}, fmt.Errorf("devkit: duplicate carrier message id %s", mapping.CarrierMessageID)
	}
	for _, existing := range l.byCarrierID {
		if existing.MessageID == mapping.MessageID && existing.Carrier == mapping.Carrier {
			return core.MessageProviderMapping{}, fmt.Errorf(
				"devkit: duplicate mapping for message %s carrier %s", mapping.MessageID, mapping.Carrier,
			)
		}
	}

	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	if mapping.UpdatedAt.IsZero() {
		mapping.UpdatedAt = now
	}
	l.byCarrierID[mapping.CarrierMessageID] = mapping
	return mapping, nil
}

func (l *MemoryMappingLedger) GetByCarrierMessageID(_ context.Context, carrierMessageID string) (core.MessageProviderMapping, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	mapping, ok := l.byCarrierID[carrierMessageID]
	if !ok {
		return core.MessageProviderMapping{}, fmt.Errorf("%w: %s", core.ErrMappingNotFound, carrierMessageID)
	}
	return mapping, nil
}

func (l *MemoryMappingLedger) GetByMessage(_ context.Context, messageID string, carrier core.Carrier) (core.MessageProviderMapping, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, mapping := range l.byCarrierID {
		if mapping.MessageID == messageID && mapping.Carrier == carrier {
			return mapping, nil
		}
	}
	return core.MessageProviderMapping{}, fmt.Errorf("%w: message %s carrier %s", core.ErrMappingNotFound, messageID, carrier)
}

func (l *MemoryMappingLedger) UpdateStatus(_ context.Context, carrierMessageID string, rawStatus string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	mapping, ok := l.byCarrierID[carrierMessageID]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrMappingNotFound, carrierMessageID)
	}
	mapping.LastCarrierStatus = rawStatus
	mapping.UpdatedAt = time.Now().UTC()
	l.byCarrierID[carrierMessageID] = mapping
	return nil
}

type MemoryStatusEventSink struct {
	mu     sync.RWMutex
	events []core.StatusEvent
}

func NewMemoryStatusEventSink() *MemoryStatusEventSink {
	return &MemoryStatusEventSink{}
}

func (s *MemoryStatusEventSink) Append(_ context.Context, event core.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStatusEventSink) List(_ context.Context, carrierMessageID string) ([]core.StatusEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.StatusEvent, 0, len(s.events))
	for _, event := range s.events {
		if event.CarrierMessageID == carrierMessageID {
			out = append(out, event)
		}
	}
	return out, nil
}

// EncodeSecret encrypts a carrier secret the way production credential rows
// store it.
func EncodeSecret(ctx context.Context, provider core.SecretProvider, secret core.CarrierSecret) ([]byte, error) {
	payload, err := core.JSONSecretCodec{}.Encode(secret)
	if err != nil {
		return nil, err
	}
	return provider.Encrypt(ctx, payload)
}

var (
	_ core.TenantStore            = (*MemoryTenantStore)(nil)
	_ core.ChannelCredentialStore = (*MemoryCredentialStore)(nil)
	_ core.MappingLedger          = (*MemoryMappingLedger)(nil)
	_ core.StatusEventSink        = (*MemoryStatusEventSink)(nil)
)
