package webhooks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/jigardalal/engageninja-messaging/core"
)

// WebhookHandler reconciles one authenticated callback against the mapping
// ledger. *core.Service satisfies it.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, tenantID string, channel core.Channel, req core.WebhookRequest) (core.WebhookOutcome, error)
}

// InboundCallback is one carrier callback as it arrives at the ingress edge,
// before any carrier-specific parsing.
type InboundCallback struct {
	TenantID string
	Channel  core.Channel
	Request  core.WebhookRequest
	Metadata map[string]any
}

// ClaimStore guards against replayed physical deliveries. Claim returns a
// claim id and whether the caller won the claim; losers treat the callback as
// already handled.
type ClaimStore interface {
	Claim(ctx context.Context, key string, lease time.Duration) (string, bool, error)
	Complete(ctx context.Context, claimID string) error
	Fail(ctx context.Context, claimID string, cause error, retryAt time.Time) error
}

type DeliveryKeyExtractor func(cb InboundCallback) string

// Processor is the carrier-agnostic ingress in front of the reconciliation
// service. Deduplication is strictly per physical delivery: it only engages
// when the carrier stamped a delivery id on the request. Logically distinct
// callbacks for the same message always flow through, so the event log keeps
// every occurrence.
type Processor struct {
	Handler    WebhookHandler
	Store      ClaimStore
	ExtractKey DeliveryKeyExtractor
	KeyTTL     time.Duration
}

func NewProcessor(handler WebhookHandler) *Processor {
	return &Processor{
		Handler:    handler,
		ExtractKey: DefaultDeliveryKeyExtractor,
		KeyTTL:     10 * time.Minute,
	}
}

// Process validates the callback envelope, claims its delivery key when one is
// present, and hands it to the reconciliation service. Dropped callbacks
// (failed auth, unparseable payloads, unmatched mappings) come back as outcome
// values, not errors, and complete their claim: redelivering them cannot
// change the outcome.
func (p *Processor) Process(ctx context.Context, cb InboundCallback) (core.WebhookOutcome, error) {
	if p == nil || p.Handler == nil {
		return core.WebhookOutcome{}, processorInternal("webhooks: processor handler is required")
	}
	cb.TenantID = strings.TrimSpace(cb.TenantID)
	if cb.TenantID == "" {
		return core.WebhookOutcome{}, processorBadInput("webhooks: tenant id is required")
	}
	if err := cb.Channel.Validate(); err != nil {
		return core.WebhookOutcome{}, processorBadInput(fmt.Sprintf("webhooks: %v", err))
	}
	if len(cb.Request.Body) == 0 {
		return core.WebhookOutcome{}, processorBadInput("webhooks: callback body is required")
	}

	claimID := ""
	if p.Store != nil {
		extractor := p.ExtractKey
		if extractor == nil {
			extractor = DefaultDeliveryKeyExtractor
		}
		if key := extractor(cb); key != "" {
			scoped := cb.TenantID + ":" + string(cb.Channel) + ":" + key
			id, accepted, err := p.Store.Claim(ctx, scoped, p.keyTTL())
			if err != nil {
				return core.WebhookOutcome{}, goerrors.Wrap(
					err,
					goerrors.CategoryOperation,
					"webhooks: delivery claim failed",
				).WithTextCode(core.MessagingErrorInternal)
			}
			if !accepted {
				return core.WebhookOutcome{
					Error: "duplicate delivery",
				}, nil
			}
			claimID = id
		}
	}

	outcome, err := p.Handler.HandleWebhook(ctx, cb.TenantID, cb.Channel, cb.Request)
	if err != nil {
		if p.Store != nil && claimID != "" {
			if failErr := p.Store.Fail(ctx, claimID, err, time.Time{}); failErr != nil {
				return core.WebhookOutcome{}, goerrors.Wrap(
					failErr,
					goerrors.CategoryOperation,
					"webhooks: release delivery claim",
				).WithTextCode(core.MessagingErrorInternal)
			}
		}
		return core.WebhookOutcome{}, err
	}

	if p.Store != nil && claimID != "" {
		if err := p.Store.Complete(ctx, claimID); err != nil {
			return outcome, goerrors.Wrap(
				err,
				goerrors.CategoryOperation,
				"webhooks: complete delivery claim",
			).WithTextCode(core.MessagingErrorInternal)
		}
	}
	return outcome, nil
}

// DefaultDeliveryKeyExtractor looks for an explicit delivery id in the
// callback metadata, then in the usual idempotency headers. An empty return
// means the delivery is not deduplicable.
func DefaultDeliveryKeyExtractor(cb InboundCallback) string {
	if cb.Metadata != nil {
		for _, key := range []string{"delivery_id", "idempotency_key"} {
			if value := trimAny(cb.Metadata[key]); value != "" {
				return value
			}
		}
	}
	for _, header := range []string{"Idempotency-Key", "X-Idempotency-Key", "X-Delivery-Id"} {
		if value := headerValue(cb.Request.Headers, header); value != "" {
			return value
		}
	}
	return ""
}

func (p *Processor) keyTTL() time.Duration {
	if p != nil && p.KeyTTL > 0 {
		return p.KeyTTL
	}
	return 10 * time.Minute
}

type claimStatus string

const (
	claimStatusProcessing claimStatus = "processing"
	claimStatusRetryReady claimStatus = "retry_ready"
	claimStatusComplete   claimStatus = "complete"
)

type claimEntry struct {
	key            string
	status         claimStatus
	claimID        string
	attempts       int
	keyTTL         time.Duration
	leaseExpiresAt time.Time
	retryAt        time.Time
}

// MemoryClaimStore is the in-process ClaimStore used in tests and
// single-instance deployments. Completed claims hold their key for the lease
// window and are evicted afterwards.
type MemoryClaimStore struct {
	mu      sync.Mutex
	entries map[string]claimEntry
	claims  map[string]string
	nextID  int
	Now     func() time.Time
}

func NewMemoryClaimStore() *MemoryClaimStore {
	return &MemoryClaimStore{
		entries: map[string]claimEntry{},
		claims:  map[string]string{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *MemoryClaimStore) Claim(_ context.Context, key string, lease time.Duration) (string, bool, error) {
	if s == nil {
		return "", false, processorInternal("webhooks: claim store is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, processorBadInput("webhooks: delivery key is required")
	}
	now := s.now()
	if lease <= 0 {
		lease = 10 * time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(now)
	entry, exists := s.entries[key]
	if !exists {
		claimID := s.nextClaimID()
		s.entries[key] = claimEntry{
			key:            key,
			status:         claimStatusProcessing,
			claimID:        claimID,
			attempts:       1,
			keyTTL:         lease,
			leaseExpiresAt: now.Add(lease),
		}
		s.claims[claimID] = key
		return claimID, true, nil
	}

	switch entry.status {
	case claimStatusComplete:
		if !entry.leaseExpiresAt.IsZero() && now.Before(entry.leaseExpiresAt) {
			return "", false, nil
		}
	case claimStatusProcessing:
		if now.Before(entry.leaseExpiresAt) {
			return "", false, nil
		}
	case claimStatusRetryReady:
		if !entry.retryAt.IsZero() && now.Before(entry.retryAt) {
			return "", false, nil
		}
	}

	if entry.claimID != "" {
		delete(s.claims, entry.claimID)
	}
	claimID := s.nextClaimID()
	entry.status = claimStatusProcessing
	entry.claimID = claimID
	entry.attempts++
	entry.keyTTL = lease
	entry.leaseExpiresAt = now.Add(lease)
	entry.retryAt = time.Time{}
	s.entries[key] = entry
	s.claims[claimID] = key
	return claimID, true, nil
}

func (s *MemoryClaimStore) Complete(_ context.Context, claimID string) error {
	if s == nil {
		return processorInternal("webhooks: claim store is nil")
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return processorBadInput("webhooks: claim id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.claims[claimID]
	if !ok {
		return nil
	}
	entry, exists := s.entries[key]
	if !exists || entry.claimID != claimID || entry.status != claimStatusProcessing {
		delete(s.claims, claimID)
		return nil
	}
	ttl := entry.keyTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	entry.status = claimStatusComplete
	entry.leaseExpiresAt = s.now().Add(ttl)
	entry.retryAt = time.Time{}
	s.entries[key] = entry
	delete(s.claims, claimID)
	return nil
}

func (s *MemoryClaimStore) Fail(_ context.Context, claimID string, _ error, retryAt time.Time) error {
	if s == nil {
		return processorInternal("webhooks: claim store is nil")
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return processorBadInput("webhooks: claim id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.claims[claimID]
	if !ok {
		return nil
	}
	entry, exists := s.entries[key]
	if !exists || entry.claimID != claimID || entry.status != claimStatusProcessing {
		delete(s.claims, claimID)
		return nil
	}
	if retryAt.IsZero() {
		retryAt = s.now()
	}
	entry.status = claimStatusRetryReady
	entry.retryAt = retryAt.UTC()
	entry.leaseExpiresAt = time.Time{}
	s.entries[key] = entry
	delete(s.claims, claimID)
	return nil
}

func (s *MemoryClaimStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *MemoryClaimStore) nextClaimID() string {
	s.nextID++
	return fmt.Sprintf("claim_%d", s.nextID)
}

func (s *MemoryClaimStore) evictExpiredLocked(now time.Time) {
	for key, entry := range s.entries {
		if entry.status != claimStatusComplete {
			continue
		}
		if entry.leaseExpiresAt.IsZero() || !now.Before(entry.leaseExpiresAt) {
			if entry.claimID != "" {
				delete(s.claims, entry.claimID)
			}
			delete(s.entries, key)
		}
	}
}

func trimAny(value any) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func processorInternal(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithTextCode(core.MessagingErrorInternal)
}

func processorBadInput(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithTextCode(core.MessagingErrorBadInput)
}

var _ ClaimStore = (*MemoryClaimStore)(nil)
