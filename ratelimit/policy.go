// Package ratelimit tracks carrier backpressure signals (429s, Retry-After,
// X-RateLimit-* headers) so callers can stop dialing a throttled carrier
// before the carrier rejects them. It never delays or retries a send; a
// throttled bucket surfaces immediately as an error the caller decides about.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/jigardalal/engageninja-messaging/core"
)

var ErrStateNotFound = errors.New("ratelimit: state not found")

// Key identifies one throttle bucket. Carriers limit per account, so the
// tenant is part of the key; channel is included because some carriers (SMS
// vs WhatsApp senders) meter them separately.
type Key struct {
	Carrier  core.Carrier
	TenantID string
	Channel  core.Channel
}

type State struct {
	Key            Key
	Limit          int
	Remaining      int
	ResetAt        *time.Time
	RetryAfter     *time.Duration
	ThrottledUntil *time.Time
	LastStatus     int
	Attempts       int
	UpdatedAt      time.Time
}

type StateStore interface {
	Get(ctx context.Context, key Key) (State, error)
	Upsert(ctx context.Context, state State) error
}

type ThrottledError struct {
	Key        Key
	RetryAfter time.Duration
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf(
		"ratelimit: carrier %q throttled for tenant %q channel %q, retry in %s",
		e.Key.Carrier,
		e.Key.TenantID,
		e.Key.Channel,
		e.RetryAfter,
	)
}

func (e ThrottledError) ToMessagingError() *goerrors.Error {
	metadata := map[string]any{
		"carrier":   string(e.Key.Carrier),
		"tenant_id": e.Key.TenantID,
		"channel":   string(e.Key.Channel),
	}
	if e.RetryAfter > 0 {
		metadata["retry_after_ms"] = e.RetryAfter.Milliseconds()
	}
	return goerrors.New(e.Error(), goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(core.MessagingErrorCarrierThrottled).
		WithMetadata(metadata)
}

// AdaptivePolicy learns each bucket's throttle window from carrier responses.
// Carriers that advertise limits drive the window exactly; carriers that only
// return 429 get an exponential backoff window instead.
type AdaptivePolicy struct {
	Store          StateStore
	Now            func() time.Time
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewAdaptivePolicy(store StateStore) *AdaptivePolicy {
	return &AdaptivePolicy{
		Store:          store,
		Now:            func() time.Time { return time.Now().UTC() },
		InitialBackoff: time.Second,
		MaxBackoff:     time.Minute,
	}
}

// BeforeCall reports whether the bucket is currently throttled. A nil policy
// or store means no tracking and always allows the call.
func (p *AdaptivePolicy) BeforeCall(ctx context.Context, key Key) error {
	if p == nil || p.Store == nil {
		return nil
	}
	state, err := p.Store.Get(ctx, normalizeKey(key))
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil
		}
		return err
	}

	now := p.now()
	if until := state.ThrottledUntil; until != nil && now.Before(*until) {
		return ThrottledError{Key: state.Key, RetryAfter: until.Sub(now)}
	}
	if state.Remaining == 0 && state.ResetAt != nil && now.Before(*state.ResetAt) {
		return ThrottledError{Key: state.Key, RetryAfter: state.ResetAt.Sub(now)}
	}
	return nil
}

// AfterCall folds one carrier response into the bucket state.
func (p *AdaptivePolicy) AfterCall(ctx context.Context, key Key, res core.TransportResponse) error {
	if p == nil || p.Store == nil {
		return nil
	}
	key = normalizeKey(key)
	now := p.now()
	state, err := p.Store.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		return err
	}
	if errors.Is(err, ErrStateNotFound) {
		state = State{Key: key}
	}

	state.LastStatus = res.StatusCode
	state.UpdatedAt = now

	limit, hasLimit := parseHeaderInt(res.Headers, "x-ratelimit-limit")
	if hasLimit {
		state.Limit = limit
	}
	remaining, hasRemaining := parseHeaderInt(res.Headers, "x-ratelimit-remaining")
	if hasRemaining {
		state.Remaining = remaining
	}
	resetAt, hasResetAt := parseHeaderResetAt(res.Headers)
	if hasResetAt {
		state.ResetAt = &resetAt
	}

	retryAfter, hasRetryAfter := parseRetryAfter(res.Headers, now)
	if hasRetryAfter {
		state.RetryAfter = &retryAfter
	} else {
		state.RetryAfter = nil
	}

	if isThrottledResponse(res.StatusCode, state.Remaining, hasRemaining, hasResetAt, hasLimit, hasRetryAfter) {
		state.Attempts++
		delay := retryAfter
		if !hasRetryAfter {
			delay = p.nextBackoff(state.Attempts)
		}
		until := now.Add(delay)
		state.ThrottledUntil = &until
		return p.Store.Upsert(ctx, state)
	}

	state.Attempts = 0
	state.ThrottledUntil = nil
	return p.Store.Upsert(ctx, state)
}

func (p *AdaptivePolicy) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *AdaptivePolicy) nextBackoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	maximum := p.MaxBackoff
	if maximum <= 0 {
		maximum = time.Minute
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay <= 0 {
		return initial
	}
	if delay > maximum {
		return maximum
	}
	return delay
}

func isThrottledResponse(
	statusCode int,
	remaining int,
	hasRemaining bool,
	hasResetAt bool,
	hasLimit bool,
	hasRetryAfter bool,
) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	if statusCode >= 500 {
		return false
	}
	return remaining == 0 && (hasRemaining || hasResetAt || hasLimit || hasRetryAfter)
}

func parseRetryAfter(headers map[string]string, now time.Time) (time.Duration, bool) {
	raw := headerValue(headers, "retry-after")
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if retryAt, err := httpDate(raw); err == nil && retryAt.After(now) {
		return retryAt.Sub(now), true
	}
	return 0, false
}

func parseHeaderInt(headers map[string]string, key string) (int, bool) {
	value := headerValue(headers, key)
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func parseHeaderResetAt(headers map[string]string) (time.Time, bool) {
	value := headerValue(headers, "x-ratelimit-reset")
	if value == "" {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil || unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0).UTC(), true
}

func httpDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("ratelimit: empty date")
	}
	if parsed, err := time.Parse(time.RFC1123, value); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.Parse(time.RFC1123Z, value); err == nil {
		return parsed.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("ratelimit: invalid http date")
}

func headerValue(headers map[string]string, key string) string {
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func normalizeKey(key Key) Key {
	return Key{
		Carrier:  core.Carrier(strings.TrimSpace(strings.ToLower(string(key.Carrier)))),
		TenantID: strings.TrimSpace(key.TenantID),
		Channel:  core.Channel(strings.TrimSpace(strings.ToLower(string(key.Channel)))),
	}
}

type MemoryStateStore struct {
	mu    sync.RWMutex
	items map[string]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{items: map[string]State{}}
}

func (s *MemoryStateStore) Get(_ context.Context, key Key) (State, error) {
	if s == nil {
		return State{}, fmt.Errorf("ratelimit: state store is nil")
	}
	normalized := normalizeKey(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.items[stateKey(normalized)]
	if !ok {
		return State{}, ErrStateNotFound
	}
	return state, nil
}

func (s *MemoryStateStore) Upsert(_ context.Context, state State) error {
	if s == nil {
		return fmt.Errorf("ratelimit: state store is nil")
	}
	state.Key = normalizeKey(state.Key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[stateKey(state.Key)] = state
	return nil
}

func stateKey(key Key) string {
	return string(key.Carrier) + "|" + key.TenantID + "|" + string(key.Channel)
}
