package ratelimit

import (
	"context"
	"errors"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/jigardalal/engageninja-messaging/core"
)

type contextKey struct{}

// ContextWithKey attaches the throttle bucket for the carrier call about to
// be made. Callers that know the tenant and channel set this before handing
// the context to the adapter.
func ContextWithKey(ctx context.Context, key Key) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, normalizeKey(key))
}

func KeyFromContext(ctx context.Context) (Key, bool) {
	if ctx == nil {
		return Key{}, false
	}
	key, ok := ctx.Value(contextKey{}).(Key)
	return key, ok
}

// Transport decorates a carrier transport with backpressure tracking. Calls
// against a throttled bucket fail fast without reaching the carrier; every
// response that does go out feeds the policy. Requests with no resolvable
// bucket pass through untracked.
type Transport struct {
	Next    core.TransportAdapter
	Policy  *AdaptivePolicy
	KeyFunc func(ctx context.Context, req core.TransportRequest) (Key, bool)
}

func NewTransport(next core.TransportAdapter, policy *AdaptivePolicy) *Transport {
	return &Transport{
		Next:    next,
		Policy:  policy,
		KeyFunc: DefaultKeyFunc,
	}
}

func (t *Transport) Kind() string {
	if t == nil || t.Next == nil {
		return ""
	}
	return t.Next.Kind()
}

func (t *Transport) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if t == nil || t.Next == nil {
		return core.TransportResponse{}, goerrors.New(
			"ratelimit: transport requires a next adapter",
			goerrors.CategoryInternal,
		).WithTextCode(core.MessagingErrorInternal)
	}

	keyFunc := t.KeyFunc
	if keyFunc == nil {
		keyFunc = DefaultKeyFunc
	}
	key, tracked := keyFunc(ctx, req)
	if !tracked || t.Policy == nil {
		return t.Next.Do(ctx, req)
	}

	if err := t.Policy.BeforeCall(ctx, key); err != nil {
		var throttled ThrottledError
		if errors.As(err, &throttled) {
			return core.TransportResponse{}, throttled.ToMessagingError()
		}
		return core.TransportResponse{}, err
	}

	res, err := t.Next.Do(ctx, req)
	if err != nil {
		return res, err
	}
	if afterErr := t.Policy.AfterCall(ctx, key, res); afterErr != nil {
		return res, afterErr
	}
	return res, nil
}

// DefaultKeyFunc prefers an explicit bucket from the context and otherwise
// infers the carrier from the request host. Host inference yields an
// untenanted bucket, which still catches account-wide throttles.
func DefaultKeyFunc(ctx context.Context, req core.TransportRequest) (Key, bool) {
	if key, ok := KeyFromContext(ctx); ok {
		return key, true
	}
	carrier, ok := carrierForURL(req.URL)
	if !ok {
		return Key{}, false
	}
	return Key{Carrier: carrier}, true
}

func carrierForURL(rawURL string) (core.Carrier, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	switch {
	case host == "":
		return "", false
	case strings.HasSuffix(host, ".twilio.com"):
		return core.CarrierTwilio, true
	case strings.HasSuffix(host, ".amazonaws.com"):
		return core.CarrierSES, true
	}
	return "", false
}

var _ core.TransportAdapter = (*Transport)(nil)
