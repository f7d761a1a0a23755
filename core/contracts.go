package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// SendResult is the normalized outcome of a single send attempt. Send is a
// single-attempt, fail-fast boundary: retry policy belongs to the pipeline
// that called it.
type SendResult struct {
	Success          bool
	Carrier          Carrier
	CarrierMessageID string
	Status           NormalizedStatus
	Demo             bool
	Error            string
	Metadata         map[string]any
}

type VerifyResult struct {
	Success bool
	Details map[string]any
}

// WebhookRequest carries the exact inbound callback bytes. Body must be the
// raw request body, not a re-serialized copy: Twilio-style signatures are
// computed over the posted form fields and the full callback URL.
type WebhookRequest struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

type WebhookEvent struct {
	CarrierMessageID string
	Status           NormalizedStatus
	EventType        string
	OccurredAt       time.Time
	Raw              map[string]any
}

type CarrierHealth struct {
	Status  string
	Metrics map[string]any
}

// Adapter is the uniform capability contract every carrier implements.
// Channels() is a static declaration consumed by the registry's compatibility
// table, not a runtime probe.
type Adapter interface {
	Carrier() Carrier
	Channels() []Channel

	Send(ctx context.Context, msg OutboundMessage) (SendResult, error)
	Verify(ctx context.Context) (VerifyResult, error)
	ParseWebhook(ctx context.Context, req WebhookRequest) (WebhookEvent, error)
	Status(ctx context.Context) (CarrierHealth, error)
}

type TenantStore interface {
	Get(ctx context.Context, id string) (Tenant, error)
}

// ChannelCredentialStore is read-only to this layer; rows are created and
// updated by the channel-setup flow.
type ChannelCredentialStore interface {
	GetByTenantChannel(ctx context.Context, tenantID string, channel Channel) (ChannelCredential, error)
}

// MappingLedger is the join table between carrier message ids and internal
// messages. Create must happen before a send returns success so a webhook
// arriving immediately after can already be matched.
type MappingLedger interface {
	Create(ctx context.Context, mapping MessageProviderMapping) (MessageProviderMapping, error)
	GetByCarrierMessageID(ctx context.Context, carrierMessageID string) (MessageProviderMapping, error)
	GetByMessage(ctx context.Context, messageID string, carrier Carrier) (MessageProviderMapping, error)
	UpdateStatus(ctx context.Context, carrierMessageID string, rawStatus string) error
}

// StatusEventSink receives normalized delivery events. Appends are never
// collapsed into a current-status field; out-of-order arrival is resolved at
// read time by ordering on OccurredAt.
type StatusEventSink interface {
	Append(ctx context.Context, event StatusEvent) error
	List(ctx context.Context, carrierMessageID string) ([]StatusEvent, error)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type TransportRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
	Timeout time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// TransportAdapter carries every carrier API call; adapters never hold an
// http.Client directly so tests can script responses.
type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type StoreProvider interface {
	TenantStore() TenantStore
	ChannelCredentialStore() ChannelCredentialStore
	MappingLedger() MappingLedger
	StatusEventStore() StatusEventSink
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
