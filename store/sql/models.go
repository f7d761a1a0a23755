package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type tenantRecord struct {
	bun.BaseModel `bun:"table:tenants,alias:t"`

	ID        string     `bun:"id,pk"`
	Name      string     `bun:"name,notnull"`
	Demo      bool       `bun:"demo,notnull"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete"`
}

// channelCredentialRecord holds one carrier configuration per (tenant,
// channel); the pair carries a unique index so resolution is always a single
// row.
type channelCredentialRecord struct {
	bun.BaseModel `bun:"table:channel_credentials,alias:cc"`

	ID                string         `bun:"id,pk"`
	TenantID          string         `bun:"tenant_id,notnull,unique:ux_channel_credentials_tenant_channel"`
	Channel           string         `bun:"channel,notnull,unique:ux_channel_credentials_tenant_channel"`
	Carrier           string         `bun:"carrier,notnull"`
	EncryptedSecret   []byte         `bun:"encrypted_secret"`
	Config            map[string]any `bun:"config,type:jsonb"`
	Enabled           bool           `bun:"enabled,notnull"`
	Verified          bool           `bun:"verified,notnull"`
	VerificationError string         `bun:"verification_error"`
	VerifiedAt        *time.Time     `bun:"verified_at,nullzero"`
	CreatedAt         time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// messageProviderMappingRecord joins internal message ids to carrier message
// ids. Uniqueness holds both ways: one row per (message, carrier) and a
// global unique carrier message id, so webhook lookups are unambiguous.
type messageProviderMappingRecord struct {
	bun.BaseModel `bun:"table:message_provider_mappings,alias:mpm"`

	ID                string    `bun:"id,pk"`
	MessageID         string    `bun:"message_id,notnull,unique:ux_message_provider_mappings_message_carrier"`
	Channel           string    `bun:"channel,notnull"`
	Carrier           string    `bun:"carrier,notnull,unique:ux_message_provider_mappings_message_carrier"`
	CarrierMessageID  string    `bun:"carrier_message_id,notnull,unique"`
	LastCarrierStatus string    `bun:"last_carrier_status"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// statusEventRecord is append-only; rows are never updated or deleted by this
// layer.
type statusEventRecord struct {
	bun.BaseModel `bun:"table:message_status_events,alias:mse"`

	ID               string         `bun:"id,pk"`
	CarrierMessageID string         `bun:"carrier_message_id,notnull"`
	Status           string         `bun:"status,notnull"`
	EventType        string         `bun:"event_type"`
	OccurredAt       time.Time      `bun:"occurred_at,notnull"`
	RawPayload       map[string]any `bun:"raw_payload,type:jsonb"`
	CreatedAt        time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
