package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrTenantNotFound       = errors.New("core: tenant not found")
	ErrChannelNotConfigured = errors.New("core: channel not configured")
	ErrInvalidCredentials   = errors.New("core: invalid channel credentials")
	ErrCarrierUnsupported   = errors.New("core: carrier does not support channel")
	ErrMappingNotFound      = errors.New("core: carrier message mapping not found")
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

func (c Channel) Validate() error {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail:
		return nil
	}
	return fmt.Errorf("core: invalid channel %q", string(c))
}

// Channels returns every known channel, in stable order.
func Channels() []Channel {
	return []Channel{ChannelSMS, ChannelWhatsApp, ChannelEmail}
}

type Carrier string

const (
	CarrierTwilio Carrier = "twilio"
	CarrierSES    Carrier = "ses"
	CarrierDemo   Carrier = "demo"
)

func (c Carrier) Validate() error {
	switch c {
	case CarrierTwilio, CarrierSES, CarrierDemo:
		return nil
	}
	return fmt.Errorf("core: invalid carrier %q", string(c))
}

type NormalizedStatus string

const (
	StatusSent      NormalizedStatus = "sent"
	StatusDelivered NormalizedStatus = "delivered"
	StatusRead      NormalizedStatus = "read"
	StatusFailed    NormalizedStatus = "failed"
	StatusUnknown   NormalizedStatus = "unknown"
)

type Tenant struct {
	ID        string
	Name      string
	Demo      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChannelCredential is one carrier configuration row per (tenant, channel).
// The secret blob stays encrypted until the resolver hands it to the
// configured SecretProvider; Config carries the non-secret carrier settings
// (sender id, messaging service SID, configuration set, webhook URL).
type ChannelCredential struct {
	ID                string
	TenantID          string
	Channel           Channel
	Carrier           Carrier
	EncryptedSecret   []byte
	Config            map[string]any
	Enabled           bool
	Verified          bool
	VerificationError string
	VerifiedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (c ChannelCredential) ConfigString(key string) string {
	if len(c.Config) == 0 {
		return ""
	}
	value, ok := c.Config[key]
	if !ok {
		return ""
	}
	str, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(str)
}

// OutboundMessage is the send-entry-point shape. The message record itself is
// owned by the campaign subsystem; this layer only reads identifying fields.
type OutboundMessage struct {
	ID             string
	Channel        Channel
	Recipient      string
	Subject        string
	Body           string
	SenderOverride string
}

// MessageProviderMapping joins an internal message to the id the carrier
// assigned on accept. CarrierMessageID is immutable once written and globally
// unique; it is the sole key a webhook can be reconciled by.
type MessageProviderMapping struct {
	ID                string
	MessageID         string
	Channel           Channel
	Carrier           Carrier
	CarrierMessageID  string
	LastCarrierStatus string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StatusEvent is one normalized delivery event. Events are appended, never
// overwritten; whoever reads the timeline orders by OccurredAt, not arrival.
type StatusEvent struct {
	ID               string
	CarrierMessageID string
	Status           NormalizedStatus
	EventType        string
	OccurredAt       time.Time
	RawPayload       map[string]any
	CreatedAt        time.Time
}

// SortStatusEvents orders a timeline by occurrence time. Ties keep insertion
// order so duplicate deliveries stay adjacent.
func SortStatusEvents(events []StatusEvent) []StatusEvent {
	out := append([]StatusEvent(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out
}
