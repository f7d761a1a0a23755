package query

import (
	"fmt"
	"strings"

	"github.com/jigardalal/engageninja-messaging/core"
)

const (
	TypeTimeline       = "messaging.query.timeline.load"
	TypeMappingLookup  = "messaging.query.mapping.lookup"
	TypeCarrierHealth  = "messaging.query.carrier.health"
	TypeResolvedRoutes = "messaging.query.routes.resolve"
)

type TimelineMessage struct {
	CarrierMessageID string
}

func (TimelineMessage) Type() string { return TypeTimeline }

func (m TimelineMessage) Validate() error {
	if strings.TrimSpace(m.CarrierMessageID) == "" {
		return fmt.Errorf("query: carrier message id is required")
	}
	return nil
}

// MappingLookupMessage resolves a mapping row either by the carrier-assigned
// id or by (message id, carrier). Exactly one of the two key shapes must be
// populated.
type MappingLookupMessage struct {
	CarrierMessageID string
	MessageID        string
	Carrier          core.Carrier
}

func (MappingLookupMessage) Type() string { return TypeMappingLookup }

func (m MappingLookupMessage) Validate() error {
	byCarrierID := strings.TrimSpace(m.CarrierMessageID) != ""
	byMessage := strings.TrimSpace(m.MessageID) != ""
	if byCarrierID == byMessage {
		return fmt.Errorf("query: exactly one of carrier message id or message id is required")
	}
	if byMessage && strings.TrimSpace(string(m.Carrier)) == "" {
		return fmt.Errorf("query: carrier is required for message id lookups")
	}
	return nil
}

type CarrierHealthMessage struct {
	TenantID string
	Channel  core.Channel
}

func (CarrierHealthMessage) Type() string { return TypeCarrierHealth }

func (m CarrierHealthMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return fmt.Errorf("query: tenant id is required")
	}
	if err := m.Channel.Validate(); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}

type ResolvedRoutesMessage struct {
	TenantID string
}

func (ResolvedRoutesMessage) Type() string { return TypeResolvedRoutes }

func (m ResolvedRoutesMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return fmt.Errorf("query: tenant id is required")
	}
	return nil
}
