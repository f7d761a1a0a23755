package sqlstore

import (
	"github.com/jigardalal/engageninja-messaging/core"
)

func (r *tenantRecord) toDomain() core.Tenant {
	if r == nil {
		return core.Tenant{}
	}
	return core.Tenant{
		ID:        r.ID,
		Name:      r.Name,
		Demo:      r.Demo,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *channelCredentialRecord) toDomain() core.ChannelCredential {
	if r == nil {
		return core.ChannelCredential{}
	}
	return core.ChannelCredential{
		ID:                r.ID,
		TenantID:          r.TenantID,
		Channel:           core.Channel(r.Channel),
		Carrier:           core.Carrier(r.Carrier),
		EncryptedSecret:   append([]byte(nil), r.EncryptedSecret...),
		Config:            cloneConfig(r.Config),
		Enabled:           r.Enabled,
		Verified:          r.Verified,
		VerificationError: r.VerificationError,
		VerifiedAt:        r.VerifiedAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (r *messageProviderMappingRecord) toDomain() core.MessageProviderMapping {
	if r == nil {
		return core.MessageProviderMapping{}
	}
	return core.MessageProviderMapping{
		ID:                r.ID,
		MessageID:         r.MessageID,
		Channel:           core.Channel(r.Channel),
		Carrier:           core.Carrier(r.Carrier),
		CarrierMessageID:  r.CarrierMessageID,
		LastCarrierStatus: r.LastCarrierStatus,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func newMappingRecord(mapping core.MessageProviderMapping) *messageProviderMappingRecord {
	return &messageProviderMappingRecord{
		ID:                mapping.ID,
		MessageID:         mapping.MessageID,
		Channel:           string(mapping.Channel),
		Carrier:           string(mapping.Carrier),
		CarrierMessageID:  mapping.CarrierMessageID,
		LastCarrierStatus: mapping.LastCarrierStatus,
		CreatedAt:         mapping.CreatedAt,
		UpdatedAt:         mapping.UpdatedAt,
	}
}

func (r *statusEventRecord) toDomain() core.StatusEvent {
	if r == nil {
		return core.StatusEvent{}
	}
	return core.StatusEvent{
		ID:               r.ID,
		CarrierMessageID: r.CarrierMessageID,
		Status:           core.NormalizedStatus(r.Status),
		EventType:        r.EventType,
		OccurredAt:       r.OccurredAt,
		RawPayload:       cloneConfig(r.RawPayload),
		CreatedAt:        r.CreatedAt,
	}
}

func newStatusEventRecord(event core.StatusEvent) *statusEventRecord {
	return &statusEventRecord{
		ID:               event.ID,
		CarrierMessageID: event.CarrierMessageID,
		Status:           string(event.Status),
		EventType:        event.EventType,
		OccurredAt:       event.OccurredAt,
		RawPayload:       cloneConfig(event.RawPayload),
		CreatedAt:        event.CreatedAt,
	}
}

func cloneConfig(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
