package query

import (
	"context"
	"strings"

	"github.com/jigardalal/engageninja-messaging/core"
)

type TimelineReader interface {
	Timeline(ctx context.Context, carrierMessageID string) ([]core.StatusEvent, error)
}

type MappingReader interface {
	GetByCarrierMessageID(ctx context.Context, carrierMessageID string) (core.MessageProviderMapping, error)
	GetByMessage(ctx context.Context, messageID string, carrier core.Carrier) (core.MessageProviderMapping, error)
}

type CarrierHealthReader interface {
	CarrierHealth(ctx context.Context, tenantID string, channel core.Channel) (core.CarrierHealth, error)
}

type RouteResolver interface {
	ResolveAll(ctx context.Context, tenantID string) (map[core.Channel]core.Adapter, error)
}

type TimelineQuery struct {
	reader TimelineReader
}

func NewTimelineQuery(reader TimelineReader) *TimelineQuery {
	return &TimelineQuery{reader: reader}
}

func (q *TimelineQuery) Query(ctx context.Context, msg TimelineMessage) ([]core.StatusEvent, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: timeline reader is required")
	}
	return q.reader.Timeline(ctx, msg.CarrierMessageID)
}

type MappingLookupQuery struct {
	reader MappingReader
}

func NewMappingLookupQuery(reader MappingReader) *MappingLookupQuery {
	return &MappingLookupQuery{reader: reader}
}

func (q *MappingLookupQuery) Query(ctx context.Context, msg MappingLookupMessage) (core.MessageProviderMapping, error) {
	if q == nil || q.reader == nil {
		return core.MessageProviderMapping{}, queryDependencyError("query: mapping reader is required")
	}
	if strings.TrimSpace(msg.CarrierMessageID) != "" {
		return q.reader.GetByCarrierMessageID(ctx, msg.CarrierMessageID)
	}
	return q.reader.GetByMessage(ctx, msg.MessageID, msg.Carrier)
}

type CarrierHealthQuery struct {
	reader CarrierHealthReader
}

func NewCarrierHealthQuery(reader CarrierHealthReader) *CarrierHealthQuery {
	return &CarrierHealthQuery{reader: reader}
}

func (q *CarrierHealthQuery) Query(ctx context.Context, msg CarrierHealthMessage) (core.CarrierHealth, error) {
	if q == nil || q.reader == nil {
		return core.CarrierHealth{}, queryDependencyError("query: carrier health reader is required")
	}
	return q.reader.CarrierHealth(ctx, msg.TenantID, msg.Channel)
}

// ResolvedRoutesQuery reports which channels a tenant can currently send on.
// The result omits channels whose configuration failed to resolve.
type ResolvedRoutesQuery struct {
	resolver RouteResolver
}

func NewResolvedRoutesQuery(resolver RouteResolver) *ResolvedRoutesQuery {
	return &ResolvedRoutesQuery{resolver: resolver}
}

func (q *ResolvedRoutesQuery) Query(ctx context.Context, msg ResolvedRoutesMessage) (map[core.Channel]core.Carrier, error) {
	if q == nil || q.resolver == nil {
		return nil, queryDependencyError("query: route resolver is required")
	}
	adapters, err := q.resolver.ResolveAll(ctx, msg.TenantID)
	if err != nil {
		return nil, err
	}
	routes := make(map[core.Channel]core.Carrier, len(adapters))
	for channel, adapter := range adapters {
		routes[channel] = adapter.Carrier()
	}
	return routes, nil
}
