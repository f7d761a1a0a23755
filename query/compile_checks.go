package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/jigardalal/engageninja-messaging/core"
)

var (
	_ gocmd.Querier[TimelineMessage, []core.StatusEvent]                  = (*TimelineQuery)(nil)
	_ gocmd.Querier[MappingLookupMessage, core.MessageProviderMapping]    = (*MappingLookupQuery)(nil)
	_ gocmd.Querier[CarrierHealthMessage, core.CarrierHealth]             = (*CarrierHealthQuery)(nil)
	_ gocmd.Querier[ResolvedRoutesMessage, map[core.Channel]core.Carrier] = (*ResolvedRoutesQuery)(nil)
)
