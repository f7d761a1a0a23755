package messaging

import (
	"fmt"

	messagingcommand "github.com/jigardalal/engageninja-messaging/command"
	"github.com/jigardalal/engageninja-messaging/core"
	messagingquery "github.com/jigardalal/engageninja-messaging/query"
)

// CommandQueryService is the surface the facade exposes through command and
// query handlers. *core.Service satisfies it.
type CommandQueryService interface {
	messagingcommand.MutatingService
	messagingquery.TimelineReader
	messagingquery.CarrierHealthReader
}

type Commands struct {
	SendMessage   *messagingcommand.SendMessageCommand
	HandleWebhook *messagingcommand.HandleWebhookCommand
	VerifyChannel *messagingcommand.VerifyChannelCommand
}

type Queries struct {
	Timeline       *messagingquery.TimelineQuery
	MappingLookup  *messagingquery.MappingLookupQuery
	CarrierHealth  *messagingquery.CarrierHealthQuery
	ResolvedRoutes *messagingquery.ResolvedRoutesQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	mappingReader messagingquery.MappingReader
	routeResolver messagingquery.RouteResolver
}

// WithMappingReader overrides the ledger reader backing the mapping lookup
// query. Without it the facade pulls the ledger off the service itself.
func WithMappingReader(reader messagingquery.MappingReader) FacadeOption {
	return func(options *facadeOptions) {
		options.mappingReader = reader
	}
}

func WithRouteResolver(resolver messagingquery.RouteResolver) FacadeOption {
	return func(options *facadeOptions) {
		options.routeResolver = resolver
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("messaging: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	mappingReader := cfg.mappingReader
	if mappingReader == nil {
		mappingReader = resolveMappingReader(service)
	}
	routeResolver := cfg.routeResolver
	if routeResolver == nil {
		routeResolver = resolveRouteResolver(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		SendMessage:   messagingcommand.NewSendMessageCommand(service),
		HandleWebhook: messagingcommand.NewHandleWebhookCommand(service),
		VerifyChannel: messagingcommand.NewVerifyChannelCommand(service),
	}
	facade.queries = Queries{
		Timeline:       messagingquery.NewTimelineQuery(service),
		MappingLookup:  messagingquery.NewMappingLookupQuery(mappingReader),
		CarrierHealth:  messagingquery.NewCarrierHealthQuery(service),
		ResolvedRoutes: messagingquery.NewResolvedRoutesQuery(routeResolver),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveMappingReader(service CommandQueryService) messagingquery.MappingReader {
	if reader, ok := service.(messagingquery.MappingReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		MappingLedger() core.MappingLedger
	})
	if !ok {
		return nil
	}
	ledger := provider.MappingLedger()
	if ledger == nil {
		return nil
	}
	return ledger
}

func resolveRouteResolver(service CommandQueryService) messagingquery.RouteResolver {
	if resolver, ok := service.(messagingquery.RouteResolver); ok {
		return resolver
	}
	provider, ok := service.(interface {
		Resolver() *core.Resolver
	})
	if !ok {
		return nil
	}
	resolver := provider.Resolver()
	if resolver == nil {
		return nil
	}
	return resolver
}
