package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Service is the outbound-messaging facade: resolve an adapter, dispatch a
// send, reconcile inbound carrier callbacks onto the mapping ledger and the
// status-event timeline.
type Service struct {
	config          Config
	logger          Logger
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	secretProvider  SecretProvider
	secretCodec     SecretCodec
	registry        *AdapterRegistry
	resolver        *Resolver
	tenantStore     TenantStore
	credentialStore ChannelCredentialStore
	mappingLedger   MappingLedger
	statusSink      StatusEventSink
	transport       TransportAdapter
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("messaging", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("messaging"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewAdapterRegistry()
	}
	if builder.secretCodec == nil {
		builder.secretCodec = JSONSecretCodec{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			stores, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if stores != nil {
				if builder.tenantStore == nil {
					builder.tenantStore = stores.TenantStore()
				}
				if builder.credentialStore == nil {
					builder.credentialStore = stores.ChannelCredentialStore()
				}
				if builder.mappingLedger == nil {
					builder.mappingLedger = stores.MappingLedger()
				}
				if builder.statusSink == nil {
					builder.statusSink = stores.StatusEventStore()
				}
			}
		}
	}

	service := &Service{
		config:          finalConfig,
		logger:          logger,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		secretProvider:  builder.secretProvider,
		secretCodec:     builder.secretCodec,
		registry:        builder.registry,
		tenantStore:     builder.tenantStore,
		credentialStore: builder.credentialStore,
		mappingLedger:   builder.mappingLedger,
		statusSink:      builder.statusSink,
		transport:       builder.transport,
	}

	if service.tenantStore != nil && service.credentialStore != nil {
		resolver, resolverErr := NewResolver(ResolverDependencies{
			Tenants:     service.tenantStore,
			Credentials: service.credentialStore,
			Secrets:     service.secretProvider,
			Codec:       service.secretCodec,
			Registry:    service.registry,
			Ledger:      service.mappingLedger,
			Transport:   service.transport,
			Config:      finalConfig,
			Logger:      logger,
		})
		if resolverErr != nil {
			return nil, mapBuildError(builder.errorMapper, resolverErr)
		}
		service.resolver = resolver
	}

	return service, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Registry() *AdapterRegistry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Resolver() *Resolver {
	if s == nil {
		return nil
	}
	return s.resolver
}

func (s *Service) MappingLedger() MappingLedger {
	if s == nil {
		return nil
	}
	return s.mappingLedger
}

// SendMessage resolves the tenant's adapter and dispatches one send attempt.
// Resolution failures propagate as hard errors with no send attempted; every
// failure past resolution comes back as a value in SendResult so the calling
// pipeline owns retry policy.
func (s *Service) SendMessage(ctx context.Context, tenantID string, msg OutboundMessage) (SendResult, error) {
	if s == nil || s.resolver == nil {
		return SendResult{}, fmt.Errorf("core: messaging service is not configured for sends")
	}
	startedAt := time.Now().UTC()

	adapter, err := s.resolver.Resolve(ctx, tenantID, msg.Channel)
	if err != nil {
		mapped := s.mapError(err)
		s.logError(ctx, "send resolution failed", map[string]any{
			"tenant_id":  tenantID,
			"channel":    string(msg.Channel),
			"message_id": msg.ID,
			"error":      mapped.Error(),
		})
		return SendResult{}, mapped
	}

	result, err := adapter.Send(ctx, msg)
	if err != nil {
		result = SendResult{
			Success: false,
			Carrier: adapter.Carrier(),
			Status:  StatusFailed,
			Error:   err.Error(),
		}
	}
	fields := map[string]any{
		"tenant_id":          tenantID,
		"channel":            string(msg.Channel),
		"message_id":         msg.ID,
		"carrier":            string(result.Carrier),
		"carrier_message_id": result.CarrierMessageID,
		"status":             string(result.Status),
		"duration_ms":        time.Since(startedAt).Milliseconds(),
	}
	if result.Success {
		s.logInfo(ctx, "message dispatched", fields)
	} else {
		fields["error"] = result.Error
		s.logError(ctx, "message dispatch failed", fields)
	}
	return result, nil
}

// WebhookOutcome is the normalized result of one inbound callback. Dropped
// deliveries (bad signature, malformed payload, unknown carrier message id)
// report Status unknown with Error set; carriers retry, so dropping one
// delivery is preferable to crashing the receiver.
type WebhookOutcome struct {
	Event      WebhookEvent
	MessageID  string
	Reconciled bool
	Error      string
}

// HandleWebhook authenticates and normalizes one carrier callback, then ties
// it back to the originating message through the mapping ledger. It never
// panics past this boundary.
func (s *Service) HandleWebhook(ctx context.Context, tenantID string, channel Channel, req WebhookRequest) (WebhookOutcome, error) {
	if s == nil || s.resolver == nil || s.mappingLedger == nil || s.statusSink == nil {
		return WebhookOutcome{}, fmt.Errorf("core: messaging service is not configured for webhooks")
	}

	adapter, err := s.resolver.Resolve(ctx, tenantID, channel)
	if err != nil {
		return s.droppedWebhook(ctx, tenantID, channel, "webhook resolution failed", err), nil
	}

	event, err := adapter.ParseWebhook(ctx, req)
	if err != nil {
		return s.droppedWebhook(ctx, tenantID, channel, "webhook rejected", err), nil
	}

	mapping, err := s.mappingLedger.GetByCarrierMessageID(ctx, event.CarrierMessageID)
	if err != nil {
		return s.droppedWebhook(ctx, tenantID, channel, "webhook unmatched", err), nil
	}

	if err := s.mappingLedger.UpdateStatus(ctx, event.CarrierMessageID, event.EventType); err != nil {
		return s.droppedWebhook(ctx, tenantID, channel, "webhook ledger update failed", err), nil
	}

	statusEvent := StatusEvent{
		ID:               uuid.NewString(),
		CarrierMessageID: event.CarrierMessageID,
		Status:           event.Status,
		EventType:        event.EventType,
		OccurredAt:       event.OccurredAt,
		RawPayload:       event.Raw,
	}
	if err := s.statusSink.Append(ctx, statusEvent); err != nil {
		return s.droppedWebhook(ctx, tenantID, channel, "webhook event append failed", err), nil
	}

	s.logInfo(ctx, "webhook reconciled", map[string]any{
		"tenant_id":          tenantID,
		"channel":            string(channel),
		"carrier":            string(adapter.Carrier()),
		"carrier_message_id": event.CarrierMessageID,
		"message_id":         mapping.MessageID,
		"status":             string(event.Status),
		"event_type":         event.EventType,
	})
	return WebhookOutcome{
		Event:      event,
		MessageID:  mapping.MessageID,
		Reconciled: true,
	}, nil
}

// VerifyChannel runs the adapter's lightweight credential check; used by the
// channel-setup flow, never on the send path.
func (s *Service) VerifyChannel(ctx context.Context, tenantID string, channel Channel) (VerifyResult, error) {
	if s == nil || s.resolver == nil {
		return VerifyResult{}, fmt.Errorf("core: messaging service is not configured")
	}
	adapter, err := s.resolver.Resolve(ctx, tenantID, channel)
	if err != nil {
		return VerifyResult{}, s.mapError(err)
	}
	return adapter.Verify(ctx)
}

func (s *Service) CarrierHealth(ctx context.Context, tenantID string, channel Channel) (CarrierHealth, error) {
	if s == nil || s.resolver == nil {
		return CarrierHealth{}, fmt.Errorf("core: messaging service is not configured")
	}
	adapter, err := s.resolver.Resolve(ctx, tenantID, channel)
	if err != nil {
		return CarrierHealth{}, s.mapError(err)
	}
	return adapter.Status(ctx)
}

// Timeline returns the normalized status events for a carrier message id,
// ordered by occurrence time regardless of arrival order.
func (s *Service) Timeline(ctx context.Context, carrierMessageID string) ([]StatusEvent, error) {
	if s == nil || s.statusSink == nil {
		return nil, fmt.Errorf("core: messaging service has no status event store")
	}
	carrierMessageID = strings.TrimSpace(carrierMessageID)
	if carrierMessageID == "" {
		return nil, fmt.Errorf("core: carrier message id is required")
	}
	events, err := s.statusSink.List(ctx, carrierMessageID)
	if err != nil {
		return nil, s.mapError(err)
	}
	return SortStatusEvents(events), nil
}

func (s *Service) droppedWebhook(ctx context.Context, tenantID string, channel Channel, message string, cause error) WebhookOutcome {
	s.logError(ctx, message, map[string]any{
		"tenant_id": tenantID,
		"channel":   string(channel),
		"error":     cause.Error(),
	})
	return WebhookOutcome{
		Event: WebhookEvent{Status: StatusUnknown},
		Error: cause.Error(),
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s != nil && s.errorMapper != nil {
		if mapped := s.errorMapper(err); mapped != nil {
			return mapped
		}
	}
	return err
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper != nil {
		if mapped := mapper(err); mapped != nil {
			return mapped
		}
	}
	return err
}
