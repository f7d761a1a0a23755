package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig     Config
	logger            Logger
	loggerProvider    LoggerProvider
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	secretProvider    SecretProvider
	secretCodec       SecretCodec
	registry          *AdapterRegistry
	tenantStore       TenantStore
	credentialStore   ChannelCredentialStore
	mappingLedger     MappingLedger
	statusSink        StatusEventSink
	transport         TransportAdapter
	persistenceClient any
	repositoryFactory any
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithSecretProvider(provider SecretProvider) Option {
	return func(b *serviceBuilder) {
		b.secretProvider = provider
	}
}

func WithSecretCodec(codec SecretCodec) Option {
	return func(b *serviceBuilder) {
		b.secretCodec = codec
	}
}

func WithRegistry(registry *AdapterRegistry) Option {
	return func(b *serviceBuilder) {
		b.registry = registry
	}
}

func WithTenantStore(store TenantStore) Option {
	return func(b *serviceBuilder) {
		b.tenantStore = store
	}
}

func WithChannelCredentialStore(store ChannelCredentialStore) Option {
	return func(b *serviceBuilder) {
		b.credentialStore = store
	}
}

func WithMappingLedger(ledger MappingLedger) Option {
	return func(b *serviceBuilder) {
		b.mappingLedger = ledger
	}
}

func WithStatusEventSink(sink StatusEventSink) Option {
	return func(b *serviceBuilder) {
		b.statusSink = sink
	}
}

func WithTransport(adapter TransportAdapter) Option {
	return func(b *serviceBuilder) {
		b.transport = adapter
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("messaging", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		registry:        NewAdapterRegistry(),
		secretCodec:     JSONSecretCodec{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return messagingErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	encryption := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Encryption.Key) != "" {
		encryption["key"] = cfg.Encryption.Key
	}
	if includeZero || strings.TrimSpace(cfg.Encryption.KeyID) != "" {
		encryption["key_id"] = cfg.Encryption.KeyID
	}
	if includeZero || cfg.Encryption.AllowLegacy {
		encryption["allow_legacy"] = cfg.Encryption.AllowLegacy
	}
	if len(encryption) > 0 {
		layer["encryption"] = encryption
	}

	carriers := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Carriers.TwilioBaseURL) != "" {
		carriers["twilio_base_url"] = cfg.Carriers.TwilioBaseURL
	}
	if includeZero || strings.TrimSpace(cfg.Carriers.SESBaseURL) != "" {
		carriers["ses_base_url"] = cfg.Carriers.SESBaseURL
	}
	if includeZero || strings.TrimSpace(cfg.Carriers.MessagingServiceSID) != "" {
		carriers["messaging_service_sid"] = cfg.Carriers.MessagingServiceSID
	}
	if includeZero || strings.TrimSpace(cfg.Carriers.ConfigurationSet) != "" {
		carriers["configuration_set"] = cfg.Carriers.ConfigurationSet
	}
	if len(carriers) > 0 {
		layer["carriers"] = carriers
	}
	return layer
}
