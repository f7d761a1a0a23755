package core

import (
	"context"
	"fmt"
	"strings"
)

// Resolver decides which adapter serves a (tenant, channel) pair: demo
// tenants always get the demo carrier, everyone else goes through the
// credential store, decryption, and the registry's compatibility table.
type Resolver struct {
	tenants     TenantStore
	credentials ChannelCredentialStore
	secrets     SecretProvider
	codec       SecretCodec
	registry    *AdapterRegistry
	ledger      MappingLedger
	transport   TransportAdapter
	config      Config
	logger      Logger
}

type ResolverDependencies struct {
	Tenants     TenantStore
	Credentials ChannelCredentialStore
	Secrets     SecretProvider
	Codec       SecretCodec
	Registry    *AdapterRegistry
	Ledger      MappingLedger
	Transport   TransportAdapter
	Config      Config
	Logger      Logger
}

func NewResolver(deps ResolverDependencies) (*Resolver, error) {
	if deps.Tenants == nil {
		return nil, fmt.Errorf("core: resolver requires a tenant store")
	}
	if deps.Credentials == nil {
		return nil, fmt.Errorf("core: resolver requires a channel credential store")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("core: resolver requires an adapter registry")
	}
	codec := deps.Codec
	if codec == nil {
		codec = JSONSecretCodec{}
	}
	return &Resolver{
		tenants:     deps.Tenants,
		credentials: deps.Credentials,
		secrets:     deps.Secrets,
		codec:       codec,
		registry:    deps.Registry,
		ledger:      deps.Ledger,
		transport:   deps.Transport,
		config:      deps.Config,
		logger:      deps.Logger,
	}, nil
}

func (r *Resolver) Resolve(ctx context.Context, tenantID string, channel Channel) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("core: resolver is nil")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, fmt.Errorf("core: tenant id is required")
	}
	if err := channel.Validate(); err != nil {
		return nil, err
	}

	tenant, err := r.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	actx := AdapterContext{
		Tenant:    tenant,
		Channel:   channel,
		Config:    r.config,
		Transport: r.transport,
		Ledger:    r.ledger,
		Logger:    r.logger,
	}

	// Demo tenants skip the credential table entirely, even when rows exist.
	if tenant.Demo {
		return r.registry.Build(CarrierDemo, channel, actx)
	}

	credential, err := r.credentials.GetByTenantChannel(ctx, tenantID, channel)
	if err != nil {
		return nil, err
	}
	if !credential.Enabled {
		return nil, fmt.Errorf("%w: channel %q is disabled for tenant %q",
			ErrChannelNotConfigured, channel, tenantID)
	}

	secret, err := r.decryptSecret(ctx, credential)
	if err != nil {
		return nil, err
	}
	actx.Credential = credential
	actx.Secret = secret

	return r.registry.Build(credential.Carrier, channel, actx)
}

// ResolveAll attempts every known channel and returns the subset that
// resolved. Per-channel failures are expected for unconfigured channels and
// are deliberately swallowed, not surfaced.
func (r *Resolver) ResolveAll(ctx context.Context, tenantID string) (map[Channel]Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("core: resolver is nil")
	}
	resolved := make(map[Channel]Adapter)
	for _, channel := range Channels() {
		adapter, err := r.Resolve(ctx, tenantID, channel)
		if err != nil {
			if r.logger != nil {
				r.logger.Debug("channel resolution skipped",
					"tenant_id", tenantID,
					"channel", string(channel),
					"error", err.Error(),
				)
			}
			continue
		}
		resolved[channel] = adapter
	}
	return resolved, nil
}

func (r *Resolver) decryptSecret(ctx context.Context, credential ChannelCredential) (CarrierSecret, error) {
	// Demo rows never reach this path; a missing blob on a real carrier row is
	// a configuration defect, not a transport condition.
	if len(credential.EncryptedSecret) == 0 {
		return CarrierSecret{}, fmt.Errorf("%w: credential secret blob is empty", ErrInvalidCredentials)
	}
	if r.secrets == nil {
		return CarrierSecret{}, fmt.Errorf("core: resolver requires a secret provider")
	}
	plaintext, err := r.secrets.Decrypt(ctx, credential.EncryptedSecret)
	if err != nil {
		return CarrierSecret{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	secret, err := r.codec.Decode(plaintext)
	if err == nil {
		return secret, nil
	}
	// Rows written before the structured payload hold a bare token.
	legacy, legacyErr := (LegacyTokenSecretCodec{}).Decode(plaintext)
	if legacyErr != nil {
		return CarrierSecret{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return legacy, nil
}
