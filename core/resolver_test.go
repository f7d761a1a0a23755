package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jigardalal/engageninja-messaging/core"
	"github.com/jigardalal/engageninja-messaging/providers/demo"
	"github.com/jigardalal/engageninja-messaging/providers/devkit"
	"github.com/jigardalal/engageninja-messaging/providers/ses"
	"github.com/jigardalal/engageninja-messaging/providers/twilio"
	"github.com/jigardalal/engageninja-messaging/security"
)

func newTestRegistry(t *testing.T) *core.AdapterRegistry {
	t.Helper()
	registry := core.NewAdapterRegistry()
	if err := twilio.Register(registry); err != nil {
		t.Fatalf("register twilio: %v", err)
	}
	if err := ses.Register(registry); err != nil {
		t.Fatalf("register ses: %v", err)
	}
	if err := demo.Register(registry); err != nil {
		t.Fatalf("register demo: %v", err)
	}
	return registry
}

func newTestSecretProvider(t *testing.T) core.SecretProvider {
	t.Helper()
	provider, err := security.NewAppKeySecretProviderFromString("resolver-test-key")
	if err != nil {
		t.Fatalf("secret provider: %v", err)
	}
	return provider
}

func encryptSecret(t *testing.T, provider core.SecretProvider, secret core.CarrierSecret) []byte {
	t.Helper()
	blob, err := devkit.EncodeSecret(context.Background(), provider, secret)
	if err != nil {
		t.Fatalf("encrypt secret: %v", err)
	}
	return blob
}

func newTestResolver(t *testing.T, tenants *devkit.MemoryTenantStore, credentials *devkit.MemoryCredentialStore, secrets core.SecretProvider) *core.Resolver {
	t.Helper()
	resolver, err := core.NewResolver(core.ResolverDependencies{
		Tenants:     tenants,
		Credentials: credentials,
		Secrets:     secrets,
		Registry:    newTestRegistry(t),
		Ledger:      devkit.NewMemoryMappingLedger(),
		Transport:   devkit.NewFakeTransportAdapter("rest"),
		Config:      core.DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

func TestResolverDemoTenantBypassesCredentials(t *testing.T) {
	secrets := newTestSecretProvider(t)
	tenants := devkit.NewMemoryTenantStore(core.Tenant{ID: "t-demo", Name: "Demo Co", Demo: true})
	// A conflicting real-carrier row must not matter for a demo tenant.
	credentials := devkit.NewMemoryCredentialStore(core.ChannelCredential{
		TenantID: "t-demo",
		Channel:  core.ChannelSMS,
		Carrier:  core.CarrierTwilio,
		Enabled:  true,
		EncryptedSecret: encryptSecret(t, secrets, core.CarrierSecret{
			AccountSID: "AC1", AuthToken: "tok",
		}),
	})
	resolver := newTestResolver(t, tenants, credentials, secrets)

	for _, channel := range core.Channels() {
		adapter, err := resolver.Resolve(context.Background(), "t-demo", channel)
		if err != nil {
			t.Fatalf("resolve %s: %v", channel, err)
		}
		if adapter.Carrier() != core.CarrierDemo {
			t.Fatalf("expected demo adapter for %s, got %s", channel, adapter.Carrier())
		}
	}
}

func TestResolverUnknownTenant(t *testing.T) {
	secrets := newTestSecretProvider(t)
	resolver := newTestResolver(t, devkit.NewMemoryTenantStore(), devkit.NewMemoryCredentialStore(), secrets)

	_, err := resolver.Resolve(context.Background(), "missing", core.ChannelSMS)
	if !errors.Is(err, core.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestResolverChannelNotConfigured(t *testing.T) {
	secrets := newTestSecretProvider(t)
	tenants := devkit.NewMemoryTenantStore(core.Tenant{ID: "t-1", Name: "Acme"})
	resolver := newTestResolver(t, tenants, devkit.NewMemoryCredentialStore(), secrets)

	_, err := resolver.Resolve(context.Background(), "t-1", core.ChannelSMS)
	if !errors.Is(err, core.ErrChannelNotConfigured) {
		t.Fatalf("expected ErrChannelNotConfigured, got %v", err)
	}
}

func TestResolverDisabledCredentialRow(t *testing.T) {
	secrets := newTestSecretProvider(t)
	tenants := devkit.NewMemoryTenantStore(core.Tenant{ID: "t-1", Name: "Acme"})
	credentials := devkit.NewMemoryCredentialStore(core.ChannelCredential{
		TenantID: "t-1",
		Channel:  core.ChannelSMS,
		Carrier:  core.CarrierTwilio,
		Enabled:  false,
		EncryptedSecret: encryptSecret(t, secrets, core.CarrierSecret{
			AccountSID: "AC1", AuthToken: "tok",
		}),
	})
	resolver := newTestResolver(t, tenants, credentials, secrets)

	_, err := resolver.Resolve(context.Background(), "t-1", core.ChannelSMS)
	if !errors.Is(err, core.ErrChannelNotConfigured) {
		t.Fatalf("expected ErrChannelNotConfigured for disabled row, got %v", err)
	}
}

func TestResolverInvalidCredentialBlobs(t *testing.T) {
	secrets := newTestSecretProvider(t)
	tenants := devkit.NewMemoryTenantStore(core.Tenant{ID: "t-1", Name: "Acme"})
	credentials := devkit.NewMemoryCredentialStore(
		core.ChannelCredential{
			TenantID: "t-1",
			Channel:  core.ChannelSMS,
			Carrier:  core.CarrierTwilio,
			Enabled:  true,
		},
		core.ChannelCredential{
			TenantID:        "t-1",
			Channel:         core.ChannelEmail,
			Carrier:         core.CarrierSES,
			Enabled:         true,
			EncryptedSecret: []byte("definitely-not-an-envelope"),
		},
	)
	resolver := newTestResolver(t, tenants, credentials, secrets)

	_, err := resolver.Resolve(context.Background(), "t-1", core.ChannelSMS)
	if !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty blob, got %v", err)
	}

	_, err = resolver.Resolve(context.Background(), "t-1", core.ChannelEmail)
	if !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for undecryptable blob, got %v", err)
	}
}

func TestResolverRejectsCarrierChannelMismatch(t *testing.T) {
	secrets := newTestSecretProvider(t)
	tenants := devkit.NewMemoryTenantStore(core.Tenant{ID: "t-1", Name: "Acme"})
	// An email-only carrier stored against the sms channel.
	credentials := devkit.NewMemoryCredentialStore(core.ChannelCredential{
		TenantID: "t-1",
		Channel:  core.ChannelSMS,
		Carrier:  core.CarrierSES,
		Enabled:  true,
		EncryptedSecret: encryptSecret(t, secrets, core.CarrierSecret{
			AccessKeyID: "AKIA1", SecretAccessKey: "sk", Region: "us-east-1",
		}),
	})
	resolver := newTestResolver(t, tenants, credentials, secrets)

	_, err := resolver.Resolve(context.Background(), "t-1", core.ChannelSMS)
	if !errors.Is(err, core.ErrCarrierUnsupported) {
		t.Fatalf("expected ErrCarrierUnsupported, got %v", err)
	}
}

func TestResolverResolvesConfiguredCarrier(t *testing.T) {
	secrets := newTestSecretProvider(t)
	tenants := devkit.NewMemoryTenantStore(core.Tenant{ID: "t-1", Name: "Acme"})
	credentials := devkit.NewMemoryCredentialStore(core.ChannelCredential{
		TenantID: "t-1",
		Channel:  core.ChannelSMS,
		Carrier:  core.CarrierTwilio,
		Enabled:  true,
		Config:   map[string]any{"from_number": "+15550001111"},
		EncryptedSecret: encryptSecret(t, secrets, core.CarrierSecret{
			AccountSID: "AC00000000000000000000000000000001",
			AuthToken:  "auth-token",
		}),
	})
	resolver := newTestResolver(t, tenants, credentials, secrets)

	adapter, err := resolver.Resolve(context.Background(), "t-1", core.ChannelSMS)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if adapter.Carrier() != core.CarrierTwilio {
		t.Fatalf("expected twilio adapter, got %s", adapter.Carrier())
	}
}

func TestResolveAllReturnsOnlyConfiguredChannels(t *testing.T) {
	secrets := newTestSecretProvider(t)
	tenants := devkit.NewMemoryTenantStore(core.Tenant{ID: "t-1", Name: "Acme"})
	credentials := devkit.NewMemoryCredentialStore(
		core.ChannelCredential{
			TenantID: "t-1",
			Channel:  core.ChannelSMS,
			Carrier:  core.CarrierTwilio,
			Enabled:  true,
			EncryptedSecret: encryptSecret(t, secrets, core.CarrierSecret{
				AccountSID: "AC1", AuthToken: "tok",
			}),
		},
		core.ChannelCredential{
			TenantID: "t-1",
			Channel:  core.ChannelEmail,
			Carrier:  core.CarrierSES,
			Enabled:  true,
			EncryptedSecret: encryptSecret(t, secrets, core.CarrierSecret{
				AccessKeyID: "AKIA1", SecretAccessKey: "sk", Region: "us-east-1",
			}),
		},
	)
	resolver := newTestResolver(t, tenants, credentials, secrets)

	resolved, err := resolver.ResolveAll(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("resolve all: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("expected 2 resolved channels, got %d", len(resolved))
	}
	if resolved[core.ChannelSMS].Carrier() != core.CarrierTwilio {
		t.Fatalf("sms carrier = %s", resolved[core.ChannelSMS].Carrier())
	}
	if resolved[core.ChannelEmail].Carrier() != core.CarrierSES {
		t.Fatalf("email carrier = %s", resolved[core.ChannelEmail].Carrier())
	}
	if _, ok := resolved[core.ChannelWhatsApp]; ok {
		t.Fatal("whatsapp should not resolve without a credential row")
	}
}
