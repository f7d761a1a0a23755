package core

import (
	"context"
	"errors"
	"testing"
)

type stubAdapter struct {
	carrier Carrier
}

func (a stubAdapter) Carrier() Carrier     { return a.carrier }
func (a stubAdapter) Channels() []Channel  { return Channels() }
func (a stubAdapter) Send(context.Context, OutboundMessage) (SendResult, error) {
	return SendResult{}, nil
}
func (a stubAdapter) Verify(context.Context) (VerifyResult, error) {
	return VerifyResult{Success: true}, nil
}
func (a stubAdapter) ParseWebhook(context.Context, WebhookRequest) (WebhookEvent, error) {
	return WebhookEvent{}, nil
}
func (a stubAdapter) Status(context.Context) (CarrierHealth, error) {
	return CarrierHealth{Status: "ok"}, nil
}

func stubConstructor(carrier Carrier) AdapterConstructor {
	return func(AdapterContext) (Adapter, error) {
		return stubAdapter{carrier: carrier}, nil
	}
}

func TestAdapterRegistryBuildUnknownCarrier(t *testing.T) {
	registry := NewAdapterRegistry()
	if err := registry.Register(CarrierTwilio, []Channel{ChannelSMS}, stubConstructor(CarrierTwilio)); err != nil {
		t.Fatalf("register twilio: %v", err)
	}

	_, err := registry.Build(CarrierSES, ChannelEmail, AdapterContext{})
	if !errors.Is(err, ErrCarrierUnsupported) {
		t.Fatalf("expected ErrCarrierUnsupported for unregistered carrier, got %v", err)
	}
}

func TestAdapterRegistryBuildChannelOutsideAdvertisedSet(t *testing.T) {
	registry := NewAdapterRegistry()
	if err := registry.Register(CarrierSES, []Channel{ChannelEmail}, stubConstructor(CarrierSES)); err != nil {
		t.Fatalf("register ses: %v", err)
	}

	_, err := registry.Build(CarrierSES, ChannelSMS, AdapterContext{})
	if !errors.Is(err, ErrCarrierUnsupported) {
		t.Fatalf("expected ErrCarrierUnsupported for sms over ses, got %v", err)
	}

	adapter, err := registry.Build(CarrierSES, ChannelEmail, AdapterContext{})
	if err != nil {
		t.Fatalf("build ses email adapter: %v", err)
	}
	if adapter.Carrier() != CarrierSES {
		t.Fatalf("expected ses adapter, got %s", adapter.Carrier())
	}
}

func TestAdapterRegistryRejectsDuplicateCarrier(t *testing.T) {
	registry := NewAdapterRegistry()
	if err := registry.Register(CarrierDemo, Channels(), stubConstructor(CarrierDemo)); err != nil {
		t.Fatalf("register demo: %v", err)
	}
	if err := registry.Register(CarrierDemo, Channels(), stubConstructor(CarrierDemo)); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestAdapterRegistryRejectsInvalidRegistrations(t *testing.T) {
	registry := NewAdapterRegistry()
	if err := registry.Register(Carrier("pigeon"), []Channel{ChannelSMS}, stubConstructor("pigeon")); err == nil {
		t.Fatal("expected unknown carrier name to be rejected")
	}
	if err := registry.Register(CarrierTwilio, nil, stubConstructor(CarrierTwilio)); err == nil {
		t.Fatal("expected empty channel set to be rejected")
	}
	if err := registry.Register(CarrierTwilio, []Channel{ChannelSMS}, nil); err == nil {
		t.Fatal("expected nil constructor to be rejected")
	}
}

func TestAdapterRegistrySupportsAndCarriers(t *testing.T) {
	registry := NewAdapterRegistry()
	if err := registry.Register(CarrierTwilio, []Channel{ChannelSMS, ChannelWhatsApp}, stubConstructor(CarrierTwilio)); err != nil {
		t.Fatalf("register twilio: %v", err)
	}
	if err := registry.Register(CarrierDemo, Channels(), stubConstructor(CarrierDemo)); err != nil {
		t.Fatalf("register demo: %v", err)
	}

	if !registry.Supports(CarrierTwilio, ChannelWhatsApp) {
		t.Fatal("expected twilio to support whatsapp")
	}
	if registry.Supports(CarrierTwilio, ChannelEmail) {
		t.Fatal("expected twilio to reject email")
	}

	carriers := registry.Carriers()
	if len(carriers) != 2 {
		t.Fatalf("expected 2 carriers, got %d", len(carriers))
	}
	if carriers[0] != CarrierDemo || carriers[1] != CarrierTwilio {
		t.Fatalf("expected sorted carriers [demo twilio], got %v", carriers)
	}
}
