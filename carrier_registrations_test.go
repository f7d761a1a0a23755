package messaging

import (
	"testing"

	"github.com/jigardalal/engageninja-messaging/core"
)

func TestNewBuiltinRegistryCoversEveryCarrier(t *testing.T) {
	registry, err := NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("builtin registry: %v", err)
	}

	cases := []struct {
		carrier core.Carrier
		channel core.Channel
		want    bool
	}{
		{core.CarrierTwilio, core.ChannelSMS, true},
		{core.CarrierTwilio, core.ChannelWhatsApp, true},
		{core.CarrierTwilio, core.ChannelEmail, false},
		{core.CarrierSES, core.ChannelEmail, true},
		{core.CarrierSES, core.ChannelSMS, false},
		{core.CarrierDemo, core.ChannelSMS, true},
		{core.CarrierDemo, core.ChannelWhatsApp, true},
		{core.CarrierDemo, core.ChannelEmail, true},
	}
	for _, tc := range cases {
		if got := registry.Supports(tc.carrier, tc.channel); got != tc.want {
			t.Fatalf("Supports(%s, %s) = %v, want %v", tc.carrier, tc.channel, got, tc.want)
		}
	}
}

func TestRegisterBuiltinCarriersRejectsDoubleRegistration(t *testing.T) {
	registry, err := NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("builtin registry: %v", err)
	}
	if err := RegisterBuiltinCarriers(registry); err == nil {
		t.Fatalf("expected second registration to fail")
	}
}
