package messaging

import (
	"github.com/jigardalal/engageninja-messaging/core"
	"github.com/jigardalal/engageninja-messaging/providers/demo"
	"github.com/jigardalal/engageninja-messaging/providers/ses"
	"github.com/jigardalal/engageninja-messaging/providers/twilio"
)

// RegisterBuiltinCarriers installs every carrier this module ships with into
// the given registry. Hosts that only want a subset call the per-carrier
// Register functions directly.
func RegisterBuiltinCarriers(registry *core.AdapterRegistry) error {
	if err := twilio.Register(registry); err != nil {
		return err
	}
	if err := ses.Register(registry); err != nil {
		return err
	}
	return demo.Register(registry)
}

// NewBuiltinRegistry builds a registry preloaded with the built-in carriers.
func NewBuiltinRegistry() (*core.AdapterRegistry, error) {
	registry := core.NewAdapterRegistry()
	if err := RegisterBuiltinCarriers(registry); err != nil {
		return nil, err
	}
	return registry, nil
}
