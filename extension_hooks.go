package messaging

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jigardalal/engageninja-messaging/core"
)

// CarrierRegistration installs one carrier into an adapter registry. The
// per-carrier Register functions under providers/ have this shape.
type CarrierRegistration func(registry *core.AdapterRegistry) error

// CarrierPack groups carrier registrations a downstream host ships as a unit,
// for example an internal carrier plus a regional gateway.
type CarrierPack struct {
	Name          string
	Registrations []CarrierRegistration
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks collects what hosts bolt onto the messaging module without
// this package importing them: extra carriers and host-specific command/query
// bundles built on the shared facade service.
type ExtensionHooks struct {
	mu sync.RWMutex

	carrierPacks map[string]CarrierPack
	bundles      map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		carrierPacks: map[string]CarrierPack{},
		bundles:      map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterCarrierPack(pack CarrierPack) error {
	if h == nil {
		return fmt.Errorf("messaging: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("messaging: carrier pack name is required")
	}
	if len(pack.Registrations) == 0 {
		return fmt.Errorf("messaging: carrier pack %q has no registrations", name)
	}

	normalized := CarrierPack{
		Name:          name,
		Registrations: append([]CarrierRegistration(nil), pack.Registrations...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.carrierPacks[name]; exists {
		return fmt.Errorf("messaging: carrier pack %q already registered", name)
	}
	h.carrierPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("messaging: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("messaging: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("messaging: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("messaging: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyCarrierPacks runs every registered pack against the registry, in
// deterministic pack-name order.
func (h *ExtensionHooks) ApplyCarrierPacks(registry *core.AdapterRegistry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("messaging: adapter registry is required")
	}

	for _, pack := range h.CarrierPacks() {
		for _, register := range pack.Registrations {
			if register == nil {
				return fmt.Errorf("messaging: carrier pack %q contains nil registration", pack.Name)
			}
			if err := register(registry); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("messaging: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) CarrierPacks() []CarrierPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.carrierPacks))
	for name := range h.carrierPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]CarrierPack, 0, len(names))
	for _, name := range names {
		pack := h.carrierPacks[name]
		out = append(out, CarrierPack{
			Name:          pack.Name,
			Registrations: append([]CarrierRegistration(nil), pack.Registrations...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
