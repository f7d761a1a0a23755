package core

import (
	"fmt"
	"sort"
	"sync"
)

// AdapterContext carries everything a constructor needs to build a ready
// adapter for one resolved (tenant, channel) pair.
type AdapterContext struct {
	Tenant     Tenant
	Channel    Channel
	Credential ChannelCredential
	Secret     CarrierSecret
	Config     Config
	Transport  TransportAdapter
	Ledger     MappingLedger
	Logger     Logger
}

type AdapterConstructor func(actx AdapterContext) (Adapter, error)

type registryEntry struct {
	channels  map[Channel]struct{}
	construct AdapterConstructor
}

// AdapterRegistry is the closed dispatch table from (carrier, channel) to an
// adapter constructor. Carriers are enumerated at startup; an unknown carrier
// name or a channel outside the carrier's advertised set fails with
// ErrCarrierUnsupported before any adapter is constructed.
type AdapterRegistry struct {
	mu      sync.RWMutex
	entries map[Carrier]registryEntry
}

func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{entries: make(map[Carrier]registryEntry)}
}

func (r *AdapterRegistry) Register(carrier Carrier, channels []Channel, construct AdapterConstructor) error {
	if err := carrier.Validate(); err != nil {
		return err
	}
	if construct == nil {
		return fmt.Errorf("core: adapter constructor is required for carrier %q", carrier)
	}
	if len(channels) == 0 {
		return fmt.Errorf("core: carrier %q must advertise at least one channel", carrier)
	}
	supported := make(map[Channel]struct{}, len(channels))
	for _, channel := range channels {
		if err := channel.Validate(); err != nil {
			return err
		}
		supported[channel] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[carrier]; exists {
		return fmt.Errorf("core: carrier already registered: %s", carrier)
	}
	r.entries[carrier] = registryEntry{channels: supported, construct: construct}
	return nil
}

func (r *AdapterRegistry) Supports(carrier Carrier, channel Channel) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[carrier]
	if !ok {
		return false
	}
	_, ok = entry.channels[channel]
	return ok
}

func (r *AdapterRegistry) Build(carrier Carrier, channel Channel, actx AdapterContext) (Adapter, error) {
	r.mu.RLock()
	entry, ok := r.entries[carrier]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: carrier %q is not registered", ErrCarrierUnsupported, carrier)
	}
	if _, ok := entry.channels[channel]; !ok {
		return nil, fmt.Errorf("%w: carrier %q does not serve channel %q", ErrCarrierUnsupported, carrier, channel)
	}
	actx.Channel = channel
	return entry.construct(actx)
}

func (r *AdapterRegistry) Carriers() []Carrier {
	r.mu.RLock()
	carriers := make([]Carrier, 0, len(r.entries))
	for carrier := range r.entries {
		carriers = append(carriers, carrier)
	}
	r.mu.RUnlock()
	sort.Slice(carriers, func(i, j int) bool { return carriers[i] < carriers[j] })
	return carriers
}
