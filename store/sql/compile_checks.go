package sqlstore

import "github.com/jigardalal/engageninja-messaging/core"

var (
	_ core.TenantStore            = (*TenantStore)(nil)
	_ core.ChannelCredentialStore = (*ChannelCredentialStore)(nil)
	_ core.MappingLedger          = (*MappingLedgerStore)(nil)
	_ core.StatusEventSink        = (*StatusEventStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
