package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/jigardalal/engageninja-messaging/core"
)

// RepositoryFactory builds every store in this package over one bun.DB and
// exposes them behind the core store contracts.
type RepositoryFactory struct {
	db *bun.DB

	tenantStore      *TenantStore
	credentialStore  *ChannelCredentialStore
	mappingStore     *MappingLedgerStore
	statusEventStore *StatusEventStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.tenantStore != nil && f.credentialStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) TenantStore() core.TenantStore {
	if f == nil {
		return nil
	}
	return f.tenantStore
}

func (f *RepositoryFactory) ChannelCredentialStore() core.ChannelCredentialStore {
	if f == nil {
		return nil
	}
	return f.credentialStore
}

func (f *RepositoryFactory) MappingLedger() core.MappingLedger {
	if f == nil {
		return nil
	}
	return f.mappingStore
}

func (f *RepositoryFactory) StatusEventStore() core.StatusEventSink {
	if f == nil {
		return nil
	}
	return f.statusEventStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	tenantRepo := repository.NewRepository[*tenantRecord](f.db, tenantHandlers())
	if validator, ok := tenantRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid tenant repository wiring: %w", err)
		}
	}

	credentialRepo := repository.NewRepository[*channelCredentialRecord](f.db, channelCredentialHandlers())
	if validator, ok := credentialRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid channel credential repository wiring: %w", err)
		}
	}

	mappingRepo := repository.NewRepository[*messageProviderMappingRecord](f.db, mappingHandlers())
	if validator, ok := mappingRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid mapping repository wiring: %w", err)
		}
	}

	statusEventRepo := repository.NewRepository[*statusEventRecord](f.db, statusEventHandlers())
	if validator, ok := statusEventRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid status event repository wiring: %w", err)
		}
	}

	f.tenantStore = &TenantStore{db: f.db, repo: tenantRepo}
	f.credentialStore = &ChannelCredentialStore{db: f.db, repo: credentialRepo}
	f.mappingStore = &MappingLedgerStore{db: f.db, repo: mappingRepo}
	f.statusEventStore = &StatusEventStore{db: f.db, repo: statusEventRepo}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
