package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func tenantHandlers() repository.ModelHandlers[*tenantRecord] {
	return repository.ModelHandlers[*tenantRecord]{
		NewRecord: func() *tenantRecord {
			return &tenantRecord{}
		},
		GetID: func(record *tenantRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *tenantRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *tenantRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func channelCredentialHandlers() repository.ModelHandlers[*channelCredentialRecord] {
	return repository.ModelHandlers[*channelCredentialRecord]{
		NewRecord: func() *channelCredentialRecord {
			return &channelCredentialRecord{}
		},
		GetID: func(record *channelCredentialRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *channelCredentialRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *channelCredentialRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func mappingHandlers() repository.ModelHandlers[*messageProviderMappingRecord] {
	return repository.ModelHandlers[*messageProviderMappingRecord]{
		NewRecord: func() *messageProviderMappingRecord {
			return &messageProviderMappingRecord{}
		},
		GetID: func(record *messageProviderMappingRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *messageProviderMappingRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *messageProviderMappingRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func statusEventHandlers() repository.ModelHandlers[*statusEventRecord] {
	return repository.ModelHandlers[*statusEventRecord]{
		NewRecord: func() *statusEventRecord {
			return &statusEventRecord{}
		},
		GetID: func(record *statusEventRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *statusEventRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *statusEventRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(raw string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
