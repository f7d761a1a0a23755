// Package messaging is the top-level entry point: it re-exports the core
// service surface and wires the built-in carriers, so downstream hosts can
// depend on one import path.
package messaging

import "github.com/jigardalal/engageninja-messaging/core"

type Config = core.Config

type EncryptionConfig = core.EncryptionConfig

type Option = core.Option

type Service = core.Service

type Channel = core.Channel
type Carrier = core.Carrier
type NormalizedStatus = core.NormalizedStatus

type OutboundMessage = core.OutboundMessage
type SendResult = core.SendResult
type VerifyResult = core.VerifyResult
type WebhookRequest = core.WebhookRequest
type WebhookOutcome = core.WebhookOutcome
type StatusEvent = core.StatusEvent
type MessageProviderMapping = core.MessageProviderMapping

var (
	WithLogger                 = core.WithLogger
	WithLoggerProvider         = core.WithLoggerProvider
	WithErrorFactory           = core.WithErrorFactory
	WithErrorMapper            = core.WithErrorMapper
	WithConfigProvider         = core.WithConfigProvider
	WithOptionsResolver        = core.WithOptionsResolver
	WithSecretProvider         = core.WithSecretProvider
	WithSecretCodec            = core.WithSecretCodec
	WithRegistry               = core.WithRegistry
	WithTenantStore            = core.WithTenantStore
	WithChannelCredentialStore = core.WithChannelCredentialStore
	WithMappingLedger          = core.WithMappingLedger
	WithStatusEventSink        = core.WithStatusEventSink
	WithTransport              = core.WithTransport
	WithPersistenceClient      = core.WithPersistenceClient
	WithRepositoryFactory      = core.WithRepositoryFactory
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
