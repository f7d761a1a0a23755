package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/jigardalal/engageninja-messaging/core"
)

// MutatingService is the slice of the messaging facade the command surface
// drives. Sends and webhook reconciliations mutate the mapping ledger and the
// status-event log; channel verification is grouped here because callers treat
// it as an action against the carrier, not a local read.
type MutatingService interface {
	SendMessage(ctx context.Context, tenantID string, msg core.OutboundMessage) (core.SendResult, error)
	HandleWebhook(ctx context.Context, tenantID string, channel core.Channel, req core.WebhookRequest) (core.WebhookOutcome, error)
	VerifyChannel(ctx context.Context, tenantID string, channel core.Channel) (core.VerifyResult, error)
}

type SendMessageCommand struct {
	service MutatingService
}

func NewSendMessageCommand(service MutatingService) *SendMessageCommand {
	return &SendMessageCommand{service: service}
}

func (c *SendMessageCommand) Execute(ctx context.Context, msg SendMessageMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: messaging service is required")
	}
	out, err := c.service.SendMessage(ctx, msg.TenantID, msg.Message)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type HandleWebhookCommand struct {
	service MutatingService
}

func NewHandleWebhookCommand(service MutatingService) *HandleWebhookCommand {
	return &HandleWebhookCommand{service: service}
}

func (c *HandleWebhookCommand) Execute(ctx context.Context, msg HandleWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: messaging service is required")
	}
	out, err := c.service.HandleWebhook(ctx, msg.TenantID, msg.Channel, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type VerifyChannelCommand struct {
	service MutatingService
}

func NewVerifyChannelCommand(service MutatingService) *VerifyChannelCommand {
	return &VerifyChannelCommand{service: service}
}

func (c *VerifyChannelCommand) Execute(ctx context.Context, msg VerifyChannelMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: messaging service is required")
	}
	out, err := c.service.VerifyChannel(ctx, msg.TenantID, msg.Channel)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
