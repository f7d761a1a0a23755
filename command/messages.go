package command

import (
	"fmt"
	"strings"

	"github.com/jigardalal/engageninja-messaging/core"
)

const (
	TypeSendMessage   = "messaging.command.message.send"
	TypeHandleWebhook = "messaging.command.webhook.handle"
	TypeVerifyChannel = "messaging.command.channel.verify"
)

type SendMessageMessage struct {
	TenantID string
	Message  core.OutboundMessage
}

func (SendMessageMessage) Type() string { return TypeSendMessage }

func (m SendMessageMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return fmt.Errorf("command: tenant id is required")
	}
	if strings.TrimSpace(m.Message.ID) == "" {
		return fmt.Errorf("command: message id is required")
	}
	if err := validateChannel(m.Message.Channel); err != nil {
		return err
	}
	if strings.TrimSpace(m.Message.Recipient) == "" {
		return fmt.Errorf("command: recipient is required")
	}
	return nil
}

type HandleWebhookMessage struct {
	TenantID string
	Channel  core.Channel
	Request  core.WebhookRequest
}

func (HandleWebhookMessage) Type() string { return TypeHandleWebhook }

func (m HandleWebhookMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return fmt.Errorf("command: tenant id is required")
	}
	if err := validateChannel(m.Channel); err != nil {
		return err
	}
	if len(m.Request.Body) == 0 {
		return fmt.Errorf("command: webhook body is required")
	}
	return nil
}

type VerifyChannelMessage struct {
	TenantID string
	Channel  core.Channel
}

func (VerifyChannelMessage) Type() string { return TypeVerifyChannel }

func (m VerifyChannelMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return fmt.Errorf("command: tenant id is required")
	}
	return validateChannel(m.Channel)
}

func validateChannel(channel core.Channel) error {
	if err := channel.Validate(); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}
