package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[SendMessageMessage]   = (*SendMessageCommand)(nil)
	_ gocmd.Commander[HandleWebhookMessage] = (*HandleWebhookCommand)(nil)
	_ gocmd.Commander[VerifyChannelMessage] = (*VerifyChannelCommand)(nil)
)
