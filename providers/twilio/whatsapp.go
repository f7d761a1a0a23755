package twilio

import (
	"context"
	"net/url"
	"strings"

	"github.com/jigardalal/engageninja-messaging/core"
)

const whatsappPrefix = "whatsapp:"

// WhatsAppAdapter is the WhatsApp shape of the same carrier account. It keeps
// the SMS adapter's authentication, webhook handling, and account reads and
// only changes how the send payload is addressed: both parties carry the
// channel marker, and the sender must be a WhatsApp-enabled number distinct
// from the plain SMS from-number.
type WhatsAppAdapter struct {
	*Adapter
	from string
}

func newWhatsAppAdapter(base *Adapter, actx core.AdapterContext) (*WhatsAppAdapter, error) {
	base.channel = core.ChannelWhatsApp
	return &WhatsAppAdapter{
		Adapter: base,
		from:    actx.Credential.ConfigString(configWhatsAppFrom),
	}, nil
}

func (a *WhatsAppAdapter) Send(ctx context.Context, msg core.OutboundMessage) (core.SendResult, error) {
	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		return core.SendResult{}, badInput("twilio: whatsapp send requires a recipient number")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return core.SendResult{}, badInput("twilio: whatsapp send requires a message body")
	}

	sender := strings.TrimSpace(msg.SenderOverride)
	if sender == "" {
		sender = a.from
	}
	if sender == "" {
		return core.SendResult{}, badInput("twilio: whatsapp send requires a whatsapp sender number")
	}

	form := url.Values{}
	form.Set("To", ensureWhatsAppAddress(recipient))
	form.Set("From", ensureWhatsAppAddress(sender))
	form.Set("Body", msg.Body)
	if a.statusCallbackURL != "" {
		form.Set("StatusCallback", a.statusCallbackURL)
	}

	return a.dispatch(ctx, msg, form)
}

func ensureWhatsAppAddress(address string) string {
	if strings.HasPrefix(address, whatsappPrefix) {
		return address
	}
	return whatsappPrefix + address
}

var _ core.Adapter = (*WhatsAppAdapter)(nil)
