package twilio

import (
	"context"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/jigardalal/engageninja-messaging/core"
	"github.com/jigardalal/engageninja-messaging/webhooks"
)

// ParseWebhook authenticates a status callback against the account auth token
// and extracts the carrier message id and raw status. The signature covers the
// exact callback URL and the posted form fields, so req.Body must be the raw
// bytes the carrier sent.
func (a *Adapter) ParseWebhook(ctx context.Context, req core.WebhookRequest) (core.WebhookEvent, error) {
	verifier := webhooks.FormHMACVerifier{
		Header: signatureHeader,
		Secret: a.client.authToken,
	}
	if err := verifier.Verify(ctx, req); err != nil {
		return core.WebhookEvent{}, goerrors.Wrap(
			err,
			goerrors.CategoryAuth,
			"twilio: webhook signature rejected",
		).WithTextCode(core.MessagingErrorWebhookAuth)
	}

	values, err := url.ParseQuery(string(req.Body))
	if err != nil {
		return core.WebhookEvent{}, webhookParseError("twilio: parse webhook form payload", err)
	}

	carrierMessageID := strings.TrimSpace(values.Get("MessageSid"))
	if carrierMessageID == "" {
		carrierMessageID = strings.TrimSpace(values.Get("SmsSid"))
	}
	if carrierMessageID == "" {
		return core.WebhookEvent{}, webhookParseError("twilio: webhook payload is missing MessageSid", nil)
	}

	rawStatus := strings.TrimSpace(values.Get("MessageStatus"))
	if rawStatus == "" {
		rawStatus = strings.TrimSpace(values.Get("SmsStatus"))
	}

	return core.WebhookEvent{
		CarrierMessageID: carrierMessageID,
		Status:           normalizeStatus(rawStatus),
		EventType:        rawStatus,
		OccurredAt:       time.Now().UTC(),
		Raw:              flattenFormValues(values),
	}, nil
}

// normalizeStatus maps the carrier's delivery vocabulary onto the shared
// status set. Pre-delivery lifecycle states all collapse to sent; anything
// unrecognized is unknown rather than an error.
func normalizeStatus(raw string) core.NormalizedStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "accepted", "scheduled", "sending", "sent":
		return core.StatusSent
	case "delivered":
		return core.StatusDelivered
	case "read":
		return core.StatusRead
	case "failed", "undelivered", "canceled":
		return core.StatusFailed
	}
	return core.StatusUnknown
}

func flattenFormValues(values url.Values) map[string]any {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]any, len(values))
	for key, list := range values {
		if len(list) == 1 {
			out[key] = list[0]
			continue
		}
		out[key] = append([]string(nil), list...)
	}
	return out
}

func webhookParseError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryBadInput).
			WithTextCode(core.MessagingErrorWebhookParse)
	}
	return goerrors.Wrap(source, goerrors.CategoryBadInput, message).
		WithTextCode(core.MessagingErrorWebhookParse)
}
