package ses

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/jigardalal/engageninja-messaging/core"
	"github.com/jigardalal/engageninja-messaging/webhooks"
)

const webhookTokenHeader = "X-Webhook-Token"

type notificationEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

type timestamped struct {
	Timestamp string `json:"timestamp"`
}

type deliveryEvent struct {
	EventType        string `json:"eventType"`
	NotificationType string `json:"notificationType"`
	Mail             struct {
		MessageID string `json:"messageId"`
		Timestamp string `json:"timestamp"`
	} `json:"mail"`
	Delivery  *timestamped `json:"delivery"`
	Bounce    *timestamped `json:"bounce"`
	Complaint *timestamped `json:"complaint"`
	Open      *timestamped `json:"open"`
	Click     *timestamped `json:"click"`
}

// ParseWebhook unwraps the notification envelope when present and maps the
// carrier's event-type discriminator onto the shared status set. The inner
// message id is the only reconciliation key, so its absence is a hard parse
// failure rather than an unknown event.
func (a *Adapter) ParseWebhook(ctx context.Context, req core.WebhookRequest) (core.WebhookEvent, error) {
	if a.webhookToken != "" {
		verifier := webhooks.HeaderTokenVerifier{Header: webhookTokenHeader, Token: a.webhookToken}
		if err := verifier.Verify(ctx, req); err != nil {
			return core.WebhookEvent{}, goerrors.Wrap(
				err,
				goerrors.CategoryAuth,
				"ses: webhook token rejected",
			).WithTextCode(core.MessagingErrorWebhookAuth)
		}
	}

	inner, err := unwrapNotification(req.Body)
	if err != nil {
		return core.WebhookEvent{}, err
	}

	event := deliveryEvent{}
	if err := json.Unmarshal(inner, &event); err != nil {
		return core.WebhookEvent{}, parseError("ses: decode webhook event", err)
	}
	carrierMessageID := strings.TrimSpace(event.Mail.MessageID)
	if carrierMessageID == "" {
		return core.WebhookEvent{}, parseError("ses: webhook event is missing mail.messageId", nil)
	}

	eventType := strings.TrimSpace(event.EventType)
	if eventType == "" {
		eventType = strings.TrimSpace(event.NotificationType)
	}

	raw := map[string]any{}
	if err := json.Unmarshal(inner, &raw); err != nil {
		raw = nil
	}

	return core.WebhookEvent{
		CarrierMessageID: carrierMessageID,
		Status:           normalizeEventType(eventType),
		EventType:        eventType,
		OccurredAt:       eventTimestamp(event),
		Raw:              raw,
	}, nil
}

func unwrapNotification(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, parseError("ses: webhook body is empty", nil)
	}
	envelope := notificationEnvelope{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, parseError("ses: decode webhook body", err)
	}
	if strings.EqualFold(strings.TrimSpace(envelope.Type), "Notification") && envelope.Message != "" {
		return []byte(envelope.Message), nil
	}
	return body, nil
}

func normalizeEventType(eventType string) core.NormalizedStatus {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "send":
		return core.StatusSent
	case "delivery":
		return core.StatusDelivered
	case "bounce", "complaint":
		return core.StatusFailed
	case "open", "click":
		return core.StatusRead
	}
	return core.StatusUnknown
}

// eventTimestamp prefers the timestamp of the most specific sub-object, then
// the mail header, then the current time.
func eventTimestamp(event deliveryEvent) time.Time {
	candidates := []*timestamped{event.Delivery, event.Bounce, event.Complaint, event.Open, event.Click}
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if ts, ok := parseTimestamp(candidate.Timestamp); ok {
			return ts
		}
	}
	if ts, ok := parseTimestamp(event.Mail.Timestamp); ok {
		return ts
	}
	return time.Now().UTC()
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

func parseError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryBadInput).
			WithTextCode(core.MessagingErrorWebhookParse)
	}
	return goerrors.Wrap(source, goerrors.CategoryBadInput, message).
		WithTextCode(core.MessagingErrorWebhookParse)
}
