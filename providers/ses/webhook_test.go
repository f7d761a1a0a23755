package ses

import (
	"context"
	"testing"
	"time"

	"github.com/jigardalal/engageninja-messaging/core"
	"github.com/jigardalal/engageninja-messaging/providers/devkit"
)

func newWebhookAdapter(t *testing.T, config map[string]any) core.Adapter {
	t.Helper()
	adapter, err := New(newAdapterContext(config, devkit.NewFakeTransportAdapter("rest"), devkit.NewMemoryMappingLedger()))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func TestParseWebhookUnwrapsNotificationEnvelope(t *testing.T) {
	adapter := newWebhookAdapter(t, nil)
	body := []byte(`{"Type":"Notification","Message":"{\"eventType\":\"Bounce\",\"mail\":{\"messageId\":\"E1\"}}"}`)

	event, err := adapter.ParseWebhook(context.Background(), core.WebhookRequest{Body: body})
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if event.CarrierMessageID != "E1" {
		t.Fatalf("carrier message id = %q", event.CarrierMessageID)
	}
	if event.Status != core.StatusFailed || event.EventType != "Bounce" {
		t.Fatalf("status = %s, event type = %q", event.Status, event.EventType)
	}
}

func TestParseWebhookAcceptsBareEventBody(t *testing.T) {
	adapter := newWebhookAdapter(t, nil)
	body := []byte(`{"eventType":"Open","mail":{"messageId":"E2"},"open":{"timestamp":"2026-08-29T10:15:00Z"}}`)

	event, err := adapter.ParseWebhook(context.Background(), core.WebhookRequest{Body: body})
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if event.Status != core.StatusRead {
		t.Fatalf("status = %s", event.Status)
	}
	want := time.Date(2026, 8, 29, 10, 15, 0, 0, time.UTC)
	if !event.OccurredAt.Equal(want) {
		t.Fatalf("occurred at = %s", event.OccurredAt)
	}
}

func TestParseWebhookTimestampPrefersEventSubObject(t *testing.T) {
	adapter := newWebhookAdapter(t, nil)
	body := []byte(`{
		"eventType":"Delivery",
		"mail":{"messageId":"E3","timestamp":"2026-08-29T10:00:00Z"},
		"delivery":{"timestamp":"2026-08-29T10:00:42Z"}
	}`)

	event, err := adapter.ParseWebhook(context.Background(), core.WebhookRequest{Body: body})
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	want := time.Date(2026, 8, 29, 10, 0, 42, 0, time.UTC)
	if !event.OccurredAt.Equal(want) {
		t.Fatalf("occurred at = %s", event.OccurredAt)
	}
}

func TestParseWebhookRequiresMessageID(t *testing.T) {
	adapter := newWebhookAdapter(t, nil)
	body := []byte(`{"eventType":"Delivery","mail":{}}`)

	if _, err := adapter.ParseWebhook(context.Background(), core.WebhookRequest{Body: body}); err == nil {
		t.Fatal("expected event without mail.messageId to fail")
	}
}

func TestParseWebhookRejectsEmptyAndMalformedBodies(t *testing.T) {
	adapter := newWebhookAdapter(t, nil)

	if _, err := adapter.ParseWebhook(context.Background(), core.WebhookRequest{}); err == nil {
		t.Fatal("expected empty body to fail")
	}
	if _, err := adapter.ParseWebhook(context.Background(), core.WebhookRequest{Body: []byte("not json")}); err == nil {
		t.Fatal("expected malformed body to fail")
	}
}

func TestParseWebhookEventTypeVocabulary(t *testing.T) {
	cases := []struct {
		eventType string
		want      core.NormalizedStatus
	}{
		{"Send", core.StatusSent},
		{"Delivery", core.StatusDelivered},
		{"Bounce", core.StatusFailed},
		{"Complaint", core.StatusFailed},
		{"Open", core.StatusRead},
		{"Click", core.StatusRead},
		{"Rendering Failure", core.StatusUnknown},
	}
	for _, tc := range cases {
		if got := normalizeEventType(tc.eventType); got != tc.want {
			t.Fatalf("normalizeEventType(%q) = %s, want %s", tc.eventType, got, tc.want)
		}
	}
}

func TestParseWebhookEnforcesTokenWhenConfigured(t *testing.T) {
	adapter := newWebhookAdapter(t, map[string]any{"webhook_token": "hook-token"})
	body := []byte(`{"eventType":"Delivery","mail":{"messageId":"E4"}}`)

	if _, err := adapter.ParseWebhook(context.Background(), core.WebhookRequest{Body: body}); err == nil {
		t.Fatal("expected missing token header to fail")
	}
	if _, err := adapter.ParseWebhook(context.Background(), core.WebhookRequest{
		Headers: map[string]string{"X-Webhook-Token": "wrong"},
		Body:    body,
	}); err == nil {
		t.Fatal("expected wrong token to fail")
	}

	event, err := adapter.ParseWebhook(context.Background(), core.WebhookRequest{
		Headers: map[string]string{"X-Webhook-Token": "hook-token"},
		Body:    body,
	})
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if event.CarrierMessageID != "E4" || event.Status != core.StatusDelivered {
		t.Fatalf("unexpected event: %+v", event)
	}
}
