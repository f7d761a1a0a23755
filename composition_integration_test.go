package messaging_test

import (
	"context"
	"net/url"
	"testing"

	gocmd "github.com/goliatone/go-command"

	messaging "github.com/jigardalal/engageninja-messaging"
	messagingcommand "github.com/jigardalal/engageninja-messaging/command"
	"github.com/jigardalal/engageninja-messaging/core"
	"github.com/jigardalal/engageninja-messaging/providers/devkit"
	messagingquery "github.com/jigardalal/engageninja-messaging/query"
	"github.com/jigardalal/engageninja-messaging/security"
	"github.com/jigardalal/engageninja-messaging/webhooks"
)

const (
	compositionAccountSID = "AC00000000000000000000000000000009"
	compositionAuthToken  = "composition-auth-token"
	compositionWebhookURL = "https://app.example.com/webhooks/twilio"
)

// Drives the full loop a host application runs: register carriers, send
// through the command surface, feed the carrier's status callback back in, and
// read the reconciled timeline through the query surface.
func TestComposition_SendWebhookTimelineRoundTrip(t *testing.T) {
	registry, err := messaging.NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("builtin registry: %v", err)
	}

	secrets, err := security.NewAppKeySecretProviderFromString("composition-test-key")
	if err != nil {
		t.Fatalf("secret provider: %v", err)
	}
	blob, err := devkit.EncodeSecret(context.Background(), secrets, core.CarrierSecret{
		AccountSID: compositionAccountSID,
		AuthToken:  compositionAuthToken,
	})
	if err != nil {
		t.Fatalf("encode secret: %v", err)
	}

	tenants := devkit.NewMemoryTenantStore(core.Tenant{ID: "t-1", Name: "Acme"})
	credentials := devkit.NewMemoryCredentialStore(core.ChannelCredential{
		TenantID:        "t-1",
		Channel:         core.ChannelSMS,
		Carrier:         core.CarrierTwilio,
		EncryptedSecret: blob,
		Config:          map[string]any{"from_number": "+15550001111"},
		Enabled:         true,
	})
	ledger := devkit.NewMemoryMappingLedger()
	events := devkit.NewMemoryStatusEventSink()
	transport := devkit.NewFakeTransportAdapter("rest", devkit.TransportScript{
		Response: core.TransportResponse{
			StatusCode: 201,
			Body:       []byte(`{"sid":"CM900","status":"queued"}`),
		},
	})

	svc, err := messaging.NewService(
		messaging.DefaultConfig(),
		messaging.WithRegistry(registry),
		messaging.WithSecretProvider(secrets),
		messaging.WithTenantStore(tenants),
		messaging.WithChannelCredentialStore(credentials),
		messaging.WithMappingLedger(ledger),
		messaging.WithStatusEventSink(events),
		messaging.WithTransport(transport),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	facade, err := messaging.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	sendCollector := gocmd.NewResult[core.SendResult]()
	sendCtx := gocmd.ContextWithResult(context.Background(), sendCollector)
	if err := facade.Commands().SendMessage.Execute(sendCtx, messagingcommand.SendMessageMessage{
		TenantID: "t-1",
		Message: core.OutboundMessage{
			ID:        "m-composition",
			Channel:   core.ChannelSMS,
			Recipient: "+15550002222",
			Body:      "order shipped",
		},
	}); err != nil {
		t.Fatalf("execute send: %v", err)
	}
	sendResult, ok := sendCollector.Load()
	if !ok || !sendResult.Success || sendResult.CarrierMessageID != "CM900" {
		t.Fatalf("unexpected send result: %#v (ok=%v)", sendResult, ok)
	}

	form := url.Values{}
	form.Set("MessageSid", "CM900")
	form.Set("MessageStatus", "delivered")
	body := []byte(form.Encode())
	signature, err := webhooks.SignFormPayload(compositionAuthToken, "", compositionWebhookURL, body)
	if err != nil {
		t.Fatalf("sign callback: %v", err)
	}

	webhookCollector := gocmd.NewResult[core.WebhookOutcome]()
	webhookCtx := gocmd.ContextWithResult(context.Background(), webhookCollector)
	if err := facade.Commands().HandleWebhook.Execute(webhookCtx, messagingcommand.HandleWebhookMessage{
		TenantID: "t-1",
		Channel:  core.ChannelSMS,
		Request: core.WebhookRequest{
			URL:     compositionWebhookURL,
			Headers: map[string]string{"X-Twilio-Signature": signature},
			Body:    body,
		},
	}); err != nil {
		t.Fatalf("execute webhook: %v", err)
	}
	outcome, ok := webhookCollector.Load()
	if !ok || !outcome.Reconciled || outcome.MessageID != "m-composition" {
		t.Fatalf("unexpected webhook outcome: %#v (ok=%v)", outcome, ok)
	}

	timeline, err := facade.Queries().Timeline.Query(context.Background(), messagingquery.TimelineMessage{
		CarrierMessageID: "CM900",
	})
	if err != nil {
		t.Fatalf("query timeline: %v", err)
	}
	if len(timeline) != 1 || timeline[0].Status != core.StatusDelivered {
		t.Fatalf("unexpected timeline: %#v", timeline)
	}

	mapping, err := facade.Queries().MappingLookup.Query(context.Background(), messagingquery.MappingLookupMessage{
		MessageID: "m-composition",
		Carrier:   core.CarrierTwilio,
	})
	if err != nil {
		t.Fatalf("query mapping: %v", err)
	}
	if mapping.CarrierMessageID != "CM900" || mapping.LastCarrierStatus != "delivered" {
		t.Fatalf("unexpected mapping: %#v", mapping)
	}

	routes, err := facade.Queries().ResolvedRoutes.Query(context.Background(), messagingquery.ResolvedRoutesMessage{
		TenantID: "t-1",
	})
	if err != nil {
		t.Fatalf("query routes: %v", err)
	}
	if routes[core.ChannelSMS] != core.CarrierTwilio || len(routes) != 1 {
		t.Fatalf("unexpected routes: %#v", routes)
	}
}
