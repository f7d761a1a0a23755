package twilio

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/jigardalal/engageninja-messaging/core"
	"github.com/jigardalal/engageninja-messaging/providers/devkit"
)

const (
	testAccountSID = "AC00000000000000000000000000000001"
	testAuthToken  = "twilio-auth-token"
)

func newAdapterContext(channel core.Channel, config map[string]any, transport core.TransportAdapter, ledger core.MappingLedger) core.AdapterContext {
	return core.AdapterContext{
		Tenant:  core.Tenant{ID: "t-1", Name: "Acme"},
		Channel: channel,
		Credential: core.ChannelCredential{
			TenantID: "t-1",
			Channel:  channel,
			Carrier:  CarrierID,
			Config:   config,
			Enabled:  true,
		},
		Secret: core.CarrierSecret{
			AccountSID: testAccountSID,
			AuthToken:  testAuthToken,
		},
		Config:    core.DefaultConfig(),
		Transport: transport,
		Ledger:    ledger,
	}
}

func acceptedScript(sid string, status string) devkit.TransportScript {
	return devkit.TransportScript{
		Response: core.TransportResponse{
			StatusCode: 201,
			Body:       []byte(`{"sid":"` + sid + `","status":"` + status + `"}`),
		},
	}
}

func TestNewRequiresCredentialsAndLedger(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest")
	ledger := devkit.NewMemoryMappingLedger()

	actx := newAdapterContext(core.ChannelSMS, nil, transport, ledger)
	actx.Secret.AuthToken = ""
	if _, err := New(actx); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials without auth token, got %v", err)
	}

	actx = newAdapterContext(core.ChannelSMS, nil, transport, nil)
	if _, err := New(actx); err == nil {
		t.Fatal("expected missing ledger to fail")
	}

	actx = newAdapterContext(core.ChannelSMS, nil, nil, ledger)
	if _, err := New(actx); err == nil {
		t.Fatal("expected missing transport to fail")
	}
}

func TestSendValidatesMessageBeforeCallingCarrier(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest")
	ledger := devkit.NewMemoryMappingLedger()
	adapter, err := New(newAdapterContext(core.ChannelSMS, map[string]any{"from_number": "+15550001111"}, transport, ledger))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	cases := []core.OutboundMessage{
		{ID: "m1", Body: "hi"},                // no recipient
		{ID: "m1", Recipient: "+15550002222"}, // no body
	}
	for i, msg := range cases {
		if _, err := adapter.Send(context.Background(), msg); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if len(transport.Requests()) != 0 {
		t.Fatal("validation failures must not hit the carrier")
	}
}

func TestSendRequiresResolvableSender(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest")
	ledger := devkit.NewMemoryMappingLedger()
	adapter, err := New(newAdapterContext(core.ChannelSMS, nil, transport, ledger))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if _, err := adapter.Send(context.Background(), core.OutboundMessage{
		ID: "m1", Recipient: "+15550002222", Body: "hi",
	}); err == nil {
		t.Fatal("expected send without any sender to fail")
	}
}

func TestSendPostsFormAndRecordsMapping(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest", acceptedScript("CM123", "queued"))
	ledger := devkit.NewMemoryMappingLedger()
	adapter, err := New(newAdapterContext(core.ChannelSMS, map[string]any{
		"from_number":         "+15550001111",
		"status_callback_url": "https://app.example.com/webhooks/twilio",
	}, transport, ledger))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	result, err := adapter.Send(context.Background(), core.OutboundMessage{
		ID:        "m1",
		Recipient: "+15550002222",
		Body:      "hi",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !result.Success || result.CarrierMessageID != "CM123" || result.Status != core.StatusSent {
		t.Fatalf("unexpected result: %+v", result)
	}

	requests := transport.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected one carrier call, got %d", len(requests))
	}
	request := requests[0]
	if request.Method != "POST" {
		t.Fatalf("method = %s", request.Method)
	}
	wantURL := "https://api.twilio.com/2010-04-01/Accounts/" + testAccountSID + "/Messages.json"
	if request.URL != wantURL {
		t.Fatalf("url = %s", request.URL)
	}
	if !strings.HasPrefix(request.Headers["Authorization"], "Basic ") {
		t.Fatalf("missing basic auth header: %v", request.Headers)
	}

	form, err := url.ParseQuery(string(request.Body))
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	if form.Get("To") != "+15550002222" || form.Get("From") != "+15550001111" || form.Get("Body") != "hi" {
		t.Fatalf("unexpected form: %v", form)
	}
	if form.Get("StatusCallback") != "https://app.example.com/webhooks/twilio" {
		t.Fatalf("status callback = %q", form.Get("StatusCallback"))
	}

	mapping, err := ledger.GetByCarrierMessageID(context.Background(), "CM123")
	if err != nil {
		t.Fatalf("ledger lookup: %v", err)
	}
	if mapping.MessageID != "m1" || mapping.Channel != core.ChannelSMS || mapping.Carrier != CarrierID {
		t.Fatalf("unexpected mapping: %+v", mapping)
	}
	if mapping.LastCarrierStatus != "queued" {
		t.Fatalf("last carrier status = %q", mapping.LastCarrierStatus)
	}
}

func TestSendUsesMessagingServiceWhenNoFromNumber(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest", acceptedScript("CM200", "accepted"))
	ledger := devkit.NewMemoryMappingLedger()
	adapter, err := New(newAdapterContext(core.ChannelSMS, map[string]any{
		"messaging_service_sid": "MG0000000000000000000000000000000a",
	}, transport, ledger))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	if _, err := adapter.Send(context.Background(), core.OutboundMessage{
		ID: "m1", Recipient: "+15550002222", Body: "hi",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	form, err := url.ParseQuery(string(transport.Requests()[0].Body))
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	if form.Get("MessagingServiceSid") != "MG0000000000000000000000000000000a" {
		t.Fatalf("messaging service sid = %q", form.Get("MessagingServiceSid"))
	}
	if form.Get("From") != "" {
		t.Fatalf("from should be empty, got %q", form.Get("From"))
	}
}

func TestSendCarrierRejectionFailsWithoutLedgerRow(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest", devkit.TransportScript{
		Response: core.TransportResponse{
			StatusCode: 400,
			Body:       []byte(`{"code":21211,"message":"invalid to number"}`),
		},
	})
	ledger := devkit.NewMemoryMappingLedger()
	adapter, err := New(newAdapterContext(core.ChannelSMS, map[string]any{"from_number": "+15550001111"}, transport, ledger))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	_, err = adapter.Send(context.Background(), core.OutboundMessage{
		ID: "m1", Recipient: "bad", Body: "hi",
	})
	if err == nil {
		t.Fatal("expected carrier rejection to error")
	}
	if !strings.Contains(err.Error(), "invalid to number") {
		t.Fatalf("expected carrier message, got %v", err)
	}
	if _, lookupErr := ledger.GetByCarrierMessageID(context.Background(), "CM123"); lookupErr == nil {
		t.Fatal("rejected send must not create a ledger row")
	}
}

func TestVerifyFetchesAccount(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest", devkit.TransportScript{
		Response: core.TransportResponse{
			StatusCode: 200,
			Body:       []byte(`{"friendly_name":"Acme","status":"active","type":"Full"}`),
		},
	})
	adapter, err := New(newAdapterContext(core.ChannelSMS, nil, transport, devkit.NewMemoryMappingLedger()))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	result, err := adapter.Verify(context.Background())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, details: %v", result.Details)
	}
	request := transport.Requests()[0]
	if request.Method != "GET" || !strings.HasSuffix(request.URL, "/Accounts/"+testAccountSID+".json") {
		t.Fatalf("unexpected request %s %s", request.Method, request.URL)
	}
}

func TestStatusReportsBalance(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest", devkit.TransportScript{
		Response: core.TransportResponse{
			StatusCode: 200,
			Body:       []byte(`{"balance":"12.40","currency":"USD"}`),
		},
	})
	adapter, err := New(newAdapterContext(core.ChannelSMS, nil, transport, devkit.NewMemoryMappingLedger()))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	health, err := adapter.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("status = %s", health.Status)
	}
	if health.Metrics["balance"] != "12.40" || health.Metrics["currency"] != "USD" {
		t.Fatalf("metrics = %v", health.Metrics)
	}
}

func TestWhatsAppSendPrefixesAddressesAndRequiresSender(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest", acceptedScript("CM300", "queued"))
	ledger := devkit.NewMemoryMappingLedger()
	adapter, err := New(newAdapterContext(core.ChannelWhatsApp, map[string]any{
		"from_number":   "+15550001111",
		"whatsapp_from": "+15550009999",
	}, transport, ledger))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if _, ok := adapter.(*WhatsAppAdapter); !ok {
		t.Fatalf("expected whatsapp variant, got %T", adapter)
	}

	result, err := adapter.Send(context.Background(), core.OutboundMessage{
		ID: "m1", Recipient: "+15550002222", Body: "hi",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.CarrierMessageID != "CM300" {
		t.Fatalf("carrier message id = %q", result.CarrierMessageID)
	}

	form, err := url.ParseQuery(string(transport.Requests()[0].Body))
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	if form.Get("To") != "whatsapp:+15550002222" {
		t.Fatalf("to = %q", form.Get("To"))
	}
	if form.Get("From") != "whatsapp:+15550009999" {
		t.Fatalf("from = %q", form.Get("From"))
	}

	mapping, err := ledger.GetByCarrierMessageID(context.Background(), "CM300")
	if err != nil {
		t.Fatalf("ledger lookup: %v", err)
	}
	if mapping.Channel != core.ChannelWhatsApp {
		t.Fatalf("channel = %s", mapping.Channel)
	}
}

func TestWhatsAppSendWithoutWhatsAppSenderFails(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest")
	// Only a plain SMS from-number is configured.
	adapter, err := New(newAdapterContext(core.ChannelWhatsApp, map[string]any{
		"from_number": "+15550001111",
	}, transport, devkit.NewMemoryMappingLedger()))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	if _, err := adapter.Send(context.Background(), core.OutboundMessage{
		ID: "m1", Recipient: "+15550002222", Body: "hi",
	}); err == nil {
		t.Fatal("expected whatsapp send without whatsapp sender to fail")
	}
	if len(transport.Requests()) != 0 {
		t.Fatal("validation failure must not hit the carrier")
	}
}
