package twilio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/jigardalal/engageninja-messaging/core"
)

const (
	CarrierID = core.CarrierTwilio

	apiVersion      = "2010-04-01"
	signatureHeader = "X-Twilio-Signature"

	defaultBaseURL = "https://api.twilio.com"
)

// Non-secret credential config keys read from the channel credential row.
const (
	configFromNumber          = "from_number"
	configWhatsAppFrom        = "whatsapp_from"
	configMessagingServiceSID = "messaging_service_sid"
	configStatusCallbackURL   = "status_callback_url"
)

// Register installs both channel variants behind the single carrier entry.
// The constructor picks the SMS or WhatsApp shape from the resolved channel.
func Register(registry *core.AdapterRegistry) error {
	return registry.Register(CarrierID, []core.Channel{core.ChannelSMS, core.ChannelWhatsApp}, New)
}

// client owns authentication and account-level reads against the carrier API.
// Both channel variants share it so credential handling stays in one place.
type client struct {
	accountSID string
	authToken  string
	baseURL    string
	transport  core.TransportAdapter
}

func newClient(actx core.AdapterContext) (*client, error) {
	accountSID := strings.TrimSpace(actx.Secret.AccountSID)
	authToken := strings.TrimSpace(actx.Secret.AuthToken)
	if accountSID == "" || authToken == "" {
		return nil, goerrors.Wrap(
			core.ErrInvalidCredentials,
			goerrors.CategoryAuth,
			"twilio: account sid and auth token are required",
		).WithTextCode(core.MessagingErrorInvalidCredentials)
	}
	if actx.Transport == nil {
		return nil, badInput("twilio: transport adapter is required")
	}
	baseURL := strings.TrimSpace(actx.Config.Carriers.TwilioBaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &client{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		transport:  actx.Transport,
	}, nil
}

func (c *client) accountPath(suffix string) string {
	return fmt.Sprintf("/%s/Accounts/%s%s", apiVersion, c.accountSID, suffix)
}

func (c *client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, core.TransportRequest{
		Method: "GET",
		URL:    c.baseURL + path,
	}, out)
}

func (c *client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, core.TransportRequest{
		Method: "POST",
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	}, out)
}

func (c *client) do(ctx context.Context, req core.TransportRequest, out any) error {
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString(
		[]byte(c.accountSID+":"+c.authToken),
	)
	req.Headers["Accept"] = "application/json"

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return carrierError("twilio: carrier request failed", err)
	}
	if resp.StatusCode >= 300 {
		return carrierError(carrierFailureMessage(resp.StatusCode, resp.Body), nil)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return carrierError("twilio: decode carrier response", err)
	}
	return nil
}

func carrierFailureMessage(statusCode int, body []byte) string {
	failure := struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}{}
	if err := json.Unmarshal(body, &failure); err == nil && strings.TrimSpace(failure.Message) != "" {
		return fmt.Sprintf("twilio: carrier rejected request (%d): %s", statusCode, failure.Message)
	}
	return fmt.Sprintf("twilio: carrier rejected request (%d)", statusCode)
}

type messageResource struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type accountResource struct {
	FriendlyName string `json:"friendly_name"`
	Status       string `json:"status"`
	Type         string `json:"type"`
}

type balanceResource struct {
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// Adapter is the SMS channel shape. The WhatsApp variant embeds it and only
// replaces payload construction.
type Adapter struct {
	client            *client
	channel           core.Channel
	fromNumber        string
	messagingService  string
	statusCallbackURL string
	ledger            core.MappingLedger
	logger            core.Logger
}

func New(actx core.AdapterContext) (core.Adapter, error) {
	client, err := newClient(actx)
	if err != nil {
		return nil, err
	}
	if actx.Ledger == nil {
		return nil, badInput("twilio: mapping ledger is required")
	}

	messagingService := actx.Credential.ConfigString(configMessagingServiceSID)
	if messagingService == "" {
		messagingService = strings.TrimSpace(actx.Config.Carriers.MessagingServiceSID)
	}

	adapter := &Adapter{
		client:            client,
		channel:           actx.Channel,
		fromNumber:        actx.Credential.ConfigString(configFromNumber),
		messagingService:  messagingService,
		statusCallbackURL: actx.Credential.ConfigString(configStatusCallbackURL),
		ledger:            actx.Ledger,
		logger:            actx.Logger,
	}
	if actx.Channel == core.ChannelWhatsApp {
		return newWhatsAppAdapter(adapter, actx)
	}
	adapter.channel = core.ChannelSMS
	return adapter, nil
}

func (a *Adapter) Carrier() core.Carrier {
	return CarrierID
}

func (a *Adapter) Channels() []core.Channel {
	return []core.Channel{core.ChannelSMS, core.ChannelWhatsApp}
}

func (a *Adapter) Send(ctx context.Context, msg core.OutboundMessage) (core.SendResult, error) {
	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		return core.SendResult{}, badInput("twilio: sms send requires a recipient number")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return core.SendResult{}, badInput("twilio: sms send requires a message body")
	}

	form := url.Values{}
	form.Set("To", recipient)
	form.Set("Body", msg.Body)

	sender := strings.TrimSpace(msg.SenderOverride)
	if sender == "" {
		sender = a.fromNumber
	}
	switch {
	case sender != "":
		form.Set("From", sender)
	case a.messagingService != "":
		form.Set("MessagingServiceSid", a.messagingService)
	default:
		return core.SendResult{}, badInput("twilio: sms send requires a from number or messaging service sid")
	}
	if a.statusCallbackURL != "" {
		form.Set("StatusCallback", a.statusCallbackURL)
	}

	return a.dispatch(ctx, msg, form)
}

// dispatch posts the prepared form and records the ledger row before the
// result is handed back. A callback arriving right after the carrier accepts
// the message must already find its mapping.
func (a *Adapter) dispatch(ctx context.Context, msg core.OutboundMessage, form url.Values) (core.SendResult, error) {
	resource := messageResource{}
	if err := a.client.postForm(ctx, a.client.accountPath("/Messages.json"), form, &resource); err != nil {
		return core.SendResult{}, err
	}
	if strings.TrimSpace(resource.SID) == "" {
		return core.SendResult{}, carrierError("twilio: carrier accepted the message without a message sid", nil)
	}

	now := time.Now().UTC()
	if _, err := a.ledger.Create(ctx, core.MessageProviderMapping{
		MessageID:         msg.ID,
		Channel:           a.channel,
		Carrier:           CarrierID,
		CarrierMessageID:  resource.SID,
		LastCarrierStatus: resource.Status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}); err != nil {
		return core.SendResult{}, goerrors.Wrap(
			err,
			goerrors.CategoryInternal,
			"twilio: record carrier message mapping",
		).WithTextCode(core.MessagingErrorInternal)
	}

	return core.SendResult{
		Success:          true,
		Carrier:          CarrierID,
		CarrierMessageID: resource.SID,
		Status:           normalizeStatus(resource.Status),
		Metadata: map[string]any{
			"carrier_status": resource.Status,
		},
	}, nil
}

func (a *Adapter) Verify(ctx context.Context) (core.VerifyResult, error) {
	account := accountResource{}
	if err := a.client.get(ctx, a.client.accountPath(".json"), &account); err != nil {
		return core.VerifyResult{Success: false}, err
	}
	status := strings.ToLower(strings.TrimSpace(account.Status))
	return core.VerifyResult{
		Success: status == "" || status == "active",
		Details: map[string]any{
			"friendly_name":  account.FriendlyName,
			"account_status": account.Status,
			"account_type":   account.Type,
		},
	}, nil
}

func (a *Adapter) Status(ctx context.Context) (core.CarrierHealth, error) {
	balance := balanceResource{}
	if err := a.client.get(ctx, a.client.accountPath("/Balance.json"), &balance); err != nil {
		return core.CarrierHealth{}, err
	}
	return core.CarrierHealth{
		Status: "ok",
		Metrics: map[string]any{
			"balance":  balance.Balance,
			"currency": balance.Currency,
		},
	}, nil
}

func badInput(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithTextCode(core.MessagingErrorBadInput)
}

func carrierError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryExternal).
			WithTextCode(core.MessagingErrorCarrierTransport)
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithTextCode(core.MessagingErrorCarrierTransport)
}

var _ core.Adapter = (*Adapter)(nil)
