package ses

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/jigardalal/engageninja-messaging/core"
)

const (
	CarrierID = core.CarrierSES

	defaultRegion = "us-east-1"

	sendPath    = "/v2/email/outbound-emails"
	accountPath = "/v2/email/account"
)

// Non-secret credential config keys read from the channel credential row.
const (
	configFromAddress      = "from_address"
	configConfigurationSet = "configuration_set"
	configWebhookToken     = "webhook_token"
)

func Register(registry *core.AdapterRegistry) error {
	return registry.Register(CarrierID, []core.Channel{core.ChannelEmail}, New)
}

type Adapter struct {
	signer           requestSigner
	baseURL          string
	transport        core.TransportAdapter
	fromAddress      string
	configurationSet string
	webhookToken     string
	ledger           core.MappingLedger
	logger           core.Logger
}

func New(actx core.AdapterContext) (core.Adapter, error) {
	accessKeyID := strings.TrimSpace(actx.Secret.AccessKeyID)
	secretAccessKey := strings.TrimSpace(actx.Secret.SecretAccessKey)
	if accessKeyID == "" || secretAccessKey == "" {
		return nil, goerrors.Wrap(
			core.ErrInvalidCredentials,
			goerrors.CategoryAuth,
			"ses: access key id and secret access key are required",
		).WithTextCode(core.MessagingErrorInvalidCredentials)
	}
	if actx.Transport == nil {
		return nil, badInput("ses: transport adapter is required")
	}
	if actx.Ledger == nil {
		return nil, badInput("ses: mapping ledger is required")
	}

	region := strings.TrimSpace(actx.Secret.Region)
	if region == "" {
		region = defaultRegion
	}
	baseURL := strings.TrimSpace(actx.Config.Carriers.SESBaseURL)
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://email.%s.amazonaws.com", region)
	}

	configurationSet := actx.Credential.ConfigString(configConfigurationSet)
	if configurationSet == "" {
		configurationSet = strings.TrimSpace(actx.Config.Carriers.ConfigurationSet)
	}

	return &Adapter{
		signer: requestSigner{
			accessKeyID:     accessKeyID,
			secretAccessKey: secretAccessKey,
			region:          region,
		},
		baseURL:          strings.TrimRight(baseURL, "/"),
		transport:        actx.Transport,
		fromAddress:      actx.Credential.ConfigString(configFromAddress),
		configurationSet: configurationSet,
		webhookToken:     actx.Credential.ConfigString(configWebhookToken),
		ledger:           actx.Ledger,
		logger:           actx.Logger,
	}, nil
}

func (a *Adapter) Carrier() core.Carrier {
	return CarrierID
}

func (a *Adapter) Channels() []core.Channel {
	return []core.Channel{core.ChannelEmail}
}

type sendEmailRequest struct {
	FromEmailAddress     string           `json:"FromEmailAddress"`
	Destination          emailDestination `json:"Destination"`
	Content              emailContent     `json:"Content"`
	ConfigurationSetName string           `json:"ConfigurationSetName,omitempty"`
}

type emailDestination struct {
	ToAddresses []string `json:"ToAddresses"`
}

type emailContent struct {
	Simple simpleEmail `json:"Simple"`
}

type simpleEmail struct {
	Subject emailText `json:"Subject"`
	Body    emailBody `json:"Body"`
}

type emailBody struct {
	Text emailText `json:"Text"`
}

type emailText struct {
	Data string `json:"Data"`
}

type sendEmailResponse struct {
	MessageID string `json:"MessageId"`
}

type accountResponse struct {
	SendingEnabled          bool `json:"SendingEnabled"`
	ProductionAccessEnabled bool `json:"ProductionAccessEnabled"`
	SendQuota               struct {
		Max24HourSend   float64 `json:"Max24HourSend"`
		MaxSendRate     float64 `json:"MaxSendRate"`
		SentLast24Hours float64 `json:"SentLast24Hours"`
	} `json:"SendQuota"`
}

func (a *Adapter) Send(ctx context.Context, msg core.OutboundMessage) (core.SendResult, error) {
	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		return core.SendResult{}, badInput("ses: email send requires a recipient address")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return core.SendResult{}, badInput("ses: email send requires a subject")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return core.SendResult{}, badInput("ses: email send requires a body")
	}
	sender := strings.TrimSpace(msg.SenderOverride)
	if sender == "" {
		sender = a.fromAddress
	}
	if sender == "" {
		return core.SendResult{}, badInput("ses: email send requires a sender address")
	}

	payload := sendEmailRequest{
		FromEmailAddress: sender,
		Destination:      emailDestination{ToAddresses: []string{recipient}},
		Content: emailContent{
			Simple: simpleEmail{
				Subject: emailText{Data: msg.Subject},
				Body:    emailBody{Text: emailText{Data: msg.Body}},
			},
		},
		ConfigurationSetName: a.configurationSet,
	}

	response := sendEmailResponse{}
	if err := a.do(ctx, "POST", sendPath, payload, &response); err != nil {
		return core.SendResult{}, err
	}
	if strings.TrimSpace(response.MessageID) == "" {
		return core.SendResult{}, carrierError("ses: carrier accepted the message without a message id", nil)
	}

	now := time.Now().UTC()
	if _, err := a.ledger.Create(ctx, core.MessageProviderMapping{
		MessageID:         msg.ID,
		Channel:           core.ChannelEmail,
		Carrier:           CarrierID,
		CarrierMessageID:  response.MessageID,
		LastCarrierStatus: string(core.StatusSent),
		CreatedAt:         now,
		UpdatedAt:         now,
	}); err != nil {
		return core.SendResult{}, goerrors.Wrap(
			err,
			goerrors.CategoryInternal,
			"ses: record carrier message mapping",
		).WithTextCode(core.MessagingErrorInternal)
	}

	return core.SendResult{
		Success:          true,
		Carrier:          CarrierID,
		CarrierMessageID: response.MessageID,
		Status:           core.StatusSent,
		Metadata: map[string]any{
			"configuration_set": a.configurationSet,
		},
	}, nil
}

func (a *Adapter) Verify(ctx context.Context) (core.VerifyResult, error) {
	account := accountResponse{}
	if err := a.do(ctx, "GET", accountPath, nil, &account); err != nil {
		return core.VerifyResult{Success: false}, err
	}
	return core.VerifyResult{
		Success: account.SendingEnabled,
		Details: map[string]any{
			"sending_enabled":           account.SendingEnabled,
			"production_access_enabled": account.ProductionAccessEnabled,
		},
	}, nil
}

func (a *Adapter) Status(ctx context.Context) (core.CarrierHealth, error) {
	account := accountResponse{}
	if err := a.do(ctx, "GET", accountPath, nil, &account); err != nil {
		return core.CarrierHealth{}, err
	}
	status := "ok"
	if !account.SendingEnabled {
		status = "sending_paused"
	}
	return core.CarrierHealth{
		Status: status,
		Metrics: map[string]any{
			"max_24_hour_send":   account.SendQuota.Max24HourSend,
			"max_send_rate":      account.SendQuota.MaxSendRate,
			"sent_last_24_hours": account.SendQuota.SentLast24Hours,
		},
	}, nil
}

func (a *Adapter) do(ctx context.Context, method string, path string, payload any, out any) error {
	var body []byte
	headers := map[string]string{"Accept": "application/json"}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "ses: encode carrier request").
				WithTextCode(core.MessagingErrorInternal)
		}
		body = encoded
		headers["Content-Type"] = "application/json"
	}

	requestURL := a.baseURL + path
	signed, err := a.signer.sign(method, requestURL, headers, body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "ses: sign carrier request").
			WithTextCode(core.MessagingErrorInternal)
	}

	resp, err := a.transport.Do(ctx, core.TransportRequest{
		Method:  method,
		URL:     requestURL,
		Headers: signed,
		Body:    body,
	})
	if err != nil {
		return carrierError("ses: carrier request failed", err)
	}
	if resp.StatusCode >= 300 {
		return carrierError(carrierFailureMessage(resp.StatusCode, resp.Body), nil)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return carrierError("ses: decode carrier response", err)
	}
	return nil
}

func carrierFailureMessage(statusCode int, body []byte) string {
	failure := struct {
		Message string `json:"message"`
	}{}
	if err := json.Unmarshal(body, &failure); err == nil && strings.TrimSpace(failure.Message) != "" {
		return fmt.Sprintf("ses: carrier rejected request (%d): %s", statusCode, failure.Message)
	}
	return fmt.Sprintf("ses: carrier rejected request (%d)", statusCode)
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
