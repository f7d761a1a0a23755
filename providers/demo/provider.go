package demo

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/jigardalal/engageninja-messaging/core"
)

const (
	CarrierID = core.CarrierDemo

	// messageIDPrefix keeps simulated carrier ids visibly distinct from ids a
	// real carrier could ever assign.
	messageIDPrefix = "demo-"
)

// Randomized progression windows, measured from the send. The actual
// progression is driven by an external scheduler; the adapter only publishes
// the delays it picked so that scheduler can honor them.
const (
	deliveredDelayMin = 3 * time.Second
	deliveredDelayMax = 5 * time.Second
	readDelayMin      = 5 * time.Second
	readDelayMax      = 10 * time.Second
)

func Register(registry *core.AdapterRegistry) error {
	return registry.Register(CarrierID, core.Channels(), New)
}

// Adapter simulates a carrier end to end without touching the network. Sends
// are accepted immediately, the ledger row is real, and callbacks arrive
// through the same webhook path as real carriers, generated by a scheduling
// collaborator using the delay hints returned from Send.
type Adapter struct {
	channel core.Channel
	ledger  core.MappingLedger
	logger  core.Logger
}

func New(actx core.AdapterContext) (core.Adapter, error) {
	if actx.Ledger == nil {
		return nil, goerrors.New("demo: mapping ledger is required", goerrors.CategoryBadInput).
			WithTextCode(core.MessagingErrorBadInput)
	}
	return &Adapter{
		channel: actx.Channel,
		ledger:  actx.Ledger,
		logger:  actx.Logger,
	}, nil
}

func (a *Adapter) Carrier() core.Carrier {
	return CarrierID
}

func (a *Adapter) Channels() []core.Channel {
	return core.Channels()
}

func (a *Adapter) Send(ctx context.Context, msg core.OutboundMessage) (core.SendResult, error) {
	if strings.TrimSpace(msg.Recipient) == "" {
		return core.SendResult{}, goerrors.New("demo: send requires a recipient", goerrors.CategoryBadInput).
			WithTextCode(core.MessagingErrorBadInput)
	}

	carrierMessageID := messageIDPrefix + uuid.NewString()
	now := time.Now().UTC()
	if _, err := a.ledger.Create(ctx, core.MessageProviderMapping{
		MessageID:         msg.ID,
		Channel:           a.channel,
		Carrier:           CarrierID,
		CarrierMessageID:  carrierMessageID,
		LastCarrierStatus: string(core.StatusSent),
		CreatedAt:         now,
		UpdatedAt:         now,
	}); err != nil {
		return core.SendResult{}, goerrors.Wrap(
			err,
			goerrors.CategoryInternal,
			"demo: record carrier message mapping",
		).WithTextCode(core.MessagingErrorInternal)
	}

	deliveredAfter := randomDelay(deliveredDelayMin, deliveredDelayMax)
	readAfter := randomDelay(readDelayMin, readDelayMax)
	return core.SendResult{
		Success:          true,
		Carrier:          CarrierID,
		CarrierMessageID: carrierMessageID,
		Status:           core.StatusSent,
		Demo:             true,
		Metadata: map[string]any{
			"simulated":       true,
			"delivered_after": deliveredAfter,
			"read_after":      readAfter,
		},
	}, nil
}

func (a *Adapter) Verify(_ context.Context) (core.VerifyResult, error) {
	return core.VerifyResult{
		Success: true,
		Details: map[string]any{"simulated": true},
	}, nil
}

func (a *Adapter) Status(_ context.Context) (core.CarrierHealth, error) {
	return core.CarrierHealth{
		Status:  "ok",
		Metrics: map[string]any{"simulated": true},
	}, nil
}

type simulatedCallback struct {
	CarrierMessageID string `json:"carrierMessageId"`
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
}

// ParseWebhook trusts the payload as-is. Simulated callbacks are generated
// inside the system, never by an external party, so there is nothing to
// authenticate.
func (a *Adapter) ParseWebhook(_ context.Context, req core.WebhookRequest) (core.WebhookEvent, error) {
	callback := simulatedCallback{}
	if err := json.Unmarshal(req.Body, &callback); err != nil {
		return core.WebhookEvent{}, goerrors.Wrap(
			err,
			goerrors.CategoryBadInput,
			"demo: decode simulated webhook payload",
		).WithTextCode(core.MessagingErrorWebhookParse)
	}
	carrierMessageID := strings.TrimSpace(callback.CarrierMessageID)
	if carrierMessageID == "" {
		return core.WebhookEvent{}, goerrors.New(
			"demo: simulated webhook payload is missing carrierMessageId",
			goerrors.CategoryBadInput,
		).WithTextCode(core.MessagingErrorWebhookParse)
	}

	occurredAt := time.Now().UTC()
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(callback.Timestamp)); err == nil {
		occurredAt = ts.UTC()
	}

	return core.WebhookEvent{
		CarrierMessageID: carrierMessageID,
		Status:           normalizeStatus(callback.Status),
		EventType:        strings.TrimSpace(callback.Status),
		OccurredAt:       occurredAt,
		Raw: map[string]any{
			"carrierMessageId": callback.CarrierMessageID,
			"status":           callback.Status,
			"timestamp":        callback.Timestamp,
		},
	}, nil
}

func normalizeStatus(raw string) core.NormalizedStatus {
	status := core.NormalizedStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case core.StatusSent, core.StatusDelivered, core.StatusRead, core.StatusFailed:
		return status
	}
	return core.StatusUnknown
}

func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

var _ core.Adapter = (*Adapter)(nil)
