// Package simulation drives the demo carrier's status callbacks. The demo
// adapter reports how long a simulated message should take to be delivered
// and read; this package turns those delays into queued callback jobs and
// replays them through the normal webhook ingress, so demo tenants exercise
// the same reconciliation path as live carriers.
package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"

	"github.com/jigardalal/engageninja-messaging/core"
	"github.com/jigardalal/engageninja-messaging/webhooks"
)

const JobIDStatusCallback = "messaging.simulation.status_callback"

const (
	paramTenantID         = "tenant_id"
	paramChannel          = "channel"
	paramCarrierMessageID = "carrier_message_id"
	paramStatus           = "status"
	paramDueAt            = "due_at"
)

// Scheduler enqueues one callback job per simulated status transition.
type Scheduler struct {
	Queue queue.Enqueuer
	Now   func() time.Time
}

func NewScheduler(q queue.Enqueuer) *Scheduler {
	return &Scheduler{
		Queue: q,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// ScheduleFromSend reads the simulated delays off a demo send result and
// enqueues the matching delivered and read callbacks. Non-demo results are
// ignored. Returns how many callbacks were scheduled.
func (s *Scheduler) ScheduleFromSend(
	ctx context.Context,
	tenantID string,
	channel core.Channel,
	res core.SendResult,
) (int, error) {
	if s == nil || s.Queue == nil {
		return 0, simulationInternal("simulation: scheduler requires a queue")
	}
	if !res.Demo || strings.TrimSpace(res.CarrierMessageID) == "" {
		return 0, nil
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return 0, simulationBadInput("simulation: tenant id is required")
	}
	if err := channel.Validate(); err != nil {
		return 0, simulationBadInput(fmt.Sprintf("simulation: %v", err))
	}

	now := s.now()
	scheduled := 0
	for _, transition := range []struct {
		delayKey string
		status   core.NormalizedStatus
	}{
		{"delivered_after", core.StatusDelivered},
		{"read_after", core.StatusRead},
	} {
		delay, ok := res.Metadata[transition.delayKey].(time.Duration)
		if !ok || delay < 0 {
			continue
		}
		msg := &job.ExecutionMessage{
			JobID:          JobIDStatusCallback,
			ScriptPath:     JobIDStatusCallback,
			IdempotencyKey: res.CarrierMessageID + ":" + string(transition.status),
			DedupPolicy:    job.DedupPolicyDrop,
			Parameters: map[string]any{
				paramTenantID:         tenantID,
				paramChannel:          string(channel),
				paramCarrierMessageID: res.CarrierMessageID,
				paramStatus:           string(transition.status),
				paramDueAt:            now.Add(delay).Format(time.RFC3339Nano),
			},
		}
		if _, err := s.Queue.Enqueue(ctx, msg); err != nil {
			return scheduled, goerrors.Wrap(
				err,
				goerrors.CategoryOperation,
				"simulation: enqueue status callback",
			).WithTextCode(core.MessagingErrorInternal)
		}
		scheduled++
	}
	return scheduled, nil
}

func (s *Scheduler) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// RetryPolicy bounds how often a failed callback job is retried before it is
// dead-lettered.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

func (p RetryPolicy) normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Disposition == "" {
		out.Disposition = queue.NackDispositionRetry
	}
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.Disposition == queue.NackDispositionRetry && p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		if p.DeadLetterOnMax {
			out.Disposition = queue.NackDispositionDeadLetter
		} else {
			out.Disposition = queue.NackDispositionFailed
		}
	}
	if out.Disposition != queue.NackDispositionRetry {
		out.Delay = 0
	}
	return out
}

// Worker drains callback jobs and replays each one through the webhook
// ingress once its due time has passed. Jobs dequeued early are nacked back
// with the remaining delay rather than fired ahead of schedule.
type Worker struct {
	Queue     queue.Dequeuer
	Processor *webhooks.Processor
	Retry     RetryPolicy
	Now       func() time.Time
}

func NewWorker(q queue.Dequeuer, processor *webhooks.Processor) *Worker {
	return &Worker{
		Queue:     q,
		Processor: processor,
		Retry: RetryPolicy{
			MaxAttempts:     5,
			MaxDelay:        time.Minute,
			DeadLetterOnMax: true,
		},
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce handles a single delivery. It reports whether the callback fired.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	if w == nil || w.Queue == nil || w.Processor == nil {
		return false, simulationInternal("simulation: worker requires a queue and a processor")
	}
	delivery, err := w.Queue.Dequeue(ctx)
	if err != nil {
		return false, goerrors.Wrap(
			err,
			goerrors.CategoryOperation,
			"simulation: dequeue status callback",
		).WithTextCode(core.MessagingErrorInternal)
	}
	if delivery == nil || delivery.Message() == nil {
		return false, nil
	}

	params := delivery.Message().Parameters
	callback, err := callbackFromParams(params)
	if err != nil {
		// malformed jobs can never succeed
		return false, delivery.Nack(ctx, w.Retry.normalize(queue.NackOptions{
			Disposition: queue.NackDispositionDeadLetter,
			Reason:      err.Error(),
		}, w.Retry.MaxAttempts))
	}

	now := w.now()
	if now.Before(callback.dueAt) {
		return false, delivery.Nack(ctx, queue.NackOptions{
			Disposition: queue.NackDispositionRetry,
			Delay:       callback.dueAt.Sub(now),
			Reason:      "not due",
		})
	}

	body, err := json.Marshal(map[string]string{
		"carrierMessageId": callback.carrierMessageID,
		"status":           string(callback.status),
		"timestamp":        callback.dueAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return false, simulationInternal("simulation: encode callback payload")
	}

	outcome, err := w.Processor.Process(ctx, webhooks.InboundCallback{
		TenantID: callback.tenantID,
		Channel:  callback.channel,
		Request: core.WebhookRequest{
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    body,
		},
	})
	if err != nil {
		return false, delivery.Nack(ctx, w.Retry.normalize(queue.NackOptions{
			Disposition: queue.NackDispositionRetry,
			Delay:       time.Second,
			Reason:      err.Error(),
		}, 1))
	}
	// unmatched mappings stay unmatched on replay, so the job completes
	_ = outcome
	return true, delivery.Ack(ctx)
}

type statusCallback struct {
	tenantID         string
	channel          core.Channel
	carrierMessageID string
	status           core.NormalizedStatus
	dueAt            time.Time
}

func callbackFromParams(params map[string]any) (statusCallback, error) {
	callback := statusCallback{
		tenantID:         paramString(params, paramTenantID),
		channel:          core.Channel(paramString(params, paramChannel)),
		carrierMessageID: paramString(params, paramCarrierMessageID),
		status:           core.NormalizedStatus(paramString(params, paramStatus)),
	}
	if callback.tenantID == "" || callback.carrierMessageID == "" {
		return statusCallback{}, fmt.Errorf("simulation: callback job is missing tenant or carrier message id")
	}
	if err := callback.channel.Validate(); err != nil {
		return statusCallback{}, fmt.Errorf("simulation: %v", err)
	}
	dueAt, err := time.Parse(time.RFC3339Nano, paramString(params, paramDueAt))
	if err != nil {
		return statusCallback{}, fmt.Errorf("simulation: callback job has no valid due time")
	}
	callback.dueAt = dueAt.UTC()
	return callback, nil
}

func paramString(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	value, _ := params[key].(string)
	return strings.TrimSpace(value)
}

func (w *Worker) now() time.Time {
	if w != nil && w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func simulationInternal(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithTextCode(core.MessagingErrorInternal)
}

func simulationBadInput(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithTextCode(core.MessagingErrorBadInput)
}
