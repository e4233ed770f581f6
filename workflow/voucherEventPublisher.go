package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/models"
	"github.com/sirupsen/logrus"
)

// Publisher sends one voucher event and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, msg config.VoucherEventMessage) (string, error)
}

type PubSubPublisher struct{}

func (PubSubPublisher) Publish(ctx context.Context, msg config.VoucherEventMessage) (string, error) {
	return config.PublishVoucherEvent(ctx, msg)
}

// PublishReport counts what one pass over the outbox did.
type PublishReport struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Dead      int `json:"dead"`
}

type VoucherEventDispatcher struct {
	Publisher Publisher
	Logger    *logrus.Logger

	BatchSize      int
	PollInterval   time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewVoucherEventDispatcher(publisher Publisher, logger *logrus.Logger) *VoucherEventDispatcher {
	if publisher == nil {
		publisher = PubSubPublisher{}
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	return &VoucherEventDispatcher{
		Publisher:      publisher,
		Logger:         logger,
		BatchSize:      50,
		PollInterval:   2 * time.Second,
		MaxAttempts:    20,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     10 * time.Minute,
	}
}

// Run publishes pending events of every company until ctx is cancelled.
func (d *VoucherEventDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, err := d.PublishPending(ctx, ""); err != nil && !errors.Is(err, context.Canceled) {
			config.LogError(d.Logger, "workflow", "VoucherEventDispatcher.Run", "publish pending", nil, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

// PublishPending sends due events for companyId, or for all companies when it is empty.
// An unconfigured broker leaves every event pending and is not an error.
func (d *VoucherEventDispatcher) PublishPending(ctx context.Context, companyId string) (*PublishReport, error) {
	report := &PublishReport{}
	events, err := models.PendingVoucherEvents(ctx, companyId, d.BatchSize)
	if err != nil {
		return report, err
	}
	for _, event := range events {
		msgId, pubErr := d.Publisher.Publish(ctx, event.Message())
		if errors.Is(pubErr, config.ErrPubSubNotConfigured) {
			return report, nil
		}
		if pubErr == nil {
			if err := models.MarkVoucherEventPublished(ctx, event, msgId); err != nil {
				return report, err
			}
			report.Published++
			continue
		}

		attempt := event.PublishAttempts + 1
		if d.MaxAttempts > 0 && attempt >= d.MaxAttempts {
			if err := models.MarkVoucherEventDead(ctx, event, pubErr); err != nil {
				return report, err
			}
			report.Dead++
			d.Logger.WithFields(logrus.Fields{
				"field":      "VoucherEventDispatcher",
				"company_id": event.CompanyId,
				"event_id":   event.ID,
				"attempt":    attempt,
			}).Error("voucher event moved to DEAD after max attempts: " + fmt.Sprintf("%v", pubErr))
			continue
		}

		next := time.Now().UTC().Add(d.backoff(attempt))
		if err := models.MarkVoucherEventFailed(ctx, event, pubErr, next); err != nil {
			return report, err
		}
		report.Failed++
		d.Logger.WithFields(logrus.Fields{
			"field":           "VoucherEventDispatcher",
			"company_id":      event.CompanyId,
			"event_id":        event.ID,
			"attempt":         attempt,
			"next_attempt_at": next.Format(time.RFC3339Nano),
		}).Error("voucher event publish failed: " + fmt.Sprintf("%v", pubErr))
	}
	return report, nil
}

func (d *VoucherEventDispatcher) backoff(attempt int) time.Duration {
	backoff := d.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if d.MaxBackoff > 0 && backoff > d.MaxBackoff {
			return d.MaxBackoff
		}
	}
	return backoff
}
