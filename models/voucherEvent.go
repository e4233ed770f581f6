package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const voucherEventReferenceType = "SalesVoucher"

// VoucherEvent is the outbox row written in the same transaction as the posting.
// Publishing happens after commit; a row stays PENDING or FAILED until it is sent.
type VoucherEvent struct {
	ID               int                `gorm:"primary_key;index:idx_voucher_event_dispatch,priority:3" json:"id"`
	EventKey         string             `gorm:"size:36;not null;uniqueIndex" json:"event_key"`
	CompanyId        string             `gorm:"size:64;not null;index" json:"company_id"`
	EventType        VoucherEventType   `gorm:"size:50;not null" json:"event_type"`
	ReferenceType    string             `gorm:"size:30;not null" json:"reference_type"`
	ReferenceId      int                `gorm:"not null;index" json:"reference_id"`
	Payload          []byte             `gorm:"type:blob" json:"payload"`
	CorrelationId    string             `gorm:"size:64;index" json:"correlation_id"`
	PublishStatus    VoucherEventStatus `gorm:"size:20;not null;default:'PENDING';index:idx_voucher_event_dispatch,priority:1" json:"publish_status"`
	PublishAttempts  int                `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time         `gorm:"index:idx_voucher_event_dispatch,priority:2" json:"next_attempt_at"`
	PubSubMessageId  *string            `gorm:"size:255" json:"pubsub_message_id"`
	LastPublishError *string            `gorm:"type:text" json:"last_publish_error"`
	PublishedAt      *time.Time         `json:"published_at"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type voucherPostedPayload struct {
	VoucherId        int             `json:"voucher_id"`
	InvoiceNumber    string          `json:"invoice_number"`
	InvoiceDate      time.Time       `json:"invoice_date"`
	SubAccountId     int             `json:"sub_account_id"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	FbrInvoiceNumber string          `json:"fbr_invoice_number"`
	PostedBy         string          `json:"posted_by"`
}

func newVoucherPostedEvent(ctx context.Context, v *SalesVoucher) (*VoucherEvent, error) {
	payload, err := json.Marshal(voucherPostedPayload{
		VoucherId:        v.ID,
		InvoiceNumber:    v.InvoiceNumber,
		InvoiceDate:      v.InvoiceDate,
		SubAccountId:     v.SubAccountId,
		NetAmount:        v.NetAmount,
		FbrInvoiceNumber: v.FbrInvoiceNumber,
		PostedBy:         v.PostedBy,
	})
	if err != nil {
		return nil, err
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	return &VoucherEvent{
		EventKey:      uuid.NewString(),
		CompanyId:     v.CompanyId,
		EventType:     VoucherEventPosted,
		ReferenceType: voucherEventReferenceType,
		ReferenceId:   v.ID,
		Payload:       payload,
		CorrelationId: correlationId,
		PublishStatus: VoucherEventPending,
	}, nil
}

// Message is the wire form sent to Pub/Sub.
func (e *VoucherEvent) Message() config.VoucherEventMessage {
	return config.VoucherEventMessage{
		ID:            e.ID,
		CompanyId:     e.CompanyId,
		EventType:     string(e.EventType),
		ReferenceType: e.ReferenceType,
		ReferenceId:   e.ReferenceId,
		OccurredAt:    e.CreatedAt,
		Payload:       e.Payload,
		CorrelationId: e.CorrelationId,
	}
}

// PendingVoucherEvents returns events due for publishing, oldest first.
// An empty companyId lists every company and is meant for tools running without a tenant.
func PendingVoucherEvents(ctx context.Context, companyId string, limit int) ([]*VoucherEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	now := time.Now().UTC()
	db := config.GetDB().WithContext(ctx)
	if companyId == "" {
		db = db.WithContext(utils.SetSkipTenantScopeInContext(ctx, true))
	} else {
		db = db.Where("company_id = ?", companyId)
	}
	var events []*VoucherEvent
	err := db.
		Where("publish_status IN ?", []VoucherEventStatus{VoucherEventPending, VoucherEventFailed}).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func ListVoucherEvents(ctx context.Context, voucherId int) ([]*VoucherEvent, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var events []*VoucherEvent
	err = config.GetDB().WithContext(ctx).
		Where("company_id = ? AND reference_type = ? AND reference_id = ?", companyId, voucherEventReferenceType, voucherId).
		Order("id").
		Find(&events).Error
	return events, err
}

func MarkVoucherEventPublished(ctx context.Context, event *VoucherEvent, messageId string) error {
	now := time.Now().UTC()
	return config.GetDB().WithContext(ctx).Model(&VoucherEvent{}).
		Where("id = ? AND company_id = ?", event.ID, event.CompanyId).
		Updates(map[string]interface{}{
			"publish_status":     VoucherEventPublished,
			"published_at":       &now,
			"pub_sub_message_id": &messageId,
			"publish_attempts":   gorm.Expr("publish_attempts + 1"),
			"next_attempt_at":    nil,
			"last_publish_error": nil,
		}).Error
}

// MarkVoucherEventFailed records the error and schedules the next attempt at retryAt.
func MarkVoucherEventFailed(ctx context.Context, event *VoucherEvent, publishErr error, retryAt time.Time) error {
	msg := publishErr.Error()
	return config.GetDB().WithContext(ctx).Model(&VoucherEvent{}).
		Where("id = ? AND company_id = ?", event.ID, event.CompanyId).
		Updates(map[string]interface{}{
			"publish_status":     VoucherEventFailed,
			"publish_attempts":   gorm.Expr("publish_attempts + 1"),
			"next_attempt_at":    &retryAt,
			"last_publish_error": &msg,
		}).Error
}

// MarkVoucherEventDead parks an event that ran out of attempts; it is no longer pending.
func MarkVoucherEventDead(ctx context.Context, event *VoucherEvent, publishErr error) error {
	msg := publishErr.Error()
	return config.GetDB().WithContext(ctx).Model(&VoucherEvent{}).
		Where("id = ? AND company_id = ?", event.ID, event.CompanyId).
		Updates(map[string]interface{}{
			"publish_status":     VoucherEventDead,
			"publish_attempts":   gorm.Expr("publish_attempts + 1"),
			"next_attempt_at":    nil,
			"last_publish_error": &msg,
		}).Error
}
