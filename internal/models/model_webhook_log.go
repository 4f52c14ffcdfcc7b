package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/getdigitalpayments/paybridge/pkg/types"
)

type WebhookLogStatus string

const (
	WebhookLogStatusReceived     WebhookLogStatus = "received"
	WebhookLogStatusHandled      WebhookLogStatus = "handled"
	WebhookLogStatusHandleFailed WebhookLogStatus = "handle_failed"
)

// WebhookLog is an append-only audit row. Each delivery writes one row on
// receipt and one with the outcome.
type WebhookLog struct {
	ID        string                `gorm:"column:id;type:varchar(64);primaryKey" json:"id" firestore:"-"`
	Provider  types.PaymentProvider `gorm:"column:provider;type:varchar(32);not null" json:"provider" firestore:"provider"`
	EventID   string                `gorm:"column:event_id;type:varchar(128);index" json:"event_id" firestore:"eventId"`
	EventType string                `gorm:"column:event_type;type:varchar(128)" json:"event_type" firestore:"eventType"`
	TraceID   string                `gorm:"column:trace_id;type:varchar(128)" json:"trace_id" firestore:"traceId"`
	Data      datatypes.JSON        `gorm:"column:data;type:jsonb" json:"data" firestore:"data"`
	Result    *datatypes.JSON       `gorm:"column:result;type:jsonb" json:"result" firestore:"result,omitempty"`
	Status    WebhookLogStatus      `gorm:"column:status;type:varchar(32);not null" json:"status" firestore:"status"`
	CreatedAt time.Time             `json:"created_at" firestore:"createdAt"`
}

func (WebhookLog) TableName() string { return "webhook_log" }
