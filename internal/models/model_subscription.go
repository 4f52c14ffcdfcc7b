package models

import (
	"time"

	"github.com/getdigitalpayments/paybridge/pkg/types"
)

// Subscription mirrors a processor subscription. ID is the processor's id.
// Rows are never deleted; webhooks overwrite the status fields.
type Subscription struct {
	ID                 string                   `gorm:"column:id;type:varchar(128);primaryKey" json:"id" firestore:"-"`
	UserID             string                   `gorm:"column:user_id;type:varchar(128);not null;index:idx_subscription_user_created,priority:1" json:"user_id" firestore:"userId"`
	CustomerID         string                   `gorm:"column:customer_id;type:varchar(128)" json:"customer_id" firestore:"customerId"`
	PriceID            string                   `gorm:"column:price_id;type:varchar(128)" json:"price_id" firestore:"priceId"`
	Status             types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null" json:"status" firestore:"status"`
	CurrentPeriodStart *time.Time               `gorm:"column:current_period_start" json:"current_period_start" firestore:"currentPeriodStart"`
	CurrentPeriodEnd   *time.Time               `gorm:"column:current_period_end" json:"current_period_end" firestore:"currentPeriodEnd"`
	CancelAtPeriodEnd  bool                     `gorm:"column:cancel_at_period_end;not null" json:"cancel_at_period_end" firestore:"cancelAtPeriodEnd"`
	TransferID         *string                  `gorm:"column:transfer_id;type:varchar(128)" json:"transfer_id" firestore:"transferId,omitempty"`
	PaymentStatus      types.PaymentStatus      `gorm:"column:payment_status;type:varchar(32)" json:"payment_status" firestore:"paymentStatus"`
	FailureReason      *string                  `gorm:"column:failure_reason;type:text" json:"failure_reason" firestore:"failureReason,omitempty"`
	// LastPaymentAt and LastPaymentAttemptAt are written by transfer webhooks only.
	LastPaymentAt        *time.Time `gorm:"column:last_payment_at" json:"last_payment_at" firestore:"lastPaymentDate,omitempty"`
	LastPaymentAttemptAt *time.Time `gorm:"column:last_payment_attempt_at" json:"last_payment_attempt_at" firestore:"lastPaymentAttempt,omitempty"`
	// StatusUpdatedAt is taken from the event that wrote the status, not the wall clock.
	StatusUpdatedAt *time.Time `gorm:"column:status_updated_at" json:"status_updated_at" firestore:"statusUpdatedAt,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;index:idx_subscription_user_created,priority:2,sort:desc" json:"created_at" firestore:"created"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// PatchField is one column of a partial subscription update. Column is the
// relational name and DocField the document store name.
type PatchField struct {
	Column   string
	DocField string
	Value    interface{}
}

// SubscriptionPatch is a partial update. Nil fields are left unchanged.
type SubscriptionPatch struct {
	PriceID              *string
	Status               *types.SubscriptionStatus
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    *bool
	TransferID           *string
	PaymentStatus        *types.PaymentStatus
	FailureReason        *string
	LastPaymentAt        *time.Time
	LastPaymentAttemptAt *time.Time
	StatusUpdatedAt      *time.Time
}

// Fields lists the set fields in a stable order.
func (p *SubscriptionPatch) Fields() []PatchField {
	if p == nil {
		return nil
	}
	var out []PatchField
	add := func(col, doc string, set bool, v interface{}) {
		if set {
			out = append(out, PatchField{Column: col, DocField: doc, Value: v})
		}
	}
	add("price_id", "priceId", p.PriceID != nil, deref(p.PriceID))
	add("status", "status", p.Status != nil, derefStatus(p.Status))
	add("current_period_start", "currentPeriodStart", p.CurrentPeriodStart != nil, derefTime(p.CurrentPeriodStart))
	add("current_period_end", "currentPeriodEnd", p.CurrentPeriodEnd != nil, derefTime(p.CurrentPeriodEnd))
	add("cancel_at_period_end", "cancelAtPeriodEnd", p.CancelAtPeriodEnd != nil, p.CancelAtPeriodEnd != nil && *p.CancelAtPeriodEnd)
	add("transfer_id", "transferId", p.TransferID != nil, deref(p.TransferID))
	add("payment_status", "paymentStatus", p.PaymentStatus != nil, derefPaymentStatus(p.PaymentStatus))
	add("failure_reason", "failureReason", p.FailureReason != nil, deref(p.FailureReason))
	add("last_payment_at", "lastPaymentDate", p.LastPaymentAt != nil, derefTime(p.LastPaymentAt))
	add("last_payment_attempt_at", "lastPaymentAttempt", p.LastPaymentAttemptAt != nil, derefTime(p.LastPaymentAttemptAt))
	add("status_updated_at", "statusUpdatedAt", p.StatusUpdatedAt != nil, derefTime(p.StatusUpdatedAt))
	return out
}

// Empty reports whether the patch sets nothing. A nil patch is empty.
func (p *SubscriptionPatch) Empty() bool { return len(p.Fields()) == 0 }

// ApplyTo copies the set fields onto s.
func (p *SubscriptionPatch) ApplyTo(s *Subscription) {
	if p == nil || s == nil {
		return
	}
	if p.PriceID != nil {
		s.PriceID = *p.PriceID
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.CurrentPeriodStart != nil {
		s.CurrentPeriodStart = copyTime(p.CurrentPeriodStart)
	}
	if p.CurrentPeriodEnd != nil {
		s.CurrentPeriodEnd = copyTime(p.CurrentPeriodEnd)
	}
	if p.CancelAtPeriodEnd != nil {
		s.CancelAtPeriodEnd = *p.CancelAtPeriodEnd
	}
	if p.TransferID != nil {
		v := *p.TransferID
		s.TransferID = &v
	}
	if p.PaymentStatus != nil {
		s.PaymentStatus = *p.PaymentStatus
	}
	if p.FailureReason != nil {
		v := *p.FailureReason
		s.FailureReason = &v
	}
	if p.LastPaymentAt != nil {
		s.LastPaymentAt = copyTime(p.LastPaymentAt)
	}
	if p.LastPaymentAttemptAt != nil {
		s.LastPaymentAttemptAt = copyTime(p.LastPaymentAttemptAt)
	}
	if p.StatusUpdatedAt != nil {
		s.StatusUpdatedAt = copyTime(p.StatusUpdatedAt)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefStatus(s *types.SubscriptionStatus) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func derefPaymentStatus(s *types.PaymentStatus) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func copyTime(t *time.Time) *time.Time {
	v := t.UTC()
	return &v
}
