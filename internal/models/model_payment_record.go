package models

import (
	"time"

	"github.com/getdigitalpayments/paybridge/pkg/types"
)

// PaymentRecord is append-only. Exactly one of InvoiceID and TransferID is set.
type PaymentRecord struct {
	ID             string                    `gorm:"column:id;type:varchar(64);primaryKey" json:"id" firestore:"-"`
	InvoiceID      *string                   `gorm:"column:invoice_id;type:varchar(128)" json:"invoice_id,omitempty" firestore:"invoiceId,omitempty"`
	TransferID     *string                   `gorm:"column:transfer_id;type:varchar(128)" json:"transfer_id,omitempty" firestore:"transferId,omitempty"`
	SubscriptionID string                    `gorm:"column:subscription_id;type:varchar(128);index" json:"subscription_id" firestore:"subscriptionId"`
	UserID         *string                   `gorm:"column:user_id;type:varchar(128)" json:"user_id,omitempty" firestore:"userId,omitempty"`
	Amount         int64                     `gorm:"column:amount" json:"amount" firestore:"amount"`
	Currency       string                    `gorm:"column:currency;type:varchar(8)" json:"currency" firestore:"currency"`
	Status         types.PaymentRecordStatus `gorm:"column:status;type:varchar(32)" json:"status" firestore:"status"`
	CreatedAt      time.Time                 `gorm:"column:created_at;index" json:"created_at" firestore:"created"`
}

func (PaymentRecord) TableName() string { return "payment_record" }
