package types

import "time"

// SubscriptionStatus mirrors the billing processor's lifecycle values plus
// payment_failed, which is written by the transfer processor's webhooks.
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusPaymentFailed     SubscriptionStatus = "payment_failed"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentRecordStatus is the status of an append-only payment log entry.
type PaymentRecordStatus string

const (
	PaymentRecordStatusSucceeded PaymentRecordStatus = "succeeded"
	PaymentRecordStatusFailed    PaymentRecordStatus = "failed"
	PaymentRecordStatusCompleted PaymentRecordStatus = "completed"
)

// SubscriptionInfo is the live view of a subscription as reported by the
// billing processor.
type SubscriptionInfo struct {
	ID                 string             `json:"id"`
	Status             SubscriptionStatus `json:"status"`
	PriceID            string             `json:"priceId"`
	CurrentPeriodStart int64              `json:"currentPeriodStart"`
	CurrentPeriodEnd   int64              `json:"currentPeriodEnd"`
	Created            int64              `json:"created"`
	CancelAtPeriodEnd  bool               `json:"cancelAtPeriodEnd"`
}

// PeriodStartTime converts the unix seconds bound to a time, nil when unset.
func (s *SubscriptionInfo) PeriodStartTime() *time.Time {
	return unixPtr(s.CurrentPeriodStart)
}

func (s *SubscriptionInfo) PeriodEndTime() *time.Time {
	return unixPtr(s.CurrentPeriodEnd)
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
