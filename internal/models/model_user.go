package models

import "time"

// User is keyed by the identity provider uid. Billing and payout references
// are set at most once each.
type User struct {
	ID                  string    `gorm:"column:id;type:varchar(128);primaryKey" json:"id" firestore:"-"`
	Email               string    `gorm:"column:email;type:varchar(255)" json:"email" firestore:"email,omitempty"`
	BillingCustomerID   *string   `gorm:"column:billing_customer_id;type:varchar(128);uniqueIndex" json:"billing_customer_id" firestore:"stripeCustomerId,omitempty"`
	PayoutAccountID     *string   `gorm:"column:payout_account_id;type:varchar(128);uniqueIndex" json:"payout_account_id" firestore:"moovAccountId,omitempty"`
	PayoutAccountStatus string    `gorm:"column:payout_account_status;type:varchar(64)" json:"payout_account_status" firestore:"moovAccountStatus,omitempty"`
	CreatedAt           time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt           time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) HasBillingCustomer() bool {
	return u != nil && u.BillingCustomerID != nil && *u.BillingCustomerID != ""
}

func (u *User) HasPayoutAccount() bool {
	return u != nil && u.PayoutAccountID != nil && *u.PayoutAccountID != ""
}
