package types

type PaymentProvider string

const (
	// PaymentProviderStripe is the card-subscription billing processor.
	PaymentProviderStripe PaymentProvider = "stripe"
	// PaymentProviderMoov is the ACH / push-payment transfer processor.
	PaymentProviderMoov PaymentProvider = "moov"
)

type PlanInterval string

const (
	PlanIntervalMonth PlanInterval = "month"
	PlanIntervalYear  PlanInterval = "year"
)

// Plan is a sellable subscription plan. PriceID references the billing
// processor's price object; Amount is in minor units.
type Plan struct {
	ID       string       `json:"id" mapstructure:"id"`
	Name     string       `json:"name" mapstructure:"name"`
	PriceID  string       `json:"price_id" mapstructure:"price_id"`
	Amount   int64        `json:"amount" mapstructure:"amount"`
	Currency string       `json:"currency" mapstructure:"currency"`
	Interval PlanInterval `json:"interval" mapstructure:"interval"`
}
