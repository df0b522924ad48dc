package dto

// PaymentIntentRequest creates a Stripe payment intent for a task. Amount is
// the major-unit price; the service converts to minor units.
type PaymentIntentRequest struct {
	TaskID   uint    `json:"task_id" validate:"required"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"omitempty,len=3,alpha"`
}

// PaymentIntentResponse returns what the client needs to confirm the payment.
type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	IntentID     string `json:"intent_id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}
