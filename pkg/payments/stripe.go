package payments

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

// Intent is the subset of a Stripe payment intent the API exposes.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
}

// IntentCreator creates payment intents with the payment provider.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error)
}

type stripeClient struct {
	logger zerolog.Logger
}

// New configures the Stripe SDK with the secret key and returns a creator.
func New(secretKey string, logger zerolog.Logger) (IntentCreator, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key must be provided")
	}

	stripe.Key = secretKey

	return &stripeClient{
		logger: logger.With().Str("component", "stripe").Logger(),
	}, nil
}

func (s *stripeClient) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("failed to create payment intent: %w", err)
	}

	s.logger.Info().Str("intent_id", intent.ID).Int64("amount", intent.Amount).Msg("payment intent created")

	return Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
		Status:       string(intent.Status),
	}, nil
}
