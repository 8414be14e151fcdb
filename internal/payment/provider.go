package payment

import "context"

// IntentInput holds the parameters for creating a payment intent.
type IntentInput struct {
	OrderID  string
	Amount   int64
	Currency string
}

// Intent is a payment intent created by the provider. The client secret is
// handed to the buyer to confirm the payment out of band.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
}

// Provider defines the interface for payment provider integrations.
type Provider interface {
	// Name returns the provider name (e.g., "mock").
	Name() string

	// CreateIntent registers a payment intent for the given amount.
	CreateIntent(ctx context.Context, input *IntentInput) (*Intent, error)
}
