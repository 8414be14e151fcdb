package payment

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

// MockProvider is a payment provider that always succeeds and returns a
// fixed client secret. It is intended for development and testing.
type MockProvider struct {
	clientSecret string
}

// NewMockProvider creates a mock provider returning clientSecret on every intent.
func NewMockProvider(clientSecret string) *MockProvider {
	return &MockProvider{clientSecret: clientSecret}
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// CreateIntent returns a new intent for the requested amount.
func (p *MockProvider) CreateIntent(ctx context.Context, input *IntentInput) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, apperrors.PaymentFailed("amount must be positive")
	}

	return &Intent{
		ID:           "pi_mock_" + uuid.NewString(),
		ClientSecret: p.clientSecret,
		Amount:       input.Amount,
	}, nil
}
