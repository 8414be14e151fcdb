package payment

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "payment-test",
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      time.Hour,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

type failingProvider struct {
	err   error
	calls int
}

func (f *failingProvider) Name() string { return "failing" }

func (f *failingProvider) CreateIntent(context.Context, *IntentInput) (*Intent, error) {
	f.calls++
	return nil, f.err
}

// --- MockProvider ---

func TestMockProvider_CreateIntent(t *testing.T) {
	p := NewMockProvider("someRandomValue")

	intent, err := p.CreateIntent(context.Background(), &IntentInput{OrderID: "order-1", Amount: 6496})
	require.NoError(t, err)
	assert.Equal(t, "someRandomValue", intent.ClientSecret)
	assert.Equal(t, int64(6496), intent.Amount)
	assert.True(t, strings.HasPrefix(intent.ID, "pi_mock_"))
	assert.Equal(t, "mock", p.Name())
}

func TestMockProvider_RejectsNonPositiveAmount(t *testing.T) {
	_, err := NewMockProvider("s").CreateIntent(context.Background(), &IntentInput{Amount: 0})
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestMockProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockProvider("s").CreateIntent(ctx, &IntentInput{Amount: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

// --- BreakerProvider ---

func TestBreakerProvider_PassesThrough(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBreakerProvider(NewMockProvider("secret"), testBreakerConfig(), reg, testLogger())

	intent, err := b.CreateIntent(context.Background(), &IntentInput{Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, "secret", intent.ClientSecret)
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, "mock", b.Name())
}

func TestBreakerProvider_TripsAndShortCircuits(t *testing.T) {
	reg := prometheus.NewRegistry()
	next := &failingProvider{err: errors.New("connection refused")}
	b := NewBreakerProvider(next, testBreakerConfig(), reg, testLogger())

	for i := 0; i < 3; i++ {
		_, err := b.CreateIntent(context.Background(), &IntentInput{Amount: 100})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.CreateIntent(context.Background(), &IntentInput{Amount: 100})
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Equal(t, 3, next.calls, "open breaker must not call the provider")

	gauge, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, gauge, 1)
	assert.Equal(t, 2.0, gauge[0].GetMetric()[0].GetGauge().GetValue())
}

func TestBreakerProvider_PaymentRejectionDoesNotTrip(t *testing.T) {
	next := &failingProvider{err: apperrors.PaymentFailed("card declined")}
	b := NewBreakerProvider(next, testBreakerConfig(), nil, testLogger())

	for i := 0; i < 5; i++ {
		_, err := b.CreateIntent(context.Background(), &IntentInput{Amount: 100})
		assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerProvider_InitialGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewBreakerProvider(NewMockProvider("s"), testBreakerConfig(), reg, testLogger())

	n, err := testutil.GatherAndCount(reg, "circuit_breaker_state")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
