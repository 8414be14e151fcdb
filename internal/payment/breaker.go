package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

// BreakerConfig holds configuration for the payment circuit breaker.
type BreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of requests allowed in the half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once reached, after MinRequests requests.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns defaults for the payment breaker.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "payment",
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// stateValue maps gobreaker states to gauge values.
func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerProvider wraps a Provider with circuit breaker protection. While the
// breaker is open, intents fail fast with a 503 application error.
type BreakerProvider struct {
	next    Provider
	breaker *gobreaker.CircuitBreaker[*Intent]
	state   prometheus.Gauge
	logger  *slog.Logger
}

// NewBreakerProvider wraps next. The state gauge is registered with reg when
// reg is non-nil.
func NewBreakerProvider(next Provider, cfg BreakerConfig, reg prometheus.Registerer, logger *slog.Logger) *BreakerProvider {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
	if reg != nil {
		reg.MustRegister(gauge)
	}
	state := gauge.WithLabelValues(cfg.Name)
	state.Set(0)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// A rejected payment is a valid answer from a healthy provider.
			return err == nil || errors.Is(err, apperrors.ErrPaymentFailed)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			state.Set(stateValue(to))
		},
	}

	return &BreakerProvider{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*Intent](settings),
		state:   state,
		logger:  logger,
	}
}

// Name returns the wrapped provider's name.
func (b *BreakerProvider) Name() string {
	return b.next.Name()
}

// CreateIntent runs the wrapped provider through the breaker.
func (b *BreakerProvider) CreateIntent(ctx context.Context, input *IntentInput) (*Intent, error) {
	intent, err := b.breaker.Execute(func() (*Intent, error) {
		return b.next.CreateIntent(ctx, input)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.WarnContext(ctx, "payment provider short-circuited",
			slog.String("provider", b.next.Name()),
			slog.String("order_id", input.OrderID),
		)
		return nil, apperrors.ServiceUnavailable("payment provider unavailable, try again later")
	}
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return intent, nil
}

// State returns the current breaker state.
func (b *BreakerProvider) State() gobreaker.State {
	return b.breaker.State()
}
