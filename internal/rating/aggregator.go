// Package rating keeps a product's derived rating fields in line with its reviews.
package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/comfyhome/storefront/internal/domain"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
	"github.com/comfyhome/storefront/pkg/logger"
)

// Store reads a product's reviews and persists its aggregate.
// SaveAggregate returns an error matching apperrors.ErrNotFound when the
// product does not exist.
type Store interface {
	FindByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	SaveAggregate(ctx context.Context, productID string, agg domain.RatingAggregate) error
}

// Aggregator recomputes product ratings. It is safe for concurrent use but
// does not serialise recomputes of the same product: the last writer wins.
type Aggregator struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

// NewAggregator creates an Aggregator. metrics may be nil.
func NewAggregator(store Store, logger *slog.Logger, metrics *Metrics) *Aggregator {
	return &Aggregator{store: store, logger: logger, metrics: metrics}
}

// Compute derives the aggregate from reviews. The average is the mean rating
// rounded up to a whole number; no reviews gives a zero aggregate.
func Compute(reviews []domain.Review) domain.RatingAggregate {
	n := len(reviews)
	if n == 0 {
		return domain.RatingAggregate{}
	}

	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return domain.RatingAggregate{
		AverageRating: (sum + n - 1) / n,
		NumOfReviews:  n,
	}
}

// Recompute reads every review of productID, computes the aggregate and saves
// it on the product. A product that no longer exists is logged and skipped.
func (a *Aggregator) Recompute(ctx context.Context, productID string) (domain.RatingAggregate, error) {
	reviews, err := a.store.FindByProduct(ctx, productID)
	if err != nil {
		a.metrics.observe(outcomeError)
		return domain.RatingAggregate{}, fmt.Errorf("load reviews for product %s: %w", productID, err)
	}

	agg := Compute(reviews)

	if err := a.store.SaveAggregate(ctx, productID, agg); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			a.metrics.observe(outcomeMissingProduct)
			logger.WithContext(ctx, a.logger).WarnContext(ctx, "rating recompute skipped, product missing",
				slog.String("product_id", productID),
			)
			return agg, nil
		}
		a.metrics.observe(outcomeError)
		return domain.RatingAggregate{}, fmt.Errorf("save rating for product %s: %w", productID, err)
	}

	a.metrics.observe(outcomeUpdated)
	logger.WithContext(ctx, a.logger).DebugContext(ctx, "rating recomputed",
		slog.String("product_id", productID),
		slog.Int("average_rating", agg.AverageRating),
		slog.Int("num_of_reviews", agg.NumOfReviews),
	)
	return agg, nil
}
