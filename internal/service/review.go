package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comfyhome/storefront/internal/access"
	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/event"
	"github.com/comfyhome/storefront/internal/rating"
	"github.com/comfyhome/storefront/internal/repository"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	ProductID string
	Rating    int
	Title     string
	Comment   string
}

// UpdateReviewInput holds the parameters for updating a review.
type UpdateReviewInput struct {
	Rating  int
	Title   string
	Comment string
}

// ReviewService implements the business logic for review operations. Every
// successful write is followed by a rating recompute of the affected product.
type ReviewService struct {
	repo       repository.ReviewRepository
	products   repository.ProductRepository
	aggregator *rating.Aggregator
	producer   *event.Producer
	logger     *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	repo repository.ReviewRepository,
	products repository.ProductRepository,
	aggregator *rating.Aggregator,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		repo:       repo,
		products:   products,
		aggregator: aggregator,
		producer:   producer,
		logger:     logger,
	}
}

// CreateReview adds the requester's review of a product.
func (s *ReviewService) CreateReview(ctx context.Context, requester domain.Identity, input *CreateReviewInput) (*domain.Review, error) {
	if err := validateReview(input.Rating, input.Title, input.Comment); err != nil {
		return nil, err
	}

	if uuid.Validate(input.ProductID) != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("no product with id %s", input.ProductID))
	}
	if _, err := s.products.GetByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("no product with id %s", input.ProductID))
		}
		return nil, fmt.Errorf("get product for review: %w", err)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		ProductID: input.ProductID,
		UserID:    requester.UserID,
		Rating:    input.Rating,
		Title:     strings.TrimSpace(input.Title),
		Comment:   strings.TrimSpace(input.Comment),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.InvalidInput("already submitted review for this product")
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.recompute(ctx, review.ProductID); err != nil {
		return nil, err
	}

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logPublishError(ctx, event.TopicReviewCreated, review, err)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.String("user_id", review.UserID),
	)
	return review, nil
}

// GetReview returns a review by id.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return review, nil
}

// ListReviews returns every review with a summary of its product.
func (s *ReviewService) ListReviews(ctx context.Context) ([]domain.ReviewWithProduct, error) {
	reviews, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// UpdateReview changes rating, title and comment of a review the requester owns.
func (s *ReviewService) UpdateReview(ctx context.Context, requester domain.Identity, id string, input *UpdateReviewInput) (*domain.Review, error) {
	if err := validateReview(input.Rating, input.Title, input.Comment); err != nil {
		return nil, err
	}

	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review for update: %w", err)
	}
	if err := access.CheckPermissions(requester, review.UserID); err != nil {
		return nil, err
	}

	review.Rating = input.Rating
	review.Title = strings.TrimSpace(input.Title)
	review.Comment = strings.TrimSpace(input.Comment)
	review.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if err := s.recompute(ctx, review.ProductID); err != nil {
		return nil, err
	}

	if err := s.producer.PublishReviewUpdated(ctx, review); err != nil {
		s.logPublishError(ctx, event.TopicReviewUpdated, review, err)
	}

	s.logger.InfoContext(ctx, "review updated", slog.String("review_id", review.ID))
	return review, nil
}

// DeleteReview removes a review the requester owns.
func (s *ReviewService) DeleteReview(ctx context.Context, requester domain.Identity, id string) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review for delete: %w", err)
	}
	if err := access.CheckPermissions(requester, review.UserID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if err := s.recompute(ctx, review.ProductID); err != nil {
		return err
	}

	if err := s.producer.PublishReviewDeleted(ctx, review); err != nil {
		s.logPublishError(ctx, event.TopicReviewDeleted, review, err)
	}

	s.logger.InfoContext(ctx, "review deleted", slog.String("review_id", review.ID))
	return nil
}

func (s *ReviewService) recompute(ctx context.Context, productID string) error {
	agg, err := s.aggregator.Recompute(ctx, productID)
	if err != nil {
		return fmt.Errorf("recompute rating: %w", err)
	}

	if err := s.producer.PublishRatingUpdated(ctx, productID, agg); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.rating_updated event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (s *ReviewService) logPublishError(ctx context.Context, topic string, review *domain.Review, err error) {
	s.logger.ErrorContext(ctx, "failed to publish review event",
		slog.String("topic", topic),
		slog.String("review_id", review.ID),
		slog.String("error", err.Error()),
	)
}

func validateReview(rating int, title, comment string) error {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	if strings.TrimSpace(title) == "" {
		return apperrors.InvalidInput("please provide review title")
	}
	if len(title) > 100 {
		return apperrors.InvalidInput("title must be at most 100 characters")
	}
	if strings.TrimSpace(comment) == "" {
		return apperrors.InvalidInput("please provide review text")
	}
	return nil
}
