package postgres

import (
	"context"
	"fmt"

	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/pkg/database"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

const reviewColumns = `id, product_id, user_id, rating, title, comment, created_at, updated_at`

// ReviewRepository implements repository.ReviewRepository and the rating
// aggregator's store using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review. A second review by the same user for the same
// product is rejected by the (product_id, user_id) unique index.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, title, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.ProductID,
		review.UserID,
		review.Rating,
		review.Title,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("review", "product_id", review.ProductID)
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(reviewFields(&rv)...)
	if err != nil {
		if isNoRow(err) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &rv, nil
}

// List returns every review joined with a summary of its product.
func (r *ReviewRepository) List(ctx context.Context) ([]domain.ReviewWithProduct, error) {
	query := `
		SELECT r.id, r.product_id, r.user_id, r.rating, r.title, r.comment, r.created_at, r.updated_at,
		       p.id, p.name, p.price, p.company
		FROM reviews r
		JOIN products p ON p.id = r.product_id
		ORDER BY r.created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.ReviewWithProduct{}
	for rows.Next() {
		var rv domain.ReviewWithProduct
		dest := append(reviewFields(&rv.Review),
			&rv.Product.ID,
			&rv.Product.Name,
			&rv.Product.Price,
			&rv.Product.Company,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

// Update writes rating, title and comment. Product and owner never change.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews SET rating = $1, title = $2, comment = $3, updated_at = $4
		WHERE id = $5`

	ct, err := r.pool.Exec(ctx, query,
		review.Rating,
		review.Title,
		review.Comment,
		review.UpdatedAt,
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}
	return nil
}

// Delete removes a review by its ID.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

// FindByProduct returns every review attached to the product.
func (r *ReviewRepository) FindByProduct(ctx context.Context, productID string) (reviews []domain.Review, err error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`

	ctx, end := database.TraceQuery(ctx, "FindReviewsByProduct", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("find reviews by product: %w", err)
	}
	defer rows.Close()

	reviews = []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(reviewFields(&rv)...); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

// SaveAggregate writes the derived rating fields onto the product row.
func (r *ReviewRepository) SaveAggregate(ctx context.Context, productID string, agg domain.RatingAggregate) (err error) {
	query := `UPDATE products SET average_rating = $2, num_of_reviews = $3 WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "SaveRatingAggregate", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, productID, agg.AverageRating, agg.NumOfReviews)
	if err != nil {
		return fmt.Errorf("save rating aggregate: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", productID)
	}
	return nil
}

func reviewFields(rv *domain.Review) []any {
	return []any{
		&rv.ID,
		&rv.ProductID,
		&rv.UserID,
		&rv.Rating,
		&rv.Title,
		&rv.Comment,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	}
}
