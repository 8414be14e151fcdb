package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/repository"
	"github.com/comfyhome/storefront/pkg/database"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

const productColumns = `id, name, price, description, image, category, company, colors,
		featured, free_shipping, inventory, average_rating, num_of_reviews, user_id, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product. Rating fields always start at zero.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, price, description, image, category, company, colors,
		                      featured, free_shipping, inventory, average_rating, num_of_reviews,
		                      user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, 0, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Price,
		p.Description,
		p.Image,
		p.Category,
		p.Company,
		p.Colors,
		p.Featured,
		p.FreeShipping,
		p.Inventory,
		p.UserID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.AverageRating, p.NumOfReviews = 0, 0
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(productFields(&p)...)
	if err != nil {
		if isNoRow(err) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.Company != nil {
		conditions = append(conditions, fmt.Sprintf("company = $%d", argIndex))
		args = append(args, *filter.Company)
		argIndex++
	}

	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("featured = $%d", argIndex))
		args = append(args, *filter.Featured)
		argIndex++
	}

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s,
		       count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   = []domain.Product{}
		totalCount int
	)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(append(productFields(&p), &totalCount)...); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, totalCount, nil
}

// Update writes the editable fields of p. Owner and rating fields are left alone.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, price = $2, description = $3, image = $4, category = $5, company = $6,
		    colors = $7, featured = $8, free_shipping = $9, inventory = $10, updated_at = $11
		WHERE id = $12`

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.Price,
		p.Description,
		p.Image,
		p.Category,
		p.Company,
		p.Colors,
		p.Featured,
		p.FreeShipping,
		p.Inventory,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes the product together with its reviews in one transaction.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM reviews WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("delete product reviews: %w", err)
		}

		ct, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("product", id)
		}
		return nil
	})
}

func productFields(p *domain.Product) []any {
	return []any{
		&p.ID,
		&p.Name,
		&p.Price,
		&p.Description,
		&p.Image,
		&p.Category,
		&p.Company,
		&p.Colors,
		&p.Featured,
		&p.FreeShipping,
		&p.Inventory,
		&p.AverageRating,
		&p.NumOfReviews,
		&p.UserID,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}
