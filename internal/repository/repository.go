package repository

import (
	"context"
	"time"

	"github.com/comfyhome/storefront/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	Category *string
	Company  *string
	Featured *bool
	Search   *string
	Page     int
	PerPage  int
}

// UserRepository defines persistence for accounts.
type UserRepository interface {
	// Create inserts u. The first account ever created is stored as admin
	// regardless of u.Role; u.Role is updated to the stored value.
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id, name, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// ProductRepository defines persistence for catalog items.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	Update(ctx context.Context, p *domain.Product) error
	// Delete removes the product and all of its reviews atomically.
	Delete(ctx context.Context, id string) error
}

// ReviewRepository defines persistence for reviews and the product rating
// fields derived from them.
type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	List(ctx context.Context) ([]domain.ReviewWithProduct, error)
	Update(ctx context.Context, r *domain.Review) error
	Delete(ctx context.Context, id string) error

	// FindByProduct returns every review of the product.
	FindByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	// SaveAggregate writes the derived rating fields of the product.
	SaveAggregate(ctx context.Context, productID string, agg domain.RatingAggregate) error
}

// OrderRepository defines persistence for orders.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	MarkPaid(ctx context.Context, id, paymentIntentID string, at time.Time) (*domain.Order, error)
}
