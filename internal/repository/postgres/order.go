package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/pkg/database"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

const orderColumns = `id, user_id, items, tax, shipping_fee, subtotal, total, status,
		client_secret, payment_intent_id, created_at, updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
// Line items are stored as a JSONB snapshot on the order row.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}

	query := `
		INSERT INTO orders (id, user_id, items, tax, shipping_fee, subtotal, total, status,
		                    client_secret, payment_intent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.pool.Exec(ctx, query,
		o.ID,
		o.UserID,
		itemsJSON,
		o.Tax,
		o.ShippingFee,
		o.Subtotal,
		o.Total,
		string(o.Status),
		o.ClientSecret,
		o.PaymentIntentID,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if isNoRow(err) {
		return nil, apperrors.NotFound("order", id)
	}
	return o, err
}

// List returns every order, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// ListByUser returns the orders placed by userID, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// MarkPaid records the payment intent and moves the order to paid.
func (r *OrderRepository) MarkPaid(ctx context.Context, id, paymentIntentID string, at time.Time) (*domain.Order, error) {
	query := `
		UPDATE orders SET status = $1, payment_intent_id = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + orderColumns

	o, err := scanOrder(r.pool.QueryRow(ctx, query, string(domain.OrderStatusPaid), paymentIntentID, at, id))
	if isNoRow(err) {
		return nil, apperrors.NotFound("order", id)
	}
	return o, err
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o         domain.Order
		itemsJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&itemsJSON,
		&o.Tax,
		&o.ShippingFee,
		&o.Subtotal,
		&o.Total,
		&status,
		&o.ClientSecret,
		&o.PaymentIntentID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if isNoRow(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.Status = domain.OrderStatus(status)
	if !o.Status.IsValid() {
		return nil, fmt.Errorf("scan order %s: unknown status %q", o.ID, status)
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	return &o, nil
}
