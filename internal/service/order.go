package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/comfyhome/storefront/internal/access"
	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/event"
	"github.com/comfyhome/storefront/internal/payment"
	"github.com/comfyhome/storefront/internal/repository"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

// CartItemInput is one requested order line.
type CartItemInput struct {
	ProductID string
	Amount    int
}

// CreateOrderInput holds the parameters for placing an order.
type CreateOrderInput struct {
	Items       []CartItemInput
	Tax         int64
	ShippingFee int64
}

// OrderService implements order placement and the payment handoff.
type OrderService struct {
	repo     repository.OrderRepository
	products repository.ProductRepository
	payments payment.Provider
	currency string
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	repo repository.OrderRepository,
	products repository.ProductRepository,
	payments payment.Provider,
	currency string,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		repo:     repo,
		products: products,
		payments: payments,
		currency: currency,
		producer: producer,
		logger:   logger,
	}
}

// CreateOrder snapshots the requested products, totals the order, creates a
// payment intent and stores the order as pending.
func (s *OrderService) CreateOrder(ctx context.Context, requester domain.Identity, input *CreateOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("no cart items provided")
	}
	if input.Tax <= 0 || input.ShippingFee <= 0 {
		return nil, apperrors.InvalidInput("please provide tax and shipping fee")
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Amount < 1 {
			return nil, apperrors.InvalidInput("item amount must be at least 1")
		}
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get ordered product: %w", err)
		}
		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Amount:    line.Amount,
		})
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:          uuid.New().String(),
		UserID:      requester.UserID,
		Items:       items,
		Tax:         input.Tax,
		ShippingFee: input.ShippingFee,
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	order.CalculateTotals()

	intent, err := s.payments.CreateIntent(ctx, &payment.IntentInput{
		OrderID:  order.ID,
		Amount:   order.Total,
		Currency: s.currency,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrServiceUnavail) || errors.Is(err, apperrors.ErrPaymentFailed) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "payment intent failed",
			slog.String("order_id", order.ID),
			slog.String("provider", s.payments.Name()),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.PaymentFailed("payment intent could not be created")
	}
	order.ClientSecret = intent.ClientSecret

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Int64("total", order.Total),
	)
	return order, nil
}

// ListOrders returns every order.
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListMyOrders returns the requester's orders.
func (s *OrderService) ListMyOrders(ctx context.Context, requester domain.Identity) ([]domain.Order, error) {
	orders, err := s.repo.ListByUser(ctx, requester.UserID)
	if err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns an order the requester owns.
func (s *OrderService) GetOrder(ctx context.Context, requester domain.Identity, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	if err := access.CheckPermissions(requester, order.UserID); err != nil {
		return nil, err
	}
	return order, nil
}

// PayOrder records the confirmed payment intent and marks the order paid.
func (s *OrderService) PayOrder(ctx context.Context, requester domain.Identity, id, paymentIntentID string) (*domain.Order, error) {
	if paymentIntentID == "" {
		return nil, apperrors.InvalidInput("please provide payment intent id")
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for payment: %w", err)
	}
	if err := access.CheckPermissions(requester, order.UserID); err != nil {
		return nil, err
	}

	paid, err := s.repo.MarkPaid(ctx, id, paymentIntentID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	if err := s.producer.PublishOrderPaid(ctx, paid); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.paid event",
			slog.String("order_id", paid.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order paid", slog.String("order_id", paid.ID))
	return paid, nil
}
