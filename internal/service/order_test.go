package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/payment"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

type stubProvider struct {
	input *payment.IntentInput
	err   error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) CreateIntent(_ context.Context, input *payment.IntentInput) (*payment.Intent, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &payment.Intent{ID: "pi_1", ClientSecret: "someRandomValue", Amount: input.Amount}, nil
}

func newTestOrderService(orders *mockOrderRepository, products *mockProductRepository, provider payment.Provider) *OrderService {
	return NewOrderService(orders, products, provider, "usd", newTestProducer(), newTestLogger())
}

func sampleOrder() *domain.Order {
	return &domain.Order{ID: "order-1", UserID: "user-1", Status: domain.OrderStatusPending}
}

func TestCreateOrder_Success(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	provider := &stubProvider{}
	svc := newTestOrderService(orders, products, provider)
	ctx := context.Background()

	lamp := &domain.Product{ID: "prod-2", Name: "Lamp", Price: 1000, Image: "/uploads/lamp.jpg"}
	products.On("GetByID", ctx, "prod-1").Return(sampleProduct(), nil)
	products.On("GetByID", ctx, "prod-2").Return(lamp, nil)
	orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := svc.CreateOrder(ctx, aliceIdentity, &CreateOrderInput{
		Items:       []CartItemInput{{ProductID: "prod-1", Amount: 2}, {ProductID: "prod-2", Amount: 1}},
		Tax:         499,
		ShippingFee: 799,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2*2599+1000), order.Subtotal)
	assert.Equal(t, int64(2*2599+1000+499+799), order.Total)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "someRandomValue", order.ClientSecret)
	assert.Equal(t, "user-1", order.UserID)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Accent Chair", order.Items[0].Name)
	assert.Equal(t, order.Total, provider.input.Amount)
	assert.Equal(t, "usd", provider.input.Currency)
	orders.AssertExpectations(t)
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateOrderInput
	}{
		{"empty cart", CreateOrderInput{Tax: 1, ShippingFee: 1}},
		{"missing tax", CreateOrderInput{Items: []CartItemInput{{ProductID: "prod-1", Amount: 1}}, ShippingFee: 1}},
		{"missing shipping", CreateOrderInput{Items: []CartItemInput{{ProductID: "prod-1", Amount: 1}}, Tax: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := new(mockProductRepository)
			svc := newTestOrderService(new(mockOrderRepository), products, &stubProvider{})

			_, err := svc.CreateOrder(context.Background(), aliceIdentity, &tt.input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestOrderService(orders, products, &stubProvider{})
	ctx := context.Background()

	products.On("GetByID", ctx, "nope").Return(nil, apperrors.NotFound("product", "nope"))

	_, err := svc.CreateOrder(ctx, aliceIdentity, &CreateOrderInput{
		Items: []CartItemInput{{ProductID: "nope", Amount: 1}}, Tax: 1, ShippingFee: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_PaymentUnavailable(t *testing.T) {
	orders := new(mockOrderRepository)
	products := new(mockProductRepository)
	svc := newTestOrderService(orders, products, &stubProvider{err: apperrors.ServiceUnavailable("breaker open")})
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(sampleProduct(), nil)

	_, err := svc.CreateOrder(ctx, aliceIdentity, &CreateOrderInput{
		Items: []CartItemInput{{ProductID: "prod-1", Amount: 1}}, Tax: 1, ShippingFee: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_PaymentError(t *testing.T) {
	products := new(mockProductRepository)
	svc := newTestOrderService(new(mockOrderRepository), products, &stubProvider{err: errors.New("tls handshake timeout")})
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(sampleProduct(), nil)

	_, err := svc.CreateOrder(ctx, aliceIdentity, &CreateOrderInput{
		Items: []CartItemInput{{ProductID: "prod-1", Amount: 1}}, Tax: 1, ShippingFee: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestGetOrder_Permissions(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestOrderService(orders, new(mockProductRepository), &stubProvider{})
	ctx := context.Background()

	orders.On("GetByID", ctx, "order-1").Return(sampleOrder(), nil)

	_, err := svc.GetOrder(ctx, aliceIdentity, "order-1")
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, adminIdentity, "order-1")
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, bobIdentity, "order-1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestListMyOrders(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestOrderService(orders, new(mockProductRepository), &stubProvider{})
	ctx := context.Background()

	orders.On("ListByUser", ctx, "user-2").Return([]domain.Order{}, nil)

	got, err := svc.ListMyOrders(ctx, bobIdentity)
	require.NoError(t, err)
	assert.Empty(t, got)
	orders.AssertExpectations(t)
}

func TestPayOrder_Success(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestOrderService(orders, new(mockProductRepository), &stubProvider{})
	ctx := context.Background()

	paid := sampleOrder()
	paid.Status = domain.OrderStatusPaid
	paid.PaymentIntentID = "pi_1"

	orders.On("GetByID", ctx, "order-1").Return(sampleOrder(), nil)
	orders.On("MarkPaid", ctx, "order-1", "pi_1", mock.AnythingOfType("time.Time")).Return(paid, nil)

	got, err := svc.PayOrder(ctx, aliceIdentity, "order-1", "pi_1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)
	orders.AssertExpectations(t)
}

func TestPayOrder_NonOwner(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := newTestOrderService(orders, new(mockProductRepository), &stubProvider{})
	ctx := context.Background()

	orders.On("GetByID", ctx, "order-1").Return(sampleOrder(), nil)

	_, err := svc.PayOrder(ctx, bobIdentity, "order-1", "pi_1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPayOrder_MissingIntent(t *testing.T) {
	svc := newTestOrderService(new(mockOrderRepository), new(mockProductRepository), &stubProvider{})

	_, err := svc.PayOrder(context.Background(), aliceIdentity, "order-1", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
