package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comfyhome/storefront/internal/service"
	"github.com/comfyhome/storefront/pkg/httputil"
	"github.com/comfyhome/storefront/pkg/validator"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CartItemRequest is one line of a checkout request.
type CartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Amount    int    `json:"amount" validate:"required,min=1"`
}

// CreateOrderRequest is the JSON request body for checkout. Cart contents are
// checked by the service so an empty cart gets its own message.
type CreateOrderRequest struct {
	Items       []CartItemRequest `json:"items" validate:"dive"`
	Tax         int64             `json:"tax"`
	ShippingFee int64             `json:"shipping_fee"`
}

// PayOrderRequest is the JSON request body for confirming payment.
type PayOrderRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

// --- Handlers ---

// ListOrders handles GET /api/v1/orders. Admin only.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, orders)
}

// ListMyOrders handles GET /api/v1/orders/showAllMyOrders.
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	requester, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListMyOrders(r.Context(), requester)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/orders/{id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requester, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), requester, id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// CreateOrder handles POST /api/v1/orders.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requester, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	items := make([]service.CartItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.CartItemInput{ProductID: it.ProductID, Amount: it.Amount})
	}

	order, err := h.service.CreateOrder(r.Context(), requester, &service.CreateOrderInput{
		Items:       items,
		Tax:         req.Tax,
		ShippingFee: req.ShippingFee,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, order)
}

// PayOrder handles PATCH /api/v1/orders/{id}.
func (h *OrderHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	requester, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	var req PayOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.PayOrder(r.Context(), requester, id.String(), req.PaymentIntentID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}
