package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/comfyhome/storefront/internal/repository"
	"github.com/comfyhome/storefront/internal/service"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
	"github.com/comfyhome/storefront/pkg/httputil"
	"github.com/comfyhome/storefront/pkg/pagination"
	"github.com/comfyhome/storefront/pkg/validator"
)

// multipart bodies carry some overhead on top of the image itself.
const maxUploadBody = service.MaxImageBytes + 64<<10

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name         string   `json:"name" validate:"required,max=50"`
	Price        int64    `json:"price" validate:"gte=0"`
	Description  string   `json:"description" validate:"required,max=1000"`
	Image        string   `json:"image"`
	Category     string   `json:"category" validate:"required"`
	Company      string   `json:"company" validate:"required"`
	Colors       []string `json:"colors" validate:"omitempty,dive,hexcolor"`
	Featured     bool     `json:"featured"`
	FreeShipping bool     `json:"free_shipping"`
	Inventory    *int     `json:"inventory" validate:"omitempty,gte=0"`
}

// UpdateProductRequest is the JSON request body for a partial product update.
type UpdateProductRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=50"`
	Price        *int64   `json:"price" validate:"omitempty,gte=0"`
	Description  *string  `json:"description" validate:"omitempty,max=1000"`
	Image        *string  `json:"image"`
	Category     *string  `json:"category"`
	Company      *string  `json:"company"`
	Colors       []string `json:"colors" validate:"omitempty,dive,hexcolor"`
	Featured     *bool    `json:"featured"`
	FreeShipping *bool    `json:"free_shipping"`
	Inventory    *int     `json:"inventory" validate:"omitempty,gte=0"`
}

// ImageResponse is the body returned by the image upload endpoint.
type ImageResponse struct {
	Image string `json:"image"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := repository.ProductFilter{Page: params.Page, PerPage: params.PerPage}

	q := r.URL.Query()
	if v := q.Get("category"); v != "" {
		filter.Category = &v
	}
	if v := q.Get("company"); v != "" {
		filter.Company = &v
	}
	if v := q.Get("search"); v != "" {
		filter.Search = &v
	}
	if v := q.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("featured must be true or false"), h.logger)
			return
		}
		filter.Featured = &featured
	}

	result, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// GetProduct handles GET /api/v1/products/{id}.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// ListProductReviews handles GET /api/v1/products/{id}/reviews.
func (h *ProductHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	reviews, err := h.service.ListProductReviews(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, reviews)
}

// CreateProduct handles POST /api/v1/products. Admin only.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	requester, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), requester, &service.CreateProductInput{
		Name:         req.Name,
		Price:        req.Price,
		Description:  req.Description,
		Image:        req.Image,
		Category:     req.Category,
		Company:      req.Company,
		Colors:       req.Colors,
		Featured:     req.Featured,
		FreeShipping: req.FreeShipping,
		Inventory:    req.Inventory,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, product)
}

// UpdateProduct handles PATCH /api/v1/products/{id}. Admin only.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	requester, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), requester, id.String(), &service.UpdateProductInput{
		Name:         req.Name,
		Price:        req.Price,
		Description:  req.Description,
		Image:        req.Image,
		Category:     req.Category,
		Company:      req.Company,
		Colors:       req.Colors,
		Featured:     req.Featured,
		FreeShipping: req.FreeShipping,
		Inventory:    req.Inventory,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/products/{id}. Admin only.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	requester, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), requester, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, MessageResponse{Message: "product removed"})
}

// UploadImage handles POST /api/v1/products/uploadImage. Admin only. The
// image is read from the multipart field "image".
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, r, apperrors.InvalidInput("please upload an image smaller than 1MB"), h.logger)
			return
		}
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid multipart upload"), h.logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("no file uploaded"), h.logger)
		return
	}
	defer file.Close()

	url, err := h.service.UploadImage(r.Context(), &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        file,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, ImageResponse{Image: url})
}
