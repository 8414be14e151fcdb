package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comfyhome/storefront/internal/access"
	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/event"
	"github.com/comfyhome/storefront/internal/rating"
	"github.com/comfyhome/storefront/internal/repository"
	"github.com/comfyhome/storefront/internal/storage"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
	"github.com/comfyhome/storefront/pkg/pagination"
)

// MaxImageBytes is the largest accepted product image.
const MaxImageBytes = 1 << 20

// ProductService implements the business logic for catalog operations.
type ProductService struct {
	repo       repository.ProductRepository
	reviews    repository.ReviewRepository
	aggregator *rating.Aggregator
	storage    storage.Storage
	producer   *event.Producer
	logger     *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	repo repository.ProductRepository,
	reviews repository.ReviewRepository,
	aggregator *rating.Aggregator,
	store storage.Storage,
	producer *event.Producer,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		repo:       repo,
		reviews:    reviews,
		aggregator: aggregator,
		storage:    store,
		producer:   producer,
		logger:     logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name         string
	Price        int64
	Description  string
	Image        string
	Category     string
	Company      string
	Colors       []string
	Featured     bool
	FreeShipping bool
	Inventory    *int
}

// UpdateProductInput holds the parameters for a partial product update.
type UpdateProductInput struct {
	Name         *string
	Price        *int64
	Description  *string
	Image        *string
	Category     *string
	Company      *string
	Colors       []string
	Featured     *bool
	FreeShipping *bool
	Inventory    *int
}

// ProductDetail is a product together with its reviews.
type ProductDetail struct {
	domain.Product
	Reviews []domain.Review `json:"reviews"`
}

// ImageUpload holds an uploaded product image.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// CreateProduct creates a product owned by the requester.
func (s *ProductService) CreateProduct(ctx context.Context, requester domain.Identity, input *CreateProductInput) (*domain.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if err := validateProductFields(input.Price, input.Category, input.Company, input.Inventory); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(input.Name),
		Price:        input.Price,
		Description:  input.Description,
		Image:        input.Image,
		Category:     input.Category,
		Company:      input.Company,
		Colors:       input.Colors,
		Featured:     input.Featured,
		FreeShipping: input.FreeShipping,
		Inventory:    domain.DefaultProductInventory,
		UserID:       requester.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.Inventory != nil {
		product.Inventory = *input.Inventory
	}
	product.ApplyDefaults()

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("user_id", product.UserID),
	)
	return product, nil
}

// GetProduct returns a product and its reviews.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*ProductDetail, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	reviews, err := s.reviews.FindByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product reviews: %w", err)
	}

	return &ProductDetail{Product: *product, Reviews: reviews}, nil
}

// ListProducts returns a page of products matching filter.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter) (pagination.Result[domain.Product], error) {
	params := pagination.Params{Page: filter.Page, PerPage: filter.PerPage}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return pagination.NewResult(products, total, params), nil
}

// ListProductReviews returns every review of an existing product.
func (s *ProductService) ListProductReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	reviews, err := s.reviews.FindByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product reviews: %w", err)
	}
	return reviews, nil
}

// UpdateProduct applies a partial update. Rating fields and the owner are
// never changed here.
func (s *ProductService) UpdateProduct(ctx context.Context, requester domain.Identity, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}
	if err := access.CheckPermissions(requester, product.UserID); err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Image != nil {
		product.Image = *input.Image
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Company != nil {
		product.Company = *input.Company
	}
	if input.Colors != nil {
		product.Colors = input.Colors
	}
	if input.Featured != nil {
		product.Featured = *input.Featured
	}
	if input.FreeShipping != nil {
		product.FreeShipping = *input.FreeShipping
	}
	if input.Inventory != nil {
		product.Inventory = *input.Inventory
	}

	if err := validateProductFields(product.Price, product.Category, product.Company, &product.Inventory); err != nil {
		return nil, err
	}
	product.ApplyDefaults()
	product.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", product.ID))
	return product, nil
}

// DeleteProduct removes a product and, atomically, all of its reviews.
func (s *ProductService) DeleteProduct(ctx context.Context, requester domain.Identity, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}
	if err := access.CheckPermissions(requester, product.UserID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	// The product is gone, so this only records the missing-product outcome.
	if _, err := s.aggregator.Recompute(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "rating recompute after product delete failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// UploadImage stores a product image and returns its URL.
func (s *ProductService) UploadImage(ctx context.Context, upload *ImageUpload) (string, error) {
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return "", apperrors.InvalidInput("please upload an image")
	}
	if upload.Size > MaxImageBytes {
		return "", apperrors.InvalidInput("please upload an image smaller than 1MB")
	}

	res, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         storage.NewKey(upload.Filename),
		ContentType: upload.ContentType,
		Size:        upload.Size,
		Data:        io.LimitReader(upload.Data, MaxImageBytes),
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	s.logger.InfoContext(ctx, "product image uploaded", slog.String("key", res.Key))
	return res.URL, nil
}

func validateProductFields(price int64, category, company string, inventory *int) error {
	if price < 0 {
		return apperrors.InvalidInput("price must not be negative")
	}
	if !domain.ValidCategory(category) {
		return apperrors.InvalidInput(fmt.Sprintf("category must be one of %s", strings.Join(domain.Categories, ", ")))
	}
	if !domain.ValidCompany(company) {
		return apperrors.InvalidInput(fmt.Sprintf("%s is not supported", company))
	}
	if inventory != nil && *inventory < 0 {
		return apperrors.InvalidInput("inventory must not be negative")
	}
	return nil
}
