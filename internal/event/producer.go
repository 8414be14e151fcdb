package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/comfyhome/storefront/internal/domain"
	pkgkafka "github.com/comfyhome/storefront/pkg/kafka"
	"github.com/comfyhome/storefront/pkg/logger"
)

// Kafka topics for storefront domain events.
const (
	TopicUserRegistered       = "ecommerce.user.registered"
	TopicReviewCreated        = "ecommerce.review.created"
	TopicReviewUpdated        = "ecommerce.review.updated"
	TopicReviewDeleted        = "ecommerce.review.deleted"
	TopicProductRatingUpdated = "ecommerce.product.rating_updated"
	TopicProductDeleted       = "ecommerce.product.deleted"
	TopicOrderCreated         = "ecommerce.order.created"
	TopicOrderPaid            = "ecommerce.order.paid"
)

// Aggregate types.
const (
	AggregateTypeUser    = "user"
	AggregateTypeReview  = "review"
	AggregateTypeProduct = "product"
	AggregateTypeOrder   = "order"
)

// SourceStorefront identifies events emitted by this service.
const SourceStorefront = "storefront"

// Publisher writes an event to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// ReviewData is the payload for review.created, review.updated and review.deleted.
type ReviewData struct {
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Rating    int    `json:"rating"`
}

// RatingUpdatedData is the payload for a product.rating_updated event.
type RatingUpdatedData struct {
	ProductID     string `json:"product_id"`
	AverageRating int    `json:"average_rating"`
	NumOfReviews  int    `json:"num_of_reviews"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ProductID string `json:"product_id"`
}

// OrderData is the payload for order.created and order.paid.
type OrderData struct {
	OrderID         string `json:"order_id"`
	UserID          string `json:"user_id"`
	Status          string `json:"status"`
	Total           int64  `json:"total"`
	ItemCount       int    `json:"item_count"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}

// Producer publishes storefront domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer. A nil publisher drops events.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Producer{publisher: publisher, logger: logger}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, AggregateTypeUser, UserRegisteredData{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role.String(),
	})
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, r.ID, AggregateTypeReview, reviewData(r))
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, r.ID, AggregateTypeReview, reviewData(r))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewDeleted, r.ID, AggregateTypeReview, reviewData(r))
}

// PublishRatingUpdated publishes a product.rating_updated event.
func (p *Producer) PublishRatingUpdated(ctx context.Context, productID string, agg domain.RatingAggregate) error {
	return p.publish(ctx, TopicProductRatingUpdated, productID, AggregateTypeProduct, RatingUpdatedData{
		ProductID:     productID,
		AverageRating: agg.AverageRating,
		NumOfReviews:  agg.NumOfReviews,
	})
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, productID string) error {
	return p.publish(ctx, TopicProductDeleted, productID, AggregateTypeProduct, ProductDeletedData{ProductID: productID})
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderCreated, o.ID, AggregateTypeOrder, orderData(o))
}

// PublishOrderPaid publishes an order.paid event.
func (p *Producer) PublishOrderPaid(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderPaid, o.ID, AggregateTypeOrder, orderData(o))
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event = event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func reviewData(r *domain.Review) ReviewData {
	return ReviewData{
		ReviewID:  r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		Rating:    r.Rating,
	}
}

func orderData(o *domain.Order) OrderData {
	return OrderData{
		OrderID:         o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		Total:           o.Total,
		ItemCount:       len(o.Items),
		PaymentIntentID: o.PaymentIntentID,
	}
}
