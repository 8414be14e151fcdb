package domain

import "time"

// Review is one user's rating of one product. A user reviews a product at most once.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewWithProduct is a review together with a summary of its product.
type ReviewWithProduct struct {
	Review
	Product ProductSummary `json:"product"`
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// RatingAggregate is the derived rating of a product.
type RatingAggregate struct {
	AverageRating int `json:"average_rating"`
	NumOfReviews  int `json:"num_of_reviews"`
}
