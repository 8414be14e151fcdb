package domain

import (
	"slices"
	"time"
)

// Product defaults applied on creation when the client omits a value.
const (
	DefaultProductImage     = "/uploads/example.jpg"
	DefaultProductInventory = 15
	DefaultProductColor     = "#222"
)

// Categories lists the allowed product categories.
var Categories = []string{"office", "kitchen", "bedroom"}

// Companies lists the allowed manufacturers.
var Companies = []string{"ikea", "liddy", "marcos"}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool { return slices.Contains(Categories, c) }

// ValidCompany reports whether c is a known company.
func ValidCompany(c string) bool { return slices.Contains(Companies, c) }

// Product is a catalog item. AverageRating and NumOfReviews are derived from
// the product's reviews and are only written by rating recomputation.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Price         int64     `json:"price"`
	Description   string    `json:"description"`
	Image         string    `json:"image"`
	Category      string    `json:"category"`
	Company       string    `json:"company"`
	Colors        []string  `json:"colors"`
	Featured      bool      `json:"featured"`
	FreeShipping  bool      `json:"free_shipping"`
	Inventory     int       `json:"inventory"`
	AverageRating int       `json:"average_rating"`
	NumOfReviews  int       `json:"num_of_reviews"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ApplyDefaults fills unset optional fields.
func (p *Product) ApplyDefaults() {
	if p.Image == "" {
		p.Image = DefaultProductImage
	}
	if len(p.Colors) == 0 {
		p.Colors = []string{DefaultProductColor}
	}
}

// ProductSummary is the product projection embedded in review listings.
type ProductSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	Company string `json:"company"`
}
