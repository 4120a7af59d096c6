package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AvailabilityStatus is the stock state shown on the storefront.
type AvailabilityStatus string

const (
	AvailabilityIn       AvailabilityStatus = "in"
	AvailabilityOut      AvailabilityStatus = "out"
	AvailabilityPreorder AvailabilityStatus = "preorder"
)

// Valid reports whether s is one of the known availability states.
func (s AvailabilityStatus) Valid() bool {
	switch s {
	case AvailabilityIn, AvailabilityOut, AvailabilityPreorder:
		return true
	}
	return false
}

// Category represents a product category in the system.
// Categories are never removed; IsActive=false hides them from the storefront.
type Category struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Link      string    `json:"link"`
	Image     *string   `json:"image,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Variant is a purchasable SKU of a product.
type Variant struct {
	VariantID string          `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
}

// Product is the base catalog row.
type Product struct {
	ID              int64              `json:"id"`
	Title           string             `json:"title"`
	Slug            string             `json:"slug"`
	Description     string             `json:"description"`
	GeneralCategory string             `json:"generalCategory"`
	Vendor          string             `json:"vendor"`
	FreeShipping    bool               `json:"freeShipping"`
	Available       AvailabilityStatus `json:"available"`
	Sold            int                `json:"sold"`
	ItemsInStock    int                `json:"itemsInStock"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// ProductSummary is the card shape used by listings, buy-together and related products.
// Price holds [min, max] over the product's variants, empty when there are none.
type ProductSummary struct {
	ID       int64             `json:"id"`
	Title    string            `json:"title"`
	Slug     string            `json:"slug,omitempty"`
	Vendor   string            `json:"vendor,omitempty"`
	Images   []string          `json:"images"`
	Variants []Variant         `json:"variants"`
	Price    []decimal.Decimal `json:"price"`
}

// ProductDetail is the full product page view.
type ProductDetail struct {
	Product
	Features        []string          `json:"features"`
	Categories      []string          `json:"categories"`
	Images          []string          `json:"images"`
	Variants        []Variant         `json:"variants"`
	Price           []decimal.Decimal `json:"price"`
	BuyTogether     []ProductSummary  `json:"buyTogether"`
	RelatedProducts []ProductSummary  `json:"relatedProducts"`
}

// ProductInput carries the base product fields of a create/update payload.
type ProductInput struct {
	Title           string             `json:"title" validate:"required"`
	Slug            string             `json:"slug" validate:"required"`
	Description     string             `json:"description" validate:"required"`
	GeneralCategory string             `json:"generalCategory" validate:"required"`
	Vendor          string             `json:"vendor" validate:"required"`
	FreeShipping    *bool              `json:"freeShipping" validate:"required"`
	Available       AvailabilityStatus `json:"available" validate:"omitempty,oneof=in out preorder"`
	ItemsInStock    *int               `json:"itemsInStock" validate:"required,gte=0"`
}

// VariantInput is one variant in a product payload.
type VariantInput struct {
	VariantID string           `json:"variantId" validate:"required"`
	Title     string           `json:"title" validate:"required"`
	Price     *decimal.Decimal `json:"price" validate:"required,gt=0"`
}

// ProductPayload is the full create/update body. Relations are replaced wholesale.
// BuyTogether's limit matches store.MaxBuyTogether.
type ProductPayload struct {
	Product     *ProductInput  `json:"product" validate:"required"`
	Variants    []VariantInput `json:"variants" validate:"required,min=1,dive"`
	Categories  []string       `json:"categories" validate:"required,min=1,dive,required"`
	Images      []string       `json:"images" validate:"required,min=1,dive,required"`
	Features    []string       `json:"features" validate:"required,min=1,dive,required"`
	BuyTogether []int64        `json:"buyTogether" validate:"unique,max=2,dive,gt=0"`
}

// Pagination describes one page of a filtered listing.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
}

// ProductPage is a page of category products.
type ProductPage struct {
	Products   []ProductSummary `json:"products"`
	Pagination Pagination       `json:"pagination"`
}
