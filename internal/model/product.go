package model

import "time"

// DefaultImage is the shared placeholder recorded when a product has no uploaded image.
// It is never deleted from the asset store.
const DefaultImage = "no-image.png"

// Product is a catalog entry. Image holds a filename inside the asset store.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        *string   `json:"type"`
	Quantity    *int64    `json:"quantity"`
	Price       *float64  `json:"price"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasDefaultImage reports whether the product still points at the placeholder image.
func (p *Product) HasDefaultImage() bool {
	return p.Image == "" || p.Image == DefaultImage
}

// ProductInput carries the client-supplied fields for create and update.
// Image is either a data URI with a new picture, the currently stored filename, or empty.
type ProductInput struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Type        *string  `json:"type"`
	Quantity    *int64   `json:"quantity"`
	Price       *float64 `json:"price"`
	Image       string   `json:"image"`
}
