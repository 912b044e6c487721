package repository

import (
	"context"

	"catalogapi/internal/model"
)

// ProductRepository defines data access for products. No business logic here.
type ProductRepository interface {
	// Create inserts a new product row and returns the stored record.
	Create(ctx context.Context, p *model.Product) (*model.Product, error)

	// FindByID returns a product by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// List returns one page of products, newest first, and the total count matching the filter.
	List(ctx context.Context, f ProductFilter) (*PageResult[model.Product], error)

	// Update overwrites the mutable columns of an existing row. Returns sql.ErrNoRows when no row matched.
	Update(ctx context.Context, p *model.Product) error

	// Delete removes a product by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// ProductFilter narrows List. An empty Search matches every product.
type ProductFilter struct {
	Search string
	PageQuery
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
