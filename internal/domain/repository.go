package domain

import (
	"context"
	"errors"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the contract for product storage.
//
// Update and Delete succeed when no product matches the id; callers cannot
// tell a no-op from a change.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	FindAll(ctx context.Context) ([]*Product, error)
	Update(ctx context.Context, id string, update ProductUpdate) error
	Delete(ctx context.Context, id string) error
}
