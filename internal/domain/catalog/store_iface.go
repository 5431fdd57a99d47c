package catalog

import "context"

type StoreAPI interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListProducts(ctx context.Context, shopName string, activeOnly bool) ([]Product, error)
	GetProduct(ctx context.Context, shopName, id string) (Product, error)
	// FindProduct matches the name case-insensitively.
	FindProduct(ctx context.Context, shopName, name string) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	SaveProduct(ctx context.Context, p Product) (Product, error)
}
