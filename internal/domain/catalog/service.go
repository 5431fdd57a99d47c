package catalog

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// List returns the shop's products by name; inactive ones only when asked.
func (s *Service) List(ctx context.Context, shopName string, includeInactive bool) ([]Product, error) {
	return s.store.ListProducts(ctx, shopName, !includeInactive)
}

func (s *Service) Create(ctx context.Context, shopName string, in ProductInput) (Product, error) {
	p, err := newProduct(shopName, in)
	if err != nil {
		return Product{}, err
	}
	var out Product
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ensureUnique(ctx, shopName, p.Name, ""); err != nil {
			return err
		}
		out, err = s.store.CreateProduct(ctx, p)
		return err
	})
	return out, err
}

func (s *Service) Update(ctx context.Context, shopName, id string, in ProductUpdate) (Product, error) {
	var out Product
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.store.GetProduct(ctx, shopName, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return ErrNameRequired
			}
			if err := s.ensureUnique(ctx, shopName, name, p.ID); err != nil {
				return err
			}
			p.Name = name
		}
		if in.Type != nil {
			if !slices.Contains(Types, *in.Type) {
				return ErrInvalidType
			}
			p.Type = *in.Type
		}
		if in.Active != nil {
			p.Active = *in.Active
		}
		out, err = s.store.SaveProduct(ctx, p)
		return err
	})
	return out, err
}

// Deactivate hides a product from the active catalog. Orders keep their own
// copy of product lines, so nothing else changes.
func (s *Service) Deactivate(ctx context.Context, shopName, id string) (Product, error) {
	inactive := false
	return s.Update(ctx, shopName, id, ProductUpdate{Active: &inactive})
}

// Initialize adds every default product the shop does not have yet. It is
// safe to run more than once.
func (s *Service) Initialize(ctx context.Context, shopName string) (InitResult, error) {
	result := InitResult{Products: []Product{}}
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		for _, in := range Defaults {
			_, err := s.store.FindProduct(ctx, shopName, in.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrProductNotFound) {
				return err
			}
			p, _ := newProduct(shopName, in)
			created, err := s.store.CreateProduct(ctx, p)
			if err != nil {
				return err
			}
			result.Products = append(result.Products, created)
		}
		return nil
	})
	if err != nil {
		return InitResult{}, err
	}
	result.Created = len(result.Products)
	slog.Info("product catalog initialized", "shop", shopName, "created", result.Created)
	return result, nil
}

func (s *Service) ensureUnique(ctx context.Context, shopName, name, selfID string) error {
	existing, err := s.store.FindProduct(ctx, shopName, name)
	switch {
	case errors.Is(err, ErrProductNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return ErrDuplicateProduct
	}
	return nil
}

func newProduct(shopName string, in ProductInput) (Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Product{}, ErrNameRequired
	}
	typ := in.Type
	if typ == "" {
		typ = TypeQuantity
	}
	if !slices.Contains(Types, typ) {
		return Product{}, ErrInvalidType
	}
	return Product{ShopName: shopName, Name: name, Type: typ, Active: true}, nil
}
