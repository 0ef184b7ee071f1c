package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bakery_tracker/internal/models"
	"bakery_tracker/internal/repository"

	"github.com/shopspring/decimal"
)

type CatalogService interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	AddProduct(ctx context.Context, name string, unitPrice string) (*models.Product, error)
	SetPrice(ctx context.Context, name string, unitPrice string) (*models.Product, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
}

func NewCatalogService(productRepo repository.ProductRepository) CatalogService {
	return &catalogService{productRepo: productRepo}
}

func (s *catalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.productRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return products, nil
}

func (s *catalogService) AddProduct(ctx context.Context, name string, unitPrice string) (*models.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty product name", ErrUnknownProduct)
	}
	price, err := parseAmount(unitPrice)
	if err != nil {
		return nil, err
	}

	product := &models.Product{Name: name, UnitPrice: price, IsActive: true}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return product, nil
}

// SetPrice changes the catalog price. Existing orders keep their own copy.
func (s *catalogService) SetPrice(ctx context.Context, name string, unitPrice string) (*models.Product, error) {
	price, err := parseAmount(unitPrice)
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, name)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	product.UnitPrice = price
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return product, nil
}

// DefaultCatalog seeds a fresh store.
var DefaultCatalog = []models.Product{
	{Name: "pan", UnitPrice: decimal.RequireFromString("5.00"), IsActive: true},
	{Name: "pastel", UnitPrice: decimal.RequireFromString("20.00"), IsActive: true},
	{Name: "champurrada", UnitPrice: decimal.RequireFromString("1.50"), IsActive: true},
	{Name: "pan dulce", UnitPrice: decimal.RequireFromString("2.00"), IsActive: true},
	{Name: "galletas", UnitPrice: decimal.RequireFromString("3.00"), IsActive: true},
}
