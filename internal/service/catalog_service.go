package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CatalogService handles product browsing and admin stock management
type CatalogService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(st *store.Store) *CatalogService {
	return &CatalogService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// ListProducts returns active products, optionally filtered by category
func (s *CatalogService) ListProducts(ctx context.Context, category string) ([]models.Product, error) {
	return s.store.ListProducts(ctx, category)
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.store.GetProductByID(ctx, id)
}

// CreateProduct adds a catalog item (admin)
func (s *CatalogService) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.SKU == "" || p.Name == "" {
		return fmt.Errorf("%w: sku and name are required", ErrValidation)
	}
	if p.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}

	if err := s.store.CreateProduct(ctx, p); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", p.ID),
		zap.String("sku", p.SKU))
	return nil
}

// UpdateProduct updates a catalog item (admin)
func (s *CatalogService) UpdateProduct(ctx context.Context, p *models.Product) error {
	if p.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	return s.store.UpdateProduct(ctx, p)
}

// ListLowStock lists products at or below the stock threshold (admin dashboard)
func (s *CatalogService) ListLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	if threshold <= 0 {
		threshold = 5
	}
	return s.store.ListLowStockProducts(ctx, threshold)
}
