package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	productserrors "atelier/internal/products/errors"
	"atelier/internal/products/repository"
	"atelier/internal/products/validator"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/model"
	"atelier/pkg/sanitizer"
	"atelier/pkg/validate"
)

type ProductService interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	GetAll(ctx context.Context, category string, limit int, offset int64) ([]*model.Product, int64, error)
	Update(ctx context.Context, id string, product *model.Product) (*model.Product, error)
	Delete(ctx context.Context, id string) error
	ReserveStock(ctx context.Context, items []model.LineItem) error
	ReleaseStock(ctx context.Context, items []model.LineItem) error
	Statistics(ctx context.Context) ([]model.CategoryStat, error)
}

type productService struct {
	repo      repository.ProductRepository
	validator *validator.ProductValidator
	cfg       *config.Config
}

func NewProductService(repo repository.ProductRepository, validator *validator.ProductValidator, cfg *config.Config) ProductService {
	return &productService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *productService) Create(ctx context.Context, product *model.Product) error {
	s.sanitize(product)
	if err := s.validator.Validate(product); err != nil {
		return validationError(err)
	}

	if err := s.repo.Create(ctx, product); err != nil {
		s.cfg.Log.Error("Failed to create product", "name", product.Name, "error", err)
		return apperrors.Internal("Failed to create product", err)
	}

	s.cfg.Log.Info("Product created successfully", "id", product.ID, "name", product.Name)
	return nil
}

func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Product ID cannot be empty")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return product, nil
}

func (s *productService) GetAll(ctx context.Context, category string, limit int, offset int64) ([]*model.Product, int64, error) {
	var count int64
	var products []*model.Product
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, category)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count products", "error", errCount)
			errCount = apperrors.Internal("Failed to count products", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		products, errFind = s.repo.FindAll(ctx, category, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list products", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve products", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return products, count, nil
}

func (s *productService) Update(ctx context.Context, id string, product *model.Product) (*model.Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Product ID cannot be empty")
	}

	s.sanitize(product)
	if err := s.validator.Validate(product); err != nil {
		return nil, validationError(err)
	}

	if err := s.repo.Update(ctx, id, product); err != nil {
		if errors.Is(err, productserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Product", id)
		}
		if errors.Is(err, productserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid product ID format")
		}
		s.cfg.Log.Error("Failed to update product", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update product", err)
	}

	s.cfg.Log.Info("Product updated successfully", "id", id)
	product.ID = id
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Product ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, productserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Product", id)
		}
		if errors.Is(err, productserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid product ID format")
		}
		s.cfg.Log.Error("Failed to delete product", "id", id, "error", err)
		return apperrors.Internal("Failed to delete product", err)
	}

	s.cfg.Log.Info("Product deleted successfully", "id", id)
	return nil
}

// ReserveStock verifies every line item's product exists and takes its
// quantity from stock. Used by the order flow.
func (s *productService) ReserveStock(ctx context.Context, items []model.LineItem) error {
	for _, item := range items {
		product, err := s.repo.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, productserrors.ErrNotFound) || errors.Is(err, productserrors.ErrInvalidID) {
				return apperrors.InvalidInput(fmt.Sprintf("Unknown product: %s", item.ProductID))
			}
			return apperrors.Internal("Failed to verify product", err)
		}
		if product.Stock < item.Quantity {
			return apperrors.Conflict(fmt.Sprintf(
				"Insufficient stock for %s: %d requested, %d available",
				product.Name, item.Quantity, product.Stock))
		}
	}

	for _, item := range items {
		if err := s.repo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, productserrors.ErrInsufficientStock) {
				return apperrors.Conflict(fmt.Sprintf("Insufficient stock for product %s", item.ProductID))
			}
			return apperrors.Internal("Failed to reserve stock", err)
		}
	}
	return nil
}

// ReleaseStock puts reserved quantities back, reversing ReserveStock when
// the order they were taken for could not be completed. Every item is
// attempted even if one fails.
func (s *productService) ReleaseStock(ctx context.Context, items []model.LineItem) error {
	var firstErr error
	for _, item := range items {
		if err := s.repo.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.cfg.Log.Error("Failed to release stock",
				"product_id", item.ProductID,
				"quantity", item.Quantity,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return apperrors.Internal("Failed to release reserved stock", firstErr)
	}
	return nil
}

func (s *productService) Statistics(ctx context.Context) ([]model.CategoryStat, error) {
	stats, err := s.repo.CategoryStatistics(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate product statistics", "error", err)
		return nil, apperrors.Internal("Failed to compute product statistics", err)
	}
	return stats, nil
}

func (s *productService) sanitize(p *model.Product) {
	p.Name = sanitizer.Name(p.Name)
	p.Description = sanitizer.Text(p.Description)
}

func validationError(err error) error {
	var fieldErrs validate.FieldErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation("Product validation failed", fieldErrs.Details())
	}
	return apperrors.Validation("Product validation failed", map[string]any{"error": err.Error()})
}

func mapLookupError(err error, id string) error {
	if errors.Is(err, productserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Product", id)
	}
	if errors.Is(err, productserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid product ID format")
	}
	return apperrors.Internal("Failed to retrieve product", err)
}
