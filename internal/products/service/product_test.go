package service

import (
	"context"
	"testing"
	"time"

	productserrors "atelier/internal/products/errors"
	"atelier/internal/products/validator"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/logger"
	"atelier/pkg/model"
)

type mockProductRepository struct {
	products []*model.Product
}

func (m *mockProductRepository) Create(ctx context.Context, product *model.Product) error {
	if product.ID == "" {
		product.ID = "6579a1b2c3d4e5f6a7b8c9b1"
	}
	product.CreatedAt = time.Now()
	stored := *product
	m.products = append(m.products, &stored)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, productserrors.ErrNotFound
}

func (m *mockProductRepository) FindAll(ctx context.Context, category string, limit int, offset int64) ([]*model.Product, error) {
	if category == "" {
		return m.products, nil
	}
	var out []*model.Product
	for _, p := range m.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepository) Update(ctx context.Context, id string, product *model.Product) error {
	for i, p := range m.products {
		if p.ID == id {
			stored := *product
			stored.ID = id
			m.products[i] = &stored
			return nil
		}
	}
	return productserrors.ErrNotFound
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	for i, p := range m.products {
		if p.ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return productserrors.ErrNotFound
}

func (m *mockProductRepository) Count(ctx context.Context, category string) (int64, error) {
	found, _ := m.FindAll(ctx, category, 0, 0)
	return int64(len(found)), nil
}

func (m *mockProductRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	for _, p := range m.products {
		if p.ID == id {
			if p.Stock < quantity {
				return productserrors.ErrInsufficientStock
			}
			p.Stock -= quantity
			p.SalesCount += int64(quantity)
			return nil
		}
	}
	return productserrors.ErrNotFound
}

func (m *mockProductRepository) IncrementStock(ctx context.Context, id string, quantity int) error {
	for _, p := range m.products {
		if p.ID == id {
			p.Stock += quantity
			p.SalesCount -= int64(quantity)
			return nil
		}
	}
	return productserrors.ErrNotFound
}

func (m *mockProductRepository) CategoryStatistics(ctx context.Context) ([]model.CategoryStat, error) {
	return []model.CategoryStat{}, nil
}

func newTestProductService(repo *mockProductRepository) ProductService {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	cfg := &config.Config{Log: log}
	return NewProductService(repo, validator.NewProductValidator(log), cfg)
}

func validProduct() *model.Product {
	return &model.Product{
		Name:        "Linen Shirt",
		Description: "Relaxed fit linen shirt",
		Price:       8900,
		Category:    model.ProductCategoryClothing,
		Stock:       10,
		Sizes:       []string{"S", "M", "L"},
	}
}

func TestCreate_Succeeds(t *testing.T) {
	repo := &mockProductRepository{}
	svc := newTestProductService(repo)

	p := validProduct()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.ID == "" {
		t.Error("expected an ID to be assigned")
	}
}

func TestCreate_ClothingRequiresSizes(t *testing.T) {
	repo := &mockProductRepository{}
	svc := newTestProductService(repo)

	p := validProduct()
	p.Sizes = nil

	err := svc.Create(context.Background(), p)
	if err == nil {
		t.Fatal("expected clothing without sizes to be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 400 {
		t.Errorf("expected status 400, got %d", appErr.HTTPStatus)
	}
}

func TestCreate_DiscountMustUndercutPrice(t *testing.T) {
	repo := &mockProductRepository{}
	svc := newTestProductService(repo)

	p := validProduct()
	p.DiscountPrice = p.Price + 100

	if err := svc.Create(context.Background(), p); err == nil {
		t.Fatal("expected discount above price to be rejected")
	}
}

func TestReserveStock_DecrementsAndCountsSales(t *testing.T) {
	repo := &mockProductRepository{}
	svc := newTestProductService(repo)

	p := validProduct()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	items := []model.LineItem{{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: 3}}
	if err := svc.ReserveStock(context.Background(), items); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	stored, err := svc.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Stock != 7 {
		t.Errorf("expected stock 7 after reservation, got %d", stored.Stock)
	}
	if stored.SalesCount != 3 {
		t.Errorf("expected sales count 3, got %d", stored.SalesCount)
	}
}

func TestReserveStock_InsufficientStock(t *testing.T) {
	repo := &mockProductRepository{}
	svc := newTestProductService(repo)

	p := validProduct()
	p.Stock = 2
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	items := []model.LineItem{{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: 5}}
	err := svc.ReserveStock(context.Background(), items)
	if err == nil {
		t.Fatal("expected insufficient stock to be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %q", appErr.Code)
	}

	// Nothing was decremented.
	stored, _ := svc.GetByID(context.Background(), p.ID)
	if stored.Stock != 2 {
		t.Errorf("expected stock untouched, got %d", stored.Stock)
	}
}

func TestReleaseStock_ReversesReservation(t *testing.T) {
	repo := &mockProductRepository{}
	svc := newTestProductService(repo)

	p := validProduct()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	items := []model.LineItem{{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: 4}}
	if err := svc.ReserveStock(context.Background(), items); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := svc.ReleaseStock(context.Background(), items); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	stored, err := svc.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Stock != 10 {
		t.Errorf("expected stock back at 10, got %d", stored.Stock)
	}
	if stored.SalesCount != 0 {
		t.Errorf("expected sales count back at 0, got %d", stored.SalesCount)
	}
}

func TestReserveStock_UnknownProduct(t *testing.T) {
	repo := &mockProductRepository{}
	svc := newTestProductService(repo)

	items := []model.LineItem{{ProductID: "6579a1b2c3d4e5f6a7b8c9ff", Name: "Ghost", UnitPrice: 100, Quantity: 1}}
	err := svc.ReserveStock(context.Background(), items)
	if err == nil {
		t.Fatal("expected unknown product to be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 400 {
		t.Errorf("expected status 400, got %d", appErr.HTTPStatus)
	}
}

func TestGetAll_FiltersByCategory(t *testing.T) {
	repo := &mockProductRepository{}
	svc := newTestProductService(repo)

	shirt := validProduct()
	if err := svc.Create(context.Background(), shirt); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	lamp := &model.Product{
		Name:        "Desk Lamp",
		Description: "Brass desk lamp",
		Price:       4500,
		Category:    "home",
		Stock:       4,
	}
	lamp.ID = "6579a1b2c3d4e5f6a7b8c9b2"
	if err := svc.Create(context.Background(), lamp); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	products, total, err := svc.GetAll(context.Background(), "home", 20, 0)
	if err != nil {
		t.Fatalf("get all failed: %v", err)
	}
	if total != 1 || len(products) != 1 {
		t.Fatalf("expected one home product, got total=%d len=%d", total, len(products))
	}
	if products[0].Name != "Desk Lamp" {
		t.Errorf("unexpected product %q", products[0].Name)
	}
}
