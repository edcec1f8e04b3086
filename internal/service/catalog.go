package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const uploadURLPrefix = "/uploads/"

var categoryCode = regexp.MustCompile(`^[A-Z]{2,5}$`)

type CatalogService struct {
	Repo           *repo.GormRepo
	Search         search.Engine
	Store          storage.Store
	Events         events.Publisher
	DefaultVATRate decimal.Decimal
	MaxImageBytes  int64
}

func (s *CatalogService) CreateCategory(ctx context.Context, req transport.CategoryRequest) (*models.Category, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !categoryCode.MatchString(code) {
		return nil, invalidf("category code must be 2-5 letters")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}

	_, err := s.Repo.GetCategoryByCode(ctx, code)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: category %s already exists", ErrConflict, code)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	c := &models.Category{Code: code, Name: name, Description: strings.TrimSpace(req.Description)}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: category %s already exists", ErrConflict, code)
		}
		return nil, err
	}
	emit(ctx, s.Events, events.TopicCatalog, c.ID.String(), "category_created", map[string]any{"code": code})
	return c, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		return nil, notFound(err, "category")
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx)
}

func (s *CatalogService) PatchCategory(ctx context.Context, id uuid.UUID, req transport.PatchCategoryRequest) (*models.Category, error) {
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalidf("name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if _, err := s.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return s.GetCategory(ctx, id)
	}
	return s.Repo.UpdateCategory(ctx, id, updates)
}

// DeleteCategory refuses while any product still references the category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	n, err := s.Repo.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: category has %d products", ErrConflict, n)
	}

	deleted, err := s.Repo.DeleteCategory(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: category", ErrNotFound)
	}
	emit(ctx, s.Events, events.TopicCatalog, id.String(), "category_deleted", nil)
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return invalidf("price_excluding_vat must be >= 0")
	}
	if !price.Round(2).Equal(price) {
		return invalidf("price_excluding_vat has more than 2 decimals")
	}
	return nil
}

func validateVATRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return invalidf("vat_rate must be between 0 and 1")
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	if err := validatePrice(req.PriceExcludingVAT); err != nil {
		return nil, err
	}
	rate := s.DefaultVATRate
	if req.VATRate != nil {
		rate = *req.VATRate
	}
	if err := validateVATRate(rate); err != nil {
		return nil, err
	}
	if req.StockQuantity < 0 || req.LowStockThreshold < 0 {
		return nil, invalidf("stock_quantity and low_stock_threshold must be >= 0")
	}
	if req.CategoryID == uuid.Nil {
		return nil, invalidf("category_id is required")
	}

	p := &models.Product{
		Name:              name,
		Description:       strings.TrimSpace(req.Description),
		CategoryID:        req.CategoryID,
		PriceExcludingVAT: req.PriceExcludingVAT,
		VATRate:           rate,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          req.IsActive == nil || *req.IsActive,
	}

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cat, err := tx.GetCategory(ctx, req.CategoryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidf("category %s does not exist", req.CategoryID)
			}
			return err
		}
		n, err := tx.NextValue(ctx, "sku:"+cat.Code)
		if err != nil {
			return err
		}
		p.SKU = fmt.Sprintf("%s-%05d", cat.Code, n)
		return tx.CreateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.index(ctx, p)
	emit(ctx, s.Events, events.TopicCatalog, p.ID.String(), "product_created", map[string]any{
		"product_id": p.ID.String(),
		"sku":        p.SKU,
	})
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, f repo.ProductFilter, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, f, offset, limit)
}

func (s *CatalogService) PatchProduct(ctx context.Context, id uuid.UUID, req transport.PatchProductRequest) (*models.Product, error) {
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalidf("name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.PriceExcludingVAT != nil {
		if err := validatePrice(*req.PriceExcludingVAT); err != nil {
			return nil, err
		}
		updates["price_excluding_vat"] = *req.PriceExcludingVAT
	}
	if req.VATRate != nil {
		if err := validateVATRate(*req.VATRate); err != nil {
			return nil, err
		}
		updates["vat_rate"] = *req.VATRate
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, invalidf("low_stock_threshold must be >= 0")
		}
		updates["low_stock_threshold"] = *req.LowStockThreshold
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	p, err := s.Repo.UpdateProduct(ctx, id, updates)
	if err != nil {
		return nil, err
	}

	s.index(ctx, p)
	emit(ctx, s.Events, events.TopicCatalog, p.ID.String(), "product_updated", map[string]any{
		"product_id": p.ID.String(),
		"sku":        p.SKU,
	})
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.Repo.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: product", ErrNotFound)
	}

	l := logging.FromContext(ctx).With("svc", "catalog.delete_product")
	if s.Search != nil {
		if err := s.Search.DeleteProduct(ctx, id); err != nil {
			l.Warn("search_delete_error", "product_id", id, "error", err)
		}
	}
	s.removeImage(ctx, p.ImageURL)
	emit(ctx, s.Events, events.TopicCatalog, id.String(), "product_deleted", map[string]any{
		"product_id": id.String(),
		"sku":        p.SKU,
	})
	return nil
}

func (s *CatalogService) LowStock(ctx context.Context) ([]models.Product, error) {
	return s.Repo.LowStockProducts(ctx)
}

func (s *CatalogService) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	ok, err := s.Repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid(CodeInsufficientStock, "stock cannot go below zero")
	}

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	emit(ctx, s.Events, events.TopicCatalog, id.String(), "stock_adjusted", map[string]any{
		"product_id": id.String(),
		"delta":      delta,
		"stock":      p.StockQuantity,
	})
	return p, nil
}

func (s *CatalogService) UploadImage(ctx context.Context, id uuid.UUID, file io.Reader) (*models.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	key, _, err := s.Store.Save(ctx, "products", file, s.MaxImageBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrUnsupported) {
			return nil, invalidf("image rejected: %v", err)
		}
		return nil, err
	}

	updated, err := s.Repo.UpdateProduct(ctx, id, map[string]any{"image_url": uploadURLPrefix + key})
	if err != nil {
		_ = s.Store.Delete(ctx, key)
		return nil, err
	}
	s.removeImage(ctx, p.ImageURL)
	return updated, nil
}

// SearchProducts resolves q through the search engine and falls back to SQL matching
// when no engine is configured or it fails.
func (s *CatalogService) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, []models.Product{}, nil
	}

	if s.Search != nil {
		total, ids, err := s.Search.Search(ctx, q, offset, limit)
		if err == nil {
			found, err := s.Repo.GetProductsByIDs(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			byID := make(map[uuid.UUID]models.Product, len(found))
			for _, p := range found {
				byID[p.ID] = p
			}
			out := make([]models.Product, 0, len(ids))
			for _, id := range ids {
				if p, ok := byID[id]; ok && p.IsActive {
					out = append(out, p)
				}
			}
			return total, out, nil
		}
		logging.FromContext(ctx).Warn("search_fallback", "svc", "catalog.search", "error", err)
	}

	return s.Repo.ListProducts(ctx, repo.ProductFilter{Query: q, ActiveOnly: true}, offset, limit)
}

func (s *CatalogService) index(ctx context.Context, p *models.Product) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "svc", "catalog.index", "product_id", p.ID, "error", err)
	}
}

func (s *CatalogService) removeImage(ctx context.Context, url string) {
	if s.Store == nil || !strings.HasPrefix(url, uploadURLPrefix) {
		return
	}
	if err := s.Store.Delete(ctx, strings.TrimPrefix(url, uploadURLPrefix)); err != nil {
		logging.FromContext(ctx).Warn("image_delete_error", "svc", "catalog.remove_image", "error", err)
	}
}
