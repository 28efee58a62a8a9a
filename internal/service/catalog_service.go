package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-apotek-pos/internal/cache"
	"go-apotek-pos/internal/events"
	"go-apotek-pos/internal/importer"
	"go-apotek-pos/internal/model"
	"go-apotek-pos/internal/repository"
	"go-apotek-pos/pkg/validator"

	"github.com/google/uuid"
)

// DeletePolicy decides whether a product that appears in sale history may be deleted.
type DeletePolicy string

const (
	// DeleteAllow soft-deletes regardless of sale history. Sale lines keep
	// their price snapshot and still resolve the product row.
	DeleteAllow DeletePolicy = "allow"
	// DeleteGuard rejects deletion with ErrProductReferenced.
	DeleteGuard DeletePolicy = "guard"
)

// ParseDeletePolicy falls back to DeleteAllow for anything unrecognised.
func ParseDeletePolicy(s string) DeletePolicy {
	if DeletePolicy(strings.ToLower(strings.TrimSpace(s))) == DeleteGuard {
		return DeleteGuard
	}
	return DeleteAllow
}

type CatalogService interface {
	CreateProduct(ctx context.Context, row importer.Row, actor events.Actor) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, row importer.Row, actor events.Actor) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, actor events.Actor) error
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)

	CreateCategory(ctx context.Context, category *model.Category, actor events.Actor) error
	GetAllCategories(ctx context.Context) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateSupplier(ctx context.Context, supplier *model.Supplier, actor events.Actor) error
	GetAllSuppliers(ctx context.Context) ([]model.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	suppliers  repository.SupplierRepository
	publisher  events.Publisher
	reports    *cache.ReportCache
	policy     DeletePolicy
	log        *slog.Logger
}

func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	suppliers repository.SupplierRepository,
	publisher events.Publisher,
	reports *cache.ReportCache,
	policy DeletePolicy,
	log *slog.Logger,
) CatalogService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &catalogService{
		products:   products,
		categories: categories,
		suppliers:  suppliers,
		publisher:  publisher,
		reports:    reports,
		policy:     policy,
		log:        log,
	}
}

// buildProduct validates a normalized input and resolves its category and
// supplier. Explicit ids win over names; names go through the resolver.
func buildProduct(ctx context.Context, resolver *IdentityResolver, in importer.ProductInput, actor string) (*model.Product, error) {
	if verr := validator.First(in); verr != nil {
		return nil, &ValidationError{Field: verr.FailedField, Tag: verr.Tag}
	}

	categoryID := in.CategoryID
	if categoryID == nil && in.CategoryName != "" {
		id, err := resolver.Resolve(ctx, model.KindCategory, in.CategoryName)
		if err != nil {
			return nil, err
		}
		categoryID = &id
	}
	if categoryID == nil || *categoryID == uuid.Nil {
		return nil, ErrCategoryRequired
	}

	supplierID := in.SupplierID
	if supplierID == nil && in.SupplierName != "" {
		id, err := resolver.Resolve(ctx, model.KindSupplier, in.SupplierName)
		if err != nil {
			return nil, err
		}
		supplierID = &id
	}

	p := &model.Product{
		PLU:              in.PLU,
		Name:             in.Name,
		Description:      in.Description,
		PurchasePrice:    in.PurchasePrice,
		BuyPrice:         in.BuyPrice,
		SellPrice:        in.SellPrice,
		Margin:           in.Margin,
		Stock:            in.Stock,
		StockMinimal:     in.StockMinimal,
		StockMaximal:     in.StockMaximal,
		Unit:             in.Unit,
		PurchaseUnitCode: in.PurchaseUnitCode,
		UnitConversion:   in.UnitConversion,
		RackLocation:     in.RackLocation,
		OnlineSKU:        in.OnlineSKU,
		Barcode:          in.Barcode,
		BatchNumber:      in.BatchNumber,
		ExpirationDate:   in.ExpirationDate,
		ImageURL:         in.ImageURL,
		IsActive:         in.IsActive,
		CategoryID:       *categoryID,
		SupplierID:       supplierID,
	}
	p.CreatedBy = actor
	p.UpdatedBy = actor
	return p, nil
}

// storeError maps repository failures of a product write onto domain errors.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrReferenced):
		return fmt.Errorf("%w: category or supplier does not exist", ErrNotFound)
	case errors.Is(err, repository.ErrNotFound):
		return ErrProductNotFound
	}
	return err
}

func (s *catalogService) CreateProduct(ctx context.Context, row importer.Row, actor events.Actor) (*model.Product, error) {
	resolver := NewIdentityResolver(s.categories, s.suppliers, nil, actor.ID, s.log)
	product, err := buildProduct(ctx, resolver, importer.Normalize(row), actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, storeError(err)
	}

	s.invalidateReports(ctx)
	s.publish(ctx, events.TopicProductCreated, "product_created", product, actor,
		fmt.Sprintf("%s created product '%s'", actor.Name, product.Name))
	return product, nil
}

// UpdateProduct is the administrative full replace, stock included.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, row importer.Row, actor events.Actor) (*model.Product, error) {
	existing, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}

	resolver := NewIdentityResolver(s.categories, s.suppliers, nil, actor.ID, s.log)
	product, err := buildProduct(ctx, resolver, importer.Normalize(row), actor.ID)
	if err != nil {
		return nil, err
	}
	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt
	product.CreatedBy = existing.CreatedBy

	if err := s.products.Update(ctx, product); err != nil {
		return nil, storeError(err)
	}

	s.invalidateReports(ctx)
	s.publish(ctx, events.TopicProductUpdated, "product_updated", map[string]any{
		"id":        product.ID,
		"name":      product.Name,
		"old_stock": existing.Stock,
		"new_stock": product.Stock,
		"price":     product.SellPrice,
	}, actor, fmt.Sprintf("%s updated product '%s'", actor.Name, product.Name))
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID, actor events.Actor) error {
	if s.policy == DeleteGuard {
		referenced, err := s.products.HasSaleItems(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return ErrProductReferenced
		}
	}
	if err := s.products.Delete(ctx, id, actor.ID); err != nil {
		return storeError(err)
	}

	s.invalidateReports(ctx)
	s.publish(ctx, events.TopicProductDeleted, "product_deleted", map[string]any{"id": id}, actor,
		fmt.Sprintf("%s deleted a product", actor.Name))
	return nil
}

func (s *catalogService) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	return s.products.FindAll(ctx)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, category *model.Category, actor events.Actor) error {
	category.Name = strings.TrimSpace(category.Name)
	if verr := validator.First(category); verr != nil {
		return &ValidationError{Field: verr.FailedField, Tag: verr.Tag}
	}
	if _, err := s.categories.FindByName(ctx, category.Name); err == nil {
		return fmt.Errorf("category %q: %w", category.Name, ErrDuplicateName)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	category.CreatedBy, category.UpdatedBy = actor.ID, actor.ID
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("category %q: %w", category.Name, ErrDuplicateName)
		}
		return err
	}
	return nil
}

func (s *catalogService) GetAllCategories(ctx context.Context) ([]model.Category, error) {
	return s.categories.FindAll(ctx)
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	n, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasDependents
	}
	return deleteError(s.categories.Delete(ctx, id))
}

func (s *catalogService) CreateSupplier(ctx context.Context, supplier *model.Supplier, actor events.Actor) error {
	supplier.Name = strings.TrimSpace(supplier.Name)
	if verr := validator.First(supplier); verr != nil {
		return &ValidationError{Field: verr.FailedField, Tag: verr.Tag}
	}
	if _, err := s.suppliers.FindByName(ctx, supplier.Name); err == nil {
		return fmt.Errorf("supplier %q: %w", supplier.Name, ErrDuplicateName)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	supplier.CreatedBy, supplier.UpdatedBy = actor.ID, actor.ID
	if err := s.suppliers.Create(ctx, supplier); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("supplier %q: %w", supplier.Name, ErrDuplicateName)
		}
		return err
	}
	return nil
}

func (s *catalogService) GetAllSuppliers(ctx context.Context) ([]model.Supplier, error) {
	return s.suppliers.FindAll(ctx)
}

func (s *catalogService) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	n, err := s.products.CountBySupplier(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasDependents
	}
	return deleteError(s.suppliers.Delete(ctx, id))
}

// deleteError also covers soft-deleted products that still hold the foreign key.
func deleteError(err error) error {
	if errors.Is(err, repository.ErrReferenced) {
		return ErrHasDependents
	}
	return notFound(err)
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *catalogService) invalidateReports(ctx context.Context) {
	if err := s.reports.Invalidate(ctx); err != nil {
		s.log.Warn("report cache invalidate failed", "err", err)
	}
}

func (s *catalogService) publish(ctx context.Context, topic, action string, data any, actor events.Actor, msg string) {
	s.publisher.Publish(ctx, topic, events.Event{
		Type:       "stock_update",
		Action:     action,
		Data:       data,
		Actor:      &actor,
		Message:    msg,
		OccurredAt: time.Now(),
	})
}
