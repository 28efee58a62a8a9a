package repository

import (
	"context"

	"go-apotek-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindActive(ctx context.Context) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	CountBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error)
	HasSaleItems(ctx context.Context, id uuid.UUID) (bool, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error)
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Preload("Category").Preload("Supplier").
		Order("created_at DESC").Find(&products).Error
	return products, translate(err)
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Preload("Category").Preload("Supplier").First(&product, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// FindActive is the snapshot the threshold evaluator works on.
func (r *productRepo) FindActive(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Preload("Category").Where("is_active = ?", true).Find(&products).Error
	return products, translate(err)
}

// Update is the administrative full replace. It bypasses the stock ledger on purpose.
func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error)
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Product{}).Where("id = ?", id).Update("deleted_by", deletedBy)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Delete(&model.Product{}, "id = ?", id).Error
	}))
}

func (r *productRepo) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, translate(err)
}

func (r *productRepo) CountBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("supplier_id = ?", supplierID).Count(&n).Error
	return n, translate(err)
}

func (r *productRepo) HasSaleItems(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.SaleItem{}).Where("product_id = ?", id).Limit(1).Count(&n).Error
	return n > 0, translate(err)
}
