package repository

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	List(ctx context.Context, distributorID uuid.UUID, search string, page, limit int) ([]model.Product, int64, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, category *model.Category) error
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	ListCategories(ctx context.Context, distributorID uuid.UUID) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := GetDB(ctx, r.db).Preload("Category").First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var p model.Product
	if err := GetDB(ctx, r.db).First(&p, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context, distributorID uuid.UUID, search string, page, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Product{}).Where("distributor_id = ?", distributorID)
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name ILIKE ? OR sku ILIKE ? OR barcode ILIKE ?", like, like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Category").Where("distributor_id = ?", distributorID)
	if search != "" {
		like := "%" + search + "%"
		fetch = fetch.Where("name ILIKE ? OR sku ILIKE ? OR barcode ILIKE ?", like, like, like)
	}
	if err := fetch.Order("name asc").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Product{}, "id = ?", id).Error
}

func (r *productRepository) CreateCategory(ctx context.Context, category *model.Category) error {
	return GetDB(ctx, r.db).Create(category).Error
}

func (r *productRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var c model.Category
	if err := GetDB(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *productRepository) ListCategories(ctx context.Context, distributorID uuid.UUID) ([]model.Category, error) {
	var categories []model.Category
	if err := GetDB(ctx, r.db).
		Where("distributor_id = ?", distributorID).
		Order("name asc").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *productRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Category{}, "id = ?", id).Error
}
