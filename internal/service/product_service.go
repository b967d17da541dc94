package service

import (
	"context"
	"errors"
	"fmt"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProductRequest struct {
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	SKU               string `json:"sku" binding:"required"`
	Barcode           string `json:"barcode"`
	HSNCode           string `json:"hsn_code"`
	Unit              string `json:"unit"`
	IsLoose           bool   `json:"is_loose"`
	CategoryID        string `json:"category_id"`
	BasePrice         string `json:"base_price" binding:"required"`
	WholesalePrice    string `json:"wholesale_price"`
	CostPrice         string `json:"cost_price"`
	TaxRate           string `json:"tax_rate"`
	StockQuantity     int    `json:"stock_quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

type UpdateProductRequest struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	Barcode           *string `json:"barcode"`
	HSNCode           *string `json:"hsn_code"`
	Unit              *string `json:"unit"`
	CategoryID        *string `json:"category_id"`
	BasePrice         *string `json:"base_price"`
	WholesalePrice    *string `json:"wholesale_price"`
	CostPrice         *string `json:"cost_price"`
	StockQuantity     *int    `json:"stock_quantity"`
	LowStockThreshold *int    `json:"low_stock_threshold"`
	IsActive          *bool   `json:"is_active"`
}

type CreateCategoryRequest struct {
	Name     string `json:"name" binding:"required"`
	ParentID string `json:"parent_id"`
	Color    string `json:"color"`
}

type ProductResponse struct {
	ID                string  `json:"id"`
	DistributorID     string  `json:"distributor_id"`
	CategoryID        *string `json:"category_id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	SKU               string  `json:"sku"`
	Barcode           string  `json:"barcode"`
	HSNCode           string  `json:"hsn_code"`
	Unit              string  `json:"unit"`
	IsLoose           bool    `json:"is_loose"`
	BasePrice         string  `json:"base_price"`
	WholesalePrice    *string `json:"wholesale_price"`
	CostPrice         *string `json:"cost_price"`
	TaxRate           string  `json:"tax_rate"`
	StockQuantity     int     `json:"stock_quantity"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	LowStock          bool    `json:"low_stock"`
	IsActive          bool    `json:"is_active"`
	CreatedAt         string  `json:"created_at"`
}

type CategoryResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
	Color    string  `json:"color"`
}

// --- Interface ---

type ProductService interface {
	CreateProduct(ctx context.Context, distributorID uuid.UUID, req CreateProductRequest) (*ProductResponse, error)
	GetProduct(ctx context.Context, distributorID uuid.UUID, id string) (*ProductResponse, error)
	ListProducts(ctx context.Context, distributorID uuid.UUID, search string, page, limit int) ([]ProductResponse, int64, error)
	UpdateProduct(ctx context.Context, distributorID uuid.UUID, id string, req UpdateProductRequest) (*ProductResponse, error)
	DeleteProduct(ctx context.Context, distributorID uuid.UUID, id string) error

	CreateCategory(ctx context.Context, distributorID uuid.UUID, req CreateCategoryRequest) (*CategoryResponse, error)
	ListCategories(ctx context.Context, distributorID uuid.UUID) ([]CategoryResponse, error)
	DeleteCategory(ctx context.Context, distributorID uuid.UUID, id string) error
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// --- Implementation ---

func (s *productService) CreateProduct(ctx context.Context, distributorID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return nil, apperror.Conflict("SKU already exists").WithField("sku", req.SKU)
	}

	basePrice, err := decimal.NewFromString(req.BasePrice)
	if err != nil {
		return nil, apperror.Validation("invalid base_price").WithField("base_price", req.BasePrice)
	}

	product := &model.Product{
		DistributorID:     distributorID,
		Name:              req.Name,
		Description:       req.Description,
		SKU:               req.SKU,
		Barcode:           req.Barcode,
		HSNCode:           req.HSNCode,
		Unit:              req.Unit,
		IsLoose:           req.IsLoose,
		BasePrice:         basePrice,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          true,
	}
	if product.Unit == "" {
		product.Unit = "pcs"
	}
	if product.LowStockThreshold == 0 {
		product.LowStockThreshold = 10
	}

	if req.WholesalePrice != "" {
		v, err := decimal.NewFromString(req.WholesalePrice)
		if err != nil {
			return nil, apperror.Validation("invalid wholesale_price").WithField("wholesale_price", req.WholesalePrice)
		}
		product.WholesalePrice = &v
	}
	if req.CostPrice != "" {
		v, err := decimal.NewFromString(req.CostPrice)
		if err != nil {
			return nil, apperror.Validation("invalid cost_price").WithField("cost_price", req.CostPrice)
		}
		product.CostPrice = &v
	}
	if req.TaxRate != "" {
		v, err := decimal.NewFromString(req.TaxRate)
		if err != nil {
			return nil, apperror.Validation("invalid tax_rate").WithField("tax_rate", req.TaxRate)
		}
		product.TaxRate = v
	}
	if req.CategoryID != "" {
		categoryID, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, apperror.Validation("invalid category id").WithField("category_id", err.Error())
		}
		category, err := s.productRepo.FindCategoryByID(ctx, categoryID)
		if err != nil || category.DistributorID != distributorID {
			return nil, apperror.NotFound("category")
		}
		product.CategoryID = &categoryID
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	resp := toProductResponse(*product)
	return &resp, nil
}

func (s *productService) GetProduct(ctx context.Context, distributorID uuid.UUID, id string) (*ProductResponse, error) {
	product, err := s.findTenantProduct(ctx, distributorID, id)
	if err != nil {
		return nil, err
	}
	resp := toProductResponse(*product)
	return &resp, nil
}

func (s *productService) ListProducts(ctx context.Context, distributorID uuid.UUID, search string, page, limit int) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, distributorID, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res, total, nil
}

func (s *productService) UpdateProduct(ctx context.Context, distributorID uuid.UUID, id string, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.findTenantProduct(ctx, distributorID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Barcode != nil {
		product.Barcode = *req.Barcode
	}
	if req.HSNCode != nil {
		product.HSNCode = *req.HSNCode
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.BasePrice != nil {
		v, err := decimal.NewFromString(*req.BasePrice)
		if err != nil {
			return nil, apperror.Validation("invalid base_price").WithField("base_price", *req.BasePrice)
		}
		product.BasePrice = v
	}
	if req.WholesalePrice != nil {
		v, err := decimal.NewFromString(*req.WholesalePrice)
		if err != nil {
			return nil, apperror.Validation("invalid wholesale_price").WithField("wholesale_price", *req.WholesalePrice)
		}
		product.WholesalePrice = &v
	}
	if req.CostPrice != nil {
		v, err := decimal.NewFromString(*req.CostPrice)
		if err != nil {
			return nil, apperror.Validation("invalid cost_price").WithField("cost_price", *req.CostPrice)
		}
		product.CostPrice = &v
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return nil, apperror.Validation("invalid category id").WithField("category_id", err.Error())
		}
		category, err := s.productRepo.FindCategoryByID(ctx, categoryID)
		if err != nil || category.DistributorID != distributorID {
			return nil, apperror.NotFound("category")
		}
		product.CategoryID = &categoryID
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if req.LowStockThreshold != nil {
		product.LowStockThreshold = *req.LowStockThreshold
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	resp := toProductResponse(*product)
	return &resp, nil
}

func (s *productService) DeleteProduct(ctx context.Context, distributorID uuid.UUID, id string) error {
	product, err := s.findTenantProduct(ctx, distributorID, id)
	if err != nil {
		return err
	}
	return s.productRepo.Delete(ctx, product.ID)
}

func (s *productService) CreateCategory(ctx context.Context, distributorID uuid.UUID, req CreateCategoryRequest) (*CategoryResponse, error) {
	category := &model.Category{
		DistributorID: distributorID,
		Name:          req.Name,
		Color:         req.Color,
	}
	if req.ParentID != "" {
		parentID, err := uuid.Parse(req.ParentID)
		if err != nil {
			return nil, apperror.Validation("invalid parent id").WithField("parent_id", err.Error())
		}
		parent, err := s.productRepo.FindCategoryByID(ctx, parentID)
		if err != nil || parent.DistributorID != distributorID {
			return nil, apperror.NotFound("parent category")
		}
		category.ParentID = &parentID
	}

	if err := s.productRepo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	resp := toCategoryResponse(*category)
	return &resp, nil
}

func (s *productService) ListCategories(ctx context.Context, distributorID uuid.UUID) ([]CategoryResponse, error) {
	categories, err := s.productRepo.ListCategories(ctx, distributorID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	res := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		res = append(res, toCategoryResponse(c))
	}
	return res, nil
}

func (s *productService) DeleteCategory(ctx context.Context, distributorID uuid.UUID, id string) error {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid category id").WithField("category_id", err.Error())
	}
	category, err := s.productRepo.FindCategoryByID(ctx, categoryID)
	if err != nil || category.DistributorID != distributorID {
		return apperror.NotFound("category")
	}
	return s.productRepo.DeleteCategory(ctx, categoryID)
}

// --- Helpers ---

func (s *productService) findTenantProduct(ctx context.Context, distributorID uuid.UUID, id string) (*model.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid product id").WithField("product_id", err.Error())
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product")
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	if product.DistributorID != distributorID {
		return nil, apperror.NotFound("product")
	}
	return product, nil
}

// --- Mapping ---

func toProductResponse(p model.Product) ProductResponse {
	resp := ProductResponse{
		ID:                p.ID.String(),
		DistributorID:     p.DistributorID.String(),
		Name:              p.Name,
		Description:       p.Description,
		SKU:               p.SKU,
		Barcode:           p.Barcode,
		HSNCode:           p.HSNCode,
		Unit:              p.Unit,
		IsLoose:           p.IsLoose,
		BasePrice:         p.BasePrice.StringFixed(2),
		TaxRate:           p.TaxRate.StringFixed(2),
		StockQuantity:     p.StockQuantity,
		LowStockThreshold: p.LowStockThreshold,
		LowStock:          p.StockQuantity <= p.LowStockThreshold,
		IsActive:          p.IsActive,
		CreatedAt:         p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if p.CategoryID != nil {
		v := p.CategoryID.String()
		resp.CategoryID = &v
	}
	if p.WholesalePrice != nil {
		v := p.WholesalePrice.StringFixed(2)
		resp.WholesalePrice = &v
	}
	if p.CostPrice != nil {
		v := p.CostPrice.StringFixed(2)
		resp.CostPrice = &v
	}
	return resp
}

func toCategoryResponse(c model.Category) CategoryResponse {
	resp := CategoryResponse{
		ID:    c.ID.String(),
		Name:  c.Name,
		Color: c.Color,
	}
	if c.ParentID != nil {
		v := c.ParentID.String()
		resp.ParentID = &v
	}
	return resp
}
