package repository

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DistributorStats aggregates counts for one tenant.
type DistributorStats struct {
	TotalBranches  int64
	ActiveBranches int64
	TotalUsers     int64
	ActiveUsers    int64
	TotalRoles     int64
}

type DistributorRepository interface {
	Create(ctx context.Context, d *model.Distributor) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Distributor, error)
	FindBySlug(ctx context.Context, slug string) (*model.Distributor, error)
	List(ctx context.Context, page, limit int) ([]model.Distributor, int64, error)
	Update(ctx context.Context, d *model.Distributor) error
	Stats(ctx context.Context, id uuid.UUID) (*DistributorStats, error)
}

type distributorRepository struct {
	db *gorm.DB
}

func NewDistributorRepository(db *gorm.DB) DistributorRepository {
	return &distributorRepository{db: db}
}

func (r *distributorRepository) Create(ctx context.Context, d *model.Distributor) error {
	return GetDB(ctx, r.db).Create(d).Error
}

func (r *distributorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Distributor, error) {
	var d model.Distributor
	if err := GetDB(ctx, r.db).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *distributorRepository) FindBySlug(ctx context.Context, slug string) (*model.Distributor, error) {
	var d model.Distributor
	if err := GetDB(ctx, r.db).First(&d, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *distributorRepository) List(ctx context.Context, page, limit int) ([]model.Distributor, int64, error) {
	var list []model.Distributor
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Distributor{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *distributorRepository) Update(ctx context.Context, d *model.Distributor) error {
	return GetDB(ctx, r.db).Save(d).Error
}

func (r *distributorRepository) Stats(ctx context.Context, id uuid.UUID) (*DistributorStats, error) {
	db := GetDB(ctx, r.db)
	var s DistributorStats

	if err := db.Model(&model.Branch{}).Where("distributor_id = ?", id).Count(&s.TotalBranches).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Branch{}).Where("distributor_id = ? AND is_active", id).Count(&s.ActiveBranches).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.User{}).Where("distributor_id = ?", id).Count(&s.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.User{}).Where("distributor_id = ? AND is_active", id).Count(&s.ActiveUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Role{}).Where("distributor_id = ?", id).Count(&s.TotalRoles).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
