package repository

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByIDWithContext(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, distributorID *uuid.UUID, page, limit int) ([]model.User, int64, error)
	CountByDistributor(ctx context.Context, distributorID uuid.UUID) (int64, error)
	Update(ctx context.Context, user *model.User) error
	UpdateCurrentBranch(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	LockForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDWithContext loads the user with distributor and current
// branch preloaded, as needed for token issuance.
func (r *userRepository) FindByIDWithContext(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).
		Preload("Distributor").
		Preload("CurrentBranch").
		First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).
		Preload("Distributor").
		Preload("CurrentBranch").
		First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, distributorID *uuid.UUID, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.User{})
	if distributorID != nil {
		query = query.Where("distributor_id = ?", *distributorID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Order("created_at desc").Offset(offset).Limit(limit)
	if distributorID != nil {
		fetch = fetch.Where("distributor_id = ?", *distributorID)
	}
	if err := fetch.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) CountByDistributor(ctx context.Context, distributorID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Where("distributor_id = ?", distributorID).Count(&count).Error
	return count, err
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Save(user).Error
}

func (r *userRepository) UpdateCurrentBranch(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.User{}).
		Where("id = ?", userID).
		Update("current_branch_id", branchID).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.User{}, "id = ?", id).Error
}

// LockForUpdate reads the user row under FOR UPDATE. Used to serialize
// primary-assignment switches for the same user.
func (r *userRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
