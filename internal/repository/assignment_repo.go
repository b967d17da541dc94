package repository

import (
	"context"
	"errors"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentRepository interface {
	GetOrCreate(ctx context.Context, assignment *model.UserRole) (created bool, err error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.UserRole, error)
	ListByUserAndBranch(ctx context.Context, userID, branchID uuid.UUID) ([]model.UserRole, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.UserRole, error)
	ListByDistributor(ctx context.Context, distributorID uuid.UUID) ([]model.UserRole, error)
	ClearPrimary(ctx context.Context, userID uuid.UUID) error
	SetPrimary(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type assignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// GetOrCreate is idempotent on the (user, role, branch) triple.
func (r *assignmentRepository) GetOrCreate(ctx context.Context, assignment *model.UserRole) (bool, error) {
	db := GetDB(ctx, r.db)
	var existing model.UserRole
	err := db.Where("user_id = ? AND role_id = ? AND branch_id = ?",
		assignment.UserID, assignment.RoleID, assignment.BranchID).First(&existing).Error
	if err == nil {
		*assignment = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := db.Create(assignment).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *assignmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.UserRole, error) {
	var a model.UserRole
	if err := GetDB(ctx, r.db).
		Preload("Role").
		Preload("Branch").
		First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByUserAndBranch preloads each assignment's role with its
// permissions; this is the access evaluator's working set.
func (r *assignmentRepository) ListByUserAndBranch(ctx context.Context, userID, branchID uuid.UUID) ([]model.UserRole, error) {
	var list []model.UserRole
	if err := GetDB(ctx, r.db).
		Preload("Role.Permissions").
		Where("user_id = ? AND branch_id = ?", userID, branchID).
		Order("is_primary desc").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *assignmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.UserRole, error) {
	var list []model.UserRole
	if err := GetDB(ctx, r.db).
		Preload("Role").
		Preload("Branch").
		Where("user_id = ?", userID).
		Order("is_primary desc").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *assignmentRepository) ListByDistributor(ctx context.Context, distributorID uuid.UUID) ([]model.UserRole, error) {
	var list []model.UserRole
	if err := GetDB(ctx, r.db).
		Preload("Role").
		Preload("Branch").
		Preload("User").
		Joins("JOIN branches ON branches.id = user_roles.branch_id").
		Where("branches.distributor_id = ?", distributorID).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *assignmentRepository) ClearPrimary(ctx context.Context, userID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.UserRole{}).
		Where("user_id = ? AND is_primary", userID).
		Update("is_primary", false).Error
}

func (r *assignmentRepository) SetPrimary(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.UserRole{}).
		Where("id = ?", id).
		Update("is_primary", true).Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.UserRole{}, "id = ?", id).Error
}
