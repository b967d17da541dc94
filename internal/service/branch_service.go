package service

import (
	"context"
	"errors"
	"fmt"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateBranchRequest struct {
	Name     string `json:"name" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	TaxID      string `json:"tax_id"`
	Currency   string `json:"currency"`
}

type UpdateBranchRequest struct {
	Name     *string `json:"name"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	Country    *string `json:"country"`
	PostalCode *string `json:"postal_code"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	TaxID      *string `json:"tax_id"`
	Currency   *string `json:"currency"`
	IsActive   *bool   `json:"is_active"`
}

type BranchResponse struct {
	ID            string `json:"id"`
	DistributorID string `json:"distributor_id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	PostalCode    string `json:"postal_code"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	TaxID         string `json:"tax_id"`
	Currency      string `json:"currency"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
}

// --- Interface ---

type BranchService interface {
	CreateBranch(ctx context.Context, distributorID uuid.UUID, req CreateBranchRequest) (*BranchResponse, error)
	GetBranch(ctx context.Context, distributorID uuid.UUID, id string) (*BranchResponse, error)
	ListBranches(ctx context.Context, distributorID uuid.UUID) ([]BranchResponse, error)
	UpdateBranch(ctx context.Context, distributorID uuid.UUID, id string, req UpdateBranchRequest) (*BranchResponse, error)
	DeleteBranch(ctx context.Context, distributorID uuid.UUID, id string) error
}

type branchService struct {
	branchRepo      repository.BranchRepository
	distributorRepo repository.DistributorRepository
}

func NewBranchService(branchRepo repository.BranchRepository, distributorRepo repository.DistributorRepository) BranchService {
	return &branchService{branchRepo: branchRepo, distributorRepo: distributorRepo}
}

// --- Implementation ---

// CreateBranch adds a branch, subject to the distributor's branch cap.
func (s *branchService) CreateBranch(ctx context.Context, distributorID uuid.UUID, req CreateBranchRequest) (*BranchResponse, error) {
	distributor, err := s.distributorRepo.FindByID(ctx, distributorID)
	if err != nil {
		return nil, apperror.NotFound("distributor")
	}

	count, err := s.branchRepo.CountByDistributor(ctx, distributorID)
	if err != nil {
		return nil, fmt.Errorf("failed to count branches: %w", err)
	}
	if count >= int64(distributor.MaxBranches) {
		return nil, apperror.Conflict(fmt.Sprintf("branch limit reached for subscription tier %s", distributor.SubscriptionTier))
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	branch := &model.Branch{
		DistributorID: distributorID,
		Name:          req.Name,
		Code:          req.Code,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Country:       req.Country,
		PostalCode:    req.PostalCode,
		Phone:         req.Phone,
		Email:         req.Email,
		TaxID:         req.TaxID,
		Currency:      currency,
		IsActive:      true,
	}
	if err := s.branchRepo.Create(ctx, branch); err != nil {
		return nil, apperror.Conflict("branch code already exists in this distributor").WithField("code", req.Code)
	}

	resp := toBranchResponse(*branch)
	return &resp, nil
}

func (s *branchService) GetBranch(ctx context.Context, distributorID uuid.UUID, id string) (*BranchResponse, error) {
	branch, err := s.findTenantBranch(ctx, distributorID, id)
	if err != nil {
		return nil, err
	}
	resp := toBranchResponse(*branch)
	return &resp, nil
}

func (s *branchService) ListBranches(ctx context.Context, distributorID uuid.UUID) ([]BranchResponse, error) {
	branches, err := s.branchRepo.ListByDistributor(ctx, distributorID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch branches: %w", err)
	}

	res := make([]BranchResponse, 0, len(branches))
	for _, b := range branches {
		res = append(res, toBranchResponse(b))
	}
	return res, nil
}

func (s *branchService) UpdateBranch(ctx context.Context, distributorID uuid.UUID, id string, req UpdateBranchRequest) (*BranchResponse, error) {
	branch, err := s.findTenantBranch(ctx, distributorID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		branch.Name = *req.Name
	}
	if req.Address != nil {
		branch.Address = *req.Address
	}
	if req.City != nil {
		branch.City = *req.City
	}
	if req.State != nil {
		branch.State = *req.State
	}
	if req.Country != nil {
		branch.Country = *req.Country
	}
	if req.PostalCode != nil {
		branch.PostalCode = *req.PostalCode
	}
	if req.Phone != nil {
		branch.Phone = *req.Phone
	}
	if req.Email != nil {
		branch.Email = *req.Email
	}
	if req.TaxID != nil {
		branch.TaxID = *req.TaxID
	}
	if req.Currency != nil {
		branch.Currency = *req.Currency
	}
	if req.IsActive != nil {
		branch.IsActive = *req.IsActive
	}

	if err := s.branchRepo.Update(ctx, branch); err != nil {
		return nil, fmt.Errorf("failed to update branch: %w", err)
	}

	resp := toBranchResponse(*branch)
	return &resp, nil
}

func (s *branchService) DeleteBranch(ctx context.Context, distributorID uuid.UUID, id string) error {
	branch, err := s.findTenantBranch(ctx, distributorID, id)
	if err != nil {
		return err
	}
	if err := s.branchRepo.Delete(ctx, branch.ID); err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	return nil
}

// --- Helpers ---

func (s *branchService) findTenantBranch(ctx context.Context, distributorID uuid.UUID, id string) (*model.Branch, error) {
	branchID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid branch id").WithField("branch_id", err.Error())
	}
	branch, err := s.branchRepo.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("branch")
		}
		return nil, fmt.Errorf("failed to fetch branch: %w", err)
	}
	if branch.DistributorID != distributorID {
		return nil, apperror.NotFound("branch")
	}
	return branch, nil
}

// --- Mapping ---

func toBranchResponse(b model.Branch) BranchResponse {
	return BranchResponse{
		ID:            b.ID.String(),
		DistributorID: b.DistributorID.String(),
		Name:          b.Name,
		Code:          b.Code,
		Address:       b.Address,
		City:          b.City,
		State:         b.State,
		Country:       b.Country,
		PostalCode:    b.PostalCode,
		Phone:         b.Phone,
		Email:         b.Email,
		TaxID:         b.TaxID,
		Currency:      b.Currency,
		IsActive:      b.IsActive,
		CreatedAt:     b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
