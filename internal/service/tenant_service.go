package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/apperror"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Default role templates created for every new distributor. The owner
// role gets the full catalog; the others get module subsets.
var defaultRoleModules = map[string][]string{
	"Owner":   nil, // nil means every module
	"Manager": {"invoice", "product", "customer", "report", "pos"},
	"Staff":   {"invoice", "pos"},
}

// --- DTOs ---

type RegisterDistributorRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactEmail  string `json:"contact_email" binding:"required,email"`
	ContactPhone  string `json:"contact_phone"`
	OwnerEmail    string `json:"owner_email" binding:"required,email"`
	OwnerPassword string `json:"owner_password" binding:"required,min=6"`
	OwnerFirst    string `json:"owner_first_name" binding:"required"`
	OwnerLast     string `json:"owner_last_name"`
	BranchName    string `json:"branch_name"`
	BranchCode    string `json:"branch_code"`
}

type UpdateDistributorRequest struct {
	Name             *string `json:"name"`
	ContactEmail     *string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone     *string `json:"contact_phone"`
	BillingAddress   *string `json:"billing_address"`
	SubscriptionTier *string `json:"subscription_tier"`
	IsActive         *bool   `json:"is_active"`
}

type DistributorResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	ContactEmail     string `json:"contact_email"`
	ContactPhone     string `json:"contact_phone"`
	BillingAddress   string `json:"billing_address"`
	SubscriptionTier string `json:"subscription_tier"`
	MaxBranches      int    `json:"max_branches"`
	MaxUsers         int    `json:"max_users"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        string `json:"created_at"`
}

type DistributorStatsResponse struct {
	TotalBranches  int64 `json:"total_branches"`
	ActiveBranches int64 `json:"active_branches"`
	TotalUsers     int64 `json:"total_users"`
	ActiveUsers    int64 `json:"active_users"`
	TotalRoles     int64 `json:"total_roles"`
}

// --- Interface ---

type TenantService interface {
	Register(ctx context.Context, req RegisterDistributorRequest) (*DistributorResponse, error)
	GetDistributor(ctx context.Context, id string) (*DistributorResponse, error)
	ListDistributors(ctx context.Context, page, limit int) ([]DistributorResponse, int64, error)
	UpdateDistributor(ctx context.Context, id string, req UpdateDistributorRequest) (*DistributorResponse, error)
	Stats(ctx context.Context, id string) (*DistributorStatsResponse, error)
}

type tenantService struct {
	distributorRepo repository.DistributorRepository
	branchRepo      repository.BranchRepository
	roleRepo        repository.RoleRepository
	userRepo        repository.UserRepository
	assignmentRepo  repository.AssignmentRepository
	txManager       repository.TransactionManager
}

func NewTenantService(
	distributorRepo repository.DistributorRepository,
	branchRepo repository.BranchRepository,
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	txManager repository.TransactionManager,
) TenantService {
	return &tenantService{
		distributorRepo: distributorRepo,
		branchRepo:      branchRepo,
		roleRepo:        roleRepo,
		userRepo:        userRepo,
		assignmentRepo:  assignmentRepo,
		txManager:       txManager,
	}
}

// --- Implementation ---

// Register bootstraps a distributor in one transaction: the tenant row,
// its main branch, the default roles with their permission grants, the
// owner user and the owner's primary assignment.
func (s *tenantService) Register(ctx context.Context, req RegisterDistributorRequest) (*DistributorResponse, error) {
	if _, err := s.userRepo.FindByEmail(ctx, req.OwnerEmail); err == nil {
		return nil, apperror.Conflict("email already registered").WithField("owner_email", req.OwnerEmail)
	}

	slug := slugify(req.Name)
	if _, err := s.distributorRepo.FindBySlug(ctx, slug); err == nil {
		return nil, apperror.Conflict("distributor name already taken").WithField("name", req.Name)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	branchName := req.BranchName
	if branchName == "" {
		branchName = "Main Branch"
	}
	branchCode := req.BranchCode
	if branchCode == "" {
		branchCode = "MAIN"
	}

	var distributor *model.Distributor
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		distributor = &model.Distributor{
			Name:             req.Name,
			Slug:             slug,
			ContactEmail:     req.ContactEmail,
			ContactPhone:     req.ContactPhone,
			SubscriptionTier: model.TierTrial,
			MaxBranches:      1,
			MaxUsers:         5,
			IsActive:         true,
		}
		if err := s.distributorRepo.Create(txCtx, distributor); err != nil {
			return fmt.Errorf("failed to create distributor: %w", err)
		}

		branch := &model.Branch{
			DistributorID: distributor.ID,
			Name:          branchName,
			Code:          branchCode,
			IsActive:      true,
		}
		if err := s.branchRepo.Create(txCtx, branch); err != nil {
			return fmt.Errorf("failed to create branch: %w", err)
		}

		ownerRole, err := s.seedDefaultRoles(txCtx, distributor.ID)
		if err != nil {
			return err
		}

		owner := &model.User{
			Email:           req.OwnerEmail,
			FirstName:       req.OwnerFirst,
			LastName:        req.OwnerLast,
			Password:        string(hashed),
			IsActive:        true,
			DistributorID:   &distributor.ID,
			CurrentBranchID: &branch.ID,
		}
		if err := s.userRepo.Create(txCtx, owner); err != nil {
			return fmt.Errorf("failed to create owner user: %w", err)
		}
		distributor.CreatedBy = &owner.ID
		if err := s.distributorRepo.Update(txCtx, distributor); err != nil {
			return fmt.Errorf("failed to link owner: %w", err)
		}

		assignment := &model.UserRole{
			UserID:    owner.ID,
			RoleID:    ownerRole.ID,
			BranchID:  branch.ID,
			IsPrimary: true,
		}
		if _, err := s.assignmentRepo.GetOrCreate(txCtx, assignment); err != nil {
			return fmt.Errorf("failed to assign owner role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := toDistributorResponse(*distributor)
	return &resp, nil
}

// seedDefaultRoles creates the built-in roles for a fresh tenant and
// returns the owner role.
func (s *tenantService) seedDefaultRoles(ctx context.Context, distributorID uuid.UUID) (*model.Role, error) {
	all, err := s.roleRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permission catalog: %w", err)
	}

	var ownerRole *model.Role
	for name, modules := range defaultRoleModules {
		var perms []model.Permission
		if modules == nil {
			perms = all
		} else {
			wanted := make(map[string]bool, len(modules))
			for _, m := range modules {
				wanted[m] = true
			}
			for _, p := range all {
				if wanted[p.Module] {
					perms = append(perms, p)
				}
			}
		}

		role := &model.Role{
			DistributorID: distributorID,
			Name:          name,
			IsSystem:      true,
			IsActive:      true,
			Permissions:   perms,
		}
		if err := s.roleRepo.Create(ctx, role); err != nil {
			return nil, fmt.Errorf("failed to create role %s: %w", name, err)
		}
		if name == "Owner" {
			ownerRole = role
		}
	}
	return ownerRole, nil
}

func (s *tenantService) GetDistributor(ctx context.Context, id string) (*DistributorResponse, error) {
	distributor, err := s.findDistributor(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toDistributorResponse(*distributor)
	return &resp, nil
}

func (s *tenantService) ListDistributors(ctx context.Context, page, limit int) ([]DistributorResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	distributors, total, err := s.distributorRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch distributors: %w", err)
	}

	res := make([]DistributorResponse, 0, len(distributors))
	for _, d := range distributors {
		res = append(res, toDistributorResponse(d))
	}
	return res, total, nil
}

func (s *tenantService) UpdateDistributor(ctx context.Context, id string, req UpdateDistributorRequest) (*DistributorResponse, error) {
	distributor, err := s.findDistributor(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		distributor.Name = *req.Name
	}
	if req.ContactEmail != nil {
		distributor.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		distributor.ContactPhone = *req.ContactPhone
	}
	if req.BillingAddress != nil {
		distributor.BillingAddress = *req.BillingAddress
	}
	if req.SubscriptionTier != nil {
		if !model.ValidTier(*req.SubscriptionTier) {
			return nil, apperror.Validation("unknown subscription tier").WithField("subscription_tier", *req.SubscriptionTier)
		}
		distributor.SubscriptionTier = *req.SubscriptionTier
		distributor.MaxBranches, distributor.MaxUsers = model.TierLimits(*req.SubscriptionTier)
	}
	if req.IsActive != nil {
		distributor.IsActive = *req.IsActive
	}

	if err := s.distributorRepo.Update(ctx, distributor); err != nil {
		return nil, fmt.Errorf("failed to update distributor: %w", err)
	}

	resp := toDistributorResponse(*distributor)
	return &resp, nil
}

func (s *tenantService) Stats(ctx context.Context, id string) (*DistributorStatsResponse, error) {
	distributor, err := s.findDistributor(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.distributorRepo.Stats(ctx, distributor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute distributor stats: %w", err)
	}
	return &DistributorStatsResponse{
		TotalBranches:  stats.TotalBranches,
		ActiveBranches: stats.ActiveBranches,
		TotalUsers:     stats.TotalUsers,
		ActiveUsers:    stats.ActiveUsers,
		TotalRoles:     stats.TotalRoles,
	}, nil
}

// --- Helpers ---

func (s *tenantService) findDistributor(ctx context.Context, id string) (*model.Distributor, error) {
	distributorID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid distributor id").WithField("distributor_id", err.Error())
	}
	distributor, err := s.distributorRepo.FindByID(ctx, distributorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("distributor")
		}
		return nil, fmt.Errorf("failed to fetch distributor: %w", err)
	}
	return distributor, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStrip.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// --- Mapping ---

func toDistributorResponse(d model.Distributor) DistributorResponse {
	return DistributorResponse{
		ID:               d.ID.String(),
		Name:             d.Name,
		Slug:             d.Slug,
		ContactEmail:     d.ContactEmail,
		ContactPhone:     d.ContactPhone,
		BillingAddress:   d.BillingAddress,
		SubscriptionTier: d.SubscriptionTier,
		MaxBranches:      d.MaxBranches,
		MaxUsers:         d.MaxUsers,
		IsActive:         d.IsActive,
		CreatedAt:        d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
