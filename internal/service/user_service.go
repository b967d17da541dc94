package service

import (
	"context"
	"errors"
	"fmt"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/apperror"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Password  string `json:"password" binding:"required,min=6"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	IsActive  *bool   `json:"is_active"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type SwitchBranchRequest struct {
	BranchID string `json:"branch_id" binding:"required"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	FullName        string  `json:"full_name"`
	IsSuperuser     bool    `json:"is_superuser"`
	IsActive        bool    `json:"is_active"`
	DistributorID   *string `json:"distributor_id"`
	CurrentBranchID *string `json:"current_branch_id"`
	CreatedAt       string  `json:"created_at"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
	Permissions  []string     `json:"permissions"`
	Roles        []RoleClaim  `json:"roles"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	RefreshSession(ctx context.Context, refreshToken string) (*LoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error

	CreateUser(ctx context.Context, distributorID uuid.UUID, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	GetUser(ctx context.Context, distributorID uuid.UUID, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, distributorID *uuid.UUID, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, distributorID uuid.UUID, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, distributorID uuid.UUID, id string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error

	SwitchBranch(ctx context.Context, userID uuid.UUID, req SwitchBranchRequest) (*LoginResponse, error)
}

type userService struct {
	userRepo        repository.UserRepository
	distributorRepo repository.DistributorRepository
	branchRepo      repository.BranchRepository
	assignmentRepo  repository.AssignmentRepository
	tokens          TokenService
	audit           AuditRecorder
}

// NewUserService returns a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	distributorRepo repository.DistributorRepository,
	branchRepo repository.BranchRepository,
	assignmentRepo repository.AssignmentRepository,
	tokens TokenService,
	audit AuditRecorder,
) UserService {
	return &userService{
		userRepo:        userRepo,
		distributorRepo: distributorRepo,
		branchRepo:      branchRepo,
		assignmentRepo:  assignmentRepo,
		tokens:          tokens,
		audit:           audit,
	}
}

// Helper: parse model to standard json API response
func mapToUserResponse(user *model.User) UserResponse {
	resp := UserResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		FullName:    user.FullName(),
		IsSuperuser: user.IsSuperuser,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if user.DistributorID != nil {
		v := user.DistributorID.String()
		resp.DistributorID = &v
	}
	if user.CurrentBranchID != nil {
		v := user.CurrentBranchID.String()
		resp.CurrentBranchID = &v
	}
	return resp
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		// same message for unknown email and bad password
		return nil, apperror.Unauthenticated("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthenticated("invalid email or password")
	}
	if !user.IsActive {
		return nil, apperror.Unauthenticated("account is disabled")
	}

	// re-fetch with tenant and branch context for the claims snapshot
	full, err := s.userRepo.FindByIDWithContext(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user context: %w", err)
	}

	pair, claims, err := s.tokens.IssuePair(ctx, full)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         mapToUserResponse(full),
		Permissions:  claims.Permissions,
		Roles:        claims.Roles,
	}, nil
}

func (s *userService) RefreshSession(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	pair, claims, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	userID, _ := uuid.Parse(claims.Subject)
	user, err := s.userRepo.FindByIDWithContext(ctx, userID)
	if err != nil {
		return nil, apperror.Unauthenticated("user no longer exists")
	}

	return &LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         mapToUserResponse(user),
		Permissions:  claims.Permissions,
		Roles:        claims.Roles,
	}, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, refreshToken)
}

// CreateUser adds a user to the distributor, subject to its seat cap.
func (s *userService) CreateUser(ctx context.Context, distributorID uuid.UUID, req CreateUserRequest) (*UserResponse, error) {
	distributor, err := s.distributorRepo.FindByID(ctx, distributorID)
	if err != nil {
		return nil, apperror.NotFound("distributor")
	}

	count, err := s.userRepo.CountByDistributor(ctx, distributorID)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if count >= int64(distributor.MaxUsers) {
		return nil, apperror.Conflict(fmt.Sprintf("user limit reached for subscription tier %s", distributor.SubscriptionTier))
	}

	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("email already registered").WithField("email", req.Email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Password:      string(hashed),
		IsActive:      true,
		DistributorID: &distributorID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	resp := mapToUserResponse(user)
	return &resp, nil
}

// GetUserByID loads a user without tenant checks. It backs the /me
// endpoint, where the id always comes from the caller's own token; the
// admin routes go through GetUser.
func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid user id").WithField("user_id", err.Error())
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NotFound("user")
	}
	resp := mapToUserResponse(user)
	return &resp, nil
}

// findTenantUser resolves a user inside the caller's distributor. A
// user that exists but belongs to another tenant surfaces as NotFound,
// the same way the role and invoice lookups hide foreign ids.
func (s *userService) findTenantUser(ctx context.Context, distributorID uuid.UUID, id string) (*model.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid user id").WithField("user_id", err.Error())
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NotFound("user")
	}
	if user.DistributorID == nil || *user.DistributorID != distributorID {
		return nil, apperror.NotFound("user")
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, distributorID uuid.UUID, id string) (*UserResponse, error) {
	user, err := s.findTenantUser(ctx, distributorID, id)
	if err != nil {
		return nil, err
	}
	resp := mapToUserResponse(user)
	return &resp, nil
}

func (s *userService) ListUsers(ctx context.Context, distributorID *uuid.UUID, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.userRepo.List(ctx, distributorID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, mapToUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, distributorID uuid.UUID, id string, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.findTenantUser(ctx, distributorID, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	resp := mapToUserResponse(user)
	return &resp, nil
}

func (s *userService) DeleteUser(ctx context.Context, distributorID uuid.UUID, id string) error {
	user, err := s.findTenantUser(ctx, distributorID, id)
	if err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, user.ID)
}

func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return apperror.NotFound("user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return apperror.Unauthenticated("current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// old refresh tokens stop working immediately
	return s.tokens.RevokeAll(ctx, userID)
}

// SwitchBranch changes the user's working branch and reissues tokens so
// the snapshot matches the new branch. Non-superusers must hold at least
// one assignment in the target branch.
func (s *userService) SwitchBranch(ctx context.Context, userID uuid.UUID, req SwitchBranchRequest) (*LoginResponse, error) {
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return nil, apperror.Validation("invalid branch id").WithField("branch_id", err.Error())
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NotFound("user")
	}
	branch, err := s.branchRepo.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("branch")
		}
		return nil, fmt.Errorf("failed to fetch branch: %w", err)
	}

	if !user.IsSuperuser {
		if user.DistributorID == nil || *user.DistributorID != branch.DistributorID {
			return nil, apperror.Forbidden("branch belongs to another distributor")
		}
		assignments, err := s.assignmentRepo.ListByUserAndBranch(ctx, userID, branchID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch assignments: %w", err)
		}
		if len(assignments) == 0 {
			return nil, apperror.Forbidden("no role assignment in the target branch")
		}
	}

	if err := s.userRepo.UpdateCurrentBranch(ctx, userID, &branchID); err != nil {
		return nil, fmt.Errorf("failed to switch branch: %w", err)
	}

	s.audit.Record(ctx, &userID, model.ActionSwitchBranch, branchID.String(), branch.Name, nil)

	full, err := s.userRepo.FindByIDWithContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user context: %w", err)
	}
	pair, claims, err := s.tokens.IssuePair(ctx, full)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         mapToUserResponse(full),
		Permissions:  claims.Permissions,
		Roles:        claims.Roles,
	}, nil
}
