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

type CreateRoleRequest struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

type UpdateRoleRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	IsActive      *bool    `json:"is_active"`
	PermissionIDs []string `json:"permission_ids"`
}

type PermissionResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Module      string `json:"module"`
	Action      string `json:"action"`
}

type RoleResponse struct {
	ID            string               `json:"id"`
	DistributorID string               `json:"distributor_id"`
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	IsSystem      bool                 `json:"is_system"`
	IsActive      bool                 `json:"is_active"`
	Permissions   []PermissionResponse `json:"permissions"`
	CreatedAt     string               `json:"created_at"`
}

// --- Interface ---

type RoleService interface {
	CreateRole(ctx context.Context, distributorID uuid.UUID, req CreateRoleRequest) (*RoleResponse, error)
	GetRole(ctx context.Context, distributorID uuid.UUID, id string) (*RoleResponse, error)
	ListRoles(ctx context.Context, distributorID uuid.UUID) ([]RoleResponse, error)
	UpdateRole(ctx context.Context, distributorID uuid.UUID, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, distributorID uuid.UUID, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
}

type roleService struct {
	roleRepo repository.RoleRepository
}

func NewRoleService(roleRepo repository.RoleRepository) RoleService {
	return &roleService{roleRepo: roleRepo}
}

// --- Implementation ---

func (s *roleService) CreateRole(ctx context.Context, distributorID uuid.UUID, req CreateRoleRequest) (*RoleResponse, error) {
	perms, err := s.resolvePermissions(ctx, req.PermissionIDs)
	if err != nil {
		return nil, err
	}

	role := &model.Role{
		DistributorID: distributorID,
		Name:          req.Name,
		Description:   req.Description,
		IsActive:      true,
		Permissions:   perms,
	}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, apperror.Conflict("role name already exists in this distributor").WithField("name", req.Name)
	}

	return s.GetRole(ctx, distributorID, role.ID.String())
}

func (s *roleService) GetRole(ctx context.Context, distributorID uuid.UUID, id string) (*RoleResponse, error) {
	role, err := s.findTenantRole(ctx, distributorID, id)
	if err != nil {
		return nil, err
	}
	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) ListRoles(ctx context.Context, distributorID uuid.UUID) ([]RoleResponse, error) {
	roles, err := s.roleRepo.ListByDistributor(ctx, distributorID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) UpdateRole(ctx context.Context, distributorID uuid.UUID, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	role, err := s.findTenantRole(ctx, distributorID, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem && req.Name != nil && *req.Name != role.Name {
		return nil, apperror.Validation("system roles cannot be renamed").WithField("name", role.Name)
	}

	if req.Name != nil {
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}
	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	if req.PermissionIDs != nil {
		perms, err := s.resolvePermissions(ctx, req.PermissionIDs)
		if err != nil {
			return nil, err
		}
		if err := s.roleRepo.ReplacePermissions(ctx, role, perms); err != nil {
			return nil, fmt.Errorf("failed to replace permissions: %w", err)
		}
	}

	return s.GetRole(ctx, distributorID, id)
}

func (s *roleService) DeleteRole(ctx context.Context, distributorID uuid.UUID, id string) error {
	role, err := s.findTenantRole(ctx, distributorID, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return apperror.Validation("system roles cannot be deleted").WithField("name", role.Name)
	}
	if err := s.roleRepo.Delete(ctx, role); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.roleRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

// --- Helpers ---

func (s *roleService) findTenantRole(ctx context.Context, distributorID uuid.UUID, id string) (*model.Role, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid role id").WithField("role_id", err.Error())
	}
	role, err := s.roleRepo.FindByIDWithPermissions(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("role")
		}
		return nil, fmt.Errorf("failed to fetch role: %w", err)
	}
	if role.DistributorID != distributorID {
		return nil, apperror.NotFound("role")
	}
	return role, nil
}

func (s *roleService) resolvePermissions(ctx context.Context, ids []string) ([]model.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.Validation("invalid permission id").WithField("permission_ids", raw)
		}
		parsed = append(parsed, id)
	}

	perms, err := s.roleRepo.FindPermissionsByIDs(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}
	if len(perms) != len(parsed) {
		return nil, apperror.Validation("one or more permission ids are unknown").WithField("permission_ids", fmt.Sprintf("%d of %d found", len(perms), len(parsed)))
	}
	return perms, nil
}

// --- Mapping ---

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID.String(),
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Module:      p.Module,
		Action:      p.Action,
	}
}

func toRoleResponse(r model.Role) RoleResponse {
	resp := RoleResponse{
		ID:            r.ID.String(),
		DistributorID: r.DistributorID.String(),
		Name:          r.Name,
		Description:   r.Description,
		IsSystem:      r.IsSystem,
		IsActive:      r.IsActive,
		Permissions:   make([]PermissionResponse, 0, len(r.Permissions)),
		CreatedAt:     r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, p := range r.Permissions {
		resp.Permissions = append(resp.Permissions, toPermissionResponse(p))
	}
	return resp
}
