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

// Actor is the authenticated caller as seen by permission checks,
// usually reconstructed from token claims.
type Actor struct {
	UserID      uuid.UUID
	IsSuperuser bool
	BranchID    *uuid.UUID
	Permissions []string
}

type requirementKind int

const (
	requireNothing requirementKind = iota
	requireCode
	requireAnyOf
	requireAllOf
)

// Requirement is the tagged permission demand an endpoint declares:
// nothing (any authenticated user), a single code, any-of, or all-of.
type Requirement struct {
	kind  requirementKind
	codes []string
}

// NoRequirement permits any authenticated caller.
func NoRequirement() Requirement { return Requirement{kind: requireNothing} }

// RequireCode demands one specific permission code.
func RequireCode(code string) Requirement {
	return Requirement{kind: requireCode, codes: []string{code}}
}

// RequireAnyOf demands at least one of the codes. An empty list behaves
// like NoRequirement.
func RequireAnyOf(codes ...string) Requirement {
	return Requirement{kind: requireAnyOf, codes: codes}
}

// RequireAllOf demands every code. An empty list behaves like
// NoRequirement.
func RequireAllOf(codes ...string) Requirement {
	return Requirement{kind: requireAllOf, codes: codes}
}

// --- DTOs ---

type AssignRoleRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	RoleID    string `json:"role_id" binding:"required"`
	BranchID  string `json:"branch_id" binding:"required"`
	IsPrimary bool   `json:"is_primary"`
}

type AssignmentResponse struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	RoleID     string  `json:"role_id"`
	RoleName   string  `json:"role_name"`
	BranchID   string  `json:"branch_id"`
	BranchName string  `json:"branch_name"`
	IsPrimary  bool    `json:"is_primary"`
	AssignedBy *string `json:"assigned_by"`
	AssignedAt string  `json:"assigned_at"`
}

// RoleClaim is the per-role slice of the token snapshot.
type RoleClaim struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsPrimary bool   `json:"is_primary"`
}

// --- Interface ---

// AccessService evaluates effective permissions for (user, branch)
// pairs and manages grants and assignments. The superuser bypass lives
// here, in Authorize and the point queries, and nowhere else.
type AccessService interface {
	EvaluatePermissions(ctx context.Context, userID, branchID uuid.UUID) ([]string, error)
	Snapshot(ctx context.Context, userID, branchID uuid.UUID) ([]RoleClaim, []string, error)

	HasPermission(ctx context.Context, user *model.User, code string, branchID *uuid.UUID) bool
	HasAny(ctx context.Context, user *model.User, codes []string, branchID *uuid.UUID) bool
	HasAll(ctx context.Context, user *model.User, codes []string, branchID *uuid.UUID) bool
	Authorize(actor *Actor, req Requirement) bool

	Grant(ctx context.Context, distributorID uuid.UUID, roleID, permissionID string, actorID *uuid.UUID) error
	Revoke(ctx context.Context, distributorID uuid.UUID, roleID, permissionID string, actorID *uuid.UUID) error
	Assign(ctx context.Context, distributorID uuid.UUID, req AssignRoleRequest, assignedBy *uuid.UUID) (*AssignmentResponse, error)
	Unassign(ctx context.Context, distributorID uuid.UUID, assignmentID string, actorID *uuid.UUID) error
	SetPrimary(ctx context.Context, distributorID uuid.UUID, assignmentID string, actorID *uuid.UUID) (*AssignmentResponse, error)
	ListUserAssignments(ctx context.Context, distributorID uuid.UUID, userID string) ([]AssignmentResponse, error)
}

type accessService struct {
	roleRepo       repository.RoleRepository
	assignmentRepo repository.AssignmentRepository
	branchRepo     repository.BranchRepository
	userRepo       repository.UserRepository
	txManager      repository.TransactionManager
	audit          AuditRecorder
}

func NewAccessService(
	roleRepo repository.RoleRepository,
	assignmentRepo repository.AssignmentRepository,
	branchRepo repository.BranchRepository,
	userRepo repository.UserRepository,
	txManager repository.TransactionManager,
	audit AuditRecorder,
) AccessService {
	return &accessService{
		roleRepo:       roleRepo,
		assignmentRepo: assignmentRepo,
		branchRepo:     branchRepo,
		userRepo:       userRepo,
		txManager:      txManager,
		audit:          audit,
	}
}

// --- Evaluation ---

// EvaluatePermissions returns the union of permission codes across the
// user's role assignments in the branch. Zero assignments yield an
// empty set; tenant ownership grants nothing implicitly. Superusers are
// special-cased by callers, never materialized here.
func (s *accessService) EvaluatePermissions(ctx context.Context, userID, branchID uuid.UUID) ([]string, error) {
	assignments, err := s.assignmentRepo.ListByUserAndBranch(ctx, userID, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	seen := make(map[string]bool)
	codes := make([]string, 0)
	for _, a := range assignments {
		if a.Role == nil || !a.Role.IsActive {
			continue
		}
		for _, p := range a.Role.Permissions {
			if !seen[p.Code] {
				seen[p.Code] = true
				codes = append(codes, p.Code)
			}
		}
	}
	return codes, nil
}

// Snapshot returns role claims and the permission union for embedding
// into a credential at login.
func (s *accessService) Snapshot(ctx context.Context, userID, branchID uuid.UUID) ([]RoleClaim, []string, error) {
	assignments, err := s.assignmentRepo.ListByUserAndBranch(ctx, userID, branchID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	roles := make([]RoleClaim, 0, len(assignments))
	seen := make(map[string]bool)
	codes := make([]string, 0)
	for _, a := range assignments {
		if a.Role == nil {
			continue
		}
		roles = append(roles, RoleClaim{
			ID:        a.RoleID.String(),
			Name:      a.Role.Name,
			IsPrimary: a.IsPrimary,
		})
		if !a.Role.IsActive {
			continue
		}
		for _, p := range a.Role.Permissions {
			if !seen[p.Code] {
				seen[p.Code] = true
				codes = append(codes, p.Code)
			}
		}
	}
	return roles, codes, nil
}

// HasPermission answers a point query. The branch defaults to the
// user's current branch; with neither available the check fails closed.
func (s *accessService) HasPermission(ctx context.Context, user *model.User, code string, branchID *uuid.UUID) bool {
	if user == nil {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	target := branchID
	if target == nil {
		target = user.CurrentBranchID
	}
	if target == nil {
		return false
	}
	codes, err := s.EvaluatePermissions(ctx, user.ID, *target)
	if err != nil {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// HasAny is true when the evaluated set intersects codes. An empty
// codes input is permitted for any authenticated user.
func (s *accessService) HasAny(ctx context.Context, user *model.User, codes []string, branchID *uuid.UUID) bool {
	if user == nil {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	if len(codes) == 0 {
		return true
	}
	for _, code := range codes {
		if s.HasPermission(ctx, user, code, branchID) {
			return true
		}
	}
	return false
}

// HasAll is true when codes is a subset of the evaluated set. An empty
// codes input is permitted for any authenticated user.
func (s *accessService) HasAll(ctx context.Context, user *model.User, codes []string, branchID *uuid.UUID) bool {
	if user == nil {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	for _, code := range codes {
		if !s.HasPermission(ctx, user, code, branchID) {
			return false
		}
	}
	return true
}

// Authorize is the single decision point consulted per request. It
// checks a requirement against the actor's snapshot permissions and
// fails closed on a nil actor.
func (s *accessService) Authorize(actor *Actor, req Requirement) bool {
	return Authorize(actor, req)
}

// Authorize is exported standalone so the middleware can run the check
// without a service handle.
func Authorize(actor *Actor, req Requirement) bool {
	if actor == nil {
		return false
	}
	if actor.IsSuperuser {
		return true
	}

	held := make(map[string]bool, len(actor.Permissions))
	for _, c := range actor.Permissions {
		held[c] = true
	}

	switch req.kind {
	case requireNothing:
		return true
	case requireCode:
		return held[req.codes[0]]
	case requireAnyOf:
		if len(req.codes) == 0 {
			return true
		}
		for _, c := range req.codes {
			if held[c] {
				return true
			}
		}
		return false
	case requireAllOf:
		for _, c := range req.codes {
			if !held[c] {
				return false
			}
		}
		return true
	}
	return false
}

// --- Mutations ---
//
// Every mutation is scoped to the caller's distributor: a role or
// assignment belonging to another tenant surfaces as NotFound, the same
// way the read paths hide foreign ids.

// findTenantRole resolves a role id within the tenant scope.
func (s *accessService) findTenantRole(ctx context.Context, distributorID uuid.UUID, roleID string) (*model.Role, error) {
	rid, err := uuid.Parse(roleID)
	if err != nil {
		return nil, apperror.Validation("invalid role id").WithField("role_id", err.Error())
	}
	role, err := s.roleRepo.FindByID(ctx, rid)
	if err != nil {
		return nil, apperror.NotFound("role")
	}
	if role.DistributorID != distributorID {
		return nil, apperror.NotFound("role")
	}
	return role, nil
}

// findTenantAssignment resolves an assignment id within the tenant
// scope, using the preloaded branch to establish the owning tenant.
func (s *accessService) findTenantAssignment(ctx context.Context, distributorID uuid.UUID, id uuid.UUID) (*model.UserRole, error) {
	assignment, err := s.assignmentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("assignment")
		}
		return nil, fmt.Errorf("failed to fetch assignment: %w", err)
	}
	if assignment.Branch == nil || assignment.Branch.DistributorID != distributorID {
		return nil, apperror.NotFound("assignment")
	}
	return assignment, nil
}

func (s *accessService) Grant(ctx context.Context, distributorID uuid.UUID, roleID, permissionID string, actorID *uuid.UUID) error {
	pid, err := uuid.Parse(permissionID)
	if err != nil {
		return apperror.Validation("invalid permission id").WithField("permission_id", err.Error())
	}

	role, err := s.findTenantRole(ctx, distributorID, roleID)
	if err != nil {
		return err
	}
	rid := role.ID
	perm, err := s.roleRepo.FindPermissionByID(ctx, pid)
	if err != nil {
		return apperror.NotFound("permission")
	}

	if err := s.roleRepo.GrantPermission(ctx, rid, pid); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}

	s.audit.Record(ctx, actorID, model.ActionGrantPermission, role.ID.String(), role.Name, map[string]string{
		"permission": perm.Code,
	})
	return nil
}

func (s *accessService) Revoke(ctx context.Context, distributorID uuid.UUID, roleID, permissionID string, actorID *uuid.UUID) error {
	pid, err := uuid.Parse(permissionID)
	if err != nil {
		return apperror.Validation("invalid permission id").WithField("permission_id", err.Error())
	}

	role, err := s.findTenantRole(ctx, distributorID, roleID)
	if err != nil {
		return err
	}
	rid := role.ID
	perm, err := s.roleRepo.FindPermissionByID(ctx, pid)
	if err != nil {
		return apperror.NotFound("permission")
	}

	if err := s.roleRepo.RevokePermission(ctx, rid, pid); err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}

	s.audit.Record(ctx, actorID, model.ActionRevokePermission, role.ID.String(), role.Name, map[string]string{
		"permission": perm.Code,
	})
	return nil
}

// Assign grants a role to a user within a branch. The role and branch
// must belong to the same distributor; this is a hard invariant, not a
// convenience check. Repeated assignment of the same triple is
// idempotent.
func (s *accessService) Assign(ctx context.Context, distributorID uuid.UUID, req AssignRoleRequest, assignedBy *uuid.UUID) (*AssignmentResponse, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, apperror.Validation("invalid user id").WithField("user_id", err.Error())
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return nil, apperror.Validation("invalid branch id").WithField("branch_id", err.Error())
	}

	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, apperror.NotFound("user")
	}
	role, err := s.findTenantRole(ctx, distributorID, req.RoleID)
	if err != nil {
		return nil, err
	}
	roleID := role.ID
	branch, err := s.branchRepo.FindByID(ctx, branchID)
	if err != nil {
		return nil, apperror.NotFound("branch")
	}

	if role.DistributorID != branch.DistributorID {
		return nil, apperror.Validation("role must belong to the same distributor as the branch").
			WithField("role_id", "distributor mismatch").
			WithField("branch_id", "distributor mismatch")
	}

	assignment := &model.UserRole{
		UserID:     userID,
		RoleID:     roleID,
		BranchID:   branchID,
		IsPrimary:  false,
		AssignedBy: assignedBy,
	}
	created, err := s.assignmentRepo.GetOrCreate(ctx, assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	if req.IsPrimary {
		resp, err := s.SetPrimary(ctx, distributorID, assignment.ID.String(), assignedBy)
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	if created {
		s.audit.Record(ctx, assignedBy, model.ActionAssignRole, assignment.ID.String(), role.Name, map[string]string{
			"user_id":   userID.String(),
			"branch_id": branchID.String(),
		})
	}

	reloaded, err := s.assignmentRepo.FindByID(ctx, assignment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload assignment: %w", err)
	}
	resp := toAssignmentResponse(*reloaded)
	return &resp, nil
}

func (s *accessService) Unassign(ctx context.Context, distributorID uuid.UUID, assignmentID string, actorID *uuid.UUID) error {
	id, err := uuid.Parse(assignmentID)
	if err != nil {
		return apperror.Validation("invalid assignment id").WithField("assignment_id", err.Error())
	}

	assignment, err := s.findTenantAssignment(ctx, distributorID, id)
	if err != nil {
		return err
	}

	if err := s.assignmentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	name := ""
	if assignment.Role != nil {
		name = assignment.Role.Name
	}
	s.audit.Record(ctx, actorID, model.ActionUnassignRole, assignmentID, name, map[string]string{
		"user_id": assignment.UserID.String(),
	})
	return nil
}

// SetPrimary makes the assignment the user's single primary one. The
// clear-set-update sequence runs inside one transaction with the user
// row locked, so concurrent calls for the same user serialize and the
// single-primary invariant holds at every commit point.
func (s *accessService) SetPrimary(ctx context.Context, distributorID uuid.UUID, assignmentID string, actorID *uuid.UUID) (*AssignmentResponse, error) {
	id, err := uuid.Parse(assignmentID)
	if err != nil {
		return nil, apperror.Validation("invalid assignment id").WithField("assignment_id", err.Error())
	}

	var assignment *model.UserRole
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		assignment, findErr = s.findTenantAssignment(txCtx, distributorID, id)
		if findErr != nil {
			return findErr
		}

		if _, lockErr := s.userRepo.LockForUpdate(txCtx, assignment.UserID); lockErr != nil {
			return fmt.Errorf("failed to lock user: %w", lockErr)
		}

		if clearErr := s.assignmentRepo.ClearPrimary(txCtx, assignment.UserID); clearErr != nil {
			return fmt.Errorf("failed to clear primary flags: %w", clearErr)
		}
		if setErr := s.assignmentRepo.SetPrimary(txCtx, id); setErr != nil {
			return fmt.Errorf("failed to set primary flag: %w", setErr)
		}

		branchID := assignment.BranchID
		if updateErr := s.userRepo.UpdateCurrentBranch(txCtx, assignment.UserID, &branchID); updateErr != nil {
			return fmt.Errorf("failed to update current branch: %w", updateErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, model.ActionSetPrimary, assignmentID, "", map[string]string{
		"user_id":   assignment.UserID.String(),
		"branch_id": assignment.BranchID.String(),
	})

	reloaded, err := s.assignmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload assignment: %w", err)
	}
	resp := toAssignmentResponse(*reloaded)
	return &resp, nil
}

func (s *accessService) ListUserAssignments(ctx context.Context, distributorID uuid.UUID, userID string) ([]AssignmentResponse, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.Validation("invalid user id").WithField("user_id", err.Error())
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("user")
	}
	if user.DistributorID == nil || *user.DistributorID != distributorID {
		return nil, apperror.NotFound("user")
	}

	assignments, err := s.assignmentRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	res := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		res = append(res, toAssignmentResponse(a))
	}
	return res, nil
}

// --- Mapping ---

func toAssignmentResponse(a model.UserRole) AssignmentResponse {
	resp := AssignmentResponse{
		ID:         a.ID.String(),
		UserID:     a.UserID.String(),
		RoleID:     a.RoleID.String(),
		BranchID:   a.BranchID.String(),
		IsPrimary:  a.IsPrimary,
		AssignedAt: a.AssignedAt.Format("2006-01-02 15:04:05"),
	}
	if a.Role != nil {
		resp.RoleName = a.Role.Name
	}
	if a.Branch != nil {
		resp.BranchName = a.Branch.Name
	}
	if a.AssignedBy != nil {
		v := a.AssignedBy.String()
		resp.AssignedBy = &v
	}
	return resp
}
