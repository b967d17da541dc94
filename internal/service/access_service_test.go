package service

import (
	"context"
	"testing"
	"time"

	"backoffice/internal/model"
	"backoffice/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- fakes ---

type fakeAssignmentRepo struct {
	assignments map[uuid.UUID]*model.UserRole
	roles       map[uuid.UUID]*model.Role
	branches    map[uuid.UUID]*model.Branch
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{
		assignments: make(map[uuid.UUID]*model.UserRole),
		roles:       make(map[uuid.UUID]*model.Role),
		branches:    make(map[uuid.UUID]*model.Branch),
	}
}

func (f *fakeAssignmentRepo) add(userID uuid.UUID, role *model.Role, branch *model.Branch, primary bool) *model.UserRole {
	f.roles[role.ID] = role
	f.branches[branch.ID] = branch
	a := &model.UserRole{
		ID:         uuid.New(),
		UserID:     userID,
		RoleID:     role.ID,
		BranchID:   branch.ID,
		IsPrimary:  primary,
		AssignedAt: time.Now(),
	}
	f.assignments[a.ID] = a
	return a
}

func (f *fakeAssignmentRepo) hydrate(a model.UserRole) model.UserRole {
	a.Role = f.roles[a.RoleID]
	a.Branch = f.branches[a.BranchID]
	return a
}

func (f *fakeAssignmentRepo) GetOrCreate(_ context.Context, assignment *model.UserRole) (bool, error) {
	for _, a := range f.assignments {
		if a.UserID == assignment.UserID && a.RoleID == assignment.RoleID && a.BranchID == assignment.BranchID {
			*assignment = *a
			return false, nil
		}
	}
	assignment.ID = uuid.New()
	assignment.AssignedAt = time.Now()
	cp := *assignment
	f.assignments[assignment.ID] = &cp
	return true, nil
}

func (f *fakeAssignmentRepo) FindByID(_ context.Context, id uuid.UUID) (*model.UserRole, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := f.hydrate(*a)
	return &cp, nil
}

func (f *fakeAssignmentRepo) ListByUserAndBranch(_ context.Context, userID, branchID uuid.UUID) ([]model.UserRole, error) {
	out := make([]model.UserRole, 0)
	for _, a := range f.assignments {
		if a.UserID == userID && a.BranchID == branchID {
			out = append(out, f.hydrate(*a))
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.UserRole, error) {
	out := make([]model.UserRole, 0)
	for _, a := range f.assignments {
		if a.UserID == userID {
			out = append(out, f.hydrate(*a))
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) ListByDistributor(_ context.Context, distributorID uuid.UUID) ([]model.UserRole, error) {
	out := make([]model.UserRole, 0)
	for _, a := range f.assignments {
		if r := f.roles[a.RoleID]; r != nil && r.DistributorID == distributorID {
			out = append(out, f.hydrate(*a))
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) ClearPrimary(_ context.Context, userID uuid.UUID) error {
	for _, a := range f.assignments {
		if a.UserID == userID {
			a.IsPrimary = false
		}
	}
	return nil
}

func (f *fakeAssignmentRepo) SetPrimary(_ context.Context, id uuid.UUID) error {
	a, ok := f.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.IsPrimary = true
	return nil
}

func (f *fakeAssignmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.assignments, id)
	return nil
}

type fakeRoleRepo struct {
	roles map[uuid.UUID]*model.Role
	perms map[uuid.UUID]*model.Permission
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		roles: make(map[uuid.UUID]*model.Role),
		perms: make(map[uuid.UUID]*model.Permission),
	}
}

func (f *fakeRoleRepo) Create(_ context.Context, role *model.Role) error {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRoleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeRoleRepo) FindByIDWithPermissions(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeRoleRepo) ListByDistributor(_ context.Context, distributorID uuid.UUID) ([]model.Role, error) {
	out := make([]model.Role, 0)
	for _, r := range f.roles {
		if r.DistributorID == distributorID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRoleRepo) Update(_ context.Context, role *model.Role) error {
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRoleRepo) Delete(_ context.Context, role *model.Role) error {
	delete(f.roles, role.ID)
	return nil
}

func (f *fakeRoleRepo) GrantPermission(_ context.Context, roleID, permissionID uuid.UUID) error {
	r, ok := f.roles[roleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p, ok := f.perms[permissionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, existing := range r.Permissions {
		if existing.ID == permissionID {
			return nil
		}
	}
	r.Permissions = append(r.Permissions, *p)
	return nil
}

func (f *fakeRoleRepo) RevokePermission(_ context.Context, roleID, permissionID uuid.UUID) error {
	r, ok := f.roles[roleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	kept := r.Permissions[:0]
	for _, p := range r.Permissions {
		if p.ID != permissionID {
			kept = append(kept, p)
		}
	}
	r.Permissions = kept
	return nil
}

func (f *fakeRoleRepo) ReplacePermissions(_ context.Context, role *model.Role, perms []model.Permission) error {
	role.Permissions = perms
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRoleRepo) FindPermissionByID(_ context.Context, id uuid.UUID) (*model.Permission, error) {
	p, ok := f.perms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakeRoleRepo) FindPermissionsByIDs(_ context.Context, ids []uuid.UUID) ([]model.Permission, error) {
	out := make([]model.Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.perms[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRoleRepo) ListPermissions(_ context.Context) ([]model.Permission, error) {
	out := make([]model.Permission, 0, len(f.perms))
	for _, p := range f.perms {
		out = append(out, *p)
	}
	return out, nil
}

type fakeBranchRepo struct {
	branches map[uuid.UUID]*model.Branch
}

func newFakeBranchRepo() *fakeBranchRepo {
	return &fakeBranchRepo{branches: make(map[uuid.UUID]*model.Branch)}
}

func (f *fakeBranchRepo) Create(_ context.Context, branch *model.Branch) error {
	if branch.ID == uuid.Nil {
		branch.ID = uuid.New()
	}
	f.branches[branch.ID] = branch
	return nil
}

func (f *fakeBranchRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Branch, error) {
	b, ok := f.branches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (f *fakeBranchRepo) ListByDistributor(_ context.Context, distributorID uuid.UUID) ([]model.Branch, error) {
	out := make([]model.Branch, 0)
	for _, b := range f.branches {
		if b.DistributorID == distributorID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBranchRepo) CountByDistributor(_ context.Context, distributorID uuid.UUID) (int64, error) {
	var n int64
	for _, b := range f.branches {
		if b.DistributorID == distributorID {
			n++
		}
	}
	return n, nil
}

func (f *fakeBranchRepo) Update(_ context.Context, branch *model.Branch) error {
	f.branches[branch.ID] = branch
	return nil
}

func (f *fakeBranchRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.branches, id)
	return nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) FindByIDWithContext(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) List(_ context.Context, distributorID *uuid.UUID, page, limit int) ([]model.User, int64, error) {
	out := make([]model.User, 0)
	for _, u := range f.users {
		if distributorID == nil || (u.DistributorID != nil && *u.DistributorID == *distributorID) {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) CountByDistributor(_ context.Context, distributorID uuid.UUID) (int64, error) {
	var n int64
	for _, u := range f.users {
		if u.DistributorID != nil && *u.DistributorID == distributorID {
			n++
		}
	}
	return n, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdateCurrentBranch(_ context.Context, userID uuid.UUID, branchID *uuid.UUID) error {
	u, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.CurrentBranchID = branchID
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return f.FindByID(ctx, id)
}

// --- fixtures ---

type accessFixture struct {
	svc         AccessService
	assignments *fakeAssignmentRepo
	roles       *fakeRoleRepo
	branches    *fakeBranchRepo
	users       *fakeUserRepo
}

func newAccessFixture() *accessFixture {
	f := &accessFixture{
		assignments: newFakeAssignmentRepo(),
		roles:       newFakeRoleRepo(),
		branches:    newFakeBranchRepo(),
		users:       newFakeUserRepo(),
	}
	f.svc = NewAccessService(f.roles, f.assignments, f.branches, f.users, fakeTxManager{}, NopAuditRecorder{})
	return f
}

func (f *accessFixture) newRole(distributorID uuid.UUID, name string, codes ...string) *model.Role {
	role := &model.Role{
		ID:            uuid.New(),
		DistributorID: distributorID,
		Name:          name,
		IsActive:      true,
	}
	for _, code := range codes {
		p := model.Permission{ID: uuid.New(), Code: code}
		role.Permissions = append(role.Permissions, p)
		cp := p
		f.roles.perms[p.ID] = &cp
	}
	f.roles.roles[role.ID] = role
	f.assignments.roles[role.ID] = role
	return role
}

func (f *accessFixture) newBranch(distributorID uuid.UUID, name string) *model.Branch {
	b := &model.Branch{ID: uuid.New(), DistributorID: distributorID, Name: name, IsActive: true}
	f.branches.branches[b.ID] = b
	f.assignments.branches[b.ID] = b
	return b
}

func (f *accessFixture) newUser(distributorID uuid.UUID) *model.User {
	u := &model.User{ID: uuid.New(), DistributorID: &distributorID, IsActive: true}
	f.users.users[u.ID] = u
	return u
}

// --- tests ---

func TestEvaluatePermissions_UnionAcrossRoles(t *testing.T) {
	f := newAccessFixture()
	distributorID := uuid.New()
	branch := f.newBranch(distributorID, "Main")
	user := f.newUser(distributorID)

	cashier := f.newRole(distributorID, "Cashier", "invoice.view", "invoice.create")
	stockist := f.newRole(distributorID, "Stockist", "product.view", "invoice.view")

	f.assignments.add(user.ID, cashier, branch, true)
	f.assignments.add(user.ID, stockist, branch, false)

	codes, err := f.svc.EvaluatePermissions(context.Background(), user.ID, branch.ID)
	if err != nil {
		t.Fatalf("EvaluatePermissions error: %v", err)
	}

	held := make(map[string]bool)
	for _, c := range codes {
		held[c] = true
	}
	for _, want := range []string{"invoice.view", "invoice.create", "product.view"} {
		if !held[want] {
			t.Fatalf("expected %s in evaluated set %v", want, codes)
		}
	}
	if len(codes) != 3 {
		t.Fatalf("expected deduplicated set of 3, got %v", codes)
	}
}

func TestEvaluatePermissions_ScopedToBranch(t *testing.T) {
	f := newAccessFixture()
	distributorID := uuid.New()
	main := f.newBranch(distributorID, "Main")
	depot := f.newBranch(distributorID, "Depot")
	user := f.newUser(distributorID)

	cashier := f.newRole(distributorID, "Cashier", "invoice.create")
	f.assignments.add(user.ID, cashier, main, true)

	codes, err := f.svc.EvaluatePermissions(context.Background(), user.ID, depot.ID)
	if err != nil {
		t.Fatalf("EvaluatePermissions error: %v", err)
	}
	if len(codes) != 0 {
		t.Fatalf("expected empty set in unassigned branch, got %v", codes)
	}
}

func TestEvaluatePermissions_SkipsInactiveRoles(t *testing.T) {
	f := newAccessFixture()
	distributorID := uuid.New()
	branch := f.newBranch(distributorID, "Main")
	user := f.newUser(distributorID)

	retired := f.newRole(distributorID, "Retired", "invoice.create")
	retired.IsActive = false
	f.assignments.add(user.ID, retired, branch, true)

	codes, err := f.svc.EvaluatePermissions(context.Background(), user.ID, branch.ID)
	if err != nil {
		t.Fatalf("EvaluatePermissions error: %v", err)
	}
	if len(codes) != 0 {
		t.Fatalf("inactive role contributed permissions: %v", codes)
	}
}

func TestAuthorize_RequirementKinds(t *testing.T) {
	actor := &Actor{UserID: uuid.New(), Permissions: []string{"invoice.view", "invoice.create"}}

	cases := []struct {
		name     string
		actor    *Actor
		req      Requirement
		expected bool
	}{
		{"nil actor fails closed", nil, NoRequirement(), false},
		{"no requirement", actor, NoRequirement(), true},
		{"held code", actor, RequireCode("invoice.view"), true},
		{"missing code", actor, RequireCode("invoice.cancel"), false},
		{"any-of hit", actor, RequireAnyOf("invoice.cancel", "invoice.view"), true},
		{"any-of miss", actor, RequireAnyOf("invoice.cancel", "role.edit"), false},
		{"empty any-of", actor, RequireAnyOf(), true},
		{"all-of held", actor, RequireAllOf("invoice.view", "invoice.create"), true},
		{"all-of partial", actor, RequireAllOf("invoice.view", "invoice.cancel"), false},
		{"empty all-of", actor, RequireAllOf(), true},
		{"superuser bypasses everything", &Actor{UserID: uuid.New(), IsSuperuser: true}, RequireAllOf("invoice.cancel", "role.delete"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Authorize(tc.actor, tc.req); got != tc.expected {
				t.Fatalf("Authorize expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestHasPermission_SuperuserAndFailClosed(t *testing.T) {
	f := newAccessFixture()
	ctx := context.Background()

	if f.svc.HasPermission(ctx, nil, "invoice.view", nil) {
		t.Fatal("nil user must fail closed")
	}

	super := &model.User{ID: uuid.New(), IsSuperuser: true}
	if !f.svc.HasPermission(ctx, super, "anything.at.all", nil) {
		t.Fatal("superuser must pass every check")
	}

	// ordinary user with no branch context fails closed
	plain := &model.User{ID: uuid.New()}
	if f.svc.HasPermission(ctx, plain, "invoice.view", nil) {
		t.Fatal("user without a branch must fail closed")
	}
}

func TestAssign_RejectsCrossTenantRoleBranchPair(t *testing.T) {
	f := newAccessFixture()
	tenantA := uuid.New()
	tenantB := uuid.New()

	user := f.newUser(tenantA)
	role := f.newRole(tenantA, "Cashier", "invoice.create")
	foreignBranch := f.newBranch(tenantB, "Elsewhere")

	_, err := f.svc.Assign(context.Background(), tenantA, AssignRoleRequest{
		UserID:   user.ID.String(),
		RoleID:   role.ID.String(),
		BranchID: foreignBranch.ID.String(),
	}, nil)
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("expected validation error for distributor mismatch, got %v", err)
	}
}

func TestAssign_IsIdempotentOnTriple(t *testing.T) {
	f := newAccessFixture()
	distributorID := uuid.New()
	user := f.newUser(distributorID)
	role := f.newRole(distributorID, "Cashier", "invoice.create")
	branch := f.newBranch(distributorID, "Main")

	req := AssignRoleRequest{
		UserID:   user.ID.String(),
		RoleID:   role.ID.String(),
		BranchID: branch.ID.String(),
	}
	first, err := f.svc.Assign(context.Background(), distributorID, req, nil)
	if err != nil {
		t.Fatalf("Assign error: %v", err)
	}
	second, err := f.svc.Assign(context.Background(), distributorID, req, nil)
	if err != nil {
		t.Fatalf("repeat Assign error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("repeat assignment created a new row: %s vs %s", first.ID, second.ID)
	}
	if len(f.assignments.assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(f.assignments.assignments))
	}
}

func TestSetPrimary_SinglePrimaryInvariant(t *testing.T) {
	f := newAccessFixture()
	distributorID := uuid.New()
	user := f.newUser(distributorID)
	role := f.newRole(distributorID, "Cashier", "invoice.create")
	main := f.newBranch(distributorID, "Main")
	depot := f.newBranch(distributorID, "Depot")

	a1 := f.assignments.add(user.ID, role, main, true)
	a2 := f.assignments.add(user.ID, role, depot, false)

	resp, err := f.svc.SetPrimary(context.Background(), distributorID, a2.ID.String(), nil)
	if err != nil {
		t.Fatalf("SetPrimary error: %v", err)
	}
	if !resp.IsPrimary {
		t.Fatal("promoted assignment not marked primary")
	}

	primaries := 0
	for _, a := range f.assignments.assignments {
		if a.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		t.Fatalf("expected exactly one primary, got %d", primaries)
	}
	if f.assignments.assignments[a1.ID].IsPrimary {
		t.Fatal("previous primary flag was not cleared")
	}

	// the user's current branch follows the new primary
	if user.CurrentBranchID == nil || *user.CurrentBranchID != depot.ID {
		t.Fatalf("current branch not moved to %s", depot.Name)
	}
}

func TestAssign_WithPrimaryPromotesImmediately(t *testing.T) {
	f := newAccessFixture()
	distributorID := uuid.New()
	user := f.newUser(distributorID)
	role := f.newRole(distributorID, "Cashier", "invoice.create")
	branch := f.newBranch(distributorID, "Main")

	resp, err := f.svc.Assign(context.Background(), distributorID, AssignRoleRequest{
		UserID:    user.ID.String(),
		RoleID:    role.ID.String(),
		BranchID:  branch.ID.String(),
		IsPrimary: true,
	}, nil)
	if err != nil {
		t.Fatalf("Assign error: %v", err)
	}
	if !resp.IsPrimary {
		t.Fatal("assignment requested as primary was not promoted")
	}
	if user.CurrentBranchID == nil || *user.CurrentBranchID != branch.ID {
		t.Fatal("current branch not set by primary assignment")
	}
}

func TestGrantRevoke_RoundTrip(t *testing.T) {
	f := newAccessFixture()
	distributorID := uuid.New()
	role := f.newRole(distributorID, "Cashier")

	perm := &model.Permission{ID: uuid.New(), Code: "invoice.cancel"}
	f.roles.perms[perm.ID] = perm

	if err := f.svc.Grant(context.Background(), distributorID, role.ID.String(), perm.ID.String(), nil); err != nil {
		t.Fatalf("Grant error: %v", err)
	}
	if len(role.Permissions) != 1 || role.Permissions[0].Code != "invoice.cancel" {
		t.Fatalf("grant not applied: %v", role.Permissions)
	}

	if err := f.svc.Revoke(context.Background(), distributorID, role.ID.String(), perm.ID.String(), nil); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if len(role.Permissions) != 0 {
		t.Fatalf("revoke not applied: %v", role.Permissions)
	}

	// unknown ids surface as not found
	err := f.svc.Grant(context.Background(), distributorID, uuid.NewString(), perm.ID.String(), nil)
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("expected not found for unknown role, got %v", err)
	}
}

func TestGrantRevoke_HidesForeignTenantRoles(t *testing.T) {
	f := newAccessFixture()
	tenantA := uuid.New()
	tenantB := uuid.New()

	role := f.newRole(tenantB, "Cashier")
	perm := &model.Permission{ID: uuid.New(), Code: "invoice.cancel"}
	f.roles.perms[perm.ID] = perm

	// a tenant-A caller never learns the role exists
	err := f.svc.Grant(context.Background(), tenantA, role.ID.String(), perm.ID.String(), nil)
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("expected not found for foreign role on grant, got %v", err)
	}
	err = f.svc.Revoke(context.Background(), tenantA, role.ID.String(), perm.ID.String(), nil)
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("expected not found for foreign role on revoke, got %v", err)
	}
	if len(role.Permissions) != 0 {
		t.Fatalf("foreign grant must not change the role: %v", role.Permissions)
	}
}

func TestAssignmentMutations_HideForeignTenantAssignments(t *testing.T) {
	f := newAccessFixture()
	tenantA := uuid.New()
	tenantB := uuid.New()

	user := f.newUser(tenantB)
	role := f.newRole(tenantB, "Cashier", "invoice.create")
	branch := f.newBranch(tenantB, "Main")
	a := f.assignments.add(user.ID, role, branch, true)

	_, err := f.svc.SetPrimary(context.Background(), tenantA, a.ID.String(), nil)
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("expected not found for foreign assignment on set-primary, got %v", err)
	}

	err = f.svc.Unassign(context.Background(), tenantA, a.ID.String(), nil)
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("expected not found for foreign assignment on unassign, got %v", err)
	}
	if _, ok := f.assignments.assignments[a.ID]; !ok {
		t.Fatal("foreign unassign must not delete the assignment")
	}

	_, err = f.svc.ListUserAssignments(context.Background(), tenantA, user.ID.String())
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("expected not found for foreign user listing, got %v", err)
	}

	// the owning tenant still operates normally
	if _, err := f.svc.SetPrimary(context.Background(), tenantB, a.ID.String(), nil); err != nil {
		t.Fatalf("SetPrimary in owning tenant: %v", err)
	}
	assignments, err := f.svc.ListUserAssignments(context.Background(), tenantB, user.ID.String())
	if err != nil {
		t.Fatalf("ListUserAssignments in owning tenant: %v", err)
	}
	if len(assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assignments))
	}
}

type recordingAuditRecorder struct {
	actorIDs []*uuid.UUID
	actions  []string
}

func (r *recordingAuditRecorder) Record(_ context.Context, actorID *uuid.UUID, action, _, _ string, _ any) {
	r.actorIDs = append(r.actorIDs, actorID)
	r.actions = append(r.actions, action)
}

func TestSetPrimary_RecordsActingUser(t *testing.T) {
	f := newAccessFixture()
	audit := &recordingAuditRecorder{}
	f.svc = NewAccessService(f.roles, f.assignments, f.branches, f.users, fakeTxManager{}, audit)

	distributorID := uuid.New()
	user := f.newUser(distributorID)
	role := f.newRole(distributorID, "Cashier", "invoice.create")
	branch := f.newBranch(distributorID, "Main")
	a := f.assignments.add(user.ID, role, branch, false)

	admin := uuid.New()
	if _, err := f.svc.SetPrimary(context.Background(), distributorID, a.ID.String(), &admin); err != nil {
		t.Fatalf("SetPrimary error: %v", err)
	}

	if len(audit.actions) != 1 || audit.actions[0] != model.ActionSetPrimary {
		t.Fatalf("expected one set-primary audit record, got %v", audit.actions)
	}
	if audit.actorIDs[0] == nil || *audit.actorIDs[0] != admin {
		t.Fatalf("audit record lost the acting user: %v", audit.actorIDs[0])
	}
}

func TestSnapshot_CarriesRolesAndPermissions(t *testing.T) {
	f := newAccessFixture()
	distributorID := uuid.New()
	branch := f.newBranch(distributorID, "Main")
	user := f.newUser(distributorID)

	manager := f.newRole(distributorID, "Manager", "invoice.view", "report.view")
	f.assignments.add(user.ID, manager, branch, true)

	roles, codes, err := f.svc.Snapshot(context.Background(), user.ID, branch.ID)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if len(roles) != 1 || roles[0].Name != "Manager" || !roles[0].IsPrimary {
		t.Fatalf("unexpected role claims: %+v", roles)
	}
	if len(codes) != 2 {
		t.Fatalf("expected 2 permission codes, got %v", codes)
	}
}
