package service

import (
	"context"
	"strings"
	"testing"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeDistributorRepo struct {
	distributors map[uuid.UUID]*model.Distributor
}

func newFakeDistributorRepo() *fakeDistributorRepo {
	return &fakeDistributorRepo{distributors: make(map[uuid.UUID]*model.Distributor)}
}

func (f *fakeDistributorRepo) Create(_ context.Context, d *model.Distributor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	f.distributors[d.ID] = d
	return nil
}

func (f *fakeDistributorRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Distributor, error) {
	d, ok := f.distributors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (f *fakeDistributorRepo) FindBySlug(_ context.Context, slug string) (*model.Distributor, error) {
	for _, d := range f.distributors {
		if d.Slug == slug {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDistributorRepo) List(_ context.Context, page, limit int) ([]model.Distributor, int64, error) {
	out := make([]model.Distributor, 0, len(f.distributors))
	for _, d := range f.distributors {
		out = append(out, *d)
	}
	return out, int64(len(out)), nil
}

func (f *fakeDistributorRepo) Update(_ context.Context, d *model.Distributor) error {
	f.distributors[d.ID] = d
	return nil
}

func (f *fakeDistributorRepo) Stats(_ context.Context, id uuid.UUID) (*repository.DistributorStats, error) {
	return &repository.DistributorStats{}, nil
}

type tenantFixture struct {
	svc          TenantService
	distributors *fakeDistributorRepo
	access       *accessFixture
}

func newTenantFixture() *tenantFixture {
	access := newAccessFixture()
	distributors := newFakeDistributorRepo()

	// seed a miniature permission catalog spanning several modules
	for _, code := range []string{
		"invoice.view", "invoice.create", "product.view",
		"role.edit", "user.create", "pos.operate",
	} {
		p := &model.Permission{ID: uuid.New(), Code: code}
		if i := strings.IndexByte(code, '.'); i > 0 {
			p.Module = code[:i]
			p.Action = code[i+1:]
		}
		access.roles.perms[p.ID] = p
	}

	return &tenantFixture{
		svc: NewTenantService(distributors, access.branches, access.roles,
			access.users, access.assignments, fakeTxManager{}),
		distributors: distributors,
		access:       access,
	}
}

func validRegistration() RegisterDistributorRequest {
	return RegisterDistributorRequest{
		Name:          "Acme Distribution",
		ContactEmail:  "hello@acme.example",
		OwnerEmail:    "owner@acme.example",
		OwnerPassword: "secret123",
		OwnerFirst:    "Asha",
	}
}

func TestRegister_BootstrapsTenant(t *testing.T) {
	f := newTenantFixture()

	resp, err := f.svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if resp.Slug != "acme-distribution" {
		t.Fatalf("unexpected slug %q", resp.Slug)
	}
	if resp.SubscriptionTier != model.TierTrial {
		t.Fatalf("new tenant expected trial tier, got %s", resp.SubscriptionTier)
	}

	// default roles seeded
	distributorID := uuid.MustParse(resp.ID)
	roles, err := f.access.roles.ListByDistributor(context.Background(), distributorID)
	if err != nil {
		t.Fatalf("listing roles: %v", err)
	}
	byName := make(map[string]model.Role, len(roles))
	for _, r := range roles {
		byName[r.Name] = r
	}
	for _, name := range []string{"Owner", "Manager", "Staff"} {
		if _, ok := byName[name]; !ok {
			t.Fatalf("default role %s not seeded", name)
		}
	}
	if len(byName["Owner"].Permissions) != 6 {
		t.Fatalf("owner role expected full catalog, got %d perms", len(byName["Owner"].Permissions))
	}
	for _, p := range byName["Staff"].Permissions {
		if p.Module != "invoice" && p.Module != "pos" {
			t.Fatalf("staff role holds out-of-scope permission %s", p.Code)
		}
	}

	// owner user exists with a primary assignment in the main branch
	owner, err := f.access.users.FindByEmail(context.Background(), "owner@acme.example")
	if err != nil {
		t.Fatalf("owner user not created: %v", err)
	}
	if owner.CurrentBranchID == nil {
		t.Fatal("owner has no current branch")
	}
	assignments, _ := f.access.assignments.ListByUser(context.Background(), owner.ID)
	if len(assignments) != 1 || !assignments[0].IsPrimary {
		t.Fatalf("owner expected one primary assignment, got %+v", assignments)
	}
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	f := newTenantFixture()

	if _, err := f.svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first Register error: %v", err)
	}

	// same name, different owner: slug collision
	req := validRegistration()
	req.OwnerEmail = "other@acme.example"
	if _, err := f.svc.Register(context.Background(), req); apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("expected slug conflict, got %v", err)
	}

	// same owner email, different name
	req = validRegistration()
	req.Name = "Fresh Name Co"
	if _, err := f.svc.Register(context.Background(), req); apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestUpdateDistributor_TierChangesLimits(t *testing.T) {
	f := newTenantFixture()

	resp, err := f.svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	tier := model.TierProfessional
	updated, err := f.svc.UpdateDistributor(context.Background(), resp.ID, UpdateDistributorRequest{
		SubscriptionTier: &tier,
	})
	if err != nil {
		t.Fatalf("UpdateDistributor error: %v", err)
	}
	if updated.MaxBranches != 10 || updated.MaxUsers != 50 {
		t.Fatalf("professional tier expected 10/50, got %d/%d", updated.MaxBranches, updated.MaxUsers)
	}

	bogus := "platinum"
	if _, err := f.svc.UpdateDistributor(context.Background(), resp.ID, UpdateDistributorRequest{
		SubscriptionTier: &bogus,
	}); apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("unknown tier accepted: %v", err)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"Acme Distribution", "acme-distribution"},
		{"  A&B Traders!  ", "a-b-traders"},
		{"ALL-CAPS", "all-caps"},
		{"--weird--", "weird"},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.expected {
			t.Fatalf("slugify(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}
