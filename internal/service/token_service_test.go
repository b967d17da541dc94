package service

import (
	"context"
	"testing"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/model"
	"backoffice/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRefreshTokenRepo struct {
	tokens map[string]*model.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[string]*model.RefreshToken)}
}

func (f *fakeRefreshTokenRepo) Create(_ context.Context, token *model.RefreshToken) error {
	cp := *token
	f.tokens[token.Token] = &cp
	return nil
}

func (f *fakeRefreshTokenRepo) FindByToken(_ context.Context, token string) (*model.RefreshToken, error) {
	rt, ok := f.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rt
	return &cp, nil
}

func (f *fakeRefreshTokenRepo) Delete(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshTokenRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	for k, rt := range f.tokens {
		if rt.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

func (f *fakeRefreshTokenRepo) DeleteExpired(_ context.Context) error {
	now := time.Now()
	for k, rt := range f.tokens {
		if now.After(rt.ExpiresAt) {
			delete(f.tokens, k)
		}
	}
	return nil
}

type tokenFixture struct {
	svc    TokenService
	access *accessFixture
	rt     *fakeRefreshTokenRepo
}

func newTokenFixture() *tokenFixture {
	access := newAccessFixture()
	rt := newFakeRefreshTokenRepo()
	cfg := config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}
	return &tokenFixture{
		svc:    NewTokenService(cfg, access.users, rt, access.svc),
		access: access,
		rt:     rt,
	}
}

func TestIssuePair_EmbedsPermissionSnapshot(t *testing.T) {
	f := newTokenFixture()
	distributorID := uuid.New()
	branch := f.access.newBranch(distributorID, "Main")
	user := f.access.newUser(distributorID)
	user.Email = "cashier@example.com"
	user.CurrentBranchID = &branch.ID

	role := f.access.newRole(distributorID, "Cashier", "invoice.view", "invoice.create")
	f.access.assignments.add(user.ID, role, branch, true)

	pair, claims, err := f.svc.IssuePair(context.Background(), user)
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens signed")
	}
	if len(claims.Permissions) != 2 {
		t.Fatalf("expected 2 snapshot permissions, got %v", claims.Permissions)
	}
	if len(claims.Roles) != 1 || claims.Roles[0].Name != "Cashier" {
		t.Fatalf("unexpected role claims: %+v", claims.Roles)
	}

	parsed, err := f.svc.Parse(pair.AccessToken)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if parsed.Subject != user.ID.String() {
		t.Fatalf("subject expected %s, got %s", user.ID, parsed.Subject)
	}
	if parsed.Email != "cashier@example.com" {
		t.Fatalf("email not carried: %s", parsed.Email)
	}
	if len(parsed.Permissions) != 2 {
		t.Fatalf("snapshot lost in transit: %v", parsed.Permissions)
	}
}

func TestParse_RejectsRefreshTokenAsAccess(t *testing.T) {
	f := newTokenFixture()
	distributorID := uuid.New()
	user := f.access.newUser(distributorID)

	pair, _, err := f.svc.IssuePair(context.Background(), user)
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	_, err = f.svc.Parse(pair.RefreshToken)
	if apperror.KindOf(err) != apperror.KindAuthentication {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}

	_, err = f.svc.Parse("not.a.token")
	if apperror.KindOf(err) != apperror.KindAuthentication {
		t.Fatalf("garbage accepted: %v", err)
	}
}

func TestRefresh_RotatesAndIsSingleUse(t *testing.T) {
	f := newTokenFixture()
	distributorID := uuid.New()
	user := f.access.newUser(distributorID)

	pair, _, err := f.svc.IssuePair(context.Background(), user)
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	next, _, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// the consumed token is gone
	_, _, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
	if apperror.KindOf(err) != apperror.KindAuthentication {
		t.Fatalf("expected replay rejection, got %v", err)
	}
}

func TestRefresh_ReevaluatesSnapshot(t *testing.T) {
	f := newTokenFixture()
	distributorID := uuid.New()
	branch := f.access.newBranch(distributorID, "Main")
	user := f.access.newUser(distributorID)
	user.CurrentBranchID = &branch.ID

	role := f.access.newRole(distributorID, "Cashier", "invoice.create")
	a := f.access.assignments.add(user.ID, role, branch, true)

	pair, claims, err := f.svc.IssuePair(context.Background(), user)
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if len(claims.Permissions) != 1 {
		t.Fatalf("expected 1 permission before revocation, got %v", claims.Permissions)
	}

	// revoke the assignment, then refresh: the grant drops out
	if err := f.access.assignments.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("delete assignment: %v", err)
	}
	_, refreshed, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if len(refreshed.Permissions) != 0 {
		t.Fatalf("revoked grant survived refresh: %v", refreshed.Permissions)
	}
}

func TestRefresh_RejectsDisabledUser(t *testing.T) {
	f := newTokenFixture()
	distributorID := uuid.New()
	user := f.access.newUser(distributorID)

	pair, _, err := f.svc.IssuePair(context.Background(), user)
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	user.IsActive = false
	_, _, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
	if apperror.KindOf(err) != apperror.KindAuthentication {
		t.Fatalf("disabled user refreshed: %v", err)
	}
}

func TestRevokeAll_InvalidatesEveryRefreshToken(t *testing.T) {
	f := newTokenFixture()
	distributorID := uuid.New()
	user := f.access.newUser(distributorID)

	p1, _, _ := f.svc.IssuePair(context.Background(), user)
	p2, _, _ := f.svc.IssuePair(context.Background(), user)

	if err := f.svc.RevokeAll(context.Background(), user.ID); err != nil {
		t.Fatalf("RevokeAll error: %v", err)
	}
	for _, tok := range []string{p1.RefreshToken, p2.RefreshToken} {
		if _, _, err := f.svc.Refresh(context.Background(), tok); apperror.KindOf(err) != apperror.KindAuthentication {
			t.Fatalf("revoked token still usable: %v", err)
		}
	}
}

func TestActorFromClaims(t *testing.T) {
	userID := uuid.New()
	branchID := uuid.New()
	branchStr := branchID.String()

	claims := &Claims{
		IsSuperuser: false,
		BranchID:    &branchStr,
		Permissions: []string{"invoice.view"},
	}
	claims.Subject = userID.String()

	actor, err := ActorFromClaims(claims)
	if err != nil {
		t.Fatalf("ActorFromClaims error: %v", err)
	}
	if actor.UserID != userID {
		t.Fatalf("user id mismatch: %s", actor.UserID)
	}
	if actor.BranchID == nil || *actor.BranchID != branchID {
		t.Fatal("branch id not carried")
	}
	if !Authorize(actor, RequireCode("invoice.view")) {
		t.Fatal("actor lost its permissions")
	}

	claims.Subject = "garbage"
	if _, err := ActorFromClaims(claims); apperror.KindOf(err) != apperror.KindAuthentication {
		t.Fatalf("malformed subject accepted: %v", err)
	}
}
