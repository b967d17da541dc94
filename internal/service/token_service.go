package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Claims is the access token payload. Roles and permissions are a
// snapshot of the user's grants in their current branch taken at issue
// time; they go stale until the next refresh, which is accepted. Role
// and OrganizationID are kept for older clients.
type Claims struct {
	jwt.RegisteredClaims

	TokenType string `json:"token_type"`

	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	FullName    string `json:"full_name"`
	IsSuperuser bool   `json:"is_superuser"`

	DistributorID   *string `json:"distributor_id"`
	DistributorName string  `json:"distributor_name,omitempty"`

	BranchID   *string `json:"branch_id"`
	BranchName string  `json:"branch_name,omitempty"`
	BranchCode string  `json:"branch_code,omitempty"`

	Roles       []RoleClaim `json:"roles"`
	Permissions []string    `json:"permissions"`

	Role           string `json:"role,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService issues and verifies credentials. Access tokens embed the
// permission snapshot; refresh tokens are persisted server-side so they
// can be revoked.
type TokenService interface {
	IssuePair(ctx context.Context, user *model.User) (*TokenPair, *Claims, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, *Claims, error)
	Revoke(ctx context.Context, refreshToken string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
	Parse(tokenString string) (*Claims, error)
}

type tokenService struct {
	cfg      config.JWTConfig
	userRepo repository.UserRepository
	rtRepo   repository.RefreshTokenRepository
	access   AccessService
}

func NewTokenService(
	cfg config.JWTConfig,
	userRepo repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	access AccessService,
) TokenService {
	return &tokenService{cfg: cfg, userRepo: userRepo, rtRepo: rtRepo, access: access}
}

// IssuePair signs an access token carrying the permission snapshot for
// the user's current branch, plus a persisted refresh token.
func (s *tokenService) IssuePair(ctx context.Context, user *model.User) (*TokenPair, *Claims, error) {
	claims, err := s.buildClaims(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	access, err := s.sign(claims)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := s.issueRefresh(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, claims, nil
}

// Refresh rotates the pair. The permission snapshot is re-evaluated
// against current assignments, so revoked grants drop out here.
func (s *tokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, *Claims, error) {
	stored, err := s.rtRepo.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperror.Unauthenticated("invalid refresh token")
		}
		return nil, nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.rtRepo.Delete(ctx, refreshToken)
		return nil, nil, apperror.Unauthenticated("refresh token expired")
	}

	user, err := s.userRepo.FindByIDWithContext(ctx, stored.UserID)
	if err != nil {
		return nil, nil, apperror.Unauthenticated("user no longer exists")
	}
	if !user.IsActive {
		return nil, nil, apperror.Unauthenticated("account is disabled")
	}

	// single use: rotate the stored token
	if err := s.rtRepo.Delete(ctx, refreshToken); err != nil {
		return nil, nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return s.IssuePair(ctx, user)
}

func (s *tokenService) Revoke(ctx context.Context, refreshToken string) error {
	return s.rtRepo.Delete(ctx, refreshToken)
}

func (s *tokenService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.rtRepo.DeleteByUser(ctx, userID)
}

// Parse verifies the signature and rejects anything but HS256 and
// non-access token types.
func (s *tokenService) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.Unauthenticated("invalid or expired token")
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, apperror.Unauthenticated("not an access token")
	}
	return claims, nil
}

func (s *tokenService) buildClaims(ctx context.Context, user *model.User) (*Claims, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
		},
		TokenType:      tokenTypeAccess,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		FullName:       user.FullName(),
		IsSuperuser:    user.IsSuperuser,
		Roles:          []RoleClaim{},
		Permissions:    []string{},
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
	}

	if user.DistributorID != nil {
		id := user.DistributorID.String()
		claims.DistributorID = &id
		if user.Distributor != nil {
			claims.DistributorName = user.Distributor.Name
		}
	}

	if user.CurrentBranchID != nil {
		id := user.CurrentBranchID.String()
		claims.BranchID = &id
		if user.CurrentBranch != nil {
			claims.BranchName = user.CurrentBranch.Name
			claims.BranchCode = user.CurrentBranch.Code
		}

		roles, perms, err := s.access.Snapshot(ctx, user.ID, *user.CurrentBranchID)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate permission snapshot: %w", err)
		}
		claims.Roles = roles
		claims.Permissions = perms
	}

	return claims, nil
}

func (s *tokenService) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *tokenService) issueRefresh(ctx context.Context, userID uuid.UUID) (string, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.RefreshTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.New().String(),
	})
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	record := &model.RefreshToken{
		UserID:    userID,
		Token:     signed,
		ExpiresAt: expiresAt,
	}
	if err := s.rtRepo.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to persist refresh token: %w", err)
	}
	return signed, nil
}

// ActorFromClaims reconstructs the permission-check subject from a
// verified token, without touching the database.
func ActorFromClaims(claims *Claims) (*Actor, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.Unauthenticated("malformed subject claim")
	}
	actor := &Actor{
		UserID:      userID,
		IsSuperuser: claims.IsSuperuser,
		Permissions: claims.Permissions,
	}
	if claims.BranchID != nil {
		if branchID, err := uuid.Parse(*claims.BranchID); err == nil {
			actor.BranchID = &branchID
		}
	}
	return actor, nil
}
