package middleware

import (
	"net/http"
	"os"
	"strings"

	"backoffice/internal/config"
	"backoffice/internal/repository"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxActor  = "actor"
	ctxClaims = "claims"
)

var (
	tokens service.TokenService
	access service.AccessService
	users  repository.UserRepository
	jwtCfg config.JWTConfig
)

// InitAuth wires the middleware to the token and access services. Must
// run before any protected route is registered.
func InitAuth(tokenSvc service.TokenService, accessSvc service.AccessService, userRepo repository.UserRepository, cfg config.JWTConfig) {
	tokens = tokenSvc
	access = accessSvc
	users = userRepo
	jwtCfg = cfg
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" || os.Getenv("RENDER") != "" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	// cookie lifetimes track the token TTLs so a cookie never outlives
	// or undercuts its token
	c.SetCookie("access_token", accessToken, int(jwtCfg.AccessTokenTTL.Seconds()), "/", "", secure, true)
	c.SetCookie("refresh_token", refreshToken, int(jwtCfg.RefreshTokenTTL.Seconds()), "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" || os.Getenv("RENDER") != "" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// extractToken tries the access_token cookie first, then the
// Authorization header.
func extractToken(c *gin.Context) (string, bool) {
	if tokenString, err := c.Cookie("access_token"); err == nil && tokenString != "" {
		return tokenString, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// Authenticated verifies the credential and stores the actor and claims
// in the request context. It enforces no permission by itself.
func Authenticated() gin.HandlerFunc {
	return requirePermissions(service.NoRequirement())
}

// Require demands one permission code.
func Require(code string) gin.HandlerFunc {
	return requirePermissions(service.RequireCode(code))
}

// RequireAny demands at least one of the codes.
func RequireAny(codes ...string) gin.HandlerFunc {
	return requirePermissions(service.RequireAnyOf(codes...))
}

// RequireAll demands every code.
func RequireAll(codes ...string) gin.HandlerFunc {
	return requirePermissions(service.RequireAllOf(codes...))
}

func requirePermissions(req service.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		actor, err := service.ActorFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		if !service.Authorize(actor, req) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ctxActor, actor)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// RequireSuperuser admits platform operators only.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}
		if !claims.IsSuperuser {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: superuser only"))
			return
		}

		actor, err := service.ActorFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}
		c.Set(ctxActor, actor)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// RequireFresh re-evaluates the permission against the database instead
// of trusting the token snapshot. Used on the handful of routes where a
// stale grant would matter.
func RequireFresh(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}
		actor, err := service.ActorFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		user, err := users.FindByID(c.Request.Context(), actor.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User no longer exists"))
			return
		}
		if !access.HasPermission(c.Request.Context(), user, code, actor.BranchID) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+code+"'"))
			return
		}

		c.Set(ctxActor, actor)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// ActorFrom returns the actor placed by the auth middleware.
func ActorFrom(c *gin.Context) (*service.Actor, bool) {
	v, ok := c.Get(ctxActor)
	if !ok {
		return nil, false
	}
	actor, ok := v.(*service.Actor)
	return actor, ok
}

// ClaimsFrom returns the verified claims placed by the auth middleware.
func ClaimsFrom(c *gin.Context) (*service.Claims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*service.Claims)
	return claims, ok
}

// DistributorIDFrom resolves the tenant scope of the request: the
// claims' tenant for regular users, or the X-Distributor-ID header for
// superusers acting across tenants.
func DistributorIDFrom(c *gin.Context) (uuid.UUID, bool) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return uuid.Nil, false
	}
	if claims.DistributorID != nil {
		if id, err := uuid.Parse(*claims.DistributorID); err == nil {
			return id, true
		}
	}
	if claims.IsSuperuser {
		if header := c.GetHeader("X-Distributor-ID"); header != "" {
			if id, err := uuid.Parse(header); err == nil {
				return id, true
			}
		}
	}
	return uuid.Nil, false
}
