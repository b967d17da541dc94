package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"backoffice/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// stubUserService overrides the one method under test; calling anything
// else panics through the embedded nil interface.
type stubUserService struct {
	service.UserService
	listedScope   *uuid.UUID
	listedGlobal  bool
	listScopeSeen bool
}

func (s *stubUserService) ListUsers(_ context.Context, distributorID *uuid.UUID, _, _ int) ([]service.UserResponse, int64, error) {
	s.listScopeSeen = true
	s.listedScope = distributorID
	s.listedGlobal = distributorID == nil
	return nil, 0, nil
}

func listUsersRequest(t *testing.T, claims *service.Claims, actor *service.Actor) (*stubUserService, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stub := &stubUserService{}
	h := NewUserHandler(stub, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("GET", "/api/users", nil)
	if claims != nil {
		c.Set("claims", claims)
	}
	if actor != nil {
		c.Set("actor", actor)
	}

	h.ListUsers(c)
	return stub, rec
}

func TestListUsers_ScopeResolution(t *testing.T) {
	tenant := uuid.New()
	tenantStr := tenant.String()

	t.Run("tenant user lists own distributor", func(t *testing.T) {
		claims := &service.Claims{DistributorID: &tenantStr}
		stub, rec := listUsersRequest(t, claims, &service.Actor{UserID: uuid.New()})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.listedScope == nil || *stub.listedScope != tenant {
			t.Fatalf("expected scope %s, got %v", tenant, stub.listedScope)
		}
	})

	t.Run("superuser without header lists globally", func(t *testing.T) {
		claims := &service.Claims{IsSuperuser: true}
		stub, rec := listUsersRequest(t, claims, &service.Actor{UserID: uuid.New(), IsSuperuser: true})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !stub.listedGlobal {
			t.Fatalf("expected global listing, got scope %v", stub.listedScope)
		}
	})

	t.Run("tenant user without scope is rejected", func(t *testing.T) {
		claims := &service.Claims{}
		stub, rec := listUsersRequest(t, claims, &service.Actor{UserID: uuid.New()})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.listScopeSeen {
			t.Fatal("unscoped request must not reach the service")
		}
	})
}
