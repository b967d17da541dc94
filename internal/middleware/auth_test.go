package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"backoffice/internal/config"

	"github.com/gin-gonic/gin"
)

func TestSetTokenCookies_AgesTrackConfiguredTTLs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	InitAuth(nil, nil, nil, config.JWTConfig{
		AccessTokenTTL:  2 * time.Hour,
		RefreshTokenTTL: 48 * time.Hour,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("POST", "/api/auth/login", nil)

	SetTokenCookies(c, "access-value", "refresh-value")

	ages := map[string]int{}
	for _, ck := range rec.Result().Cookies() {
		ages[ck.Name] = ck.MaxAge
	}
	if ages["access_token"] != int((2 * time.Hour).Seconds()) {
		t.Fatalf("access cookie age %d does not match configured TTL", ages["access_token"])
	}
	if ages["refresh_token"] != int((48 * time.Hour).Seconds()) {
		t.Fatalf("refresh cookie age %d does not match configured TTL", ages["refresh_token"])
	}
}
