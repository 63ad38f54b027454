package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rebase/internal/config"
	"rebase/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func setupTestJWT(secret string, userId uint, username, role string, exp time.Duration) string {
	token, _ := GenerateJWT(secret, userId, username, role, exp)
	return token
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	return cfg
}

func serve(h gin.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(h)
	r.GET("/test", func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": id})
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	w := serve(AuthMiddleware(testConfig(), nil, false), httptest.NewRequest("GET", "/test", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer not.a.valid.jwt")
	w := serve(AuthMiddleware(testConfig(), nil, false), req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid JWT, got %d", w.Code)
	}
}

func TestAuthMiddleware_TokenWithoutRedis(t *testing.T) {
	cfg := testConfig()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+setupTestJWT(cfg.Server.JWTSecret, 5, "user", "user", time.Minute))
	w := serve(AuthMiddleware(cfg, nil, false), req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != `{"userId":5}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	cfg := testConfig()
	token := setupTestJWT(cfg.Server.JWTSecret, 9, "ws", "user", time.Minute)
	w := serve(AuthMiddleware(cfg, nil, false), httptest.NewRequest("GET", "/test?token="+token, nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for query token, got %d", w.Code)
	}
}

func TestAuthMiddleware_NonAdminForbidden(t *testing.T) {
	cfg := testConfig()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+setupTestJWT(cfg.Server.JWTSecret, 123, "normaluser", "user", time.Minute))
	w := serve(AuthMiddleware(cfg, nil, true), req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", w.Code)
	}
}

func TestChatMiddleware(t *testing.T) {
	cfg := testConfig()

	w := serve(ChatMiddleware(cfg, nil), httptest.NewRequest("GET", "/test", nil))
	if w.Code != http.StatusOK || w.Body.String() != `{"userId":0}` {
		t.Errorf("anonymous caller should pass, got %d %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+setupTestJWT(cfg.Server.JWTSecret, 3, "u", "user", time.Minute))
	w = serve(ChatMiddleware(cfg, nil), req)
	if w.Body.String() != `{"userId":3}` {
		t.Errorf("token should attribute user, got %s", w.Body.String())
	}

	cfg.Server.RequireAuth = true
	w = serve(ChatMiddleware(cfg, nil), httptest.NewRequest("GET", "/test", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 when auth is required, got %d", w.Code)
	}
}

func withSession(t *testing.T, rdb *redis.Client, userId uint, token string) {
	t.Helper()
	ctx := context.Background()
	if err := SetSession(ctx, rdb, userId, token, time.Minute); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	t.Cleanup(func() { DeleteSession(ctx, rdb, userId) })
}

func TestAuthMiddleware_SessionInvalid(t *testing.T) {
	rdb := testRedis(t)
	cfg := testConfig()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+setupTestJWT(cfg.Server.JWTSecret, 124, "user", "user", time.Minute))
	w := serve(AuthMiddleware(cfg, rdb, false), req)
	// No session in Redis, should be session error
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for session error, got %d", w.Code)
	}
}

func TestAuthMiddleware_AdminAllowed(t *testing.T) {
	rdb := testRedis(t)
	cfg := testConfig()
	userId := uint(222)
	token := setupTestJWT(cfg.Server.JWTSecret, userId, "adminuser", string(user.RoleAdmin), time.Minute)
	withSession(t, rdb, userId, token)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(AuthMiddleware(cfg, rdb, true), req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", w.Code)
	}
}
