package auth

import (
	"net/http"
	"strings"
	"time"

	"rebase/internal/config"
	"rebase/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const idleTimeout = 30 * time.Minute

// tokenFrom reads a bearer token from the Authorization header or, for
// websocket upgrades, the token query parameter.
func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// authenticate validates the token and, when redis is configured, that it
// is the user's live login session.
func authenticate(c *gin.Context, cfg *config.Config, rdb *redis.Client, tokenStr string) (*Claims, string) {
	claims, err := ParseJWT(cfg.Server.JWTSecret, tokenStr)
	if err != nil {
		return nil, "Invalid or expired token"
	}
	if rdb != nil {
		ctx := c.Request.Context()
		sessionToken, err := GetSession(ctx, rdb, claims.UserID)
		if err != nil || sessionToken != tokenStr {
			return nil, "Session expired or invalid"
		}
		// Enforce inactivity timeout (refresh expiry)
		_ = SetSession(ctx, rdb, claims.UserID, tokenStr, idleTimeout)
	}
	return claims, ""
}

func attach(c *gin.Context, claims *Claims) {
	c.Set("userId", claims.UserID)
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
}

func AuthMiddleware(cfg *config.Config, rdb *redis.Client, requireAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Missing or invalid Authorization header"}})
			return
		}
		claims, reason := authenticate(c, cfg, rdb, tokenStr)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": reason}})
			return
		}
		attach(c, claims)

		if requireAdmin && claims.Role != string(user.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Admin only"}})
			return
		}
		c.Next()
	}
}

// ChatMiddleware guards conversation routes. When server.require_auth is
// off, a valid token still attributes the session to its user but
// anonymous callers pass.
func ChatMiddleware(cfg *config.Config, rdb *redis.Client) gin.HandlerFunc {
	if cfg.Server.RequireAuth {
		return AuthMiddleware(cfg, rdb, false)
	}
	return func(c *gin.Context) {
		if tokenStr := tokenFrom(c); tokenStr != "" {
			if claims, _ := authenticate(c, cfg, rdb, tokenStr); claims != nil {
				attach(c, claims)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user, if any.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userId")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
