package api

import (
	"net/http"
	"time"

	"rebase/internal/auth"
	"rebase/internal/config"
	"rebase/internal/db"
	"rebase/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const tokenLifetime = 7 * 24 * time.Hour

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, errorBody(message, "UNAUTHORIZED"))
}

func LoginHandler(cfg *config.Config, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// If no users exist, indicate need for setup
		var count int64
		if err := db.DB.Model(&user.User{}).Count(&count).Error; err != nil {
			respondError(c, err)
			return
		}
		if count == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Initial setup required", "need_setup": true}})
			return
		}
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		var u user.User
		if err := db.DB.Where("username = ?", req.Username).First(&u).Error; err != nil {
			unauthorized(c, "Invalid username or password")
			return
		}
		if err := user.CheckPassword(u.PasswordHash, req.Password); err != nil {
			unauthorized(c, "Invalid username or password")
			return
		}
		token, err := auth.GenerateJWT(cfg.Server.JWTSecret, u.ID, u.Username, string(u.Role), tokenLifetime)
		if err != nil {
			respondError(c, err)
			return
		}
		if rdb != nil {
			if err := auth.SetSession(c.Request.Context(), rdb, u.ID, token, tokenLifetime); err != nil {
				respondError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, LoginResponse{
			Token:    token,
			UserID:   u.ID,
			Username: u.Username,
			Role:     string(u.Role),
		})
	}
}

func LogoutHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.UserID(c)
		if !ok {
			unauthorized(c, "Not authenticated")
			return
		}
		if rdb != nil {
			_ = auth.DeleteSession(c.Request.Context(), rdb, userID)
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := auth.UserID(c)
		var u user.User
		if err := db.DB.First(&u, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, errorBody("User not found", "NOT_FOUND"))
			return
		}
		c.JSON(http.StatusOK, userJSON(&u))
	}
}
