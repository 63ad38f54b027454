package api

import (
	"log"
	"net/http"
	"strings"

	"rebase/internal/apperr"
	"rebase/internal/db"
	"rebase/internal/user"

	"github.com/gin-gonic/gin"
)

type SetupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SetupHandler creates the first admin account. It refuses once any user
// exists.
func SetupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var count int64
		if err := db.DB.Model(&user.User{}).Count(&count).Error; err != nil {
			respondError(c, err)
			return
		}
		if count != 0 {
			c.JSON(http.StatusForbidden, errorBody("Setup not allowed; users already exist", "FORBIDDEN"))
			return
		}
		var req SetupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if req.Username == "" || req.Password == "" {
			badRequest(c, "Username and password required")
			return
		}
		u, err := createUser(req.Username, req.Password, user.RoleAdmin)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique") {
				badRequest(c, "Username already exists")
				return
			}
			respondError(c, err)
			return
		}
		log.Printf("[Setup] created admin %q", u.Username)
		body := userJSON(u)
		body["setup_complete"] = true
		c.JSON(http.StatusCreated, body)
	}
}

func createUser(username, password string, role user.Role) (*user.User, error) {
	pwHash, err := user.HashPassword(password)
	if err != nil {
		return nil, apperr.NewInternal(err)
	}
	u := &user.User{Username: username, PasswordHash: pwHash, Role: role}
	if err := db.DB.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func userJSON(u *user.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"username":  u.Username,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
	}
}
