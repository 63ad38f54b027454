package api

import (
	"net/http"
	"strconv"

	"rebase/internal/auth"
	"rebase/internal/db"
	"rebase/internal/user"

	"github.com/gin-gonic/gin"
)

// GET /users  [admin only]
func ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []user.User
		if err := db.DB.Order("id ASC").Find(&users).Error; err != nil {
			respondError(c, err)
			return
		}
		result := make([]gin.H, 0, len(users))
		for i := range users {
			result = append(result, userJSON(&users[i]))
		}
		c.JSON(http.StatusOK, result)
	}
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// POST /users  [admin only]
func CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
			badRequest(c, "Missing username or password")
			return
		}
		role := user.RoleUser
		if req.Role == string(user.RoleAdmin) {
			role = user.RoleAdmin
		}
		u, err := createUser(req.Username, req.Password, role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, userJSON(u))
	}
}

type UpdateUserRequest struct {
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
}

// updateUser applies req to the user with the given id. Role changes are
// only honoured when allowRole is set.
func updateUser(c *gin.Context, id uint, allowRole bool) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	var u user.User
	if err := db.DB.First(&u, id).Error; err != nil {
		c.JSON(http.StatusNotFound, errorBody("User not found", "NOT_FOUND"))
		return
	}
	if req.Password != "" {
		pwHash, err := user.HashPassword(req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		u.PasswordHash = pwHash
	}
	if allowRole && (req.Role == string(user.RoleAdmin) || req.Role == string(user.RoleUser)) {
		u.Role = user.Role(req.Role)
	}
	if err := db.DB.Save(&u).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(&u))
}

// PUT /users/me
func UpdateMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := auth.UserID(c)
		updateUser(c, userID, false)
	}
}

// PUT /users/:id  [admin only]
func UpdateUserByIdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUserID(c)
		if !ok {
			return
		}
		updateUser(c, id, true)
	}
}

// DELETE /users/:id  [admin only]
func DeleteUserByIdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUserID(c)
		if !ok {
			return
		}
		res := db.DB.Delete(&user.User{}, id)
		if res.Error != nil {
			respondError(c, res.Error)
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, errorBody("User not found", "NOT_FOUND"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}

func paramUserID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid user id")
		return 0, false
	}
	return uint(id), true
}
