package api

import (
	"errors"
	"log"
	"net/http"

	"rebase/internal/apperr"

	"github.com/gin-gonic/gin"
)

// errorBody renders an error the way every handler reports failures.
func errorBody(message string, code apperr.ErrorCode) gin.H {
	return gin.H{"error": gin.H{"message": message, "code": code}}
}

// respondError maps coded errors to their status. Anything else is logged
// and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	status := apperr.StatusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, errorBody("Internal server error", apperr.ErrInternal))
		return
	}
	c.JSON(status, errorBody(messageOf(err), apperr.CodeOf(err)))
}

func messageOf(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody(message, apperr.ErrInvalidRequest))
}
