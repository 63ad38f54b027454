package api

import (
	"log"
	"net/http"

	"rebase/internal/engine"
	"rebase/internal/session"

	"github.com/gin-gonic/gin"
)

type ForcePhaseRequest struct {
	Phase string `json:"phase"`
}

// POST /admin/sessions/:id/phase  [admin only]
func ForcePhaseHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForcePhaseRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Phase == "" {
			badRequest(c, "phase is required")
			return
		}
		res, err := eng.ForceTransition(c.Request.Context(), c.Param("id"), req.Phase)
		if err != nil {
			respondError(c, err)
			return
		}
		username, _ := c.Get("username")
		log.Printf("[Admin] %v forced session %s: %s → %s", username, res.SessionID, res.From, res.To)
		c.JSON(http.StatusOK, res)
	}
}

// POST /admin/cleanup  [admin only]
func CleanupHandler(sweeper *session.Sweeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sweeper == nil {
			c.JSON(http.StatusServiceUnavailable, errorBody("Session cleanup is not configured", "UNAVAILABLE"))
			return
		}
		res, err := sweeper.RunOnce(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
