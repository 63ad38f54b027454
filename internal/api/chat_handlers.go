package api

import (
	"net/http"
	"strconv"

	"rebase/internal/auth"
	"rebase/internal/engine"

	"github.com/gin-gonic/gin"
)

const (
	defaultProjectLimit = 50
	maxProjectLimit     = 200
)

type StartChatRequest struct {
	Message string `json:"message"`
}

type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func callerID(c *gin.Context) *uint {
	if id, ok := auth.UserID(c); ok {
		return &id
	}
	return nil
}

// POST /chat/start
func StartChatHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StartChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		res, err := eng.StartConversation(c.Request.Context(), req.Message, callerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

// POST /chat/message
func SendMessageHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if req.SessionID == "" {
			badRequest(c, "session_id is required")
			return
		}
		resp, err := eng.ProcessMessage(c.Request.Context(), req.SessionID, req.Message, callerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GET /chat/sessions/:id/summary
func SummaryHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := eng.ConversationSummary(c.Request.Context(), c.Param("id"), callerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// GET /chat/sessions/:id/discovery
func DiscoveryHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := eng.DiscoverySummary(c.Request.Context(), c.Param("id"), callerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "discovery_summary": s})
	}
}

// GET /chat/sessions/:id/history
func HistoryHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, err := eng.History(c.Request.Context(), c.Param("id"), callerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "messages": h})
	}
}

// DELETE /chat/sessions/:id
func DeleteSessionHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := eng.DeleteSession(c.Request.Context(), c.Param("id"), callerID(c)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
	}
}

// GET /projects?limit=N
func ProjectsHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultProjectLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				badRequest(c, "limit must be a positive integer")
				return
			}
			limit = min(n, maxProjectLimit)
		}
		projects, err := eng.Projects(c.Request.Context(), callerID(c), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"projects": projects})
	}
}
