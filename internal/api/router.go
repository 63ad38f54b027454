package api

import (
	"rebase/internal/auth"
	"rebase/internal/config"
	"rebase/internal/engine"
	"rebase/internal/llm"
	"rebase/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps are the services the HTTP layer drives. Sweeper and Breaker may be
// nil.
type Deps struct {
	Engine  *engine.ChatEngine
	Sweeper *session.Sweeper
	Breaker *llm.CircuitBreaker
}

func SetupRouter(cfg *config.Config, rdb *redis.Client, deps Deps) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(cfg.Server.CORSOrigins))
	subpath := cfg.Server.Subpath // e.g. "/rebase", always starts with '/'

	chatAuth := auth.ChatMiddleware(cfg, rdb)
	userAuth := auth.AuthMiddleware(cfg, rdb, false)
	adminAuth := auth.AuthMiddleware(cfg, rdb, true)

	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler)
		group.GET("/health/llm", llmHealthHandler(cfg, deps.Breaker))
		group.GET("/domains", domainsHandler(deps.Engine))
		group.GET("/domains/:name", domainHandler(deps.Engine))
		group.POST("/domains/detect", detectDomainHandler(deps.Engine))

		// Setup: only if no users
		group.POST("/setup", SetupHandler())

		// Auth
		group.POST("/auth/login", LoginHandler(cfg, rdb))
		group.POST("/auth/logout", userAuth, LogoutHandler(rdb))
		group.GET("/auth/me", userAuth, MeHandler())

		// Conversations
		group.POST("/chat/start", chatAuth, StartChatHandler(deps.Engine))
		group.POST("/chat/message", chatAuth, SendMessageHandler(deps.Engine))
		group.GET("/chat/sessions/:id/summary", chatAuth, SummaryHandler(deps.Engine))
		group.GET("/chat/sessions/:id/discovery", chatAuth, DiscoveryHandler(deps.Engine))
		group.GET("/chat/sessions/:id/history", chatAuth, HistoryHandler(deps.Engine))
		group.DELETE("/chat/sessions/:id", chatAuth, DeleteSessionHandler(deps.Engine))
		group.GET("/projects", chatAuth, ProjectsHandler(deps.Engine))
		group.GET("/ws/chat", chatAuth, WSChatHandler(cfg, deps.Engine))

		// Admin
		group.POST("/admin/sessions/:id/phase", adminAuth, ForcePhaseHandler(deps.Engine))
		group.POST("/admin/cleanup", adminAuth, CleanupHandler(deps.Sweeper))

		// Accounts
		group.GET("/users", adminAuth, ListUsersHandler())
		group.POST("/users", adminAuth, CreateUserHandler())
		group.PUT("/users/me", userAuth, UpdateMeHandler())
		group.PUT("/users/:id", adminAuth, UpdateUserByIdHandler())
		group.DELETE("/users/:id", adminAuth, DeleteUserByIdHandler())
	}
	return r
}
