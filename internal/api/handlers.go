package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"rebase/internal/apperr"
	"rebase/internal/config"
	"rebase/internal/engine"
	"rebase/internal/llm"

	"github.com/gin-gonic/gin"
)

const checkTimeout = 5 * time.Second

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GET /health/llm reports the reasoning backend. OpenAI-compatible
// servers are checked; the breaker state is included when there is one.
func llmHealthHandler(cfg *config.Config, breaker *llm.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"provider": cfg.LLM.Provider, "model": cfg.LLM.Model}
		status := http.StatusOK
		if breaker != nil {
			body["breaker"] = breaker.Stats()
			if breaker.IsOpen() {
				status = http.StatusServiceUnavailable
			}
		}
		if cfg.LLM.Provider == config.ProviderOpenAI && cfg.LLM.URL != "" {
			ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
			defer cancel()
			endpoint := llm.CheckEndpoint(ctx, nil, cfg.LLM.URL)
			body["endpoint"] = endpoint
			if !endpoint.Online {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, body)
	}
}

// GET /domains
func domainsHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"domains": eng.Domains().Infos()})
	}
}

// GET /domains/:name
func domainHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := eng.Domains().Info(c.Param("name"))
		if !ok {
			respondError(c, apperr.NewNotFound("domain", c.Param("name")))
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

type DetectDomainRequest struct {
	Text string `json:"text"`
}

// POST /domains/detect
func detectDomainHandler(eng *engine.ChatEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DetectDomainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			badRequest(c, "text is required")
			return
		}
		d := eng.Domains().Detect(req.Text)
		info, _ := eng.Domains().Info(d.Name())
		c.JSON(http.StatusOK, gin.H{"domain_type": d.Name(), "domain": info})
	}
}
