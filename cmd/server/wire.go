package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"rebase/internal/api"
	"rebase/internal/config"
	"rebase/internal/db"
	"rebase/internal/discovery"
	"rebase/internal/domain"
	"rebase/internal/engine"
	"rebase/internal/llm"
	redisdb "rebase/internal/redis"
	"rebase/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 15 * time.Second

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func migrateAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return db.Init(cfg)
}

// connectRedis returns nil when redis is not configured or unreachable.
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		log.Printf("[Main] redis not configured, using in-process session locks")
		return nil
	}
	rdb := redisdb.NewClient(cfg)
	if err := redisdb.Ping(ctx, rdb, 3*time.Second); err != nil {
		log.Printf("[Main] WARNING: redis unreachable (%v), using in-process session locks", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func newLocker(rdb *redis.Client, cfg *config.Config) session.Locker {
	if rdb == nil {
		return session.NewLocalLocker()
	}
	return session.NewRedisLocker(rdb, cfg.Sessions.LockTTL())
}

// reasoners are the chat backends the engine calls. Extraction runs on
// its own client so it queues behind decision calls.
type reasoners struct {
	decision   discovery.Reasoner
	extraction discovery.Reasoner
	breaker    *llm.CircuitBreaker
	close      func()
}

// newReasoners builds the configured chat backend. The breaker is shared
// with /health/llm.
func newReasoners(ctx context.Context, cfg *config.Config) (*reasoners, error) {
	breaker := llm.NewCircuitBreaker(cfg.LLM.BreakerThreshold, cfg.LLM.BreakerTimeout())
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		backend, err := llm.NewGeminiBackend(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Temperature, breaker)
		if err != nil {
			return nil, fmt.Errorf("gemini backend: %w", err)
		}
		log.Printf("[Main] reasoning backend %s", backend.Name())
		r := discovery.NewLLMReasoner(backend)
		return &reasoners{decision: r, extraction: r, breaker: breaker, close: func() {}}, nil
	default:
		qcfg := llm.DefaultConfig()
		qcfg.MaxConcurrent = cfg.LLM.MaxConcurrent
		qcfg.CriticalTimeout = cfg.LLM.Timeout()
		qcfg.BackgroundTimeout = cfg.LLM.Timeout()
		manager := llm.NewManager(qcfg, breaker)
		openai := func(p llm.Priority) *llm.OpenAIBackend {
			client := llm.NewClient(manager, p, cfg.LLM.Timeout())
			if cfg.LLM.APIKey != "" {
				client = client.WithHeader("Authorization", "Bearer "+cfg.LLM.APIKey)
			}
			return llm.NewOpenAIBackend(client, cfg.LLM.URL, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Temperature)
		}
		decision := openai(llm.PriorityCritical)
		log.Printf("[Main] reasoning backend %s at %s", decision.Name(), cfg.LLM.URL)
		return &reasoners{
			decision:   discovery.NewLLMReasoner(decision),
			extraction: discovery.NewLLMReasoner(openai(llm.PriorityBackground)),
			breaker:    breaker,
			close:      manager.Stop,
		}, nil
	}
}

func newSweeper(cfg *config.Config, store *session.Store, locker session.Locker, opts ...session.SweeperOption) (*session.Sweeper, error) {
	if cfg.Archive.Enabled {
		archiver, err := session.NewMinioArchiver(cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		opts = append(opts, session.WithArchiver(archiver))
		log.Printf("[Main] archiving expired sessions to bucket %s", cfg.Archive.Bucket)
	}
	return session.NewSweeper(store, locker, cfg.Sessions.Retention(), cfg.Sessions.CleanupInterval(), opts...), nil
}

func cleanupAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := db.Init(cfg); err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	rdb := connectRedis(c.Context, cfg)
	if rdb != nil {
		defer rdb.Close()
	}
	sweeper, err := newSweeper(cfg, session.NewStore(db.DB), newLocker(rdb, cfg))
	if err != nil {
		return err
	}
	res, err := sweeper.RunOnce(c.Context)
	if err != nil {
		return err
	}
	log.Printf("[Main] cleanup deleted %d, skipped %d, failed %d", len(res.Deleted), len(res.Skipped), len(res.Failed))
	return nil
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Init(cfg); err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	rdb := connectRedis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}
	locker := newLocker(rdb, cfg)

	rs, err := newReasoners(ctx, cfg)
	if err != nil {
		return err
	}
	defer rs.close()

	store := session.NewStore(db.DB)
	eng, err := engine.New(store, rs.decision, domain.DefaultRegistry(), locker, engine.Config{
		Loop: discovery.LoopConfig{
			CompletionThreshold: cfg.Discovery.CompletionThreshold,
			HistoryCharLimit:    cfg.Discovery.HistoryCharLimit,
			MaxHistory:          cfg.Discovery.MaxConversationHistory,
			ExtractionWindow:    cfg.Discovery.ExtractionWindow,
			Timeout:             cfg.LLM.Timeout(),
		},
		Extraction: rs.extraction,
		LockWait:   cfg.Discovery.LockWait(),
		CacheSize:  cfg.Discovery.CacheSize,
	})
	if err != nil {
		return err
	}

	sweeper, err := newSweeper(cfg, store, locker, session.WithEvictHook(eng.Forget))
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	r := api.SetupRouter(cfg, rdb, api.Deps{Engine: eng, Sweeper: sweeper, Breaker: rs.breaker})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Main] listening on %s%s", addr, cfg.Server.Subpath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	log.Printf("[Main] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
