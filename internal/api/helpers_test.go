package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rebase/internal/auth"
	"rebase/internal/config"
	"rebase/internal/db"
	"rebase/internal/discovery"
	"rebase/internal/domain"
	"rebase/internal/engine"
	"rebase/internal/session"
	"rebase/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "secret"

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

// setupUserDB points db.DB at a fresh in-memory database.
func setupUserDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	dbConn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.Migrate(dbConn); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	db.DB = dbConn
	return dbConn
}

func seedUser(t *testing.T, username string, role user.Role) user.User {
	t.Helper()
	hash, err := user.HashPassword("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := user.User{Username: username, PasswordHash: hash, Role: role, CreatedAt: time.Now()}
	if err := db.DB.Create(&u).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return u
}

func tokenFor(t *testing.T, u user.User) string {
	t.Helper()
	tok, err := auth.GenerateJWT(testSecret, u.ID, u.Username, string(u.Role), time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

// offlineReasoner always fails, so every turn takes the deterministic
// fallback path.
type offlineReasoner struct{}

func (offlineReasoner) Complete(context.Context, []discovery.Turn, string) (string, error) {
	return "", errors.New("reasoner offline")
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = testSecret
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	cfg.LLM.Provider = config.ProviderGemini
	return cfg
}

type testServer struct {
	cfg     *config.Config
	engine  *engine.ChatEngine
	store   *session.Store
	sweeper *session.Sweeper
	router  *gin.Engine
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	setupUserDB(t)
	store := session.NewStore(db.DB)
	locker := session.NewLocalLocker()
	eng, err := engine.New(store, offlineReasoner{}, domain.DefaultRegistry(), locker, engine.Config{
		Loop:     discovery.DefaultLoopConfig(),
		LockWait: time.Second,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	sweeper := session.NewSweeper(store, locker, 24*time.Hour, 0, session.WithEvictHook(eng.Forget))
	ts := &testServer{cfg: cfg, engine: eng, store: store, sweeper: sweeper}
	ts.router = SetupRouter(cfg, nil, Deps{Engine: eng, Sweeper: sweeper})
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func startSession(t *testing.T, ts *testServer, token string) engine.StartResult {
	t.Helper()
	w := ts.do(http.MethodPost, "/chat/start", token, StartChatRequest{Message: "We want to migrate our React frontend to Vue"})
	expectStatus(t, w, http.StatusCreated)
	var res engine.StartResult
	decode(t, w, &res)
	return res
}
