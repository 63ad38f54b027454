package api

import (
	"net/http"
	"testing"

	"rebase/internal/db"
	"rebase/internal/user"
)

func TestSetupHandler_AllowsInitialSetup(t *testing.T) {
	ts := newTestServer(t, testConfig())
	w := ts.do(http.MethodPost, "/setup", "", SetupRequest{Username: "admin1", Password: "pw1"})
	expectStatus(t, w, http.StatusCreated)
	if !contains(w.Body.String(), "setup_complete") {
		t.Errorf("setup response should indicate completion, got: %s", w.Body.String())
	}
	var u user.User
	if err := db.DB.Where("username = ?", "admin1").First(&u).Error; err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if !u.IsAdmin() {
		t.Errorf("first user should be admin, got %s", u.Role)
	}
}

func TestSetupHandler_ForbiddenIfUserExists(t *testing.T) {
	ts := newTestServer(t, testConfig())
	seedUser(t, "existing", user.RoleAdmin)
	w := ts.do(http.MethodPost, "/setup", "", SetupRequest{Username: "admin2", Password: "pw2"})
	expectStatus(t, w, http.StatusForbidden)
	if !contains(w.Body.String(), "Setup not allowed") {
		t.Errorf("should block setup if user exists, got: %s", w.Body.String())
	}
}

func TestSetupHandler_RejectsBadInput(t *testing.T) {
	ts := newTestServer(t, testConfig())
	// Missing username
	w := ts.do(http.MethodPost, "/setup", "", SetupRequest{Password: "pw3"})
	expectStatus(t, w, http.StatusBadRequest)
	// Missing password
	w2 := ts.do(http.MethodPost, "/setup", "", SetupRequest{Username: "admin3"})
	expectStatus(t, w2, http.StatusBadRequest)
}
