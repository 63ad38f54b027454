package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rebase/internal/apperr"
	"rebase/internal/phase"
	"rebase/internal/user"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, ts *testServer, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ts.router)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial failed (status %d): %v", status, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req WSChatRequest) WSChatReply {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply WSChatReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	return reply
}

func TestWSChat_StartThenMessage(t *testing.T) {
	ts := newTestServer(t, testConfig())
	conn := dialWS(t, ts, "")

	started := roundTrip(t, conn, WSChatRequest{Type: "start", Message: "Migrate our React app to Vue"})
	if started.Type != "started" || started.Started == nil {
		t.Fatalf("unexpected start reply %+v", started)
	}

	reply := roundTrip(t, conn, WSChatRequest{Type: "message", SessionID: started.Started.SessionID, Message: "We have 8 developers"})
	if reply.Type != "response" || reply.Response == nil {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if reply.Response.CurrentPhase != phase.Discovery {
		t.Errorf("expected discovery phase, got %s", reply.Response.CurrentPhase)
	}
}

func TestWSChat_ErrorsKeepConnectionOpen(t *testing.T) {
	ts := newTestServer(t, testConfig())
	conn := dialWS(t, ts, "")

	reply := roundTrip(t, conn, WSChatRequest{Type: "message", SessionID: "nope", Message: "hi"})
	if reply.Type != "error" || reply.Error["code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND error frame, got %+v", reply)
	}

	reply = roundTrip(t, conn, WSChatRequest{Type: "bogus"})
	if reply.Type != "error" || reply.Error["code"] != "INVALID_REQUEST" {
		t.Errorf("expected INVALID_REQUEST error frame, got %+v", reply)
	}

	started := roundTrip(t, conn, WSChatRequest{Type: "start", Message: "still here"})
	if started.Type != "started" {
		t.Errorf("connection should survive error frames, got %+v", started)
	}
}

func TestWSChat_RequiresTokenWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RequireAuth = true
	ts := newTestServer(t, cfg)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}

	u := seedUser(t, "wsuser", user.RoleUser)
	conn := dialWS(t, ts, "?token="+tokenFor(t, u))
	started := roundTrip(t, conn, WSChatRequest{Type: "start", Message: "hello"})
	if started.Type != "started" {
		t.Errorf("unexpected reply %+v", started)
	}
}

func TestHandleWSFrame_ForeignSession(t *testing.T) {
	ts := newTestServer(t, testConfig())
	owner, other := uint(1), uint(2)
	started := handleWSFrame(t.Context(), ts.engine, WSChatRequest{Type: "start", Message: "Migrate to Vue"}, &owner)
	if started.Type != "started" {
		t.Fatalf("unexpected start reply %+v", started)
	}

	reply := handleWSFrame(t.Context(), ts.engine, WSChatRequest{Type: "message", SessionID: started.Started.SessionID, Message: "hi"}, &other)
	if reply.Type != "error" || reply.Error["code"] != apperr.ErrNotFound {
		t.Errorf("expected NOT_FOUND for another user's session, got %+v", reply)
	}
}
