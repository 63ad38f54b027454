package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"rebase/internal/apperr"
	"rebase/internal/config"
	"rebase/internal/engine"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSChatRequest is one client frame. Type is "start" or "message".
type WSChatRequest struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// WSChatReply is one server frame. Type is "started", "response" or
// "error".
type WSChatReply struct {
	Type     string              `json:"type"`
	Started  *engine.StartResult `json:"started,omitempty"`
	Response *engine.Response    `json:"response,omitempty"`
	Error    gin.H               `json:"error,omitempty"`
}

const (
	wsWriteWait = 10 * time.Second
	wsReadLimit = 64 << 10
)

type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(v)
}

func (s *safeWSConn) ReadMessage() (int, []byte, error) {
	return s.conn.ReadMessage()
}

func (s *safeWSConn) Close() error {
	return s.conn.Close()
}

func wsUpgrader(cfg *config.Config) *websocket.Upgrader {
	allowed := make(map[string]bool, len(cfg.Server.CORSOrigins))
	for _, o := range cfg.Server.CORSOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin] || origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
}

func wsError(err error) WSChatReply {
	msg := "Internal server error"
	if apperr.StatusOf(err) != http.StatusInternalServerError {
		msg = messageOf(err)
	} else {
		log.Printf("[WS] %v", err)
	}
	return WSChatReply{Type: "error", Error: gin.H{"message": msg, "code": apperr.CodeOf(err)}}
}

// WSChatHandler runs a conversation over one websocket. Each client frame
// is a start or a message; each gets exactly one reply frame.
func WSChatHandler(cfg *config.Config, eng *engine.ChatEngine) gin.HandlerFunc {
	upgrader := wsUpgrader(cfg)
	return func(c *gin.Context) {
		userID := callerID(c)
		rawConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("[WS] upgrade failed:", err)
			return
		}
		conn := &safeWSConn{conn: rawConn}
		defer conn.Close()
		rawConn.SetReadLimit(wsReadLimit)

		// turns outlive a dropped socket so they still commit
		ctx := context.WithoutCancel(c.Request.Context())
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("[WS] read: %v", err)
				}
				return
			}
			var req WSChatRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				_ = conn.WriteJSON(wsError(apperr.NewInvalidRequest("invalid JSON")))
				continue
			}
			if err := conn.WriteJSON(handleWSFrame(ctx, eng, req, userID)); err != nil {
				log.Printf("[WS] write: %v", err)
				return
			}
		}
	}
}

func handleWSFrame(ctx context.Context, eng *engine.ChatEngine, req WSChatRequest, userID *uint) WSChatReply {
	switch req.Type {
	case "start":
		res, err := eng.StartConversation(ctx, req.Message, userID)
		if err != nil {
			return wsError(err)
		}
		return WSChatReply{Type: "started", Started: res}
	case "message":
		if req.SessionID == "" {
			return wsError(apperr.NewInvalidRequest("session_id is required"))
		}
		resp, err := eng.ProcessMessage(ctx, req.SessionID, req.Message, userID)
		if err != nil {
			return wsError(err)
		}
		return WSChatReply{Type: "response", Response: resp}
	default:
		return wsError(apperr.NewInvalidRequest("unknown frame type " + req.Type))
	}
}
