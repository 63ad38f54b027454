package session

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// messageIDs hands out ULIDs that sort in creation order, even within
// the same millisecond.
type messageIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newMessageIDs() *messageIDs {
	return &messageIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *messageIDs) next(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

func newSessionID() string {
	return uuid.NewString()
}
