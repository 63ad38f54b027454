package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"rebase/internal/apperr"
	"rebase/internal/discovery"
	"rebase/internal/domain"
	"rebase/internal/phase"
	"rebase/internal/session"
)

const (
	startProgress = 5.0
	commitTimeout = 10 * time.Second

	errorMessage = "I apologize, but I encountered an issue processing your message. Could you please try rephrasing?"
)

// ContextStore is the persistence the engine needs. session.Store
// implements it.
type ContextStore interface {
	CreateSession(ctx context.Context, initialMessage string, userID *uint, domainType string) (string, error)
	GetContext(ctx context.Context, id string) (*session.Context, error)
	UpdateContext(ctx context.Context, id string, u session.Update) error
	CommitTurn(ctx context.Context, id string, messages []discovery.Turn, u session.Update) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, userID *uint, limit int) ([]session.Session, error)
}

// Config tunes the engine. Extraction, when set, serves the extraction
// calls so they can run at a lower priority than decisions.
type Config struct {
	Loop       discovery.LoopConfig
	Extraction discovery.Reasoner
	LockWait   time.Duration
	CacheSize  int
}

// ChatEngine drives a session through discovery and the domain phases.
// Turns on the same session are serialized through the Locker; different
// sessions run independently.
type ChatEngine struct {
	store    ContextStore
	locker   session.Locker
	cache    *session.DataCache
	loop     *discovery.Loop
	domains  *domain.Registry
	phases   *phase.Machine
	lockWait time.Duration
}

func New(store ContextStore, reasoner discovery.Reasoner, domains *domain.Registry, locker session.Locker, cfg Config) (*ChatEngine, error) {
	if store == nil || reasoner == nil || domains == nil {
		return nil, errors.New("engine needs a store, a reasoner and a domain registry")
	}
	if locker == nil {
		locker = session.NewLocalLocker()
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 10 * time.Second
	}
	cache, err := session.NewDataCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create data cache: %w", err)
	}

	phases := phase.NewMachine()
	phases.AddListener(func(id string, from, to phase.Phase, forced bool, _ time.Time) {
		if !forced {
			log.Printf("[Engine] session %s: %s → %s", id, from, to)
		}
	})

	return &ChatEngine{
		store:    store,
		locker:   locker,
		cache:    cache,
		loop:     discovery.NewLoop(reasoner, cfg.Loop, discovery.WithExtractionReasoner(cfg.Extraction)),
		domains:  domains,
		phases:   phases,
		lockWait: cfg.LockWait,
	}, nil
}

// Domains exposes the registry the engine was built with.
func (e *ChatEngine) Domains() *domain.Registry { return e.domains }

// Phases exposes the phase machine so callers can add listeners.
func (e *ChatEngine) Phases() *phase.Machine { return e.phases }

// StartConversation creates a session for the detected domain and answers
// the opening message.
func (e *ChatEngine) StartConversation(ctx context.Context, message string, userID *uint) (*StartResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.NewInvalidRequest("message must not be empty")
	}

	dom := e.domains.Detect(message)
	id, err := e.store.CreateSession(ctx, message, userID, dom.Name())
	if err != nil {
		return nil, fmt.Errorf("start conversation: %w", err)
	}

	reply := e.loop.Initial(ctx, message)

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	turns := []discovery.Turn{{Role: "user", Content: message}, {Role: "assistant", Content: reply}}
	if err := e.store.CommitTurn(commitCtx, id, turns, session.Update{}); err != nil {
		return nil, fmt.Errorf("store opening turn: %w", err)
	}
	e.cache.Put(id, discovery.NewCollectedBusinessData())

	log.Printf("[Engine] started session %s (domain %s)", id, dom.Name())
	return &StartResult{
		SessionID:  id,
		Response:   reply,
		Phase:      phase.Discovery,
		Progress:   startProgress,
		DomainType: dom.Name(),
	}, nil
}

// ProcessMessage runs one turn on behalf of caller. An unknown or foreign
// session, a blank message or a session busy with another turn are
// returned as errors. Any other
// failure yields the apology response in the error phase and leaves the
// session untouched.
func (e *ChatEngine) ProcessMessage(ctx context.Context, sessionID, message string, caller *uint) (*Response, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.NewInvalidRequest("message must not be empty")
	}

	release, err := e.lock(ctx, sessionID, e.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	sc, err := e.owned(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}

	resp, err := e.safeTurn(ctx, sc, message)
	if err != nil {
		log.Printf("[Engine] turn failed for session %s: %v", sessionID, err)
		return errorResponse(sessionID), nil
	}
	return resp, nil
}

// owned loads a session and hides it from callers who do not own it.
// Sessions without an owner, and calls without a caller, are not
// checked.
func (e *ChatEngine) owned(ctx context.Context, sessionID string, caller *uint) (*session.Context, error) {
	sc, err := e.store.GetContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sc.UserID != nil && caller != nil && *sc.UserID != *caller {
		return nil, apperr.NewNotFound("session", sessionID)
	}
	return sc, nil
}

func (e *ChatEngine) lock(ctx context.Context, sessionID string, wait time.Duration) (func(), error) {
	release, err := e.locker.Acquire(ctx, sessionID, wait)
	if errors.Is(err, session.ErrLocked) {
		return nil, apperr.NewSessionBusy(sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	return release, nil
}

func (e *ChatEngine) safeTurn(ctx context.Context, sc *session.Context, message string) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in turn: %v", r)
		}
	}()
	return e.turn(ctx, sc, message)
}

// turnState is the working copy a turn mutates before commit.
type turnState struct {
	sc      *session.Context
	history []discovery.Turn
	data    *discovery.CollectedBusinessData
	metrics map[string]any
	dom     domain.Domain
	next    phase.Phase
}

func (e *ChatEngine) turn(ctx context.Context, sc *session.Context, message string) (*Response, error) {
	data, err := e.cache.Load(sc)
	if err != nil {
		return nil, fmt.Errorf("load discovered facts: %w", err)
	}
	metrics := make(map[string]any, len(sc.Metrics))
	for k, v := range sc.Metrics {
		metrics[k] = v
	}
	history := make([]discovery.Turn, 0, len(sc.History)+1)
	history = append(history, sc.History...)
	history = append(history, discovery.Turn{Role: "user", Content: message})

	st := &turnState{
		sc:      sc,
		history: history,
		data:    data,
		metrics: metrics,
		dom:     e.domains.Resolve(sc.DomainType),
		next:    sc.Phase,
	}

	var resp *Response
	switch sc.Phase {
	case phase.Discovery:
		resp, err = e.discoveryTurn(ctx, st)
	case phase.Assessment:
		resp, err = e.assessmentTurn(st)
	case phase.Justification:
		resp, err = e.justificationTurn(st, message)
	case phase.Planning:
		resp, err = e.planningTurn(st)
	case phase.Completed:
		resp = e.completedTurn(st)
	default:
		err = fmt.Errorf("session in unexpected phase %q", sc.Phase)
	}
	if err != nil {
		return nil, err
	}

	update := session.Update{Facts: st.data, Metrics: st.metrics}
	if st.next != sc.Phase {
		update.Phase = &st.next
	}
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	turns := []discovery.Turn{{Role: "user", Content: message}, {Role: "assistant", Content: resp.Message}}
	if err := e.store.CommitTurn(commitCtx, sc.SessionID, turns, update); err != nil {
		return nil, fmt.Errorf("commit turn: %w", err)
	}
	e.cache.Put(sc.SessionID, st.data)

	resp.SessionID = sc.SessionID
	resp.CurrentPhase = st.next
	resp.SuggestedResponses = suggestions(st.next, resp.MissingCriticalInfo)
	return resp, nil
}

func errorResponse(sessionID string) *Response {
	return &Response{
		SessionID:             sessionID,
		Message:               errorMessage,
		SuggestedResponses:    []string{"Let me rephrase that", "Can you help me understand?"},
		CurrentPhase:          phase.Error,
		ProgressPercentage:    0,
		MissingCriticalInfo:   []string{},
		NextQuestionReasoning: "Error recovery",
	}
}

// Forget drops any cached data for a session.
func (e *ChatEngine) Forget(sessionID string) {
	e.cache.Remove(sessionID)
}
