package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"rebase/internal/apperr"
	"rebase/internal/discovery"
	"rebase/internal/phase"
	"rebase/internal/session"
)

// DiscoverySummary returns the per-category digest for a session.
func (e *ChatEngine) DiscoverySummary(ctx context.Context, sessionID string, caller *uint) (discovery.Summary, error) {
	sc, err := e.owned(ctx, sessionID, caller)
	if err != nil {
		return discovery.Summary{}, err
	}
	data, err := e.cache.Load(sc)
	if err != nil {
		return discovery.Summary{}, fmt.Errorf("load discovered facts: %w", err)
	}
	return data.DiscoverySummary(), nil
}

func (e *ChatEngine) ConversationSummary(ctx context.Context, sessionID string, caller *uint) (*ConversationSummary, error) {
	sc, err := e.owned(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}
	data, err := e.cache.Load(sc)
	if err != nil {
		return nil, fmt.Errorf("load discovered facts: %w", err)
	}

	completeness := data.OverallCompleteness()
	missing := make([]string, 0, len(discovery.CategoryOrder))
	for _, id := range data.MissingCategories() {
		missing = append(missing, string(id))
	}
	return &ConversationSummary{
		SessionID:          sc.SessionID,
		DomainType:         e.domains.Resolve(sc.DomainType).Name(),
		CurrentPhase:       sc.Phase,
		ProgressPercentage: completeness * 100,
		DiscoverySummary:   data.DiscoverySummary(),
		DataCompleteness:   completeness,
		MissingCategories:  missing,
		ConversationLength: len(sc.History),
		StartedAt:          sc.CreatedAt,
		LastUpdated:        sc.UpdatedAt,
		BusinessMetrics:    sc.Metrics,
	}, nil
}

// History returns the session's messages in order.
func (e *ChatEngine) History(ctx context.Context, sessionID string, caller *uint) ([]discovery.Turn, error) {
	sc, err := e.owned(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}
	return sc.History, nil
}

// DeleteSession removes a session once no turn is running on it.
func (e *ChatEngine) DeleteSession(ctx context.Context, sessionID string, caller *uint) error {
	release, err := e.lock(ctx, sessionID, e.lockWait)
	if err != nil {
		return err
	}
	defer release()

	if _, err := e.owned(ctx, sessionID, caller); err != nil {
		return err
	}
	if err := e.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	e.cache.Remove(sessionID)
	log.Printf("[Engine] deleted session %s", sessionID)
	return nil
}

const titleLength = 60

// Projects lists the caller's sessions, most recently active first. A nil
// caller sees every session.
func (e *ChatEngine) Projects(ctx context.Context, caller *uint, limit int) ([]ProjectSummary, error) {
	rows, err := e.store.ListSessions(ctx, caller, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectSummary, 0, len(rows))
	for _, row := range rows {
		p, ok := phase.Parse(row.Phase)
		if !ok {
			p = phase.Discovery
		}
		data, ok := e.cache.Get(row.ID)
		if !ok {
			if data, err = discovery.LoadCollectedBusinessData(row.DiscoveredFacts); err != nil {
				log.Printf("[Engine] unreadable facts for session %s: %v", row.ID, err)
				data = discovery.NewCollectedBusinessData()
			}
		}
		out = append(out, ProjectSummary{
			SessionID:          row.ID,
			Title:              projectTitle(row.InitialMessage),
			DomainType:         e.domains.Resolve(row.DomainType).Name(),
			CurrentPhase:       p,
			ProgressPercentage: data.OverallCompleteness() * 100,
			CreatedAt:          row.CreatedAt,
			LastUpdated:        row.UpdatedAt,
		})
	}
	return out, nil
}

// projectTitle is the opening message cut to one line of titleLength runes.
func projectTitle(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	r := []rune(title)
	if len(r) <= titleLength {
		return title
	}
	return strings.TrimSpace(string(r[:titleLength-3])) + "..."
}

// ForceTransition sets a session's phase without checking evidence or
// order. It is an administrative override.
func (e *ChatEngine) ForceTransition(ctx context.Context, sessionID, target string) (*TransitionResult, error) {
	to, ok := phase.Parse(target)
	if !ok || to == phase.Error {
		return nil, apperr.NewInvalidRequest(fmt.Sprintf("unknown phase %q", target))
	}

	release, err := e.lock(ctx, sessionID, e.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	sc, err := e.store.GetContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, err := e.phases.Force(sessionID, sc.Phase, to)
	if err != nil {
		return nil, err
	}
	if err := e.store.UpdateContext(ctx, sessionID, session.Update{Phase: &next}); err != nil {
		return nil, fmt.Errorf("store forced phase: %w", err)
	}
	return &TransitionResult{SessionID: sessionID, From: sc.Phase, To: next, Forced: true}, nil
}
