package phase

import (
	"fmt"
	"log"
	"sync"
	"time"

	"rebase/internal/apperr"
)

// Phase is a conversation lifecycle stage.
type Phase string

const (
	Discovery     Phase = "discovery"
	Assessment    Phase = "assessment"
	Justification Phase = "justification"
	Planning      Phase = "planning"
	Completed     Phase = "completed"
	// Error is reported for a single failed turn and never persisted.
	Error Phase = "error"
)

// Ordered lists the forward phases in sequence.
var Ordered = []Phase{Discovery, Assessment, Justification, Planning, Completed}

// Parse validates a stored or requested phase label.
func Parse(s string) (Phase, bool) {
	p := Phase(s)
	if p == Error {
		return p, true
	}
	for _, o := range Ordered {
		if o == p {
			return p, true
		}
	}
	return "", false
}

// validTransitions holds the allowed forward step from each phase.
var validTransitions = map[Phase]map[Phase]bool{
	Discovery:     {Assessment: true},
	Assessment:    {Justification: true},
	Justification: {Planning: true},
	Planning:      {Completed: true},
	Completed:     {},
}

// Evidence records what the session has produced so far. Each forward
// transition requires the previous phase's output.
type Evidence struct {
	DiscoveryComplete bool
	Assessment        bool
	BusinessCase      bool
	Approved          bool
	Plan              bool
}

func (e Evidence) missingFor(to Phase) string {
	switch to {
	case Assessment:
		if !e.DiscoveryComplete {
			return "discovery has not completed"
		}
	case Justification:
		if !e.Assessment {
			return "no technical assessment recorded"
		}
	case Planning:
		if !e.BusinessCase {
			return "no business case recorded"
		}
		if !e.Approved {
			return "business case not approved"
		}
	case Completed:
		if !e.Plan {
			return "no implementation plan recorded"
		}
	}
	return ""
}

// TransitionListener is called after every applied transition.
type TransitionListener func(sessionID string, from, to Phase, forced bool, at time.Time)

// Machine validates phase changes and notifies listeners.
type Machine struct {
	mu        sync.RWMutex
	listeners []TransitionListener
}

func NewMachine() *Machine {
	return &Machine{listeners: make([]TransitionListener, 0)}
}

// CanTransition reports whether to directly follows from. Any phase may
// fall into Error for the current turn.
func (m *Machine) CanTransition(from, to Phase) bool {
	if to == Error {
		return from != Error
	}
	return validTransitions[from][to]
}

// Next returns the phase that follows p.
func (m *Machine) Next(p Phase) (Phase, bool) {
	for to := range validTransitions[p] {
		return to, true
	}
	return "", false
}

// Transition moves a session from one phase to the next when the evidence
// bar for the target is met.
func (m *Machine) Transition(sessionID string, from, to Phase, ev Evidence) (Phase, error) {
	if to == Error || !m.CanTransition(from, to) {
		return from, apperr.NewInvalidTransition(string(from), string(to), "")
	}
	if reason := ev.missingFor(to); reason != "" {
		return from, apperr.NewInvalidTransition(string(from), string(to), reason)
	}
	m.notify(sessionID, from, to, false)
	return to, nil
}

// Force sets any stored phase, skipping validation. Admin use only.
func (m *Machine) Force(sessionID string, from, to Phase) (Phase, error) {
	if _, ok := Parse(string(to)); !ok || to == Error {
		return from, apperr.NewInvalidRequest(fmt.Sprintf("unknown phase %q", to))
	}
	log.Printf("[Phase] FORCED transition for session %s: %s → %s", sessionID, from, to)
	m.notify(sessionID, from, to, true)
	return to, nil
}

// AddListener registers a callback for transitions
func (m *Machine) AddListener(l TransitionListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Machine) notify(sessionID string, from, to Phase, forced bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	for _, l := range m.listeners {
		l(sessionID, from, to, forced, now)
	}
}
