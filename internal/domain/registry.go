package domain

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

// DefaultDomain is used when detection finds no match.
const DefaultDomain = "framework_migration"

// Info is the public description of a registered domain.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Registry is a static mapping from domain name to implementation, built
// once at startup.
type Registry struct {
	domains  map[string]Domain
	order    []string
	fallback string
}

// NewRegistry validates and registers the given domains. Names must be
// non-empty and unique, and fallback must be one of them.
func NewRegistry(fallback string, domains ...Domain) (*Registry, error) {
	if len(domains) == 0 {
		return nil, errors.New("no domains registered")
	}
	r := &Registry{domains: make(map[string]Domain, len(domains)), fallback: fallback}
	for _, d := range domains {
		name := strings.TrimSpace(d.Name())
		if name == "" {
			return nil, errors.New("domain with empty name")
		}
		if _, dup := r.domains[name]; dup {
			return nil, fmt.Errorf("duplicate domain %q", name)
		}
		r.domains[name] = d
		r.order = append(r.order, name)
	}
	if _, ok := r.domains[fallback]; !ok {
		return nil, fmt.Errorf("fallback domain %q is not registered", fallback)
	}
	log.Printf("[Domain] registry ready with %d domains: %s", len(r.order), strings.Join(r.order, ", "))
	return r, nil
}

// DefaultRegistry returns the registry of built-in domains.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultDomain, NewFrameworkMigration())
	if err != nil {
		panic(err)
	}
	return r
}

// Get looks up a domain by name.
func (r *Registry) Get(name string) (Domain, bool) {
	d, ok := r.domains[name]
	return d, ok
}

// Resolve returns the named domain, or the fallback when unknown.
func (r *Registry) Resolve(name string) Domain {
	if d, ok := r.domains[name]; ok {
		return d
	}
	return r.domains[r.fallback]
}

// Names lists domain names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Infos describes every registered domain.
func (r *Registry) Infos() []Info {
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, infoOf(r.domains[name]))
	}
	return out
}

// Info describes one registered domain.
func (r *Registry) Info(name string) (Info, bool) {
	d, ok := r.domains[name]
	if !ok {
		return Info{}, false
	}
	return infoOf(d), true
}

func infoOf(d Domain) Info {
	return Info{Name: d.Name(), Description: d.Description(), Keywords: d.Keywords()}
}

// Detect scores each domain against text and returns the best match.
// Ties go to the earlier registration; no match yields the fallback.
func (r *Registry) Detect(text string) Domain {
	lower := strings.ToLower(text)
	best, bestScore := "", 0.0
	for _, name := range r.order {
		d := r.domains[name]
		score := 0.0
		for _, kw := range d.Keywords() {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score++
			}
		}
		if ps, ok := d.(PatternScorer); ok {
			score += ps.PatternScore(lower)
		}
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if best == "" {
		log.Printf("[Domain] no domain matched, using %s", r.fallback)
		return r.domains[r.fallback]
	}
	log.Printf("[Domain] detected %s (score %.2f)", best, bestScore)
	return r.domains[best]
}
