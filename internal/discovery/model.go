package discovery

import (
	"encoding/json"
	"fmt"
)

// CategoryID names one of the five fixed discovery categories.
type CategoryID string

const (
	BusinessGoals         CategoryID = "business_goals"
	Stakeholders          CategoryID = "stakeholders"
	CurrentProblems       CategoryID = "current_problems"
	KeyMetrics            CategoryID = "key_metrics"
	ImplementationContext CategoryID = "implementation_context"
)

// CategoryOrder is the declaration order used for scoring, missing-category
// lists and serialization.
var CategoryOrder = []CategoryID{
	BusinessGoals,
	Stakeholders,
	CurrentProblems,
	KeyMetrics,
	ImplementationContext,
}

// StateSide selects current_state or future_state within a category.
type StateSide string

const (
	CurrentSide StateSide = "current_state"
	FutureSide  StateSide = "future_state"
)

// FieldKind is the shape a schema field holds.
type FieldKind int

const (
	KindList FieldKind = iota
	KindMap
	KindText
)

// CompletionStatus is derived from progress.
type CompletionStatus string

const (
	StatusNotStarted CompletionStatus = "not_started"
	StatusInProgress CompletionStatus = "in_progress"
	StatusComplete   CompletionStatus = "complete"
)

type fieldSpec struct {
	Name string
	Kind FieldKind
}

type categorySchema struct {
	ID          CategoryID
	DisplayName string
	Current     []fieldSpec
	Future      []fieldSpec
}

func list(name string) fieldSpec { return fieldSpec{Name: name, Kind: KindList} }
func dict(name string) fieldSpec { return fieldSpec{Name: name, Kind: KindMap} }
func text(name string) fieldSpec { return fieldSpec{Name: name, Kind: KindText} }

// schemas is the single supported data model version. Fields are never
// added or removed at runtime.
var schemas = map[CategoryID]categorySchema{
	BusinessGoals: {
		ID:          BusinessGoals,
		DisplayName: "Business Goals",
		Future: []fieldSpec{
			list("primary_objectives"),
			list("success_criteria"),
			list("kpis"),
			text("strategic_alignment"),
			dict("timeline_goals"),
		},
	},
	Stakeholders: {
		ID:          Stakeholders,
		DisplayName: "Stakeholders",
		Current: []fieldSpec{
			list("decision_makers"),
			list("technical_team"),
			list("business_users"),
			list("external_stakeholders"),
			list("project_sponsors"),
		},
		Future: []fieldSpec{
			dict("communication_plan"),
			list("change_management"),
			dict("resource_needs"),
		},
	},
	CurrentProblems: {
		ID:          CurrentProblems,
		DisplayName: "Current Problems",
		Current: []fieldSpec{
			list("technical_issues"),
			list("process_inefficiencies"),
			list("user_complaints"),
			list("security_risks"),
			list("compliance_risks"),
			list("reliability_issues"),
			list("operational_risks"),
			list("cost_drains"),
		},
		// problems have no future state
	},
	KeyMetrics: {
		ID:          KeyMetrics,
		DisplayName: "Key Metrics",
		Current: []fieldSpec{
			dict("performance_metrics"),
			dict("business_metrics"),
			dict("operational_metrics"),
			dict("operational_costs"),
			dict("user_metrics"),
			dict("security_metrics"),
		},
		Future: []fieldSpec{
			dict("performance_targets"),
			dict("business_targets"),
			dict("operational_targets"),
			dict("cost_savings_targets"),
			dict("user_targets"),
			dict("security_targets"),
		},
	},
	ImplementationContext: {
		ID:          ImplementationContext,
		DisplayName: "Implementation Context",
		Current: []fieldSpec{
			dict("team_capacity"),
			list("technical_constraints"),
			dict("organizational_readiness"),
		},
		Future: []fieldSpec{
			dict("project_budget"),
			dict("resource_plan"),
			dict("timeline_requirements"),
			list("regulatory_compliance"),
			list("business_constraints"),
			list("implementation_risks"),
		},
	},
}

// IsCategory reports whether id names a known category.
func IsCategory(id string) bool {
	_, ok := schemas[CategoryID(id)]
	return ok
}

// DisplayName returns the human label for a category.
func DisplayName(id CategoryID) string {
	return schemas[id].DisplayName
}

func (s categorySchema) fields(side StateSide) []fieldSpec {
	if side == FutureSide {
		return s.Future
	}
	return s.Current
}

// lookup finds a field. An empty side searches current_state then future_state.
func (s categorySchema) lookup(side StateSide, name string) (StateSide, fieldSpec, bool) {
	sides := []StateSide{CurrentSide, FutureSide}
	if side != "" {
		sides = []StateSide{side}
	}
	for _, sd := range sides {
		for _, f := range s.fields(sd) {
			if f.Name == name {
				return sd, f, true
			}
		}
	}
	return "", fieldSpec{}, false
}

func emptyValue(kind FieldKind) any {
	switch kind {
	case KindList:
		return []any{}
	case KindMap:
		return map[string]any{}
	default:
		return ""
	}
}

// Category is one bucket of business knowledge. Progress, status and
// summary are derived and only change through the owning data model.
type Category struct {
	id       CategoryID
	name     string
	current  map[string]any
	future   map[string]any
	progress float64
	status   CompletionStatus
	summary  string
}

func newCategory(s categorySchema) *Category {
	c := &Category{
		id:      s.ID,
		name:    s.DisplayName,
		current: make(map[string]any, len(s.Current)),
		future:  make(map[string]any, len(s.Future)),
		status:  StatusNotStarted,
	}
	for _, f := range s.Current {
		c.current[f.Name] = emptyValue(f.Kind)
	}
	for _, f := range s.Future {
		c.future[f.Name] = emptyValue(f.Kind)
	}
	c.refresh()
	return c
}

func (c *Category) ID() CategoryID           { return c.id }
func (c *Category) Name() string             { return c.name }
func (c *Category) Progress() float64        { return c.progress }
func (c *Category) Status() CompletionStatus { return c.status }
func (c *Category) Summary() string          { return c.summary }
func (c *Category) schema() categorySchema   { return schemas[c.id] }

func (c *Category) state(side StateSide) map[string]any {
	if side == FutureSide {
		return c.future
	}
	return c.current
}

// State returns a deep copy of one side of the category.
func (c *Category) State(side StateSide) map[string]any {
	return copyMap(c.state(side))
}

// Value returns a deep copy of a field value.
func (c *Category) Value(side StateSide, field string) (any, bool) {
	v, ok := c.state(side)[field]
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

// ListLen returns the length of a list field, or 0.
func (c *Category) ListLen(side StateSide, field string) int {
	if l, ok := c.state(side)[field].([]any); ok {
		return len(l)
	}
	return 0
}

func (c *Category) refresh() {
	c.progress = c.computeProgress()
	c.status = statusFor(c.progress)
	c.summary = summarize(c)
}

// CollectedBusinessData is the evolving record of everything learned in
// discovery: exactly five categories with fixed field schemas.
type CollectedBusinessData struct {
	categories map[CategoryID]*Category
}

// NewCollectedBusinessData returns an empty model with every schema field present.
func NewCollectedBusinessData() *CollectedBusinessData {
	d := &CollectedBusinessData{categories: make(map[CategoryID]*Category, len(CategoryOrder))}
	for _, id := range CategoryOrder {
		d.categories[id] = newCategory(schemas[id])
	}
	return d
}

// Category returns the category with the given id, or nil.
func (d *CollectedBusinessData) Category(id CategoryID) *Category {
	return d.categories[id]
}

// Categories returns all categories in declaration order.
func (d *CollectedBusinessData) Categories() []*Category {
	out := make([]*Category, 0, len(CategoryOrder))
	for _, id := range CategoryOrder {
		out = append(out, d.categories[id])
	}
	return out
}

// Clone returns an independent deep copy.
func (d *CollectedBusinessData) Clone() *CollectedBusinessData {
	cp := &CollectedBusinessData{categories: make(map[CategoryID]*Category, len(d.categories))}
	for id, c := range d.categories {
		cp.categories[id] = &Category{
			id:       c.id,
			name:     c.name,
			current:  copyMap(c.current),
			future:   copyMap(c.future),
			progress: c.progress,
			status:   c.status,
			summary:  c.summary,
		}
	}
	return cp
}

type categoryJSON struct {
	Name             string           `json:"name"`
	Progress         float64          `json:"progress"`
	CompletionStatus CompletionStatus `json:"completion_status"`
	Summary          string           `json:"summary"`
	CurrentState     map[string]any   `json:"current_state"`
	FutureState      map[string]any   `json:"future_state"`
}

// MarshalJSON writes the model keyed by category id.
func (d *CollectedBusinessData) MarshalJSON() ([]byte, error) {
	out := make(map[string]categoryJSON, len(d.categories))
	for _, c := range d.Categories() {
		out[string(c.id)] = categoryJSON{
			Name:             c.name,
			Progress:         c.progress,
			CompletionStatus: c.status,
			Summary:          c.summary,
			CurrentState:     c.current,
			FutureState:      c.future,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a persisted model. Only schema fields are read;
// values of the wrong shape are dropped and derived fields are recomputed.
func (d *CollectedBusinessData) UnmarshalJSON(data []byte) error {
	var raw map[string]categoryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode business data: %w", err)
	}
	fresh := NewCollectedBusinessData()
	for _, id := range CategoryOrder {
		stored, ok := raw[string(id)]
		if !ok {
			continue
		}
		c := fresh.categories[id]
		restoreSide(c, CurrentSide, stored.CurrentState)
		restoreSide(c, FutureSide, stored.FutureState)
		c.refresh()
	}
	d.categories = fresh.categories
	return nil
}

func restoreSide(c *Category, side StateSide, stored map[string]any) {
	for _, f := range c.schema().fields(side) {
		v, ok := stored[f.Name]
		if !ok || v == nil {
			continue
		}
		if kindOf(v) == f.Kind {
			c.state(side)[f.Name] = v
		}
	}
}

// LoadCollectedBusinessData decodes persisted facts; empty input yields a fresh model.
func LoadCollectedBusinessData(facts []byte) (*CollectedBusinessData, error) {
	if len(facts) == 0 || string(facts) == "null" || string(facts) == "{}" {
		return NewCollectedBusinessData(), nil
	}
	d := &CollectedBusinessData{}
	if err := json.Unmarshal(facts, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ToMap returns the serialized form as a generic mapping.
func (d *CollectedBusinessData) ToMap() map[string]any {
	raw, err := json.Marshal(d)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
