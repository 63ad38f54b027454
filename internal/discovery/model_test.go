package discovery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fill sets the first n schema fields of a category (current side first)
// to a non-empty value of the right kind.
func fill(t *testing.T, d *CollectedBusinessData, id CategoryID, n int) {
	t.Helper()
	s := schemas[id]
	fields := append(append([]fieldSpec{}, s.Current...), s.Future...)
	require.LessOrEqual(t, n, len(fields))
	for i := 0; i < n; i++ {
		side := CurrentSide
		if i >= len(s.Current) {
			side = FutureSide
		}
		var v any
		switch fields[i].Kind {
		case KindList:
			v = []any{"item"}
		case KindMap:
			v = map[string]any{"k": "v"}
		default:
			v = "text"
		}
		report := d.Merge(map[string]any{string(id): map[string]any{string(side): map[string]any{fields[i].Name: v}}})
		require.True(t, report.Changed(), "field %s.%s not applied", id, fields[i].Name)
	}
}

func fieldCount(id CategoryID) int {
	return len(schemas[id].Current) + len(schemas[id].Future)
}

func TestNewCollectedBusinessData_Schema(t *testing.T) {
	d := NewCollectedBusinessData()

	require.Len(t, d.Categories(), 5)
	for i, c := range d.Categories() {
		assert.Equal(t, CategoryOrder[i], c.ID())
		assert.Equal(t, StatusNotStarted, c.Status())
		assert.Zero(t, c.Progress())
	}

	goals := d.Category(BusinessGoals).State(FutureSide)
	for _, f := range []string{"primary_objectives", "success_criteria", "kpis", "strategic_alignment", "timeline_goals"} {
		assert.Contains(t, goals, f)
	}
	assert.Empty(t, d.Category(CurrentProblems).State(FutureSide))
	assert.Zero(t, d.OverallCompleteness())
}

func TestCategoryProgress_Idempotent(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{"business_goals": map[string]any{"primary_objectives": []any{"reduce cost"}}})

	first := d.CategoryProgress(BusinessGoals)
	second := d.CategoryProgress(BusinessGoals)
	assert.Equal(t, first, second)
	assert.InDelta(t, 1.0/5.0, first, 1e-9)
	assert.Equal(t, StatusInProgress, d.Category(BusinessGoals).Status())
}

func TestCategoryProgress_Complete(t *testing.T) {
	d := NewCollectedBusinessData()
	fill(t, d, BusinessGoals, fieldCount(BusinessGoals))

	assert.Equal(t, 1.0, d.CategoryProgress(BusinessGoals))
	assert.Equal(t, StatusComplete, d.Category(BusinessGoals).Status())
	assert.InDelta(t, 0.2, d.OverallCompleteness(), 1e-9)
}

func TestCategoryProgress_UnknownCategory(t *testing.T) {
	d := NewCollectedBusinessData()
	assert.Zero(t, d.CategoryProgress("nope"))
}

func TestIsFilled(t *testing.T) {
	cases := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"blank string", "   ", false},
		{"string", "x", true},
		{"empty list", []any{}, false},
		{"list", []any{"a"}, true},
		{"empty map", map[string]any{}, false},
		{"map", map[string]any{"a": 1}, true},
		{"zero number", float64(0), true},
		{"false", false, false},
		{"true", true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isFilled(tc.v))
		})
	}
}

func TestMissingCategories_DeclarationOrder(t *testing.T) {
	d := NewCollectedBusinessData()
	assert.Equal(t, CategoryOrder, d.MissingCategories())

	fill(t, d, Stakeholders, fieldCount(Stakeholders)/2+1)
	assert.Equal(t, []CategoryID{BusinessGoals, CurrentProblems, KeyMetrics, ImplementationContext}, d.MissingCategories())
}

func TestSummaryRegeneratedAfterMerge(t *testing.T) {
	d := NewCollectedBusinessData()
	before := d.Category(CurrentProblems).Summary()

	d.Merge(map[string]any{"current_problems": map[string]any{"technical_issues": []any{"slow deploys"}}})
	after := d.Category(CurrentProblems).Summary()

	assert.NotEqual(t, before, after)
	assert.Equal(t, "1 technical issues", after)
}

func TestJSONRoundTrip(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{
		"business_goals": map[string]any{"primary_objectives": []any{"faster releases"}},
		"key_metrics":    map[string]any{"operational_costs": map[string]any{"total_annual": "$2M"}},
	})

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	restored, err := LoadCollectedBusinessData(raw)
	require.NoError(t, err)

	assert.Equal(t, d.OverallCompleteness(), restored.OverallCompleteness())
	v, ok := restored.Category(KeyMetrics).Value(CurrentSide, "operational_costs")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"total_annual": "$2M"}, v)
	assert.Equal(t, 1, restored.Category(BusinessGoals).ListLen(FutureSide, "primary_objectives"))
}

func TestLoadCollectedBusinessData_DropsForeignShapes(t *testing.T) {
	raw := []byte(`{
		"business_goals": {"future_state": {"primary_objectives": "not a list", "kpis": ["uptime"], "invented": ["x"]}},
		"unknown_category": {"current_state": {"a": ["b"]}}
	}`)
	d, err := LoadCollectedBusinessData(raw)
	require.NoError(t, err)

	goals := d.Category(BusinessGoals)
	assert.Equal(t, 0, goals.ListLen(FutureSide, "primary_objectives"))
	assert.Equal(t, 1, goals.ListLen(FutureSide, "kpis"))
	assert.NotContains(t, goals.State(FutureSide), "invented")
	assert.Len(t, d.Categories(), 5)
}

func TestLoadCollectedBusinessData_Empty(t *testing.T) {
	for _, in := range [][]byte{nil, []byte("null"), []byte("{}")} {
		d, err := LoadCollectedBusinessData(in)
		require.NoError(t, err)
		assert.Zero(t, d.OverallCompleteness())
	}
	_, err := LoadCollectedBusinessData([]byte("[1,2"))
	assert.Error(t, err)
}

func TestClone_Independent(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{"stakeholders": map[string]any{"decision_makers": []any{"Ana (CTO)"}}})

	cp := d.Clone()
	cp.Merge(map[string]any{"stakeholders": map[string]any{"decision_makers": []any{"Bo (CFO)"}}})

	assert.Equal(t, 1, d.Category(Stakeholders).ListLen(CurrentSide, "decision_makers"))
	assert.Equal(t, 2, cp.Category(Stakeholders).ListLen(CurrentSide, "decision_makers"))
}

func TestStateReturnsCopy(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{"business_goals": map[string]any{"kpis": []any{"nps"}}})

	state := d.Category(BusinessGoals).State(FutureSide)
	state["kpis"] = []any{}

	assert.Equal(t, 1, d.Category(BusinessGoals).ListLen(FutureSide, "kpis"))
}

func TestDiscoverySummary(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{"business_goals": map[string]any{"primary_objectives": []any{"a", "b"}}})

	s := d.DiscoverySummary()
	require.Len(t, s.Categories, 5)
	assert.InDelta(t, d.OverallCompleteness(), s.OverallProgress, 1e-9)
	assert.Equal(t, StatusInProgress, s.Categories["business_goals"].Status)
	assert.Equal(t, "Business Goals", s.Categories["business_goals"].Name)
}
