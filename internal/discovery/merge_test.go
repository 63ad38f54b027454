package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listValue(t *testing.T, d *CollectedBusinessData, id CategoryID, side StateSide, field string) []any {
	t.Helper()
	v, ok := d.Category(id).Value(side, field)
	require.True(t, ok, "missing field %s.%s", id, field)
	l, ok := v.([]any)
	require.True(t, ok, "field %s.%s is %T", id, field, v)
	return l
}

func TestMerge_ListsAreAdditive(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{"current_problems": map[string]any{"technical_issues": []any{"A"}}})
	d.Merge(map[string]any{"current_problems": map[string]any{"technical_issues": []any{"B"}}})

	assert.Equal(t, []any{"A", "B"}, listValue(t, d, CurrentProblems, CurrentSide, "technical_issues"))
}

func TestMerge_ListsSkipRepeatedItems(t *testing.T) {
	d := NewCollectedBusinessData()
	patch := map[string]any{"current_problems": map[string]any{"technical_issues": []any{"A"}}}
	d.Merge(patch)
	report := d.Merge(patch)

	assert.Equal(t, []any{"A"}, listValue(t, d, CurrentProblems, CurrentSide, "technical_issues"))
	assert.NotContains(t, report.Applied, "current_problems.technical_issues")

	d.Merge(map[string]any{"current_problems": map[string]any{"technical_issues": []any{"B", "A", "B"}}})
	assert.Equal(t, []any{"A", "B"}, listValue(t, d, CurrentProblems, CurrentSide, "technical_issues"))

	d.Merge(map[string]any{"current_problems": map[string]any{"technical_issues": []any{map[string]any{"x": 1.0}}}})
	d.Merge(map[string]any{"current_problems": map[string]any{"technical_issues": []any{map[string]any{"x": 1.0}}}})
	assert.Len(t, listValue(t, d, CurrentProblems, CurrentSide, "technical_issues"), 3)
}

func TestMerge_NestedStateShape(t *testing.T) {
	d := NewCollectedBusinessData()
	report := d.Merge(map[string]any{
		"stakeholders": map[string]any{
			"current_state": map[string]any{"decision_makers": []any{"Jane Doe (CTO)"}},
			"future_state":  map[string]any{"change_management": []any{"training plan"}},
		},
	})

	assert.ElementsMatch(t, []string{"stakeholders.decision_makers", "stakeholders.change_management"}, report.Applied)
	assert.Equal(t, []any{"Jane Doe (CTO)"}, listValue(t, d, Stakeholders, CurrentSide, "decision_makers"))
	assert.Equal(t, []any{"training plan"}, listValue(t, d, Stakeholders, FutureSide, "change_management"))
}

func TestMerge_ScalarWrappedForList(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{"business_goals": map[string]any{"primary_objectives": "cut release time"}})

	assert.Equal(t, []any{"cut release time"}, listValue(t, d, BusinessGoals, FutureSide, "primary_objectives"))
}

func TestMerge_MapsMergePerKey(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{"key_metrics": map[string]any{"operational_costs": map[string]any{"maintenance": "$1M", "infrastructure": "$500K"}}})
	d.Merge(map[string]any{"key_metrics": map[string]any{"operational_costs": map[string]any{"maintenance": "$1.2M", "infrastructure": ""}}})

	v, _ := d.Category(KeyMetrics).Value(CurrentSide, "operational_costs")
	assert.Equal(t, map[string]any{"maintenance": "$1.2M", "infrastructure": "$500K"}, v)
}

func TestMerge_TextOverwrittenOnlyByNonBlank(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{"business_goals": map[string]any{"strategic_alignment": "cloud first"}})
	d.Merge(map[string]any{"business_goals": map[string]any{"strategic_alignment": "  "}})

	v, _ := d.Category(BusinessGoals).Value(FutureSide, "strategic_alignment")
	assert.Equal(t, "cloud first", v)

	d.Merge(map[string]any{"business_goals": map[string]any{"strategic_alignment": "digital first"}})
	v, _ = d.Category(BusinessGoals).Value(FutureSide, "strategic_alignment")
	assert.Equal(t, "digital first", v)
}

func TestMerge_TypeMismatchSkipsOnlyThatField(t *testing.T) {
	d := NewCollectedBusinessData()
	report := d.Merge(map[string]any{
		"current_problems": map[string]any{
			"technical_issues": map[string]any{"oops": "a mapping"},
			"security_risks":   []any{"unpatched servers"},
		},
		"key_metrics": map[string]any{
			"operational_costs": "not a mapping",
			"user_metrics":      map[string]any{"total_users": "10k"},
		},
		"stakeholders": "not an object",
	})

	assert.ElementsMatch(t, []string{"current_problems.technical_issues", "key_metrics.operational_costs", "stakeholders"}, report.Skipped)
	assert.ElementsMatch(t, []string{"current_problems.security_risks", "key_metrics.user_metrics"}, report.Applied)
	assert.Equal(t, 0, d.Category(CurrentProblems).ListLen(CurrentSide, "technical_issues"))
	assert.Equal(t, 1, d.Category(CurrentProblems).ListLen(CurrentSide, "security_risks"))
}

func TestMerge_UnknownKeysIgnored(t *testing.T) {
	d := NewCollectedBusinessData()
	report := d.Merge(map[string]any{
		"vibes":          map[string]any{"mood": []any{"good"}},
		"business_goals": map[string]any{"not_a_field": []any{"x"}},
	})

	assert.False(t, report.Changed())
	assert.Empty(t, report.Skipped)
	assert.Zero(t, d.OverallCompleteness())
	assert.NotContains(t, d.Category(BusinessGoals).State(FutureSide), "not_a_field")
}

func TestMerge_Aliases(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{
		"current_problems": map[string]any{
			"performance_issues": []any{"p95 over 3s"},
			"operational_issues": []any{"manual deploys"},
		},
		"implementation_context": map[string]any{
			"current_technology": []any{"React 16"},
			"project_type":       "framework migration",
		},
	})

	assert.Equal(t, []any{"p95 over 3s"}, listValue(t, d, CurrentProblems, CurrentSide, "reliability_issues"))
	assert.Equal(t, []any{"manual deploys"}, listValue(t, d, CurrentProblems, CurrentSide, "operational_risks"))
	assert.Equal(t, []any{"React 16"}, listValue(t, d, ImplementationContext, CurrentSide, "technical_constraints"))
	assert.Equal(t, []any{"Project Type: framework migration"}, listValue(t, d, ImplementationContext, FutureSide, "business_constraints"))
}

func TestMerge_NeverDeletes(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{"stakeholders": map[string]any{"technical_team": []any{"4 engineers"}}})
	d.Merge(map[string]any{"stakeholders": map[string]any{"technical_team": []any{}}})
	d.Merge(map[string]any{"stakeholders": map[string]any{"technical_team": nil}})

	assert.Equal(t, []any{"4 engineers"}, listValue(t, d, Stakeholders, CurrentSide, "technical_team"))
}

func TestMerge_MonotonicCompleteness(t *testing.T) {
	d := NewCollectedBusinessData()
	steps := []map[string]any{
		{"business_goals": map[string]any{"primary_objectives": []any{"reduce deployment time"}}},
		{"current_problems": map[string]any{"technical_issues": []any{"monolith"}}},
		{"current_problems": map[string]any{"technical_issues": map[string]any{"bad": "shape"}}},
		{"stakeholders": map[string]any{"decision_makers": []any{"CTO"}}},
		{"key_metrics": map[string]any{"operational_costs": map[string]any{"total_annual": "$3M"}}},
		{"implementation_context": map[string]any{"project_budget": map[string]any{"max_investment": "$1M"}}},
		{"business_goals": map[string]any{"primary_objectives": []any{"improve uptime"}}},
	}

	prev := d.OverallCompleteness()
	for i, step := range steps {
		d.Merge(step)
		cur := d.OverallCompleteness()
		assert.GreaterOrEqual(t, cur, prev, "step %d reduced completeness", i)
		prev = cur
	}
	assert.Greater(t, prev, 0.0)
}

func TestMerge_ProgressNeverStale(t *testing.T) {
	d := NewCollectedBusinessData()
	d.Merge(map[string]any{"business_goals": map[string]any{"kpis": []any{"lead time"}}})

	c := d.Category(BusinessGoals)
	assert.InDelta(t, c.computeProgress(), c.Progress(), 1e-9)
	assert.Equal(t, statusFor(c.Progress()), c.Status())
}

func TestMinimalExtraction(t *testing.T) {
	budget := MinimalExtraction([]Turn{
		{Role: "assistant", Content: "What's the budget?"},
		{Role: "user", Content: "Our budget is about 2 million"},
	})
	assert.Equal(t, map[string]any{
		"implementation_context": map[string]any{"project_budget": map[string]any{"max_investment": "$2M"}},
	}, budget)

	cost := MinimalExtraction([]Turn{{Role: "user", Content: "Maintenance costs us 3M per year"}})
	assert.Equal(t, map[string]any{
		"key_metrics": map[string]any{"operational_costs": map[string]any{"total_annual": "$3M"}},
	}, cost)

	assert.Empty(t, MinimalExtraction([]Turn{{Role: "user", Content: "We have 12 developers"}}))
	assert.Empty(t, MinimalExtraction(nil))

	d := NewCollectedBusinessData()
	report := d.Merge(budget)
	assert.Equal(t, []string{"implementation_context.project_budget"}, report.Applied)
}
