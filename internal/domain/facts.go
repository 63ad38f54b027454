package domain

import (
	"regexp"
	"strconv"
	"strings"

	"rebase/internal/discovery"
)

// Facts is the flat view of discovered data that domain calculations use.
// Zero values are replaced by defaults in WithDefaults.
type Facts struct {
	TeamSize           int     `json:"team_size"`
	ComponentCount     int     `json:"component_count"`
	CurrentFramework   string  `json:"current_framework,omitempty"`
	TargetFramework    string  `json:"target_framework,omitempty"`
	AvgDeveloperSalary float64 `json:"avg_developer_salary"`
	AnnualRevenue      float64 `json:"annual_revenue"`
	FeaturesPerMonth   float64 `json:"features_per_month"`
	CurrentState       string  `json:"current_state,omitempty"`
}

// WithDefaults fills unknown values with conservative assumptions.
func (f Facts) WithDefaults() Facts {
	if f.TeamSize <= 0 {
		f.TeamSize = 3
	}
	if f.ComponentCount <= 0 {
		f.ComponentCount = 50
	}
	if f.AvgDeveloperSalary <= 0 {
		f.AvgDeveloperSalary = 100000
	}
	if f.AnnualRevenue <= 0 {
		f.AnnualRevenue = 1000000
	}
	if f.FeaturesPerMonth <= 0 {
		f.FeaturesPerMonth = 8
	}
	return f
}

var knownFrameworks = []string{
	"react", "vue", "angular", "svelte", "django", "fastapi", "flask",
	"express", "nestjs", "spring", "rails", "laravel", "jquery",
}

var (
	countPattern     = regexp.MustCompile(`(\d[\d,]*)\s*(?:components|screens|pages|modules)`)
	teamPattern      = regexp.MustCompile(`(\d+)\s*(?:developers?|engineers?|devs|people)`)
	leadingNumber    = regexp.MustCompile(`\d+(?:\.\d+)?`)
	amountWithSuffix = regexp.MustCompile(`(?i)\$?\s*(\d[\d,]*(?:\.\d+)?)\s*(k|m|million|thousand|b|billion)?\b`)
)

// FactsFrom flattens collected discovery data into domain facts.
func FactsFrom(d *discovery.CollectedBusinessData) Facts {
	var f Facts

	impl := d.Category(discovery.ImplementationContext)
	metrics := d.Category(discovery.KeyMetrics)
	people := d.Category(discovery.Stakeholders)
	problems := d.Category(discovery.CurrentProblems)
	goals := d.Category(discovery.BusinessGoals)

	capacity := impl.State(discovery.CurrentSide)["team_capacity"]
	if m, ok := capacity.(map[string]any); ok {
		f.TeamSize = int(firstNumber(m["team_size"], m["developers"], m["size"]))
		f.AvgDeveloperSalary = firstAmount(m["avg_developer_salary"], m["avg_salary"], m["average_salary"])
	}
	if f.TeamSize == 0 {
		team := discovery.Text(people.State(discovery.CurrentSide)["technical_team"])
		if m := teamPattern.FindStringSubmatch(strings.ToLower(team)); m != nil {
			f.TeamSize, _ = strconv.Atoi(m[1])
		}
	}

	if bm, ok := metrics.State(discovery.CurrentSide)["business_metrics"].(map[string]any); ok {
		f.AnnualRevenue = firstAmount(bm["annual_revenue"], bm["revenue"])
	}
	if om, ok := metrics.State(discovery.CurrentSide)["operational_metrics"].(map[string]any); ok {
		f.FeaturesPerMonth = firstNumber(om["features_per_month"], om["deployment_frequency"])
	}

	currentText := strings.ToLower(strings.Join([]string{
		discovery.Text(impl.State(discovery.CurrentSide)["technical_constraints"]),
		discovery.Text(problems.State(discovery.CurrentSide)["technical_issues"]),
	}, " "))
	futureText := strings.ToLower(strings.Join([]string{
		discovery.Text(impl.State(discovery.FutureSide)["business_constraints"]),
		discovery.Text(goals.State(discovery.FutureSide)["primary_objectives"]),
	}, " "))

	f.CurrentFramework = firstFramework(currentText, "")
	f.TargetFramework = firstFramework(futureText, f.CurrentFramework)
	f.CurrentState = currentText

	if m := countPattern.FindStringSubmatch(currentText + " " + futureText); m != nil {
		f.ComponentCount, _ = strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	}
	return f
}

func firstFramework(text, exclude string) string {
	best, bestIdx := "", -1
	for _, fw := range knownFrameworks {
		if fw == exclude {
			continue
		}
		if idx := strings.Index(text, fw); idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			best, bestIdx = fw, idx
		}
	}
	return best
}

func firstNumber(values ...any) float64 {
	for _, v := range values {
		switch x := v.(type) {
		case float64:
			return x
		case int:
			return float64(x)
		case string:
			if m := leadingNumber.FindString(strings.ReplaceAll(x, ",", "")); m != "" {
				n, err := strconv.ParseFloat(m, 64)
				if err == nil {
					return n
				}
			}
		}
	}
	return 0
}

func firstAmount(values ...any) float64 {
	for _, v := range values {
		switch x := v.(type) {
		case float64:
			return x
		case int:
			return float64(x)
		case string:
			if n, ok := ParseAmount(x); ok {
				return n
			}
		}
	}
	return 0
}

// ParseAmount reads money like "$2M", "150k", "$120,000" or "1.5 million".
func ParseAmount(s string) (float64, bool) {
	m := amountWithSuffix.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		n *= 1e3
	case "m", "million":
		n *= 1e6
	case "b", "billion":
		n *= 1e9
	}
	return n, true
}
