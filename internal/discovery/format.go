package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// Turn is one role-tagged conversation message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FormatHistory renders turns as "ROLE: content", each cut to limit runes.
func FormatHistory(turns []Turn, limit int) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		role := t.Role
		if role == "" {
			role = "unknown"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(role), truncate(t.Content, limit)))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// LastTurns returns at most n trailing turns.
func LastTurns(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

func firstStrings(v any, n int) []string {
	l, _ := v.([]any)
	out := make([]string, 0, n)
	for _, item := range l {
		if len(out) == n {
			break
		}
		out = append(out, Text(item))
	}
	return out
}

func filledPairs(m map[string]any, n int) []string {
	out := make([]string, 0, n)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(out) == n {
			break
		}
		if isFilled(m[k]) {
			out = append(out, fmt.Sprintf("%s: %s", k, Text(m[k])))
		}
	}
	return out
}

// CollectedDigest is the short "already known" block used by extraction.
func (d *CollectedBusinessData) CollectedDigest() string {
	var lines []string
	goals := d.Category(BusinessGoals)
	if goals.progress > 0 {
		if items := firstStrings(goals.future["primary_objectives"], 2); len(items) > 0 {
			lines = append(lines, fmt.Sprintf("Business Goals (%d): %s", goals.ListLen(FutureSide, "primary_objectives"), strings.Join(items, ", ")))
		}
	}
	problems := d.Category(CurrentProblems)
	if problems.progress > 0 {
		if items := firstStrings(problems.current["technical_issues"], 2); len(items) > 0 {
			lines = append(lines, fmt.Sprintf("Current Problems (%d): %s", problems.ListLen(CurrentSide, "technical_issues"), strings.Join(items, ", ")))
		}
	}
	metrics := d.Category(KeyMetrics)
	if metrics.progress > 0 {
		if items := filledPairs(metrics.current, 2); len(items) > 0 {
			lines = append(lines, "Metrics: "+strings.Join(items, ", "))
		}
	}
	impl := d.Category(ImplementationContext)
	if impl.progress > 0 {
		if items := filledPairs(impl.current, 2); len(items) > 0 {
			lines = append(lines, "Context: "+strings.Join(items, ", "))
		}
	}
	people := d.Category(Stakeholders)
	if people.progress > 0 {
		if items := firstStrings(people.current["decision_makers"], 2); len(items) > 0 {
			lines = append(lines, fmt.Sprintf("Stakeholders (%d): %s", people.ListLen(CurrentSide, "decision_makers"), strings.Join(items, ", ")))
		}
	}
	if len(lines) == 0 {
		return "Discovery just starting - minimal data collected."
	}
	return strings.Join(lines, "\n")
}

func mentions(m map[string]any, words ...string) bool {
	for _, v := range m {
		s := strings.ToLower(Text(v))
		for _, w := range words {
			if strings.Contains(s, w) {
				return true
			}
		}
	}
	return false
}

// DetailedDigest is the checklist block used by the decision request.
func (d *CollectedBusinessData) DetailedDigest() string {
	var lines []string

	if goals := d.Category(BusinessGoals); goals.progress > 0 {
		lines = append(lines, fmt.Sprintf("✓ Business Goals: %d objectives defined", goals.ListLen(FutureSide, "primary_objectives")))
	} else {
		lines = append(lines, "✗ Business Goals: Not identified")
	}

	if problems := d.Category(CurrentProblems); problems.progress > 0 {
		lines = append(lines, fmt.Sprintf("✓ Current Problems: %d issues identified", problems.ListLen(CurrentSide, "technical_issues")))
	} else {
		lines = append(lines, "✗ Current Problems: Not identified")
	}

	if people := d.Category(Stakeholders); people.progress > 0 {
		lines = append(lines, fmt.Sprintf("✓ Stakeholders: %d decision makers identified", people.ListLen(CurrentSide, "decision_makers")))
	} else {
		lines = append(lines, "✗ Stakeholders: Not identified")
	}

	metrics := d.Category(KeyMetrics)
	switch {
	case metrics.progress > 0 && mentions(metrics.current, "budget", "cost", "$"):
		lines = append(lines, "✓ Financial Info: Budget/cost information available")
	case metrics.progress > 0:
		lines = append(lines, "✓ Metrics: Some metrics collected")
	default:
		lines = append(lines, "✗ Financial Info: No budget/cost information")
	}

	impl := d.Category(ImplementationContext)
	switch {
	case impl.progress > 0 && isFilled(impl.current["technical_constraints"]):
		lines = append(lines, "✓ Technical Context: Current technology identified")
	case impl.progress > 0:
		lines = append(lines, "✓ Context: Some implementation details")
	default:
		lines = append(lines, "✗ Technical Context: Current system not described")
	}

	return strings.Join(lines, "\n")
}
