package discovery

import (
	"fmt"
	"strings"
)

func countFilled(m map[string]any) int {
	n := 0
	for _, v := range m {
		if isFilled(v) {
			n++
		}
	}
	return n
}

func joinOr(parts []string, empty string) string {
	if len(parts) == 0 {
		return empty
	}
	return strings.Join(parts, ", ")
}

// summarize builds the category digest from its current contents.
func summarize(c *Category) string {
	var parts []string
	switch c.id {
	case BusinessGoals:
		if n := c.ListLen(FutureSide, "primary_objectives"); n > 0 {
			parts = append(parts, fmt.Sprintf("%d primary objectives", n))
		}
		if n := c.ListLen(FutureSide, "kpis"); n > 0 {
			parts = append(parts, fmt.Sprintf("%d KPIs defined", n))
		}
		return joinOr(parts, "No goals defined yet")

	case CurrentProblems:
		if n := c.ListLen(CurrentSide, "technical_issues"); n > 0 {
			parts = append(parts, fmt.Sprintf("%d technical issues", n))
		}
		if n := c.ListLen(CurrentSide, "security_risks"); n > 0 {
			parts = append(parts, fmt.Sprintf("%d security risks", n))
		}
		return joinOr(parts, "No problems identified")

	case Stakeholders:
		total := c.ListLen(CurrentSide, "decision_makers") +
			c.ListLen(CurrentSide, "technical_team") +
			c.ListLen(CurrentSide, "business_users")
		if total == 0 {
			return "No stakeholders identified"
		}
		return fmt.Sprintf("%d stakeholders identified", total)

	case KeyMetrics:
		if n := countFilled(c.current); n > 0 {
			parts = append(parts, fmt.Sprintf("%d current metrics", n))
		}
		if n := countFilled(c.future); n > 0 {
			parts = append(parts, fmt.Sprintf("%d targets", n))
		}
		if isFilled(c.current["operational_costs"]) {
			parts = append(parts, "operational costs tracked")
		}
		if isFilled(c.future["cost_savings_targets"]) {
			parts = append(parts, "savings targets set")
		}
		return joinOr(parts, "No metrics defined")

	case ImplementationContext:
		if n := countFilled(c.current); n > 0 {
			parts = append(parts, fmt.Sprintf("%d current constraints", n))
		}
		if isFilled(c.future["project_budget"]) {
			parts = append(parts, "project budget defined")
		}
		if isFilled(c.future["resource_plan"]) {
			parts = append(parts, "resource plan set")
		}
		return joinOr(parts, "Implementation context not defined")
	}
	return ""
}
