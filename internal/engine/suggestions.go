package engine

import (
	"rebase/internal/discovery"
	"rebase/internal/phase"
)

var categoryGroups = map[string]string{
	string(discovery.BusinessGoals):         "business_context",
	string(discovery.CurrentProblems):       "business_context",
	string(discovery.KeyMetrics):            "financial_context",
	string(discovery.ImplementationContext): "financial_context",
	string(discovery.Stakeholders):          "stakeholder_mapping",
}

var groupSuggestions = map[string][]string{
	"business_context": {
		"Let me explain our main business drivers",
		"Here are the specific problems we're facing",
		"Our key goals for this transformation are...",
	},
	"financial_context": {
		"Our budget range is...",
		"We're expecting ROI of...",
		"The current costs are...",
	},
	"stakeholder_mapping": {
		"The decision makers are...",
		"Our development team consists of...",
		"The users affected include...",
	},
}

// suggestions offers quick replies for the phase a turn ended in. During
// discovery they follow the first missing category.
func suggestions(p phase.Phase, missing []string) []string {
	switch p {
	case phase.Discovery:
		for _, m := range missing {
			group, ok := categoryGroups[m]
			if !ok {
				group = m
			}
			if s, ok := groupSuggestions[group]; ok {
				return append([]string(nil), s...)
			}
		}
		return []string{
			"That's exactly right",
			"Let me give you more details",
			"I have some specific numbers",
		}
	case phase.Assessment:
		return []string{
			"Yes, proceed with the analysis",
			"I need more details on this",
			"What are the technical risks?",
		}
	default:
		return []string{
			"Tell me more",
			"That makes sense",
			"What's next?",
		}
	}
}
