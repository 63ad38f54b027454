package discovery

import (
	"fmt"
	"strings"
)

const (
	decisionSystemPrompt = "You are the Rebase Discovery Agent. Follow the instructions exactly. " +
		"Respond with either a plain next question or a JSON completion object."
	extractionSystemPrompt = "You are a data extraction expert. Extract business information from " +
		"conversations and return structured JSON only."
	initialSystemPrompt = "You are an expert business transformation consultant who asks insightful " +
		"questions to understand the business context and ROI drivers."
)

// InitialFallback is used when the opening reply cannot be generated.
const InitialFallback = "I'd love to help you explore this transformation! " +
	"Let me understand your current situation better. " +
	"What specific challenges are you facing that made you consider this change?"

func buildInitialPrompt(message string) string {
	return fmt.Sprintf(`A user has just opened a conversation about a system transformation with this message:

"%s"

Reply warmly and professionally in 2-3 sentences:
1. Acknowledge the specific situation they describe
2. Show you understand the transformation goal
3. Ask ONE strategic follow-up question about business impact, stakeholders or current pain points

Be specific to their message. Do not use a generic reply.`, message)
}

func joinCategories(ids []CategoryID) string {
	if len(ids) == 0 {
		return "None"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

// buildDecisionPrompt assembles the per-turn reasoning request.
func buildDecisionPrompt(history string, d *CollectedBusinessData) string {
	completeness := d.OverallCompleteness()
	return fmt.Sprintf(`You are running discovery for a system modernization ROI analysis.

CONVERSATION HISTORY:
%s

CURRENT DISCOVERY STATE:
Completeness: %.1f%%
Categories with data: %d/5
Missing critical categories: %s

DATA COLLECTED SO FAR:
%s

DISCOVERY IS COMPLETE WHEN YOU HAVE:
1. At least 2 clear business objectives
2. Current system problems or pain points
3. Key stakeholders, at least the decision makers
4. Some indication of budget or cost constraints
5. A basic picture of the current technology

DECISION:
- Completeness at or above 60%% and the criteria above met: COMPLETE
- Critical ROI information still missing: CONTINUE with one specific question

If complete, respond with only this JSON:
{
  "status": "complete",
  "summary": "Discovery complete - sufficient data for ROI analysis",
  "completeness_score": %.2f,
  "confidence": 0.8
}

If continuing, respond with ONLY the next question text, no JSON. Target the biggest gap, for example:
- "What specific business goals are driving this modernization?"
- "Who are the key decision makers for this project?"
- "What's your rough budget range for this modernization?"`,
		history,
		completeness*100,
		d.StartedCategories(),
		joinCategories(d.MissingCategories()),
		d.DetailedDigest(),
		completeness,
	)
}

func buildExtractionPrompt(recent string, d *CollectedBusinessData) string {
	return fmt.Sprintf(`Analyze the conversation and extract structured business information.

RECENT CONVERSATION:
%s

ALREADY COLLECTED:
%s

Return a JSON object using only these keys. Omit any category with nothing new:
{
  "business_goals": {
    "primary_objectives": ["business goals or objectives"],
    "success_criteria": ["how success will be measured"],
    "kpis": ["key performance indicators"]
  },
  "current_problems": {
    "technical_issues": ["technical problems, legacy issues, technical debt"],
    "performance_issues": ["slowness, bottlenecks"],
    "operational_issues": ["maintenance or support problems"],
    "security_risks": ["vulnerabilities, compliance gaps"],
    "cost_drains": ["areas causing financial loss"]
  },
  "key_metrics": {
    "operational_costs": {"maintenance": "", "infrastructure": "", "total_annual": ""},
    "user_metrics": {"total_users": "", "satisfaction": ""},
    "performance_metrics": {"response_time": "", "uptime": ""},
    "business_metrics": {"revenue_impact": ""}
  },
  "stakeholders": {
    "decision_makers": ["name and role, e.g. 'Jane Doe (CTO)'"],
    "technical_team": ["engineering team members"],
    "business_users": ["end users and business stakeholders"]
  },
  "implementation_context": {
    "current_technology": ["current stack, e.g. 'React 16'"],
    "project_type": "type of transformation",
    "technical_constraints": ["current system limitations"],
    "team_capacity": {"team_size": ""},
    "project_budget": {"max_investment": "", "funding_source": ""},
    "timeline_requirements": {"preferred_timeline": "", "hard_deadline": ""}
  }
}

RULES:
1. Extract only what is explicitly stated
2. Use the user's own terminology
3. Only include NEW information not already collected

Return ONLY the JSON object.`, recent, d.CollectedDigest())
}

// CompletionNarrative is the reply sent when discovery ends.
func CompletionNarrative(d *CollectedBusinessData, completeness float64) string {
	goals := d.Category(BusinessGoals).ListLen(FutureSide, "primary_objectives")
	problems := d.Category(CurrentProblems).ListLen(CurrentSide, "technical_issues") +
		d.Category(CurrentProblems).ListLen(CurrentSide, "security_risks")
	people := d.Category(Stakeholders)
	stakeholders := people.ListLen(CurrentSide, "decision_makers") +
		people.ListLen(CurrentSide, "technical_team") +
		people.ListLen(CurrentSide, "business_users")

	return fmt.Sprintf(`Perfect! I've gathered enough information to move forward. Based on our conversation, I can see we have %.0f%% of the key information needed.

Here's what I've captured:
• Business Goals: %d objectives identified
• Current Problems: %d issues documented
• Stakeholders: %d stakeholders mapped
• Discovery Status: %d/5 categories started

Let me now analyze your current system to provide accurate ROI calculations and recommendations. This will take a moment...`,
		completeness*100, goals, problems, stakeholders, d.StartedCategories())
}
