package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"rebase/internal/discovery"
	"rebase/internal/domain"
	"rebase/internal/phase"
)

// Keys under which phase output is kept in the session's business metrics.
const (
	metricDiscoveryDone = "discovery_completed"
	metricFacts         = "facts"
	metricAssessment    = "assessment"
	metricBenefits      = "benefits"
	metricBusinessCase  = "business_case"
	metricApproved      = "approved"
	metricPlan          = "plan"
)

const (
	progressDiscoveryDone = 30.0
	progressAssessed      = 60.0
	progressCasePresented = 70.0
	progressApproved      = 80.0
	progressDone          = 100.0
)

var approval = regexp.MustCompile(`(?i)\b(yes|approve|approved|proceed)\b`)

func evidence(metrics map[string]any) phase.Evidence {
	approved, _ := metrics[metricApproved].(bool)
	done, _ := metrics[metricDiscoveryDone].(bool)
	return phase.Evidence{
		DiscoveryComplete: done,
		Assessment:        metrics[metricAssessment] != nil,
		BusinessCase:      metrics[metricBusinessCase] != nil,
		Approved:          approved,
		Plan:              metrics[metricPlan] != nil,
	}
}

func (e *ChatEngine) advance(st *turnState, to phase.Phase) error {
	next, err := e.phases.Transition(st.sc.SessionID, st.sc.Phase, to, evidence(st.metrics))
	if err != nil {
		return err
	}
	st.next = next
	return nil
}

func (e *ChatEngine) discoveryTurn(ctx context.Context, st *turnState) (*Response, error) {
	out := e.loop.Run(ctx, st.history, st.data)

	missing := make([]string, 0, len(out.Missing))
	for _, id := range out.Missing {
		missing = append(missing, string(id))
	}
	resp := &Response{
		ProgressPercentage:    out.ProgressPercentage,
		MissingCriticalInfo:   missing,
		ExtractionConfidence:  out.Confidence,
		CollectedData:         st.data.ToMap(),
		DiscoverySummary:      summaryPtr(st.data.DiscoverySummary()),
		DataCompleteness:      out.Completeness,
		NextQuestionReasoning: out.Reasoning,
	}

	if out.Decision.Kind != discovery.KindCompletion {
		resp.Message = out.Decision.Question
		return resp, nil
	}

	c := out.Decision.Completion
	st.metrics[metricDiscoveryDone] = true
	if err := e.advance(st, phase.Assessment); err != nil {
		return nil, err
	}
	resp.Message = discovery.CompletionNarrative(st.data, out.Completeness)
	resp.ProgressPercentage = progressDiscoveryDone
	resp.MissingCriticalInfo = append(resp.MissingCriticalInfo, c.MissingInfo...)
	resp.ActionRequired = "proceed_to_assessment"
	if c.CompletenessScore > 0 {
		resp.DataCompleteness = c.CompletenessScore
	}
	if c.Narrative != "" {
		resp.StructuredData = map[string]any{"summary": c.Narrative}
	}
	return resp, nil
}

func (e *ChatEngine) assessmentTurn(st *turnState) (*Response, error) {
	facts := domain.FactsFrom(st.data)
	a := st.dom.AssessComplexity(facts)
	st.metrics[metricFacts] = facts
	st.metrics[metricAssessment] = a
	if err := e.advance(st, phase.Justification); err != nil {
		return nil, err
	}
	return &Response{
		Message:               assessmentMessage(facts, a),
		ProgressPercentage:    progressAssessed,
		MissingCriticalInfo:   []string{},
		ExtractionConfidence:  a.SuccessProbability,
		DataCompleteness:      st.data.OverallCompleteness(),
		NextQuestionReasoning: "Technical assessment complete",
		StructuredData:        map[string]any{metricAssessment: a},
	}, nil
}

// justificationTurn presents the business case on the first turn and
// advances once a later reply approves it.
func (e *ChatEngine) justificationTurn(st *turnState, message string) (*Response, error) {
	facts := domain.FactsFrom(st.data)
	presented := st.metrics[metricBusinessCase] != nil

	a := st.dom.AssessComplexity(facts)
	b := st.dom.CalculateBenefits(facts, facts)
	bc := domain.BuildBusinessCase(facts, a, b)
	st.metrics[metricFacts] = facts
	st.metrics[metricBenefits] = b
	st.metrics[metricBusinessCase] = bc

	resp := &Response{
		MissingCriticalInfo:  []string{},
		ExtractionConfidence: bc.ConfidenceLevel,
		DataCompleteness:     st.data.OverallCompleteness(),
		StructuredData:       map[string]any{metricBusinessCase: bc},
	}

	if presented && approval.MatchString(message) {
		st.metrics[metricApproved] = true
		if err := e.advance(st, phase.Planning); err != nil {
			return nil, err
		}
		resp.Message = "Great, the business case is approved. Next I'll outline the implementation strategies that fit your team and codebase. Reply when you're ready."
		resp.ProgressPercentage = progressApproved
		resp.NextQuestionReasoning = "Business case approved"
		return resp, nil
	}

	resp.Message = businessCaseMessage(bc)
	resp.ProgressPercentage = progressCasePresented
	resp.NextQuestionReasoning = "Awaiting business case approval"
	resp.ActionRequired = "approve_business_case"
	return resp, nil
}

func (e *ChatEngine) planningTurn(st *turnState) (*Response, error) {
	facts := domain.FactsFrom(st.data)
	plan := st.dom.ImplementationStrategies(facts)
	st.metrics[metricPlan] = plan
	if err := e.advance(st, phase.Completed); err != nil {
		return nil, err
	}
	return &Response{
		Message:               planMessage(plan),
		ProgressPercentage:    progressDone,
		MissingCriticalInfo:   []string{},
		ExtractionConfidence:  1,
		DataCompleteness:      st.data.OverallCompleteness(),
		NextQuestionReasoning: "Implementation plan ready",
		StructuredData:        map[string]any{metricPlan: plan},
	}, nil
}

func (e *ChatEngine) completedTurn(st *turnState) *Response {
	return &Response{
		Message:               "Your transformation analysis is complete. The assessment, business case and implementation plan are saved with this session. Start a new conversation to explore another transformation.",
		ProgressPercentage:    progressDone,
		MissingCriticalInfo:   []string{},
		ExtractionConfidence:  1,
		DataCompleteness:      st.data.OverallCompleteness(),
		NextQuestionReasoning: "Analysis complete",
	}
}

func summaryPtr(s discovery.Summary) *discovery.Summary { return &s }

func migrationLabel(f domain.Facts) string {
	from, to := f.CurrentFramework, f.TargetFramework
	if from == "" {
		from = "current stack"
	}
	if to == "" {
		to = "target stack"
	}
	return from + " → " + to
}

func assessmentMessage(f domain.Facts, a domain.ComplexityAssessment) string {
	risks := "none identified"
	if len(a.RiskFactors) > 0 {
		risks = strings.Join(a.RiskFactors, "; ")
	}
	return fmt.Sprintf(`Here's my technical assessment of the %s migration:

• Overall complexity: %.1f/10
• Estimated timeline: %.0f weeks
• Success probability: %.0f%%
• Risk factors: %s

Next I'll put together the business case with investment, ROI and payback period.`,
		migrationLabel(f), a.OverallScore, a.TimelineEstimateWeeks, a.SuccessProbability*100, risks)
}

func businessCaseMessage(bc domain.BusinessCase) string {
	return fmt.Sprintf(`Here's the business case:

• Total investment: %s
• Annual benefits: %s
• ROI: %.0f%%
• Payback period: %.1f months
• Recommendation: %s

Would you like to approve this business case and move on to implementation planning?`,
		money(bc.TotalInvestment), money(bc.AnnualBenefits), bc.ROIPercentage, bc.PaybackPeriodMonths, bc.Recommendation)
}

func planMessage(plan []domain.ImplementationStrategy) string {
	var b strings.Builder
	b.WriteString("Here are the recommended implementation strategies:\n")
	for i, s := range plan {
		fmt.Fprintf(&b, "\n%d. %s (%.0f months, %s risk): %s", i+1, s.Name, s.TimelineMonths, strings.ToLower(s.RiskLevel), s.Description)
	}
	return b.String()
}

// money renders whole dollars with thousands separators.
func money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatFloat(v, 'f', 0, 64)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
