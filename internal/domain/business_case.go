package domain

import "math"

// Recommendation values for a business case.
const (
	RecommendGo          = "GO"
	RecommendConditional = "CONDITIONAL"
	RecommendNoGo        = "NO-GO"
)

// LineItem is one entry of a cost or benefit breakdown.
type LineItem struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// BusinessCase is the financial justification for a transformation.
type BusinessCase struct {
	TotalInvestment     float64    `json:"total_investment"`
	AnnualBenefits      float64    `json:"annual_benefits"`
	ROIPercentage       float64    `json:"roi_percentage"`
	PaybackPeriodMonths float64    `json:"payback_period_months"`
	ConfidenceLevel     float64    `json:"confidence_level"`
	Recommendation      string     `json:"recommendation"`
	CostBreakdown       []LineItem `json:"cost_breakdown"`
	BenefitsBreakdown   []LineItem `json:"benefits_breakdown"`
	Risks               []string   `json:"risks"`
	Assumptions         []string   `json:"assumptions"`
	NextSteps           []string   `json:"next_steps"`
}

// BuildBusinessCase prices the assessed effort and weighs it against the
// annual benefits. Development is the team's cost over the estimated
// timeline; training and infrastructure add a sixth and a twelfth of it.
func BuildBusinessCase(f Facts, a ComplexityAssessment, b BenefitModel) BusinessCase {
	f = f.WithDefaults()
	weeklyCost := f.AvgDeveloperSalary / 52
	development := a.TimelineEstimateWeeks * float64(f.TeamSize) * weeklyCost
	training := development / 6
	infrastructure := development / 12
	investment := development + training + infrastructure

	bc := BusinessCase{
		TotalInvestment: round2(investment),
		AnnualBenefits:  round2(b.TotalAnnualBenefits),
		ConfidenceLevel: math.Min(b.ConfidenceLevel, a.SuccessProbability),
		CostBreakdown: []LineItem{
			{Category: "Development", Amount: round2(development)},
			{Category: "Training", Amount: round2(training)},
			{Category: "Infrastructure", Amount: round2(infrastructure)},
		},
		BenefitsBreakdown: []LineItem{
			{Category: "Developer Productivity", Amount: round2(b.ProductivityImprovements)},
			{Category: "Maintenance Savings", Amount: round2(b.AnnualCostSavings - b.ProductivityImprovements)},
			{Category: "Revenue Impact", Amount: round2(b.AnnualRevenueGains)},
			{Category: "Risk Mitigation", Amount: round2(b.RiskMitigationValue)},
		},
		Risks: append([]string(nil), a.RiskFactors...),
		Assumptions: []string{
			"Current team productivity baseline maintained",
			"No major technical blockers encountered",
			"Stakeholder buy-in achieved",
		},
		NextSteps: []string{
			"Stakeholder approval",
			"Detailed implementation planning",
			"Resource allocation",
		},
	}

	if investment > 0 {
		bc.ROIPercentage = round2((b.TotalAnnualBenefits - investment) / investment * 100)
	}
	if b.TotalAnnualBenefits > 0 {
		bc.PaybackPeriodMonths = round2(investment / (b.TotalAnnualBenefits / 12))
	}
	bc.Recommendation = recommend(bc, a)
	return bc
}

// recommend is GO for a year-one payback with a likely success, NO-GO when
// payback takes longer than three years, CONDITIONAL in between.
func recommend(bc BusinessCase, a ComplexityAssessment) string {
	switch {
	case bc.AnnualBenefits <= 0 || bc.PaybackPeriodMonths > 36:
		return RecommendNoGo
	case bc.PaybackPeriodMonths <= 12 && a.SuccessProbability >= 0.7:
		return RecommendGo
	default:
		return RecommendConditional
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
