package domain

// ComplexityAssessment is the technical assessment for a transformation.
// Scores are on a 1-10 scale.
type ComplexityAssessment struct {
	OverallScore          float64  `json:"overall_score"`
	TechnicalComplexity   float64  `json:"technical_complexity"`
	BusinessDisruption    float64  `json:"business_disruption"`
	ResourceRequirements  float64  `json:"resource_requirements"`
	TimelineEstimateWeeks float64  `json:"timeline_estimate_weeks"`
	RiskFactors           []string `json:"risk_factors"`
	SuccessProbability    float64  `json:"success_probability"`
}

// BenefitModel is the annual business value of a transformation.
type BenefitModel struct {
	AnnualCostSavings        float64 `json:"annual_cost_savings"`
	AnnualRevenueGains       float64 `json:"annual_revenue_gains"`
	ProductivityImprovements float64 `json:"productivity_improvements"`
	RiskMitigationValue      float64 `json:"risk_mitigation_value"`
	TotalAnnualBenefits      float64 `json:"total_annual_benefits"`
	ConfidenceLevel          float64 `json:"confidence_level"`
}

// StrategyPhase is one step of an implementation strategy.
type StrategyPhase struct {
	Phase         string `json:"phase"`
	DurationWeeks int    `json:"duration_weeks"`
	Description   string `json:"description"`
}

// ImplementationStrategy is one way to carry out the transformation.
type ImplementationStrategy struct {
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	TimelineMonths       float64            `json:"timeline_months"`
	ResourceRequirements map[string]float64 `json:"resource_requirements"`
	RiskLevel            string             `json:"risk_level"`
	SuccessFactors       []string           `json:"success_factors"`
	Phases               []StrategyPhase    `json:"phases"`
}

// Domain is a transformation type plug-in. It consumes discovered facts
// and produces phase output for assessment, justification and planning.
type Domain interface {
	Name() string
	Description() string
	Keywords() []string
	QuestionContext(f Facts) map[string]any
	AssessComplexity(f Facts) ComplexityAssessment
	CalculateBenefits(current, target Facts) BenefitModel
	ImplementationStrategies(f Facts) []ImplementationStrategy
}

// PatternScorer is implemented by domains that add phrase-pattern
// scoring on top of keyword matching during detection.
type PatternScorer interface {
	PatternScore(text string) float64
}
