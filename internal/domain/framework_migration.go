package domain

import (
	"math"
	"regexp"
	"strings"
)

// FrameworkMigration covers framework-to-framework moves such as React to
// Vue or Django to FastAPI.
type FrameworkMigration struct{}

func NewFrameworkMigration() *FrameworkMigration { return &FrameworkMigration{} }

func (FrameworkMigration) Name() string { return "framework_migration" }

func (FrameworkMigration) Description() string {
	return "Framework-to-framework transformations (React→Vue, Django→FastAPI, etc.)"
}

func (FrameworkMigration) Keywords() []string {
	return []string{
		"migrate", "migration", "framework", "react", "vue", "angular",
		"svelte", "django", "fastapi", "express", "nestjs", "spring",
		"switch", "convert",
	}
}

var migrationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`migrate.*from.*to`),
	regexp.MustCompile(`switch.*from.*to`),
	regexp.MustCompile(`convert.*to`),
	regexp.MustCompile(`react.*vue|vue.*react`),
	regexp.MustCompile(`angular.*react|react.*angular`),
	regexp.MustCompile(`django.*fastapi|fastapi.*django`),
}

// PatternScore adds 0.8 for every migration phrase pattern found in text.
func (FrameworkMigration) PatternScore(text string) float64 {
	score := 0.0
	for _, p := range migrationPatterns {
		if p.MatchString(text) {
			score += 0.8
		}
	}
	return score
}

func (FrameworkMigration) QuestionContext(f Facts) map[string]any {
	ctx := map[string]any{
		"domain_type":          "framework_migration",
		"transformation_focus": "developer_productivity_and_maintainability",
		"business_impact_areas": []string{
			"development_velocity",
			"code_maintainability",
			"team_satisfaction",
			"recruitment_and_retention",
			"technical_debt_reduction",
		},
		"quantification_opportunities": []string{
			"hours_saved_per_developer_per_week",
			"bug_reduction_percentage",
			"feature_delivery_speed_improvement",
			"onboarding_time_reduction",
			"maintenance_cost_savings",
		},
		"common_migration_drivers": []string{
			"performance_bottlenecks",
			"developer_experience_issues",
			"ecosystem_limitations",
			"maintenance_burden",
			"talent_market_alignment",
		},
	}
	if f.CurrentFramework != "" {
		ctx["current_framework"] = f.CurrentFramework
	}
	if f.TargetFramework != "" {
		ctx["target_framework"] = f.TargetFramework
	}
	return ctx
}

// complexityMatrix scores known migration paths; unknown pairs score 5.0.
var complexityMatrix = map[[2]string]float64{
	{"react", "vue"}:      4.0,
	{"react", "svelte"}:   5.0,
	{"react", "angular"}:  6.0,
	{"vue", "react"}:      4.5,
	{"vue", "svelte"}:     4.0,
	{"django", "fastapi"}: 5.5,
	{"express", "nestjs"}: 4.0,
	{"spring", "django"}:  7.0,
}

func frameworkComplexity(from, to string) float64 {
	if score, ok := complexityMatrix[[2]string{strings.ToLower(from), strings.ToLower(to)}]; ok {
		return score
	}
	return 5.0
}

func (FrameworkMigration) AssessComplexity(f Facts) ComplexityAssessment {
	f = f.WithDefaults()
	components := float64(f.ComponentCount)
	team := float64(f.TeamSize)

	componentComplexity := math.Min(8.0, components/25)
	teamComplexity := math.Max(2.0, 6.0-team*0.5)
	pathComplexity := frameworkComplexity(f.CurrentFramework, f.TargetFramework)
	overall := (componentComplexity + teamComplexity + pathComplexity) / 3

	risks := make([]string, 0, 3)
	if f.ComponentCount > 100 {
		risks = append(risks, "Large codebase increases migration risk")
	}
	if f.TeamSize < 2 {
		risks = append(risks, "Small team may struggle with migration workload")
	}
	if strings.Contains(strings.ToLower(f.CurrentState), "legacy") {
		risks = append(risks, "Legacy patterns may complicate migration")
	}

	return ComplexityAssessment{
		OverallScore:          overall,
		TechnicalComplexity:   componentComplexity,
		BusinessDisruption:    3.0,
		ResourceRequirements:  teamComplexity,
		TimelineEstimateWeeks: math.Max(4, components/10),
		RiskFactors:           risks,
		SuccessProbability:    math.Min(1.0, math.Max(0.6, 1.0-(overall-5.0)*0.1)),
	}
}

func (FrameworkMigration) CalculateBenefits(current, _ Facts) BenefitModel {
	current = current.WithDefaults()
	payroll := float64(current.TeamSize) * current.AvgDeveloperSalary

	productivity := payroll * 0.25
	maintenance := payroll * 0.2 * 0.30
	revenue := current.AnnualRevenue * 0.05
	const riskMitigation = 50000.0

	return BenefitModel{
		AnnualCostSavings:        productivity + maintenance,
		AnnualRevenueGains:       revenue,
		ProductivityImprovements: productivity,
		RiskMitigationValue:      riskMitigation,
		TotalAnnualBenefits:      productivity + maintenance + revenue + riskMitigation,
		ConfidenceLevel:          0.75,
	}
}

func (FrameworkMigration) ImplementationStrategies(f Facts) []ImplementationStrategy {
	f = f.WithDefaults()
	components := float64(f.ComponentCount)
	team := float64(f.TeamSize)

	strategies := []ImplementationStrategy{{
		Name:           "Incremental Component Migration",
		Description:    "Migrate components one by one, maintaining parallel systems temporarily",
		TimelineMonths: math.Max(3, components/20),
		ResourceRequirements: map[string]float64{
			"developers":     team,
			"qa_engineers":   1,
			"devops_support": 0.5,
		},
		RiskLevel: "LOW",
		SuccessFactors: []string{
			"Strong component architecture",
			"Good test coverage",
			"Team commitment to dual maintenance",
		},
		Phases: []StrategyPhase{
			{"Setup", 2, "Setup build systems and tooling"},
			{"Core Components", 4, "Migrate shared/core components"},
			{"Feature Components", 8, "Migrate feature-specific components"},
			{"Integration", 2, "Final integration and cleanup"},
		},
	}}

	if f.ComponentCount <= 50 {
		strategies = append(strategies, ImplementationStrategy{
			Name:           "Complete Rewrite",
			Description:    "Full migration in dedicated sprint cycles",
			TimelineMonths: 2,
			ResourceRequirements: map[string]float64{
				"developers":      team,
				"qa_engineers":    1,
				"project_manager": 0.5,
			},
			RiskLevel: "MEDIUM",
			SuccessFactors: []string{
				"Small, manageable codebase",
				"Strong team expertise in target framework",
				"Comprehensive test suite",
			},
			Phases: []StrategyPhase{
				{"Planning", 1, "Detailed migration planning"},
				{"Core Migration", 4, "Migrate all components"},
				{"Testing & Polish", 2, "Comprehensive testing"},
				{"Deployment", 1, "Production deployment"},
			},
		})
	}

	if f.ComponentCount > 100 {
		strategies = append(strategies, ImplementationStrategy{
			Name:           "Strangler Fig Migration",
			Description:    "Gradually replace old framework by building new features in target framework",
			TimelineMonths: math.Max(6, components/15),
			ResourceRequirements: map[string]float64{
				"developers":   team + 1,
				"architect":    0.5,
				"qa_engineers": 1,
			},
			RiskLevel: "LOW",
			SuccessFactors: []string{
				"Clear feature boundaries",
				"Good API design",
				"Long-term organizational commitment",
			},
			Phases: []StrategyPhase{
				{"Architecture Design", 3, "Design integration architecture"},
				{"New Features Only", 12, "Build new features in target framework"},
				{"Legacy Migration", 20, "Gradually migrate existing features"},
				{"Cleanup", 4, "Remove old framework dependencies"},
			},
		})
	}
	return strategies
}
