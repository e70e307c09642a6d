package safety

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vireolabs/vireo/internal/models"
)

// Penalty weights per rule layer
const (
	penaltyUniversalTerm   = 100
	penaltyCategoryTerm    = 50
	penaltyPattern         = 10
	penaltyClaimCritical   = 25
	penaltyClaimWarning    = 10
	penaltyMissingSource   = 5
	penaltyMissingConsult  = 5
	criticalClaimShortfall = 20
)

// Thresholds control the pass/review/approve bands. Ordering must hold:
// Reject < ReviewFloor < AutoApprove.
type Thresholds struct {
	Reject      int `yaml:"reject"`
	ReviewFloor int `yaml:"review_floor"`
	AutoApprove int `yaml:"auto_approve"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Reject: 40, ReviewFloor: 60, AutoApprove: 85}
}

func (t Thresholds) Validate() error {
	if !(t.Reject < t.ReviewFloor && t.ReviewFloor < t.AutoApprove) {
		return fmt.Errorf("invalid safety thresholds: reject(%d) < review_floor(%d) < auto_approve(%d) must hold",
			t.Reject, t.ReviewFloor, t.AutoApprove)
	}
	return nil
}

// Content is the material evaluated by one safety check
type Content struct {
	Title         string
	Script        string
	NarrationText string
	Claims        []models.Claim
}

// Engine evaluates generated content against the layered rule set and
// produces an immutable SafetyReport
type Engine struct {
	thresholds Thresholds
	logger     *zap.Logger
}

func NewEngine(thresholds Thresholds, logger *zap.Logger) (*Engine, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Engine{thresholds: thresholds, logger: logger}, nil
}

// Evaluate runs the four penalty layers in order against a 100-point budget.
// Empty content never matches a forbidden term; schema validation upstream is
// responsible for rejecting empty jobs.
func (e *Engine) Evaluate(content Content, category string) *models.SafetyReport {
	cat := ParseCategory(category)
	pol, recognized := policyFor(cat)
	if !recognized {
		e.logger.Warn("Unknown content category, applying universal rules only",
			zap.String("category", category))
	}

	report := &models.SafetyReport{Issues: []models.SafetyIssue{}}
	score := 100
	haystack := strings.ToLower(content.Title + "\n" + content.Script + "\n" + content.NarrationText)

	// Layer 1: forbidden terms
	for _, term := range universalForbiddenTerms {
		if strings.Contains(haystack, term) {
			score -= penaltyUniversalTerm
			report.Issues = append(report.Issues, models.SafetyIssue{
				Kind:        "forbidden_term",
				Severity:    models.SeverityCritical,
				Description: fmt.Sprintf("content contains universally forbidden term %q", term),
				Offending:   term,
				Suggestion:  "remove the offending passage entirely",
			})
		}
	}
	if recognized {
		for _, term := range pol.forbiddenTerms {
			if strings.Contains(haystack, term) {
				score -= penaltyCategoryTerm
				report.Issues = append(report.Issues, models.SafetyIssue{
					Kind:        "category_forbidden_term",
					Severity:    models.SeverityCritical,
					Description: fmt.Sprintf("content contains term %q forbidden for %s content", term, cat),
					Offending:   term,
					Suggestion:  "rephrase without the absolute claim",
				})
			}
		}

		// Layer 2: sensitive patterns
		combined := content.Title + "\n" + content.Script + "\n" + content.NarrationText
		for _, pattern := range pol.sensitivePatterns {
			if match := pattern.FindString(combined); match != "" {
				score -= penaltyPattern
				report.Issues = append(report.Issues, models.SafetyIssue{
					Kind:        "sensitive_pattern",
					Severity:    models.SeverityWarning,
					Description: fmt.Sprintf("unqualified claim matching %q", pattern.String()),
					Offending:   match,
					Suggestion:  "qualify the claim or cite a source",
				})
			}
		}

		// Layer 3: claim confidence
		for _, claim := range content.Claims {
			if claim.Confidence < pol.minClaimConfidence {
				shortfall := pol.minClaimConfidence - claim.Confidence
				severity := models.SeverityWarning
				penalty := penaltyClaimWarning
				if shortfall >= criticalClaimShortfall {
					severity = models.SeverityCritical
					penalty = penaltyClaimCritical
				}
				score -= penalty
				report.Issues = append(report.Issues, models.SafetyIssue{
					Kind:     "low_confidence_claim",
					Severity: severity,
					Description: fmt.Sprintf("claim confidence %d below the %d minimum for %s content",
						claim.Confidence, pol.minClaimConfidence, cat),
					Offending:  claim.Text,
					Suggestion: "verify the claim or remove it from the script",
				})
			}
			if pol.sensitive && claim.Source == "" {
				score -= penaltyMissingSource
				report.Issues = append(report.Issues, models.SafetyIssue{
					Kind:        "unsourced_claim",
					Severity:    models.SeverityWarning,
					Description: fmt.Sprintf("claim in %s content has no cited source", cat),
					Offending:   claim.Text,
					Suggestion:  "cite a reputable source",
				})
			}
		}

		// Layer 4: category policy
		if pol.sensitive {
			report.Issues = append(report.Issues, models.SafetyIssue{
				Kind:        "category_advisory",
				Severity:    models.SeverityInfo,
				Description: pol.advisory,
			})
			if strings.TrimSpace(content.Script) != "" && !containsAny(strings.ToLower(content.Script), pol.consultPhrases) {
				score -= penaltyMissingConsult
				report.Issues = append(report.Issues, models.SafetyIssue{
					Kind:        "missing_professional_advice",
					Severity:    models.SeverityWarning,
					Description: fmt.Sprintf("%s script does not direct viewers to consult a professional", cat),
					Suggestion:  fmt.Sprintf("add a phrase such as %q", pol.consultPhrases[0]),
				})
			}
		}
	}

	// Clamp and derive verdict flags
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	report.Score = score
	report.Passed = !report.HasCritical() && score >= e.thresholds.Reject
	report.AutoApproved = score >= e.thresholds.AutoApprove
	report.ReviewRequired = score >= e.thresholds.Reject && score < e.thresholds.AutoApprove
	if recognized && pol.sensitive {
		report.DisclaimerRequired = true
		report.DisclaimerText = pol.disclaimer
	}

	return report
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
