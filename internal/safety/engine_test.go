package safety

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/vireolabs/vireo/internal/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultThresholds(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func TestEvaluateCleanGeneralContent(t *testing.T) {
	engine := newTestEngine(t)

	report := engine.Evaluate(Content{
		Title:  "Five facts about honey bees",
		Script: "Honey bees communicate through dance. A hive can hold sixty thousand bees.",
		Claims: []models.Claim{{Text: "A hive can hold 60,000 bees", Confidence: 90}},
	}, "general")

	if !report.Passed {
		t.Errorf("expected passed, got issues: %+v", report.Issues)
	}
	if report.Score != 100 {
		t.Errorf("score = %d, want 100", report.Score)
	}
	if !report.AutoApproved {
		t.Error("expected auto approval at score 100")
	}
	if report.ReviewRequired {
		t.Error("auto-approved content should not require review")
	}
	if report.DisclaimerRequired {
		t.Error("general content should not require a disclaimer")
	}
}

func TestEvaluateUniversalForbiddenTermFails(t *testing.T) {
	engine := newTestEngine(t)

	for _, field := range []string{"title", "script", "narration"} {
		content := Content{}
		text := "today we explain HOW TO MAKE A BOMB at home"
		switch field {
		case "title":
			content.Title = text
		case "script":
			content.Script = text
		case "narration":
			content.NarrationText = text
		}

		report := engine.Evaluate(content, "general")
		if report.Passed {
			t.Errorf("forbidden term in %s: expected failure", field)
		}
		if report.Score >= DefaultThresholds().Reject {
			t.Errorf("forbidden term in %s: score %d should be below reject threshold", field, report.Score)
		}
		if !report.HasCritical() {
			t.Errorf("forbidden term in %s: expected a critical issue", field)
		}
	}
}

func TestEvaluateCategoryForbiddenTerm(t *testing.T) {
	engine := newTestEngine(t)

	report := engine.Evaluate(Content{
		Script: "This miracle cure will change your life.",
	}, "health")

	if report.Passed {
		t.Error("category forbidden term must fail the check")
	}
	if !report.HasCritical() {
		t.Error("expected critical issue for category forbidden term")
	}
}

func TestClaimConfidenceBoundsFlipByCategory(t *testing.T) {
	engine := newTestEngine(t)

	// 70 sits strictly between the general (60) and sensitive (80) floors
	claims := []models.Claim{{Text: "study shows X", Confidence: 70, Source: "journal"}}
	script := "Some findings. Consult your doctor before acting on them. Do your own research."

	general := engine.Evaluate(Content{Script: script, Claims: claims}, "general")
	if len(general.Issues) != 0 {
		t.Errorf("general: claim at 70 should pass the 60 floor, issues: %+v", general.Issues)
	}

	health := engine.Evaluate(Content{Script: script, Claims: claims}, "health")
	var found bool
	for _, issue := range health.Issues {
		if issue.Kind == "low_confidence_claim" {
			found = true
			if issue.Severity != models.SeverityWarning {
				t.Errorf("shortfall of 10 should be a warning, got %s", issue.Severity)
			}
		}
	}
	if !found {
		t.Error("health: claim at 70 should trip the 80 floor")
	}
}

func TestClaimFarBelowMinimumIsCritical(t *testing.T) {
	engine := newTestEngine(t)

	report := engine.Evaluate(Content{
		Script: "Claims ahead. Consult your doctor first.",
		Claims: []models.Claim{{Text: "dubious", Confidence: 40, Source: "forum post"}},
	}, "health")

	var severity models.IssueSeverity
	for _, issue := range report.Issues {
		if issue.Kind == "low_confidence_claim" {
			severity = issue.Severity
		}
	}
	if severity != models.SeverityCritical {
		t.Errorf("confidence 40 against floor 80 should be critical, got %q", severity)
	}
	if report.Passed {
		t.Error("critical claim issue must fail the check")
	}
}

func TestUnsourcedSensitiveClaimWarns(t *testing.T) {
	engine := newTestEngine(t)

	report := engine.Evaluate(Content{
		Script: "Money talk. This is not financial advice.",
		Claims: []models.Claim{{Text: "index funds outperform", Confidence: 95}},
	}, "finance")

	var found bool
	for _, issue := range report.Issues {
		if issue.Kind == "unsourced_claim" && issue.Severity == models.SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unsourced claim warning, issues: %+v", report.Issues)
	}
	if !report.Passed {
		t.Error("a single unsourced-claim warning should not fail the check")
	}
}

func TestScoreClampedAtZero(t *testing.T) {
	engine := newTestEngine(t)

	script := strings.Join([]string{
		"how to make a bomb",
		"how to make explosives",
		"miracle cure",
		"cures cancer",
	}, ". ")

	report := engine.Evaluate(Content{Script: script}, "health")
	if report.Score != 0 {
		t.Errorf("score = %d, want clamp at 0", report.Score)
	}
	if report.Passed {
		t.Error("expected failure")
	}
}

func TestMissingConsultPhraseIsMinorWarning(t *testing.T) {
	engine := newTestEngine(t)

	report := engine.Evaluate(Content{
		Title:  "Morning stretches",
		Script: "Gentle stretching can ease stiffness for many people.",
	}, "health")

	if !report.Passed {
		t.Errorf("single minor warning should stay above reject, issues: %+v", report.Issues)
	}
	if report.Score != 95 {
		t.Errorf("score = %d, want 95", report.Score)
	}
	var warned bool
	for _, issue := range report.Issues {
		if issue.Kind == "missing_professional_advice" && issue.Severity == models.SeverityWarning {
			warned = true
		}
	}
	if !warned {
		t.Error("expected missing_professional_advice warning")
	}
	if !report.DisclaimerRequired || report.DisclaimerText == "" {
		t.Error("health content must carry a disclaimer")
	}
}

func TestSensitiveCategoryAlwaysAdvises(t *testing.T) {
	engine := newTestEngine(t)

	report := engine.Evaluate(Content{
		Script: "Budgeting basics. This is not financial advice.",
	}, "finance")

	var advised bool
	for _, issue := range report.Issues {
		if issue.Kind == "category_advisory" && issue.Severity == models.SeverityInfo {
			advised = true
		}
	}
	if !advised {
		t.Error("sensitive categories must always emit the advisory issue")
	}
	if report.Score != 100 {
		t.Errorf("advisory must not cost points, score = %d", report.Score)
	}
}

func TestEmptyContentPasses(t *testing.T) {
	engine := newTestEngine(t)

	for _, category := range []string{"general", "health", "finance", "made-up"} {
		report := engine.Evaluate(Content{}, category)
		if !report.Passed {
			t.Errorf("category %s: empty content should pass, issues: %+v", category, report.Issues)
		}
		if report.Score != 100 {
			t.Errorf("category %s: score = %d, want 100", category, report.Score)
		}
	}
}

func TestUnknownCategorySkipsCategoryLayers(t *testing.T) {
	engine := newTestEngine(t)

	// Would trip the health forbidden list and the consult check if the
	// category were recognized
	report := engine.Evaluate(Content{
		Script: "This miracle cure works for everyone.",
		Claims: []models.Claim{{Text: "x", Confidence: 10}},
	}, "astrology")

	if !report.Passed {
		t.Errorf("unknown category should only apply universal rules, issues: %+v", report.Issues)
	}
	if report.Score != 100 {
		t.Errorf("score = %d, want 100", report.Score)
	}
	if report.DisclaimerRequired {
		t.Error("unknown category should not require a disclaimer")
	}
}

func TestThresholdOrderingValidated(t *testing.T) {
	_, err := NewEngine(Thresholds{Reject: 85, ReviewFloor: 60, AutoApprove: 40}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for inverted thresholds")
	}
}

func TestReviewBand(t *testing.T) {
	engine := newTestEngine(t)

	// Three pattern warnings plus the consult warning land inside the
	// review band without any critical issue
	report := engine.Evaluate(Content{
		Script: "Guaranteed returns with risk-free investing, double your money.",
	}, "finance")

	if report.HasCritical() {
		t.Fatalf("expected warnings only, issues: %+v", report.Issues)
	}
	if report.Score >= DefaultThresholds().AutoApprove {
		t.Fatalf("score = %d, expected below auto-approve", report.Score)
	}
	if !report.ReviewRequired {
		t.Errorf("score %d should require review", report.Score)
	}
	if !report.Passed {
		t.Errorf("score %d should still pass", report.Score)
	}
}
