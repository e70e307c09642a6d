package safety

import (
	"regexp"
	"strings"
)

// Category is a closed set of recognized content categories. Unrecognized
// names map to CategoryUnknown, which carries no category policy at all so
// only the universal forbidden layer applies.
type Category string

const (
	CategoryGeneral Category = "general"
	CategoryHealth  Category = "health"
	CategoryFinance Category = "finance"
	CategoryUnknown Category = "unknown"
)

// ParseCategory maps a raw category name onto the closed set
func ParseCategory(name string) Category {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "general", "":
		return CategoryGeneral
	case "health", "medical", "wellness":
		return CategoryHealth
	case "finance", "financial", "investing", "money":
		return CategoryFinance
	default:
		return CategoryUnknown
	}
}

// policy bundles the per-category rule data evaluated by the engine
type policy struct {
	sensitive          bool
	forbiddenTerms     []string
	sensitivePatterns  []*regexp.Regexp
	minClaimConfidence int
	consultPhrases     []string
	advisory           string
	disclaimer         string
}

// Claim confidence floors. Sensitive (YMYL) categories hold claims to the
// higher bar.
const (
	minConfidenceGeneral   = 60
	minConfidenceSensitive = 80
)

var generalPolicy = policy{
	sensitive:          false,
	minClaimConfidence: minConfidenceGeneral,
}

var healthPolicy = policy{
	sensitive: true,
	forbiddenTerms: []string{
		"miracle cure",
		"cures cancer",
		"stop taking your medication",
		"replaces chemotherapy",
		"doctors don't want you to know",
	},
	sensitivePatterns: compilePatterns(
		`(?i)cured?\s+without\s+(any\s+)?medication`,
		`(?i)no\s+side\s+effects?\s+at\s+all`,
		`(?i)works\s+for\s+every(one|body)`,
		`(?i)100%\s+effective`,
	),
	minClaimConfidence: minConfidenceSensitive,
	consultPhrases: []string{
		"consult a doctor",
		"consult your doctor",
		"talk to a healthcare professional",
		"seek medical advice",
		"speak with a medical professional",
	},
	advisory:   "Health content is held to stricter accuracy and sourcing standards.",
	disclaimer: "This video is for informational purposes only and is not medical advice. Always consult a qualified healthcare professional.",
}

var financePolicy = policy{
	sensitive: true,
	forbiddenTerms: []string{
		"guaranteed profit",
		"insider tip",
		"cannot lose",
		"get rich quick",
		"pump and dump",
	},
	sensitivePatterns: compilePatterns(
		`(?i)guaranteed\s+returns?`,
		`(?i)risk[-\s]?free\s+invest(ment|ing)?`,
		`(?i)double\s+your\s+money`,
		`(?i)never\s+lose[s]?\s+(money|value)`,
	),
	minClaimConfidence: minConfidenceSensitive,
	consultPhrases: []string{
		"consult a financial advisor",
		"consult a financial adviser",
		"not financial advice",
		"do your own research",
	},
	advisory:   "Finance content is held to stricter accuracy and sourcing standards.",
	disclaimer: "This video is for informational purposes only and is not financial advice. Consult a licensed financial advisor before making investment decisions.",
}

// universalForbiddenTerms fail any content regardless of category
var universalForbiddenTerms = []string{
	"how to make a bomb",
	"how to make explosives",
	"suicide method",
	"how to kill",
	"child exploitation",
	"buy illegal drugs",
	"untraceable weapon",
}

func policyFor(c Category) (policy, bool) {
	switch c {
	case CategoryGeneral:
		return generalPolicy, true
	case CategoryHealth:
		return healthPolicy, true
	case CategoryFinance:
		return financePolicy, true
	default:
		return policy{}, false
	}
}

func compilePatterns(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return patterns
}
