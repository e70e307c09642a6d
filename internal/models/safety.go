package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityWarning  IssueSeverity = "warning"
	SeverityInfo     IssueSeverity = "info"
)

// SafetyIssue is one finding from the safety scoring engine
type SafetyIssue struct {
	Kind        string        `json:"kind"`
	Severity    IssueSeverity `json:"severity"`
	Description string        `json:"description"`
	Offending   string        `json:"offending,omitempty"`
	Suggestion  string        `json:"suggestion,omitempty"`
}

// SafetyReport is the point-in-time verdict for one generation attempt.
// It is immutable after creation; a retried generation gets a new report.
type SafetyReport struct {
	Passed             bool          `json:"passed"`
	Score              int           `json:"score"` // 0-100 penalty accumulator, not a probability
	Issues             []SafetyIssue `json:"issues"`
	DisclaimerRequired bool          `json:"disclaimer_required"`
	DisclaimerText     string        `json:"disclaimer_text,omitempty"`
	ReviewRequired     bool          `json:"review_required"`
	AutoApproved       bool          `json:"auto_approved"`
}

// HasCritical reports whether any issue carries critical severity
func (r *SafetyReport) HasCritical() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func (r *SafetyReport) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("cannot scan %T into SafetyReport", value)
	}
}

func (r SafetyReport) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
