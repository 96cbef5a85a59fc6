package domain

import "time"

// Severity grades an anomaly for the reporting collaborator.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// AnomalyCategory groups anomalies by what went wrong.
type AnomalyCategory string

const (
	CategoryMissingFields         AnomalyCategory = "MISSING_FIELDS"
	CategoryIncorrectValidation   AnomalyCategory = "INCORRECT_VALIDATION"
	CategoryReviewEquivalents     AnomalyCategory = "REVIEW_EQUIVALENTS"
	CategoryUncertainRequiredness AnomalyCategory = "UNCERTAIN_REQUIREDNESS"
	CategoryExtractionIssue       AnomalyCategory = "EXTRACTION_ISSUE"
)

// Anomaly is a finding derived from the verdict sets.
type Anomaly struct {
	Title       string          `json:"title"`
	Severity    Severity        `json:"severity"`
	Category    AnomalyCategory `json:"category"`
	Description string          `json:"description"`
	Fields      []string        `json:"fields"`
}

// RequiredDiscrepancy is a checklist entry that matched a field the
// classifier considers optional.
type RequiredDiscrepancy struct {
	Entry    string `json:"entry"`
	FieldID  string `json:"fieldId"`
	FieldKey string `json:"fieldKey"`
}

// Statistics are the aggregate counts derived from one audit.
type Statistics struct {
	TotalChecklist      int                   `json:"totalChecklist"`
	TotalFields         int                   `json:"totalFields"`
	Present             int                   `json:"present"`
	Missing             int                   `json:"missing"`
	PotentialEquivalent int                   `json:"potentialEquivalent"`
	Extra               int                   `json:"extra"`
	CoveragePercentage  float64               `json:"coveragePercentage"`
	Required            int                   `json:"required"`
	Optional            int                   `json:"optional"`
	Uncertain           int                   `json:"uncertain"`
	ShouldBeRequired    []RequiredDiscrepancy `json:"shouldBeRequired"`
}

// AuditReport is everything the reporting collaborator needs from one run.
type AuditReport struct {
	RunID           string                `json:"runId"`
	GeneratedAt     time.Time             `json:"generatedAt"`
	ChecklistSource string                `json:"checklistSource"`
	Checklist       []ChecklistEntry      `json:"checklist"`
	Matches         []MatchVerdict        `json:"matches"`
	Extras          []string              `json:"extras"`
	Requiredness    []RequirednessVerdict `json:"requiredness"`
	Skipped         []string              `json:"skipped,omitempty"`
	Statistics      Statistics            `json:"statistics"`
	Anomalies       []Anomaly             `json:"anomalies"`
}
