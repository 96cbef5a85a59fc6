package domain

// ChecklistEntry is one line of the fundamental-fields checklist after
// normalization. Entries are built once per audit and never modified.
type ChecklistEntry struct {
	Text         string   `json:"text"`
	Normalized   string   `json:"normalized"`
	CanonicalKey string   `json:"canonicalKey"`
	Synonyms     []string `json:"synonyms,omitempty"`
}

// MatchStatus is the reconciliation outcome for a checklist entry.
type MatchStatus string

const (
	MatchPresent             MatchStatus = "PRESENT"
	MatchMissing             MatchStatus = "MISSING"
	MatchPotentialEquivalent MatchStatus = "POTENTIAL_EQUIVALENT"
)

// MatchTier names the strategy that produced a match.
type MatchTier string

const (
	TierExact      MatchTier = "exact"
	TierSynonym    MatchTier = "synonym"
	TierSimilarity MatchTier = "similarity"
	TierNone       MatchTier = "none"
)

// MatchVerdict is the matcher's answer for one checklist entry.
type MatchVerdict struct {
	Entry      string      `json:"entry"`
	Status     MatchStatus `json:"status"`
	FieldID    string      `json:"fieldId,omitempty"`
	FieldKey   string      `json:"fieldKey,omitempty"`
	Similarity float64     `json:"similarity"`
	Tier       MatchTier   `json:"tier"`
}

// Matched reports whether the verdict claimed a discovered field.
func (v MatchVerdict) Matched() bool {
	return v.Status != MatchMissing
}

// MatchOutcome is the full result of one matching pass. Extras holds the
// canonical keys of discovered fields no checklist entry claimed.
type MatchOutcome struct {
	Verdicts []MatchVerdict `json:"verdicts"`
	Extras   []string       `json:"extras"`
}

// Requiredness is the tri-state mandatory verdict for a field.
type Requiredness string

const (
	RequirednessOptional  Requiredness = "optional"
	RequirednessUncertain Requiredness = "uncertain"
	RequirednessRequired  Requiredness = "required"
)

// Rank orders verdicts so that optional < uncertain < required.
func (r Requiredness) Rank() int {
	switch r {
	case RequirednessOptional:
		return 0
	case RequirednessUncertain:
		return 1
	case RequirednessRequired:
		return 2
	default:
		return -1
	}
}

// RequirednessVerdict records the classifier decision for one field along
// with the signals that counted towards it.
type RequirednessVerdict struct {
	FieldID         string       `json:"fieldId"`
	FieldKey        string       `json:"fieldKey"`
	Verdict         Requiredness `json:"verdict"`
	PositiveSignals int          `json:"positiveSignals"`
	Signals         []Signal     `json:"signals"`
}
