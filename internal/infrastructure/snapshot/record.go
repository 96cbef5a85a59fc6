package snapshot

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Snapshot is the document produced by the extraction and probe
// collaborators for one form: ordered field records plus per-field signals.
type Snapshot struct {
	Fields  []FieldRecord               `json:"fields" yaml:"fields"`
	Signals map[string]map[string]*bool `json:"signals,omitempty" yaml:"signals,omitempty"`
}

// FieldRecord is one extracted control as the extractor serializes it.
type FieldRecord struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type" yaml:"type"`
	Label        string   `json:"label_visible" yaml:"label_visible"`
	Placeholder  string   `json:"placeholder" yaml:"placeholder"`
	HelpText     string   `json:"help_text" yaml:"help_text"`
	Title        string   `json:"title" yaml:"title"`
	AriaLabel    string   `json:"aria_label" yaml:"aria_label"`
	AriaRequired *bool    `json:"aria_required" yaml:"aria_required"`
	Required     bool     `json:"required_flag" yaml:"required_flag"`
	Pattern      string   `json:"pattern" yaml:"pattern"`
	MinValue     Scalar   `json:"min_value" yaml:"min_value"`
	MaxValue     Scalar   `json:"max_value" yaml:"max_value"`
	MinLength    *int     `json:"min_length" yaml:"min_length"`
	MaxLength    *int     `json:"max_length" yaml:"max_length"`
	Options      []string `json:"options" yaml:"options"`
	Multiple     bool     `json:"multiple" yaml:"multiple"`
	Section      string   `json:"section" yaml:"section"`
	StepIndex    *int     `json:"step_index" yaml:"step_index"`
	Order        *int     `json:"order" yaml:"order"`
	Visible      *bool    `json:"visible" yaml:"visible"`
	Enabled      *bool    `json:"enabled" yaml:"enabled"`
	ReadOnly     bool     `json:"readonly" yaml:"readonly"`
	Selector     string   `json:"selector" yaml:"selector"`
}

// Scalar is a constraint bound that extractors emit either as a string or
// as a bare number ("min": "1000" or "min": 1000).
type Scalar string

// UnmarshalJSON accepts strings, numbers and null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*s = Scalar(n.String())
	return nil
}
