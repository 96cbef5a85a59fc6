package domain

import "strings"

// FieldType is the control kind reported by the extraction collaborator.
type FieldType string

const (
	FieldTypeText          FieldType = "text"
	FieldTypeEmail         FieldType = "email"
	FieldTypeTel           FieldType = "tel"
	FieldTypeNumber        FieldType = "number"
	FieldTypeURL           FieldType = "url"
	FieldTypePassword      FieldType = "password"
	FieldTypeDate          FieldType = "date"
	FieldTypeTime          FieldType = "time"
	FieldTypeDateTimeLocal FieldType = "datetime-local"
	FieldTypeMonth         FieldType = "month"
	FieldTypeWeek          FieldType = "week"
	FieldTypeSelect        FieldType = "select"
	FieldTypeMultiSelect   FieldType = "multiselect"
	FieldTypeRadio         FieldType = "radio"
	FieldTypeCheckbox      FieldType = "checkbox"
	FieldTypeTextarea      FieldType = "textarea"
	FieldTypeFile          FieldType = "file"
	FieldTypeHidden        FieldType = "hidden"
	FieldTypeRange         FieldType = "range"
	FieldTypeColor         FieldType = "color"
	FieldTypeUnknown       FieldType = "unknown"
)

var knownFieldTypes = map[FieldType]bool{
	FieldTypeText: true, FieldTypeEmail: true, FieldTypeTel: true, FieldTypeNumber: true,
	FieldTypeURL: true, FieldTypePassword: true, FieldTypeDate: true, FieldTypeTime: true,
	FieldTypeDateTimeLocal: true, FieldTypeMonth: true, FieldTypeWeek: true,
	FieldTypeSelect: true, FieldTypeMultiSelect: true, FieldTypeRadio: true,
	FieldTypeCheckbox: true, FieldTypeTextarea: true, FieldTypeFile: true,
	FieldTypeHidden: true, FieldTypeRange: true, FieldTypeColor: true,
}

// ParseFieldType maps a raw type tag onto a FieldType. Unrecognised tags
// become FieldTypeUnknown.
func ParseFieldType(raw string) FieldType {
	t := FieldType(strings.ToLower(strings.TrimSpace(raw)))
	if knownFieldTypes[t] {
		return t
	}
	return FieldTypeUnknown
}

// Constraints holds the validation attributes declared on a control.
type Constraints struct {
	Pattern   string `json:"pattern,omitempty"`
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	MinValue  string `json:"minValue,omitempty"`
	MaxValue  string `json:"maxValue,omitempty"`
}

// IsRestrictive reports whether the constraints narrow what an empty field
// would accept: a pattern, a positive minimum length or a minimum value.
func (c Constraints) IsRestrictive() bool {
	if c.Pattern != "" {
		return true
	}
	if c.MinLength != nil && *c.MinLength > 0 {
		return true
	}
	return c.MinValue != ""
}

// DiscoveredField is one control found in the rendered form. It is an
// immutable snapshot: nothing in the audit pipeline writes back onto it.
type DiscoveredField struct {
	ID           string      `json:"id"`
	Name         string      `json:"name,omitempty"`
	Type         FieldType   `json:"type"`
	Label        string      `json:"label,omitempty"`
	AriaLabel    string      `json:"ariaLabel,omitempty"`
	Placeholder  string      `json:"placeholder,omitempty"`
	HelpText     string      `json:"helpText,omitempty"`
	Options      []string    `json:"options,omitempty"`
	Constraints  Constraints `json:"constraints"`
	HTMLRequired bool        `json:"htmlRequired"`
	AriaRequired *bool       `json:"ariaRequired,omitempty"`
	Visible      bool        `json:"visible"`
	Enabled      bool        `json:"enabled"`
	ReadOnly     bool        `json:"readOnly"`
	Section      string      `json:"section,omitempty"`
	StepIndex    *int        `json:"stepIndex,omitempty"`
	Order        int         `json:"order"`
	Selector     string      `json:"selector,omitempty"`
}

// BestLabel returns the most descriptive text available for the field:
// visible label, aria-label, placeholder, name, id and finally help text.
func (f DiscoveredField) BestLabel() string {
	for _, candidate := range []string{f.Label, f.AriaLabel, f.Placeholder, f.Name, f.ID, f.HelpText} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// Editable reports whether a user could interact with the field at all.
func (f DiscoveredField) Editable() bool {
	return f.Visible && f.Enabled
}
