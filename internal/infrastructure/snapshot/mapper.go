package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/formaudit/backend/internal/domain"
)

// ToDomain converts a snapshot into discovered fields, in record order, and
// the external signals keyed by the resulting field IDs.
func ToDomain(s *Snapshot) ([]domain.DiscoveredField, map[string][]domain.Signal) {
	fields := make([]domain.DiscoveredField, 0, len(s.Fields))
	used := make(map[string]bool, len(s.Fields))

	for i, rec := range s.Fields {
		field := MapField(rec, i)
		if used[field.ID] {
			field.ID = fmt.Sprintf("%s-%d", field.ID, field.Order)
		}
		used[field.ID] = true
		fields = append(fields, field)
	}

	return fields, MapSignals(s.Signals)
}

// MapField converts one record. index is the record's position and stands in
// for a missing order.
func MapField(rec FieldRecord, index int) domain.DiscoveredField {
	order := index
	if rec.Order != nil {
		order = *rec.Order
	}

	fieldType := domain.ParseFieldType(rec.Type)
	if fieldType == domain.FieldTypeSelect && rec.Multiple {
		fieldType = domain.FieldTypeMultiSelect
	}

	helpText := rec.HelpText
	if strings.TrimSpace(helpText) == "" {
		helpText = rec.Title
	}

	return domain.DiscoveredField{
		ID:          fieldID(rec, order),
		Name:        rec.Name,
		Type:        fieldType,
		Label:       rec.Label,
		AriaLabel:   rec.AriaLabel,
		Placeholder: rec.Placeholder,
		HelpText:    helpText,
		Options:     rec.Options,
		Constraints: domain.Constraints{
			Pattern:   rec.Pattern,
			MinLength: rec.MinLength,
			MaxLength: rec.MaxLength,
			MinValue:  string(rec.MinValue),
			MaxValue:  string(rec.MaxValue),
		},
		HTMLRequired: rec.Required,
		AriaRequired: rec.AriaRequired,
		Visible:      boolOr(rec.Visible, true),
		Enabled:      boolOr(rec.Enabled, true),
		ReadOnly:     rec.ReadOnly,
		Section:      rec.Section,
		StepIndex:    rec.StepIndex,
		Order:        order,
		Selector:     rec.Selector,
	}
}

// MapSignals converts the raw signal table. Names are kept even when the
// classifier does not know them and are sorted for stable output.
func MapSignals(raw map[string]map[string]*bool) map[string][]domain.Signal {
	signals := make(map[string][]domain.Signal, len(raw))
	for fieldID, byName := range raw {
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		sort.Strings(names)

		list := make([]domain.Signal, 0, len(names))
		for _, name := range names {
			list = append(list, domain.Signal{Name: domain.SignalName(name), Value: byName[name]})
		}
		signals[fieldID] = list
	}
	return signals
}

func fieldID(rec FieldRecord, order int) string {
	if id := strings.TrimSpace(rec.ID); id != "" {
		return id
	}
	if name := strings.TrimSpace(rec.Name); name != "" {
		return name
	}
	return fmt.Sprintf("field-%d", order)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
