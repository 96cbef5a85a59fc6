package usecase

import (
	"strings"

	"go.uber.org/zap"

	"github.com/formaudit/backend/internal/domain"
)

// DefaultRequiredKeywords mark a field as mandatory when they appear in its
// label, help text or aria-label.
var DefaultRequiredKeywords = []string{
	"obligatorio", "requerido", "required", "necesario", "debe",
	"campo obligatorio", "campo requerido",
}

// Positive-signal counts at which the verdict changes
const (
	uncertainSignalCount = 1
	requiredSignalCount  = 2
)

// ClassifierConfig holds configuration for the requiredness classifier
type ClassifierConfig struct {
	RequiredKeywords []string
	// SkipNonEditable leaves hidden or disabled fields unclassified.
	SkipNonEditable bool
	Normalizer      *TextNormalizer
	Logger          *zap.Logger
}

// RequirednessClassifier turns independent signals into a tri-state verdict.
// It keeps no state between fields.
type RequirednessClassifier struct {
	keywords        []string
	skipNonEditable bool
	normalizer      *TextNormalizer
	logger          *zap.Logger
}

// NewRequirednessClassifier creates a classifier with the given configuration
func NewRequirednessClassifier(config ClassifierConfig) *RequirednessClassifier {
	normalizer := config.Normalizer
	if normalizer == nil {
		normalizer = NewTextNormalizer(NormalizerConfig{})
	}

	raw := config.RequiredKeywords
	if len(raw) == 0 {
		raw = DefaultRequiredKeywords
	}
	keywords := make([]string, 0, len(raw))
	for _, k := range raw {
		if nk := normalizer.Normalize(k, false); nk != "" {
			keywords = append(keywords, nk)
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RequirednessClassifier{
		keywords:        keywords,
		skipNonEditable: config.SkipNonEditable,
		normalizer:      normalizer,
		logger:          logger,
	}
}

// InspectAttributes derives the signals readable straight from the field's
// attributes. Every returned signal carries a known value.
func (c *RequirednessClassifier) InspectAttributes(field domain.DiscoveredField) []domain.Signal {
	aria := field.AriaRequired != nil && *field.AriaRequired

	return []domain.Signal{
		domain.NewSignal(domain.SignalHTMLRequired, field.HTMLRequired),
		domain.NewSignal(domain.SignalAriaRequired, aria),
		domain.NewSignal(domain.SignalAsteriskInLabel, strings.Contains(field.Label, "*")),
		domain.NewSignal(domain.SignalRequiredKeyword, c.hasRequiredKeyword(field)),
		domain.NewSignal(domain.SignalValidationConstraint, field.Constraints.IsRestrictive()),
	}
}

func (c *RequirednessClassifier) hasRequiredKeyword(field domain.DiscoveredField) bool {
	var parts []string
	for _, text := range []string{field.Label, field.HelpText, field.AriaLabel} {
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	combined := c.normalizer.Normalize(strings.Join(parts, " "), false)
	if combined == "" {
		return false
	}

	for _, keyword := range c.keywords {
		if strings.Contains(combined, keyword) {
			return true
		}
	}
	return false
}

// Classify counts distinct signal names carrying a true value: none is
// Optional, one is Uncertain, two or more is Required. Unknown values and
// unrecognised names never count.
func (c *RequirednessClassifier) Classify(field domain.DiscoveredField, signals []domain.Signal) domain.RequirednessVerdict {
	positive := make(map[domain.SignalName]bool)
	for _, s := range signals {
		if s.Name.IsKnown() && s.IsTrue() {
			positive[s.Name] = true
		}
	}

	verdict := domain.RequirednessOptional
	switch {
	case len(positive) >= requiredSignalCount:
		verdict = domain.RequirednessRequired
	case len(positive) >= uncertainSignalCount:
		verdict = domain.RequirednessUncertain
	}

	key := c.normalizer.CanonicalKey(field.BestLabel())
	c.logger.Debug("field classified",
		zap.String("field", key),
		zap.Int("positive_signals", len(positive)),
		zap.String("verdict", string(verdict)),
	)

	return domain.RequirednessVerdict{
		FieldID:         field.ID,
		FieldKey:        key,
		Verdict:         verdict,
		PositiveSignals: len(positive),
		Signals:         signals,
	}
}

// ClassifyAll classifies every field, merging attribute-derived signals with
// the external ones keyed by field ID. A known external value replaces the
// attribute value of the same name. Fields skipped as non-editable are
// returned by ID in the second result.
func (c *RequirednessClassifier) ClassifyAll(
	fields []domain.DiscoveredField,
	external map[string][]domain.Signal,
) ([]domain.RequirednessVerdict, []string) {
	verdicts := make([]domain.RequirednessVerdict, 0, len(fields))
	var skipped []string

	for _, field := range fields {
		if c.skipNonEditable && !field.Editable() {
			c.logger.Debug("skipping non-editable field", zap.String("field_id", field.ID))
			skipped = append(skipped, field.ID)
			continue
		}

		signals := mergeSignals(c.InspectAttributes(field), external[field.ID])
		verdicts = append(verdicts, c.Classify(field, signals))
	}

	return verdicts, skipped
}

// mergeSignals keeps one signal per name in reporting order. An external
// unknown value never hides a known attribute value.
func mergeSignals(attributes, external []domain.Signal) []domain.Signal {
	byName := make(map[domain.SignalName]domain.Signal, len(domain.SignalNames))
	for _, s := range attributes {
		byName[s.Name] = s
	}
	for _, s := range external {
		if !s.Name.IsKnown() {
			continue
		}
		if current, ok := byName[s.Name]; ok && current.IsKnown() && !s.IsKnown() {
			continue
		}
		byName[s.Name] = s
	}

	merged := make([]domain.Signal, 0, len(byName))
	for _, name := range domain.SignalNames {
		if s, ok := byName[name]; ok {
			merged = append(merged, s)
		}
	}
	return merged
}
