package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formaudit/backend/internal/domain"
)

// AuditServiceConfig holds configuration for the audit service
type AuditServiceConfig struct {
	Logger *zap.Logger
	// Now overrides the report clock, for tests.
	Now func() time.Time
}

// AuditRequest is one form snapshot to audit. Signals are the external
// observations keyed by field ID; any of them may be absent.
type AuditRequest struct {
	Fields  []domain.DiscoveredField
	Signals map[string][]domain.Signal
}

// AuditService runs one audit: it reconciles the checklist against the
// discovered fields and infers which fields are mandatory.
type AuditService struct {
	checklist  domain.ChecklistRepository
	matcher    *MatchingService
	classifier *RequirednessClassifier
	probes     *ProbeCollector
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuditService creates a new audit service with dependencies. probes may
// be nil, in which case only the supplied blur signals are used.
func NewAuditService(
	checklist domain.ChecklistRepository,
	matcher *MatchingService,
	classifier *RequirednessClassifier,
	probes *ProbeCollector,
	config AuditServiceConfig,
) *AuditService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &AuditService{
		checklist:  checklist,
		matcher:    matcher,
		classifier: classifier,
		probes:     probes,
		logger:     logger,
		now:        now,
	}
}

// Audit produces the full report for one snapshot. It only fails when the
// checklist cannot be produced or ctx ends before the checklist is read.
// The request is never modified.
func (s *AuditService) Audit(ctx context.Context, req AuditRequest) (*domain.AuditReport, error) {
	lines, source, err := s.checklist.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrChecklistUnavailable, err)
	}
	entries := s.matcher.NewChecklistEntries(lines)

	signals := s.gatherSignals(ctx, req)
	requiredness, skipped := s.classifier.ClassifyAll(req.Fields, signals)
	outcome := s.matcher.Match(entries, req.Fields)

	stats := computeStatistics(entries, req.Fields, outcome, requiredness)
	report := &domain.AuditReport{
		RunID:           uuid.NewString(),
		GeneratedAt:     s.now().UTC(),
		ChecklistSource: source,
		Checklist:       entries,
		Matches:         outcome.Verdicts,
		Extras:          outcome.Extras,
		Requiredness:    requiredness,
		Skipped:         skipped,
		Statistics:      stats,
		Anomalies:       detectAnomalies(req.Fields, outcome, requiredness, stats),
	}

	s.logger.Info("audit completed",
		zap.String("run_id", report.RunID),
		zap.String("checklist", source),
		zap.Int("fields", len(req.Fields)),
		zap.Int("present", stats.Present),
		zap.Int("missing", stats.Missing),
		zap.Float64("coverage", stats.CoveragePercentage),
		zap.Int("anomalies", len(report.Anomalies)),
	)

	return report, nil
}

// gatherSignals copies the external signals and, when a collector is set,
// adds a blur probe result for every field that has no known one yet.
func (s *AuditService) gatherSignals(ctx context.Context, req AuditRequest) map[string][]domain.Signal {
	signals := make(map[string][]domain.Signal, len(req.Signals))
	for id, list := range req.Signals {
		signals[id] = append([]domain.Signal(nil), list...)
	}
	if s.probes == nil {
		return signals
	}

	var pending []domain.DiscoveredField
	for _, f := range req.Fields {
		if !hasKnownSignal(signals[f.ID], domain.SignalBlurProbe) {
			pending = append(pending, f)
		}
	}
	if len(pending) == 0 {
		return signals
	}

	for id, signal := range s.probes.Collect(ctx, pending) {
		signals[id] = append(signals[id], signal)
	}
	return signals
}

func hasKnownSignal(signals []domain.Signal, name domain.SignalName) bool {
	for _, s := range signals {
		if s.Name == name && s.IsKnown() {
			return true
		}
	}
	return false
}

func computeStatistics(
	entries []domain.ChecklistEntry,
	fields []domain.DiscoveredField,
	outcome domain.MatchOutcome,
	requiredness []domain.RequirednessVerdict,
) domain.Statistics {
	stats := domain.Statistics{
		TotalChecklist:   len(entries),
		TotalFields:      len(fields),
		Extra:            len(outcome.Extras),
		ShouldBeRequired: []domain.RequiredDiscrepancy{},
	}

	for _, v := range outcome.Verdicts {
		switch v.Status {
		case domain.MatchPresent:
			stats.Present++
		case domain.MatchMissing:
			stats.Missing++
		case domain.MatchPotentialEquivalent:
			stats.PotentialEquivalent++
		}
	}
	if stats.TotalChecklist > 0 {
		stats.CoveragePercentage = float64(stats.Present) / float64(stats.TotalChecklist) * 100
	}

	byField := make(map[string]domain.Requiredness, len(requiredness))
	for _, r := range requiredness {
		byField[r.FieldID] = r.Verdict
		switch r.Verdict {
		case domain.RequirednessRequired:
			stats.Required++
		case domain.RequirednessOptional:
			stats.Optional++
		case domain.RequirednessUncertain:
			stats.Uncertain++
		}
	}

	for _, v := range outcome.Verdicts {
		if v.Status != domain.MatchPresent {
			continue
		}
		if verdict, ok := byField[v.FieldID]; ok && verdict == domain.RequirednessOptional {
			stats.ShouldBeRequired = append(stats.ShouldBeRequired, domain.RequiredDiscrepancy{
				Entry:    v.Entry,
				FieldID:  v.FieldID,
				FieldKey: v.FieldKey,
			})
		}
	}

	return stats
}

func detectAnomalies(
	fields []domain.DiscoveredField,
	outcome domain.MatchOutcome,
	requiredness []domain.RequirednessVerdict,
	stats domain.Statistics,
) []domain.Anomaly {
	anomalies := []domain.Anomaly{}

	var missing, potential []string
	for _, v := range outcome.Verdicts {
		switch v.Status {
		case domain.MatchMissing:
			missing = append(missing, v.Entry)
		case domain.MatchPotentialEquivalent:
			potential = append(potential, v.Entry)
		}
	}

	if len(missing) > 0 {
		anomalies = append(anomalies, domain.Anomaly{
			Title:    "Fundamental fields missing",
			Severity: domain.SeverityHigh,
			Category: domain.CategoryMissingFields,
			Description: fmt.Sprintf(
				"%d checklist fields are not present in the form.", len(missing)),
			Fields: missing,
		})
	}

	if len(stats.ShouldBeRequired) > 0 {
		keys := make([]string, 0, len(stats.ShouldBeRequired))
		for _, d := range stats.ShouldBeRequired {
			keys = append(keys, d.FieldKey)
		}
		anomalies = append(anomalies, domain.Anomaly{
			Title:    "Checklist fields not marked as required",
			Severity: domain.SeverityMedium,
			Category: domain.CategoryIncorrectValidation,
			Description: fmt.Sprintf(
				"%d checklist fields are present but were detected as optional.", len(keys)),
			Fields: keys,
		})
	}

	if len(potential) > 0 {
		anomalies = append(anomalies, domain.Anomaly{
			Title:    "Potential equivalents need review",
			Severity: domain.SeverityLow,
			Category: domain.CategoryReviewEquivalents,
			Description: fmt.Sprintf(
				"%d checklist fields only matched by similarity and should be confirmed manually.", len(potential)),
			Fields: potential,
		})
	}

	var uncertain []string
	for _, r := range requiredness {
		if r.Verdict == domain.RequirednessUncertain {
			uncertain = append(uncertain, r.FieldKey)
		}
	}
	if len(uncertain) > 0 {
		anomalies = append(anomalies, domain.Anomaly{
			Title:    "Requiredness could not be confirmed",
			Severity: domain.SeverityLow,
			Category: domain.CategoryUncertainRequiredness,
			Description: fmt.Sprintf(
				"%d fields showed a single required signal and need corroboration.", len(uncertain)),
			Fields: uncertain,
		})
	}

	var untyped []string
	for _, f := range fields {
		if f.Type == domain.FieldTypeUnknown {
			untyped = append(untyped, f.ID)
		}
	}
	if len(untyped) > 0 {
		anomalies = append(anomalies, domain.Anomaly{
			Title:    "Fields with unknown type",
			Severity: domain.SeverityLow,
			Category: domain.CategoryExtractionIssue,
			Description: fmt.Sprintf(
				"%d fields could not be typed by the extractor.", len(untyped)),
			Fields: untyped,
		})
	}

	return anomalies
}
