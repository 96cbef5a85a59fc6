package usecase

import (
	"strings"

	"go.uber.org/zap"

	"github.com/formaudit/backend/internal/domain"
)

// Tier scores and defaults
const (
	defaultMatchThreshold = 0.8  // Similarity tier acceptance floor (exclusive)
	synonymMatchScore     = 0.95 // Synonym matches never score like exact ones
	presentScoreFloor     = 0.9  // Similarity matches at or above this are PRESENT
	jaccardWeight         = 0.6
	editWeight            = 0.4
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	Threshold  float64
	Normalizer *TextNormalizer
	Synonyms   *SynonymIndex
	Logger     *zap.Logger
}

// MatchingService reconciles checklist entries against discovered fields
// using exact, synonym and similarity tiers in that order.
type MatchingService struct {
	threshold  float64
	normalizer *TextNormalizer
	synonyms   *SynonymIndex
	logger     *zap.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	threshold := config.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = defaultMatchThreshold
	}

	normalizer := config.Normalizer
	if normalizer == nil {
		normalizer = NewTextNormalizer(NormalizerConfig{})
	}

	synonyms := config.Synonyms
	if synonyms == nil {
		synonyms = MustSynonymIndex(normalizer, DefaultSynonymGroups)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MatchingService{
		threshold:  threshold,
		normalizer: normalizer,
		synonyms:   synonyms,
		logger:     logger,
	}
}

// Threshold returns the similarity-tier floor in use.
func (s *MatchingService) Threshold() float64 {
	return s.threshold
}

// NewChecklistEntries builds immutable entries from raw checklist lines.
func (s *MatchingService) NewChecklistEntries(lines []string) []domain.ChecklistEntry {
	entries := make([]domain.ChecklistEntry, 0, len(lines))
	for _, line := range lines {
		text := strings.TrimSpace(line)
		entries = append(entries, domain.ChecklistEntry{
			Text:         text,
			Normalized:   s.normalizer.Normalize(text, true),
			CanonicalKey: s.normalizer.CanonicalKey(text),
			Synonyms:     s.synonyms.FindSynonyms(text),
		})
	}
	return entries
}

// candidate is a canonical key offered to the tiers, represented by the
// first discovered field carrying it.
type candidate struct {
	id         string
	label      string
	normalized string
	key        string
}

// matchPool holds the candidates of one Match call and the keys claimed so
// far. Fields sharing a canonical key are nominally the same field, so a key
// is claimed at most once.
type matchPool struct {
	candidates []*candidate
	byKey      map[string]*candidate
	claimed    map[string]bool
}

func (s *MatchingService) newMatchPool(fields []domain.DiscoveredField) *matchPool {
	pool := &matchPool{
		byKey:   make(map[string]*candidate, len(fields)),
		claimed: make(map[string]bool, len(fields)),
	}
	for _, f := range fields {
		label := f.BestLabel()
		key := s.normalizer.CanonicalKey(label)
		if _, ok := pool.byKey[key]; ok {
			continue
		}
		c := &candidate{
			id:         f.ID,
			label:      label,
			normalized: s.normalizer.Normalize(label, true),
			key:        key,
		}
		pool.candidates = append(pool.candidates, c)
		pool.byKey[key] = c
	}
	return pool
}

// unclaimed returns the candidate for key unless it is absent or taken.
func (p *matchPool) unclaimed(key string) *candidate {
	if p.claimed[key] {
		return nil
	}
	return p.byKey[key]
}

// Match produces exactly one verdict per checklist entry, in checklist order.
// Each canonical key is claimed by at most one entry; earlier entries win.
// Extras lists, in field order, the key of every field whose key was never
// claimed.
func (s *MatchingService) Match(checklist []domain.ChecklistEntry, fields []domain.DiscoveredField) domain.MatchOutcome {
	pool := s.newMatchPool(fields)

	verdicts := make([]domain.MatchVerdict, 0, len(checklist))
	for _, entry := range checklist {
		verdict, ok := s.tryExactMatch(entry, pool)
		if !ok {
			verdict, ok = s.trySynonymMatch(entry, pool)
		}
		if !ok {
			verdict, ok = s.trySimilarityMatch(entry, pool)
		}
		if !ok {
			verdict = domain.MatchVerdict{
				Entry:  entry.Text,
				Status: domain.MatchMissing,
				Tier:   domain.TierNone,
			}
			s.logger.Debug("checklist entry missing", zap.String("entry", entry.Text))
		}
		verdicts = append(verdicts, verdict)
	}

	extras := make([]string, 0)
	for _, f := range fields {
		key := s.normalizer.CanonicalKey(f.BestLabel())
		if !pool.claimed[key] {
			extras = append(extras, key)
		}
	}

	return domain.MatchOutcome{Verdicts: verdicts, Extras: extras}
}

func (s *MatchingService) tryExactMatch(entry domain.ChecklistEntry, pool *matchPool) (domain.MatchVerdict, bool) {
	c := pool.unclaimed(entry.CanonicalKey)
	if c == nil {
		return domain.MatchVerdict{}, false
	}

	s.logger.Debug("exact match", zap.String("entry", entry.Text), zap.String("field", c.key))
	return pool.claim(entry, c, domain.MatchPresent, 1.0, domain.TierExact), true
}

func (s *MatchingService) trySynonymMatch(entry domain.ChecklistEntry, pool *matchPool) (domain.MatchVerdict, bool) {
	for _, synonym := range entry.Synonyms {
		c := pool.unclaimed(synonym)
		if c == nil {
			continue
		}

		s.logger.Debug("synonym match",
			zap.String("entry", entry.Text),
			zap.String("synonym", synonym),
			zap.String("field", c.key),
		)
		return pool.claim(entry, c, domain.MatchPresent, synonymMatchScore, domain.TierSynonym), true
	}
	return domain.MatchVerdict{}, false
}

func (s *MatchingService) trySimilarityMatch(entry domain.ChecklistEntry, pool *matchPool) (domain.MatchVerdict, bool) {
	var best *candidate
	bestScore := s.threshold

	for _, c := range pool.candidates {
		if pool.claimed[c.key] {
			continue
		}

		score := s.combinedScore(entry, c)
		// Strictly greater keeps the first field on ties
		if score > bestScore {
			best = c
			bestScore = score
		}
	}

	if best == nil {
		return domain.MatchVerdict{}, false
	}

	status := domain.MatchPotentialEquivalent
	if bestScore >= presentScoreFloor {
		status = domain.MatchPresent
	}

	s.logger.Debug("similarity match",
		zap.String("entry", entry.Text),
		zap.String("field", best.key),
		zap.Float64("score", bestScore),
		zap.String("status", string(status)),
	)
	return pool.claim(entry, best, status, bestScore, domain.TierSimilarity), true
}

// combinedScore weighs keyword overlap against character-level closeness.
func (s *MatchingService) combinedScore(entry domain.ChecklistEntry, c *candidate) float64 {
	jaccard := s.normalizer.Similarity(entry.Text, c.label)
	edit := EditSimilarity(entry.Normalized, c.normalized)
	return jaccardWeight*jaccard + editWeight*edit
}

func (p *matchPool) claim(entry domain.ChecklistEntry, c *candidate, status domain.MatchStatus, score float64, tier domain.MatchTier) domain.MatchVerdict {
	p.claimed[c.key] = true
	return domain.MatchVerdict{
		Entry:      entry.Text,
		Status:     status,
		FieldID:    c.id,
		FieldKey:   c.key,
		Similarity: score,
		Tier:       tier,
	}
}
