package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/formaudit/backend/internal/domain"
	"github.com/formaudit/backend/internal/infrastructure/resilience"
)

const defaultTraversalTTL = 30 * time.Minute

// LoopGuardConfig holds configuration for the loop guard service
type LoopGuardConfig struct {
	Loop resilience.LoopConfig
	// TraversalTTL is how long an idle traversal's history is kept.
	TraversalTTL time.Duration
	Logger       *zap.Logger
}

// LoopCheck is the outcome of recording one traversal state.
type LoopCheck struct {
	TraversalID string `json:"traversalId"`
	StateKey    string `json:"stateKey"`
	Loop        bool   `json:"loop"`
	Count       int    `json:"count"`
	Threshold   int    `json:"threshold"`
}

// LoopGuardService gives each external traversal its own LoopDetector, kept
// in the cache for as long as the traversal stays active. Calls are
// serialized, since a detector must not be used concurrently.
type LoopGuardService struct {
	cache  domain.CacheRepository
	config resilience.LoopConfig
	ttl    time.Duration
	logger *zap.Logger
	mu     sync.Mutex
}

// NewLoopGuardService creates a new loop guard service with dependencies
func NewLoopGuardService(cache domain.CacheRepository, config LoopGuardConfig) *LoopGuardService {
	ttl := config.TraversalTTL
	if ttl <= 0 {
		ttl = defaultTraversalTTL
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loop := config.Loop
	if loop.Logger == nil {
		loop.Logger = logger
	}

	return &LoopGuardService{
		cache:  cache,
		config: loop,
		ttl:    ttl,
		logger: logger,
	}
}

// RecordState records a visit to stateKey within the traversal. When the
// visit completes a loop the check is returned together with an error
// wrapping domain.ErrLoopDetected, and the caller should abort the traversal.
func (s *LoopGuardService) RecordState(ctx context.Context, traversalID, stateKey string) (LoopCheck, error) {
	traversalID = strings.TrimSpace(traversalID)
	if traversalID == "" || stateKey == "" {
		return LoopCheck{}, domain.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	detector, err := s.detector(ctx, traversalID)
	if err != nil {
		return LoopCheck{}, err
	}

	loop := detector.RecordState(stateKey)
	check := LoopCheck{
		TraversalID: traversalID,
		StateKey:    stateKey,
		Loop:        loop,
		Count:       detector.Count(stateKey),
		Threshold:   detector.Threshold(),
	}

	// Refresh the TTL so active traversals are not evicted
	if err := s.cache.Set(ctx, cacheKey(traversalID), detector, s.ttl); err != nil {
		return check, fmt.Errorf("failed to store traversal state: %w", err)
	}

	if loop {
		s.logger.Warn("traversal loop detected",
			zap.String("traversal_id", traversalID),
			zap.String("state", stateKey),
			zap.Int("count", check.Count),
		)
		return check, fmt.Errorf("%w: state %q seen %d times in traversal %s",
			domain.ErrLoopDetected, stateKey, check.Count, traversalID)
	}
	return check, nil
}

// Reset forgets the traversal's history.
func (s *LoopGuardService) Reset(ctx context.Context, traversalID string) error {
	traversalID = strings.TrimSpace(traversalID)
	if traversalID == "" {
		return domain.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Delete(ctx, cacheKey(traversalID))
}

func (s *LoopGuardService) detector(ctx context.Context, traversalID string) (*resilience.LoopDetector, error) {
	cached, err := s.cache.Get(ctx, cacheKey(traversalID))
	switch {
	case err == nil:
		if d, ok := cached.(*resilience.LoopDetector); ok {
			return d, nil
		}
		s.logger.Warn("unexpected traversal cache entry, starting fresh", zap.String("traversal_id", traversalID))
	case !errors.Is(err, domain.ErrCacheMiss):
		return nil, fmt.Errorf("failed to load traversal state: %w", err)
	}

	return resilience.NewLoopDetector(s.config), nil
}

func cacheKey(traversalID string) string {
	return "traversal:" + traversalID
}
