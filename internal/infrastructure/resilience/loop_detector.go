package resilience

import (
	"time"

	"go.uber.org/zap"
)

// Default loop detection settings
const (
	DefaultMaxSameState = 3
	DefaultStateTTL     = 5 * time.Minute
)

// LoopConfig holds configuration for a LoopDetector
type LoopConfig struct {
	MaxSameState int           `mapstructure:"max_same_state"`
	StateTTL     time.Duration `mapstructure:"state_ttl"`
	Logger       *zap.Logger   `mapstructure:"-"`
	// Now overrides the clock, for tests.
	Now func() time.Time `mapstructure:"-"`
}

// LoopDetector counts how often a traversal revisits the same state within
// a sliding window. It is owned by a single traversal: calls must not run
// concurrently on one instance.
type LoopDetector struct {
	maxSameState int
	stateTTL     time.Duration
	history      map[string][]time.Time
	now          func() time.Time
	logger       *zap.Logger
}

// NewLoopDetector creates a detector, applying defaults for zero values.
func NewLoopDetector(config LoopConfig) *LoopDetector {
	maxSame := config.MaxSameState
	if maxSame <= 0 {
		maxSame = DefaultMaxSameState
	}
	ttl := config.StateTTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LoopDetector{
		maxSameState: maxSame,
		stateTTL:     ttl,
		history:      make(map[string][]time.Time),
		now:          now,
		logger:       logger,
	}
}

// RecordState notes a visit to key and reports whether the visits still
// inside the TTL window, this one included, reached the threshold.
func (d *LoopDetector) RecordState(key string) bool {
	now := d.now()

	visits := d.prune(key, now)
	visits = append(visits, now)
	d.history[key] = visits

	if len(visits) >= d.maxSameState {
		d.logger.Warn("navigation loop detected",
			zap.String("state", key),
			zap.Int("visits", len(visits)),
		)
		return true
	}
	return false
}

// Count returns the visits to key still inside the TTL window.
func (d *LoopDetector) Count(key string) int {
	return len(d.prune(key, d.now()))
}

// Threshold returns the visit count at which a loop is reported.
func (d *LoopDetector) Threshold() int {
	return d.maxSameState
}

// Clear forgets every recorded state.
func (d *LoopDetector) Clear() {
	d.history = make(map[string][]time.Time)
}

func (d *LoopDetector) prune(key string, now time.Time) []time.Time {
	visits := d.history[key]
	kept := visits[:0]
	for _, ts := range visits {
		if now.Sub(ts) < d.stateTTL {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(d.history, key)
		return nil
	}
	d.history[key] = kept
	return kept
}
