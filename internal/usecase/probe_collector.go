package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/formaudit/backend/internal/domain"
	"github.com/formaudit/backend/internal/infrastructure/resilience"
)

// Probe collection defaults
const (
	defaultProbeTimeout     = 10 * time.Second
	defaultProbeConcurrency = 4
)

// ProbeCollectorConfig holds configuration for blur-probe collection
type ProbeCollectorConfig struct {
	// Timeout bounds each field's probe, retries included.
	Timeout     time.Duration
	Concurrency int
	Logger      *zap.Logger
}

// ProbeCollector gathers blur_probe_result signals from a BlurProber. A probe
// that fails, times out or exhausts its retries degrades to an unknown
// signal; collection itself never fails.
type ProbeCollector struct {
	prober      domain.BlurProber
	retrier     *resilience.Retrier
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
}

// NewProbeCollector creates a collector with dependencies
func NewProbeCollector(prober domain.BlurProber, retrier *resilience.Retrier, config ProbeCollectorConfig) *ProbeCollector {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = defaultProbeConcurrency
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if retrier == nil {
		retrier = resilience.NewRetrier(resilience.DefaultPolicy(), logger)
	}

	return &ProbeCollector{
		prober:      prober,
		retrier:     retrier,
		timeout:     timeout,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Collect probes every editable field and returns one signal per probed
// field ID. Hidden or disabled fields are not probed.
func (c *ProbeCollector) Collect(ctx context.Context, fields []domain.DiscoveredField) map[string]domain.Signal {
	results := make(map[string]domain.Signal, len(fields))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for _, field := range fields {
		if !field.Editable() {
			continue
		}

		g.Go(func() error {
			signal := c.probe(ctx, field)

			mu.Lock()
			results[field.ID] = signal
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors
	_ = g.Wait()

	return results
}

func (c *ProbeCollector) probe(ctx context.Context, field domain.DiscoveredField) domain.Signal {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	value, err := resilience.Do(pctx, c.retrier, "blur probe "+field.ID, func(ctx context.Context) (*bool, error) {
		return c.prober.ProbeBlur(ctx, field)
	})
	if err != nil {
		c.logger.Warn("blur probe unavailable, signal left unknown",
			zap.String("field_id", field.ID),
			zap.Error(err),
		)
		return domain.UnknownSignal(domain.SignalBlurProbe)
	}
	if value == nil {
		return domain.UnknownSignal(domain.SignalBlurProbe)
	}
	return domain.NewSignal(domain.SignalBlurProbe, *value)
}
