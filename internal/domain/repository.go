package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ChecklistRepository supplies the raw checklist lines for an audit.
// source describes where the lines came from (a path, or "default").
type ChecklistRepository interface {
	Load(ctx context.Context) (lines []string, source string, err error)
}

// BlurProber runs the "leave empty and blur" interaction against a rendered
// field. A nil result means the probe could not decide.
type BlurProber interface {
	ProbeBlur(ctx context.Context, field DiscoveredField) (*bool, error)
}
