package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/formaudit/backend/internal/domain"
)

// Format is the encoding of a snapshot document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension. Anything that is
// not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses a snapshot document. Keys the model does not carry (such as
// label_for or canonical_key) are ignored. Every failure wraps
// domain.ErrInvalidSnapshot.
func Decode(data []byte, format Format) (*Snapshot, error) {
	var s Snapshot

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrInvalidSnapshot, format)
	}

	return &s, nil
}

// LoadFile reads and decodes the snapshot at path.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Decode(data, FormatFromPath(path))
}
