package checklist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultSource is reported when the built-in sample was used instead of a file.
const DefaultSource = "default"

// ErrChecklistExists is returned by Init when the file is present and force is off.
var ErrChecklistExists = errors.New("checklist file already exists")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FileRepository reads the checklist from a plain text file, one field name
// per line.
type FileRepository struct {
	path   string
	logger *zap.Logger
}

// NewFileRepository creates a repository for the checklist at path
func NewFileRepository(path string, logger *zap.Logger) *FileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRepository{path: path, logger: logger}
}

// Path returns the configured checklist location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load returns the checklist entries and where they came from. A missing
// file is first materialized from the sample. An unreadable or non UTF-8
// file is left untouched and the sample entries are used instead, so Load
// only fails when ctx is already done.
func (r *FileRepository) Load(ctx context.Context) ([]string, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("checklist file not found, creating sample", zap.String("path", r.path))
		if werr := r.write(); werr != nil {
			r.logger.Error("failed to create sample checklist", zap.String("path", r.path), zap.Error(werr))
			return DefaultEntries(), DefaultSource, nil
		}
		data = SampleContent()
		err = nil
	}
	if err != nil {
		r.logger.Error("failed to read checklist, using sample entries", zap.String("path", r.path), zap.Error(err))
		return DefaultEntries(), DefaultSource, nil
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		r.logger.Error("checklist is not valid UTF-8, using sample entries", zap.String("path", r.path))
		return DefaultEntries(), DefaultSource, nil
	}

	lines := ParseLines(string(data))
	r.logger.Info("checklist loaded", zap.String("path", r.path), zap.Int("entries", len(lines)))
	return lines, r.path, nil
}

// Init writes the sample checklist. An existing file is only replaced when
// force is set.
func (r *FileRepository) Init(force bool) error {
	if !force {
		if _, err := os.Stat(r.path); err == nil {
			return fmt.Errorf("%w: %s", ErrChecklistExists, r.path)
		}
	}
	return r.write()
}

func (r *FileRepository) write() error {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create checklist directory: %w", err)
		}
	}
	if err := os.WriteFile(r.path, SampleContent(), 0o644); err != nil {
		return fmt.Errorf("failed to write checklist: %w", err)
	}
	return nil
}

// ParseLines returns the trimmed, non-blank lines of content that do not
// start with '#'.
func ParseLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
