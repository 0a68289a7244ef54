package fs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrBadPattern is returned for malformed glob patterns.
var ErrBadPattern = doublestar.ErrBadPattern

// Pattern is a shell glob matched against relative paths.
// Patterns without '/' match against the file's basename only.
// Patterns with '/' match against the full relative path; '**' crosses segments.
type Pattern struct {
	raw       string
	matchPath bool
}

// NewPattern validates raw and returns a Pattern.
func NewPattern(raw string) (*Pattern, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrBadPattern)
	}
	if !doublestar.ValidatePattern(raw) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, raw)
	}
	return &Pattern{
		raw:       raw,
		matchPath: strings.Contains(raw, "/"),
	}, nil
}

// String returns the pattern as written.
func (p *Pattern) String() string {
	return p.raw
}

// Match reports whether relativePath matches the pattern.
func (p *Pattern) Match(relativePath string) bool {
	if relativePath == "" {
		return false
	}
	normalized := strings.TrimPrefix(filepath.ToSlash(relativePath), "./")

	target := normalized
	if !p.matchPath {
		target = path.Base(normalized)
	}
	matched, err := doublestar.Match(p.raw, target)
	return err == nil && matched
}

// IgnoreMatcher checks file paths against a set of ignore patterns.
type IgnoreMatcher struct {
	patterns []*Pattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped, as are malformed patterns.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []*Pattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p, err := NewPattern(raw)
		if err != nil {
			continue
		}
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given relative path should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	for _, p := range m.patterns {
		if p.Match(relativePath) {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns the raw lines.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
