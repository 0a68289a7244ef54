package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"squirrel-go/internal/squirrel"
)

// ignoreFileName is the per-directory ignore file consulted by the filter.
const ignoreFileName = ".gitignore"

// Decision is the outcome of filtering a path, with the reason for a denial.
type Decision int

const (
	Admit Decision = iota
	DenyScope
	DenyStash
	DenyDotted
	DenyIgnored
	DenyUnresolved
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case DenyScope:
		return "outside watched root"
	case DenyStash:
		return "inside stash"
	case DenyDotted:
		return "hidden path"
	case DenyIgnored:
		return "ignored"
	case DenyUnresolved:
		return "unresolvable"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// PathFilter decides whether a path under the watched root should be recorded.
type PathFilter struct {
	root   string
	stash  string
	extra  *IgnoreMatcher
	logger squirrel.Logger
}

// NewPathFilter creates a filter for root that excludes stash. Both paths must
// exist; they are resolved to canonical absolute form here. extraIgnore holds
// additional glob patterns that are applied everywhere in the tree.
func NewPathFilter(root, stash string, extraIgnore []string, logger squirrel.Logger) (*PathFilter, error) {
	canonicalRoot, err := canonicalize(root)
	if err != nil {
		return nil, fmt.Errorf("resolving watched root: %w", err)
	}
	canonicalStash, err := canonicalize(stash)
	if err != nil {
		return nil, fmt.Errorf("resolving stash directory: %w", err)
	}

	return &PathFilter{
		root:   canonicalRoot,
		stash:  canonicalStash,
		extra:  NewIgnoreMatcher(extraIgnore),
		logger: logger,
	}, nil
}

// Root returns the canonical watched root.
func (f *PathFilter) Root() string {
	return f.root
}

// Allow reports whether events about path should be recorded.
// A path that cannot be resolved is denied.
func (f *PathFilter) Allow(path string) bool {
	decision, err := f.Decide(path)
	if err != nil {
		f.logger.Warn("denying unresolvable path", "path", path, "error", err)
		return false
	}
	if decision != Admit {
		f.logger.Debug("path filtered", "path", path, "reason", decision.String())
		return false
	}
	return true
}

// Decide runs the filter rules in order and returns the first denial, or Admit.
// Relative paths are interpreted relative to the watched root.
func (f *PathFilter) Decide(path string) (Decision, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}

	resolved, err := resolve(path)
	if err != nil {
		return DenyUnresolved, fmt.Errorf("resolving %s: %w", path, err)
	}

	rel, ok := within(f.root, resolved)
	if !ok {
		return DenyScope, nil
	}
	if _, ok := within(f.stash, resolved); ok {
		return DenyStash, nil
	}
	if rel == "." {
		return Admit, nil
	}

	components := strings.Split(rel, string(filepath.Separator))
	for _, c := range components {
		if strings.HasPrefix(c, ".") {
			return DenyDotted, nil
		}
	}

	ignored, err := f.ignored(resolved, components)
	if err != nil {
		return DenyUnresolved, err
	}
	if ignored || f.extra.Match(rel) {
		return DenyIgnored, nil
	}
	return Admit, nil
}

// ignored composes the ignore files from the root down to the path's parent
// directory and matches the path against them. Patterns read from a directory
// only apply beneath it, and later (deeper) patterns take precedence.
func (f *PathFilter) ignored(path string, components []string) (bool, error) {
	patterns, err := readIgnorePatterns(filepath.Join(f.root, ignoreFileName), nil)
	if err != nil {
		return false, err
	}

	dir := f.root
	for i, c := range components {
		dir = filepath.Join(dir, c)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			// A regular file (or something already gone) holds no ignore file.
			break
		}
		ps, err := readIgnorePatterns(filepath.Join(dir, ignoreFileName), components[:i+1])
		if err != nil {
			return false, err
		}
		patterns = append(patterns, ps...)
	}

	if len(patterns) == 0 {
		return false, nil
	}

	isDir := false
	if info, err := os.Stat(path); err == nil {
		isDir = info.IsDir()
	}
	return gitignore.NewMatcher(patterns).Match(components, isDir), nil
}

// readIgnorePatterns parses an ignore file whose patterns apply beneath domain.
func readIgnorePatterns(path string, domain []string) ([]gitignore.Pattern, error) {
	lines, err := ParseIgnoreFile(path)
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range lines {
		if !strings.HasSuffix(line, `\ `) {
			line = strings.TrimRight(line, " \t\r")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, append([]string(nil), domain...)))
	}
	return patterns, nil
}

// canonicalize returns the absolute, symlink-free form of an existing path.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// resolve canonicalizes an absolute path that may no longer exist by resolving
// its deepest existing ancestor and re-appending the missing tail.
func resolve(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	parent := filepath.Dir(path)
	if parent == path {
		return "", err
	}
	resolvedParent, err := resolve(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

// within reports whether path lies inside base and returns the relative path.
func within(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// Compile-time check that PathFilter implements squirrel.PathFilter interface
var _ squirrel.PathFilter = (*PathFilter)(nil)
