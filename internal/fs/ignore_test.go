package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewPattern(t *testing.T) {
	t.Run("classifies path vs basename patterns", func(t *testing.T) {
		t.Parallel()
		base, err := NewPattern("*.log")
		if err != nil {
			t.Fatalf("NewPattern() error = %v", err)
		}
		if base.matchPath {
			t.Error("*.log should not be a path pattern")
		}
		full, err := NewPattern("build/output")
		if err != nil {
			t.Fatalf("NewPattern() error = %v", err)
		}
		if !full.matchPath {
			t.Error("build/output should be a path pattern")
		}
	})

	t.Run("rejects malformed patterns", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{"", "   ", "[abc", "foo/[z-a"} {
			if _, err := NewPattern(raw); !errors.Is(err, ErrBadPattern) {
				t.Errorf("NewPattern(%q) error = %v, want ErrBadPattern", raw, err)
			}
		}
	})
}

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		name         string
		pattern      string
		relativePath string
		want         bool
	}{
		{name: "basename glob matches file in root", pattern: "*.txt", relativePath: "foo.txt", want: true},
		{name: "basename glob matches file in subdirectory", pattern: "*.txt", relativePath: filepath.Join("a", "b", "c.txt"), want: true},
		{name: "basename glob does not match different extension", pattern: "*.md", relativePath: "foo.txt", want: false},
		{name: "path pattern matches exact relative path", pattern: "build/output", relativePath: filepath.Join("build", "output"), want: true},
		{name: "path pattern does not match wrong path", pattern: "build/output", relativePath: filepath.Join("src", "output"), want: false},
		{name: "single star does not cross segments", pattern: "src/*.go", relativePath: filepath.Join("src", "pkg", "main.go"), want: false},
		{name: "double star crosses segments", pattern: "src/**/*.go", relativePath: filepath.Join("src", "pkg", "main.go"), want: true},
		{name: "leading dot slash is ignored", pattern: "docs/*.md", relativePath: "./docs/readme.md", want: true},
		{name: "question mark wildcard", pattern: "?.txt", relativePath: "a.txt", want: true},
		{name: "question mark does not match multiple chars", pattern: "?.txt", relativePath: "ab.txt", want: false},
		{name: "character class", pattern: "*.[oa]", relativePath: "main.o", want: true},
		{name: "brace alternatives", pattern: "*.{md,txt}", relativePath: "notes.md", want: true},
		{name: "empty string path", pattern: "*", relativePath: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewPattern(tt.pattern)
			if err != nil {
				t.Fatalf("NewPattern(%q) error = %v", tt.pattern, err)
			}
			if got := p.Match(tt.relativePath); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines, comments and bad patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.log", "[bad"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].String() != "*.log" {
			t.Errorf("expected *.log, got %s", m.patterns[0].String())
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{name: "no patterns matches nothing", patterns: nil, relativePath: "anything.txt", want: false},
		{name: "multiple patterns first matches", patterns: []string{"*.log", "*.tmp"}, relativePath: "debug.log", want: true},
		{name: "multiple patterns second matches", patterns: []string{"*.log", "*.tmp"}, relativePath: filepath.Join("sub", "data.tmp"), want: true},
		{name: "path pattern with glob", patterns: []string{"build/*.o"}, relativePath: filepath.Join("build", "main.o"), want: true},
		{name: "no match", patterns: []string{"*.log"}, relativePath: "main.go", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.relativePath); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads lines from file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, ".gitignore")
		content := "*.log\n# comment\n\n*.tmp\nbuild/output\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		lines, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(lines) != 5 { // includes blank and comment lines; filtering is the caller's job
			t.Fatalf("expected 5 raw lines, got %d", len(lines))
		}

		m := NewIgnoreMatcher(lines)
		if len(m.patterns) != 3 {
			t.Errorf("expected 3 parsed patterns, got %d", len(m.patterns))
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		lines, err := ParseIgnoreFile("/nonexistent/.gitignore")
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if lines != nil {
			t.Errorf("expected nil lines, got %v", lines)
		}
	})
}
