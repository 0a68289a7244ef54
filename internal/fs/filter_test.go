package fs

import (
	"os"
	"path/filepath"
	"testing"

	"squirrel-go/internal/squirrel"
)

// writeTree creates files (with content) under root. Keys ending in "/" are directories.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatalf("creating %s: %v", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("creating parent of %s: %v", name, err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

func newTestFilter(t *testing.T, files map[string]string, extra ...string) (*PathFilter, string) {
	t.Helper()
	root := t.TempDir()
	stash := filepath.Join(root, ".backup")
	if err := os.MkdirAll(stash, 0755); err != nil {
		t.Fatalf("creating stash: %v", err)
	}
	writeTree(t, root, files)

	f, err := NewPathFilter(root, stash, extra, squirrel.NewNopLogger())
	if err != nil {
		t.Fatalf("NewPathFilter() error = %v", err)
	}
	return f, f.Root()
}

func TestNewPathFilter(t *testing.T) {
	t.Run("fails when root does not exist", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		_, err := NewPathFilter(filepath.Join(dir, "missing"), dir, nil, squirrel.NewNopLogger())
		if err == nil {
			t.Fatal("expected error for missing root")
		}
	})

	t.Run("fails when stash does not exist", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		_, err := NewPathFilter(dir, filepath.Join(dir, ".backup"), nil, squirrel.NewNopLogger())
		if err == nil {
			t.Fatal("expected error for missing stash")
		}
	})
}

func TestPathFilter_Decide(t *testing.T) {
	files := map[string]string{
		"a/.gitignore":        "*.txt\n",
		"a/b/.gitignore":      "!c.txt\n",
		"a/b/c.txt":           "keep",
		"a/b/d.txt":           "drop",
		"a/normal/file.txt":   "x",
		"a/.hidden/file.md":   "x",
		"top.txt":             "x",
		".gitignore":          "# root rules\nbuild/\n*.log\n",
		"build/out.bin":       "x",
		"logs/app.log":        "x",
		"src/main.go":         "x",
		"builds.txt":          "x",
		"tmpdir/":             "",
		"tmpdir/.gitignore":   "*\n",
		"tmpdir/scratch.go":   "x",
		"plain/notes.md":      "x",
		"plain/nested/":       "",
		".backup/abc-foo.txt": "x",
		"README.md":           "x",
		"docs/guide.md":       "x",
	}

	tests := []struct {
		name string
		path string
		want Decision
	}{
		{name: "deeper negation re-includes file", path: "a/b/c.txt", want: Admit},
		{name: "shallower rule still applies to siblings", path: "a/b/d.txt", want: DenyIgnored},
		{name: "shallower rule applies beneath its directory", path: "a/normal/file.txt", want: DenyIgnored},
		{name: "rule does not apply above its directory", path: "top.txt", want: Admit},
		{name: "dotted component denied", path: "a/.hidden/file.md", want: DenyDotted},
		{name: "dotted file denied", path: ".gitignore", want: DenyDotted},
		{name: "directory-only pattern ignores contents", path: "build/out.bin", want: DenyIgnored},
		{name: "directory-only pattern ignores directory", path: "build", want: DenyIgnored},
		{name: "directory-only pattern does not match file prefix", path: "builds.txt", want: Admit},
		{name: "root pattern matches in subdirectory", path: "logs/app.log", want: DenyIgnored},
		{name: "plain file admitted", path: "src/main.go", want: Admit},
		{name: "wildcard ignore file in subdirectory", path: "tmpdir/scratch.go", want: DenyIgnored},
		{name: "directory admitted", path: "plain/nested", want: Admit},
		{name: "stash path denied", path: ".backup/abc-foo.txt", want: DenyStash},
		{name: "stash directory denied", path: ".backup", want: DenyStash},
		{name: "removed file still filtered", path: "src/gone.go", want: Admit},
		{name: "removed file in missing directory", path: "newdir/sub/gone.go", want: Admit},
		{name: "removed ignored file still ignored", path: "logs/old.log", want: DenyIgnored},
		{name: "parent escape is out of scope", path: "../outside.txt", want: DenyScope},
		{name: "root itself", path: ".", want: Admit},
	}

	f, root := newTestFilter(t, files)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Decide(filepath.FromSlash(tt.path))
			if err != nil {
				t.Fatalf("Decide(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Decide(%q) = %v, want %v", tt.path, got, tt.want)
			}

			// Absolute forms must agree with relative ones.
			abs := filepath.Join(root, filepath.FromSlash(tt.path))
			gotAbs, err := f.Decide(abs)
			if err != nil {
				t.Fatalf("Decide(%q) error = %v", abs, err)
			}
			if gotAbs != tt.want {
				t.Errorf("Decide(%q) = %v, want %v", abs, gotAbs, tt.want)
			}
		})
	}
}

func TestPathFilter_Scope(t *testing.T) {
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"x.txt": "x"})

	f, _ := newTestFilter(t, map[string]string{".gitignore": "!x.txt\n"})

	got, err := f.Decide(filepath.Join(outside, "x.txt"))
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if got != DenyScope {
		t.Errorf("Decide() = %v, want %v", got, DenyScope)
	}
	if f.Allow(filepath.Join(outside, "x.txt")) {
		t.Error("Allow() admitted a path outside the root")
	}
}

func TestPathFilter_SymlinkOutOfRoot(t *testing.T) {
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"secret.txt": "x"})

	f, root := newTestFilter(t, nil)
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if got, _ := f.Decide("link.txt"); got != DenyScope {
		t.Errorf("Decide(link.txt) = %v, want %v", got, DenyScope)
	}
}

func TestPathFilter_ExtraIgnorePatterns(t *testing.T) {
	f, _ := newTestFilter(t, map[string]string{
		"notes/todo.swp": "x",
		"notes/todo.md":  "x",
	}, "*.swp")

	if f.Allow("notes/todo.swp") {
		t.Error("Allow() admitted a path matching a configured ignore pattern")
	}
	if !f.Allow("notes/todo.md") {
		t.Error("Allow() denied a path not matching any ignore pattern")
	}
}

func TestDecision_String(t *testing.T) {
	for d, want := range map[Decision]string{
		Admit:          "admit",
		DenyScope:      "outside watched root",
		DenyStash:      "inside stash",
		DenyDotted:     "hidden path",
		DenyIgnored:    "ignored",
		DenyUnresolved: "unresolvable",
	} {
		if got := d.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(d), got, want)
		}
	}
}
