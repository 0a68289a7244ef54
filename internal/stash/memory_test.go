package stash

import (
	"errors"
	"strings"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	t.Run("save and open", func(t *testing.T) {
		s := NewMemoryStore(&sequenceIDs{ids: []string{"m1"}})

		name, err := s.Save("/tmp/root/a.txt", strings.NewReader("hello"))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if name != "m1-a.txt" {
			t.Errorf("Save() name = %q, want %q", name, "m1-a.txt")
		}

		rc, err := s.Open(name)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if got := readAll(t, rc); string(got) != "hello" {
			t.Errorf("content = %q, want %q", got, "hello")
		}
	})

	t.Run("colliding id is skipped", func(t *testing.T) {
		s := NewMemoryStore(&sequenceIDs{ids: []string{"x", "x", "y"}})

		first, _ := s.Save("a.txt", strings.NewReader("1"))
		second, err := s.Save("a.txt", strings.NewReader("2"))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if first == second {
			t.Fatalf("names collide: %q", first)
		}
		if second != "y-a.txt" {
			t.Errorf("second name = %q, want %q", second, "y-a.txt")
		}
		if s.Len() != 2 {
			t.Errorf("Len() = %d, want 2", s.Len())
		}
	})

	t.Run("missing snapshot", func(t *testing.T) {
		s := NewMemoryStore(&sequenceIDs{})
		if _, err := s.Open("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open() error = %v, want ErrNotFound", err)
		}
	})
}
