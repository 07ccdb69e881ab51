package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRelevant(t *testing.T) {
	cases := map[string]bool{
		"items/controls.yml":             true,
		"items/governance.YAML":          true,
		"docs/GV-POL-001.md":             true,
		"items/controls.yml.tmp-1234":    false,
		"items/.controls.yml.swp":        false,
		"items/notes.txt":                false,
		"artifacts/roadmaps/latest.json": false,
	}
	for path, want := range cases {
		if got := Relevant(path); got != want {
			t.Fatalf("Relevant(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestRunDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	calls := make(chan []string, 4)
	w := &Watcher{
		Dirs:     []string{dir, filepath.Join(dir, "missing")},
		Debounce: 100 * time.Millisecond,
		OnChange: func(changed []string) error {
			calls <- changed
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	for _, name := range []string{"a.yml", "b.md", "ignored.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x: 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case changed := <-calls:
		if len(changed) != 2 || filepath.Base(changed[0]) != "a.yml" || filepath.Base(changed[1]) != "b.md" {
			t.Fatalf("changed = %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for change callback")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not stop")
	}
}

func TestRunRequiresExistingDir(t *testing.T) {
	w := &Watcher{
		Dirs:     []string{filepath.Join(t.TempDir(), "nope")},
		OnChange: func([]string) error { return nil },
	}
	if err := w.Run(context.Background()); err == nil {
		t.Fatalf("expected error when no directory exists")
	}
}

func TestDirHash(t *testing.T) {
	dir := t.TempDir()
	if sum, err := DirHash(filepath.Join(dir, "missing")); err != nil || sum != "" {
		t.Fatalf("missing dir = %q, %v; want empty", sum, err)
	}

	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.yml", "x: 1\n")
	first, err := DirHash(dir)
	if err != nil {
		t.Fatalf("DirHash: %v", err)
	}

	write("notes.txt", "ignored")
	write("a.yml", "x: 1\n")
	if again, _ := DirHash(dir); again != first {
		t.Fatalf("hash changed after irrelevant or identical writes")
	}

	write("a.yml", "x: 2\n")
	if changed, _ := DirHash(dir); changed == first {
		t.Fatalf("hash did not change after content change")
	}
}

func TestRunSkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.yml")
	if err := os.WriteFile(path, []byte("x: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	calls := make(chan []string, 4)
	w := &Watcher{
		Dirs:          []string{dir},
		Debounce:      100 * time.Millisecond,
		SkipUnchanged: true,
		OnChange: func(changed []string) error {
			calls <- changed
			return nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Same bytes: no callback.
	if err := os.WriteFile(path, []byte("x: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case changed := <-calls:
		t.Fatalf("unexpected callback for unchanged content: %v", changed)
	case <-time.After(500 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("x: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for change callback")
	}
}
