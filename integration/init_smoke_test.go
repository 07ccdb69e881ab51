package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cisoplan/integration/harness"
)

func TestInitSmoke(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspaceRoot := filepath.Join(t.TempDir(), "workspace-init")

	args := []string{
		"init",
		"--workspace", workspaceRoot,
	}
	stdout, stderr, code := harness.Run(t, binPath, runDir, args)
	if code != 0 {
		t.Fatalf("cisoplan init exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}

	paths := []string{
		filepath.Join(workspaceRoot, "items"),
		filepath.Join(workspaceRoot, "docs"),
		filepath.Join(workspaceRoot, "artifacts"),
		filepath.Join(workspaceRoot, "audit"),
		filepath.Join(workspaceRoot, "artifacts", "roadmaps"),
		filepath.Join(workspaceRoot, "artifacts", "proposals"),
		filepath.Join(workspaceRoot, "items", "controls.yml"),
		filepath.Join(workspaceRoot, "items", "governance.yml"),
		filepath.Join(workspaceRoot, "docs", "README.md"),
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing init path %s: %v", path, err)
		}
	}

	auditPath := filepath.Join(workspaceRoot, "audit", "audit.sqlite")
	if _, err := os.Stat(auditPath); err != nil {
		t.Fatalf("audit db not written at %s: %v", auditPath, err)
	}
	requireAuditEvents(t, auditPath, []string{
		"workspace_init_started",
		"workspace_init_finished",
	})

	// The seeded baseline builds and puts the access control policy first.
	stdout = harness.MustRun(t, binPath, runDir, "roadmap", "next", "--workspace", workspaceRoot, "--limit", "1")
	if !strings.Contains(stdout, "UC-AC-01") {
		t.Fatalf("expected UC-AC-01 as the first action\n%s", stdout)
	}

	// A second init leaves edited files alone.
	itemsPath := filepath.Join(workspaceRoot, "items", "governance.yml")
	edited := []byte("kind: governance\nitems:\n  - id: GV-LOCAL\n    title: Local Policy\n    status: Draft\n")
	if err := os.WriteFile(itemsPath, edited, 0o644); err != nil {
		t.Fatalf("edit items: %v", err)
	}
	harness.MustRun(t, binPath, runDir, "init", "--workspace", workspaceRoot)
	got, err := os.ReadFile(itemsPath)
	if err != nil {
		t.Fatalf("read items: %v", err)
	}
	if string(got) != string(edited) {
		t.Fatalf("init overwrote %s", itemsPath)
	}
}
