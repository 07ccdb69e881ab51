package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace defines workspace-relative paths for a security program.
type Workspace struct {
	Root          string
	ItemsDir      string
	DocsDir       string
	ArtifactsDir  string
	RoadmapsDir   string
	ProposalsDir  string
	AuditDir      string
	AuditDBPath   string
	HistoryDBPath string
}

// Resolve expands and validates the workspace root, ensuring it exists.
func Resolve(root string) (*Workspace, error) {
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root is not a directory: %s", abs)
	}
	return newWorkspace(abs), nil
}

// ResolveRoot resolves the workspace root without requiring it to exist.
func ResolveRoot(root string) (string, error) {
	return resolveRoot(root)
}

// EnsureDirs creates the directories cisoplan writes into.
func (w *Workspace) EnsureDirs() error {
	if w == nil {
		return fmt.Errorf("workspace is nil")
	}
	for _, dir := range []string{w.ItemsDir, w.DocsDir, w.RoadmapsDir, w.ProposalsDir, w.AuditDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure %s: %w", dir, err)
		}
	}
	return nil
}

// ResolvePath returns an absolute path, resolving relative paths from the workspace root.
func (w *Workspace) ResolvePath(path string) (string, error) {
	if w == nil {
		return "", fmt.Errorf("workspace is nil")
	}
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Abs(filepath.Join(w.Root, expanded))
}

func newWorkspace(root string) *Workspace {
	artifacts := filepath.Join(root, "artifacts")
	audit := filepath.Join(root, "audit")
	return &Workspace{
		Root:          root,
		ItemsDir:      filepath.Join(root, "items"),
		DocsDir:       filepath.Join(root, "docs"),
		ArtifactsDir:  artifacts,
		RoadmapsDir:   filepath.Join(artifacts, "roadmaps"),
		ProposalsDir:  filepath.Join(artifacts, "proposals"),
		AuditDir:      audit,
		AuditDBPath:   filepath.Join(audit, "audit.sqlite"),
		HistoryDBPath: filepath.Join(audit, "history.sqlite"),
	}
}

func resolveRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("workspace root is required")
	}
	expanded, err := expandHome(root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	return abs, nil
}

func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:]), nil
	}
	return "", fmt.Errorf("unsupported home expansion: %s", path)
}
