package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cisoplan/internal/audit"
	"cisoplan/internal/baseline"
	"cisoplan/internal/config"
	"cisoplan/internal/workspace"
)

const appName = "cisoplan"

func main() {
	flag.String("workspace", "", "Path to workspace root (env CISOPLAN_WORKSPACE)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: security program roadmap planning\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [command] [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  init      Initialize a new workspace from the baseline program")
		fmt.Fprintln(os.Stderr, "  item      List, update and propose program items")
		fmt.Fprintln(os.Stderr, "  roadmap   Build and inspect the prioritized roadmap")
		fmt.Fprintln(os.Stderr, "  maturity  Show program maturity by CSF function")
		fmt.Fprintln(os.Stderr, "  guide     Choose a governance document type")
		fmt.Fprintln(os.Stderr, "  audit     Show recent audit events")
		fmt.Fprintln(os.Stderr, "  help      Show this help")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	workspacePath, remaining, err := extractWorkspaceFlag(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if workspacePath == "" {
		workspacePath = cfg.Workspace
	}

	args := remaining
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		flag.Usage()
		return
	}

	app := &cli{cfg: cfg, workspacePath: workspacePath}
	commands := map[string]func([]string) error{
		"init":     app.runInit,
		"item":     app.runItem,
		"roadmap":  app.runRoadmap,
		"maturity": app.runMaturity,
		"guide":    app.runGuide,
		"audit":    app.runAudit,
	}
	run, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if err := run(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	cfg           config.Config
	workspacePath string
}

type workspaceOverrides struct {
	ItemsDir     string
	DocsDir      string
	ArtifactsDir string
	AuditDB      string
}

type resolvedWorkspace struct {
	Workspace    *workspace.Workspace
	ItemsDir     string
	DocsDir      string
	RoadmapsDir  string
	ProposalsDir string
	AuditDB      string
}

// addOverrideFlags registers the per-path override flags shared by most
// commands.
func addOverrideFlags(fs *flag.FlagSet) *workspaceOverrides {
	o := &workspaceOverrides{}
	fs.StringVar(&o.ItemsDir, "items-dir", "", "Path to item YAML files (default: <workspace>/items)")
	fs.StringVar(&o.DocsDir, "docs-dir", "", "Path to markdown documents (default: <workspace>/docs)")
	fs.StringVar(&o.ArtifactsDir, "artifacts-dir", "", "Path to artifacts directory (default: <workspace>/artifacts)")
	fs.StringVar(&o.AuditDB, "audit-db", "", "Path to audit SQLite DB (default: <workspace>/audit/audit.sqlite)")
	return o
}

func (c *cli) resolve(overrides workspaceOverrides) (*resolvedWorkspace, error) {
	root := strings.TrimSpace(c.workspacePath)
	if root == "" {
		return nil, fmt.Errorf("--workspace is required")
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return nil, err
	}
	resolved := &resolvedWorkspace{
		Workspace:    ws,
		ItemsDir:     ws.ItemsDir,
		DocsDir:      ws.DocsDir,
		RoadmapsDir:  ws.RoadmapsDir,
		ProposalsDir: ws.ProposalsDir,
		AuditDB:      ws.AuditDBPath,
	}

	if overrides.ItemsDir != "" {
		resolved.ItemsDir, err = ws.ResolvePath(overrides.ItemsDir)
		if err != nil {
			return nil, fmt.Errorf("resolve --items-dir: %w", err)
		}
	}
	if overrides.DocsDir != "" {
		resolved.DocsDir, err = ws.ResolvePath(overrides.DocsDir)
		if err != nil {
			return nil, fmt.Errorf("resolve --docs-dir: %w", err)
		}
	}
	if overrides.ArtifactsDir != "" {
		artifacts, err := ws.ResolvePath(overrides.ArtifactsDir)
		if err != nil {
			return nil, fmt.Errorf("resolve --artifacts-dir: %w", err)
		}
		resolved.RoadmapsDir = filepath.Join(artifacts, "roadmaps")
		resolved.ProposalsDir = filepath.Join(artifacts, "proposals")
	}
	auditDB := overrides.AuditDB
	if auditDB == "" {
		auditDB = c.cfg.AuditDB
	}
	if auditDB != "" {
		resolved.AuditDB, err = ws.ResolvePath(auditDB)
		if err != nil {
			return nil, fmt.Errorf("resolve --audit-db: %w", err)
		}
	}
	return resolved, nil
}

func extractWorkspaceFlag(args []string) (string, []string, error) {
	var workspacePath string
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--workspace" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--workspace requires a value")
			}
			workspacePath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--workspace=") {
			workspacePath = strings.TrimPrefix(arg, "--workspace=")
			continue
		}
		remaining = append(remaining, arg)
	}
	return workspacePath, remaining, nil
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments, and returns the positionals in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// commandAudit records the <name>_started and <name>_finished events of one
// command. Audit failures never fail the command.
type commandAudit struct {
	logger *audit.Logger
	actor  string
	name   string
}

func beginAudit(dbPath, actor, name string, payload map[string]any) *commandAudit {
	a := &commandAudit{logger: audit.NewLogger(dbPath), actor: actor, name: name}
	if err := a.logger.LogEvent(actor, name+"_started", payload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	return a
}

func (a *commandAudit) record(eventType string, payload map[string]any) {
	if err := a.logger.LogEvent(a.actor, eventType, payload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
}

func (a *commandAudit) finish(payload map[string]any, err error) {
	if payload == nil {
		payload = map[string]any{}
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	_ = a.logger.LogEvent(a.actor, a.name+"_finished", payload)
}

func (c *cli) runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	withBaseline := fs.Bool("baseline", true, "Seed items/ with the baseline control catalog and governance documents")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(c.workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}

	root, err := workspace.ResolveRoot(c.workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return err
	}
	auditDB := ws.AuditDBPath
	if c.cfg.AuditDB != "" {
		if auditDB, err = ws.ResolvePath(c.cfg.AuditDB); err != nil {
			return fmt.Errorf("resolve audit db: %w", err)
		}
	}

	payload := map[string]any{
		"workspace": ws.Root,
		"baseline":  *withBaseline,
	}
	run := beginAudit(auditDB, "cli", "workspace_init", payload)
	var finishErr error
	defer func() { run.finish(payload, finishErr) }()

	if err := ws.EnsureDirs(); err != nil {
		finishErr = err
		return finishErr
	}

	var written []string
	if *withBaseline {
		files, err := baseline.Files()
		if err != nil {
			finishErr = err
			return finishErr
		}
		for _, name := range slices.Sorted(maps.Keys(files)) {
			path := filepath.Join(ws.ItemsDir, name)
			created, err := writeFileIfMissing(path, string(files[name]))
			if err != nil {
				finishErr = err
				return finishErr
			}
			if created {
				written = append(written, path)
			}
		}
	}
	if _, err := writeFileIfMissing(filepath.Join(ws.DocsDir, "README.md"), docsReadmeTemplate); err != nil {
		finishErr = err
		return finishErr
	}
	payload["files"] = written

	fmt.Fprintf(os.Stdout, "Initialized workspace: %s\n", ws.Root)
	fmt.Fprintln(os.Stdout, "Next steps:")
	fmt.Fprintf(os.Stdout, "  %s --workspace %s item list\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s --workspace %s roadmap build\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s --workspace %s item status UC-AC-01 Implemented\n", appName, ws.Root)
	return nil
}

const docsReadmeTemplate = `# Program documents

Markdown files in this directory become program items when they start with
a YAML front matter block:

    ---
    title: Information Security Policy
    type: Policy
    status: Draft
    effort: 3
    function: GV
    ---

The file name (without .md) is the item id unless the front matter sets
one. Build a roadmap from these documents with:

    cisoplan roadmap build --source docs
`

// writeFileIfMissing reports whether it created path.
func writeFileIfMissing(path string, contents string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
