package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"cisoplan/internal/baseline"
	"cisoplan/internal/frontmatter"
	"cisoplan/internal/program"
	"cisoplan/internal/roadmap"
)

const (
	sourceItems    = "items"
	sourceDocs     = "docs"
	sourceBaseline = "baseline"
)

// loadSource returns a snapshot of program items from the named source and
// the label of the source actually used.
func loadSource(resolved *resolvedWorkspace, source string) ([]program.Item, string, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "", sourceItems:
		store, err := program.LoadFromDir(resolved.ItemsDir)
		if err != nil {
			return nil, "", err
		}
		return store.Items(), sourceItems, nil
	case sourceDocs:
		fallback, err := baseline.Items()
		if err != nil {
			return nil, "", err
		}
		items, fellBack, err := frontmatter.LoadOrFallback(resolved.DocsDir, fallback)
		if err != nil {
			return nil, "", err
		}
		if fellBack {
			fmt.Fprintf(os.Stderr, "no documents found in %s; using baseline\n", resolved.DocsDir)
			return items, sourceBaseline, nil
		}
		return items, sourceDocs, nil
	case sourceBaseline:
		items, err := baseline.Items()
		if err != nil {
			return nil, "", err
		}
		return items, sourceBaseline, nil
	default:
		return nil, "", fmt.Errorf("unknown source %q (expected items, docs, or baseline)", source)
	}
}

func (c *cli) runItem(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s item: missing subcommand (list, status, propose, apply)", appName)
	}

	switch args[0] {
	case "list":
		return c.runItemList(args[1:])
	case "status":
		return c.runItemStatus(args[1:])
	case "propose":
		return c.runItemPropose(args[1:])
	case "apply":
		return c.runItemApply(args[1:])
	default:
		return fmt.Errorf("%s item: unknown subcommand %q", appName, args[0])
	}
}

func (c *cli) runItemList(args []string) error {
	fs := flag.NewFlagSet("item list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	source := fs.String("source", sourceItems, "Item source: items, docs, or baseline")
	statusFilter := fs.String("status", "", "Only list items with this status")
	kindFilter := fs.String("kind", "", "Only list items of this kind (control or governance)")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var wantStatus program.Status
	if *statusFilter != "" {
		s, err := program.ParseStatus(*statusFilter)
		if err != nil {
			return err
		}
		wantStatus = s
	}
	wantKind, err := program.ParseKind(*kindFilter)
	if err != nil {
		return err
	}

	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}
	items, _, err := loadSource(resolved, *source)
	if err != nil {
		return err
	}

	var filtered []program.Item
	for _, item := range items {
		if wantStatus != "" && item.Status != wantStatus {
			continue
		}
		if wantKind != "" && effectiveKind(item) != wantKind {
			continue
		}
		filtered = append(filtered, item)
	}

	if *asJSON {
		if filtered == nil {
			filtered = []program.Item{}
		}
		return printJSON(filtered)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tSCORE\tTITLE")
	for _, item := range filtered {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n", item.ID, effectiveKind(item), item.Status, roadmap.Score(item), item.Title)
	}
	return tw.Flush()
}

func effectiveKind(item program.Item) program.Kind {
	if item.Kind == "" {
		return program.KindControl
	}
	return item.Kind
}

func (c *cli) runItemStatus(args []string) error {
	fs := flag.NewFlagSet("item status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	maturity := fs.Int("maturity", -1, "Also set the 0-5 maturity level")
	actor := fs.String("actor", "cli", "Actor recorded in the audit log")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 2 {
		return fmt.Errorf("usage: %s item status <id> <status> [--maturity N]", appName)
	}
	itemID, statusArg := positional[0], positional[1]

	status, err := program.ParseStatus(statusArg)
	if err != nil {
		return err
	}
	var maturityPtr *int
	if *maturity >= 0 {
		maturityPtr = maturity
	}

	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"item_id":   itemID,
		"status":    string(status),
		"items_dir": resolved.ItemsDir,
	}
	if maturityPtr != nil {
		payload["maturity"] = *maturityPtr
	}
	run := beginAudit(resolved.AuditDB, *actor, "item_status", payload)

	change, err := program.SetStatus(resolved.ItemsDir, itemID, status, maturityPtr)
	if err != nil {
		run.finish(payload, err)
		if errors.Is(err, program.ErrNotFound) {
			return fmt.Errorf("%w (see %s item list)", err, appName)
		}
		return err
	}
	run.record("item_status_changed", map[string]any{
		"item_id":      change.ItemID,
		"old_status":   string(change.OldStatus),
		"new_status":   string(change.NewStatus),
		"old_maturity": change.OldMaturity,
		"new_maturity": change.NewMaturity,
		"source":       change.Source,
	})
	payload["source"] = change.Source
	run.finish(payload, nil)

	fmt.Fprintf(os.Stdout, "%s: %s -> %s (%s)\n", change.ItemID, change.OldStatus, change.NewStatus, change.Source)
	if change.OldMaturity != change.NewMaturity {
		fmt.Fprintf(os.Stdout, "maturity: %d -> %d\n", change.OldMaturity, change.NewMaturity)
	}
	return nil
}

func (c *cli) runItemPropose(args []string) error {
	fs := flag.NewFlagSet("item propose", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	author := fs.String("author", "cli", "Author of the proposed change")
	updatesDir := fs.String("from", "", "Path to updated item YAML files")
	note := fs.String("note", "", "Optional proposal note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *updatesDir == "" {
		return fmt.Errorf("--from path is required")
	}

	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}
	if err := resolved.Workspace.EnsureDirs(); err != nil {
		return err
	}
	absUpdatesDir, err := resolved.Workspace.ResolvePath(*updatesDir)
	if err != nil {
		return fmt.Errorf("resolve --from path: %w", err)
	}

	payload := map[string]any{
		"author":        *author,
		"updates_dir":   absUpdatesDir,
		"items_dir":     resolved.ItemsDir,
		"proposals_dir": resolved.ProposalsDir,
	}
	run := beginAudit(resolved.AuditDB, *author, "item_propose", payload)

	meta, err := program.CreateProposal(*author, absUpdatesDir, resolved.ItemsDir, resolved.ProposalsDir, *note)
	if err != nil {
		run.finish(payload, err)
		return err
	}
	payload["proposal_dir"] = meta.ProposalDir
	payload["files"] = meta.Files
	run.finish(payload, nil)

	fmt.Fprintf(os.Stdout, "Proposal created: %s\n", meta.ProposalDir)
	if len(meta.Files) > 0 {
		fmt.Fprintf(os.Stdout, "Included files: %s\n", strings.Join(meta.Files, ", "))
	}
	if meta.DiffFile != "" {
		fmt.Fprintf(os.Stdout, "Diff: %s/%s\n", meta.ProposalDir, meta.DiffFile)
	}
	return nil
}

func (c *cli) runItemApply(args []string) error {
	fs := flag.NewFlagSet("item apply", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	proposalPath := fs.String("proposal", "", "Path to proposal directory")
	confirm := fs.Bool("i-understand", false, "Explicitly confirm applying item changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *proposalPath == "" {
		return fmt.Errorf("--proposal path is required")
	}
	if !*confirm {
		return fmt.Errorf("--i-understand flag is required to apply")
	}

	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}
	absProposalPath, err := resolved.Workspace.ResolvePath(*proposalPath)
	if err != nil {
		return fmt.Errorf("resolve --proposal: %w", err)
	}

	payload := map[string]any{
		"proposal": absProposalPath,
	}
	run := beginAudit(resolved.AuditDB, "cli", "item_apply", payload)

	meta, err := program.ApplyProposal(absProposalPath, *confirm)
	if err != nil {
		run.finish(payload, err)
		return err
	}
	payload["items_dir"] = meta.ItemsDir
	payload["author"] = meta.Author
	run.finish(payload, nil)

	fmt.Fprintf(os.Stdout, "Applied proposal %s to %s\n", meta.ID, meta.ItemsDir)
	return nil
}
