package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"cisoplan/internal/history"
	"cisoplan/internal/notify"
	"cisoplan/internal/program"
	"cisoplan/internal/roadmap"
	"cisoplan/internal/watch"
)

func (c *cli) runRoadmap(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s roadmap: missing subcommand (build, show, next, blocked, sequence, diff, history, watch)", appName)
	}

	switch args[0] {
	case "build":
		return c.runRoadmapBuild(args[1:])
	case "show":
		return c.runRoadmapShow(args[1:])
	case "next":
		return c.runRoadmapNext(args[1:])
	case "blocked":
		return c.runRoadmapBlocked(args[1:])
	case "sequence":
		return c.runRoadmapSequence(args[1:])
	case "diff":
		return c.runRoadmapDiff(args[1:])
	case "history":
		return c.runRoadmapHistory(args[1:])
	case "watch":
		return c.runRoadmapWatch(args[1:])
	default:
		return fmt.Errorf("%s roadmap: unknown subcommand %q", appName, args[0])
	}
}

func parseAsOf(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Now().UTC(), nil
	}
	asOf, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of date %q (expected YYYY-MM-DD)", value)
	}
	return asOf, nil
}

func (c *cli) runRoadmapBuild(args []string) error {
	fs := flag.NewFlagSet("roadmap build", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	source := fs.String("source", sourceItems, "Item source: items, docs, or baseline")
	asOfFlag := fs.String("as-of", "", "Report date in YYYY-MM-DD (default: today, UTC)")
	outPath := fs.String("out", "", "Report path (default: <artifacts>/roadmaps/<as-of>.json)")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	asOf, err := parseAsOf(*asOfFlag)
	if err != nil {
		return err
	}

	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}
	reportPath := roadmap.ReportPathForDate(resolved.RoadmapsDir, asOf)
	if *outPath != "" {
		if reportPath, err = resolved.Workspace.ResolvePath(*outPath); err != nil {
			return fmt.Errorf("resolve --out: %w", err)
		}
	}

	payload := map[string]any{
		"source":      *source,
		"as_of":       asOf.Format("2006-01-02"),
		"report_path": reportPath,
	}
	run := beginAudit(resolved.AuditDB, "cli", "roadmap_build", payload)
	var finishErr error
	defer func() { run.finish(payload, finishErr) }()

	items, used, err := loadSource(resolved, *source)
	if err != nil {
		finishErr = err
		return finishErr
	}
	report := roadmap.NewReport(items, asOf, used)
	if err := roadmap.WriteReport(reportPath, report); err != nil {
		finishErr = err
		return finishErr
	}
	payload["source"] = used
	payload["immediate"] = len(report.Roadmap.Immediate)
	payload["planned"] = len(report.Roadmap.Planned)
	payload["deferred"] = len(report.Roadmap.Deferred)

	if store, err := history.Open(resolved.Workspace.HistoryDBPath); err != nil {
		fmt.Fprintln(os.Stderr, "history failed:", err)
	} else {
		recorded, err := store.Record(history.RunFromReport(report, reportPath))
		if err != nil {
			fmt.Fprintln(os.Stderr, "history failed:", err)
		} else {
			payload["run_id"] = recorded.ID
		}
		_ = store.Close()
	}

	if *asJSON {
		return printJSON(report)
	}
	roadmap.Render(os.Stdout, roadmap.Printer(c.cfg.Lang), report)
	fmt.Fprintf(os.Stdout, "\nRoadmap written: %s\n", reportPath)
	return nil
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// reportRef resolves a report argument: a path, or a YYYY-MM-DD date of a
// report under the roadmaps directory.
func reportRef(resolved *resolvedWorkspace, ref string) (string, error) {
	if datePattern.MatchString(ref) {
		return filepath.Join(resolved.RoadmapsDir, ref+".json"), nil
	}
	return resolved.Workspace.ResolvePath(ref)
}

func (c *cli) runRoadmapShow(args []string) error {
	fs := flag.NewFlagSet("roadmap show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	ref := fs.String("report", "", "Report path or date (default: latest)")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}

	var path string
	if *ref == "" {
		path, err = roadmap.LatestReportPath(resolved.RoadmapsDir)
	} else {
		path, err = reportRef(resolved, *ref)
	}
	if err != nil {
		return err
	}
	report, err := roadmap.LoadReport(path)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(report)
	}
	roadmap.Render(os.Stdout, roadmap.Printer(c.cfg.Lang), *report)
	return nil
}

func (c *cli) runRoadmapNext(args []string) error {
	fs := flag.NewFlagSet("roadmap next", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	source := fs.String("source", sourceItems, "Item source: items, docs, or baseline")
	limit := fs.Int("limit", c.cfg.NextLimit, "Number of actions to suggest (env CISOPLAN_NEXT_LIMIT)")
	if err := fs.Parse(args); err != nil {
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

	next := roadmap.NextActions(roadmap.Build(items), *limit)
	if len(next) == 0 {
		fmt.Fprintln(os.Stdout, "No immediate or planned items.")
		return nil
	}
	roadmap.RenderItems(os.Stdout, roadmap.Printer(c.cfg.Lang), next)
	return nil
}

func (c *cli) runRoadmapBlocked(args []string) error {
	fs := flag.NewFlagSet("roadmap blocked", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	source := fs.String("source", sourceItems, "Item source: items, docs, or baseline")
	if err := fs.Parse(args); err != nil {
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

	blocked := roadmap.Blocked(items)
	if len(blocked) == 0 {
		fmt.Fprintln(os.Stdout, "No blocked items.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tBLOCKED BY\tTITLE")
	for _, item := range blocked {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.ID, item.Status, strings.Join(item.BlockedBy, ", "), item.Title)
	}
	return tw.Flush()
}

func (c *cli) runRoadmapSequence(args []string) error {
	fs := flag.NewFlagSet("roadmap sequence", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	source := fs.String("source", sourceItems, "Item source: items, docs, or baseline")
	if err := fs.Parse(args); err != nil {
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

	// Sequence the backlog in priority order so that, dependencies aside,
	// higher scoring work comes first.
	scored := roadmap.ScoreBacklog(items)
	backlog := make([]program.Item, 0, len(scored))
	for _, item := range scored {
		backlog = append(backlog, item.Item)
	}
	seq, cycles := roadmap.Sequence(backlog)

	for i, item := range seq {
		fmt.Fprintf(os.Stdout, "%3d. %-12s %s\n", i+1, item.ID, item.Title)
	}
	if len(cycles) > 0 {
		fmt.Fprintf(os.Stderr, "dependency cycles involve: %s\n", strings.Join(cycles, ", "))
	}
	return nil
}

func (c *cli) runRoadmapDiff(args []string) error {
	fs := flag.NewFlagSet("roadmap diff", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}

	var fromPath, toPath string
	switch len(positional) {
	case 0:
		paths, err := roadmap.ReportPaths(resolved.RoadmapsDir)
		if err != nil {
			return err
		}
		if len(paths) < 2 {
			return fmt.Errorf("need at least two roadmaps in %s to diff", resolved.RoadmapsDir)
		}
		fromPath, toPath = paths[len(paths)-2], paths[len(paths)-1]
	case 2:
		if fromPath, err = reportRef(resolved, positional[0]); err != nil {
			return err
		}
		if toPath, err = reportRef(resolved, positional[1]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("usage: %s roadmap diff [FROM TO]", appName)
	}

	from, err := roadmap.LoadReport(fromPath)
	if err != nil {
		return err
	}
	to, err := roadmap.LoadReport(toPath)
	if err != nil {
		return err
	}
	text, err := roadmap.Diff(*from, *to)
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Fprintln(os.Stdout, "Roadmaps are identical.")
		return nil
	}
	fmt.Fprint(os.Stdout, text)
	return nil
}

func (c *cli) runRoadmapHistory(args []string) error {
	fs := flag.NewFlagSet("roadmap history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	limit := fs.Int("limit", 20, "Number of runs to show (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}
	store, err := history.Open(resolved.Workspace.HistoryDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No roadmap runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tAS OF\tSOURCE\tIMMEDIATE\tPLANNED\tDEFERRED\tMATURITY\tRUN")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d%%\t%s\n",
			r.CreatedAt.Format(time.RFC3339), r.AsOf, r.Source,
			r.Immediate, r.Planned, r.Deferred, r.MaturityPercent, r.ID)
	}
	return tw.Flush()
}

func (c *cli) runRoadmapWatch(args []string) error {
	fs := flag.NewFlagSet("roadmap watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	source := fs.String("source", sourceItems, "Item source: items or docs")
	debounce := fs.Duration("debounce", c.cfg.WatchDebounce, "Quiet period before rebuilding (env CISOPLAN_WATCH_DEBOUNCE)")
	limit := fs.Int("limit", c.cfg.NextLimit, "Number of next actions to print after each rebuild")
	notifyFlag := fs.Bool("notify", false, "Send a desktop notification when bucket sizes change")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *source == sourceBaseline {
		return fmt.Errorf("the baseline source never changes; watch items or docs")
	}
	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}

	printer := roadmap.Printer(c.cfg.Lang)
	notifier := &notify.Notifier{Enabled: *notifyFlag}
	var last *notify.Counts
	rebuild := func() error {
		items, used, err := loadSource(resolved, *source)
		if err != nil {
			return err
		}
		r := roadmap.Build(items)
		s := roadmap.Summarize(r)
		counts := notify.Counts{Immediate: len(r.Immediate), Planned: len(r.Planned), Deferred: len(r.Deferred)}
		if last != nil {
			if title, message, ok := notify.FormatRoadmapChange(used, *last, counts); ok {
				if err := notifier.Send(title, message); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}
		}
		last = &counts
		printer.Fprintf(os.Stdout, "[%s] %s: %d immediate, %d planned, %d deferred, estimated effort %.1f\n",
			time.Now().Format("15:04:05"), used, len(r.Immediate), len(r.Planned), len(r.Deferred), s.EstimatedEffort)
		roadmap.RenderItems(os.Stdout, printer, roadmap.NextActions(r, *limit))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	payload := map[string]any{
		"source":    *source,
		"items_dir": resolved.ItemsDir,
		"docs_dir":  resolved.DocsDir,
	}
	run := beginAudit(resolved.AuditDB, "cli", "roadmap_watch", payload)
	var finishErr error
	defer func() { run.finish(payload, finishErr) }()

	if err := rebuild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	dirs := []string{resolved.ItemsDir}
	if *source == sourceDocs {
		dirs = []string{resolved.DocsDir}
	}
	w := &watch.Watcher{
		Dirs:          dirs,
		Debounce:      *debounce,
		SkipUnchanged: true,
		OnChange: func(changed []string) error {
			fmt.Fprintf(os.Stdout, "changed: %s\n", strings.Join(changed, ", "))
			return rebuild()
		},
		OnError: func(err error) {
			fmt.Fprintln(os.Stderr, err)
		},
	}
	fmt.Fprintf(os.Stdout, "Watching %s (Ctrl-C to stop)\n", strings.Join(dirs, ", "))
	finishErr = w.Run(ctx)
	return finishErr
}
