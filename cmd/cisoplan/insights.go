package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"cisoplan/internal/audit"
	"cisoplan/internal/guide"
	"cisoplan/internal/maturity"
)

func (c *cli) runMaturity(args []string) error {
	fs := flag.NewFlagSet("maturity", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	source := fs.String("source", sourceItems, "Item source: items, docs, or baseline")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}
	items, used, err := loadSource(resolved, *source)
	if err != nil {
		return err
	}

	report := maturity.Compute(items)
	if *asJSON {
		return printJSON(report)
	}

	fmt.Fprintf(os.Stdout, "Maturity (source: %s)\n", used)
	fmt.Fprintf(os.Stdout, "Items: %d, mature: %d (%d%%), weighted: %d%%, average level: %.1f\n",
		report.TotalItems, report.MatureCount, report.Percent, report.Weighted, report.AverageLevel)
	fmt.Fprintf(os.Stdout, "Tier %d: %s\n\n", report.Tier.Level, report.Tier.Label)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FUNCTION\tITEMS\tMATURE\tPERCENT\tWEIGHTED")
	for _, fn := range report.ByFunction {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d%%\t%d%%\n", fn.Function, fn.ItemCount, fn.MatureCount, fn.Percent, fn.Weighted)
	}
	return tw.Flush()
}

func (c *cli) runGuide(args []string) error {
	fs := flag.NewFlagSet("guide", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	interactive := fs.Bool("interactive", false, "Prompt for each answer on stdin")
	list := fs.Bool("list", false, "List every document type the guide can recommend")
	answers, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}

	if *list {
		for _, r := range guide.Results(guide.Default) {
			fmt.Fprintf(os.Stdout, "%-10s %s\n", r.Type, r.Description)
		}
		return nil
	}
	if *interactive {
		return walkInteractive(os.Stdin, os.Stdout, answers)
	}

	steps, pending, result, err := guide.Walk(guide.Default, answers)
	if err != nil {
		return err
	}
	printSteps(os.Stdout, steps)
	if result != nil {
		printResult(os.Stdout, *result)
		return nil
	}
	printQuestion(os.Stdout, pending)
	fmt.Fprintf(os.Stdout, "\nAnswer with: %s guide %s<option>\n", appName, answerPrefix(answers))
	return nil
}

func walkInteractive(in io.Reader, out io.Writer, answers []string) error {
	scanner := bufio.NewScanner(in)
	for {
		steps, pending, result, err := guide.Walk(guide.Default, answers)
		if err != nil {
			fmt.Fprintln(out, err)
			answers = answers[:len(steps)]
			continue
		}
		if result != nil {
			printSteps(out, steps)
			printResult(out, *result)
			return nil
		}
		printQuestion(out, pending)
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read answer: %w", err)
			}
			return fmt.Errorf("guide: no answer given")
		}
		answers = append(answers, scanner.Text())
	}
}

func printSteps(w io.Writer, steps []guide.Step) {
	for _, step := range steps {
		fmt.Fprintf(w, "%s %s\n", step.Question, step.Answer)
	}
}

func printQuestion(w io.Writer, node *guide.Node) {
	fmt.Fprintln(w, node.Question)
	for i, opt := range node.Options {
		fmt.Fprintf(w, "  %d. %s\n", i+1, opt.Label)
	}
}

func printResult(w io.Writer, r guide.Result) {
	fmt.Fprintf(w, "Recommended: %s\n%s\n", r.Type, r.Description)
}

func answerPrefix(answers []string) string {
	var b strings.Builder
	for _, a := range answers {
		if strings.ContainsAny(a, " \t") {
			fmt.Fprintf(&b, "%q ", a)
		} else {
			b.WriteString(a + " ")
		}
	}
	return b.String()
}

func (c *cli) runAudit(args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	overrides := addOverrideFlags(fs)
	limit := fs.Int("limit", 20, "Number of events to show (0 for all)")
	eventType := fs.String("type", "", "Only show events of this type")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resolved, err := c.resolve(*overrides)
	if err != nil {
		return err
	}

	events, err := audit.NewLogger(resolved.AuditDB).Events(*limit)
	if err != nil {
		return err
	}
	if *eventType != "" {
		filtered := events[:0]
		for _, ev := range events {
			if ev.Type == *eventType {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	if *asJSON {
		if events == nil {
			events = []audit.Event{}
		}
		return printJSON(events)
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, "No audit events.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTOR\tTYPE\tPAYLOAD")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ev.Timestamp.Format(time.RFC3339), ev.Actor, ev.Type, ev.PayloadJSON)
	}
	return tw.Flush()
}
