package roadmap

import (
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Printer returns a message printer for a BCP 47 tag, falling back to
// English when the tag is empty or malformed.
func Printer(lang string) *message.Printer {
	tag := language.English
	if value := strings.TrimSpace(lang); value != "" {
		if parsed, err := language.Parse(value); err == nil {
			tag = parsed
		}
	}
	return message.NewPrinter(tag)
}

var horizonTitles = map[Horizon]string{
	HorizonImmediate: "Immediate (score >= 3.0)",
	HorizonPlanned:   "Planned (1.5 <= score < 3.0)",
	HorizonDeferred:  "Deferred (score < 1.5)",
}

// Render writes a human-readable roadmap report.
func Render(w io.Writer, p *message.Printer, report Report) {
	p.Fprintf(w, "Roadmap as of %s (source: %s)\n", report.AsOf, report.Source)
	p.Fprintf(w, "Backlog: %d items, %d critical, estimated effort %.1f\n",
		report.Summary.TotalItems, report.Summary.CriticalCount, report.Summary.EstimatedEffort)
	for _, h := range Horizons {
		bucket := report.Roadmap.Bucket(h)
		p.Fprintf(w, "\n%s: %d\n", horizonTitles[h], len(bucket))
		RenderItems(w, p, bucket)
	}
	m := report.Maturity
	p.Fprintf(w, "\nMaturity: %d%% mature, weighted %d%%, tier %d (%s)\n",
		m.Percent, m.Weighted, m.Tier.Level, m.Tier.Label)
}

// RenderItems writes one line per scored item.
func RenderItems(w io.Writer, p *message.Printer, items []ScoredItem) {
	for _, item := range items {
		id := item.ID
		if id == "" {
			id = "-"
		}
		p.Fprintf(w, "  %-12s %6.2f  %s\n", id, item.PriorityScore, item.Title)
	}
}
