package roadmap

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Listing renders one line per item as "<horizon> <id> <score> <title>",
// in bucket order. It is the form compared by Diff.
func Listing(r Roadmap) string {
	var b strings.Builder
	for _, h := range Horizons {
		for _, item := range r.Bucket(h) {
			fmt.Fprintf(&b, "%s %s %.2f %s\n", h, item.ID, item.PriorityScore, item.Title)
		}
	}
	return b.String()
}

// Diff returns a unified diff between the listings of two reports. An empty
// string means the roadmaps are identical.
func Diff(from, to Report) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(Listing(from.Roadmap)),
		B:        difflib.SplitLines(Listing(to.Roadmap)),
		FromFile: "roadmap/" + from.AsOf,
		ToFile:   "roadmap/" + to.AsOf,
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("render roadmap diff: %w", err)
	}
	return text, nil
}
