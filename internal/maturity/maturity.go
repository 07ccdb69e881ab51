// Package maturity derives program maturity figures from a snapshot of
// program items.
package maturity

import (
	"math"
	"strings"

	"cisoplan/internal/program"
)

// MatureLevel is the lowest 0-5 maturity level that counts as mature on
// its own, regardless of status.
const MatureLevel = 3

// Credit awarded per status by the weighted score.
const (
	CompleteCredit = 100.0
	DraftCredit    = 50.0
)

// Function is a NIST CSF 2.0 function.
type Function struct {
	Name   string
	Prefix string
}

// Functions lists the CSF functions in report order.
var Functions = []Function{
	{Name: "GOVERN", Prefix: "GV"},
	{Name: "IDENTIFY", Prefix: "ID"},
	{Name: "PROTECT", Prefix: "PR"},
	{Name: "DETECT", Prefix: "DE"},
	{Name: "RESPOND", Prefix: "RS"},
	{Name: "RECOVER", Prefix: "RC"},
}

// Tier is a program maturity tier.
type Tier struct {
	Level int    `json:"level"`
	Label string `json:"label"`
}

var tiers = []struct {
	below float64
	tier  Tier
}{
	{25, Tier{Level: 1, Label: "Partial"}},
	{50, Tier{Level: 2, Label: "Risk Informed"}},
	{75, Tier{Level: 3, Label: "Repeatable"}},
}

var topTier = Tier{Level: 4, Label: "Adaptive"}

// FunctionScore is the maturity rollup for one CSF function.
type FunctionScore struct {
	Function    string `json:"function"`
	ItemCount   int    `json:"item_count"`
	MatureCount int    `json:"mature_count"`
	Percent     int    `json:"percent"`
	Weighted    int    `json:"weighted"`
}

// Report is the full maturity rollup.
type Report struct {
	TotalItems   int             `json:"total_items"`
	MatureCount  int             `json:"mature_count"`
	Percent      int             `json:"percent"`
	Weighted     int             `json:"weighted"`
	AverageLevel float64         `json:"average_level"`
	Tier         Tier            `json:"tier"`
	ByFunction   []FunctionScore `json:"by_function"`
}

// IsMature reports whether an item counts toward maturity.
func IsMature(item program.Item) bool {
	return item.Status.Complete() || item.Maturity >= MatureLevel
}

// Credit returns the weighted credit for an item's status.
func Credit(item program.Item) float64 {
	switch {
	case item.Status.Complete():
		return CompleteCredit
	case item.Status == program.StatusDraft:
		return DraftCredit
	default:
		return 0
	}
}

// Compute builds the maturity report. An empty input yields zero figures,
// tier 1 and one zero row per function.
func Compute(items []program.Item) Report {
	r := Report{
		TotalItems:  len(items),
		MatureCount: countMature(items),
		Percent:     Percent(items),
		Weighted:    Weighted(items),
		ByFunction:  ByFunction(items),
	}
	r.AverageLevel = AverageLevel(items)
	r.Tier = TierFor(r.Percent)
	return r
}

// Percent is the share of items meeting IsMature, 0-100, rounded.
func Percent(items []program.Item) int {
	if len(items) == 0 {
		return 0
	}
	return round(float64(countMature(items)) * 100 / float64(len(items)))
}

// Weighted averages the per-status credit of items, 0-100, rounded.
func Weighted(items []program.Item) int {
	if len(items) == 0 {
		return 0
	}
	var total float64
	for _, item := range items {
		total += Credit(item)
	}
	return round(total / float64(len(items)))
}

// AverageLevel is the mean 0-5 maturity level, rounded to one decimal.
func AverageLevel(items []program.Item) float64 {
	if len(items) == 0 {
		return 0
	}
	var total int
	for _, item := range items {
		total += item.Maturity
	}
	return math.Round(float64(total)*10/float64(len(items))) / 10
}

// ByFunction groups items by CSF function. An item belongs to a function
// when its function field names it or any CSF mapping starts with the
// function prefix, and is counted at most once per function.
func ByFunction(items []program.Item) []FunctionScore {
	out := make([]FunctionScore, 0, len(Functions))
	for _, fn := range Functions {
		var members []program.Item
		for _, item := range items {
			if BelongsTo(item, fn) {
				members = append(members, item)
			}
		}
		out = append(out, FunctionScore{
			Function:    fn.Name,
			ItemCount:   len(members),
			MatureCount: countMature(members),
			Percent:     Percent(members),
			Weighted:    Weighted(members),
		})
	}
	return out
}

// BelongsTo reports whether item is tagged with fn.
func BelongsTo(item program.Item, fn Function) bool {
	tag := strings.ToUpper(strings.TrimSpace(item.Function))
	if tag != "" && (tag == fn.Prefix || tag == fn.Name) {
		return true
	}
	for _, mapping := range item.NISTCSF {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(mapping)), fn.Prefix) {
			return true
		}
	}
	return false
}

// TierFor maps a 0-100 maturity percentage onto a tier.
func TierFor(percent int) Tier {
	for _, t := range tiers {
		if float64(percent) < t.below {
			return t.tier
		}
	}
	return topTier
}

func countMature(items []program.Item) int {
	n := 0
	for _, item := range items {
		if IsMature(item) {
			n++
		}
	}
	return n
}

func round(v float64) int {
	return int(math.Round(v))
}
