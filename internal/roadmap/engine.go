// Package roadmap turns a snapshot of program items into a prioritized,
// horizon-bucketed backlog. Everything here is a pure function over the
// slice it is given; callers own the item collection.
package roadmap

import (
	"math"
	"sort"

	"cisoplan/internal/program"
)

// Scoring defaults and horizon thresholds. These are fixed policy values.
const (
	DefaultEffort        = 3.0
	DefaultRiskReduction = 5.0
	MinEffort            = 1.0

	// ImmediateThreshold is inclusive: a score of exactly 3.0 is immediate.
	ImmediateThreshold = 3.0
	// PlannedThreshold is inclusive: a score of exactly 1.5 is planned.
	PlannedThreshold = 1.5
)

// Horizon names a time-priority bucket.
type Horizon string

const (
	HorizonImmediate Horizon = "immediate"
	HorizonPlanned   Horizon = "planned"
	HorizonDeferred  Horizon = "deferred"
)

// Horizons lists the buckets in priority order.
var Horizons = []Horizon{HorizonImmediate, HorizonPlanned, HorizonDeferred}

// ScoredItem is an item with its derived priority score.
type ScoredItem struct {
	program.Item
	PriorityScore float64 `json:"priority_score"`
}

// Roadmap is the bucketed backlog. Each bucket is ordered by descending
// score, ties in input order.
type Roadmap struct {
	Immediate []ScoredItem `json:"immediate"`
	Planned   []ScoredItem `json:"planned"`
	Deferred  []ScoredItem `json:"deferred"`
}

// Bucket returns the items in the named horizon.
func (r Roadmap) Bucket(h Horizon) []ScoredItem {
	switch h {
	case HorizonImmediate:
		return r.Immediate
	case HorizonPlanned:
		return r.Planned
	case HorizonDeferred:
		return r.Deferred
	default:
		return nil
	}
}

// Len returns the number of items across all buckets.
func (r Roadmap) Len() int {
	return len(r.Immediate) + len(r.Planned) + len(r.Deferred)
}

// Build filters out completed items, scores the rest and buckets them by
// horizon. Malformed items are scored with defaults rather than rejected.
func Build(items []program.Item) Roadmap {
	scored := ScoreBacklog(items)

	r := Roadmap{
		Immediate: []ScoredItem{},
		Planned:   []ScoredItem{},
		Deferred:  []ScoredItem{},
	}
	for _, s := range scored {
		switch HorizonFor(s.PriorityScore) {
		case HorizonImmediate:
			r.Immediate = append(r.Immediate, s)
		case HorizonPlanned:
			r.Planned = append(r.Planned, s)
		default:
			r.Deferred = append(r.Deferred, s)
		}
	}
	return r
}

// ScoreBacklog returns the outstanding items scored and sorted by
// descending priority. The sort is stable.
func ScoreBacklog(items []program.Item) []ScoredItem {
	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		if item.Status.Complete() {
			continue
		}
		scored = append(scored, ScoredItem{
			Item:          finiteCopy(item),
			PriorityScore: Score(item),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].PriorityScore > scored[j].PriorityScore
	})
	return scored
}

// Score computes riskReduction / effort after default substitution.
func Score(item program.Item) float64 {
	return RiskReductionOf(item) / EffortOf(item)
}

// EffortOf returns the item's effort, never below MinEffort. Absent,
// non-positive and NaN values take DefaultEffort. So does +Inf: it is
// treated as not a number rather than as an unbounded effort that would
// score zero.
func EffortOf(item program.Item) float64 {
	effort := DefaultEffort
	if usable(item.Effort) {
		effort = *item.Effort
	}
	if effort < MinEffort {
		effort = MinEffort
	}
	return effort
}

// RiskReductionOf returns the item's risk reduction. Absent, non-positive,
// NaN and +Inf values take DefaultRiskReduction.
func RiskReductionOf(item program.Item) float64 {
	if usable(item.RiskReduction) {
		return *item.RiskReduction
	}
	return DefaultRiskReduction
}

// HorizonFor maps a priority score onto its bucket.
func HorizonFor(score float64) Horizon {
	switch {
	case score >= ImmediateThreshold:
		return HorizonImmediate
	case score >= PlannedThreshold:
		return HorizonPlanned
	default:
		return HorizonDeferred
	}
}

func usable(v *float64) bool {
	return v != nil && *v > 0 && !math.IsInf(*v, 1)
}

// finiteCopy clones item with non-finite effort and risk reduction
// cleared, so scored items always encode as JSON.
func finiteCopy(item program.Item) program.Item {
	out := item.Clone()
	if out.Effort != nil && (math.IsNaN(*out.Effort) || math.IsInf(*out.Effort, 0)) {
		out.Effort = nil
	}
	if out.RiskReduction != nil && (math.IsNaN(*out.RiskReduction) || math.IsInf(*out.RiskReduction, 0)) {
		out.RiskReduction = nil
	}
	return out
}
