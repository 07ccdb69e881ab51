package roadmap

import "cisoplan/internal/program"

// Summary holds rollup statistics for a roadmap.
type Summary struct {
	TotalItems      int            `json:"total_items"`
	CriticalCount   int            `json:"critical_count"`
	EstimatedEffort float64        `json:"estimated_effort"`
	ByKind          map[string]int `json:"by_kind"`
	ByHorizon       map[string]int `json:"by_horizon"`
}

// Summarize computes totals over the backlog in r. Estimated effort sums
// the defaulted, clamped effort of every item.
func Summarize(r Roadmap) Summary {
	s := Summary{
		ByKind:    map[string]int{},
		ByHorizon: map[string]int{},
	}
	for _, h := range Horizons {
		bucket := r.Bucket(h)
		s.ByHorizon[string(h)] = len(bucket)
		for _, item := range bucket {
			s.TotalItems++
			if item.Priority == "Critical" {
				s.CriticalCount++
			}
			s.EstimatedEffort += EffortOf(item.Item)
			kind := string(item.Kind)
			if kind == "" {
				kind = string(program.KindControl)
			}
			s.ByKind[kind]++
		}
	}
	return s
}

// NextActions returns up to limit items, taken from the top of the
// immediate bucket and topped up from planned.
func NextActions(r Roadmap, limit int) []ScoredItem {
	if limit <= 0 {
		return []ScoredItem{}
	}
	out := make([]ScoredItem, 0, limit)
	for _, h := range []Horizon{HorizonImmediate, HorizonPlanned} {
		for _, item := range r.Bucket(h) {
			if len(out) == limit {
				return out
			}
			out = append(out, item)
		}
	}
	return out
}
