package roadmap

import "cisoplan/internal/program"

// BlockedItem is an outstanding item waiting on incomplete dependencies.
type BlockedItem struct {
	program.Item
	BlockedBy []string `json:"blocked_by"`
}

// Blocked returns outstanding items with at least one dependency that is
// not complete. Dependencies on ids absent from items count as incomplete.
func Blocked(items []program.Item) []BlockedItem {
	done := completedIDs(items)
	out := []BlockedItem{}
	for _, item := range items {
		if item.Status.Complete() {
			continue
		}
		var missing []string
		for _, dep := range item.Dependencies {
			if _, ok := done[dep]; !ok {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			out = append(out, BlockedItem{Item: item.Clone(), BlockedBy: missing})
		}
	}
	return out
}

// Ready returns Not Started items whose dependencies are all complete.
func Ready(items []program.Item) []program.Item {
	done := completedIDs(items)
	out := []program.Item{}
	for _, item := range items {
		if item.Status != program.StatusNotStarted {
			continue
		}
		ok := true
		for _, dep := range item.Dependencies {
			if _, complete := done[dep]; !complete {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Sequence orders the outstanding backlog so that every item follows the
// outstanding items it depends on. Items are visited in input order. Ids
// that close a dependency cycle are reported in cycles and the edge that
// closes the cycle is ignored.
func Sequence(items []program.Item) (ordered []program.Item, cycles []string) {
	var backlog []program.Item
	for _, item := range items {
		if !item.Status.Complete() {
			backlog = append(backlog, item)
		}
	}

	byID := make(map[string]int, len(backlog))
	for i, item := range backlog {
		if item.ID != "" {
			if _, dup := byID[item.ID]; !dup {
				byID[item.ID] = i
			}
		}
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make([]int, len(backlog))
	ordered = make([]program.Item, 0, len(backlog))

	var visit func(i int)
	visit = func(i int) {
		if state[i] == visited {
			return
		}
		state[i] = visiting
		for _, dep := range backlog[i].Dependencies {
			j, ok := byID[dep]
			if !ok {
				continue
			}
			switch state[j] {
			case visiting:
				cycles = append(cycles, backlog[i].ID)
			case unvisited:
				visit(j)
			}
		}
		state[i] = visited
		ordered = append(ordered, backlog[i].Clone())
	}

	for i := range backlog {
		visit(i)
	}
	return ordered, cycles
}

func completedIDs(items []program.Item) map[string]struct{} {
	done := make(map[string]struct{})
	for _, item := range items {
		if item.ID != "" && item.Status.Complete() {
			done[item.ID] = struct{}{}
		}
	}
	return done
}
