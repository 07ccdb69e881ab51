package roadmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"cisoplan/internal/program"
)

var statuses = []program.Status{
	program.StatusNotStarted,
	program.StatusDraft,
	program.StatusPublished,
	program.StatusImplemented,
}

func randomItems(rng *rand.Rand, n int) []program.Item {
	items := make([]program.Item, 0, n)
	for i := 0; i < n; i++ {
		item := program.Item{
			ID:     fmt.Sprintf("I-%03d", i),
			Title:  fmt.Sprintf("Item %d", i),
			Status: statuses[rng.Intn(len(statuses))],
		}
		switch rng.Intn(4) {
		case 0:
		case 1:
			item.Effort = program.Float(float64(rng.Intn(5)))
		default:
			item.Effort = program.Float(rng.Float64() * 6)
		}
		switch rng.Intn(3) {
		case 0:
		default:
			item.RiskReduction = program.Float(float64(rng.Intn(11)))
		}
		items = append(items, item)
	}
	return items
}

func idsOf(r Roadmap) []string {
	var ids []string
	for _, h := range Horizons {
		for _, item := range r.Bucket(h) {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func TestBuildPartitionsBacklog(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		items := randomItems(rng, rng.Intn(40))
		r := Build(items)

		want := map[string]bool{}
		for _, item := range items {
			if !item.Status.Complete() {
				want[item.ID] = true
			}
		}
		seen := map[string]bool{}
		for _, id := range idsOf(r) {
			if seen[id] {
				t.Fatalf("round %d: id %s appears twice", round, id)
			}
			seen[id] = true
			if !want[id] {
				t.Fatalf("round %d: unexpected id %s in roadmap", round, id)
			}
		}
		if len(seen) != len(want) {
			t.Fatalf("round %d: roadmap has %d items, want %d", round, len(seen), len(want))
		}
	}
}

func TestBuildBucketsAreOrderedAndMatchThresholds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 50; round++ {
		r := Build(randomItems(rng, 30))
		for _, h := range Horizons {
			bucket := r.Bucket(h)
			for i, item := range bucket {
				if got := HorizonFor(item.PriorityScore); got != h {
					t.Fatalf("round %d: %s score %v in %s, want %s", round, item.ID, item.PriorityScore, h, got)
				}
				if i > 0 && bucket[i-1].PriorityScore < item.PriorityScore {
					t.Fatalf("round %d: %s not in non-increasing order", round, h)
				}
				if math.IsNaN(item.PriorityScore) || item.PriorityScore <= 0 {
					t.Fatalf("round %d: %s has invalid score %v", round, item.ID, item.PriorityScore)
				}
			}
		}
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(3)), 25)
	first, err := json.Marshal(Build(items))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(Build(items))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("Build output differs between calls")
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	items := []program.Item{
		{ID: "A", Effort: program.Float(0), Dependencies: []string{"B"}},
		{ID: "B", Effort: program.Float(2), RiskReduction: program.Float(8)},
	}
	before := []program.Item{items[0].Clone(), items[1].Clone()}

	r := Build(items)
	r.Immediate[0].Dependencies = append(r.Immediate[0].Dependencies, "X")
	*r.Immediate[0].Effort = 99

	if !reflect.DeepEqual(items, before) {
		t.Fatalf("input mutated: %#v", items)
	}
}

func TestBuildThresholdBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		risk   *float64
		effort *float64
		score  float64
		want   Horizon
	}{
		{"exactly immediate", program.Float(9), program.Float(3), 3.0, HorizonImmediate},
		{"exactly planned", program.Float(3), program.Float(2), 1.5, HorizonPlanned},
		{"defaults", nil, nil, 5.0 / 3.0, HorizonPlanned},
		{"just below planned", program.Float(2.9), program.Float(2), 1.45, HorizonDeferred},
		{"zero effort defaults", program.Float(2), program.Float(0), 2.0 / 3.0, HorizonDeferred},
		{"negative effort defaults", program.Float(6), program.Float(-4), 2.0, HorizonPlanned},
		{"fractional effort clamps", program.Float(2), program.Float(0.5), 2.0, HorizonPlanned},
		{"zero risk defaults", program.Float(0), program.Float(1), 5.0, HorizonImmediate},
		{"infinite effort defaults", program.Float(6), program.Float(math.Inf(1)), 2.0, HorizonPlanned},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Build([]program.Item{{ID: "X", RiskReduction: tc.risk, Effort: tc.effort}})
			bucket := r.Bucket(tc.want)
			if len(bucket) != 1 || r.Len() != 1 {
				t.Fatalf("item not in %s: %#v", tc.want, r)
			}
			if got := bucket[0].PriorityScore; math.Abs(got-tc.score) > 1e-9 {
				t.Fatalf("score = %v, want %v", got, tc.score)
			}
		})
	}
}

func TestBuildExcludesCompletedItems(t *testing.T) {
	items := []program.Item{
		{ID: "PUB", Status: program.StatusPublished, RiskReduction: program.Float(10), Effort: program.Float(1)},
		{ID: "IMP", Status: program.StatusImplemented, RiskReduction: program.Float(10), Effort: program.Float(1)},
		{ID: "DRAFT", Status: program.StatusDraft},
	}
	ids := idsOf(Build(items))
	if !reflect.DeepEqual(ids, []string{"DRAFT"}) {
		t.Fatalf("ids = %v, want [DRAFT]", ids)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	for _, items := range [][]program.Item{nil, {}} {
		r := Build(items)
		if r.Immediate == nil || r.Planned == nil || r.Deferred == nil {
			t.Fatalf("buckets must be non-nil: %#v", r)
		}
		if r.Len() != 0 {
			t.Fatalf("expected empty roadmap, got %d items", r.Len())
		}
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := string(data), `{"immediate":[],"planned":[],"deferred":[]}`; got != want {
			t.Fatalf("json = %s, want %s", got, want)
		}
	}
}

func TestBuildTiesKeepInputOrder(t *testing.T) {
	items := []program.Item{
		{ID: "low", RiskReduction: program.Float(1), Effort: program.Float(1)},
		{ID: "b"},
		{ID: "a"},
		{ID: "c", RiskReduction: program.Float(10), Effort: program.Float(6)},
		{ID: "top", RiskReduction: program.Float(9), Effort: program.Float(1)},
	}
	got := idsOf(Build(items))
	want := []string{"top", "b", "a", "c", "low"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestBuildKeepsItemsWithoutID(t *testing.T) {
	r := Build([]program.Item{{}, {}})
	if got, want := len(r.Planned), 2; got != want {
		t.Fatalf("planned = %d, want %d", got, want)
	}
}

func TestSummarizeAndNextActions(t *testing.T) {
	items := []program.Item{
		{ID: "Q1", Priority: "Critical", RiskReduction: program.Float(9), Effort: program.Float(1)},
		{ID: "Q2", Kind: program.KindGovernance, RiskReduction: program.Float(6), Effort: program.Float(2)},
		{ID: "P1", Priority: "Critical"},
		{ID: "D1", RiskReduction: program.Float(1), Effort: program.Float(5)},
		{ID: "DONE", Status: program.StatusImplemented},
	}
	r := Build(items)
	s := Summarize(r)
	if got, want := s.TotalItems, 4; got != want {
		t.Fatalf("total = %d, want %d", got, want)
	}
	if got, want := s.CriticalCount, 2; got != want {
		t.Fatalf("critical = %d, want %d", got, want)
	}
	if got, want := s.EstimatedEffort, 11.0; got != want {
		t.Fatalf("effort = %v, want %v", got, want)
	}
	if got, want := s.ByKind["control"], 3; got != want {
		t.Fatalf("controls = %d, want %d", got, want)
	}
	if got, want := s.ByHorizon["immediate"], 2; got != want {
		t.Fatalf("immediate = %d, want %d", got, want)
	}

	next := NextActions(r, 3)
	var ids []string
	for _, item := range next {
		ids = append(ids, item.ID)
	}
	if want := []string{"Q1", "Q2", "P1"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("next = %v, want %v", ids, want)
	}
	if got := NextActions(r, 0); len(got) != 0 {
		t.Fatalf("limit 0 should yield nothing, got %v", got)
	}
	if got := NextActions(r, 10); len(got) != 3 {
		t.Fatalf("deferred items must not be suggested, got %d", len(got))
	}
}

func TestDependencyViews(t *testing.T) {
	items := []program.Item{
		{ID: "A", Status: program.StatusImplemented},
		{ID: "B", Dependencies: []string{"A"}},
		{ID: "C", Dependencies: []string{"B", "GONE"}},
		{ID: "D", Status: program.StatusDraft, Dependencies: []string{"C"}},
	}

	blocked := Blocked(items)
	if len(blocked) != 2 || blocked[0].ID != "C" || blocked[1].ID != "D" {
		t.Fatalf("blocked = %#v", blocked)
	}
	if got, want := blocked[0].BlockedBy, []string{"B", "GONE"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("blocked by = %v, want %v", got, want)
	}

	ready := Ready(items)
	if len(ready) != 1 || ready[0].ID != "B" {
		t.Fatalf("ready = %#v", ready)
	}
}

func TestSequenceOrdersDependenciesFirst(t *testing.T) {
	items := []program.Item{
		{ID: "C", Dependencies: []string{"B"}},
		{ID: "A"},
		{ID: "B", Dependencies: []string{"A", "DONE"}},
		{ID: "DONE", Status: program.StatusPublished},
	}
	ordered, cycles := Sequence(items)
	var ids []string
	for _, item := range ordered {
		ids = append(ids, item.ID)
	}
	if want := []string{"A", "B", "C"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("sequence = %v, want %v", ids, want)
	}
	if len(cycles) != 0 {
		t.Fatalf("unexpected cycles %v", cycles)
	}
}

func TestSequenceReportsCycles(t *testing.T) {
	items := []program.Item{
		{ID: "X", Dependencies: []string{"Y"}},
		{ID: "Y", Dependencies: []string{"X"}},
		{ID: "Z", Dependencies: []string{"Z"}},
	}
	ordered, cycles := Sequence(items)
	if len(ordered) != 3 {
		t.Fatalf("every outstanding item must be sequenced, got %d", len(ordered))
	}
	if want := []string{"Y", "Z"}; !reflect.DeepEqual(cycles, want) {
		t.Fatalf("cycles = %v, want %v", cycles, want)
	}
}
