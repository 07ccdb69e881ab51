package maturity

import (
	"testing"

	"cisoplan/internal/program"
)

func TestComputeEmpty(t *testing.T) {
	r := Compute(nil)
	if r.TotalItems != 0 || r.Percent != 0 || r.Weighted != 0 || r.AverageLevel != 0 {
		t.Fatalf("expected zero report, got %#v", r)
	}
	if r.Tier.Level != 1 {
		t.Fatalf("tier = %d, want 1", r.Tier.Level)
	}
	if got, want := len(r.ByFunction), len(Functions); got != want {
		t.Fatalf("function rows = %d, want %d", got, want)
	}
	for _, row := range r.ByFunction {
		if row.ItemCount != 0 || row.Percent != 0 {
			t.Fatalf("expected empty row, got %#v", row)
		}
	}
}

func TestComputePercentAndWeighted(t *testing.T) {
	items := []program.Item{
		{ID: "A", Status: program.StatusPublished},
		{ID: "B", Status: program.StatusDraft},
		{ID: "C", Status: program.StatusNotStarted, Maturity: 3},
		{ID: "D", Status: program.StatusNotStarted},
	}
	r := Compute(items)
	if got, want := r.MatureCount, 2; got != want {
		t.Fatalf("mature count = %d, want %d", got, want)
	}
	if got, want := r.Percent, 50; got != want {
		t.Fatalf("percent = %d, want %d", got, want)
	}
	// (100 + 50 + 0 + 0) / 4 = 37.5 -> 38
	if got, want := r.Weighted, 38; got != want {
		t.Fatalf("weighted = %d, want %d", got, want)
	}
	if got, want := r.AverageLevel, 0.8; got != want {
		t.Fatalf("average level = %v, want %v", got, want)
	}
	if got, want := r.Tier.Label, "Repeatable"; got != want {
		t.Fatalf("tier = %q, want %q", got, want)
	}
}

func TestByFunctionGroupsByTagAndMapping(t *testing.T) {
	items := []program.Item{
		{ID: "GV-1", Function: "GV", Status: program.StatusPublished},
		{ID: "MIX", NISTCSF: []string{"PR.AA-01", "PR.DS-01", "DE.CM-01"}, Status: program.StatusDraft},
		{ID: "RC-1", Function: "recover"},
		{ID: "NONE"},
	}
	rows := map[string]FunctionScore{}
	for _, row := range ByFunction(items) {
		rows[row.Function] = row
	}

	if got := rows["GOVERN"]; got.ItemCount != 1 || got.Percent != 100 {
		t.Fatalf("GOVERN = %#v", got)
	}
	if got := rows["PROTECT"]; got.ItemCount != 1 || got.Weighted != 50 || got.Percent != 0 {
		t.Fatalf("PROTECT should count MIX once: %#v", got)
	}
	if got := rows["DETECT"]; got.ItemCount != 1 {
		t.Fatalf("DETECT = %#v", got)
	}
	if got := rows["RECOVER"]; got.ItemCount != 1 || got.Percent != 0 {
		t.Fatalf("RECOVER = %#v", got)
	}
	if got := rows["IDENTIFY"]; got.ItemCount != 0 {
		t.Fatalf("IDENTIFY = %#v", got)
	}
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		percent int
		level   int
	}{
		{0, 1}, {24, 1}, {25, 2}, {49, 2}, {50, 3}, {74, 3}, {75, 4}, {100, 4},
	}
	for _, tc := range cases {
		if got := TierFor(tc.percent).Level; got != tc.level {
			t.Fatalf("TierFor(%d) = %d, want %d", tc.percent, got, tc.level)
		}
	}
}

func TestImplementedCountsAsMature(t *testing.T) {
	item := program.Item{Status: program.StatusImplemented}
	if !IsMature(item) {
		t.Fatalf("implemented item should be mature")
	}
	if Credit(item) != CompleteCredit {
		t.Fatalf("implemented item should earn full credit")
	}
}
