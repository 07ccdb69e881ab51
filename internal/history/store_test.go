package history

import (
	"path/filepath"
	"testing"
	"time"

	"cisoplan/internal/program"
	"cisoplan/internal/roadmap"
)

func TestRecordAndList(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	items := []program.Item{
		{ID: "A", RiskReduction: program.Float(9), Effort: program.Float(1)},
		{ID: "B"},
		{ID: "C", Status: program.StatusPublished},
	}
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	report := roadmap.NewReport(items, base, "items")

	first, err := store.Record(Run{CreatedAt: base, AsOf: "2026-01-01", Source: "baseline"})
	if err != nil {
		t.Fatalf("record first: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("expected generated id")
	}
	second, err := store.Record(withTime(RunFromReport(report, "artifacts/roadmaps/2026-02-01.json"), base.Add(time.Hour)))
	if err != nil {
		t.Fatalf("record second: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("run ids must be unique")
	}

	runs, err := store.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got, want := len(runs), 2; got != want {
		t.Fatalf("runs = %d, want %d", got, want)
	}
	latest := runs[0]
	if latest.ID != second.ID {
		t.Fatalf("newest run should come first, got %s", latest.ID)
	}
	if latest.Immediate != 1 || latest.Planned != 1 || latest.Total() != 2 {
		t.Fatalf("unexpected counts %#v", latest)
	}
	if got, want := latest.MaturityPercent, 33; got != want {
		t.Fatalf("maturity = %d, want %d", got, want)
	}
	if got, want := latest.EstimatedEffort, 4.0; got != want {
		t.Fatalf("effort = %v, want %v", got, want)
	}
	if !latest.CreatedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("created_at = %v", latest.CreatedAt)
	}

	limited, err := store.List(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d runs", len(limited))
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Record(Run{AsOf: "2026-01-01", Source: "items"}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runs, err := store.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
}

func withTime(run Run, at time.Time) Run {
	run.CreatedAt = at
	return run
}
