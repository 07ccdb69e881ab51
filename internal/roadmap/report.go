package roadmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cisoplan/internal/maturity"
	"cisoplan/internal/program"
)

const ReportSchemaVersion = 1

// Report is a roadmap persisted under artifacts/roadmaps.
type Report struct {
	SchemaVersion int             `json:"schema_version"`
	AsOf          string          `json:"as_of"`
	Source        string          `json:"source"`
	Roadmap       Roadmap         `json:"roadmap"`
	Summary       Summary         `json:"summary"`
	Maturity      maturity.Report `json:"maturity"`
}

// NewReport builds the roadmap, summary and maturity rollup for items.
func NewReport(items []program.Item, asOf time.Time, source string) Report {
	r := Build(items)
	return Report{
		SchemaVersion: ReportSchemaVersion,
		AsOf:          asOf.UTC().Format("2006-01-02"),
		Source:        source,
		Roadmap:       r,
		Summary:       Summarize(r),
		Maturity:      maturity.Compute(items),
	}
}

// MarshalReport returns the canonical JSON encoding of report.
func MarshalReport(report Report) ([]byte, error) {
	report.SchemaVersion = ReportSchemaVersion
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

func WriteReport(path string, report Report) error {
	if path == "" {
		return fmt.Errorf("report path is required")
	}
	if report.AsOf == "" {
		return fmt.Errorf("report as_of is required")
	}
	data, err := MarshalReport(report)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report Report
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if report.SchemaVersion != ReportSchemaVersion {
		return nil, fmt.Errorf("unsupported report schema_version %d", report.SchemaVersion)
	}
	if report.AsOf == "" {
		return nil, fmt.Errorf("report missing as_of")
	}
	return &report, nil
}

func ReportPathForDate(dir string, asOf time.Time) string {
	return filepath.Join(dir, asOf.UTC().Format("2006-01-02")+".json")
}

// ReportPaths lists the reports in dir, oldest first.
func ReportPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read roadmaps dir: %w", err)
	}
	var paths []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		// YYYY-MM-DD.json sorts chronologically.
		paths = append(paths, filepath.Join(dir, ent.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func LatestReportPath(dir string) (string, error) {
	paths, err := ReportPaths(dir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no roadmaps found in %s", dir)
	}
	return paths[len(paths)-1], nil
}
