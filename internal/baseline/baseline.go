// Package baseline ships the starter security program: a control catalog
// and a governance document set. It seeds new workspaces and stands in for
// a missing or empty document source.
package baseline

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"cisoplan/internal/program"
)

//go:embed data/*.yml
var files embed.FS

// Files returns the raw baseline documents keyed by file name.
func Files() (map[string][]byte, error) {
	names, err := fs.Glob(files, "data/*.yml")
	if err != nil {
		return nil, fmt.Errorf("list baseline: %w", err)
	}
	out := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read baseline %s: %w", name, err)
		}
		out[path.Base(name)] = data
	}
	return out, nil
}

// Documents parses the baseline in file name order.
func Documents() ([]program.Document, error) {
	raw, err := Files()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	docs := make([]program.Document, 0, len(names))
	for _, name := range names {
		doc, err := program.ParseAndValidateDocument(raw[name], "baseline/"+name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Items returns every baseline item, controls first.
func Items() ([]program.Item, error) {
	docs, err := Documents()
	if err != nil {
		return nil, err
	}
	return program.NewStore(docs).Items(), nil
}
