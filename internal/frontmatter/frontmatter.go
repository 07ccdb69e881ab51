// Package frontmatter loads program items from markdown documents whose
// metadata lives in a leading YAML front matter block.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cisoplan/internal/program"
)

var delimiter = []byte("---")

// ErrNoFrontMatter is returned by Split when a document does not open with
// a front matter block.
var ErrNoFrontMatter = errors.New("no front matter")

// Split separates the YAML front matter from the markdown body. The block
// must start on the first line and end at the next line holding only "---".
func Split(data []byte) (meta []byte, body []byte, err error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	first, rest, _ := cutLine(data)
	if !bytes.Equal(bytes.TrimSpace(first), delimiter) {
		return nil, data, ErrNoFrontMatter
	}

	var metaLen int
	remaining := rest
	for len(remaining) > 0 {
		line, next, _ := cutLine(remaining)
		if bytes.Equal(bytes.TrimSpace(line), delimiter) {
			return rest[:metaLen], next, nil
		}
		consumed := len(remaining) - len(next)
		metaLen += consumed
		remaining = next
	}
	return nil, data, fmt.Errorf("unterminated front matter")
}

func cutLine(data []byte) (line, rest []byte, found bool) {
	line, rest, found = bytes.Cut(data, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, found
}

// Parse reads one markdown document into an item. The id defaults to the
// file name without extension and the title to the first "# " heading,
// then to the id. Items default to the governance kind.
func Parse(data []byte, source string) (program.Item, error) {
	meta, body, err := Split(data)
	if errors.Is(err, ErrNoFrontMatter) {
		return program.Item{}, fmt.Errorf("%s: %w", source, err)
	}
	if err != nil {
		return program.Item{}, program.ValidationErrors{{
			File:    source,
			Field:   "front_matter",
			Message: err.Error(),
		}}
	}
	item, err := program.ParseAndValidateItem(meta, source)
	if err != nil {
		return program.Item{}, err
	}
	if item.ID == "" {
		item.ID = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	if item.Title == "" {
		item.Title = heading(body)
	}
	if item.Title == "" {
		item.Title = item.ID
	}
	if item.Kind == "" {
		item.Kind = program.KindGovernance
	}
	return item, nil
}

func heading(body []byte) string {
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// LoadDir parses every *.md file in dir, in file name order. Files without
// front matter are skipped. Validation problems across files are returned
// together as program.ValidationErrors.
func LoadDir(dir string) ([]program.Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read docs dir: %w", err)
	}
	var names []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.EqualFold(filepath.Ext(ent.Name()), ".md") {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	var items []program.Item
	var vErrs program.ValidationErrors
	seen := make(map[string]string)
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		item, err := Parse(data, path)
		if err != nil {
			if errors.Is(err, ErrNoFrontMatter) {
				continue
			}
			var ve program.ValidationErrors
			if errors.As(err, &ve) {
				vErrs = append(vErrs, ve...)
				continue
			}
			return nil, err
		}
		if prev, ok := seen[item.ID]; ok {
			vErrs = append(vErrs, program.ValidationError{
				File:    path,
				Field:   "id",
				Message: fmt.Sprintf("id %q already defined in %s", item.ID, prev),
			})
			continue
		}
		seen[item.ID] = path
		items = append(items, item)
	}
	if len(vErrs) > 0 {
		return nil, vErrs
	}
	return items, nil
}

// LoadOrFallback loads items from dir. When the directory is missing,
// unreadable or holds no documents with front matter, it returns fallback
// and reports fellBack. Validation errors are not masked.
func LoadOrFallback(dir string, fallback []program.Item) (items []program.Item, fellBack bool, err error) {
	items, err = LoadDir(dir)
	if err != nil {
		var ve program.ValidationErrors
		if errors.As(err, &ve) {
			return nil, false, err
		}
		return fallback, true, nil
	}
	if len(items) == 0 {
		return fallback, true, nil
	}
	return items, false, nil
}
