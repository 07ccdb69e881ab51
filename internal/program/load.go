package program

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrNotFound is returned when an item id is not present in the store.
var ErrNotFound = errors.New("item not found")

// LoadFromDir loads and validates all item YAML files from the provided directory.
func LoadFromDir(itemsDir string) (*Store, error) {
	if itemsDir == "" {
		itemsDir = "items"
	}

	files, err := collectYAMLFiles(itemsDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no item YAML files found in %s", itemsDir)
	}

	var docs []Document
	var vErrs ValidationErrors

	for _, path := range files {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", path, readErr)
		}
		doc, parseErr := ParseAndValidateDocument(data, path)
		if parseErr != nil {
			var ve ValidationErrors
			if errors.As(parseErr, &ve) {
				vErrs = append(vErrs, ve...)
				continue
			}
			return nil, parseErr
		}
		docs = append(docs, doc)
	}

	if len(vErrs) > 0 {
		return nil, vErrs
	}

	if dupErrs := validateCrossDocumentUniqueness(docs); len(dupErrs) > 0 {
		return nil, dupErrs
	}

	return NewStore(docs), nil
}

// NewStore indexes already validated documents. Items without an id are
// kept in the documents but cannot be looked up.
func NewStore(docs []Document) *Store {
	store := &Store{
		Documents: docs,
		items:     make(map[string]ItemRecord),
	}
	for _, doc := range docs {
		for _, item := range doc.Items {
			if item.ID == "" {
				continue
			}
			store.items[item.ID] = ItemRecord{Item: item, Source: doc.Source}
		}
	}
	return store
}

func validateCrossDocumentUniqueness(docs []Document) ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]string)

	for _, doc := range docs {
		for idx, item := range doc.Items {
			if item.ID == "" {
				continue
			}
			if origin, exists := seen[item.ID]; exists {
				errs = append(errs, ValidationError{
					File:    doc.Source,
					Field:   fmt.Sprintf("items[%d].id", idx),
					Message: fmt.Sprintf("id %q already defined in %s", item.ID, origin),
				})
				continue
			}
			seen[item.ID] = doc.Source
		}
	}
	return errs
}

// ListIDs returns all item ids in sorted order.
func (s *Store) ListIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func collectYAMLFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}
