package program

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StatusChange describes an item whose status was rewritten on disk.
type StatusChange struct {
	ItemID      string
	OldStatus   Status
	NewStatus   Status
	OldMaturity int
	NewMaturity int
	Source      string
}

// SetStatus rewrites the file owning itemID with a new status. A nil
// maturity leaves the current maturity level unchanged.
func SetStatus(itemsDir, itemID string, status Status, maturity *int) (StatusChange, error) {
	if itemID == "" {
		return StatusChange{}, fmt.Errorf("item id is required")
	}
	status, err := ParseStatus(string(status))
	if err != nil {
		return StatusChange{}, err
	}
	if maturity != nil && (*maturity < 0 || *maturity > 5) {
		return StatusChange{}, fmt.Errorf("maturity must be between 0 and 5")
	}

	store, err := LoadFromDir(itemsDir)
	if err != nil {
		return StatusChange{}, fmt.Errorf("load items: %w", err)
	}
	rec, ok := store.Lookup(itemID)
	if !ok {
		return StatusChange{}, fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}

	change := StatusChange{
		ItemID:      itemID,
		OldStatus:   rec.Item.Status,
		NewStatus:   status,
		OldMaturity: rec.Item.Maturity,
		NewMaturity: rec.Item.Maturity,
		Source:      rec.Source,
	}
	if maturity != nil {
		change.NewMaturity = *maturity
	}

	for _, doc := range store.Documents {
		if doc.Source != rec.Source {
			continue
		}
		for i := range doc.Items {
			if doc.Items[i].ID != itemID {
				continue
			}
			doc.Items[i].Status = status
			doc.Items[i].Maturity = change.NewMaturity
		}
		if err := WriteDocument(doc, doc.Source); err != nil {
			return change, fmt.Errorf("write %s: %w", doc.Source, err)
		}
	}
	return change, nil
}

// WriteDocument writes a Document to path atomically via a temp file.
func WriteDocument(doc Document, path string) error {
	data, err := MarshalDocument(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// MarshalDocument renders a Document in the on-disk YAML layout.
func MarshalDocument(doc Document) ([]byte, error) {
	type fileDocument struct {
		Kind  Kind   `yaml:"kind,omitempty"`
		Items []Item `yaml:"items"`
	}

	out := fileDocument{Kind: doc.Kind, Items: make([]Item, 0, len(doc.Items))}
	for _, item := range doc.Items {
		if item.Kind == doc.Kind {
			item.Kind = ""
		}
		out.Items = append(out.Items, item)
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return data, nil
}
