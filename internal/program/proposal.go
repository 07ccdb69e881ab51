package program

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

// ProposalMetadata describes a stored item change proposal.
type ProposalMetadata struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	ItemsDir    string    `json:"items_dir"`
	ProposalDir string    `json:"proposal_dir"`
	UpdatesDir  string    `json:"updates_dir"`
	Files       []string  `json:"files"`
	DiffFile    string    `json:"diff_file,omitempty"`
	Note        string    `json:"note,omitempty"`
}

// CreateProposal validates updated item files and writes a proposal package
// containing copies of them, a unified diff and proposal.json.
func CreateProposal(author, updatesDir, itemsDir, proposalsRoot, note string) (*ProposalMetadata, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, fmt.Errorf("author is required")
	}
	if updatesDir == "" {
		return nil, fmt.Errorf("updates directory is required")
	}
	if itemsDir == "" {
		itemsDir = "items"
	}
	if proposalsRoot == "" {
		proposalsRoot = filepath.Join("artifacts", "proposals")
	}

	if _, err := os.Stat(updatesDir); err != nil {
		return nil, fmt.Errorf("updates directory: %w", err)
	}
	if _, err := os.Stat(itemsDir); err != nil {
		return nil, fmt.Errorf("items directory: %w", err)
	}
	if filepath.Clean(updatesDir) == filepath.Clean(itemsDir) {
		return nil, fmt.Errorf("updates directory must differ from items directory")
	}

	if _, err := LoadFromDir(updatesDir); err != nil {
		return nil, fmt.Errorf("validate updates: %w", err)
	}

	if err := os.MkdirAll(proposalsRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create proposals root: %w", err)
	}

	createdAt := time.Now().UTC()
	proposalID := fmt.Sprintf("%s-%s", createdAt.Format("20060102-150405"), sanitize(author))
	proposalDir := filepath.Join(proposalsRoot, proposalID)
	if err := os.MkdirAll(proposalDir, 0o755); err != nil {
		return nil, fmt.Errorf("create proposal dir: %w", err)
	}
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.RemoveAll(proposalDir)
		}
	}()

	updateFiles, err := collectYAMLFiles(updatesDir)
	if err != nil {
		return nil, err
	}

	var copied []string
	for _, src := range updateFiles {
		dst := filepath.Join(proposalDir, filepath.Base(src))
		if copyErr := copyFile(src, dst); copyErr != nil {
			return nil, fmt.Errorf("copy %s: %w", src, copyErr)
		}
		copied = append(copied, filepath.Base(src))
	}

	diffText, err := RenderDiff(updateFiles, itemsDir)
	if err != nil {
		return nil, err
	}
	var diffFile string
	if diffText != "" {
		diffFile = "changes.diff"
		if err := os.WriteFile(filepath.Join(proposalDir, diffFile), []byte(diffText), 0o644); err != nil {
			return nil, fmt.Errorf("write diff: %w", err)
		}
	}

	meta := &ProposalMetadata{
		ID:          proposalID,
		Author:      author,
		CreatedAt:   createdAt,
		ItemsDir:    itemsDir,
		ProposalDir: proposalDir,
		UpdatesDir:  updatesDir,
		Files:       copied,
		DiffFile:    diffFile,
		Note:        strings.TrimSpace(note),
	}
	if err := writeProposalMetadata(meta); err != nil {
		return nil, err
	}

	cleanup = false
	return meta, nil
}

// ApplyProposal copies a validated proposal into its target items directory.
func ApplyProposal(proposalDir string, confirm bool) (*ProposalMetadata, error) {
	if !confirm {
		return nil, fmt.Errorf("apply requires --i-understand confirmation")
	}
	if proposalDir == "" {
		return nil, fmt.Errorf("proposal path is required")
	}

	meta, err := readProposalMetadata(proposalDir)
	if err != nil {
		return nil, err
	}
	if len(meta.Files) == 0 {
		return nil, fmt.Errorf("proposal metadata lists no files to apply")
	}

	store, err := LoadFromDir(proposalDir)
	if err != nil {
		return nil, fmt.Errorf("proposal validation failed: %w", err)
	}
	if len(store.Items()) == 0 {
		return nil, fmt.Errorf("proposal contains no items")
	}

	if err := os.MkdirAll(meta.ItemsDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure items dir: %w", err)
	}
	for _, file := range meta.Files {
		src := filepath.Join(proposalDir, file)
		dst := filepath.Join(meta.ItemsDir, file)
		if copyErr := copyFile(src, dst); copyErr != nil {
			return nil, fmt.Errorf("apply %s: %w", file, copyErr)
		}
	}

	if _, err := LoadFromDir(meta.ItemsDir); err != nil {
		return meta, fmt.Errorf("items invalid after apply: %w", err)
	}
	return meta, nil
}

// RenderDiff returns a unified diff of each update file against the file of
// the same name in itemsDir. Files without changes are omitted.
func RenderDiff(updateFiles []string, itemsDir string) (string, error) {
	var diffs []string
	for _, src := range updateFiles {
		baseName := filepath.Base(src)
		newBytes, err := os.ReadFile(src)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", src, err)
		}
		oldBytes, _ := os.ReadFile(filepath.Join(itemsDir, baseName))

		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(oldBytes)),
			B:        difflib.SplitLines(string(newBytes)),
			FromFile: filepath.Join("items", baseName),
			ToFile:   filepath.Join("proposal", baseName),
			Context:  3,
		}
		text, err := difflib.GetUnifiedDiffString(diff)
		if err != nil {
			return "", fmt.Errorf("diff %s: %w", baseName, err)
		}
		if strings.TrimSpace(text) != "" {
			diffs = append(diffs, text)
		}
	}
	return strings.Join(diffs, "\n"), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func writeProposalMetadata(meta *ProposalMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode proposal.json: %w", err)
	}
	path := filepath.Join(meta.ProposalDir, "proposal.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write proposal.json: %w", err)
	}
	return nil
}

func readProposalMetadata(proposalDir string) (*ProposalMetadata, error) {
	data, err := os.ReadFile(filepath.Join(proposalDir, "proposal.json"))
	if err != nil {
		return nil, fmt.Errorf("read proposal metadata: %w", err)
	}
	var meta ProposalMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse proposal metadata: %w", err)
	}
	if meta.ProposalDir == "" {
		meta.ProposalDir = proposalDir
	}
	if meta.ItemsDir == "" {
		meta.ItemsDir = "items"
	}
	if meta.Author == "" || meta.ID == "" {
		return nil, fmt.Errorf("proposal metadata is missing required fields")
	}
	return &meta, nil
}

func sanitize(value string) string {
	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, value)
	if safe == "" {
		return "author"
	}
	return safe
}
