package watch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// DirHash hashes the names and contents of the relevant files directly
// inside dir. A missing directory hashes to the empty string.
func DirHash(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read dir: %w", err)
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() || !Relevant(ent.Name()) {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("open %s: %w", name, err)
		}
		fh := sha256.New()
		if _, err := io.Copy(fh, f); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("hash %s: %w", name, err)
		}
		_ = f.Close()

		_, _ = h.Write([]byte(name))
		_, _ = h.Write(fh.Sum(nil))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// snapshot hashes every directory in dirs.
func snapshot(dirs []string) (map[string]string, error) {
	out := make(map[string]string, len(dirs))
	for _, dir := range dirs {
		sum, err := DirHash(dir)
		if err != nil {
			return nil, err
		}
		out[dir] = sum
	}
	return out, nil
}

func sameSnapshot(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
