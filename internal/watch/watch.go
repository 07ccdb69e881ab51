// Package watch re-runs a callback whenever program item sources change on
// disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Watcher.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a set of directories for item and document changes.
type Watcher struct {
	Dirs     []string
	Debounce time.Duration
	// OnChange receives the sorted set of paths changed within one
	// debounce window.
	OnChange func(changed []string) error
	// OnError receives callback and watcher errors. Watching continues.
	OnError func(error)
	// SkipUnchanged suppresses OnChange when the contents of every watched
	// directory hash the same as at the previous callback. Editors that
	// rewrite a file without changing it then cause no rebuild.
	SkipUnchanged bool
}

// Relevant reports whether a path names an item source file. Temporary
// files from atomic writes are ignored.
func Relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.Contains(base, ".tmp-") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yml", ".yaml", ".md":
		return true
	default:
		return false
	}
}

// Run blocks until ctx is done. Directories that do not exist are skipped;
// at least one must be watchable.
func (w *Watcher) Run(ctx context.Context) error {
	if w.OnChange == nil {
		return fmt.Errorf("watch: OnChange is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	watched := 0
	for _, dir := range w.Dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("watch: none of %s exist", strings.Join(w.Dirs, ", "))
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := make(map[string]struct{})

	var last map[string]string
	if w.SkipUnchanged {
		if last, err = snapshot(w.Dirs); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !Relevant(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.report(fmt.Errorf("watch: %w", err))
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})
			if w.SkipUnchanged {
				current, err := snapshot(w.Dirs)
				if err == nil && sameSnapshot(last, current) {
					continue
				}
				if err != nil {
					w.report(err)
				} else {
					last = current
				}
			}
			if err := w.OnChange(changed); err != nil {
				w.report(err)
			}
		}
	}
}

func (w *Watcher) report(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}
