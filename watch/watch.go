package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/JA3G3R/reviewcrew/logging"
	"github.com/JA3G3R/reviewcrew/scanners"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the tree must stay quiet before a change
// batch is delivered.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to supported source files under a directory.
type Watcher struct {
	Root     string
	Debounce time.Duration
	Log      *zap.SugaredLogger

	watcher *fsnotify.Watcher
}

// New watches root and every non-skipped directory below it.
func New(root string, debounce time.Duration, log *zap.SugaredLogger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log = logging.OrNop(log)
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{Root: root, Debounce: debounce, Log: log, watcher: fw}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && scanners.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.Log.Debugw("watching", "dir", path)
		return nil
	})
}

// Run delivers debounced batches of changed paths, sorted, to onChange
// until ctx is done. onChange runs on the watcher goroutine; events that
// arrive meanwhile are batched for the next call. Run closes the watcher.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	defer w.watcher.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !scanners.SkipDir(info.Name()) {
						if err := w.addTree(event.Name); err != nil {
							w.Log.Warnw("watch new directory", "dir", event.Name, "error", err)
						}
					}
					continue
				}
			}
			if scanners.LanguageFor(event.Name) == "" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.Debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			onChange(paths)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Log.Warnw("watch error", "error", err)
		}
	}
}
