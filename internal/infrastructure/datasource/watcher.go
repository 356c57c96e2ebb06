package datasource

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
)

// DefaultDebounce is the quiet period before a burst of file events turns
// into one reload.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc is called once per debounced burst with the changed files.
type ReloadFunc func(ctx context.Context, changed []string)

// Watcher watches dataset files and triggers reloads.  It watches the
// parent directories so files replaced by rename are still seen.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	reload   ReloadFunc
	logger   logging.Logger
}

// NewWatcher watches files (empty entries are ignored).
func NewWatcher(files []string, debounce time.Duration, reload ReloadFunc, log logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]bool),
		debounce: debounce,
		reload:   reload,
		logger:   log.Named("watcher"),
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for d := range dirs {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			pending[filepath.Clean(ev.Name)] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Err(err))

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for f := range pending {
				changed = append(changed, f)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)
			w.logger.Info("dataset files changed", logging.Strings("files", changed))
			w.reload(ctx, changed)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !w.files[filepath.Clean(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// Watch runs a Watcher over the manager's dataset files.  It only applies
// to file sources and blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, debounce time.Duration) error {
	if m.src.Kind() != KindFile {
		m.logger.Info("dataset watch skipped for non-file source", logging.String("source", m.src.Kind()))
		return nil
	}
	w, err := NewWatcher([]string{m.paths.Policy, m.paths.Sections, m.paths.Entries}, debounce,
		func(ctx context.Context, changed []string) {
			_, _ = m.Reload(ctx, changed...)
		}, m.logger)
	if err != nil {
		return err
	}
	w.Run(ctx)
	return nil
}
