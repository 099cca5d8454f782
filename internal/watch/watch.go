// Package watch re-reads log files when they change on disk.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"

	"github.com/newhook/triage/internal/logging"
)

// Config configures a Watcher.
type Config struct {
	// Paths are the log files to watch. They need not exist yet.
	Paths []string
	// Debounce coalesces bursts of events for the same file.
	Debounce time.Duration
	// MaxWait bounds how long a changed file waits for writes to settle, so a
	// log that is written continuously is still reported. Defaults to 8x Debounce.
	MaxWait time.Duration
	// DedupeTTL is how long a file digest is remembered. A file whose content
	// matches the remembered digest is not handed to the handler again.
	DedupeTTL time.Duration
}

// Handler receives the full content of a changed file.
type Handler func(path, text string)

// Watcher watches a fixed set of files.
type Watcher struct {
	cfg     Config
	targets map[string]bool
	order   []string
	fsw     *fsnotify.Watcher
	digests *cache.Cache
}

// New creates a watcher for cfg.Paths. The parent directory of each file is
// watched so files that are replaced or created later are still seen.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if cfg.MaxWait < cfg.Debounce {
		cfg.MaxWait = 8 * cfg.Debounce
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 10 * time.Minute
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		targets: make(map[string]bool),
		fsw:     fsw,
		digests: cache.New(cfg.DedupeTTL, 2*cfg.DedupeTTL),
	}

	dirs := make(map[string]bool)
	for _, p := range cfg.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		if !w.targets[abs] {
			w.targets[abs] = true
			w.order = append(w.order, abs)
		}
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	return w, nil
}

// Targets returns the absolute paths being watched, in the order given.
func (w *Watcher) Targets() []string {
	return append([]string(nil), w.order...)
}

// Run checks every target once, then calls handle for each change until ctx is
// cancelled. It closes the underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	defer w.fsw.Close()

	for _, path := range w.order {
		w.check(path, handle)
	}

	pending := make(map[string]bool)
	var firstPending time.Time
	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.targets[event.Name] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if len(pending) == 0 {
				firstPending = time.Now()
			}
			pending[event.Name] = true
			timer.Reset(w.flushDelay(time.Since(firstPending)))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warn("file watcher error", "error", err)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			for _, p := range paths {
				w.check(p, handle)
			}
		}
	}
}

// flushDelay is the debounce, cut short once changes have been pending for MaxWait.
func (w *Watcher) flushDelay(waited time.Duration) time.Duration {
	return max(min(w.cfg.Debounce, w.cfg.MaxWait-waited), 0)
}

func (w *Watcher) check(path string, handle Handler) {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Debug("skipping unreadable log", "path", path, "error", err)
		return
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	if prev, ok := w.digests.Get(path); ok && prev.(string) == digest {
		logging.Debug("log unchanged", "path", path)
		return
	}
	w.digests.Set(path, digest, cache.DefaultExpiration)

	handle(path, string(data))
}
