package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// pathLocker provides per-path mutual exclusion.
type pathLocker struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	sync.Mutex
	refs int
}

func newPathLocker() *pathLocker {
	return &pathLocker{locks: make(map[string]*pathLock)}
}

func (pl *pathLocker) Lock(path string) {
	pl.mu.Lock()
	l, ok := pl.locks[path]
	if !ok {
		l = &pathLock{}
		pl.locks[path] = l
	}
	l.refs++
	pl.mu.Unlock()
	l.Lock()
}

// Unlock releases path. The entry is dropped once no goroutine holds or waits
// for it.
func (pl *pathLocker) Unlock(path string) {
	pl.mu.Lock()
	l, ok := pl.locks[path]
	if !ok {
		pl.mu.Unlock()
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(pl.locks, path)
	}
	pl.mu.Unlock()
	l.Unlock()
}

// StartWatch keeps the document index in step with the file system until ctx
// is done or the returned stop function is called. Watches are in place when
// StartWatch returns.
func (w *Workspace) StartWatch(ctx context.Context) (stop func(), err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watchRecursive(fw, w.root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", w.root, err)
	}
	w.log.Info("Watching vault", zap.String("root", w.root), zap.Int("documents", len(w.Leaves())))

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	// Polling fallback for network file systems where inotify stays silent.
	if d := w.cfg.PollDuration(); d > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.pollLoop(ctx, d)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.eventLoop(ctx, fw)
	}()

	return func() {
		cancel()
		fw.Close()
		wg.Wait()
	}, nil
}

func watchRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func (w *Workspace) eventLoop(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				// A rename reports the old name; the new one arrives as Create.
				if _, err := os.Stat(ev.Name); err != nil {
					w.remove(ev.Name)
				}
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				info, err := os.Stat(ev.Name)
				if err != nil {
					continue
				}
				if info.IsDir() {
					if err := watchRecursive(fw, ev.Name); err != nil {
						w.log.Warn("Unable to watch directory", zap.String("dir", ev.Name), zap.Error(err))
					}
					w.scan(ev.Name)
					continue
				}
				w.add(ev.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watcher error", zap.Error(err))
		}
	}
}

// pollLoop rebuilds the index at a fixed interval.
func (w *Workspace) pollLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, rel := range w.Leaves() {
			abs := filepath.Join(w.root, filepath.FromSlash(rel))
			if _, err := os.Stat(abs); err != nil {
				w.remove(abs)
			}
		}
		w.scan(w.root)
	}
}
