// Package watch re-runs a callback when watched files change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ByLCY/inkpost/logx"
)

// DefaultDebounce is how long to wait after the last change before running.
const DefaultDebounce = 500 * time.Millisecond

// Run watches the files returned by paths until ctx is done and calls fn once
// per burst of changes. paths is evaluated again after every call to fn, so
// files that appear in the list later are picked up. Parent directories are
// watched so files replaced by editors are still seen. Errors from fn are
// logged and do not stop watching.
func Run(ctx context.Context, paths func() []string, debounce time.Duration, fn func(context.Context) error) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	s := &state{w: w, targets: map[string]bool{}, dirs: map[string]bool{}}
	if err := s.update(paths()); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !s.targets[abs] {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			logx.L().Debug("file changed", "path", abs, "op", event.Op.String())
			timer.Reset(debounce)
		case <-timer.C:
			if err := fn(ctx); err != nil {
				logx.L().Error("run after change failed", "err", err)
			}
			if err := s.update(paths()); err != nil {
				logx.L().Warn("could not watch new files", "err", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logx.L().Warn("watcher error", "err", err)
		}
	}
}

type state struct {
	w       *fsnotify.Watcher
	targets map[string]bool
	dirs    map[string]bool
}

// update replaces the target set and watches any directory not seen before.
func (s *state) update(paths []string) error {
	targets := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if s.dirs[dir] {
			continue
		}
		if err := s.w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch folder %s: %w", dir, err)
		}
		s.dirs[dir] = true
		logx.L().Info("watching folder", "dir", dir)
	}
	s.targets = targets
	return nil
}
