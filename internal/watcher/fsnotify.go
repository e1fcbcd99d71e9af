package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/fsutil"
	"golang.org/x/sync/errgroup"
)

// Run subscribes to the directories covered by the rules and dispatches
// triggers until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	dirs := w.baseDirs()
	for _, dir := range dirs {
		if err := addRecursive(fsw, dir); err != nil {
			return err
		}
	}
	logger.Info("👀 Watching for changes.", "rules", len(w.rules), "dirs", dirs, "debounce", w.debounce)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Dispatch(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-fsw.Events:
				if !ok {
					return nil
				}
				w.handleEvent(ctx, fsw, ev)
			case err, ok := <-fsw.Errors:
				if !ok {
					return nil
				}
				logger.Warn("File watcher error.", "error", err)
			}
		}
	})
	return g.Wait()
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	// Permission changes do not alter content.
	if ev.Op == fsnotify.Chmod {
		return
	}
	logger := ctxlog.FromContext(ctx)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addRecursive(fsw, ev.Name); err != nil {
				logger.Warn("Failed to watch new directory.", "path", ev.Name, "error", err)
			}
			return
		}
	}
	if rules := w.Notify(ev.Name); len(rules) > 0 {
		logger.Debug("Change matched watch rules.", "path", ev.Name, "op", ev.Op.String(), "rules", rules)
	}
}

// baseDirs returns the existing directories that cover every include
// pattern. A missing base falls back to its closest existing parent.
func (w *Watcher) baseDirs() []string {
	root, err := filepath.Abs(w.root)
	if err != nil {
		root = w.root
	}
	set := make(map[string]struct{})
	for _, r := range w.rules {
		for _, p := range r.Patterns {
			if strings.HasPrefix(p, "!") {
				continue
			}
			dir := filepath.Join(root, filepath.FromSlash(fsutil.StaticBase(p)))
			for {
				if info, err := os.Stat(dir); err == nil && info.IsDir() {
					break
				}
				if dir == root || filepath.Dir(dir) == dir {
					break
				}
				dir = filepath.Dir(dir)
			}
			set[dir] = struct{}{}
		}
	}

	// A directory below another one is already covered recursively.
	var out []string
	for d := range set {
		covered := false
		for o := range set {
			if o != d {
				if rel, ok := fsutil.Rel(o, d); ok && rel != "." {
					covered = true
					break
				}
			}
		}
		if !covered {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); p != dir && len(name) > 1 && name[0] == '.' {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}
