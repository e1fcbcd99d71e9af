package gate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
)

// Gate filters leaf inputs by modification time.
type Gate struct {
	store Store
	stat  func(string) (os.FileInfo, error)
}

// New creates a gate over store. A nil store gets a fresh MemoryStore.
func New(store Store) *Gate {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Gate{store: store, stat: os.Stat}
}

// Filter returns the candidates modified strictly after the task's record.
// Without a record every candidate is returned. Files that vanished since
// they were listed are dropped.
func (g *Gate) Filter(ctx context.Context, taskID string, candidates []string) ([]string, error) {
	logger := ctxlog.FromContext(ctx).With("task", taskID)

	since, ok := g.store.Load(taskID)
	if !ok {
		logger.Debug("No incremental record, passing every input.", "inputs", len(candidates))
		return append([]string(nil), candidates...), nil
	}

	var out []string
	for _, c := range candidates {
		info, err := g.stat(c)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("Input disappeared before filtering.", "path", c)
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", c, err)
		}
		if info.ModTime().After(since) {
			out = append(out, c)
		}
	}
	logger.Debug("Filtered inputs.", "since", since, "candidates", len(candidates), "changed", len(out))
	return out, nil
}

// Commit stores runStart as the task's new record. Call it only after the
// task's transform reported success.
func (g *Gate) Commit(taskID string, runStart time.Time) {
	g.store.Save(taskID, runStart)
}

// Record returns the task's current record.
func (g *Gate) Record(taskID string) (time.Time, bool) {
	return g.store.Load(taskID)
}

// Reset forgets the records of the given tasks, or of all tasks when none
// are named.
func (g *Gate) Reset(taskIDs ...string) {
	if len(taskIDs) == 0 {
		g.store.Clear()
		return
	}
	for _, id := range taskIDs {
		g.store.Delete(id)
	}
}
