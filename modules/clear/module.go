package clear

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/fsutil"
	"github.com/specialistvlad/assetgridgo/internal/transform"
)

// Name is the transform name used in pipeline files.
const Name = "clear"

// Module implements the transform.Module interface for this package.
type Module struct{}

// Input declares the options of a clear task. It has none, so any option is
// reported as unsupported.
type Input struct{}

// OnRunClear removes the task's output location. A missing output is not an
// error. The output must lie strictly inside the project root.
func OnRunClear(ctx context.Context, req *transform.Request) (*transform.Result, error) {
	logger := ctxlog.FromContext(ctx).With("transform", Name, "task", req.Task)

	if err := req.Decode(new(Input)); err != nil {
		return nil, err
	}
	if req.Output == "" {
		return nil, fmt.Errorf("no output configured")
	}
	rel, ok := fsutil.Rel(req.Root, req.Output)
	if !ok || rel == "." {
		return nil, fmt.Errorf("refusing to remove %s: not inside project root %s", req.Output, req.Root)
	}

	if err := os.RemoveAll(req.Output); err != nil {
		return nil, fmt.Errorf("removing %s: %w", req.Output, err)
	}
	logger.Debug("Output removed.", "path", req.Output)
	return &transform.Result{}, nil
}

// Register registers the transform.
func (m *Module) Register(r *transform.Registry) {
	r.Register(Name, transform.Func(OnRunClear))
}
