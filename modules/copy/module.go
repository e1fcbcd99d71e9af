package copy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/transform"
)

// Name is the transform name used in pipeline files.
const Name = "copy"

// Module implements the transform.Module interface for this package.
type Module struct{}

// Input declares the options of a copy task.
type Input struct {
	// Flatten drops the input's directories and copies every file straight
	// into the output directory.
	Flatten bool `cty:"flatten"`
}

// OnRunCopy copies every input below the output directory, keeping its
// position relative to the request base unless flatten is set.
func OnRunCopy(ctx context.Context, req *transform.Request) (*transform.Result, error) {
	logger := ctxlog.FromContext(ctx).With("transform", Name, "task", req.Task)
	if req.Output == "" {
		return nil, fmt.Errorf("no output configured")
	}
	var opts Input
	if err := req.Decode(&opts); err != nil {
		return nil, err
	}

	res := &transform.Result{}
	for _, in := range req.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst := filepath.Join(req.Output, filepath.Base(in))
		if !opts.Flatten {
			var err error
			if dst, err = req.OutputPath(in); err != nil {
				return nil, err
			}
		}
		if err := copyFile(in, dst); err != nil {
			return nil, err
		}
		res.Outputs = append(res.Outputs, dst)
	}
	logger.Debug("Files copied.", "count", len(res.Outputs), "output", req.Output)
	return res, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

// Register registers the transform.
func (m *Module) Register(r *transform.Registry) {
	r.Register(Name, transform.Func(OnRunCopy))
}
