package concat

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/transform"
)

// Name is the transform name used in pipeline files.
const Name = "concat"

// Module implements the transform.Module interface for this package.
type Module struct{}

// Input declares the options of a concat task.
type Input struct {
	// File is the bundle name inside the output directory.
	File string `cty:"file"`
	// Separator is written between inputs.
	Separator string `cty:"separator"`
}

// OnRunConcat joins the inputs, in order, into one file, "all.js" unless
// the file option says otherwise. The bundle only reflects the inputs it receives, so concat tasks are
// normally declared with incremental = false.
func OnRunConcat(ctx context.Context, req *transform.Request) (*transform.Result, error) {
	logger := ctxlog.FromContext(ctx).With("transform", Name, "task", req.Task)
	if req.Output == "" {
		return nil, fmt.Errorf("no output configured")
	}

	opts := Input{File: "all.js", Separator: "\n"}
	if err := req.Decode(&opts); err != nil {
		return nil, err
	}
	if opts.File == "" {
		return nil, fmt.Errorf("option 'file' must not be empty")
	}
	sep := []byte(opts.Separator)

	var buf bytes.Buffer
	for i, in := range req.Inputs {
		b, err := os.ReadFile(in)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.Write(sep)
		}
		buf.Write(b)
	}

	dst := filepath.Join(req.Output, filepath.FromSlash(opts.File))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	logger.Debug("Bundle written.", "path", dst, "inputs", len(req.Inputs), "bytes", buf.Len())
	return &transform.Result{Outputs: []string{dst}}, nil
}

// Register registers the transform.
func (m *Module) Register(r *transform.Registry) {
	r.Register(Name, transform.Func(OnRunConcat))
}
