package template

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/fsutil"
	"github.com/specialistvlad/assetgridgo/internal/transform"
)

// Name is the transform name used in pipeline files.
const Name = "template"

// Module implements the transform.Module interface for this package.
type Module struct{}

// Data is what every page template is executed with.
type Data struct {
	// Profile is the name of the active configuration profile.
	Profile string
	// Vars are the active profile's variables.
	Vars map[string]any
	// Page is the page path relative to the request base, slash separated.
	Page string
}

// Input declares the options of a template task.
type Input struct {
	// Partials are glob patterns of shared templates parsed alongside each
	// page so pages can {{template "name"}} them.
	Partials []string `cty:"partials"`
}

// OnRunTemplate renders every input page with html/template. Each page keeps its position relative to the request base below the
// output directory.
func OnRunTemplate(ctx context.Context, req *transform.Request) (*transform.Result, error) {
	logger := ctxlog.FromContext(ctx).With("transform", Name, "task", req.Task)
	if req.Output == "" {
		return nil, fmt.Errorf("no output configured")
	}

	var in Input
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	var partials []string
	if len(in.Partials) > 0 {
		var err error
		partials, err = fsutil.Expand(req.Root, in.Partials)
		if err != nil {
			return nil, fmt.Errorf("expanding partials: %w", err)
		}
	}

	res := &transform.Result{}
	for _, page := range req.Inputs {
		dst, err := req.OutputPath(page)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(req.Base, page)
		if err != nil {
			rel = filepath.Base(page)
		}

		out, err := render(page, partials, Data{Profile: req.Profile, Vars: req.Vars, Page: filepath.ToSlash(rel)})
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(dst, out, 0o644); err != nil {
			return nil, err
		}
		res.Outputs = append(res.Outputs, dst)
	}
	logger.Debug("Pages rendered.", "count", len(res.Outputs), "partials", len(partials))
	return res, nil
}

func render(page string, partials []string, data Data) ([]byte, error) {
	src, err := os.ReadFile(page)
	if err != nil {
		return nil, err
	}
	tmpl := template.New(filepath.Base(page)).Option("missingkey=error")
	if len(partials) > 0 {
		if tmpl, err = tmpl.ParseFiles(partials...); err != nil {
			return nil, fmt.Errorf("parsing partials: %w", err)
		}
	}
	if tmpl, err = tmpl.Parse(string(src)); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", page, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", page, err)
	}
	return buf.Bytes(), nil
}

// Register registers the transform.
func (m *Module) Register(r *transform.Registry) {
	r.Register(Name, transform.Func(OnRunTemplate))
}
