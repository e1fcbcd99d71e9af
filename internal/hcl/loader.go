package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/assetgridgo/internal/config"
	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL pipeline loader. Expressions can read the
// process environment through `env.NAME`.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// Load parses the pipeline at path. A directory is read as one pipeline
// spread over every .hcl file below it. Files ending in ".json" are read as
// HCL JSON, everything else as native HCL.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx).With("path", path)
	logger.Debug("HCL loader started.")

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline file %s: %w", path, err)
	}

	files := []string{absPath}
	rootDir := filepath.Dir(absPath)
	if info.IsDir() {
		rootDir = absPath
		if files, err = fsutil.FindFilesByExtension(absPath, ".hcl"); err != nil {
			return nil, fmt.Errorf("failed to list pipeline files in %s: %w", path, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no .hcl files found in %s", path)
		}
		logger.Debug("Discovered pipeline files.", "count", len(files))
	}

	evalCtx, err := evalContext(l.environ())
	if err != nil {
		return nil, err
	}

	parser := hclparse.NewParser()
	merged := &fileRoot{}
	for _, f := range files {
		root, err := decodeFile(parser, f, evalCtx)
		if err != nil {
			return nil, err
		}
		if err := merged.merge(root); err != nil {
			return nil, fmt.Errorf("pipeline file %s: %w", f, err)
		}
	}

	model, err := l.translate(ctx, merged, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("pipeline file %s: %w", path, err)
	}
	model.Root = rootDir

	logger.Debug("HCL loading complete.", "tasks", len(model.Tasks), "watches", len(model.Watches), "profiles", len(model.Profiles))
	return model, nil
}

func decodeFile(parser *hclparse.Parser, path string, evalCtx *hcl.EvalContext) (*fileRoot, error) {
	var file *hcl.File
	var diags hcl.Diagnostics
	if strings.EqualFold(filepath.Ext(path), ".json") {
		file, diags = parser.ParseJSONFile(path)
	} else {
		file, diags = parser.ParseHCLFile(path)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse pipeline file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode pipeline file %s: %w", path, diags)
	}
	return &root, nil
}

// translate converts the decoded blocks into the agnostic model.
func (l *Loader) translate(ctx context.Context, root *fileRoot, evalCtx *hcl.EvalContext) (*config.Model, error) {
	model := &config.Model{
		Project:  config.Project{Output: config.DefaultOutput},
		Profiles: make(map[string]*config.Profile),
	}

	if root.Project != nil {
		if root.Project.Output != "" {
			model.Project.Output = root.Project.Output
		}
		model.Project.Debounce = root.Project.Debounce
	}
	if root.Server != nil {
		model.Server = config.Server{Port: root.Server.Port, Health: root.Server.Health}
	}

	for _, p := range root.Profiles {
		if _, dup := model.Profiles[p.Name]; dup {
			return nil, fmt.Errorf("profile '%s' is declared twice", p.Name)
		}
		vars, err := objectValue(ctx, p.Vars, evalCtx, fmt.Sprintf("profile '%s' vars", p.Name))
		if err != nil {
			return nil, err
		}
		model.Profiles[p.Name] = &config.Profile{Name: p.Name, Vars: vars}
	}

	for _, t := range root.Tasks {
		opts, err := optionsValue(ctx, t.Options, evalCtx, fmt.Sprintf("task '%s' options", t.Name))
		if err != nil {
			return nil, err
		}
		model.Tasks = append(model.Tasks, &config.Task{
			Name:        t.Name,
			Transform:   t.Transform,
			Inputs:      t.Inputs,
			Base:        t.Base,
			Output:      t.Output,
			Options:     opts,
			Incremental: t.Incremental,
			StyleOnly:   t.StyleOnly,
			Series:      t.Series,
			Parallel:    t.Parallel,
		})
	}

	for _, w := range root.Watches {
		model.Watches = append(model.Watches, &config.Watch{
			Name:     w.Name,
			Patterns: w.Patterns,
			Tasks:    w.Tasks,
		})
	}
	return model, nil
}
