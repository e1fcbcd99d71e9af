package app_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/assetgridgo/internal/app"
	"github.com/specialistvlad/assetgridgo/internal/hcl"
	"github.com/specialistvlad/assetgridgo/internal/testutil"
	"github.com/specialistvlad/assetgridgo/internal/transform"
)

const pipelineFile = "assetgrid.hcl"

// harnessResult holds the outcome of building an App for a test.
type harnessResult struct {
	Root string
	Logs *testutil.SafeBuffer
	Err  error
	App  *app.App
}

// LogOutput returns everything logged so far.
func (r *harnessResult) LogOutput() string {
	return r.Logs.String()
}

// newTestApp writes files into a temporary project root and builds an App
// for its pipeline file. files must contain pipelineFile. A startup panic is
// returned as Err instead of failing the test.
func newTestApp(t *testing.T, files map[string]string, cfg app.Config, modules ...transform.Module) *harnessResult {
	t.Helper()

	root := t.TempDir()
	testutil.WriteFiles(t, root, files)

	cfg.PipelinePath = filepath.Join(root, pipelineFile)
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	res := &harnessResult{Root: root, Logs: &testutil.SafeBuffer{}}
	t.Cleanup(func() {
		if testutil.LogsEnabled() {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.Logs.String())
		}
	})

	appConfig, err := app.NewConfig(cfg)
	if err != nil {
		res.Err = err
		return res
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		res.App = app.NewApp(res.Logs, appConfig, hcl.NewLoader(), modules...)
	}()
	return res
}
