package hcl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/assetgridgo/internal/config"
	"github.com/specialistvlad/assetgridgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const pipelineHCL = `
project {
  output   = "public"
  debounce = "250ms"
}

server {
  port   = 4000
  health = true
}

profile "development" {
  vars = { minify = false, api = "http://localhost:8080" }
}

profile "production" {
  vars = { minify = true, api = env.API_URL }
}

task "clear" {
  transform = "clear"
  output    = "public"
}

task "images" {
  transform   = "copy"
  inputs      = ["src/img/**/*.{png,jpg}"]
  base        = "src/img"
  output      = "public/img"
  incremental = false
}

task "styles" {
  transform  = "exec"
  style_only = true
  inputs     = ["src/sass/**/*.scss", "!src/sass/**/_*.scss"]
  output     = "public/css"
  options = {
    command = "sass {inputs} {output}/app.css"
    outputs = ["app.css"]
    timeout = "30s"
  }
}

task "assets" { parallel = ["images", "styles"] }
task "build" { series = ["clear", "assets"] }

watch "styles" {
  patterns = ["src/sass/**/*.scss"]
  tasks    = ["styles"]
}
`

func writePipeline(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func testLoader() *Loader {
	return &Loader{environ: func() []string {
		return []string{"API_URL=https://api.example.com", "EMPTY="}
	}}
}

func TestLoad_HCL(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	path := writePipeline(t, "assetgrid.hcl", pipelineHCL)

	// --- Act ---
	model, err := testLoader().Load(ctx, path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(path), model.Root)
	assert.Equal(t, config.Project{Output: "public", Debounce: "250ms"}, model.Project)
	assert.Equal(t, config.Server{Port: 4000, Health: true}, model.Server)

	require.Len(t, model.Profiles, 2)
	assert.Equal(t, map[string]any{"minify": true, "api": "https://api.example.com"}, model.Profiles["production"].Vars)

	off := false
	want := []*config.Task{
		{Name: "clear", Transform: "clear", Output: "public"},
		{Name: "images", Transform: "copy", Inputs: []string{"src/img/**/*.{png,jpg}"}, Base: "src/img", Output: "public/img", Incremental: &off},
		{Name: "styles", Transform: "exec", StyleOnly: true, Inputs: []string{"src/sass/**/*.scss", "!src/sass/**/_*.scss"}, Output: "public/css"},
		{Name: "assets", Parallel: []string{"images", "styles"}},
		{Name: "build", Series: []string{"clear", "assets"}},
	}
	if diff := cmp.Diff(want, model.Tasks, cmpopts.IgnoreFields(config.Task{}, "Options")); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
	for _, task := range model.Tasks {
		if task.Name == "styles" {
			continue
		}
		assert.True(t, task.Options.RawEquals(cty.EmptyObjectVal), "task %s has no options", task.Name)
	}
	wantOptions := cty.ObjectVal(map[string]cty.Value{
		"command": cty.StringVal("sass {inputs} {output}/app.css"),
		"outputs": cty.TupleVal([]cty.Value{cty.StringVal("app.css")}),
		"timeout": cty.StringVal("30s"),
	})
	assert.True(t, model.Tasks[2].Options.RawEquals(wantOptions), "styles options: %#v", model.Tasks[2].Options)

	assert.Equal(t, []*config.Watch{{Name: "styles", Patterns: []string{"src/sass/**/*.scss"}, Tasks: []string{"styles"}}}, model.Watches)

	compositions, err := model.Compositions()
	require.NoError(t, err)
	assert.Len(t, compositions, 5)
}

func TestLoad_JSON(t *testing.T) {
	ctx, _ := testutil.Context(t)
	path := writePipeline(t, "assetgrid.json", `{
  "task": {
    "pages": {
      "transform": "template",
      "inputs": ["src/*.html"],
      "output": "dist",
      "options": {"layout": "src/layout.html"}
    }
  },
  "watch": {
    "pages": {"patterns": ["src/*.html"], "tasks": ["pages"]}
  }
}`)

	model, err := testLoader().Load(ctx, path)

	require.NoError(t, err)
	assert.Equal(t, config.DefaultOutput, model.Project.Output)
	require.Len(t, model.Tasks, 1)
	assert.Equal(t, "template", model.Tasks[0].Transform)
	assert.Equal(t, "src/layout.html", model.Tasks[0].Options.GetAttr("layout").AsString())
	require.Len(t, model.Watches, 1)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "syntax error",
			content: `task "a" {`,
			want:    "failed to parse pipeline file",
		},
		{
			name:    "unknown attribute",
			content: `task "a" { transfrom = "copy" }`,
			want:    "failed to decode pipeline file",
		},
		{
			name: "options not an object",
			content: `
task "a" {
  transform = "copy"
  options   = "x"
}
`,
			want: "task 'a' options must be an object",
		},
		{
			name: "duplicate profile",
			content: `
profile "dev" {}
profile "dev" {}
`,
			want: "profile 'dev' is declared twice",
		},
		{
			name:    "unknown variable",
			content: `profile "dev" { vars = { a = nope.value } }`,
			want:    "profile 'dev' vars",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)
			path := writePipeline(t, "assetgrid.hcl", tc.content)

			_, err := testLoader().Load(ctx, path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	ctx, _ := testutil.Context(t)
	_, err := NewLoader().Load(ctx, filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)
}

func TestLoad_Directory(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"project.hcl": "project {\n  output = \"public\"\n}\n",
		"tasks/images.hcl": `task "images" {
  transform = "copy"
  inputs    = ["src/**/*.png"]
  output    = "public/img"
}
`,
		"tasks/build.hcl": "task \"build\" { series = [\"images\"] }\n",
		"README.md":       "not a pipeline file",
	})

	// --- Act ---
	model, err := testLoader().Load(ctx, dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, dir, model.Root)
	assert.Equal(t, "public", model.Project.Output)
	names := make([]string, 0, len(model.Tasks))
	for _, task := range model.Tasks {
		names = append(names, task.Name)
	}
	assert.ElementsMatch(t, []string{"images", "build"}, names)
}

func TestLoad_DirectoryErrors(t *testing.T) {
	ctx, _ := testutil.Context(t)

	_, err := testLoader().Load(ctx, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .hcl files found")

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"a.hcl": "project {\n  output = \"a\"\n}\n",
		"b.hcl": "project {\n  output = \"b\"\n}\n",
	})
	_, err = testLoader().Load(ctx, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block 'project' is declared in more than one file")
}

func TestLoad_StarterExample(t *testing.T) {
	ctx, _ := testutil.Context(t)

	model, err := testLoader().Load(ctx, filepath.Join("..", "..", "examples", "starter", "assetgrid.hcl"))

	require.NoError(t, err)
	styleOnly := make(map[string]bool)
	for _, task := range model.Tasks {
		styleOnly[task.Name] = task.StyleOnly
	}
	require.NotEmpty(t, model.Watches)
	var injecting []string
	for _, w := range model.Watches {
		mixed := false
		for _, name := range w.Tasks {
			mixed = mixed || styleOnly[name] != styleOnly[w.Tasks[0]]
		}
		assert.False(t, mixed, "watch '%s' mixes style-only and other tasks, so a stylesheet edit reloads the page", w.Name)
		if styleOnly[w.Tasks[0]] {
			injecting = append(injecting, w.Name)
		}
	}
	assert.Equal(t, []string{"styles"}, injecting)
}
