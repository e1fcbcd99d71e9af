package config

import "github.com/zclconf/go-cty/cty"

// DefaultProfile is used when neither a flag nor the environment names one.
const DefaultProfile = "development"

// DefaultOutput is the output directory when the pipeline does not set one.
const DefaultOutput = "dist"

// Model is the unified representation of a pipeline file.
type Model struct {
	// Root is the directory that relative paths are resolved against, the
	// directory containing the pipeline file.
	Root     string
	Project  Project
	Server   Server
	Tasks    []*Task
	Watches  []*Watch
	Profiles map[string]*Profile
}

// Project holds settings that apply to the whole pipeline.
type Project struct {
	// Output is the build output directory, also served by the dev server.
	Output string
	// Debounce is the watcher window as a duration string, e.g. "300ms".
	Debounce string
}

// Server holds dev server settings.
type Server struct {
	Port   int
	Health bool
}

// Task is the format-agnostic representation of a `task` block. Exactly one
// of Transform, Series or Parallel is set.
type Task struct {
	Name      string
	Transform string
	Inputs    []string
	Base      string
	Output    string
	// Options is the evaluated options object, cty.EmptyObjectVal when the
	// task sets none.
	Options cty.Value
	// Incremental is nil when the file does not say; leaves default to true.
	Incremental *bool
	StyleOnly   bool
	Series      []string
	Parallel    []string
}

// Watch is the format-agnostic representation of a `watch` block.
type Watch struct {
	Name     string
	Patterns []string
	Tasks    []string
}

// Profile is a named set of variables handed to transforms.
type Profile struct {
	Name string
	Vars map[string]any
}
