package hcl

import (
	"errors"

	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes every top-level block of a pipeline file.
type fileRoot struct {
	Project  *projectBlock   `hcl:"project,block"`
	Server   *serverBlock    `hcl:"server,block"`
	Profiles []*profileBlock `hcl:"profile,block"`
	Tasks    []*taskBlock    `hcl:"task,block"`
	Watches  []*watchBlock   `hcl:"watch,block"`
}

// merge appends o's blocks. project and server may appear in one file only.
func (r *fileRoot) merge(o *fileRoot) error {
	if o.Project != nil {
		if r.Project != nil {
			return errors.New("block 'project' is declared in more than one file")
		}
		r.Project = o.Project
	}
	if o.Server != nil {
		if r.Server != nil {
			return errors.New("block 'server' is declared in more than one file")
		}
		r.Server = o.Server
	}
	r.Profiles = append(r.Profiles, o.Profiles...)
	r.Tasks = append(r.Tasks, o.Tasks...)
	r.Watches = append(r.Watches, o.Watches...)
	return nil
}

type projectBlock struct {
	Output   string `hcl:"output,optional"`
	Debounce string `hcl:"debounce,optional"`
}

type serverBlock struct {
	Port   int  `hcl:"port,optional"`
	Health bool `hcl:"health,optional"`
}

type profileBlock struct {
	Name string         `hcl:"name,label"`
	Vars hcl.Expression `hcl:"vars,optional"`
}

type taskBlock struct {
	Name        string         `hcl:"name,label"`
	Transform   string         `hcl:"transform,optional"`
	Inputs      []string       `hcl:"inputs,optional"`
	Base        string         `hcl:"base,optional"`
	Output      string         `hcl:"output,optional"`
	Options     hcl.Expression `hcl:"options,optional"`
	Incremental *bool          `hcl:"incremental,optional"`
	StyleOnly   bool           `hcl:"style_only,optional"`
	Series      []string       `hcl:"series,optional"`
	Parallel    []string       `hcl:"parallel,optional"`
}

type watchBlock struct {
	Name     string   `hcl:"name,label"`
	Patterns []string `hcl:"patterns"`
	Tasks    []string `hcl:"tasks"`
}
