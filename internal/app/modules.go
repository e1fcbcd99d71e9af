package app

import (
	"github.com/specialistvlad/assetgridgo/internal/transform"
	clearmod "github.com/specialistvlad/assetgridgo/modules/clear"
	"github.com/specialistvlad/assetgridgo/modules/concat"
	copymod "github.com/specialistvlad/assetgridgo/modules/copy"
	execmod "github.com/specialistvlad/assetgridgo/modules/exec"
	"github.com/specialistvlad/assetgridgo/modules/fetch"
	"github.com/specialistvlad/assetgridgo/modules/publish"
	tmpl "github.com/specialistvlad/assetgridgo/modules/template"
)

// coreModules is the definitive list of all transforms that are compiled
// into the assetgridgo binary.
var coreModules = []transform.Module{
	&clearmod.Module{},
	&copymod.Module{},
	&concat.Module{},
	&tmpl.Module{},
	&execmod.Module{},
	&fetch.Module{},
	&publish.Module{},
}
