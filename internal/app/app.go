package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/specialistvlad/assetgridgo/internal/config"
	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/devserver"
	"github.com/specialistvlad/assetgridgo/internal/gate"
	"github.com/specialistvlad/assetgridgo/internal/registry"
	"github.com/specialistvlad/assetgridgo/internal/reload"
	"github.com/specialistvlad/assetgridgo/internal/scheduler"
	"github.com/specialistvlad/assetgridgo/internal/transform"
	"github.com/specialistvlad/assetgridgo/internal/watcher"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW        io.Writer
	logger      *slog.Logger
	config      *Config
	model       *config.Model
	profile     *config.Profile
	transforms  *transform.Registry
	tasks       *registry.Registry
	scheduler   *scheduler.Scheduler
	server      *devserver.Server
	broadcaster *reload.Broadcaster
	rules       []watcher.Rule
	debounce    time.Duration
}

// NewApp is the constructor for the main application. Configuration errors
// are fatal at startup, so they panic; cmd/cli recovers them into an exit
// code.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...transform.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline: %w", err))
	}
	logger.Debug("Pipeline loaded and translated into unified model.", "root", model.Root)

	profile, err := model.Profile(appConfig.Profile)
	if err != nil {
		panic(err)
	}
	logger.Debug("Profile resolved.", "profile", profile.Name)

	transforms := transform.NewRegistry()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(transforms)
	}
	logger.Debug("All transforms registered.", "names", transforms.Names())

	defs, err := model.Compositions()
	if err != nil {
		panic(err)
	}
	tasks := registry.New()
	if err := tasks.DefineAll(defs...); err != nil {
		panic(fmt.Errorf("failed to register tasks: %w", err))
	}
	tasks.Freeze()
	if err := tasks.Validate(ctx, transforms); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.", "tasks", len(defs))

	rules, err := watchRules(model, tasks)
	if err != nil {
		panic(err)
	}

	debounce := appConfig.Debounce
	if debounce == 0 {
		if debounce, err = model.Project.DebounceDuration(); err != nil {
			panic(err)
		}
	}

	port := appConfig.Port
	if port == 0 {
		port = model.Server.Port
	}
	if port == 0 {
		port = DefaultPort
	}

	output := model.Project.Output
	if !filepath.IsAbs(output) {
		output = filepath.Join(model.Root, filepath.FromSlash(output))
	}

	server := devserver.New(ctx, devserver.Config{
		Dir:    output,
		Port:   port,
		Health: appConfig.Healthcheck || model.Server.Health,
	})

	return &App{
		outW:        outW,
		logger:      logger,
		config:      appConfig,
		model:       model,
		profile:     profile,
		transforms:  transforms,
		tasks:       tasks,
		scheduler:   scheduler.New(model.Root, transforms, gate.New(nil), scheduler.WithProfile(profile.Name, profile.Vars)),
		server:      server,
		broadcaster: reload.New(tasks, server, output),
		rules:       rules,
		debounce:    debounce,
	}
}

// watchRules translates the watch blocks, checking every task they name.
func watchRules(model *config.Model, tasks *registry.Registry) ([]watcher.Rule, error) {
	rules := make([]watcher.Rule, 0, len(model.Watches))
	for _, w := range model.Watches {
		for _, name := range w.Tasks {
			if _, ok := tasks.Task(name); !ok {
				return nil, fmt.Errorf("watch rule '%s': %w", w.Name, &registry.UnknownTaskError{Name: name})
			}
		}
		rules = append(rules, watcher.Rule{Name: w.Name, Patterns: w.Patterns, Tasks: w.Tasks})
	}
	return rules, nil
}

// Registry returns the application's task registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.tasks
}

// Scheduler returns the application's scheduler. This is primarily for testing.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Server returns the dev server.
func (a *App) Server() *devserver.Server {
	return a.server
}

// Profile returns the active configuration profile.
func (a *App) Profile() *config.Profile {
	return a.profile
}
