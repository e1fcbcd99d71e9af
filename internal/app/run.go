package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/scheduler"
	"github.com/specialistvlad/assetgridgo/internal/watcher"
	"golang.org/x/sync/errgroup"
)

// Run executes the configured command. It returns when the command completes
// or, for long-running commands, when ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command, "profile", a.profile.Name)
	defer a.logger.Debug("App.Run method finished.")

	switch a.config.Command {
	case CommandBuild:
		// The build starts from an empty output, so nothing recorded so far
		// can be trusted.
		a.scheduler.Gate().Reset()
		return a.RunTask(ctx, CommandBuild)
	case CommandDev:
		return a.RunTask(ctx, CommandDev)
	case CommandRun:
		return a.RunTask(ctx, a.config.Task)
	case CommandServe:
		return a.server.Serve(ctx)
	case CommandWatch:
		return a.watch(ctx)
	case CommandDefault:
		if err := a.RunTask(ctx, CommandDev); err != nil {
			return err
		}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return a.server.Serve(gctx) })
		g.Go(func() error { return a.watch(gctx) })
		return g.Wait()
	default:
		return fmt.Errorf("unknown command '%s'", a.config.Command)
	}
}

// RunTask resolves and runs a single registry task.
func (a *App) RunTask(ctx context.Context, name string) error {
	logger := ctxlog.FromContext(ctx)

	node, err := a.tasks.Resolve(name)
	if err != nil {
		return err
	}
	logger.Debug("Resolved composition.", "tree", node.String())

	out := a.scheduler.Run(ctx, node)
	if !out.Succeeded() {
		for _, cause := range scheduler.Flatten(out.Err) {
			logger.Error("Task failed.", "error", cause)
		}
		return fmt.Errorf("task '%s' failed: %w", name, out.Err)
	}
	return nil
}

func (a *App) watch(ctx context.Context) error {
	if len(a.rules) == 0 {
		ctxlog.FromContext(ctx).Warn("No watch rules declared, nothing to watch.")
		<-ctx.Done()
		return nil
	}
	w, err := watcher.New(a.model.Root, a.rules, a.onTrigger, watcher.WithDebounce(a.debounce))
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// onTrigger runs the union of a trigger's tasks and tells the browsers.
// Failures are logged and never stop the watcher.
func (a *App) onTrigger(ctx context.Context, t watcher.Trigger) {
	logger := ctxlog.FromContext(ctx)

	node, err := a.tasks.Compose("watch:"+strings.Join(t.Rules, "+"), t.Tasks...)
	if err != nil {
		logger.Error("Cannot run triggered tasks.", "tasks", t.Tasks, "error", err)
		return
	}
	out := a.scheduler.Run(ctx, node)
	a.broadcaster.Notify(ctx, t.Tasks, out)
}
