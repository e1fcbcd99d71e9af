package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/specialistvlad/assetgridgo/internal/app"
	"github.com/specialistvlad/assetgridgo/internal/config"
)

// EnvProfile names the environment variable that selects the profile when
// -profile is not given.
const EnvProfile = "ASSETGRID_ENV"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("assetgridgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprintf(output, `
assetgridgo - An asset pipeline orchestrator with live reload.

Usage:
  assetgridgo [options] [COMMAND]
  assetgridgo [options] run TASK

Commands:
  build     Clear the output and run the 'build' task.
  dev       Run the 'dev' task once.
  serve     Start the dev server until interrupted.
  watch     Re-run tasks when watched files change.
  default   Run 'dev', then serve and watch (the default).
  run       Run a single declared task, e.g. 'run deploy'.

Environment:
  %s selects the profile when -profile is not given (default %q).

Options:
`, EnvProfile, config.DefaultProfile)
		flagSet.PrintDefaults()
	}

	pipelineFlag := flagSet.String("pipeline", "assetgrid.hcl", "Path to the pipeline file (.hcl, or .json for HCL JSON), or a directory of .hcl files.")
	pFlag := flagSet.String("p", "", "Path to the pipeline file (shorthand).")
	profileFlag := flagSet.String("profile", "", "Configuration profile to use. Overrides "+EnvProfile+".")
	portFlag := flagSet.Int("port", 0, "Dev server port. 0 uses the pipeline setting.")
	debounceFlag := flagSet.Duration("debounce", 0, "Watch debounce window, e.g. 300ms. 0 uses the pipeline setting.")
	healthFlag := flagSet.Bool("healthcheck", false, "Expose /health on the dev server.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	command := app.CommandDefault
	task := ""
	if flagSet.NArg() > 0 {
		command = flagSet.Arg(0)
	}
	switch {
	case command == app.CommandRun && flagSet.NArg() == 2:
		task = flagSet.Arg(1)
	case command == app.CommandRun && flagSet.NArg() != 2:
		return nil, false, &ExitError{Code: 2, Message: "usage: assetgridgo [options] run TASK"}
	case flagSet.NArg() > 1:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected at most one command, got %d arguments", flagSet.NArg())}
	}

	path := *pipelineFlag
	if *pFlag != "" {
		path = *pFlag
	}

	profile := *profileFlag
	if profile == "" {
		profile = os.Getenv(EnvProfile)
	}
	if profile == "" {
		profile = config.DefaultProfile
	}
	slog.Debug("Profile determined.", "profile", profile)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		PipelinePath: path,
		Command:      command,
		Task:         task,
		Profile:      profile,
		Port:         *portFlag,
		Debounce:     *debounceFlag,
		Healthcheck:  *healthFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}
