package app

import (
	"errors"
	"fmt"
	"time"
)

// Commands understood by Run.
const (
	CommandBuild   = "build"
	CommandDev     = "dev"
	CommandServe   = "serve"
	CommandWatch   = "watch"
	CommandDefault = "default"
	CommandRun     = "run"
)

// DefaultPort is used when neither the flags nor the pipeline set one.
const DefaultPort = 3000

// Commands lists every valid command name.
var Commands = []string{CommandBuild, CommandDev, CommandServe, CommandWatch, CommandDefault, CommandRun}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string
	Command      string
	Profile      string
	// Task is the task executed by the run command.
	Task string

	// Port overrides the pipeline's server port when positive.
	Port int
	// Debounce overrides the pipeline's watch window when positive.
	Debounce time.Duration
	// Healthcheck enables /health on the dev server.
	Healthcheck bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.Command == "" {
		cfg.Command = CommandDefault
	}
	valid := false
	for _, c := range Commands {
		if c == cfg.Command {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("unknown command '%s'", cfg.Command)
	}
	if cfg.Command == CommandRun && cfg.Task == "" {
		return nil, errors.New("the run command needs a task name")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port %d is out of range", cfg.Port)
	}
	if cfg.Debounce < 0 {
		return nil, errors.New("debounce must not be negative")
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}
