package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/specialistvlad/assetgridgo/internal/transform"
)

// Name is the transform name used in pipeline files.
const Name = "exec"

// Placeholders recognised in the command.
const (
	phInputs = "{inputs}"
	phInput  = "{input}"
	phDest   = "{dest}"
	phOutput = "{output}"
	phRoot   = "{root}"
)

// Module implements the transform.Module interface for this package.
type Module struct{}

// Input declares the options of an exec task.
type Input struct {
	// Command is the command line, split with shell quoting rules. Required.
	Command string `cty:"command"`
	// Outputs are files the command writes, relative to the output directory.
	Outputs []string `cty:"outputs"`
	// Timeout is the maximum run time, e.g. "30s".
	Timeout string `cty:"timeout"`
	// Env holds extra environment variables.
	Env map[string]string `cty:"env"`
}

// OnRunExec runs an external tool.
//
// A token equal to {inputs} expands to every input path. When the command
// mentions {input}, it runs once per input with {input} and {dest} (the
// input's path below the output directory) substituted. {output} and {root}
// are replaced everywhere. The command runs in the project root.
func OnRunExec(ctx context.Context, req *transform.Request) (*transform.Result, error) {
	logger := ctxlog.FromContext(ctx).With("transform", Name, "task", req.Task)

	var opts Input
	if err := req.Decode(&opts); err != nil {
		return nil, err
	}
	line := opts.Command
	if line == "" {
		return nil, fmt.Errorf("option 'command' is required")
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parsing command: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("option 'command' is empty")
	}
	timeout, err := transform.Duration("timeout", opts.Timeout, 0)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	env := os.Environ()
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}

	res := &transform.Result{}
	if strings.Contains(line, phInput) {
		for _, in := range req.Inputs {
			dst, err := req.OutputPath(in)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return nil, err
			}
			argv := expand(tokens, req, map[string]string{phInput: in, phDest: dst})
			if err := run(ctx, req.Root, env, argv); err != nil {
				return nil, err
			}
			res.Outputs = append(res.Outputs, dst)
		}
	} else {
		if req.Output != "" {
			if err := os.MkdirAll(req.Output, 0o755); err != nil {
				return nil, err
			}
		}
		if err := run(ctx, req.Root, env, expand(tokens, req, nil)); err != nil {
			return nil, err
		}
	}

	for _, o := range opts.Outputs {
		res.Outputs = append(res.Outputs, filepath.Join(req.Output, filepath.FromSlash(o)))
	}
	logger.Debug("Command finished.", "command", tokens[0], "outputs", len(res.Outputs))
	return res, nil
}

// expand substitutes placeholders into the tokens.
func expand(tokens []string, req *transform.Request, extra map[string]string) []string {
	argv := make([]string, 0, len(tokens)+len(req.Inputs))
	for _, tok := range tokens {
		if tok == phInputs {
			argv = append(argv, req.Inputs...)
			continue
		}
		tok = strings.ReplaceAll(tok, phOutput, req.Output)
		tok = strings.ReplaceAll(tok, phRoot, req.Root)
		for k, v := range extra {
			tok = strings.ReplaceAll(tok, k, v)
		}
		argv = append(argv, tok)
	}
	return argv
}

func run(ctx context.Context, dir string, env, argv []string) error {
	logger := ctxlog.FromContext(ctx)

	cmd := osexec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running command.", "argv", argv)
	err := cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		logger.Debug("Command output.", "stdout", out)
	}
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("command %s: %w", argv[0], ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("command %s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("command %s: %w", argv[0], err)
	}
	return nil
}

// Register registers the transform.
func (m *Module) Register(r *transform.Registry) {
	r.Register(Name, transform.Func(OnRunExec))
}
