package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/five82/runpane/internal/config"
)

// ErrEmptyCommand is returned for a command with nothing to execute.
var ErrEmptyCommand = errors.New("empty command")

const maxFuncDepth = 8

// Command is what a run executes: an argument list, a shell script or a
// function that produces one of those when the run starts.
type Command struct {
	argv  []string
	shell string
	fn    func() (Command, error)
}

// Argv runs args[0] with the remaining arguments, without a shell.
func Argv(args ...string) Command {
	return Command{argv: append([]string(nil), args...)}
}

// Shell runs script through the configured shell.
func Shell(script string) Command {
	return Command{shell: script}
}

// Func defers choosing the command until the run starts.
func Func(f func() (Command, error)) Command {
	return Command{fn: f}
}

// IsZero reports whether c was never set.
func (c Command) IsZero() bool {
	return len(c.argv) == 0 && c.shell == "" && c.fn == nil
}

func (c Command) String() string {
	switch {
	case c.fn != nil:
		return "func"
	case c.shell != "":
		return c.shell
	default:
		return strings.Join(c.argv, " ")
	}
}

// Resolve returns the argv to execute under cfg.
func (c Command) Resolve(cfg config.Config) ([]string, error) {
	return c.resolve(cfg, 0)
}

func (c Command) resolve(cfg config.Config, depth int) (argv []string, err error) {
	switch {
	case c.fn != nil:
		if depth >= maxFuncDepth {
			return nil, fmt.Errorf("resolve command: func nested more than %d deep", maxFuncDepth)
		}
		next, err := callFunc(c.fn)
		if err != nil {
			return nil, fmt.Errorf("resolve command: %w", err)
		}
		return next.resolve(cfg, depth+1)
	case strings.TrimSpace(c.shell) != "":
		return append(cfg.ShellArgv(), c.shell), nil
	case len(c.argv) > 0 && c.argv[0] != "":
		return append([]string(nil), c.argv...), nil
	}
	return nil, ErrEmptyCommand
}

func callFunc(f func() (Command, error)) (c Command, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("command func panicked: %v", p)
		}
	}()
	return f()
}
