package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/five82/runpane/internal/app"
	"github.com/five82/runpane/internal/config"
	"github.com/five82/runpane/internal/logging"
	"github.com/five82/runpane/internal/runner"
	"github.com/five82/runpane/internal/supervisor"
)

var errNotStarted = errors.New("command was not started")

type runFlags struct {
	name    string
	shell   bool
	profile string
	noOpen  bool
	pty     bool
	dir     string
	set     []string
	exit    bool
	runner.Messages
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command and stream its output into the panel",
		Long: `Run starts the command, captures its output to a temporary log file and
shows it in the floating panel. runpane exits with the command's exit code.`,
		Example: `  runpane run -- make test
  runpane run --shell --profile quick -- 'go build ./... && go test ./...'
  runpane run --set auto_hide.delay=5s --exit -- cargo build`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := f.spec(cmd, args)
			if err != nil {
				return err
			}
			code, err := runSession(cmd.Context(), g.appOptions(f.exit), spec)
			if err != nil {
				return err
			}
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVarP(&f.name, "name", "n", "", "target name (default: command name)")
	flags.BoolVarP(&f.shell, "shell", "s", false, "run the arguments as one shell script")
	flags.StringVarP(&f.profile, "profile", "p", "", "configuration profile")
	flags.BoolVar(&f.noOpen, "no-open", false, "do not show the panel when the run starts")
	flags.BoolVar(&f.pty, "pty", false, "run under a pseudo terminal")
	flags.StringVarP(&f.dir, "dir", "C", "", "working directory")
	flags.StringArrayVar(&f.set, "set", nil, "override a config key for this run (key=value, repeatable)")
	flags.BoolVar(&f.exit, "exit", false, "quit once the command has finished")
	flags.StringVar(&f.Start, "start", "", "start notification message")
	flags.StringVar(&f.Success, "success", "", "success notification message")
	flags.StringVar(&f.Error, "error", "", "failure notification message")
	return cmd
}

func (f *runFlags) spec(cmd *cobra.Command, args []string) (runner.Spec, error) {
	overrides, err := config.ParseOverrides(f.set)
	if err != nil {
		return runner.Spec{}, err
	}

	spec := runner.Spec{
		Name:     f.name,
		Profile:  f.profile,
		Config:   overrides,
		Messages: f.Messages,
		Dir:      f.dir,
	}
	if f.shell {
		spec.Cmd = runner.Shell(strings.Join(args, " "))
	} else {
		spec.Cmd = runner.Argv(args...)
	}
	if spec.Name == "" {
		spec.Name = defaultName(args, f.shell)
	}
	if f.noOpen {
		open := false
		spec.Open = &open
	}
	if cmd.Flags().Changed("pty") {
		pty := f.pty
		spec.PTY = &pty
	}
	return spec, nil
}

func defaultName(args []string, shell bool) string {
	if len(args) == 0 {
		return "run"
	}
	if shell {
		fields := strings.Fields(args[0])
		if len(fields) == 0 {
			return "sh"
		}
		return filepath.Base(fields[0])
	}
	return filepath.Base(args[0])
}

// runSession shows the UI, runs spec once it is ready and returns the
// command's exit code. A run still going when the UI closes is cancelled.
func runSession(ctx context.Context, opts app.Options, spec runner.Spec) (int, error) {
	session, err := app.NewSession(opts)
	if err != nil {
		return 1, err
	}
	defer session.Close()

	var (
		mu       sync.Mutex
		handle   *runner.Handle
		startErr = errNotStarted
	)
	start := func(ctx context.Context, sup *supervisor.Supervisor) error {
		h, err := sup.Run(spec)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			startErr = fmt.Errorf("start %s: %w", spec.Name, err)
			return startErr
		}
		handle = h
		return nil
	}

	uiErr := session.Run(ctx, start)

	mu.Lock()
	h, serr := handle, startErr
	mu.Unlock()
	if h == nil {
		if uiErr != nil {
			return 1, uiErr
		}
		return 1, serr
	}

	select {
	case <-h.Done():
	default:
		if err := h.Cancel(); err != nil {
			lg := logging.Component("cli")
			lg.Debug().Err(err).Msg("cancel run")
		}
	}
	res := h.Wait()
	return res.ExitCode, uiErr
}
