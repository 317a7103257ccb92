package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/five82/runpane/internal/config"
)

// UserBackend is the name shared by user-supplied backends.
const UserBackend = "user"

const commandTimeout = 5 * time.Second

// Funcs adapts plain functions into a Backend. A nil function means the level
// is not supported and the Router moves on to the next tier.
type Funcs struct {
	Info  func(title, message string) error
	Warn  func(title, message string) error
	Error func(title, message string) error

	seq atomic.Uint64
}

func (f *Funcs) Name() string { return UserBackend }

func (f *Funcs) Supports(l Level) bool { return f.fn(l) != nil }

func (f *Funcs) Send(n Notification) (Handle, error) {
	fn := f.fn(n.Level)
	if fn == nil {
		return Handle{}, fmt.Errorf("no %s notifier", n.Level)
	}
	if err := fn(n.Title, n.Message); err != nil {
		return Handle{}, err
	}
	return Handle{Backend: UserBackend, ID: strconv.FormatUint(f.seq.Add(1), 10)}, nil
}

// Dismiss is a no-op: plain functions cannot retract what they showed.
func (f *Funcs) Dismiss(Handle) error { return nil }

func (f *Funcs) fn(l Level) func(string, string) error {
	switch l {
	case LevelWarn:
		return f.Warn
	case LevelError:
		return f.Error
	default:
		return f.Info
	}
}

// CommandFuncs builds a Funcs that runs the configured notifier argv templates.
// {title}, {message} and {level} are substituted in every argument.
func CommandFuncs(tmpl config.Notifier) *Funcs {
	f := &Funcs{}
	if len(tmpl.Info) > 0 {
		f.Info = commandFunc(tmpl.Info, LevelInfo)
	}
	if len(tmpl.Warn) > 0 {
		f.Warn = commandFunc(tmpl.Warn, LevelWarn)
	}
	if len(tmpl.Error) > 0 {
		f.Error = commandFunc(tmpl.Error, LevelError)
	}
	return f
}

func commandFunc(tmpl []string, level Level) func(string, string) error {
	return func(title, message string) error {
		argv := expand(tmpl, title, message, level)
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput(); err != nil {
			return fmt.Errorf("run notifier %s: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
		}
		return nil
	}
}

func expand(tmpl []string, title, message string, level Level) []string {
	r := strings.NewReplacer("{title}", title, "{message}", message, "{level}", level.String())
	argv := make([]string, len(tmpl))
	for i, arg := range tmpl {
		argv[i] = r.Replace(arg)
	}
	return argv
}
