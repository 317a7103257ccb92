package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/runpane/internal/config"
	"github.com/five82/runpane/internal/geometry"
	"github.com/five82/runpane/internal/notify"
	"github.com/five82/runpane/internal/prefs"
	"github.com/five82/runpane/internal/supervisor"
	"github.com/five82/runpane/internal/ui"
)

// Options configure a runpane session.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/runpane/prefs.toml
	Title      string
	// ExitOnDone quits once every target has finished.
	ExitOnDone bool
	Logger     zerolog.Logger
}

// Starter begins the session's work once the terminal size is known.
type Starter func(ctx context.Context, api *supervisor.Supervisor) error

// Session is a supervisor wired to the terminal host.
type Session struct {
	Supervisor *supervisor.Supervisor
	Host       *ui.Host
	Toasts     *notify.Toasts
	Prefs      prefs.Prefs

	opts Options
}

// NewSession loads configuration and preferences and starts a supervisor.
// Only an explicit config file that fails to load is an error.
func NewSession(opts Options) (*Session, error) {
	base, err := LoadBase(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	cfg, err := config.Resolve(base, "", nil)
	if err != nil {
		opts.Logger.Warn().Err(err).Msg("config partly ignored")
	}
	title := opts.Title
	if title == "" {
		title = cfg.Notifications.Title
	}
	opts.Title = title

	host := ui.NewHost()
	toasts := notify.NewToasts()
	sup := supervisor.New(supervisor.Options{
		Base:    base,
		Host:    host,
		Toasts:  toasts,
		Desktop: notify.NewDesktop(title),
		Logger:  opts.Logger,
	})
	sup.SetMode(geometry.ParseMode(userPrefs.Mode))

	return &Session{
		Supervisor: sup,
		Host:       host,
		Toasts:     toasts,
		Prefs:      userPrefs,
		opts:       opts,
	}, nil
}

// LoadBase reads the global configuration layer.
func LoadBase(path string) (config.Tree, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.SetConfigFile(path)
	}
	base, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return base, nil
}

// Run shows the TUI, calls start once it is ready and blocks until the user
// quits, ctx is cancelled or, with ExitOnDone, all targets have finished.
func (s *Session) Run(ctx context.Context, start Starter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, _ := s.Supervisor.Config("")
	done := StartPoller(ctx, s.Supervisor, cfg.Poll.Interval)

	err := ui.Run(ui.Options{
		Context:    ctx,
		Controller: s.Supervisor,
		Host:       s.Host,
		Toasts:     s.Toasts,
		Title:      s.opts.Title,
		ThemeName:  s.Prefs.Theme,
		PrefsPath:  s.opts.PrefsPath,
		OnReady: func() error {
			if start == nil {
				return nil
			}
			return start(ctx, s.Supervisor)
		},
		Done:       done,
		ExitOnDone: s.opts.ExitOnDone,
		Logger:     s.opts.Logger,
	})
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close hides the panel and stops the supervisor.
func (s *Session) Close() {
	s.Supervisor.Close()
}
