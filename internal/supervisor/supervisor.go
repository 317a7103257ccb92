// Package supervisor is the public face of runpane: it owns the panel state,
// the task loop and the run controller, and exposes thread-safe operations to
// the CLI, the TUI and adapters.
package supervisor

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/runpane/internal/config"
	"github.com/five82/runpane/internal/geometry"
	"github.com/five82/runpane/internal/loop"
	"github.com/five82/runpane/internal/notify"
	"github.com/five82/runpane/internal/panel"
	"github.com/five82/runpane/internal/runner"
)

// AdapterAPI is everything an adapter may use. Adapters never see panel state.
type AdapterAPI interface {
	Stream(opts runner.StreamOptions) (string, error)
	PushStatus(id string, status panel.Status) error
	Notify(level notify.Level, message string, opts notify.Options) notify.Handle
	Refresh(id string) error
	AdapterEnabled(name string) bool
}

// Options configure a Supervisor.
type Options struct {
	// Base is the global configuration layer, usually from config.Loader.
	Base config.Tree
	Host panel.Host
	// Toasts receives in-app notifications; one is created when nil.
	Toasts *notify.Toasts
	// Desktop enables notify-send when notifications.desktop is set.
	Desktop *notify.Desktop
	Logger  zerolog.Logger
}

// Supervisor coordinates runs and the panel. All methods are safe for
// concurrent use, but must not be called from inside a Host or Surface method.
type Supervisor struct {
	loop       *loop.Loop
	state      *panel.State
	machine    *panel.Machine
	router     *notify.Router
	controller *runner.Controller
	log        zerolog.Logger

	mu   sync.RWMutex
	base config.Tree
}

var _ AdapterAPI = (*Supervisor)(nil)

// New starts a supervisor.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		log:  opts.Logger,
		base: config.Merge(config.Defaults(), opts.Base),
	}
	s.loop = loop.New(opts.Logger.With().Str("component", "loop").Logger())
	s.state = panel.NewState()
	s.machine = panel.NewMachine(s.state, opts.Host, s.loop, opts.Logger.With().Str("component", "panel").Logger())
	s.router = notify.NewRouter(opts.Toasts, opts.Desktop, opts.Logger.With().Str("component", "notify").Logger())
	s.router.SetPoster(s.loop.Post)
	s.controller = runner.NewController(s.loop, s.machine, s.router, s.Base, opts.Logger.With().Str("component", "runner").Logger())
	return s
}

// Base returns a copy of the current global layer merged over the defaults.
func (s *Supervisor) Base() config.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return config.Clone(s.base)
}

// Config decodes the current global layer with an optional profile applied.
func (s *Supervisor) Config(profile string) (config.Config, error) {
	return config.Resolve(s.Base(), profile, nil)
}

// Setup merges overrides over the current global layer; unspecified keys keep
// their current values. It hides the panel, restores mini mode and follow, and
// dismisses outstanding notices. Runs in flight keep the snapshot they started with.
func (s *Supervisor) Setup(overrides config.Tree) {
	s.mu.Lock()
	s.base = config.Merge(s.base, overrides)
	s.mu.Unlock()

	s.call(func() {
		s.machine.Reset()
		s.router.Dismiss(s.state.Notices)
	})
}

// SetNotifier installs Go notifier functions ahead of configured commands.
func (s *Supervisor) SetNotifier(b notify.Backend) {
	s.call(func() { s.router.SetUser(b) })
}

// Run starts a command.
func (s *Supervisor) Run(spec runner.Spec) (*runner.Handle, error) {
	return s.controller.Run(spec)
}

// Stream registers adapter-owned output.
func (s *Supervisor) Stream(opts runner.StreamOptions) (string, error) {
	return s.controller.Stream(opts)
}

// PushStatus reports a stream's progress.
func (s *Supervisor) PushStatus(id string, status panel.Status) error {
	return s.controller.PushStatus(id, status)
}

// Show opens the panel on the active target.
func (s *Supervisor) Show() error {
	var err error
	s.call(func() { err = s.machine.Show("", false) })
	return err
}

// ShowTarget opens the panel on a specific target.
func (s *Supervisor) ShowTarget(id string) error {
	var err error
	s.call(func() { err = s.machine.Show(id, true) })
	return err
}

// Hide closes the panel.
func (s *Supervisor) Hide() {
	s.call(s.machine.Hide)
}

// Toggle shows or hides the panel.
func (s *Supervisor) Toggle() error {
	var err error
	s.call(func() { err = s.machine.Toggle() })
	return err
}

// ToggleFocus swaps between mini and focus mode.
func (s *Supervisor) ToggleFocus() error {
	var err error
	s.call(func() { err = s.machine.ToggleFocus() })
	return err
}

// SetMode sets the geometry mode without opening the panel.
func (s *Supervisor) SetMode(mode geometry.Mode) {
	s.call(func() { s.machine.SetMode(mode) })
}

// SetFollow turns tailing on or off.
func (s *Supervisor) SetFollow(follow bool) {
	s.call(func() { s.machine.SetFollow(follow) })
}

// Scrolled reports how far the view is from the bottom after user scrolling.
func (s *Supervisor) Scrolled(distance int) {
	s.post(func() { s.machine.Scrolled(distance) })
}

// Select moves the active target by delta in registration order.
func (s *Supervisor) Select(delta int) error {
	var err error
	s.call(func() { err = s.machine.Select(delta) })
	return err
}

// Relayout recomputes the panel bounds after a resize.
func (s *Supervisor) Relayout() {
	s.post(s.machine.Relayout)
}

// Refresh polls a target's log now.
func (s *Supervisor) Refresh(id string) error {
	var err error
	s.call(func() { err = s.machine.Refresh(id) })
	return err
}

// AdapterEnabled reports whether profile name exists and is not disabled.
func (s *Supervisor) AdapterEnabled(name string) bool {
	return config.ProfileEnabled(s.Base(), name)
}

// Notify sends a notification with the global configuration. User and desktop
// backends deliver in the background, so their handle is not returned.
func (s *Supervisor) Notify(level notify.Level, message string, opts notify.Options) notify.Handle {
	cfg, err := s.Config("")
	if err != nil {
		s.log.Debug().Err(err).Msg("config partly ignored")
	}
	var h notify.Handle
	s.call(func() { h = s.router.Notify(cfg, s.state.Notices, level, message, opts) })
	return h
}

// DismissNotices clears all toasts and scoped notices.
func (s *Supervisor) DismissNotices() {
	s.call(func() { s.router.Dismiss(s.state.Notices) })
}

// Toasts returns the in-app toast stack.
func (s *Supervisor) Toasts() *notify.Toasts {
	return s.router.Toasts()
}

// Targets returns a snapshot of the panel.
func (s *Supervisor) Targets() panel.Summary {
	var sum panel.Summary
	s.call(func() { sum = s.machine.Summary() })
	return sum
}

// Sync waits until every task queued so far has run.
func (s *Supervisor) Sync() {
	s.call(func() {})
}

// Close hides the panel and stops the loop. Running processes are left alone.
func (s *Supervisor) Close() {
	s.call(s.machine.Hide)
	s.loop.Close()
}

func (s *Supervisor) call(f func()) {
	if err := s.loop.Call(f); err != nil {
		s.log.Debug().Err(err).Msg("supervisor call after close")
	}
}

func (s *Supervisor) post(f func()) {
	s.loop.Post(f)
}
