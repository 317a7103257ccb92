package runner

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/five82/runpane/internal/config"
	"github.com/five82/runpane/internal/logging"
	"github.com/five82/runpane/internal/loop"
	"github.com/five82/runpane/internal/notify"
	"github.com/five82/runpane/internal/panel"
)

// ErrNoLogPath is returned by Stream without a log path.
var ErrNoLogPath = errors.New("stream needs a log path")

// Spec describes a run.
type Spec struct {
	Name    string
	Cmd     Command
	Profile string
	// Config holds per-call overrides; they win over the profile.
	Config config.Tree
	Messages
	// Open shows the panel when the run starts. Defaults to auto_open.enabled.
	Open *bool
	// PTY overrides the pty setting.
	PTY *bool
	Dir string
	Env []string
}

// StreamOptions registers output produced by someone else.
type StreamOptions struct {
	// ID reuses an existing target when set.
	ID      string
	Name    string
	LogPath string
	// Job, when set, drives the exit pipeline. Without it the caller reports
	// progress through PushStatus.
	Job     Job
	Profile string
	Config  config.Tree
	Open    *bool
	Messages
}

// Result is the outcome of a finished run.
type Result struct {
	ExitCode int
	Status   panel.Status
	Err      error
}

// Handle follows a run started by Run.
type Handle struct {
	TargetID string
	LogPath  string

	job    Job
	done   chan struct{}
	once   sync.Once
	result Result
}

func newHandle(id, logPath string, job Job) *Handle {
	return &Handle{TargetID: id, LogPath: logPath, job: job, done: make(chan struct{})}
}

// Wait blocks until the run has finished and its notifications were sent.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

// Done is closed when the run has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Status reports running until the run has finished.
func (h *Handle) Status() panel.Status {
	select {
	case <-h.done:
		return h.result.Status
	default:
		return panel.StatusRunning
	}
}

// Cancel kills the process. A cancelled run ends in failure.
func (h *Handle) Cancel() error {
	if c, ok := h.job.(Canceler); ok {
		return c.Cancel()
	}
	return nil
}

func (h *Handle) complete(res Result) {
	h.once.Do(func() {
		h.result = res
		close(h.done)
	})
}

// Controller starts runs and carries them through the status, notification
// and panel pipeline. Run, Stream and PushStatus block on the loop and must
// not be called from a task running on it.
type Controller struct {
	loop    *loop.Loop
	machine *panel.Machine
	router  *notify.Router
	base    func() config.Tree
	log     zerolog.Logger

	// records is only touched on the loop.
	records map[string]*Record
}

// NewController wires a controller. base returns the current global
// configuration layer.
func NewController(lp *loop.Loop, machine *panel.Machine, router *notify.Router, base func() config.Tree, log zerolog.Logger) *Controller {
	return &Controller{
		loop:    lp,
		machine: machine,
		router:  router,
		base:    base,
		log:     log,
		records: map[string]*Record{},
	}
}

func (c *Controller) resolve(profile string, overrides config.Tree) config.Config {
	cfg, err := config.Resolve(c.base(), profile, overrides)
	if err != nil {
		c.log.Warn().Err(err).Str("profile", profile).Msg("config partly ignored")
	}
	return cfg
}

// Run spawns spec.Cmd. The returned error covers only failures to set the run
// up; a command that cannot start still produces a failed run with exit code
// 127 and the reason written to its log.
func (c *Controller) Run(spec Spec) (*Handle, error) {
	if spec.Cmd.IsZero() {
		return nil, ErrEmptyCommand
	}
	cfg := c.resolve(spec.Profile, spec.Config)
	if spec.PTY != nil {
		cfg.PTY = *spec.PTY
	}

	logFile, err := os.CreateTemp("", fmt.Sprintf("runpane-%d-*.log", os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	logPath := logFile.Name()

	var job Job
	argv, err := spec.Cmd.Resolve(cfg)
	if err == nil {
		job, err = startExec(argv, spec.Dir, spec.Env, logFile, cfg.PTY)
	}
	if err != nil {
		fmt.Fprintf(logFile, "runpane: %v\n", err)
		_ = logFile.Close()
		c.log.Warn().Err(err).Str("command", logging.Redact(spec.Cmd.String())).Msg("spawn failed")
		job = failedJob{err: err}
	}

	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = spec.Cmd.String()
	}
	open := cfg.AutoOpen.Enabled
	if spec.Open != nil {
		open = *spec.Open
	}

	id := uuid.New().String()
	h := newHandle(id, logPath, job)
	rec := &Record{TargetID: id, Name: name, Job: job, Config: cfg, Messages: spec.Messages, handle: h}

	if err := c.loop.Call(func() { c.begin(rec, logPath, open) }); err != nil {
		_ = h.Cancel()
		return nil, fmt.Errorf("register run: %w", err)
	}
	c.log.Info().Str("target", id).Str("command", logging.Redact(spec.Cmd.String())).Str("log", logPath).Msg("run started")
	go c.wait(rec)
	return h, nil
}

// Stream registers a target for output that an adapter produces and returns
// its id.
func (c *Controller) Stream(opts StreamOptions) (string, error) {
	if strings.TrimSpace(opts.LogPath) == "" {
		return "", ErrNoLogPath
	}
	cfg := c.resolve(opts.Profile, opts.Config)
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = opts.LogPath
	}
	open := cfg.AutoOpen.Enabled
	if opts.Open != nil {
		open = *opts.Open
	}

	var h *Handle
	if opts.Job != nil {
		h = newHandle(id, opts.LogPath, opts.Job)
	}
	rec := &Record{TargetID: id, Name: name, Job: opts.Job, Config: cfg, Messages: opts.Messages, handle: h}

	err := c.loop.Call(func() {
		if opts.Job != nil {
			c.begin(rec, opts.LogPath, open)
			return
		}
		c.register(rec, opts.LogPath)
		if open {
			c.show(id, false)
		}
	})
	if err != nil {
		return "", fmt.Errorf("register stream: %w", err)
	}
	if opts.Job != nil {
		go c.wait(rec)
	}
	return id, nil
}

// PushStatus reports progress for a stream without a Job. Reporting running
// after a finished status starts a new record for the same target.
func (c *Controller) PushStatus(id string, status panel.Status) error {
	var err error
	if callErr := c.loop.Call(func() { err = c.pushStatus(id, status) }); callErr != nil {
		return callErr
	}
	return err
}

func (c *Controller) pushStatus(id string, status panel.Status) error {
	rec := c.records[id]
	if rec == nil {
		return fmt.Errorf("push status for %q: %w", id, panel.ErrNoTarget)
	}
	switch {
	case status == panel.StatusRunning:
		if rec.Status.Finished() {
			rec = &Record{TargetID: id, Name: rec.Name, Config: rec.Config, Messages: rec.Messages}
			c.records[id] = rec
		}
		if err := rec.advance(panel.StatusRunning); err != nil {
			return err
		}
		return c.machine.SetStatus(id, panel.StatusRunning)
	case status.Finished():
		code := 0
		if status == panel.StatusFailure {
			code = 1
		}
		return c.finish(rec, code, nil)
	}
	return fmt.Errorf("%w: push %q", ErrInvalidTransition, status)
}

func (c *Controller) register(rec *Record, logPath string) {
	c.records[rec.TargetID] = rec
	c.machine.Register(panel.Registration{ID: rec.TargetID, Name: rec.Name, LogPath: logPath, Config: rec.Config})
	state := c.machine.State()
	for id, r := range c.records {
		if state.Target(id) == nil && r.Status != panel.StatusRunning {
			delete(c.records, id)
		}
	}
}

// begin runs on the loop.
func (c *Controller) begin(rec *Record, logPath string, open bool) {
	c.register(rec, logPath)
	if err := rec.advance(panel.StatusRunning); err != nil {
		c.log.Debug().Err(err).Str("target", rec.TargetID).Msg("ignoring start")
		return
	}
	if err := c.machine.SetStatus(rec.TargetID, panel.StatusRunning); err != nil {
		c.log.Debug().Err(err).Msg("set running")
	}
	if msg := strings.TrimSpace(rec.Messages.Start); msg != "" {
		c.router.Notify(rec.Config, c.machine.State().Notices, notify.LevelInfo, msg, notify.Options{})
	}
	if open {
		c.show(rec.TargetID, false)
	}
}

func (c *Controller) wait(rec *Record) {
	code, err := rec.Job.Wait()
	c.loop.Post(func() {
		if ferr := c.finish(rec, code, err); ferr != nil {
			c.log.Debug().Err(ferr).Str("target", rec.TargetID).Msg("ignoring exit")
		}
	})
}

// finish runs on the loop.
func (c *Controller) finish(rec *Record, code int, waitErr error) error {
	status := panel.StatusSuccess
	if code != 0 || waitErr != nil {
		status = panel.StatusFailure
	}
	if waitErr != nil && code == 0 {
		code = 1
	}
	defer rec.complete(Result{ExitCode: code, Status: status, Err: waitErr})

	if err := rec.advance(status); err != nil {
		return err
	}
	rec.ExitCode = code
	if c.records[rec.TargetID] != rec {
		// The target has been reused by a newer record.
		return nil
	}
	cfg := rec.Config
	id := rec.TargetID

	c.recordExit(id, code, status)
	c.notifyOutcome(rec, status, code)
	c.log.Info().Str("target", id).Int("exit_code", code).Str("status", string(status)).Msg("run finished")

	switch status {
	case panel.StatusFailure:
		if cfg.OpenOnError {
			c.show(id, true)
		}
	case panel.StatusSuccess:
		if cfg.AutoHide.Enabled && c.machine.State().Active == id {
			c.machine.ScheduleAutoHide(cfg.AutoHide.Delay)
		}
	}
	return nil
}

// recordExit stores the exit code on the target and redraws it with its final status.
func (c *Controller) recordExit(id string, code int, status panel.Status) {
	if t := c.machine.State().Target(id); t != nil {
		t.ExitCode = code
	}
	if err := c.machine.Refresh(id); err != nil {
		c.log.Debug().Err(err).Str("target", id).Msg("refresh failed")
	}
	if err := c.machine.SetStatus(id, status); err != nil {
		c.log.Debug().Err(err).Str("target", id).Msg("set status failed")
	}
}

func (c *Controller) notifyOutcome(rec *Record, status panel.Status, code int) {
	scope := ScopeKey(rec.TargetID)
	notices := c.machine.State().Notices
	if status == panel.StatusSuccess {
		msg := strings.TrimSpace(rec.Messages.Success)
		if msg == "" {
			msg = rec.Name + " succeeded"
		}
		c.router.Notify(rec.Config, notices, notify.LevelInfo, msg, notify.Options{ScopeKey: scope})
		return
	}
	msg := strings.TrimSpace(rec.Messages.Error)
	if msg == "" {
		msg = fmt.Sprintf("%s failed (exit %d)", rec.Name, code)
	}
	c.router.Notify(rec.Config, notices, notify.LevelError, msg, notify.Options{
		Persist:  rec.Config.Notifications.PersistFailure,
		ScopeKey: scope,
	})
}

func (c *Controller) show(id string, force bool) {
	if err := c.machine.Show(id, force); err != nil {
		c.log.Debug().Err(err).Str("target", id).Msg("show failed")
	}
}

// ScopeKey is the notification scope of a target's outcome notices.
func ScopeKey(targetID string) string {
	return "run:" + targetID
}

func (r *Record) complete(res Result) {
	if r.handle != nil {
		r.handle.complete(res)
	}
}
