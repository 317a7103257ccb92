// Package watch feeds externally written log files into the panel. It is an
// adapter: it only talks to the supervisor through supervisor.AdapterAPI.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/five82/runpane/internal/notify"
	"github.com/five82/runpane/internal/panel"
	"github.com/five82/runpane/internal/runner"
	"github.com/five82/runpane/internal/supervisor"
)

// Profile is the configuration profile consulted for tailed files.
const Profile = "tail"

// DefaultDebounce coalesces bursts of write events into one refresh.
const DefaultDebounce = 50 * time.Millisecond

// ErrDisabled is returned when the tail profile is disabled.
var ErrDisabled = errors.New("tail adapter disabled")

// Options configure a Tailer.
type Options struct {
	Path string
	// Name defaults to the file's base name.
	Name string
	// Open overrides auto_open for the tail target.
	Open     *bool
	Debounce time.Duration
	Logger   zerolog.Logger
}

// Tailer streams one file into the panel and refreshes it on change.
type Tailer struct {
	api      supervisor.AdapterAPI
	path     string
	name     string
	open     *bool
	debounce time.Duration
	log      zerolog.Logger
	watcher  *fsnotify.Watcher
	id       string
}

// New validates opts and starts watching the file's directory, so the file
// may be created, truncated or replaced after the tailer starts.
func New(api supervisor.AdapterAPI, opts Options) (*Tailer, error) {
	if !api.AdapterEnabled(Profile) {
		return nil, ErrDisabled
	}
	if opts.Path == "" {
		return nil, runner.ErrNoLogPath
	}
	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("watch %s: directory not found", dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Tailer{
		api:      api,
		path:     path,
		name:     name,
		open:     opts.Open,
		debounce: debounce,
		log:      opts.Logger,
		watcher:  w,
	}, nil
}

// Start registers the file as a running stream target and returns its id.
func (t *Tailer) Start() (string, error) {
	id, err := t.api.Stream(runner.StreamOptions{
		Name:    t.name,
		LogPath: t.path,
		Profile: Profile,
		Open:    t.open,
	})
	if err != nil {
		return "", fmt.Errorf("register tail: %w", err)
	}
	if err := t.api.PushStatus(id, panel.StatusRunning); err != nil {
		return "", fmt.Errorf("mark tail running: %w", err)
	}
	t.id = id
	if _, err := os.Stat(t.path); errors.Is(err, os.ErrNotExist) {
		t.api.Notify(notify.LevelInfo, fmt.Sprintf("waiting for %s", t.name), notify.Options{})
	}
	return id, nil
}

// ID returns the target id once Start succeeded.
func (t *Tailer) ID() string {
	return t.id
}

// Run refreshes the target on file events until ctx is done, then closes the watcher.
func (t *Tailer) Run(ctx context.Context) error {
	defer func() { _ = t.watcher.Close() }()
	if t.id == "" {
		if _, err := t.Start(); err != nil {
			return err
		}
	}

	timer := time.NewTimer(t.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-t.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != t.path || ev.Op == fsnotify.Chmod {
				continue
			}
			if !pending {
				pending = true
				timer.Reset(t.debounce)
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return nil
			}
			t.log.Debug().Err(err).Str("path", t.path).Msg("watch error")

		case <-timer.C:
			pending = false
			if err := t.api.Refresh(t.id); err != nil {
				t.log.Debug().Err(err).Str("target", t.id).Msg("refresh failed")
			}
		}
	}
}
