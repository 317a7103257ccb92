package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/runpane/internal/geometry"
	"github.com/five82/runpane/internal/panel"
)

type fakeSource struct {
	mu  sync.Mutex
	sum panel.Summary
}

func (f *fakeSource) Targets() panel.Summary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sum
}

func (f *fakeSource) set(statuses ...panel.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sum.Targets = nil
	for _, st := range statuses {
		f.sum.Targets = append(f.sum.Targets, panel.TargetInfo{Status: st})
	}
}

func closed(ch <-chan struct{}, within time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(within):
		return false
	}
}

func TestIdle(t *testing.T) {
	tests := []struct {
		name     string
		statuses []panel.Status
		want     bool
	}{
		{"no targets", nil, false},
		{"running", []panel.Status{panel.StatusRunning}, false},
		{"mixed", []panel.Status{panel.StatusSuccess, panel.StatusRunning}, false},
		{"all finished", []panel.Status{panel.StatusSuccess, panel.StatusFailure}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{}
			src.set(tt.statuses...)
			assert.Equal(t, tt.want, idle(src.Targets()))
		})
	}
}

func TestStartPoller_ClosesWhenRunsFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{}
	src.set(panel.StatusRunning)
	done := StartPoller(ctx, src, 5*time.Millisecond)

	assert.False(t, closed(done, 30*time.Millisecond), "done closed while a run is active")

	src.set(panel.StatusSuccess)
	assert.True(t, closed(done, time.Second), "done not closed after runs finished")
}

func TestStartPoller_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := StartPoller(ctx, &fakeSource{}, 5*time.Millisecond)
	cancel()

	assert.False(t, closed(done, 30*time.Millisecond), "done closed without any targets")
}

func TestLoadBase_ExplicitMissingFileFails(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := LoadBase(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestNewSession_RestoresModeAndTitle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[notifications]\ntitle = \"builds\"\n"), 0o644))
	prefsPath := filepath.Join(dir, "prefs.toml")
	require.NoError(t, os.WriteFile(prefsPath, []byte("theme = \"Slate\"\nmode = \"focus\"\n"), 0o644))

	s, err := NewSession(Options{ConfigPath: cfgPath, PrefsPath: prefsPath})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "builds", s.opts.Title)
	assert.Equal(t, "Slate", s.Prefs.Theme)
	assert.Equal(t, geometry.ModeFocus, s.Supervisor.Targets().Mode)
}
