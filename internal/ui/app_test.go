package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/runpane/internal/geometry"
	"github.com/five82/runpane/internal/notify"
	"github.com/five82/runpane/internal/panel"
	"github.com/five82/runpane/internal/prefs"
)

type fakeController struct {
	mu       sync.Mutex
	calls    []string
	scrolled []int
}

func (c *fakeController) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *fakeController) Toggle() error         { c.record("toggle"); return nil }
func (c *fakeController) ToggleFocus() error    { c.record("focus"); return nil }
func (c *fakeController) Hide()                 { c.record("hide") }
func (c *fakeController) SetFollow(follow bool) { c.record(fmt.Sprintf("follow=%v", follow)) }
func (c *fakeController) Relayout()             { c.record("relayout") }
func (c *fakeController) DismissNotices()       { c.record("dismiss") }

func (c *fakeController) Scrolled(distance int) {
	c.mu.Lock()
	c.scrolled = append(c.scrolled, distance)
	c.mu.Unlock()
}

func (c *fakeController) Select(delta int) error {
	c.record(fmt.Sprintf("select %d", delta))
	if delta < 0 {
		return panel.ErrNoTarget
	}
	return nil
}

func (c *fakeController) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func newTestModel(t *testing.T, opts Options) (Model, *fakeController) {
	t.Helper()
	ctrl := &fakeController{}
	opts.Controller = ctrl
	if opts.Host == nil {
		opts.Host = NewHost()
	}
	if opts.PrefsPath == "" {
		opts.PrefsPath = filepath.Join(t.TempDir(), "prefs.toml")
	}
	m := New(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), ctrl
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(keyPress(k))
		m = next.(Model)
	}
	return m
}

func redraw(m Model) Model {
	next, _ := m.Update(redrawMsg{})
	return next.(Model)
}

func openSurface(t *testing.T, h *Host, lines int, tail bool) panel.Surface {
	t.Helper()
	s, err := h.Open(panel.SurfaceSpec{
		Bounds:   geometry.Bounds{Row: 10, Col: 40, Width: 50, Height: 12},
		Mode:     geometry.ModeMini,
		TargetID: "t1",
		Title:    "make test",
		Status:   panel.StatusRunning,
		Follow:   tail,
	})
	require.NoError(t, err)
	content := make([]string, lines)
	for i := range content {
		content[i] = fmt.Sprintf("line %03d", i)
	}
	s.SetLines(content, tail)
	return s
}

func TestModel_WindowSizeReadiesHostAndStartsOnce(t *testing.T) {
	host := NewHost()
	m, ctrl := newTestModel(t, Options{
		Host:    host,
		OnReady: func() error { return nil },
	})

	rows, cols, err := host.Viewport()
	require.NoError(t, err)
	assert.Equal(t, 30, rows)
	assert.Equal(t, 100, cols)
	assert.Equal(t, []string{"relayout"}, ctrl.Calls())
	require.True(t, m.started)

	next, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	assert.Nil(t, cmd, "resize after start must not run OnReady again")
	m = next.(Model)
	assert.Equal(t, 80, m.width)
	assert.Equal(t, []string{"relayout", "relayout"}, ctrl.Calls())
}

func TestModel_OnReadyErrorShown(t *testing.T) {
	m := New(Options{
		Controller: &fakeController{},
		PrefsPath:  filepath.Join(t.TempDir(), "prefs.toml"),
		OnReady:    func() error { return fmt.Errorf("start command: boom") },
	})
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	require.NotNil(t, cmd)
	msg := cmd()
	next, _ = next.Update(msg)
	m = next.(Model)
	assert.Equal(t, "start command: boom", m.lastErr)
}

func TestModel_KeysDriveController(t *testing.T) {
	m, ctrl := newTestModel(t, Options{})
	m = press(m, "o", "f", "esc", "tab", "x", " ")

	assert.Equal(t, []string{
		"relayout",
		"toggle",
		"focus",
		"hide",
		"select 1",
		"dismiss",
		"follow=true",
	}, ctrl.Calls())

	m = press(m, "shift+tab")
	assert.Equal(t, panel.ErrNoTarget.Error(), m.lastErr)
}

func TestModel_FollowToggleUsesPublishedState(t *testing.T) {
	host := NewHost()
	m, ctrl := newTestModel(t, Options{Host: host})
	host.Publish(panel.Summary{Follow: true})
	m = redraw(m)
	press(m, " ")
	assert.Contains(t, ctrl.Calls(), "follow=false")
}

func TestModel_RedrawTailsNewContent(t *testing.T) {
	host := NewHost()
	m, _ := newTestModel(t, Options{Host: host})
	openSurface(t, host, 100, true)
	m = redraw(m)

	assert.Equal(t, 48, m.panel.Width)
	assert.Equal(t, 10, m.panel.Height)
	assert.Equal(t, 100, m.panel.TotalLineCount())
	assert.Equal(t, 0, m.distanceFromBottom())

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "make test · running")
	assert.Contains(t, view, "line 099")
	assert.NotContains(t, view, "line 000")
}

func TestModel_ScrollReportsDistance(t *testing.T) {
	host := NewHost()
	m, ctrl := newTestModel(t, Options{Host: host})
	openSurface(t, host, 100, true)
	m = redraw(m)

	m = press(m, "k", "k", "k")
	ctrl.mu.Lock()
	got := append([]int(nil), ctrl.scrolled...)
	ctrl.mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)

	press(m, "G")
	ctrl.mu.Lock()
	last := ctrl.scrolled[len(ctrl.scrolled)-1]
	ctrl.mu.Unlock()
	assert.Equal(t, 0, last)
}

func TestModel_ScrollIgnoredWhilePanelClosed(t *testing.T) {
	m, ctrl := newTestModel(t, Options{})
	press(m, "k", "j")
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Empty(t, ctrl.scrolled)
}

func TestModel_PausedContentKeepsPosition(t *testing.T) {
	host := NewHost()
	m, _ := newTestModel(t, Options{Host: host})
	s := openSurface(t, host, 100, true)
	m = redraw(m)
	m = press(m, "g")
	require.Equal(t, 0, m.panel.YOffset)

	lines := make([]string, 120)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %03d", i)
	}
	s.SetLines(lines, false)
	m = redraw(m)
	assert.Equal(t, 0, m.panel.YOffset)
	assert.Equal(t, 120, m.panel.TotalLineCount())
}

func TestModel_ClosedSurfaceNotDrawn(t *testing.T) {
	host := NewHost()
	m, _ := newTestModel(t, Options{Host: host})
	s := openSurface(t, host, 5, true)
	m = redraw(m)
	require.Contains(t, ansi.Strip(m.View()), "make test")

	require.NoError(t, s.Close())
	m = redraw(m)
	assert.NotContains(t, ansi.Strip(m.View()), "make test")
}

func TestModel_DashboardListsTargets(t *testing.T) {
	host := NewHost()
	m, _ := newTestModel(t, Options{Host: host, Title: "demo"})
	host.Publish(panel.Summary{
		Active: "b",
		Follow: true,
		Mode:   geometry.ModeFocus,
		Targets: []panel.TargetInfo{
			{ID: "a", Name: "go build", Status: panel.StatusSuccess, Lines: 3},
			{ID: "b", Name: "go test", Status: panel.StatusFailure, ExitCode: 2, Lines: 40, Active: true},
		},
	})
	m = redraw(m)

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "demo")
	assert.Contains(t, view, "1 failed")
	assert.Contains(t, view, "2 runs")
	assert.Contains(t, view, "go build")
	assert.Contains(t, view, "▸ go test")
	assert.Contains(t, view, "exit 2")
	assert.Contains(t, view, "focus follow")
	assert.Len(t, strings.Split(m.View(), "\n"), 30)
}

func TestModel_ToastsDrawn(t *testing.T) {
	toasts := notify.NewToasts()
	m, _ := newTestModel(t, Options{Toasts: toasts})
	_, err := toasts.Send(notify.Notification{
		Level:   notify.LevelError,
		Title:   "runpane",
		Message: "make failed (exit 2)",
		Persist: true,
	})
	require.NoError(t, err)

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "make failed (exit 2)")
	assert.Contains(t, view, "x to dismiss")
}

func TestModel_HelpOverlay(t *testing.T) {
	m, ctrl := newTestModel(t, Options{})
	m = press(m, "?")
	require.True(t, m.showHelp)
	help := ansi.Strip(m.View())
	assert.Contains(t, help, "Keyboard Shortcuts")
	assert.Contains(t, help, "q/ctrl+c")
	assert.Contains(t, help, "Half page up")

	m = press(m, "o")
	assert.True(t, m.showHelp, "keys other than help/esc are swallowed")
	assert.NotContains(t, ctrl.Calls(), "toggle")

	m = press(m, "esc")
	assert.False(t, m.showHelp)
}

func TestModel_CycleThemeSavesPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	host := NewHost()
	m, _ := newTestModel(t, Options{Host: host, PrefsPath: path, ThemeName: "Dracula"})
	host.Publish(panel.Summary{Mode: geometry.ModeFocus})
	m = redraw(m)

	m = press(m, "T")
	assert.Equal(t, "Slate", m.theme.Name)

	p, err := prefs.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Slate", p.Theme)
	assert.Equal(t, "focus", p.Mode)
}

func TestModel_QuitAndDone(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	done := make(chan struct{})
	close(done)
	m, _ = newTestModel(t, Options{Done: done, ExitOnDone: true})
	msg := waitDone(done)()
	_, cmd = m.Update(msg)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	m, _ = newTestModel(t, Options{Done: done})
	next, cmd := m.Update(doneMsg{})
	assert.Nil(t, cmd)
	assert.True(t, next.(Model).finished)
}

func TestModel_TickAdvancesClock(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	next, cmd := m.Update(tickMsg(at))
	require.NotNil(t, cmd)
	assert.Contains(t, ansi.Strip(next.(Model).View()), "03:04:05")
}

func TestThemeBorderColor(t *testing.T) {
	th := GetTheme("Dracula")
	assert.Equal(t, "#abcdef", th.BorderColor(panel.StatusIdle, "#abcdef"))
	assert.Equal(t, th.Border, th.BorderColor(panel.StatusIdle, " "))
	assert.Equal(t, th.StatusColors[panel.StatusFailure], th.BorderColor(panel.StatusFailure, "#abcdef"))
	assert.Equal(t, "Slate", NextTheme("Dracula"))
	assert.Equal(t, "Dracula", NextTheme("nope"))
	assert.Equal(t, "Dracula", GetTheme("nope").Name)
}
