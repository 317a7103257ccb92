package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"

	"github.com/five82/runpane/internal/notify"
	"github.com/five82/runpane/internal/prefs"
)

// Controller is the part of the supervisor the UI drives.
type Controller interface {
	Toggle() error
	ToggleFocus() error
	Hide()
	SetFollow(follow bool)
	Scrolled(distance int)
	Select(delta int) error
	Relayout()
	DismissNotices()
}

// Options configures the UI.
type Options struct {
	// Context stops the program when cancelled; nil means never.
	Context    context.Context
	Controller Controller
	Host       *Host
	// Toasts is drawn in the top-right corner when set.
	Toasts    *notify.Toasts
	Title     string
	ThemeName string
	PrefsPath string
	// OnReady runs once, off the UI goroutine, after the terminal size is known.
	// Its error is shown in the status line.
	OnReady func() error
	// Done is closed when there is nothing left to supervise.
	Done <-chan struct{}
	// ExitOnDone quits the program when Done closes.
	ExitOnDone bool
	Logger     zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctrl       Controller
	host       *Host
	toasts     *notify.Toasts
	title      string
	prefsPath  string
	onReady    func() error
	done       <-chan struct{}
	exitOnDone bool
	log        zerolog.Logger

	// UI state
	theme    Theme
	keys     keyMap
	help     help.Model
	width    int
	height   int
	ready    bool
	started  bool
	finished bool
	showHelp bool
	now      time.Time
	lastErr  string

	// Panel state
	frame        Frame
	content      uint64
	contentWidth int
	panel        viewport.Model
}

type (
	tickMsg time.Time
	doneMsg struct{}
	errMsg  struct{ err error }
)

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "runpane"
	}

	host := opts.Host
	if host == nil {
		host = NewHost()
	}
	if opts.Toasts != nil {
		opts.Toasts.OnChange(host.Invalidate)
	}

	return Model{
		ctrl:       opts.Controller,
		host:       host,
		toasts:     opts.Toasts,
		title:      title,
		prefsPath:  prefsPath,
		onReady:    opts.OnReady,
		done:       opts.Done,
		exitOnDone: opts.ExitOnDone,
		log:        opts.Logger,
		theme:      GetTheme(themeName),
		keys:       DefaultKeyMap(),
		help:       help.New(),
		now:        time.Now(),
		panel:      viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(time.Second),
		waitForRedraw(m.host),
	}
	if m.done != nil {
		cmds = append(cmds, waitDone(m.done))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.host.Resize(msg.Height, msg.Width)
		m.ctrl.Relayout()
		if !m.started && m.onReady != nil {
			m.started = true
			return m, startCmd(m.onReady)
		}
		return m, nil

	case redrawMsg:
		m.frame = m.host.Frame()
		m.syncPanel()
		return m, waitForRedraw(m.host)

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd(time.Second)

	case doneMsg:
		m.finished = true
		if m.exitOnDone {
			m.savePrefs()
			return m, tea.Quit
		}
		return m, nil

	case errMsg:
		m.setErr(msg.err)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	out := m.renderDashboard()
	if m.frame.Open {
		b := m.frame.Spec.Bounds
		if !b.Empty() {
			out = placeOverlay(out, m.renderPanel(), b.Row, b.Col, m.width, m.height)
		}
	}
	if toasts := m.renderToasts(); toasts != "" {
		col := max(m.width-ansi.StringWidth(firstLine(toasts))-1, 0)
		out = placeOverlay(out, toasts, 1, col, m.width, m.height)
	}
	return out
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.savePrefs()
		return m, tea.Quit
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Hide) {
			m.showHelp = false
		}
		return m, nil
	}

	m.lastErr = ""

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.Toggle):
		m.setErr(m.ctrl.Toggle())

	case key.Matches(msg, m.keys.Focus):
		m.setErr(m.ctrl.ToggleFocus())

	case key.Matches(msg, m.keys.Hide):
		m.ctrl.Hide()

	case key.Matches(msg, m.keys.NextTarget):
		m.setErr(m.ctrl.Select(1))

	case key.Matches(msg, m.keys.PrevTarget):
		m.setErr(m.ctrl.Select(-1))

	case key.Matches(msg, m.keys.ToggleFollow):
		m.ctrl.SetFollow(!m.frame.Summary.Follow)

	case key.Matches(msg, m.keys.Dismiss):
		m.ctrl.DismissNotices()

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()

	default:
		if m.frame.Open && m.scroll(msg) {
			m.ctrl.Scrolled(m.distanceFromBottom())
		}
	}

	return m, nil
}

// scroll applies a scrolling key to the panel viewport.
func (m *Model) scroll(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.panel.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.panel.ScrollDown(1)
	case key.Matches(msg, m.keys.Top):
		m.panel.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.panel.GotoBottom()
	case key.Matches(msg, m.keys.PageUp):
		m.panel.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.panel.PageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.panel.HalfPageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.panel.HalfPageDown()
	default:
		return false
	}
	return true
}

// distanceFromBottom is how many lines sit below the last visible one.
func (m Model) distanceFromBottom() int {
	return max(m.panel.TotalLineCount()-(m.panel.YOffset+m.panel.Height), 0)
}

// syncPanel copies the open surface into the viewport.
func (m *Model) syncPanel() {
	if !m.frame.Open {
		return
	}
	b := m.frame.Spec.Bounds
	w, h := max(b.Width-2, 0), max(b.Height-2, 0)
	m.panel.Width = w
	m.panel.Height = h

	if m.frame.Content == m.content && w == m.contentWidth {
		return
	}
	m.content = m.frame.Content
	m.contentWidth = w

	lines := make([]string, len(m.frame.Lines))
	for i, line := range m.frame.Lines {
		lines[i] = ansi.Truncate(sanitizeLine(line), w, "")
	}
	m.panel.SetContent(strings.Join(lines, "\n"))
	if m.frame.Tail {
		m.panel.GotoBottom()
	}
}

func (m *Model) setErr(err error) {
	if err != nil {
		m.lastErr = err.Error()
	}
}

func (m Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, Mode: string(m.frame.Summary.Mode)}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Debug().Err(err).Str("path", m.prefsPath).Msg("save prefs")
	}
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func startCmd(f func() error) tea.Cmd {
	return func() tea.Msg {
		if err := f(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		progOpts = append(progOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, progOpts...)
	_, err := p.Run()
	return err
}
