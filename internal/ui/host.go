package ui

import (
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/runpane/internal/panel"
)

var (
	// ErrNotReady is returned by Viewport before the terminal size is known.
	ErrNotReady = errors.New("terminal size not known yet")
	// ErrSurfaceClosed is returned when updating a surface that was closed or replaced.
	ErrSurfaceClosed = errors.New("surface closed")
)

// Host adapts the Bubble Tea program to panel.Host. The panel calls it from
// its own goroutine; the model reads it through Frame after a redraw signal.
// Host never calls back into the panel, so it can be locked from either side.
type Host struct {
	mu      sync.Mutex
	rows    int
	cols    int
	surface *surface
	summary panel.Summary
	content uint64

	dirty chan struct{}
}

var _ panel.Host = (*Host)(nil)

// NewHost returns a host with an unknown viewport.
func NewHost() *Host {
	return &Host{dirty: make(chan struct{}, 1)}
}

// Resize records the terminal size.
func (h *Host) Resize(rows, cols int) {
	h.mu.Lock()
	h.rows, h.cols = rows, cols
	h.mu.Unlock()
	h.Invalidate()
}

func (h *Host) Viewport() (int, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rows <= 0 || h.cols <= 0 {
		return 0, 0, ErrNotReady
	}
	return h.rows, h.cols, nil
}

func (h *Host) Open(spec panel.SurfaceSpec) (panel.Surface, error) {
	h.mu.Lock()
	if h.surface != nil {
		h.surface.closed = true
	}
	s := &surface{host: h, spec: spec}
	h.surface = s
	h.content++
	h.mu.Unlock()
	h.Invalidate()
	return s, nil
}

func (h *Host) Publish(sum panel.Summary) {
	h.mu.Lock()
	h.summary = sum
	h.mu.Unlock()
	h.Invalidate()
}

// Invalidate asks the model to redraw. It never blocks; pending requests coalesce.
func (h *Host) Invalidate() {
	select {
	case h.dirty <- struct{}{}:
	default:
	}
}

// Frame is a consistent copy of everything the model draws.
type Frame struct {
	Open    bool
	Spec    panel.SurfaceSpec
	Lines   []string
	Tail    bool
	Content uint64
	Summary panel.Summary
}

// Frame snapshots the host.
func (h *Host) Frame() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	f := Frame{Summary: h.summary, Content: h.content}
	if s := h.surface; s != nil {
		f.Open = true
		f.Spec = s.spec
		f.Lines = s.lines
		f.Tail = s.tail
	}
	return f
}

type redrawMsg struct{}

// waitForRedraw blocks until the host is invalidated.
func waitForRedraw(h *Host) tea.Cmd {
	return func() tea.Msg {
		<-h.dirty
		return redrawMsg{}
	}
}

type surface struct {
	host   *Host
	spec   panel.SurfaceSpec
	lines  []string
	tail   bool
	closed bool
}

func (s *surface) Update(spec panel.SurfaceSpec) error {
	s.host.mu.Lock()
	if s.closed {
		s.host.mu.Unlock()
		return ErrSurfaceClosed
	}
	s.spec = spec
	s.host.mu.Unlock()
	s.host.Invalidate()
	return nil
}

func (s *surface) SetLines(lines []string, tail bool) {
	cp := make([]string, len(lines))
	copy(cp, lines)

	s.host.mu.Lock()
	if s.closed {
		s.host.mu.Unlock()
		return
	}
	s.lines = cp
	s.tail = tail
	s.host.content++
	s.host.mu.Unlock()
	s.host.Invalidate()
}

func (s *surface) Close() error {
	s.host.mu.Lock()
	if s.closed {
		s.host.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.host.surface == s {
		s.host.surface = nil
	}
	s.host.mu.Unlock()
	s.host.Invalidate()
	return nil
}
