// Package paneltest provides an in-memory panel.Host for tests.
package paneltest

import (
	"errors"
	"sync"

	"github.com/five82/runpane/internal/panel"
)

// Host records everything the panel asks of it. It is safe for concurrent use.
type Host struct {
	mu       sync.Mutex
	rows     int
	cols     int
	notReady int
	surfaces []*Surface
	summary  panel.Summary
}

// NewHost returns a host with a rows x cols viewport.
func NewHost(rows, cols int) *Host {
	return &Host{rows: rows, cols: cols}
}

// FailViewport makes the next n Viewport calls report the host as not ready.
func (h *Host) FailViewport(n int) {
	h.mu.Lock()
	h.notReady = n
	h.mu.Unlock()
}

// Resize changes the viewport.
func (h *Host) Resize(rows, cols int) {
	h.mu.Lock()
	h.rows, h.cols = rows, cols
	h.mu.Unlock()
}

func (h *Host) Viewport() (int, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.notReady > 0 {
		h.notReady--
		return 0, 0, errors.New("host starting")
	}
	return h.rows, h.cols, nil
}

func (h *Host) Open(spec panel.SurfaceSpec) (panel.Surface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &Surface{spec: spec}
	h.surfaces = append(h.surfaces, s)
	return s, nil
}

func (h *Host) Publish(sum panel.Summary) {
	h.mu.Lock()
	h.summary = sum
	h.mu.Unlock()
}

// Summary returns the last published summary.
func (h *Host) Summary() panel.Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.summary
}

// Opens returns how many surfaces were created.
func (h *Host) Opens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.surfaces)
}

// Closes returns how many surfaces were closed.
func (h *Host) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, s := range h.surfaces {
		if s.Closed() {
			n++
		}
	}
	return n
}

// Visible reports whether the newest surface is still open.
func (h *Host) Visible() bool {
	s := h.Last()
	return s != nil && !s.Closed()
}

// Last returns the newest surface, or nil.
func (h *Host) Last() *Surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.surfaces) == 0 {
		return nil
	}
	return h.surfaces[len(h.surfaces)-1]
}

// Surface records the calls made on one surface.
type Surface struct {
	mu     sync.Mutex
	spec   panel.SurfaceSpec
	lines  []string
	tail   bool
	closed bool
}

func (s *Surface) Update(spec panel.SurfaceSpec) error {
	s.mu.Lock()
	s.spec = spec
	s.mu.Unlock()
	return nil
}

func (s *Surface) SetLines(lines []string, tail bool) {
	s.mu.Lock()
	s.lines = append([]string(nil), lines...)
	s.tail = tail
	s.mu.Unlock()
}

func (s *Surface) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Spec returns the latest spec.
func (s *Surface) Spec() panel.SurfaceSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Lines returns the latest content.
func (s *Surface) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Tail reports whether the latest content was pushed with tail set.
func (s *Surface) Tail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tail
}

// Closed reports whether Close was called.
func (s *Surface) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
