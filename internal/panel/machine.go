package panel

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/runpane/internal/config"
	"github.com/five82/runpane/internal/geometry"
	"github.com/five82/runpane/internal/logtail"
	"github.com/five82/runpane/internal/loop"
)

var (
	// ErrNoTarget is returned when there is nothing to show.
	ErrNoTarget = errors.New("no target")
	// ErrViewportNotReady is returned while the host cannot report a usable size.
	ErrViewportNotReady = errors.New("viewport not ready")
)

// Registration describes a target to add or refresh.
type Registration struct {
	ID      string
	Name    string
	LogPath string
	Config  config.Config
}

// Machine drives State. Every method must run on the loop goroutine; delayed
// work is posted back to the same loop and guarded by the tokens in State.
type Machine struct {
	state *State
	host  Host
	loop  *loop.Loop
	log   zerolog.Logger
}

// NewMachine returns a machine over state.
func NewMachine(state *State, host Host, lp *loop.Loop, log zerolog.Logger) *Machine {
	return &Machine{state: state, host: host, loop: lp, log: log}
}

// State exposes the machine's state to code already running on the loop.
func (m *Machine) State() *State {
	return m.state
}

// Register adds a target or refreshes an existing one. When the log path of an
// existing target changes its cursor and buffer start over.
func (m *Machine) Register(r Registration) *Target {
	s := m.state
	t := s.targets[r.ID]
	if t == nil {
		t = &Target{
			ID:     r.ID,
			Status: StatusIdle,
			Buffer: logtail.NewBuffer(r.Config.MaxLines),
		}
		s.targets[r.ID] = t
		s.order = append(s.order, r.ID)
	}
	if t.Cursor.Path != r.LogPath {
		t.Cursor = logtail.Cursor{Path: r.LogPath}
		t.Buffer.Reset()
	}
	t.Name = r.Name
	if t.Name == "" {
		t.Name = r.ID
	}
	t.Config = r.Config
	t.Buffer.SetMax(r.Config.MaxLines)
	s.touch(t)

	m.evict(r.Config.MaxTargets)
	m.publish()
	return t
}

// evict drops least recently used targets beyond limit, never the active
// target and never a running one.
func (m *Machine) evict(limit int) {
	s := m.state
	if limit <= 0 {
		return
	}
	for len(s.targets) > limit {
		var victim *Target
		for _, t := range s.targets {
			if t.ID == s.Active || t.Status == StatusRunning {
				continue
			}
			if victim == nil || t.used < victim.used {
				victim = t
			}
		}
		if victim == nil {
			return
		}
		m.log.Debug().Str("target", victim.ID).Msg("evicting target")
		s.remove(victim.ID)
	}
}

// SetStatus records a target's status and restyles the surface if it shows it.
func (m *Machine) SetStatus(id string, status Status) error {
	t := m.state.targets[id]
	if t == nil {
		return fmt.Errorf("set status of %q: %w", id, ErrNoTarget)
	}
	t.Status = status
	if m.state.Active == id {
		m.updateSurface()
	}
	m.publish()
	return nil
}

// Show opens the panel on target id, or on the active target when id is empty.
// An open panel is retargeted in place. force polls the target before drawing
// even if the poll interval has not elapsed. Show cancels a pending auto-hide.
func (m *Machine) Show(id string, force bool) error {
	s := m.state
	t, err := m.resolve(id)
	if err != nil {
		return err
	}
	s.AutoHide.Cancel()
	s.touch(t)
	switched := s.Active != t.ID
	s.Active = t.ID

	if s.Surface != nil {
		m.updateSurface()
		if switched {
			t.rendered = 0
		}
		m.pollActive(force || switched)
		m.publish()
		return nil
	}

	gen := s.Render.Next()
	m.tryOpen(gen, t.Config.AutoOpen.Retries)
	m.publish()
	return nil
}

func (m *Machine) resolve(id string) (*Target, error) {
	s := m.state
	if id == "" {
		id = s.Active
	}
	if id == "" {
		if t := s.recent(); t != nil {
			return t, nil
		}
		return nil, ErrNoTarget
	}
	t := s.targets[id]
	if t == nil {
		return nil, fmt.Errorf("show %q: %w", id, ErrNoTarget)
	}
	return t, nil
}

// tryOpen creates the surface, retrying on the loop while the render token
// stays current.
func (m *Machine) tryOpen(gen uint64, retries int) {
	s := m.state
	if !s.Render.Current(gen) || s.Surface != nil {
		return
	}
	t := s.ActiveTarget()
	if t == nil {
		return
	}

	surface, err := m.open(t)
	if err != nil {
		if retries > 0 {
			m.log.Debug().Err(err).Int("retries_left", retries).Msg("surface not ready, retrying")
			m.loop.After(t.Config.AutoOpen.Delay, func() { m.tryOpen(gen, retries-1) })
			return
		}
		m.log.Warn().Err(err).Str("target", t.ID).Msg("open panel failed")
		return
	}

	s.Surface = surface
	t.rendered = 0
	m.pollActive(true)
	m.schedulePoll()
	m.publish()
}

func (m *Machine) open(t *Target) (Surface, error) {
	spec, err := m.spec(t)
	if err != nil {
		return nil, err
	}
	surface, err := m.host.Open(spec)
	if err != nil {
		return nil, fmt.Errorf("open surface: %w", err)
	}
	return surface, nil
}

func (m *Machine) spec(t *Target) (SurfaceSpec, error) {
	rows, cols, err := m.host.Viewport()
	if err != nil {
		return SurfaceSpec{}, fmt.Errorf("%w: %v", ErrViewportNotReady, err)
	}
	bounds := geometry.Resolve(m.state.Mode, t.Config.Presets, rows, cols)
	if bounds.Empty() {
		return SurfaceSpec{}, fmt.Errorf("%w: %dx%d", ErrViewportNotReady, rows, cols)
	}
	return SurfaceSpec{
		Bounds:    bounds,
		Mode:      m.state.Mode,
		TargetID:  t.ID,
		Title:     t.Name,
		Status:    t.Status,
		Highlight: t.Config.BorderHighlight,
		Follow:    m.state.Follow,
	}, nil
}

func (m *Machine) updateSurface() {
	s := m.state
	t := s.ActiveTarget()
	if s.Surface == nil || t == nil {
		return
	}
	spec, err := m.spec(t)
	if err != nil {
		m.log.Debug().Err(err).Msg("skip surface update")
		return
	}
	if err := s.Surface.Update(spec); err != nil {
		m.log.Warn().Err(err).Msg("update surface failed")
	}
}

// Hide closes the panel and cancels auto-hide, render retries and polling.
func (m *Machine) Hide() {
	s := m.state
	s.AutoHide.Cancel()
	s.Render.Cancel()
	s.Poll.Cancel()
	if s.Surface != nil {
		if err := s.Surface.Close(); err != nil {
			m.log.Debug().Err(err).Msg("close surface failed")
		}
		s.Surface = nil
	}
	m.publish()
}

// Toggle hides an open panel and shows a closed one.
func (m *Machine) Toggle() error {
	if m.state.Surface != nil {
		m.Hide()
		return nil
	}
	return m.Show("", false)
}

// ToggleFocus swaps mini and focus in place. A closed panel opens in focus mode.
func (m *Machine) ToggleFocus() error {
	s := m.state
	if s.Surface == nil {
		s.Mode = geometry.ModeFocus
		return m.Show("", false)
	}
	s.Mode = s.Mode.Other()
	m.updateSurface()
	m.publish()
	return nil
}

// SetMode changes the geometry mode, restyling an open surface.
func (m *Machine) SetMode(mode geometry.Mode) {
	m.state.Mode = mode
	m.updateSurface()
	m.publish()
}

// Relayout recomputes bounds after the viewport changed size.
func (m *Machine) Relayout() {
	m.updateSurface()
}

// ScheduleAutoHide hides the panel after delay unless another auto-hide is
// scheduled, the panel is shown again or it is hidden first.
func (m *Machine) ScheduleAutoHide(delay time.Duration) {
	gen := m.state.AutoHide.Next()
	m.loop.After(delay, func() {
		if !m.state.AutoHide.Current(gen) {
			return
		}
		m.Hide()
	})
}

// SetFollow turns tailing on or off.
func (m *Machine) SetFollow(follow bool) {
	if m.state.Follow == follow {
		return
	}
	m.state.Follow = follow
	if follow {
		if t := m.state.ActiveTarget(); t != nil && m.state.Surface != nil {
			m.state.Surface.SetLines(t.Buffer.Lines(), true)
		}
	}
	m.updateSurface()
	m.publish()
}

// Scrolled reports the distance in lines between the view and the last line.
// Scrolling to within scrolloff_margin of the bottom re-engages follow;
// scrolling further up releases it.
func (m *Machine) Scrolled(distance int) {
	margin := 0
	if t := m.state.ActiveTarget(); t != nil {
		margin = t.Config.ScrolloffMargin
	}
	m.SetFollow(distance <= margin)
}

// Select makes the target delta steps away in registration order active.
func (m *Machine) Select(delta int) error {
	s := m.state
	n := len(s.order)
	if n == 0 {
		return ErrNoTarget
	}
	idx := 0
	for i, id := range s.order {
		if id == s.Active {
			idx = i
			break
		}
	}
	next := s.order[((idx+delta)%n+n)%n]
	if s.Surface != nil {
		return m.Show(next, true)
	}
	s.Active = next
	s.touch(s.targets[next])
	m.publish()
	return nil
}

// Refresh polls target id now, ignoring the poll interval.
func (m *Machine) Refresh(id string) error {
	s := m.state
	t := s.targets[id]
	if t == nil {
		return fmt.Errorf("refresh %q: %w", id, ErrNoTarget)
	}
	if s.Active == id && s.Surface != nil {
		m.pollActive(true)
	} else {
		logtail.Poll(&t.Cursor, t.Buffer, logtail.PollOptions{MaxLines: t.Config.MaxLines, Force: true})
	}
	m.publish()
	return nil
}

// Reset hides the panel and restores the initial mode and follow flag.
// Targets and their buffers are kept.
func (m *Machine) Reset() {
	m.Hide()
	m.state.Mode = geometry.ModeMini
	m.state.Follow = true
	m.publish()
}

func (m *Machine) schedulePoll() {
	s := m.state
	t := s.ActiveTarget()
	if t == nil {
		return
	}
	gen := s.Poll.Next()
	m.loop.After(t.Config.Poll.Interval, func() { m.pollTick(gen) })
}

func (m *Machine) pollTick(gen uint64) {
	s := m.state
	if !s.Poll.Current(gen) || s.Surface == nil {
		return
	}
	m.pollActive(false)
	if t := s.ActiveTarget(); t != nil {
		m.loop.After(t.Config.Poll.Interval, func() { m.pollTick(gen) })
	}
}

// pollActive reads new output for the active target and pushes it to the surface.
func (m *Machine) pollActive(force bool) {
	s := m.state
	t := s.ActiveTarget()
	if t == nil {
		return
	}
	res := logtail.Poll(&t.Cursor, t.Buffer, logtail.PollOptions{
		MaxLines: t.Config.MaxLines,
		Interval: t.Config.Poll.Interval,
		Force:    force,
	})
	// rendered holds the drawn buffer version plus one; zero forces a redraw.
	if s.Surface == nil || t.rendered == t.Buffer.Version()+1 {
		return
	}
	s.Surface.SetLines(t.Buffer.Lines(), s.Follow)
	t.rendered = t.Buffer.Version() + 1
	if res.Changed() {
		m.publish()
	}
}

// Summary snapshots the state.
func (m *Machine) Summary() Summary {
	s := m.state
	sum := Summary{
		Active: s.Active,
		Open:   s.Surface != nil,
		Mode:   s.Mode,
		Follow: s.Follow,
	}
	for _, id := range s.order {
		t := s.targets[id]
		sum.Targets = append(sum.Targets, TargetInfo{
			ID:       t.ID,
			Name:     t.Name,
			LogPath:  t.Cursor.Path,
			Status:   t.Status,
			ExitCode: t.ExitCode,
			Lines:    t.Buffer.Len(),
			Dropped:  t.Buffer.Dropped(),
			Active:   t.ID == s.Active,
		})
	}
	return sum
}

func (m *Machine) publish() {
	m.host.Publish(m.Summary())
}
