package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/runpane/internal/geometry"
	"github.com/five82/runpane/internal/panel"
)

// renderPanel renders the floating output panel at the size of its bounds.
func (m Model) renderPanel() string {
	spec := m.frame.Spec
	b := spec.Bounds

	background := m.theme.SurfaceAlt
	if spec.Mode == geometry.ModeFocus {
		background = m.theme.FocusBg
	}
	border := m.theme.BorderColor(spec.Status, spec.Highlight)

	vp := m.panel
	vp.Style = lipgloss.NewStyle().Background(lipgloss.Color(background))
	return m.renderTitledBox(panelTitle(spec, vp.TotalLineCount()), vp.View(), b.Width, b.Height, border, background)
}

// panelTitle builds "name · status · paused" for the top border.
func panelTitle(spec panel.SurfaceSpec, lines int) string {
	parts := []string{spec.Title}
	if spec.Title == "" {
		parts[0] = spec.TargetID
	}
	if spec.Status != "" && spec.Status != panel.StatusIdle {
		parts = append(parts, string(spec.Status))
	}
	if !spec.Follow {
		parts = append(parts, fmt.Sprintf("paused %d lines", lines))
	}
	return strings.Join(parts, " · ")
}

// renderToasts renders the visible toast stack, newest last, or "" when empty.
func (m Model) renderToasts() string {
	if m.toasts == nil {
		return ""
	}
	visible := m.toasts.Visible()
	if len(visible) == 0 {
		return ""
	}

	width := min(48, max(m.width-2, 10))
	maxToasts := max((m.height-2)/4, 1)
	if len(visible) > maxToasts {
		visible = visible[len(visible)-maxToasts:]
	}

	boxes := make([]string, 0, len(visible))
	for _, t := range visible {
		accent := lipgloss.Color(m.theme.LevelColor(t.Level))
		titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
		textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Text))

		title := t.Title
		if t.Persist {
			title += " (x to dismiss)"
		}
		body := titleStyle.Render(truncate(title, width-4)) + "\n" + textStyle.Render(truncate(t.Message, width-4))
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Background(lipgloss.Color(m.theme.Surface)).
			Padding(0, 1).
			Width(width - 2).
			Render(body)
		boxes = append(boxes, box)
	}
	return lipgloss.JoinVertical(lipgloss.Right, boxes...)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
