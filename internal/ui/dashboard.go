package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/five82/runpane/internal/geometry"
	"github.com/five82/runpane/internal/panel"
)

// renderDashboard renders the full-screen background: header, run list and footer.
func (m Model) renderDashboard() string {
	header := m.renderHeader()
	footer := m.renderFooter()
	boxHeight := max(m.height-2, 2)
	box := m.renderTitledBox(m.listTitle(), m.renderTargets(m.width-2), m.width, boxHeight, m.theme.Border, m.theme.SurfaceAlt)
	return header + "\n" + box + "\n" + footer
}

// renderHeader renders the top status line.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var running, failed, done int
	for _, t := range m.frame.Summary.Targets {
		switch t.Status {
		case panel.StatusRunning:
			running++
		case panel.StatusFailure:
			failed++
			done++
		case panel.StatusSuccess:
			done++
		}
	}

	parts := []string{bg.Render(m.title, styles.Logo.Background(bg.Color()))}
	if running > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d running", running), styles.InfoText))
	}
	if failed > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d failed", failed), styles.DangerText))
	}
	parts = append(parts, bg.Render(fmt.Sprintf("%d done", done), styles.MutedText))
	if m.finished {
		parts = append(parts, bg.Render("idle", styles.FaintText))
	}
	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	left := strings.Join(parts, sep)

	right := bg.Render(m.modeLabel()+"  "+m.now.Format("15:04:05"), styles.MutedText)
	gap := m.width - ansi.StringWidth(left) - ansi.StringWidth(right) - 2
	if gap < 1 {
		return bg.FillLine(bg.Spaces(1)+left, m.width)
	}
	return bg.FillLine(bg.Spaces(1)+left+bg.Spaces(gap)+right, m.width)
}

func (m Model) modeLabel() string {
	sum := m.frame.Summary
	mode := sum.Mode
	if mode == "" {
		mode = geometry.ModeMini
	}
	follow := "follow"
	if !sum.Follow {
		follow = "paused"
	}
	return fmt.Sprintf("%s %s", mode, follow)
}

func (m Model) listTitle() string {
	n := len(m.frame.Summary.Targets)
	if n == 1 {
		return "1 run"
	}
	return fmt.Sprintf("%d runs", n)
}

// renderTargets renders one row per target, most important columns first.
func (m Model) renderTargets(width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)
	targets := m.frame.Summary.Targets

	if len(targets) == 0 {
		return bg.Render("No runs yet", styles.FaintText)
	}

	nameWidth := min(max(width/3, 12), 40)
	var rows []string
	for _, t := range targets {
		marker := "  "
		nameStyle := styles.Text
		if t.Active {
			marker = "▸ "
			nameStyle = styles.AccentText.Bold(true)
		}
		badge := styles.StatusStyle(t.Status).Render(string(t.Status))
		exit := ""
		if t.Status.Finished() {
			exit = fmt.Sprintf("exit %d", t.ExitCode)
		}
		info := fmt.Sprintf("%d lines", t.Lines)
		if t.Dropped > 0 {
			info += fmt.Sprintf(" (+%d dropped)", t.Dropped)
		}

		row := bg.Render(marker, styles.AccentText) +
			nameStyle.Render(padRight(truncate(t.Name, nameWidth), nameWidth)) +
			bg.Space() + badge + bg.Space() +
			bg.Render(padRight(exit, 8), styles.MutedText) +
			bg.Render(padRight(info, 12), styles.FaintText)

		if rest := width - ansi.StringWidth(row) - 1; rest > 8 && t.LogPath != "" {
			row += bg.Space() + bg.Render(truncateMiddle(t.LogPath, rest), styles.FaintText)
		}
		rows = append(rows, row)
	}
	if m.lastErr != "" {
		rows = append(rows, "", bg.Render(truncate(m.lastErr, width), styles.DangerText))
	}
	return strings.Join(rows, "\n")
}

// renderFooter renders the short key help.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	return styles.Footer.Width(m.width).Render(ansi.Truncate(m.help.View(m.keys), max(m.width-2, 0), ""))
}

// renderTitledBox draws a box with the title embedded in the top border:
// ┌─── Title ───┐
func (m Model) renderTitledBox(title, content string, width, height int, border, background string) string {
	if width < 2 || height < 2 {
		return ""
	}
	bg := NewBgStyle(background)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(border))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := width - 2
	title = truncate(title, max(innerWidth-4, 0))
	titleLen := ansi.StringWidth(title)
	var top string
	if titleLen == 0 {
		top = bg.Render("┌"+strings.Repeat("─", innerWidth)+"┐", borderStyle)
	} else {
		leftPad := max((innerWidth-titleLen-2)/2, 0)
		rightPad := max(innerWidth-titleLen-2-leftPad, 0)
		top = bg.Render("┌", borderStyle) +
			bg.Render(strings.Repeat("─", leftPad), borderStyle) +
			bg.Render(" "+title+" ", titleStyle) +
			bg.Render(strings.Repeat("─", rightPad), borderStyle) +
			bg.Render("┐", borderStyle)
	}

	bottom := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(bg.Color())
	contentLines := strings.Split(content, "\n")

	lines := make([]string, 0, height)
	lines = append(lines, top)
	for i := 0; i < height-2; i++ {
		var line string
		if i < len(contentLines) {
			line = ansi.Truncate(contentLines[i], innerWidth, "")
		}
		lines = append(lines, bg.Render("│", borderStyle)+contentStyle.Render(line)+bg.Render("│", borderStyle))
	}
	lines = append(lines, bottom)
	return strings.Join(lines, "\n")
}
