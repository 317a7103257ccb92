package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// placeOverlay draws fg over bg with its top-left corner at (row, col).
// Both are newline-separated blocks; the result is width x height cells.
// Styling in the uncovered parts of bg is preserved.
func placeOverlay(bg, fg string, row, col, width, height int) string {
	bgLines := strings.Split(bg, "\n")
	for len(bgLines) < height {
		bgLines = append(bgLines, "")
	}
	bgLines = bgLines[:height]
	fgLines := strings.Split(fg, "\n")

	var b strings.Builder
	for y, line := range bgLines {
		if y > 0 {
			b.WriteByte('\n')
		}
		i := y - row
		if i < 0 || i >= len(fgLines) {
			b.WriteString(line)
			continue
		}
		b.WriteString(spliceLine(line, fgLines[i], col, width))
	}
	return b.String()
}

// spliceLine replaces the cells of line starting at col with overlay.
func spliceLine(line, overlay string, col, width int) string {
	col = max(col, 0)
	if col >= width {
		return line
	}
	overlay = ansi.Truncate(overlay, width-col, "")
	ow := ansi.StringWidth(overlay)

	var b strings.Builder
	left := ansi.Truncate(line, col, "")
	b.WriteString(left)
	if lw := ansi.StringWidth(left); lw < col {
		b.WriteString(strings.Repeat(" ", col-lw))
	}
	// Reset so styling from the left part does not bleed into the overlay.
	b.WriteString("\x1b[0m")
	b.WriteString(overlay)

	rightStart := col + ow
	if rightStart < width {
		lineWidth := ansi.StringWidth(line)
		if rightStart < lineWidth {
			b.WriteString("\x1b[0m")
			b.WriteString(ansi.TruncateLeft(line, rightStart, ""))
		}
	}
	return b.String()
}
