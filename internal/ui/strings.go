package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// truncate shortens a string to the given cell width, adding an ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	if ansi.StringWidth(value) <= limit {
		return value
	}
	if limit <= 3 {
		return ansi.Truncate(value, limit, "")
	}
	return ansi.Truncate(value, limit, "...")
}

// truncateMiddle shortens a string by removing characters from the middle,
// preserving both the beginning and end. For paths, it preserves file extensions.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || value == "" {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}

	ellipsis := []rune("…/")
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}

	// Preserve the extension when the value looks like a path.
	if strings.Contains(value, "/") {
		lastDot := strings.LastIndex(value, ".")
		lastSlash := strings.LastIndex(value, "/")
		if lastDot > lastSlash && lastDot > 0 {
			ext := []rune(value[lastDot:])
			if len(ext) < 10 && len(ext) < limit/2 {
				base := []rune(value[:lastDot])
				baseLimit := limit - len(ext) - len(ellipsis)
				if baseLimit > 0 && len(base) > baseLimit {
					prefix := baseLimit / 2
					suffix := baseLimit - prefix
					return string(base[:prefix]) + string(ellipsis) + string(base[len(base)-suffix:]) + string(ext)
				}
			}
		}
	}

	keep := limit - len(ellipsis)
	prefix := keep / 2
	suffix := keep - prefix
	return string(runes[:prefix]) + string(ellipsis) + string(runes[len(runes)-suffix:])
}

// padRight pads a string with spaces to the given cell width.
func padRight(s string, width int) string {
	w := ansi.StringWidth(s)
	if width <= 0 || w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// sanitizeLine makes a log line safe to place in a fixed-width cell grid:
// tabs are expanded and carriage returns dropped.
func sanitizeLine(line string) string {
	line = strings.ReplaceAll(line, "\t", "    ")
	return strings.ReplaceAll(line, "\r", "")
}
