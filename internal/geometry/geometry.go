// Package geometry computes where the floating output panel sits on screen.
//
// Resolve is pure: the same preset and viewport always produce the same bounds,
// and no combination of settings can place the panel outside the viewport.
package geometry

import (
	"math"
	"strings"
)

// Mode selects which geometry preset drives the panel.
type Mode string

const (
	ModeMini  Mode = "mini"
	ModeFocus Mode = "focus"
)

// ParseMode normalizes a mode name, defaulting to mini.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeFocus)) {
		return ModeFocus
	}
	return ModeMini
}

// Other returns the opposite mode.
func (m Mode) Other() Mode {
	if m == ModeFocus {
		return ModeMini
	}
	return ModeFocus
}

// Row anchors for Preset.RowAnchor.
const (
	AnchorTop    = "top"
	AnchorCenter = "center"
	AnchorBottom = "bottom"
)

// Preset is one geometry section of the configuration.
type Preset struct {
	WidthScale      float64 `mapstructure:"width_scale"`
	WidthMin        int     `mapstructure:"width_min"`
	WidthMax        int     `mapstructure:"width_max"`
	HeightRatio     float64 `mapstructure:"height_ratio"`
	HeightMin       int     `mapstructure:"height_min"`
	HeightMax       int     `mapstructure:"height_max"`
	RowAnchor       string  `mapstructure:"row_anchor"`
	RowOffset       int     `mapstructure:"row_offset"`
	HorizontalAlign float64 `mapstructure:"horizontal_align"`
	ColOffset       int     `mapstructure:"col_offset"`
}

// Presets pairs the mini and focus presets.
type Presets struct {
	Mini  Preset `mapstructure:"mini"`
	Focus Preset `mapstructure:"focus"`
}

// For returns the preset for mode.
func (p Presets) For(mode Mode) Preset {
	if mode == ModeFocus {
		return p.Focus
	}
	return p.Mini
}

// Bounds is a zero-based screen rectangle.
type Bounds struct {
	Row    int
	Col    int
	Width  int
	Height int
}

// Empty reports whether the rectangle has no area.
func (b Bounds) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Resolve computes panel bounds for mode inside a rows x cols viewport.
func Resolve(mode Mode, presets Presets, rows, cols int) Bounds {
	p := presets.For(mode)
	rows = max(rows, 0)
	cols = max(cols, 0)

	width := clampSize(scaled(cols, p.WidthScale), p.WidthMin, p.WidthMax)
	height := clampSize(scaled(rows, p.HeightRatio), p.HeightMin, p.HeightMax)
	width = clamp(width, 0, cols)
	height = clamp(height, 0, rows)

	var row int
	switch strings.ToLower(strings.TrimSpace(p.RowAnchor)) {
	case AnchorTop:
		row = p.RowOffset
	case AnchorBottom:
		row = rows - height - p.RowOffset
	default:
		row = round(float64(rows-height)/2) + p.RowOffset
	}

	align := p.HorizontalAlign
	if math.IsNaN(align) {
		align = 0.5
	}
	align = math.Min(math.Max(align, 0), 1)
	col := round(float64(cols-width)*align) + p.ColOffset

	return Bounds{
		Row:    clamp(row, 0, rows-height),
		Col:    clamp(col, 0, cols-width),
		Width:  width,
		Height: height,
	}
}

// clampSize applies the min/max limits of a preset; a max of zero means unbounded.
func clampSize(v, lo, hi int) int {
	if v < lo {
		v = lo
	}
	if hi > 0 && v > hi {
		v = hi
	}
	return max(v, 0)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}

func scaled(n int, factor float64) int {
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return 0
	}
	return round(float64(n) * factor)
}

func round(f float64) int {
	r := math.Round(f)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int(r)
}
