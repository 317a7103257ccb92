package geometry

import (
	"math"
	"math/rand"
	"testing"
)

func miniPreset() Preset {
	return Preset{
		WidthScale:      0.5,
		WidthMin:        20,
		WidthMax:        80,
		HeightRatio:     0.25,
		HeightMin:       5,
		HeightMax:       15,
		RowAnchor:       AnchorBottom,
		RowOffset:       1,
		HorizontalAlign: 1,
	}
}

func TestResolve_Anchors(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
		offset int
		want   Bounds
	}{
		{"top", AnchorTop, 2, Bounds{Row: 2, Col: 50, Width: 50, Height: 10}},
		{"bottom", AnchorBottom, 1, Bounds{Row: 29, Col: 50, Width: 50, Height: 10}},
		{"center", AnchorCenter, 0, Bounds{Row: 15, Col: 50, Width: 50, Height: 10}},
		{"unknown behaves as center", "middle", 0, Bounds{Row: 15, Col: 50, Width: 50, Height: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := miniPreset()
			p.RowAnchor = tt.anchor
			p.RowOffset = tt.offset
			got := Resolve(ModeMini, Presets{Mini: p}, 40, 100)
			if got != tt.want {
				t.Fatalf("Resolve = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolve_WidthClampAndUnboundedMax(t *testing.T) {
	p := miniPreset()
	p.WidthScale = 0.9
	got := Resolve(ModeMini, Presets{Mini: p}, 40, 200)
	if got.Width != 80 {
		t.Fatalf("Width = %d, want clamp to width_max 80", got.Width)
	}

	p.WidthMax = 0
	got = Resolve(ModeMini, Presets{Mini: p}, 40, 200)
	if got.Width != 180 {
		t.Fatalf("Width = %d, want unbounded 180", got.Width)
	}

	p.WidthScale = 0.01
	got = Resolve(ModeMini, Presets{Mini: p}, 40, 200)
	if got.Width != 20 {
		t.Fatalf("Width = %d, want width_min 20", got.Width)
	}
}

func TestResolve_HorizontalAlign(t *testing.T) {
	p := miniPreset()
	p.HorizontalAlign = 0
	if got := Resolve(ModeMini, Presets{Mini: p}, 40, 100); got.Col != 0 {
		t.Fatalf("Col = %d, want 0 for left align", got.Col)
	}
	p.HorizontalAlign = 0.5
	if got := Resolve(ModeMini, Presets{Mini: p}, 40, 100); got.Col != 25 {
		t.Fatalf("Col = %d, want 25 for centered", got.Col)
	}
	p.HorizontalAlign = 7
	p.ColOffset = 3
	if got := Resolve(ModeMini, Presets{Mini: p}, 40, 100); got.Col != 50 {
		t.Fatalf("Col = %d, want clamp to 50", got.Col)
	}
}

func TestResolve_FocusPresetSelected(t *testing.T) {
	presets := Presets{
		Mini:  miniPreset(),
		Focus: Preset{WidthScale: 1, HeightRatio: 1, RowAnchor: AnchorCenter, HorizontalAlign: 0.5},
	}
	got := Resolve(ModeFocus, presets, 30, 90)
	want := Bounds{Row: 0, Col: 0, Width: 90, Height: 30}
	if got != want {
		t.Fatalf("Resolve(focus) = %+v, want %+v", got, want)
	}
}

func TestResolve_MinLargerThanViewport(t *testing.T) {
	p := miniPreset()
	p.WidthMin = 500
	p.HeightMin = 500
	p.WidthMax = 0
	p.HeightMax = 0
	got := Resolve(ModeMini, Presets{Mini: p}, 24, 80)
	want := Bounds{Row: 0, Col: 0, Width: 80, Height: 24}
	if got != want {
		t.Fatalf("Resolve = %+v, want %+v", got, want)
	}
}

func TestResolve_NeverOffScreen(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	anchors := []string{AnchorTop, AnchorCenter, AnchorBottom, "", "bogus"}
	for i := 0; i < 5000; i++ {
		p := Preset{
			WidthScale:      rng.Float64()*3 - 1,
			WidthMin:        rng.Intn(400) - 50,
			WidthMax:        rng.Intn(300),
			HeightRatio:     rng.Float64()*3 - 1,
			HeightMin:       rng.Intn(200) - 20,
			HeightMax:       rng.Intn(100),
			RowAnchor:       anchors[rng.Intn(len(anchors))],
			RowOffset:       rng.Intn(200) - 100,
			HorizontalAlign: rng.Float64()*4 - 2,
			ColOffset:       rng.Intn(400) - 200,
		}
		if i%97 == 0 {
			p.WidthScale = math.NaN()
			p.HorizontalAlign = math.Inf(1)
		}
		rows := rng.Intn(120) - 5
		cols := rng.Intn(300) - 5
		b := Resolve(ModeMini, Presets{Mini: p}, rows, cols)

		vr, vc := max(rows, 0), max(cols, 0)
		if b.Width < 0 || b.Height < 0 {
			t.Fatalf("negative size %+v for %+v", b, p)
		}
		if b.Row < 0 || b.Col < 0 {
			t.Fatalf("negative origin %+v for %+v", b, p)
		}
		if b.Row+b.Height > vr || b.Col+b.Width > vc {
			t.Fatalf("bounds %+v exceed viewport %dx%d for %+v", b, vr, vc, p)
		}
	}
}

func TestParseModeAndOther(t *testing.T) {
	if ParseMode(" Focus ") != ModeFocus {
		t.Fatalf("ParseMode(Focus) should be focus")
	}
	if ParseMode("anything") != ModeMini {
		t.Fatalf("ParseMode(anything) should default to mini")
	}
	if ModeMini.Other() != ModeFocus || ModeFocus.Other() != ModeMini {
		t.Fatalf("Other should swap modes")
	}
}
