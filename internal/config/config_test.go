package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/runpane/internal/geometry"
)

func TestDefault_MatchesEmbeddedDefaults(t *testing.T) {
	cfg := Default()

	if cfg.MaxLines != 2000 {
		t.Fatalf("MaxLines = %d, want 2000", cfg.MaxLines)
	}
	if cfg.Mini.RowAnchor != geometry.AnchorBottom {
		t.Fatalf("Mini.RowAnchor = %q, want bottom", cfg.Mini.RowAnchor)
	}
	if cfg.Focus.WidthScale != 0.9 {
		t.Fatalf("Focus.WidthScale = %v, want 0.9", cfg.Focus.WidthScale)
	}
	if cfg.AutoOpen.Delay != 100*time.Millisecond {
		t.Fatalf("AutoOpen.Delay = %v, want 100ms", cfg.AutoOpen.Delay)
	}
	if cfg.Poll.Interval != 250*time.Millisecond {
		t.Fatalf("Poll.Interval = %v, want 250ms", cfg.Poll.Interval)
	}
	if cfg.AutoHide.Enabled {
		t.Fatalf("AutoHide.Enabled = true, want false")
	}
	if !cfg.OpenOnError || !cfg.Notifications.PersistFailure {
		t.Fatalf("OpenOnError/PersistFailure should default to true: %+v", cfg)
	}
}

func TestDecode_Durations(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  time.Duration
	}{
		{"duration string", "1.5s", 1500 * time.Millisecond},
		{"integer milliseconds", int64(750), 750 * time.Millisecond},
		{"numeric string", "40", 40 * time.Millisecond},
		{"float milliseconds", 12.5, 12500 * time.Microsecond},
		{"empty string", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Decode(Merge(Defaults(), Tree{"auto_hide": Tree{"delay": tt.value}}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.AutoHide.Delay)
		})
	}
}

func TestDecode_NormalizesOutOfRange(t *testing.T) {
	cfg, err := Decode(Merge(Defaults(), Tree{
		"max_lines":        0,
		"max_targets":      -3,
		"scrolloff_margin": -1,
		"poll":             Tree{"interval": "-1s"},
		"auto_open":        Tree{"retries": -2, "delay": "-5ms"},
		"notifications":    Tree{"title": "  "},
	}))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxLines, cfg.MaxLines)
	assert.Equal(t, DefaultMaxTargets, cfg.MaxTargets)
	assert.Equal(t, 0, cfg.ScrolloffMargin)
	assert.Equal(t, DefaultPollInterval, cfg.Poll.Interval)
	assert.Equal(t, 0, cfg.AutoOpen.Retries)
	assert.Equal(t, time.Duration(0), cfg.AutoOpen.Delay)
	assert.Equal(t, DefaultTitle, cfg.Notifications.Title)
}

func TestDecode_InvalidDurationFails(t *testing.T) {
	_, err := Decode(Tree{"poll": Tree{"interval": "soon"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode config")
}

func TestMerge_DeepAndNonMutating(t *testing.T) {
	base := Tree{
		"mini":  Tree{"width_min": int64(40), "row_anchor": "bottom"},
		"shell": []any{"bash", "-c"},
	}
	over := Tree{
		"mini":  Tree{"width_min": int64(10)},
		"shell": []any{"zsh"},
	}

	got := Merge(base, nil, over)

	mini := got["mini"].(Tree)
	assert.Equal(t, int64(10), mini["width_min"])
	assert.Equal(t, "bottom", mini["row_anchor"])
	assert.Equal(t, []any{"zsh"}, got["shell"], "arrays replace")

	assert.Equal(t, int64(40), base["mini"].(Tree)["width_min"], "base must not change")
	mini["row_anchor"] = "top"
	assert.Equal(t, "bottom", base["mini"].(Tree)["row_anchor"], "result must not alias base")
}

func baseWithProfiles() Tree {
	return Merge(Defaults(), Tree{
		"profiles": Tree{
			"quick": Tree{
				"auto_hide": Tree{"enabled": true, "delay": "1s"},
				"max_lines": int64(50),
			},
			"off": Tree{"enabled": false},
		},
	})
}

func TestResolve_Precedence(t *testing.T) {
	base := baseWithProfiles()

	cfg, err := Resolve(base, "quick", nil)
	require.NoError(t, err)
	assert.True(t, cfg.AutoHide.Enabled)
	assert.Equal(t, time.Second, cfg.AutoHide.Delay)
	assert.Equal(t, 50, cfg.MaxLines)

	cfg, err = Resolve(base, "quick", Tree{"auto_hide": Tree{"delay": "2s"}})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.AutoHide.Delay, "per-call overrides win over the profile")
	assert.True(t, cfg.AutoHide.Enabled, "profile keys not overridden survive")

	cfg, err = Resolve(base, "", nil)
	require.NoError(t, err)
	assert.False(t, cfg.AutoHide.Enabled)
	assert.Equal(t, 2000, cfg.MaxLines)
}

func TestResolve_UnknownProfileIgnored(t *testing.T) {
	cfg, err := Resolve(baseWithProfiles(), "missing", Tree{"max_lines": int64(7)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownProfile))
	assert.Equal(t, 7, cfg.MaxLines, "call overrides still apply")
}

func TestResolve_BadOverrideFallsBackToBase(t *testing.T) {
	cfg, err := Resolve(baseWithProfiles(), "quick", Tree{"max_lines": "lots"})
	require.Error(t, err)
	assert.Equal(t, 2000, cfg.MaxLines)
	assert.False(t, cfg.AutoHide.Enabled, "profile is dropped together with the bad layer")
}

func TestResolve_BadBaseFallsBackToDefaults(t *testing.T) {
	base := Merge(Defaults(), Tree{"poll": Tree{"interval": "soon"}})
	cfg, err := Resolve(base, "", nil)
	require.Error(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestProfileEnabled(t *testing.T) {
	base := baseWithProfiles()
	tests := []struct {
		name string
		want bool
	}{
		{"quick", true},
		{"QUICK", true},
		{"off", false},
		{"missing", false},
	}
	for _, tt := range tests {
		if got := ProfileEnabled(base, tt.name); got != tt.want {
			t.Fatalf("ProfileEnabled(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if names := ProfileNames(base); strings.Join(names, ",") != "off,quick,tail" {
		t.Fatalf("ProfileNames = %v, want [off quick tail]", names)
	}
}

func TestProfile_StripsEnabled(t *testing.T) {
	tree, ok := Profile(Merge(Defaults(), Tree{"profiles": Tree{"p": Tree{"enabled": true, "pty": true}}}), "p")
	require.True(t, ok)
	assert.NotContains(t, tree, "enabled")
	assert.Equal(t, true, tree["pty"])
}

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides([]string{
		"max_lines=42",
		"open_on_error=false",
		`auto_hide.delay="500ms"`,
		`shell=["zsh", "-c"]`,
		"notifications.title=build box",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), got["max_lines"])
	assert.Equal(t, false, got["open_on_error"])
	assert.Equal(t, "500ms", got["auto_hide"].(Tree)["delay"])
	assert.Equal(t, []any{"zsh", "-c"}, got["shell"])
	assert.Equal(t, "build box", got["notifications"].(Tree)["title"])

	cfg, err := Decode(Merge(Defaults(), got))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.MaxLines)
	assert.Equal(t, []string{"zsh", "-c"}, cfg.ShellArgv())
}

func TestParseOverrides_Invalid(t *testing.T) {
	for _, pair := range []string{"novalue", "=3", "a..b=1"} {
		if _, err := ParseOverrides([]string{pair}); err == nil {
			t.Fatalf("ParseOverrides(%q) returned nil error", pair)
		}
	}
}

func TestShellArgv_FallsBackToEnv(t *testing.T) {
	t.Setenv("SHELL", "/usr/bin/fish")
	assert.Equal(t, []string{"/usr/bin/fish", "-c"}, Config{}.ShellArgv())

	t.Setenv("SHELL", "")
	assert.Equal(t, []string{"/bin/sh", "-c"}, Config{}.ShellArgv())
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoader_MissingConfigUsesDefaults(t *testing.T) {
	isolate(t)

	tree, err := NewLoader().Load()
	require.NoError(t, err)

	cfg, err := Decode(Merge(Defaults(), tree))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoader_ReadsXDGConfig(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, "xdg", "runpane", "config.toml"), `
max_lines = 99

[auto_hide]
enabled = true
delay = "2s"

[profiles.Tests]
pty = true
`)

	loader := NewLoader()
	tree, err := loader.Load()
	require.NoError(t, err)
	assert.Contains(t, loader.ConfigFileUsed(), "config.toml")

	base := Merge(Defaults(), tree)
	cfg, err := Decode(base)
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.MaxLines)
	assert.True(t, cfg.AutoHide.Enabled)
	assert.Equal(t, 2*time.Second, cfg.AutoHide.Delay)

	assert.True(t, ProfileEnabled(base, "Tests"))
}

func TestLoader_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RUNPANE_POLL_INTERVAL", "1s")
	t.Setenv("RUNPANE_AUTO_HIDE_ENABLED", "true")
	t.Setenv("RUNPANE_MAX_LINES", "12")

	tree, err := NewLoader().Load()
	require.NoError(t, err)

	cfg, err := Decode(Merge(Defaults(), tree))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Poll.Interval)
	assert.True(t, cfg.AutoHide.Enabled)
	assert.Equal(t, 12, cfg.MaxLines)
}

func TestLoader_ExplicitFile(t *testing.T) {
	isolate(t)

	missing := NewLoader()
	missing.SetConfigFile(filepath.Join(t.TempDir(), "nope.toml"))
	_, err := missing.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")

	bad := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, bad, "max_lines = [")
	invalid := NewLoader()
	invalid.SetConfigFile(bad)
	_, err = invalid.Load()
	require.Error(t, err)

	wrongType := filepath.Join(t.TempDir(), "wrong.toml")
	writeFile(t, wrongType, `max_lines = "lots"`)
	loader := NewLoader()
	loader.SetConfigFile(wrongType)
	_, err = loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/a/b")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}
	if _, err := ExpandPath("   "); err == nil {
		t.Fatalf("ExpandPath returned nil error, want error")
	}
}

func TestDump(t *testing.T) {
	tree := Tree{"max_lines": int64(2000), "auto_hide": Tree{"enabled": true}}

	out, err := Dump(tree, "toml")
	require.NoError(t, err)
	assert.Contains(t, string(out), "max_lines = 2000")
	assert.Contains(t, string(out), "[auto_hide]")

	out, err = Dump(tree, "yaml")
	require.NoError(t, err)
	assert.Contains(t, string(out), "max_lines: 2000")
	assert.Contains(t, string(out), "enabled: true")

	_, err = Dump(tree, "xml")
	require.Error(t, err)
}
