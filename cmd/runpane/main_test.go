package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/runpane/internal/config"
)

const testConfig = `
[profiles.quick]
auto_hide = { enabled = true, delay = "1s" }

[profiles.off]
enabled = false
`

func baseWithProfiles() config.Tree {
	return config.Merge(config.Defaults(), config.Tree{
		"profiles": config.Tree{
			"quick": config.Tree{"auto_hide": config.Tree{"enabled": true, "delay": "1s"}},
		},
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "runpane"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "runpane", "config.toml"), []byte(testConfig), 0o644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-file", filepath.Join(dir, "runpane.log")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunFlags_Spec(t *testing.T) {
	cmd := newRunCmd(&globalFlags{})
	require.NoError(t, cmd.ParseFlags([]string{
		"--profile", "quick", "--no-open", "--pty", "--set", "auto_hide.delay=5s",
		"--success", "built", "make", "-k",
	}))
	f := cmd.Flags()
	require.Equal(t, []string{"make", "-k"}, f.Args())

	rf := &runFlags{}
	rf.profile, _ = f.GetString("profile")
	rf.noOpen, _ = f.GetBool("no-open")
	rf.pty, _ = f.GetBool("pty")
	rf.set, _ = f.GetStringArray("set")
	rf.Success, _ = f.GetString("success")

	spec, err := rf.spec(cmd, f.Args())
	require.NoError(t, err)
	assert.Equal(t, "make", spec.Name)
	assert.Equal(t, "quick", spec.Profile)
	assert.Equal(t, "built", spec.Success)
	assert.Equal(t, "make -k", spec.Cmd.String())
	require.NotNil(t, spec.Open)
	assert.False(t, *spec.Open)
	require.NotNil(t, spec.PTY)
	assert.True(t, *spec.PTY)
	assert.Equal(t, config.Tree{"auto_hide": config.Tree{"delay": "5s"}}, spec.Config)
}

func TestRunFlags_SpecLeavesUnsetOptionsNil(t *testing.T) {
	cmd := newRunCmd(&globalFlags{})
	require.NoError(t, cmd.ParseFlags([]string{"go", "test"}))

	spec, err := (&runFlags{}).spec(cmd, []string{"go", "test"})
	require.NoError(t, err)
	assert.Nil(t, spec.Open)
	assert.Nil(t, spec.PTY)
}

func TestRunFlags_BadOverride(t *testing.T) {
	cmd := newRunCmd(&globalFlags{})
	_, err := (&runFlags{set: []string{"novalue"}}).spec(cmd, []string{"true"})
	require.Error(t, err)
}

func TestDefaultName(t *testing.T) {
	tests := []struct {
		args  []string
		shell bool
		want  string
	}{
		{nil, false, "run"},
		{[]string{"/usr/bin/make", "all"}, false, "make"},
		{[]string{"cargo build && cargo test"}, true, "cargo"},
		{[]string{"   "}, true, "sh"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, defaultName(tt.args, tt.shell), "args %q", tt.args)
	}
}

func TestEffectiveTree_AppliesProfile(t *testing.T) {
	tree, err := effectiveTree(baseWithProfiles(), "quick", nil)
	require.NoError(t, err)
	assert.NotContains(t, tree, "profiles")

	cfg, err := config.Decode(tree)
	require.NoError(t, err)
	assert.True(t, cfg.AutoHide.Enabled)
	assert.Equal(t, time.Second, cfg.AutoHide.Delay)
}

func TestEffectiveTree_UnknownProfile(t *testing.T) {
	_, err := effectiveTree(config.Defaults(), "nope", nil)
	require.True(t, errors.Is(err, config.ErrUnknownProfile))
}

func TestProfilesCommand(t *testing.T) {
	out, err := execute(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "quick")
	assert.Contains(t, out, "tail")
	assert.Regexp(t, `off\s+disabled`, out)
	assert.Regexp(t, `quick\s+enabled`, out)
}

func TestConfigCommand_YAML(t *testing.T) {
	out, err := execute(t, "config", "--format", "yaml", "--set", "poll.interval=1s")
	require.NoError(t, err)
	assert.Contains(t, out, "poll:")
	assert.Contains(t, out, "interval: 1s")
}

func TestConfigCommand_ExplicitConfigMustExist(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(os.TempDir(), "runpane-missing", "config.toml"), "config")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "config"))
}

func TestExitError(t *testing.T) {
	var err error = &exitError{code: 3}
	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 3, exit.code)
	assert.Equal(t, "exit status 3", err.Error())
}
