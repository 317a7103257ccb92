package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/runpane/internal/geometry"
)

//go:embed defaults.toml
var defaultsTOML []byte

// Fallbacks applied when a layer supplies an unusable value.
const (
	DefaultMaxLines     = 2000
	DefaultMaxTargets   = 16
	DefaultPollInterval = 250 * time.Millisecond
	DefaultTitle        = "runpane"
)

// ErrUnknownProfile is reported when a run names a profile that is not configured.
var ErrUnknownProfile = errors.New("unknown profile")

// Config is one fully merged configuration snapshot.
type Config struct {
	geometry.Presets `mapstructure:",squash"`

	AutoOpen        AutoOpen        `mapstructure:"auto_open"`
	AutoHide        AutoHide        `mapstructure:"auto_hide"`
	Notifications   Notifications   `mapstructure:"notifications"`
	Notifier        Notifier        `mapstructure:"notifier"`
	Poll            Poll            `mapstructure:"poll"`
	MaxLines        int             `mapstructure:"max_lines"`
	MaxTargets      int             `mapstructure:"max_targets"`
	OpenOnError     bool            `mapstructure:"open_on_error"`
	ScrolloffMargin int             `mapstructure:"scrolloff_margin"`
	BorderHighlight string          `mapstructure:"border_highlight"`
	PTY             bool            `mapstructure:"pty"`
	Shell           []string        `mapstructure:"shell"`
	Profiles        map[string]Tree `mapstructure:"profiles"`
}

// AutoOpen controls whether runs open the panel and how surface creation is retried.
type AutoOpen struct {
	Enabled bool          `mapstructure:"enabled"`
	Retries int           `mapstructure:"retries"`
	Delay   time.Duration `mapstructure:"delay"`
}

// AutoHide closes the panel after a successful run.
type AutoHide struct {
	Enabled bool          `mapstructure:"enabled"`
	Delay   time.Duration `mapstructure:"delay"`
}

// Notifications configures the notification router.
type Notifications struct {
	Enabled        bool          `mapstructure:"enabled"`
	Title          string        `mapstructure:"title"`
	PersistFailure bool          `mapstructure:"persist_failure"`
	Desktop        bool          `mapstructure:"desktop"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Notifier holds user notifier commands per level. Each entry is an argv
// template where {title}, {message} and {level} are substituted.
type Notifier struct {
	Info  []string `mapstructure:"info"`
	Warn  []string `mapstructure:"warn"`
	Error []string `mapstructure:"error"`
}

// Empty reports whether no level has a command.
func (n Notifier) Empty() bool {
	return len(n.Info) == 0 && len(n.Warn) == 0 && len(n.Error) == 0
}

// Poll configures the log poller cadence.
type Poll struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Defaults returns a fresh copy of the built-in default tree.
func Defaults() Tree {
	var tree Tree
	if err := toml.Unmarshal(defaultsTOML, &tree); err != nil {
		panic(fmt.Sprintf("parse embedded defaults: %v", err))
	}
	return tree
}

// Default decodes the built-in defaults.
func Default() Config {
	cfg, err := Decode(Defaults())
	if err != nil {
		panic(fmt.Sprintf("decode embedded defaults: %v", err))
	}
	return cfg
}

// Decode converts a merged tree into a Config and normalizes out-of-range values.
func Decode(tree Tree) (Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			durationHook,
			mapstructure.StringToSliceHookFunc(" "),
		),
	})
	if err != nil {
		return Config{}, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(tree)); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Resolve merges base, the named profile and per-call overrides, in that order,
// into a new snapshot. Per-call values win over the profile. The returned Config is
// always usable: on an unknown profile or an undecodable layer the offending
// layer is dropped and the error describes what was ignored.
func Resolve(base Tree, profile string, call Tree) (Config, error) {
	var errs []error

	var profileTree Tree
	if name := strings.TrimSpace(profile); name != "" {
		var ok bool
		profileTree, ok = Profile(base, name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w %q", ErrUnknownProfile, name))
		}
	}

	cfg, err := Decode(Merge(base, profileTree, call))
	if err == nil {
		return cfg, errors.Join(errs...)
	}
	errs = append(errs, fmt.Errorf("ignore profile and call overrides: %w", err))

	cfg, err = Decode(base)
	if err == nil {
		return cfg, errors.Join(errs...)
	}
	errs = append(errs, fmt.Errorf("ignore user config: %w", err))
	return Default(), errors.Join(errs...)
}

// Profile returns the partial tree for a named profile. The enabled flag is
// stripped because it describes the profile, not the configuration.
func Profile(base Tree, name string) (Tree, bool) {
	profiles, ok := asTree(base["profiles"])
	if !ok {
		return nil, false
	}
	raw, ok := profiles[name]
	if !ok {
		raw, ok = profiles[strings.ToLower(name)]
	}
	if !ok {
		return nil, false
	}
	tree, ok := asTree(raw)
	if !ok {
		return Tree{}, true
	}
	out := Clone(tree)
	delete(out, "enabled")
	return out, true
}

// ProfileEnabled reports whether a profile named name exists and is not
// explicitly disabled.
func ProfileEnabled(base Tree, name string) bool {
	profiles, ok := asTree(base["profiles"])
	if !ok {
		return false
	}
	raw, ok := profiles[name]
	if !ok {
		raw, ok = profiles[strings.ToLower(name)]
	}
	if !ok {
		return false
	}
	tree, ok := asTree(raw)
	if !ok {
		return true
	}
	enabled, present := tree["enabled"]
	if !present {
		return true
	}
	switch v := enabled.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err != nil || b
	default:
		return true
	}
}

// ProfileNames lists configured profiles.
func ProfileNames(base Tree) []string {
	profiles, ok := asTree(base["profiles"])
	if !ok {
		return nil
	}
	return sortedKeys(profiles)
}

// ShellArgv returns the argv prefix used to run shell-string commands.
func (c Config) ShellArgv() []string {
	if len(c.Shell) > 0 {
		return append([]string(nil), c.Shell...)
	}
	if sh := strings.TrimSpace(os.Getenv("SHELL")); sh != "" {
		return []string{sh, "-c"}
	}
	return []string{"/bin/sh", "-c"}
}

func (c *Config) normalize() {
	if c.MaxLines <= 0 {
		c.MaxLines = DefaultMaxLines
	}
	if c.MaxTargets <= 0 {
		c.MaxTargets = DefaultMaxTargets
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = DefaultPollInterval
	}
	if c.AutoOpen.Retries < 0 {
		c.AutoOpen.Retries = 0
	}
	if c.AutoOpen.Delay < 0 {
		c.AutoOpen.Delay = 0
	}
	if c.AutoHide.Delay < 0 {
		c.AutoHide.Delay = 0
	}
	if c.Notifications.Timeout < 0 {
		c.Notifications.Timeout = 0
	}
	if c.ScrolloffMargin < 0 {
		c.ScrolloffMargin = 0
	}
	if strings.TrimSpace(c.Notifications.Title) == "" {
		c.Notifications.Title = DefaultTitle
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

// durationHook accepts Go duration strings ("250ms") and bare numbers, which are
// read as milliseconds.
func durationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Duration(0), nil
		}
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(ms * float64(time.Millisecond)), nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", v, err)
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	case time.Duration:
		return v, nil
	}
	return data, nil
}
