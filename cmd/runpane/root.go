package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/five82/runpane/internal/app"
	"github.com/five82/runpane/internal/logging"
)

var version = "0.1.0"

type globalFlags struct {
	configPath string
	prefsPath  string
	logLevel   string
	logFile    string

	logOut io.Closer
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "runpane",
		Short: "Run commands and watch their output in a floating panel",
		Long: `runpane supervises long-running commands, streams their output into a
floating terminal panel and notifies you when they start, succeed or fail.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setupLogging()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logOut != nil {
				_ = g.logOut.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/runpane/config.toml)")
	flags.StringVar(&g.prefsPath, "prefs", "", "preferences file (default ~/.config/runpane/prefs.toml)")
	flags.StringVar(&g.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error, off)")
	flags.StringVar(&g.logFile, "log-file", logging.DefaultFile(), "log file")

	root.AddCommand(newRunCmd(g))
	root.AddCommand(newTailCmd(g))
	root.AddCommand(newConfigCmd(g))
	root.AddCommand(newProfilesCmd(g))
	return root
}

func (g *globalFlags) setupLogging() error {
	cfg := logging.DefaultConfig()
	cfg.Level = g.logLevel
	cfg.Output = io.Discard
	if g.logFile != "" {
		f, err := logging.OpenFile(g.logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		g.logOut = f
		cfg.Output = f
	}
	logging.Init(cfg)
	return nil
}

func (g *globalFlags) appOptions(exitOnDone bool) app.Options {
	return app.Options{
		ConfigPath: g.configPath,
		PrefsPath:  g.prefsPath,
		ExitOnDone: exitOnDone,
		Logger:     logging.Component("supervisor"),
	}
}
