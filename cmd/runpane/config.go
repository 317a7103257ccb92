package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/five82/runpane/internal/app"
	"github.com/five82/runpane/internal/config"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	var (
		profile string
		format  string
		set     []string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Config prints the merged configuration: built-in defaults, the config file
and RUNPANE_* environment variables. With --profile the profile is applied and
the profile table is omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := app.LoadBase(g.configPath)
			if err != nil {
				return err
			}
			overrides, err := config.ParseOverrides(set)
			if err != nil {
				return err
			}
			tree, err := effectiveTree(base, profile, overrides)
			if err != nil {
				return err
			}
			out, err := config.Dump(tree, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "apply a profile")
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "output format (toml, yaml)")
	cmd.Flags().StringArrayVar(&set, "set", nil, "override a config key (key=value, repeatable)")
	return cmd
}

func effectiveTree(base config.Tree, profile string, overrides config.Tree) (config.Tree, error) {
	layers := []config.Tree{config.Defaults(), base}
	if name := strings.TrimSpace(profile); name != "" {
		tree, ok := config.Profile(base, name)
		if !ok {
			return nil, fmt.Errorf("%w %q", config.ErrUnknownProfile, name)
		}
		layers = append(layers, tree)
	}
	layers = append(layers, overrides)

	merged := config.Merge(layers...)
	if profile != "" {
		delete(merged, "profiles")
	}
	if _, err := config.Decode(merged); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return merged, nil
}

func newProfilesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := app.LoadBase(g.configPath)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range config.ProfileNames(base) {
				state := "enabled"
				if !config.ProfileEnabled(base, name) {
					state = "disabled"
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, state)
			}
			return tw.Flush()
		},
	}
}
