// Command conjunction simulates secondary contact between two populations
// and tracks the ancestry of every genome as junctions.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/talgya/conjunction/internal/config"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "conjunction",
		Short: "Secondary contact simulator with junction-based genomes",
		Long: `conjunction simulates a hybrid zone: two populations of pure ancestry
meet on a grid of demes (or as a single pool in 0D mode), migrate, mate
and recombine. Ancestry is tracked as junctions between A and B blocks.

Settings come from defaults, then the --config YAML file, then
CONJUNCTION_* environment variables, then command-line flags.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML settings file")

	rootCmd.AddCommand(
		newRunCmd(),
		newTopologyCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "conjunction version %s\n", version)
			}
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

// addSettingsFlags registers every settings flag on cmd.
func addSettingsFlags(cmd *cobra.Command) {
	defaults := config.Default()
	config.BindFlags(cmd.Flags(), &defaults)
}

// resolveSettings builds the settings of a command: defaults, the config
// file, the environment, then only the flags the user actually set.
func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	s := config.Default()
	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		loaded, err := config.LoadFromFile(f.Value.String())
		if err != nil {
			return config.Settings{}, err
		}
		s = loaded
	}
	config.ApplyEnv(&s)

	overlay := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	config.BindFlags(overlay, &s)
	var setErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if overlay.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		if err := overlay.Set(f.Name, f.Value.String()); err != nil {
			setErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	if setErr != nil {
		return config.Settings{}, setErr
	}

	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	s.Normalize()
	return s, nil
}
