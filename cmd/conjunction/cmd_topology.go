package main

import (
	"github.com/spf13/cobra"

	"github.com/talgya/conjunction/internal/entropy"
	"github.com/talgya/conjunction/internal/world"
)

func newTopologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Build the initial world and print its demes and edges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			w := world.New(s, entropy.New(s.Seed))
			if err := w.Restart(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w.WriteParameters(out)
			w.Describe(out)
			return nil
		},
	}
	addSettingsFlags(cmd)
	return cmd
}
