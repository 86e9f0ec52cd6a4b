package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowgraph/csagent/pkg/prebuilt"
)

func newGraphCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [name]",
		Short: "List the prebuilt graphs or print one as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range prebuilt.DefaultRegistry.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			g, err := prebuilt.DefaultRegistry.Build(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		},
	}
}
