// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package command

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newGatesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "gates",
		Short: "List gates and their devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			s, err := opts.openSession(ctx)
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			gates := s.coord.Gates()
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, gates)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GATE\tCODE\tDEVICE\tID\tCLASS\tTYPE\tDEFINITION")
			for _, g := range gates {
				for _, d := range g.Devices {
					def := "-"
					if dd, ok := s.coord.Definition(d); ok {
						def = dd.Name
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
						g.Label, g.Code, d.Label, d.ID, d.Class, d.Type, def)
				}
			}
			return tw.Flush()
		},
	}
}
