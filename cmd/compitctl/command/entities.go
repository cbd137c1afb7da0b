// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package command

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/compit-bridge/internal/models"
)

func newEntitiesCommand(opts *options) *cobra.Command {
	var platformFlag string

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List projected entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			platform := models.PlatformNone
			if platformFlag != "" {
				p, ok := models.ParsePlatform(platformFlag)
				if !ok {
					return fmt.Errorf("unknown platform %q, want one of %v", platformFlag, models.Platforms)
				}
				platform = p
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			s, err := opts.openSession(ctx)
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			list := s.registry.List(platform)
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, list)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPLATFORM\tVALUE\tUNIT\tNAME")
			for _, e := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.UniqueID, e.Platform, formatValue(e), e.Unit, e.Name)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&platformFlag, "platform", "", "only list number, switch, select or sensor entities")
	return cmd
}

func formatValue(e models.EntityState) string {
	if e.Value == nil {
		return "-"
	}
	if f, ok := e.Value.(float64); ok {
		return fmt.Sprintf("%g", f)
	}
	return fmt.Sprint(e.Value)
}
