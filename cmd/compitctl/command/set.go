// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/compit-bridge/internal/models"
	"github.com/tomtom215/compit-bridge/internal/mqtt"
)

// ErrWriteRejected is returned when the service declines a value.
var ErrWriteRejected = errors.New("write rejected by the compit service")

func newSetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <entity-id> <value>",
		Short: "Set the value of a writable entity",
		Long: `Set the value of a number, switch or select entity. Values are read as JSON
scalars when they parse, so 55 is a number and true a boolean; anything else
is taken as text (a select option label).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			value, err := mqtt.ParseCommand([]byte(args[1]))
			if err != nil {
				return fmt.Errorf("invalid value: %w", err)
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			s, err := opts.openSession(ctx)
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			ok, err := s.registry.Write(ctx, id, value)
			if err != nil {
				return describeError(err)
			}
			if !ok {
				return ErrWriteRejected
			}

			e, _ := s.registry.Get(id)
			state := e.State()
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, models.WriteResult{UniqueID: id, Accepted: true, Entity: &state})
			}
			fmt.Fprintf(out, "%s = %s\n", id, formatValue(state))
			return nil
		},
	}
}
