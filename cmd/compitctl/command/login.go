// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/compit-bridge/internal/logging"
)

type loginResult struct {
	Email     string `json:"email"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Gates     int    `json:"gates"`
	Devices   int    `json:"devices"`
}

func newLoginCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify the account credentials",
		Long:  `Exchange the account credentials for a token and report what the account can see.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			api := opts.newAPI(cfg)
			cred, err := api.Authenticate(ctx, cfg.Compit.Email, cfg.Compit.Password)
			if err != nil {
				return describeError(err)
			}
			gates, err := api.FetchTopology(ctx)
			if err != nil {
				return describeError(err)
			}

			res := loginResult{
				Email: cfg.Compit.Email,
				Token: logging.SanitizeToken(cred.Token),
				Gates: len(gates),
			}
			for _, g := range gates {
				res.Devices += len(g.Devices)
			}
			if !cred.ExpiresAt.IsZero() {
				res.ExpiresAt = cred.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, res)
			}
			fmt.Fprintf(out, "Logged in as %s (%d gates, %d devices)\n", res.Email, res.Gates, res.Devices)
			if res.ExpiresAt != "" {
				fmt.Fprintf(out, "Token expires %s\n", res.ExpiresAt)
			}
			return nil
		},
	}
}
