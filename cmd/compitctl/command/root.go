// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/compit-bridge/internal/compit"
	"github.com/tomtom215/compit-bridge/internal/config"
	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/entity"
	"github.com/tomtom215/compit-bridge/internal/logging"
)

// APIFactory builds the remote client a command talks to.
type APIFactory func(cfg *config.Config) coordinator.API

func defaultAPI(cfg *config.Config) coordinator.API {
	return compit.NewClient(&cfg.Compit)
}

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath      string
	credentialsPath string
	timeout         time.Duration
	jsonOutput      bool
	verbose         bool

	newAPI APIFactory
}

// NewRootCommand creates the compitctl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultAPI)
}

func newRootCommand(newAPI APIFactory) *cobra.Command {
	opts := &options{newAPI: newAPI}

	rootCmd := &cobra.Command{
		Use:   "compitctl",
		Short: "Inspect and control Compit devices",
		Long: `compitctl logs in to the Compit cloud service with the account credentials,
projects device parameters into entities and reads or writes them.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			logging.Init(logging.Config{
				Level:     level,
				Format:    "console",
				Timestamp: true,
				Output:    cmd.ErrOrStderr(),
			})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: CONFIG_PATH or ./config.yaml)")
	flags.StringVar(&opts.credentialsPath, "credentials", "", "YAML file with email and password")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline for the command")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of a table")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newLoginCommand(opts),
		newGatesCommand(opts),
		newEntitiesCommand(opts),
		newSetCommand(opts),
	)
	return rootCmd
}

// loadConfig layers the credentials file over the koanf configuration.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithKoanf(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.credentialsPath != "" {
		creds, err := config.LoadCredentials(o.credentialsPath)
		if err != nil {
			return nil, err
		}
		cfg.ApplyCredentials(creds)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is one synchronized view of the account.
type session struct {
	cfg      *config.Config
	api      coordinator.API
	coord    *coordinator.Coordinator
	registry *entity.Registry
}

// openSession refreshes once and projects the entities. A refresh that
// failed for some devices still yields a usable session.
func (o *options) openSession(ctx context.Context) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	api := o.newAPI(cfg)
	coord := coordinator.New(api, coordinator.NewConfig(cfg))
	registry := entity.NewRegistry(coord, nil)
	registry.Attach(coord)

	if err := coord.Refresh(ctx); err != nil {
		if coord.Status().State != coordinator.StateDegraded {
			coord.Stop()
			return nil, fmt.Errorf("refresh: %w", err)
		}
		logging.Warn().Err(err).Msg("Some devices could not be refreshed")
	}

	return &session{cfg: cfg, api: api, coord: coord, registry: registry}, nil
}

func (s *session) Close() {
	s.coord.Stop()
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describeError turns the client error taxonomy into operator-facing text.
func describeError(err error) error {
	var authErr *compit.AuthError
	var transportErr *compit.TransportError
	var notFound *compit.NotFoundError
	switch {
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed, check the account credentials: %w", err)
	case errors.As(err, &transportErr):
		return fmt.Errorf("compit service unavailable: %w", err)
	case errors.As(err, &notFound):
		return fmt.Errorf("not found: %w", err)
	case errors.Is(err, entity.ErrNotWritable):
		return fmt.Errorf("entity is read-only: %w", err)
	default:
		return err
	}
}
