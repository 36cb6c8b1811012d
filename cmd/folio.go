package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hsarchitect/folio/config"
	"github.com/hsarchitect/folio/server"
	"github.com/hsarchitect/folio/server/auth"
	"github.com/hsarchitect/folio/server/util"
	"github.com/hsarchitect/folio/storage/catalog"
)

const minPasswordLength = 8

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "folio: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	load := func() (*config.Config, error) {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg, nil
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the http server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return server.StartServer(cfg)
		},
	}

	root := &cobra.Command{
		Use:           "folio",
		Short:         "Portfolio site backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file (i.e., /etc/folio.yml); environment only when empty")

	root.AddCommand(serve, newSeedAdminCmd(load), newMigrateCmd(load))
	return root
}

func newSeedAdminCmd(load func() (*config.Config, error)) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or reset an admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				return errors.New("seed-admin needs a persistent database driver")
			}

			db, err := catalog.Open(cfg.Database)
			if err != nil {
				return err
			}
			cat := catalog.NewSQLCatalog(db)
			defer cat.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			return seedAdmin(ctx, cat.Users, email, password, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&password, "password", "", "Admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func seedAdmin(ctx context.Context, users catalog.UserStore, email, password string, out io.Writer) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", email)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	id, err := users.UpsertAdmin(ctx, email, hash)
	if err != nil {
		return fmt.Errorf("failed to save admin: %w", err)
	}

	fmt.Fprintf(out, "admin %s ready (id %d)\n", email, id)
	return nil
}

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate {up|down|version|force N}",
		Short:     "Run database migrations",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down", "version", "force"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				return errors.New("the memory driver has no migrations")
			}

			logger := util.NewLogger(cfg.Log, cfg.Debug, cmd.ErrOrStderr())
			return catalog.Migrate(cfg.Database, logger, args[0], args[1:]...)
		},
	}
}
