package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server"
	"github.com/hrygo/samay/store"
	"github.com/hrygo/samay/store/db"
)

func (a *app) serveCmd() *cobra.Command {
	var noMQTT bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the MQTT subscriber and the scheduling daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.v.ConfigFileUsed() != "" {
				profile.WatchLogLevel(a.v, a.level)
			}
			return a.withStore(ctx, func(ctx context.Context, s *store.Store) error {
				srv, err := server.NewServer(ctx, a.profile, s, server.Options{NoMQTT: noMQTT, Logger: a.logger})
				if err != nil {
					return err
				}
				a.logger.Info("samay starting",
					slog.String("server", srv.String()),
					slog.String("mode", a.profile.Mode),
					slog.String("driver", a.profile.Driver),
					slog.String("data", a.profile.Data),
				)
				if err := srv.Run(ctx); err != nil {
					return err
				}
				a.logger.Info("samay stopped")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noMQTT, "no-mqtt", false, "do not connect to the MQTT broker")
	return cmd
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			driver, err := db.NewDBDriver(a.profile)
			if err != nil {
				return err
			}
			s := store.New(driver, a.profile)
			s.SetLogger(a.logger)
			defer s.Close()

			ctx := cmd.Context()
			before, err := s.CurrentSchemaVersion(ctx)
			if err != nil {
				return err
			}
			if err := s.Migrate(ctx); err != nil {
				return err
			}
			after, err := s.CurrentSchemaVersion(ctx)
			if err != nil {
				return err
			}
			if before == after {
				fmt.Fprintf(a.out, "schema is up to date at version %d\n", after)
				return nil
			}
			fmt.Fprintf(a.out, "migrated schema from version %d to %d\n", before, after)
			return nil
		},
	}
}
