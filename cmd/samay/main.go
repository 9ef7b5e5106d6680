package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/store"
	"github.com/hrygo/samay/store/db"
)

// app carries the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	level   *slog.LevelVar
	logger  *slog.Logger
	profile *profile.Profile
	out     io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), level: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:   "samay",
		Short: "Hindi voice scheduling: alarms, reminders, timers and calendar events",
		Long: `samay turns Hindi time expressions into stored commitments and fires them on time.

Utterances such as "कल सुबह 7 बजे अलार्म" or "हर सोमवार और बुधवार शाम 6 बजे याद दिलाना"
are parsed, resolved in IST and stored. The serve command runs the scheduling daemon,
which publishes a notification when each commitment comes due.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: samay.yaml in the data or working directory)")
	flags.String("mode", "", `mode of the server: "dev", "prod" or "demo"`)
	flags.String("data", "", "data directory")
	flags.String("driver", "", `database driver: "sqlite" or "postgres"`)
	flags.String("dsn", "", "database source name")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.StringP("output", "o", "table", "output format: table, json or yaml")
	for key, name := range map[string]string{
		"config":    "config",
		"mode":      "mode",
		"data":      "data",
		"driver":    "driver",
		"dsn":       "dsn",
		"log_level": "log-level",
		"output":    "output",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		a.serveCmd(),
		a.migrateCmd(),
		a.parseCmd(),
		a.addCmd(),
		a.listCmd(),
		a.cancelCmd(),
		a.completeCmd(),
		a.snoozeCmd(),
		a.timerStatusCmd(),
		a.exportICSCmd(),
		a.statusCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// init loads the profile and sets up logging. Logs go to stderr so stdout
// carries only command output.
func (a *app) init(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()

	if err := profile.ReadConfigFile(a.v, a.v.GetString("config"), a.v.GetString("data")); err != nil {
		return err
	}
	p, err := profile.Load(a.v)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	level, err := profile.ParseLogLevel(p.LogLevel)
	if err != nil {
		return err
	}
	a.level.Set(level)
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: a.level}))
	slog.SetDefault(a.logger)
	a.profile = p
	return nil
}

// withStore opens and migrates the store for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	driver, err := db.NewDBDriver(a.profile)
	if err != nil {
		return err
	}
	s := store.New(driver, a.profile)
	s.SetLogger(a.logger)
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}

func (a *app) output() string {
	return strings.ToLower(a.v.GetString("output"))
}
