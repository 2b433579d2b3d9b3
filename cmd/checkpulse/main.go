package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/stride-coaching/checkpulse/internal/api"
	"github.com/stride-coaching/checkpulse/internal/lockfile"
	"github.com/stride-coaching/checkpulse/internal/notify"
	"github.com/stride-coaching/checkpulse/internal/reminder"
	"github.com/stride-coaching/checkpulse/internal/resolver"
	"github.com/stride-coaching/checkpulse/internal/scheduler"
	"github.com/stride-coaching/checkpulse/internal/store"
	"github.com/stride-coaching/checkpulse/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for CheckPulse state data
	DefaultStateDir = "/var/lib/checkpulse"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "checkpulse.db"
	// DefaultReminderCron fires the reminder sweep every morning at 09:00
	DefaultReminderCron = "0 9 * * *"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	// Hold the state directory for the lifetime of the process.
	lock, err := lockfile.Acquire(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	server := api.NewServer(st, buildAPIOptions(flags)...)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if *flags.remindersOn {
		if err := startReminderSweep(st, sched, flags); err != nil {
			slog.Error("Failed to start reminder sweep", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("Reminder sweep disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping CheckPulse", "api_addr", *flags.apiAddr, "state_dir", *flags.stateDir, "reminders", *flags.remindersOn)
	if err := server.Run(ctx); err != nil {
		slog.Error("CheckPulse failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("CheckPulse exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	StateDir     string
	APIAddr      string
	ReminderCron string
	RemindersOn  bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	apiAddr      *string
	reminderCron *string
	remindersOn  *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     util.EnvOrDefault("CHECKPULSE_STATE_DIR", DefaultStateDir),
		APIAddr:      os.Getenv("CHECKPULSE_API_ADDR"),
		ReminderCron: util.EnvOrDefault("CHECKPULSE_REMINDER_CRON", DefaultReminderCron),
		RemindersOn:  util.ParseBoolEnv("CHECKPULSE_REMINDERS_ENABLED", true),
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"CHECKPULSE_STATE_DIR", config.StateDir,
		"CHECKPULSE_API_ADDR", config.APIAddr,
		"CHECKPULSE_REMINDER_CRON", config.ReminderCron,
		"CHECKPULSE_REMINDERS_ENABLED", config.RemindersOn)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for CheckPulse data (overrides $CHECKPULSE_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for the survey store (overrides $DATABASE_URL)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $CHECKPULSE_API_ADDR)"),
		reminderCron: flag.String("reminder-cron", config.ReminderCron, "cron schedule for the SMS reminder sweep (overrides $CHECKPULSE_REMINDER_CRON)"),
		remindersOn:  flag.Bool("reminders", config.RemindersOn, "enable the SMS reminder sweep (overrides $CHECKPULSE_REMINDERS_ENABLED)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"reminderCron", *flags.reminderCron,
		"reminders", *flags.remindersOn)

	// Re-derive the SQLite default when only the state directory was overridden
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "db_path", *flags.dbDSN)
	}

	return flags
}

// openStore opens the configured storage backend.
func openStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

// startReminderSweep wires the Twilio sender and registers the sweep job.
// A missing Twilio configuration is not fatal; reminders are skipped.
func startReminderSweep(st store.Store, sched *scheduler.Scheduler, flags Flags) error {
	sender, err := notify.NewClient()
	if err != nil {
		slog.Warn("Twilio not configured, reminder sweep disabled", "error", err)
		return nil
	}
	svc := reminder.NewService(st, resolver.New(st, nil), sender)
	return sched.AddJob(*flags.reminderCron, func() {
		svc.Sweep(context.Background())
	})
}
