// Package cmd implements the oafund CLI commands.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/oafund/internal/config"
	"github.com/theirongolddev/oafund/internal/fund"
	"github.com/theirongolddev/oafund/internal/notify"
	"github.com/theirongolddev/oafund/internal/store"
)

var (
	flagConfig   string
	flagDB       string
	flagLogLevel string
	flagQuiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "oafund",
	Short: "Open access fund request tracker",
	Long:  "Track open access publication funding requests, their review and the fund's budget ledger.",
	RunE:  runBudgetShow,

	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
}

// loadConfig reads .env, the config file and the global flag overrides.
func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

// newLogger builds the process logger from config. Logs go to stderr so
// command output on stdout stays clean.
func newLogger(cfg config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if flagQuiet && level > logrus.WarnLevel {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	switch cfg.Log.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}
	return log, nil
}

// app bundles what most commands need.
type app struct {
	cfg   config.Config
	log   *logrus.Logger
	store *store.Store
	fund  *fund.Service
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("closing database")
	}
}

// openApp loads config, opens the database and wires the fund service.
// Callers must Close the result.
func openApp(opts ...fund.Option) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	log.WithField("db", dbPath).Debug("database opened")

	mailer := notify.New(notify.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)

	base := []fund.Option{fund.WithLogger(log)}
	if mailer.Enabled() {
		base = append(base, fund.WithNotifier(mailer))
	}
	svc := fund.New(st, append(base, opts...)...)

	return &app{cfg: cfg, log: log, store: st, fund: svc}, nil
}

// actorName is recorded on status changes made from the command line.
func actorName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}
