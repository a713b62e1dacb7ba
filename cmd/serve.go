package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/oafund/internal/auth"
	"github.com/theirongolddev/oafund/internal/backup"
	"github.com/theirongolddev/oafund/internal/client"
	"github.com/theirongolddev/oafund/internal/config"
	"github.com/theirongolddev/oafund/internal/fund"
	"github.com/theirongolddev/oafund/internal/server"
)

type serveRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DBPath    string    `json:"db_path"`
}

var (
	flagServeAddr    string
	flagServeDetach  bool
	flagServePIDFile string
	flagServeLogFile string
	flagServeChild   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for submissions and staff review",
	RunE:  runServe,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server process and API status",
	RunE:  runServeStatus,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE:  runServeStop,
}

func init() {
	defaultPID := filepath.Join(config.DataDir(), "oafund.pid")
	defaultLog := filepath.Join(config.DataDir(), "oafund.log")

	serveCmd.PersistentFlags().StringVar(&flagServeAddr, "addr", "", "HTTP listen address (overrides config)")
	serveCmd.PersistentFlags().StringVar(&flagServePIDFile, "pid-file", defaultPID, "PID file path")
	serveCmd.PersistentFlags().StringVar(&flagServeLogFile, "log-file", defaultLog, "Log file path for detached mode")

	serveCmd.Flags().BoolVar(&flagServeDetach, "detach", false, "Run the server as a background process")
	serveCmd.Flags().BoolVar(&flagServeChild, "child", false, "Internal: mark detached child process")
	_ = serveCmd.Flags().MarkHidden("child")

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	if flagServeDetach && flagServeChild {
		return errors.New("invalid serve launch mode")
	}

	if flagServeDetach {
		return startServeDetached()
	}

	return runServeForeground()
}

func startServeDetached() error {
	if err := ensureServerNotRunning(flagServePIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagServeLogFile), 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(flagServeLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached server: %w", err)
	}

	fmt.Printf("  Started server (pid %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagServePIDFile)
	fmt.Printf("  Log: %s\n", flagServeLogFile)
	return nil
}

func runServeForeground() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tokens, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		return err
	}

	hub := server.NewHub(cfg.Server.EventsBuffer)
	a, err := openApp(fund.WithEvents(hub))
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	addr := cfg.Server.Addr
	if flagServeAddr != "" {
		addr = flagServeAddr
	}

	if err := ensureServerNotRunning(flagServePIDFile); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}
	pid := os.Getpid()
	if err := writePID(flagServePIDFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagServePIDFile) }()

	state := serveRuntimeState{
		PID:       pid,
		Addr:      addr,
		StartedAt: time.Now(),
		DBPath:    cfg.DBPath(),
	}
	_ = writeState(statePath(flagServePIDFile), state)
	defer func() { _ = os.Remove(statePath(flagServePIDFile)) }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if spec := cfg.Backup.Schedule; spec != "" {
		m := backup.New(a.store, cfg.BackupDir(), cfg.Retention(), log)
		c, err := m.Schedule(ctx, spec)
		if err != nil {
			return err
		}
		defer c.Stop()
	}

	srv := server.New(server.Config{
		Addr:           addr,
		UploadDir:      cfg.UploadDir(),
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		HistoryLimit:   cfg.General.HistoryLimit,
		DBPath:         cfg.DBPath(),
	}, a.fund, hub, tokens, log)

	fmt.Printf("  oafund listening on http://%s\n", addr)
	fmt.Printf("  Database: %s\n", cfg.DBPath())
	fmt.Printf("  Stop with: oafund serve stop --pid-file %s\n", flagServePIDFile)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runServeStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		fmt.Printf("  Server: not running (pid file not found)\n")
		return nil
	}

	if !processAlive(pid) {
		fmt.Printf("  Server: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := flagServeAddr
	if st, err := readState(statePath(flagServePIDFile)); err == nil && st.Addr != "" && addr == "" {
		addr = st.Addr
	}
	if addr == "" {
		addr = config.DefaultConfig().Server.Addr
	}

	fmt.Printf("  Server PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	c := client.New(addr)
	if err := c.Health(ctx); err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	fmt.Println("  API status: ok")

	// The detailed status is staff-only; mint a short token when the
	// secret is available locally.
	cfg, err := loadConfig()
	if err != nil || cfg.Auth.JWTSecret == "" {
		return nil
	}
	tokens, err := auth.NewIssuer(cfg.Auth.JWTSecret, time.Minute)
	if err != nil {
		return nil
	}
	tok, _, err := tokens.Issue("serve-status")
	if err != nil {
		return nil
	}
	st, err := c.WithToken(tok).Status(ctx)
	if err != nil {
		fmt.Printf("  Status endpoint: %v\n", err)
		return nil
	}
	fmt.Printf("  Started: %s\n", st.StartedAt.Local().Format(time.RFC3339))
	fmt.Printf("  Uptime: %s\n", (time.Duration(st.UptimeSec) * time.Second).String())
	fmt.Printf("  Database: %s\n", st.DBPath)
	fmt.Printf("  Events buffered: %d\n", st.EventCount)
	fmt.Printf("  Stream subscribers: %d\n", st.SubscriberCount)
	return nil
}

func runServeStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		return errors.New("server is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find server process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal server process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagServePIDFile)
			_ = os.Remove(statePath(flagServePIDFile))
			fmt.Printf("  Stopped server (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("server (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureServerNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("server already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st serveRuntimeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (serveRuntimeState, error) {
	var st serveRuntimeState
	//nolint:gosec // state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
