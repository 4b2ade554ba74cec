package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harun/parley/internal/config"
	"github.com/harun/parley/internal/daemon"
	"github.com/harun/parley/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve [port]",
	Short: "Start the Parley hub service",
	Long: `Start the Parley hub service in the foreground.
The hub accepts TCP chat sessions and, when enabled, serves browser
clients over the WebSocket gateway. An optional port argument overrides
the configured hub port.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(args)
	if err != nil {
		return err
	}

	pidFile := pidFilePath(cfg)
	if isRunning(pidFile) {
		return fmt.Errorf("hub is already running (PID file: %s)", pidFile)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.Logging.Level,
		File:     cfg.Logging.File,
		Console:  true,
		Pretty:   true,
		MaxSize:  cfg.Logging.MaxSize,
		MaxAge:   cfg.Logging.MaxAge,
		Compress: cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	cmd.Printf("Hub listening on %s\n", d.GetHub().Addr())
	d.Wait()

	return nil
}

// loadServeConfig loads the configuration and applies the port argument
// and log-level flag on top of it.
func loadServeConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(args) == 1 {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", args[0], err)
		}
		cfg.Server.Port = port
	}

	if rootCmd.PersistentFlags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func pidFilePath(cfg *config.Config) string {
	if cfg != nil && cfg.DataDir != "" {
		return filepath.Join(cfg.DataDir, "parley.pid")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/parley.pid"
	}
	return filepath.Join(home, ".parley", "parley.pid")
}

func readPID(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}

	return pid, nil
}

func isRunning(pidFile string) bool {
	pid, err := readPID(pidFile)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds, so we need to send signal 0
	return process.Signal(syscall.Signal(0)) == nil
}
