package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/parley/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show hub status",
	Long:  `Show the current status of the Parley hub service.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	pidFile := pidFilePath(cfg)

	if !isRunning(pidFile) {
		cmd.Println("Status: stopped")
		return nil
	}

	pid, err := readPID(pidFile)
	if err != nil {
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	cmd.Println("Status: running")
	cmd.Printf("PID: %d\n", pid)
	cmd.Printf("Hub: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	if cfg.Gateway.Enabled {
		cmd.Printf("Gateway: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	}

	// PID file modification time stands in for the start time
	if fileInfo, err := os.Stat(pidFile); err == nil {
		uptime := time.Since(fileInfo.ModTime())
		cmd.Printf("Uptime: %s\n", formatDuration(uptime))
	}

	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
