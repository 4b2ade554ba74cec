package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/parley/internal/config"
)

// writeTestConfig writes a minimal config file pointing data_dir at tmpDir
// and returns its path.
func writeTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	cfgPath := filepath.Join(tmpDir, "config.json")
	content := fmt.Sprintf(`{"data_dir": %q}`, tmpDir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	return cfgPath
}

func TestServeCommand(t *testing.T) {
	t.Run("command exists", func(t *testing.T) {
		cmd := GetRootCmd()

		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == "serve" {
				found = true
				break
			}
		}
		assert.True(t, found, "serve command should exist")
	})

	t.Run("help text", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"serve", "--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "Start the Parley hub service")
	})

	t.Run("refuses to start twice", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfgPath := writeTestConfig(t, tmpDir)

		// a PID file naming this very process means the hub is up
		pidFile := filepath.Join(tmpDir, "parley.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644))

		cmd := GetRootCmd()
		cmd.SetArgs([]string{"serve", "--config", cfgPath})
		t.Cleanup(func() { cfgFile = "" })

		output := &bytes.Buffer{}
		cmd.SetOut(output)
		cmd.SetErr(output)

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already running")
	})
}

func TestLoadServeConfig(t *testing.T) {
	t.Run("should override port from argument", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfgFile = writeTestConfig(t, tmpDir)
		t.Cleanup(func() { cfgFile = "" })

		cfg, err := loadServeConfig([]string{"9000"})
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
	})

	t.Run("should reject non-numeric port", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfgFile = writeTestConfig(t, tmpDir)
		t.Cleanup(func() { cfgFile = "" })

		_, err := loadServeConfig([]string{"not-a-port"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid port")
	})
}

func TestPIDFilePath(t *testing.T) {
	t.Run("uses data dir when set", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.DataDir = "/var/lib/parley"

		assert.Equal(t, "/var/lib/parley/parley.pid", pidFilePath(cfg))
	})

	t.Run("falls back without data dir", func(t *testing.T) {
		path := pidFilePath(nil)
		assert.NotEmpty(t, path)
		assert.Contains(t, path, "parley.pid")
	})
}

func TestReadPID(t *testing.T) {
	t.Run("valid pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "test.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("12345\n"), 0o644))

		pid, err := readPID(pidFile)
		require.NoError(t, err)
		assert.Equal(t, 12345, pid)
	})

	t.Run("invalid pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "invalid.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("invalid"), 0o644))

		_, err := readPID(pidFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid PID file")
	})
}

func TestIsRunning(t *testing.T) {
	t.Run("no pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "nonexistent.pid")

		assert.False(t, isRunning(pidFile))
	})

	t.Run("invalid pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "invalid.pid")

		err := os.WriteFile(pidFile, []byte("invalid"), 0o644)
		require.NoError(t, err)

		assert.False(t, isRunning(pidFile))
	})

	t.Run("current process", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "self.pid")

		err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644)
		require.NoError(t, err)

		assert.True(t, isRunning(pidFile))
	})
}
