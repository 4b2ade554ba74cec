package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardRun(t *testing.T) {
	t.Run("accept all defaults", func(t *testing.T) {
		in := strings.NewReader("\n\n\n\n\n\n")
		var out bytes.Buffer

		cfg, err := NewWizardWithIO(in, &out).Run()

		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 8081, cfg.Server.Port)
		assert.True(t, cfg.Gateway.Enabled)
		assert.True(t, cfg.Bulletin.Enabled)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Contains(t, out.String(), "Configuration complete!")
	})

	t.Run("custom values with retry on bad port", func(t *testing.T) {
		in := strings.NewReader("0.0.0.0\nnope\n9000\ny\n9001\nn\ndebug\n")
		var out bytes.Buffer

		cfg, err := NewWizardWithIO(in, &out).Run()

		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 9001, cfg.Gateway.Port)
		assert.False(t, cfg.Bulletin.Enabled)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Contains(t, out.String(), "is not a number")
	})

	t.Run("disable gateway", func(t *testing.T) {
		in := strings.NewReader("\n\nn\n\n\n")
		var out bytes.Buffer

		cfg, err := NewWizardWithIO(in, &out).Run()

		require.NoError(t, err)
		assert.False(t, cfg.Gateway.Enabled)
	})
}
