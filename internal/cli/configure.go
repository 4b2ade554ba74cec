package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harun/parley/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Run interactive configuration wizard",
	Long: `Run an interactive configuration wizard to set up Parley.
The wizard will guide you through configuring the hub address, the
WebSocket gateway, the bulletin board, and logging.`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	// Create wizard
	wizard := config.NewWizard()

	// Run wizard
	cfg, err := wizard.Run()
	if err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Save configuration
	loader := config.NewLoader(cfgFile)
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	configPath := loader.GetConfigPath()
	cmd.Printf("\nConfiguration saved to: %s\n", configPath)
	cmd.Println("\nYou can now start the hub with: parley serve")

	return nil
}
