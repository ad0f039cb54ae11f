package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/freyjatree/pkg/config"
)

// initCmd bootstraps a database directory and its tuning configuration.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a FreyjaTree data directory and config file",
	Long: `Initialize creates the data directory, writes a default tuning
configuration (max_leaf_byte_size, max_branch_children, heap limits), and
generates this instance's commit token.

Example:
  freyjatree init --data-dir ./data`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		backend, _ := cmd.Flags().GetString("store-backend")
		configPath := filepath.Join(dataDir, "config.yaml")

		if config.ConfigExists(configPath) && !force {
			cmd.Printf("Already initialized at %s. Use --force to reinitialize.\n", configPath)
			return nil
		}

		if err := os.MkdirAll(dataDir, 0o750); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		cfg, err := config.BootstrapConfig(configPath, dataDir)
		if err != nil {
			return fmt.Errorf("failed to bootstrap config: %w", err)
		}
		if backend != "" {
			cfg.StoreBackend = backend
			if err := config.SaveConfig(cfg, configPath); err != nil {
				return fmt.Errorf("failed to save store backend choice: %w", err)
			}
		}

		cmd.Printf("Initialized FreyjaTree database.\n")
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		cmd.Printf("Config file: %s\n", configPath)
		cmd.Printf("Store backend: %s\n", cfg.StoreBackend)
		cmd.Printf("Instance key: %s\n", cfg.InstanceKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Reinitialize even if a config already exists")
	initCmd.Flags().String("store-backend", "", "Area allocator to use: file (default) or pebble")
}
