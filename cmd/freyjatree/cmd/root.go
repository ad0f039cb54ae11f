package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/freyjatree/pkg/config"
	"github.com/ssargent/freyjatree/pkg/engine"
	"github.com/ssargent/freyjatree/pkg/keys"
)

type dbContextKey struct{}

var dataDir string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "freyjatree",
	Short: "FreyjaTree - an embedded, versioned, copy-on-write B+-tree store",
	Long: `FreyjaTree is an embeddable keyed byte-stream store built on a
copy-on-write B+-tree, addressable by a 14-byte ordered key triple.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := os.MkdirAll(dataDir, 0o750); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		configPath := filepath.Join(dataDir, "config.yaml")
		var cfg config.Config
		if config.ConfigExists(configPath) {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = *loaded
		} else {
			cfg = *config.DefaultConfig()
		}
		cfg.DataDir = dataDir
		db, err := engine.Open(cfg, engine.Options{})
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), dbContextKey{}, db))
		return nil
	},
}

// Execute adds all child commands to rootCmd and sets flags appropriately.
// It is called by main.main() exactly once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "./data", "Data directory for the store")
}

func dbFromContext(cmd *cobra.Command) (*engine.Database, error) {
	db, ok := cmd.Context().Value(dbContextKey{}).(*engine.Database)
	if !ok {
		return nil, fmt.Errorf("database not initialized")
	}
	return db, nil
}

// parseKey parses the CLI's "type:secondary:primary" key notation into a
// keys.Key.
func parseKey(s string) (keys.Key, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return keys.Key{}, fmt.Errorf("key must be in type:secondary:primary form, got %q", s)
	}
	typ, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return keys.Key{}, fmt.Errorf("bad key type: %w", err)
	}
	secondary, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return keys.Key{}, fmt.Errorf("bad key secondary: %w", err)
	}
	primary, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return keys.Key{}, fmt.Errorf("bad key primary: %w", err)
	}
	return keys.New(uint16(typ), int32(secondary), primary), nil
}
