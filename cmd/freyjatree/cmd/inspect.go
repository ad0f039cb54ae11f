package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/freyjatree/pkg/datafile"
)

// inspectCmd dumps a key's leaf-chain shape: a minimal, CLI-level consumer
// of the core's read-only introspection, not a core component itself.
var inspectCmd = &cobra.Command{
	Use:   "inspect <type:secondary:primary>",
	Short: "Show a key's leaf chain shape and current root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := dbFromContext(cmd)
		if err != nil {
			return err
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}

		cmd.Printf("root: %s\n", db.Root())

		f, tx, err := db.OpenDataFile(key)
		if err != nil {
			return err
		}
		defer tx.Discard()

		exists, err := f.Exists()
		if err != nil {
			return err
		}
		if !exists {
			cmd.Printf("key %s has no data\n", args[0])
			return nil
		}

		meta, err := datafile.Addressable(f).GetBlockLocationMeta()
		if err != nil {
			return err
		}
		cmd.Printf("size: %d bytes across %d leaf chain entries\n", meta.TotalBytes, meta.ChainLength)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
