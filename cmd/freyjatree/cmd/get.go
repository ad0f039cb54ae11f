package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/freyjatree/pkg/txerr"
)

// getCmd reads the full byte stream under a key.
var getCmd = &cobra.Command{
	Use:   "get <type:secondary:primary>",
	Short: "Read the data stored under a key",
	Long: `Get reads the full byte stream addressed by a key.

Example:
  freyjatree get 1:0:42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := dbFromContext(cmd)
		if err != nil {
			return err
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}

		data, err := db.Get(key)
		if err != nil {
			if err == txerr.ErrKeyNotFound {
				cmd.Printf("key not found\n")
				return nil
			}
			return fmt.Errorf("get failed: %w", err)
		}
		cmd.Printf("%s\n", string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
