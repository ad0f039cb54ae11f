package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// putCmd writes a key's full contents, replacing whatever was there before.
var putCmd = &cobra.Command{
	Use:   "put <type:secondary:primary> <value>",
	Short: "Write a key's data",
	Long: `Put replaces the full byte stream addressed by a key and commits
immediately.

Example:
  freyjatree put 1:0:42 "hello world"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := dbFromContext(cmd)
		if err != nil {
			return err
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}

		if err := db.Put(key, []byte(args[1])); err != nil {
			return fmt.Errorf("put failed: %w", err)
		}
		cmd.Printf("ok\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
