package main

import (
	"fmt"

	"workshop-billing-backend/internal/services/auth"

	"github.com/spf13/cobra"
)

var hashPasswordCmd = &cobra.Command{
	Use:     "hash-password <plain>",
	Short:   "Print the bcrypt hash to store for a user password",
	Example: `  workshopctl hash-password 's3cret'`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
