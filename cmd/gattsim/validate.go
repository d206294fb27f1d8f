package main

import (
	"fmt"

	"github.com/XC-/peripheral/config"
	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <profile>",
	Short: "Check a GATT profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		n := 0
		for _, s := range cfg.Services {
			n += len(s.Characteristics)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d services, %d characteristics\n", args[0], len(cfg.Services), n)
		return nil
	},
}
