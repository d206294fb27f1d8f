package main

import (
	"github.com/XC-/peripheral"
	"github.com/XC-/peripheral/service"
	"github.com/XC-/peripheral/sim"
	"github.com/spf13/cobra"
)

// tableCmd represents the table command
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the attribute handle table of a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		logger := cfg.NewLogger()
		logger.SetOutput(cmd.ErrOrStderr())
		dev := peripheral.NewDevice(sim.New(logger), cfg.Options(logger, nil)...)
		if len(cfg.Services) == 0 {
			if _, err := service.AddCounter(dev); err != nil {
				return err
			}
			if err := service.AddBattery(dev, 100); err != nil {
				return err
			}
		} else if err := cfg.Apply(dev); err != nil {
			return err
		}
		return printTable(cmd.OutOrStdout(), dev.AttributeTable())
	},
}
