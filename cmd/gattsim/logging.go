package main

import (
	"fmt"

	"github.com/XC-/peripheral/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// loadConfig reads --profile, or the defaults with the example
// services when no profile is given. --log-level overrides the
// profile's level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("profile")
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		if _, err := logrus.ParseLevel(lvl); err != nil {
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", lvl)
		}
		cfg.LogLevel = lvl
	}
	return cfg, nil
}
