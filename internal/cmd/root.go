// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/feedme/internal/config"
)

// DefaultConfigFile is read when --config is not given and the file exists.
const DefaultConfigFile = "feedme_config.txt"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "feedme",
	Short: "Lid open/close detector for a pet feeder",
	Long: `feedme watches a rotation sensor mounted on a feeder lid and reports
when the lid is opened and closed, with a "Last fed" status screen.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./"+DefaultConfigFile+" if present)")
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" && fileExists(DefaultConfigFile) {
		path = DefaultConfigFile
	}

	if err := config.InitGlobal(path); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := config.Get()
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if path != "" {
		log.Debugf("config loaded from %s", path)
	}
	return nil
}
