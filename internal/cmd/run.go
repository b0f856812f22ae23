// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/feedme/internal/app"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// runner adapts an app.RunX function to cobra.
func runner(run func() error) func(*cobra.Command, []string) error {
	return func(*cobra.Command, []string) error { return run() }
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run the lid detector",
	Long: `Run the lid detector on the configured sensor and log every opening and
closing. With MQTT_BROKER set, transitions are published to TOPIC_EVENTS
and the status to TOPIC_STATUS.`,
	Args: cobra.NoArgs,
	RunE: runner(app.RunDetector),
}

var produceCmd = &cobra.Command{
	Use:   "produce",
	Short: "Publish raw sensor samples to MQTT",
	Long: `Read the local sensor at the sampling period and publish each sample to
TOPIC_SAMPLES, for a detector running with SENSOR_SOURCE=mqtt.`,
	Args: cobra.NoArgs,
	RunE: runner(app.RunSampleProducer),
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Print lid events and status from MQTT",
	Args:  cobra.NoArgs,
	RunE:  runner(app.RunConsoleMQTT),
}

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the status page and HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runner(app.RunWeb),
}

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "Show the status on an SSD1306 OLED",
	Args:  cobra.NoArgs,
	RunE:  runner(app.RunDisplay),
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Terminal feeder screen with a start/stop button",
	Args:  cobra.NoArgs,
	RunE:  runner(app.RunTUI),
}

func init() {
	rootCmd.AddCommand(detectCmd, produceCmd, consoleCmd, webCmd, displayCmd, tuiCmd)
}
