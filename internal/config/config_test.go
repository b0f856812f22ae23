// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedme.config")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `# lid detector
MQTT_BROKER=tcp://localhost:1883
SENSOR_SOURCE=replay
REPLAY_FILE=testdata/lid.yaml
REPLAY_LOOP=true

SAMPLING_PERIOD_US=250000
OPEN_THRESHOLD_DEG=70
CLOSE_THRESHOLD_DEG=20
RESET_ON_START=false
LOG_LEVEL=DEBUG
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MQTTBroker != "tcp://localhost:1883" {
		t.Errorf("MQTTBroker = %q", cfg.MQTTBroker)
	}
	if cfg.SensorSource != SourceReplay || cfg.ReplayFile != "testdata/lid.yaml" || !cfg.ReplayLoop {
		t.Errorf("replay settings = %q %q %v", cfg.SensorSource, cfg.ReplayFile, cfg.ReplayLoop)
	}
	if got := cfg.SamplingPeriod(); got != 250*time.Millisecond {
		t.Errorf("SamplingPeriod = %s", got)
	}
	if cfg.OpenThresholdDeg != 70 || cfg.CloseThresholdDeg != 20 {
		t.Errorf("thresholds = %v/%v", cfg.OpenThresholdDeg, cfg.CloseThresholdDeg)
	}
	if cfg.ResetOnStart {
		t.Error("ResetOnStart should be false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}

	// Untouched keys keep their defaults.
	def := Default()
	if cfg.TopicEvents != def.TopicEvents || cfg.WebServerPort != def.WebServerPort {
		t.Errorf("defaults not kept: %q %d", cfg.TopicEvents, cfg.WebServerPort)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "SENSOR_SOURCE=mock\nWEB_SERVER_PORT=8080\n")
	t.Setenv("FEEDME_WEB_SERVER_PORT", "9090")
	t.Setenv("FEEDME_TOPIC_EVENTS", "kitchen/lid")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebServerPort != 9090 {
		t.Errorf("WebServerPort = %d, want 9090", cfg.WebServerPort)
	}
	if cfg.TopicEvents != "kitchen/lid" {
		t.Errorf("TopicEvents = %q", cfg.TopicEvents)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("FEEDME_SENSOR_SOURCE", "serial")
	t.Setenv("FEEDME_SERIAL_PORT", "/dev/ttyUSB0")

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.SensorSource != SourceSerial || cfg.SerialPort != "/dev/ttyUSB0" {
		t.Errorf("got %q %q", cfg.SensorSource, cfg.SerialPort)
	}
	if cfg.SerialBaudRate != 9600 {
		t.Errorf("SerialBaudRate = %d", cfg.SerialBaudRate)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown key", "LID_COLOR=red\n", "unknown config key"},
		{"bad number", "SAMPLING_PERIOD_US=soon\n", "SAMPLING_PERIOD_US"},
		{"bad bool", "RESET_ON_START=maybe\n", "RESET_ON_START"},
		{"accel range", "IMU_ACCEL_RANGE=7\n", "IMU_ACCEL_RANGE"},
		{"inverted thresholds", "OPEN_THRESHOLD_DEG=10\nCLOSE_THRESHOLD_DEG=80\n", "must be above"},
		{"zero period", "SAMPLING_PERIOD_US=0\n", "must be positive"},
		{"unknown source", "SENSOR_SOURCE=camera\n", "unknown SENSOR_SOURCE"},
		{"serial without port", "SENSOR_SOURCE=serial\n", "SERIAL_PORT is required"},
		{"mqtt without broker", "SENSOR_SOURCE=mqtt\n", "MQTT_BROKER is required"},
		{"replay without file", "SENSOR_SOURCE=replay\n", "REPLAY_FILE is required"},
		{"port range", "WEB_SERVER_PORT=70000\n", "WEB_SERVER_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.config")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}
