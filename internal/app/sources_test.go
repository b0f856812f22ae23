// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relabs-tech/feedme/internal/config"
	"github.com/relabs-tech/feedme/internal/sensor"
)

func TestOpenReader_Mock(t *testing.T) {
	cfg := config.Default()

	r, err := openReader(cfg)
	if err != nil {
		t.Fatalf("openReader: %v", err)
	}
	defer r.Close()
	if r.Sensor().Type != sensor.TypeRotationVector {
		t.Errorf("sensor type = %s", r.Sensor().Type)
	}
}

func TestOpenReader_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.SensorSource = "camera"
	if _, err := openReader(cfg); err == nil {
		t.Error("expected error for unknown source")
	}

	cfg = config.Default()
	cfg.SensorSource = config.SourceReplay
	cfg.ReplayFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := openReader(cfg); err == nil {
		t.Error("expected error for missing trace")
	}
}

// The whole local pipeline: replay trace -> manager -> detector -> monitor.
func TestNewDetector_ReplayPipeline(t *testing.T) {
	trace := filepath.Join(t.TempDir(), "lid.yaml")
	body := `name: feeding
samples:
  - pitch: 2
  - pitch: 45
  - pitch: 86
  - pitch: 60
  - pitch: 3
`
	if err := os.WriteFile(trace, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.SensorSource = config.SourceReplay
	cfg.ReplayFile = trace
	cfg.SamplingPeriodMicros = 20000

	det, mgr, err := newDetector(cfg)
	if err != nil {
		t.Fatalf("newDetector: %v", err)
	}
	defer mgr.Close()

	mon := NewMonitor(det)
	updates := make(chan Status, 8)
	mon.Subscribe(func(s Status) { updates <- s })

	if err := mon.Start(); err != nil {
		t.Fatal(err)
	}
	defer mon.Stop()

	var sawOpen bool
	for {
		select {
		case s := <-updates:
			if s.Open {
				sawOpen = s.LastFed != nil
			}
			if s.Feeds == 1 && !s.Open {
				if !sawOpen {
					t.Fatal("closed without a preceding open update")
				}
				if !s.Active {
					t.Errorf("close update = %+v", s)
				}
				return
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out, status %+v", mon.Status())
		}
	}
}
