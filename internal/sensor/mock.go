// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensor

import (
	"math"
	"time"

	"github.com/relabs-tech/feedme/internal/orientation"
)

type mockReader struct {
	sensor Sensor
	start  time.Time
	swing  time.Duration
	now    func() time.Time
}

// NewMockReader creates a rotation vector reader for a lid that swings
// smoothly between closed (0°) and fully open (90°) once per swing.
func NewMockReader(swing time.Duration) Reader {
	if swing <= 0 {
		swing = 10 * time.Second
	}
	return &mockReader{
		sensor: Sensor{Name: "mock-rotation", Type: TypeRotationVector},
		start:  time.Now(),
		swing:  swing,
		now:    time.Now,
	}
}

func (m *mockReader) Sensor() Sensor { return m.sensor }

// pitch follows a raised cosine so the lid starts closed.
func (m *mockReader) pitch(at time.Time) float64 {
	phase := at.Sub(m.start).Seconds() / m.swing.Seconds()
	return 45 - 45*math.Cos(2*math.Pi*phase)
}

func (m *mockReader) Read() (Sample, error) {
	now := m.now()
	return Sample{
		Sensor:    m.sensor,
		Values:    orientation.RotationVectorForPitch(m.pitch(now)),
		Accuracy:  AccuracyHigh,
		Timestamp: now,
	}, nil
}

func (m *mockReader) Close() error { return nil }
