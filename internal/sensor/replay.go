// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/feedme/internal/orientation"
)

// Trace is a recorded or hand written sample sequence:
//
//	name: lid-bench
//	samples:
//	  - pitch: 5
//	  - pitch: 85
//	  - values: [0.62, 0, 0, 0.78]
//	    accuracy: 1
//	  - type: accelerometer
//	    values: [0, 0, 9.81]
type Trace struct {
	Name    string       `yaml:"name"`
	Samples []TraceEntry `yaml:"samples"`
}

// TraceEntry is one step of a trace. Pitch is a shorthand for a rotation
// vector that tilts the lid to that many degrees.
type TraceEntry struct {
	Type     Type      `yaml:"type"`
	Pitch    *float64  `yaml:"pitch"`
	Values   []float64 `yaml:"values"`
	Accuracy *Accuracy `yaml:"accuracy"`
}

// ParseTrace decodes and validates a YAML trace.
func ParseTrace(data []byte) (*Trace, error) {
	var t Trace
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("replay: parse trace: %w", err)
	}
	if len(t.Samples) == 0 {
		return nil, errors.New("replay: trace has no samples")
	}
	for i, e := range t.Samples {
		if e.Pitch == nil && len(e.Values) == 0 {
			return nil, fmt.Errorf("replay: sample %d: needs pitch or values", i)
		}
		if e.Pitch != nil && len(e.Values) > 0 {
			return nil, fmt.Errorf("replay: sample %d: pitch and values are exclusive", i)
		}
		if e.Pitch != nil && (*e.Pitch < -90 || *e.Pitch > 90) {
			return nil, fmt.Errorf("replay: sample %d: pitch %.1f outside [-90, 90]", i, *e.Pitch)
		}
	}
	if t.Name == "" {
		t.Name = "replay"
	}
	return &t, nil
}

// LoadTrace reads a YAML trace from disk.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay: read trace: %w", err)
	}
	return ParseTrace(data)
}

type replayReader struct {
	sensor Sensor
	trace  *Trace
	loop   bool

	mu   sync.Mutex
	next int
}

// NewReplayReader plays a trace one entry per Read. Without loop the reader
// returns io.EOF after the last entry.
func NewReplayReader(t *Trace, loop bool) Reader {
	return &replayReader{
		sensor: Sensor{Name: t.Name, Type: TypeRotationVector},
		trace:  t,
		loop:   loop,
	}
}

func (r *replayReader) Sensor() Sensor { return r.sensor }

func (r *replayReader) Read() (Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next >= len(r.trace.Samples) {
		if !r.loop {
			return Sample{}, io.EOF
		}
		r.next = 0
	}
	e := r.trace.Samples[r.next]
	r.next++

	s := Sample{
		Sensor:    r.sensor,
		Accuracy:  AccuracyHigh,
		Timestamp: time.Now(),
	}
	if e.Type != 0 {
		s.Sensor.Type = e.Type
	}
	if e.Accuracy != nil {
		s.Accuracy = *e.Accuracy
	}
	if e.Pitch != nil {
		s.Values = orientation.RotationVectorForPitch(*e.Pitch)
	} else {
		s.Values = append([]float64(nil), e.Values...)
	}
	return s, nil
}

func (r *replayReader) Close() error { return nil }
