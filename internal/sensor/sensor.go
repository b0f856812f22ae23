// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensor models the platform sensor subsystem: sensor descriptors,
// samples, listeners and the register/unregister capability the gesture
// detector consumes. Manager is a polling implementation over Readers.
package sensor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type tags the kind of reading a sensor produces.
type Type int

const (
	TypeAccelerometer  Type = 1
	TypeMagneticField  Type = 2
	TypeGyroscope      Type = 4
	TypeRotationVector Type = 11
)

var typeNames = map[Type]string{
	TypeAccelerometer:  "accelerometer",
	TypeMagneticField:  "magnetic_field",
	TypeGyroscope:      "gyroscope",
	TypeRotationVector: "rotation_vector",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType accepts the names produced by Type.String, including the
// numeric "type(N)" form used for types without a name.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	if num, ok := strings.CutPrefix(s, "type("); ok {
		if num, ok = strings.CutSuffix(num, ")"); ok {
			n, err := strconv.Atoi(num)
			if err == nil {
				return Type(n), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown sensor type %q", s)
}

// MarshalText encodes the type by name so JSON and YAML payloads stay
// readable.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Accuracy is the reported confidence of a sensor.
type Accuracy int

const (
	AccuracyUnreliable Accuracy = 0
	AccuracyLow        Accuracy = 1
	AccuracyMedium     Accuracy = 2
	AccuracyHigh       Accuracy = 3
)

// Sensor describes one physical or virtual sensor.
type Sensor struct {
	Name string `json:"name" yaml:"name"`
	Type Type   `json:"type" yaml:"type"`
}

// Sample is a single reading. For rotation vectors Values holds
// x·sin(θ/2), y·sin(θ/2), z·sin(θ/2) and optionally cos(θ/2).
type Sample struct {
	Sensor    Sensor    `json:"sensor"`
	Values    []float64 `json:"values"`
	Accuracy  Accuracy  `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener receives samples and accuracy changes from a Subsystem.
type Listener interface {
	OnSample(s Sample)
	OnAccuracyChanged(s Sensor, accuracy Accuracy)
}

// EndListener is an optional Listener extension. OnStreamEnd is called
// once, on the delivery goroutine, when a registration ends because the
// sensor's reader is exhausted. No samples follow it.
type EndListener interface {
	Listener
	OnStreamEnd(s Sensor)
}

// Subsystem is the registration capability a sensor consumer needs.
type Subsystem interface {
	// DefaultSensor returns the preferred sensor of the given type.
	DefaultSensor(t Type) (Sensor, bool)
	// Register starts delivering samples of s to l, roughly once per period.
	Register(l Listener, s Sensor, period time.Duration) error
	// Unregister stops every delivery to l. Unknown listeners are ignored.
	Unregister(l Listener)
}

// Reader produces samples for one sensor.
type Reader interface {
	Sensor() Sensor
	// Read returns the next (or latest) sample. ErrNoSample means nothing
	// is available yet; io.EOF means the reader is exhausted.
	Read() (Sample, error)
	Close() error
}

var (
	// ErrNoSample is returned by readers that have not received data yet.
	ErrNoSample = errors.New("no sample available")
	// ErrUnknownSensor is returned when registering a sensor the subsystem
	// does not own.
	ErrUnknownSensor = errors.New("unknown sensor")
	// ErrClosed is returned by a closed Manager.
	ErrClosed = errors.New("sensor manager closed")
)
