// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"fmt"
)

// Event is a discrete lid transition.
type Event int

const (
	Open Event = iota + 1
	Close
)

func (e Event) String() string {
	switch e {
	case Open:
		return "open"
	case Close:
		return "close"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

func (e Event) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Event) UnmarshalText(b []byte) error {
	switch string(b) {
	case "open":
		*e = Open
	case "close":
		*e = Close
	default:
		return fmt.Errorf("unknown gesture event %q", b)
	}
	return nil
}

// Thresholds are the pitch limits in degrees. The lid opens above Open and
// closes below Close; nothing happens in between.
type Thresholds struct {
	Open  float64 `json:"open"`
	Close float64 `json:"close"`
}

// DefaultThresholds leave a 70° dead zone so a lid resting half open never
// chatters.
var DefaultThresholds = Thresholds{Open: 80, Close: 10}

// Validate checks that the thresholds form a non-empty dead zone inside the
// pitch range.
func (t Thresholds) Validate() error {
	if t.Open <= t.Close {
		return fmt.Errorf("open threshold %.1f must be above close threshold %.1f", t.Open, t.Close)
	}
	if t.Open > 90 || t.Close < -90 {
		return fmt.Errorf("thresholds %.1f/%.1f outside the pitch range [-90, 90]", t.Open, t.Close)
	}
	return nil
}

// Hysteresis is the two-threshold open/close state machine. The zero value
// uses zero thresholds; build one with NewHysteresis.
type Hysteresis struct {
	thresholds Thresholds
	open       bool
}

// NewHysteresis starts closed.
func NewHysteresis(t Thresholds) Hysteresis {
	return Hysteresis{thresholds: t}
}

// Update feeds one pitch reading and reports the transition it caused, if
// any. Open and Close strictly alternate.
func (h *Hysteresis) Update(pitch float64) (Event, bool) {
	switch {
	case pitch > h.thresholds.Open && !h.open:
		h.open = true
		return Open, true
	case pitch < h.thresholds.Close && h.open:
		h.open = false
		return Close, true
	}
	return 0, false
}

func (h *Hysteresis) IsOpen() bool { return h.open }

// Reset forgets the last state and starts closed again.
func (h *Hysteresis) Reset() { h.open = false }

func (h *Hysteresis) Thresholds() Thresholds { return h.thresholds }
