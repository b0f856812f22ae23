// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"math"
	"math/rand"
	"testing"
)

func TestHysteresis_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		startOpen bool
		pitches   []float64
		want      []Event
		wantOpen  bool
	}{
		{"closed, 85 opens", false, []float64{85}, []Event{Open}, true},
		{"open, 45 stays open", true, []float64{45}, nil, true},
		{"open, 5 closes", true, []float64{5}, []Event{Close}, false},
		{"closed, 90 then 95 opens once", false, []float64{90, 95}, []Event{Open}, true},
		{"closed, 5 stays closed", false, []float64{5}, nil, false},
		{"boundaries are inside the dead zone", false, []float64{80, 10, 80}, nil, false},
		{"open boundary from open", true, []float64{10}, nil, true},
		{"full cycle", false, []float64{0, 50, 81, 70, 20, 9, 50, 85}, []Event{Open, Close, Open}, true},
		{"NaN is ignored", false, []float64{math.NaN()}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHysteresis(DefaultThresholds)
			if tt.startOpen {
				if _, ok := h.Update(90); !ok {
					t.Fatal("could not prime open state")
				}
			}

			var got []Event
			for _, p := range tt.pitches {
				if ev, ok := h.Update(p); ok {
					got = append(got, ev)
				}
			}

			if len(got) != len(tt.want) {
				t.Fatalf("events = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("events = %v, want %v", got, tt.want)
				}
			}
			if h.IsOpen() != tt.wantOpen {
				t.Errorf("IsOpen = %v, want %v", h.IsOpen(), tt.wantOpen)
			}
		})
	}
}

func TestHysteresis_DeadZoneNeverEmits(t *testing.T) {
	for _, startOpen := range []bool{false, true} {
		h := NewHysteresis(DefaultThresholds)
		if startOpen {
			h.Update(90)
		}
		for p := 10.0; p <= 80.0; p += 0.25 {
			if ev, ok := h.Update(p); ok {
				t.Fatalf("startOpen=%v: pitch %v emitted %s", startOpen, p, ev)
			}
		}
		if h.IsOpen() != startOpen {
			t.Errorf("state changed inside the dead zone (startOpen=%v)", startOpen)
		}
	}
}

func TestHysteresis_StrictAlternation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	h := NewHysteresis(DefaultThresholds)

	var last Event
	var sawOpenTrigger bool
	for i := 0; i < 10000; i++ {
		p := rng.Float64()*180 - 90
		ev, ok := h.Update(p)
		if p > DefaultThresholds.Open {
			sawOpenTrigger = true
		}
		if !ok {
			continue
		}
		switch ev {
		case Open:
			if last == Open {
				t.Fatalf("step %d: two opens in a row", i)
			}
			if p <= DefaultThresholds.Open {
				t.Fatalf("step %d: open at pitch %v", i, p)
			}
		case Close:
			if last != Open {
				t.Fatalf("step %d: close without a preceding open", i)
			}
			if p >= DefaultThresholds.Close {
				t.Fatalf("step %d: close at pitch %v", i, p)
			}
		}
		if last == 0 && !sawOpenTrigger {
			t.Fatalf("step %d: first event before any pitch above the open threshold", i)
		}
		last = ev
	}
}

func TestHysteresis_Reset(t *testing.T) {
	h := NewHysteresis(DefaultThresholds)
	h.Update(85)
	h.Reset()
	if h.IsOpen() {
		t.Fatal("Reset should close")
	}
	if ev, ok := h.Update(85); !ok || ev != Open {
		t.Errorf("expected a new open after reset, got %v %v", ev, ok)
	}
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name    string
		th      Thresholds
		wantErr bool
	}{
		{"default", DefaultThresholds, false},
		{"narrow", Thresholds{Open: 50, Close: 40}, false},
		{"inverted", Thresholds{Open: 10, Close: 80}, true},
		{"equal", Thresholds{Open: 45, Close: 45}, true},
		{"out of range", Thresholds{Open: 95, Close: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventText(t *testing.T) {
	for _, e := range []Event{Open, Close} {
		b, err := e.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Event
		if err := back.UnmarshalText(b); err != nil {
			t.Fatal(err)
		}
		if back != e {
			t.Errorf("round trip %s -> %s", e, back)
		}
	}
	var e Event
	if err := e.UnmarshalText([]byte("ajar")); err == nil {
		t.Error("expected error for unknown event")
	}
}
