// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gesture turns a rotation vector stream into lid open/close
// events.
//
// A Detector registers with a sensor.Subsystem, converts every rotation
// vector sample into the lid pitch and runs it through a two-threshold
// hysteresis. All state belongs to the Detector instance, so several
// detectors can share one subsystem.
package gesture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/feedme/internal/orientation"
	"github.com/relabs-tech/feedme/internal/sensor"
)

// DefaultSamplingPeriod is 500 000 µs, about two samples per second.
const DefaultSamplingPeriod = 500 * time.Millisecond

// ErrNoRotationSensor is returned by Start when the subsystem has no
// rotation vector sensor. Nothing is registered in that case.
var ErrNoRotationSensor = errors.New("gesture: no rotation vector sensor")

// Listener receives lid transitions. Callbacks run synchronously on the
// subsystem's delivery goroutine.
type Listener interface {
	OnOpen()
	OnClose()
}

// EndListener is an optional Listener extension. OnStreamEnd is called when
// a session ends because the sensor stream ran out rather than through
// Stop. The detector is inactive by the time it runs.
type EndListener interface {
	Listener
	OnStreamEnd()
}

// Detector is the orientation gesture detector.
type Detector struct {
	subsystem    sensor.Subsystem
	period       time.Duration
	resetOnStart bool
	logger       log.FieldLogger

	mu        sync.Mutex
	state     Hysteresis
	listener  Listener
	sink      *sampleSink
	session   string
	lastPitch float64
}

// Option configures a Detector.
type Option func(*Detector)

// WithSamplingPeriod sets the requested delay between samples.
func WithSamplingPeriod(p time.Duration) Option {
	return func(d *Detector) { d.period = p }
}

// WithThresholds replaces DefaultThresholds.
func WithThresholds(t Thresholds) Option {
	return func(d *Detector) { d.state = NewHysteresis(t) }
}

// WithResetOnStart controls whether each Start begins closed (the default)
// or keeps the state the previous session ended in.
func WithResetOnStart(reset bool) Option {
	return func(d *Detector) { d.resetOnStart = reset }
}

// WithLogger sets the logger; the logrus standard logger is the default.
func WithLogger(l log.FieldLogger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a stopped detector on top of subsystem.
func New(subsystem sensor.Subsystem, opts ...Option) (*Detector, error) {
	if subsystem == nil {
		return nil, errors.New("gesture: nil sensor subsystem")
	}
	d := &Detector{
		subsystem:    subsystem,
		period:       DefaultSamplingPeriod,
		resetOnStart: true,
		logger:       log.StandardLogger(),
		state:        NewHysteresis(DefaultThresholds),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.state.Thresholds().Validate(); err != nil {
		return nil, fmt.Errorf("gesture: %w", err)
	}
	if d.period <= 0 {
		return nil, fmt.Errorf("gesture: sampling period must be positive, got %s", d.period)
	}
	return d, nil
}

// Start begins listening and delivers transitions to l. Calling Start on a
// running detector only swaps the listener.
func (d *Detector) Start(l Listener) error {
	if l == nil {
		return errors.New("gesture: nil listener")
	}

	d.mu.Lock()
	if d.sink != nil {
		d.listener = l
		session := d.session
		d.mu.Unlock()
		d.logger.Debugf("detector: listener replaced on running session %s", session)
		return nil
	}
	d.mu.Unlock()

	s, ok := d.subsystem.DefaultSensor(sensor.TypeRotationVector)
	if !ok {
		d.logger.Warnf("detector: %v", ErrNoRotationSensor)
		return ErrNoRotationSensor
	}

	sink := &sampleSink{d: d}

	d.mu.Lock()
	if d.sink != nil {
		// Lost a race with a concurrent Start.
		d.listener = l
		d.mu.Unlock()
		return nil
	}
	if d.resetOnStart {
		d.state.Reset()
	}
	d.listener = l
	d.sink = sink
	d.session = uuid.NewString()
	session := d.session
	d.mu.Unlock()

	if err := d.subsystem.Register(sink, s, d.period); err != nil {
		d.mu.Lock()
		if d.sink == sink {
			d.sink = nil
			d.listener = nil
		}
		d.mu.Unlock()
		return fmt.Errorf("gesture: register %s: %w", s.Name, err)
	}

	d.logger.Infof("detector: session %s listening on %s every %s", session, s.Name, d.period)
	return nil
}

// Stop clears the listener and unregisters from the subsystem. It is safe
// to call at any time, more than once, and from inside a listener.
//
// Stop does not wait for a transition that is already being delivered on
// the subsystem goroutine, so one OnOpen or OnClose may still arrive after
// Stop returns. Samples processed after Stop never produce a callback.
// Listeners that need a hard cutoff must track their own started state.
func (d *Detector) Stop() {
	d.mu.Lock()
	sink := d.sink
	session := d.session
	d.listener = nil
	d.sink = nil
	d.mu.Unlock()

	if sink == nil {
		return
	}
	d.subsystem.Unregister(sink)
	d.logger.Infof("detector: session %s stopped", session)
}

// IsOpen reports the last emitted state.
func (d *Detector) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.IsOpen()
}

// Active reports whether the detector is registered with the subsystem.
func (d *Detector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sink != nil
}

// Session returns the id of the current (or last) listening session.
func (d *Detector) Session() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// LastPitch returns the pitch of the last processed sample, in degrees.
func (d *Detector) LastPitch() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPitch
}

// Thresholds returns the configured thresholds.
func (d *Detector) Thresholds() Thresholds {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Thresholds()
}

func (d *Detector) handleSample(sink *sampleSink, s sensor.Sample) {
	if s.Sensor.Type != sensor.TypeRotationVector {
		return
	}
	pitch, err := orientation.PitchFromRotationVector(s.Values)
	if err != nil {
		d.logger.Debugf("detector: dropping sample from %s: %v", s.Sensor.Name, err)
		return
	}

	d.mu.Lock()
	if d.sink != sink || d.listener == nil {
		d.mu.Unlock()
		return
	}
	d.lastPitch = pitch
	ev, changed := d.state.Update(pitch)
	l := d.listener
	d.mu.Unlock()

	if !changed {
		return
	}
	switch ev {
	case Open:
		l.OnOpen()
	case Close:
		l.OnClose()
	}
}

func (d *Detector) handleStreamEnd(sink *sampleSink, s sensor.Sensor) {
	d.mu.Lock()
	if d.sink != sink {
		d.mu.Unlock()
		return
	}
	l := d.listener
	session := d.session
	d.sink = nil
	d.listener = nil
	d.mu.Unlock()

	d.logger.Infof("detector: session %s ended, %s stream exhausted", session, s.Name)
	if el, ok := l.(EndListener); ok {
		el.OnStreamEnd()
	}
}

// sampleSink is the sensor.Listener registered for one session. A fresh
// sink per session lets late callbacks from an old registration be told
// apart and ignored.
type sampleSink struct {
	d *Detector
}

func (s *sampleSink) OnSample(sample sensor.Sample) {
	s.d.handleSample(s, sample)
}

// Accuracy does not gate the hysteresis.
func (s *sampleSink) OnAccuracyChanged(sensor.Sensor, sensor.Accuracy) {}

func (s *sampleSink) OnStreamEnd(sn sensor.Sensor) {
	s.d.handleStreamEnd(s, sn)
}
