// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/feedme/internal/gesture"
)

// Status is what every front end shows: the start/stop state of the
// detector and when the lid was last opened.
type Status struct {
	Active  bool       `json:"active"`
	Open    bool       `json:"open"`
	LastFed *time.Time `json:"last_fed,omitempty"`
	Feeds   int        `json:"feeds"`
	Pitch   float64    `json:"pitch"`
	Session string     `json:"session,omitempty"`
}

// LastFedText renders LastFed relative to now for the "Last fed:" line.
func (s Status) LastFedText(now time.Time) string {
	if s.LastFed == nil {
		return "never"
	}
	fed := s.LastFed.In(now.Location())
	y1, m1, d1 := fed.Date()
	y2, m2, d2 := now.Date()
	switch {
	case now.Sub(fed) < time.Minute:
		return "just now"
	case y1 == y2 && m1 == m2 && d1 == d2:
		return fed.Format("15:04")
	}
	yesterday := now.AddDate(0, 0, -1)
	y3, m3, d3 := yesterday.Date()
	if y1 == y3 && m1 == m3 && d1 == d3 {
		return "yesterday " + fed.Format("15:04")
	}
	return fed.Format("Jan 2 15:04")
}

// detector is the part of *gesture.Detector the monitor drives.
type detector interface {
	Start(gesture.Listener) error
	Stop()
	IsOpen() bool
	Session() string
	LastPitch() float64
}

// Monitor wraps a detector with the start/stop button and the "Last fed"
// status of the feeder screen. Status changes are pushed to subscribers.
type Monitor struct {
	det    detector
	extra  gesture.Listener
	logger log.FieldLogger
	now    func() time.Time

	// ctl serializes Start, Stop and Toggle.
	ctl sync.Mutex

	mu     sync.Mutex
	status Status
	gen    uint64
	subs   map[int]func(Status)
	nextID int
}

// NewMonitor creates a stopped monitor. Transitions are also forwarded to
// extra, after the monitor has updated its status.
func NewMonitor(det detector, extra ...gesture.Listener) *Monitor {
	m := &Monitor{
		det:    det,
		logger: log.StandardLogger(),
		now:    time.Now,
		subs:   make(map[int]func(Status)),
	}
	if len(extra) > 0 {
		m.extra = gesture.Multi(extra...)
	}
	return m
}

// Start starts the detector.
func (m *Monitor) Start() error {
	m.ctl.Lock()
	defer m.ctl.Unlock()
	return m.start()
}

// Stop stops the detector. Stopping a stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.ctl.Lock()
	defer m.ctl.Unlock()
	m.stop()
}

// Toggle flips between started and stopped and reports the new state.
func (m *Monitor) Toggle() (bool, error) {
	m.ctl.Lock()
	defer m.ctl.Unlock()

	m.mu.Lock()
	active := m.status.Active
	m.mu.Unlock()

	if active {
		m.stop()
		return false, nil
	}
	if err := m.start(); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Monitor) start() error {
	m.mu.Lock()
	m.gen++
	l := &monitorSession{m: m, gen: m.gen}
	m.mu.Unlock()

	if err := m.det.Start(l); err != nil {
		return fmt.Errorf("monitor: start: %w", err)
	}

	m.mu.Lock()
	// An exhausted stream may already have ended this session.
	if m.current(l.gen) {
		m.status.Active = true
		m.status.Open = m.det.IsOpen()
		m.status.Session = m.det.Session()
	}
	m.mu.Unlock()

	m.logger.Info("monitor: sensors started")
	m.publish()
	return nil
}

func (m *Monitor) stop() {
	m.det.Stop()

	m.mu.Lock()
	wasActive := m.status.Active
	m.status.Active = false
	m.gen++
	m.mu.Unlock()

	if wasActive {
		m.logger.Info("monitor: sensors stopped")
		m.publish()
	}
}

// Status returns a snapshot of the current status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	s := m.status
	m.mu.Unlock()
	s.Pitch = m.det.LastPitch()
	return s
}

// Subscribe registers fn for status changes and returns a function that
// removes it. fn runs on the goroutine that caused the change and must not
// block.
func (m *Monitor) Subscribe(fn func(Status)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// monitorSession is the listener handed to the detector for one Start.
// Transitions that reach it after its session was stopped are dropped.
type monitorSession struct {
	m   *Monitor
	gen uint64
}

func (l *monitorSession) OnOpen() {
	m := l.m
	fed := m.now()
	m.mu.Lock()
	if !m.current(l.gen) {
		m.mu.Unlock()
		return
	}
	m.status.Open = true
	m.status.LastFed = &fed
	m.status.Feeds++
	m.mu.Unlock()

	m.logger.Info("Opened")
	m.publish()
	if m.extra != nil {
		m.extra.OnOpen()
	}
}

func (l *monitorSession) OnClose() {
	m := l.m
	m.mu.Lock()
	if !m.current(l.gen) {
		m.mu.Unlock()
		return
	}
	m.status.Open = false
	m.mu.Unlock()

	m.logger.Info("Closed")
	m.publish()
	if m.extra != nil {
		m.extra.OnClose()
	}
}

// OnStreamEnd marks the monitor stopped when the sensor stream runs out.
func (l *monitorSession) OnStreamEnd() {
	m := l.m
	m.mu.Lock()
	if !m.current(l.gen) {
		m.mu.Unlock()
		return
	}
	m.status.Active = false
	m.gen++
	m.mu.Unlock()

	m.logger.Warn("monitor: sensor stream ended, sensors stopped")
	m.publish()
	if el, ok := m.extra.(gesture.EndListener); ok {
		el.OnStreamEnd()
	}
}

// current reports whether gen is the latest session. m.mu must be held.
func (m *Monitor) current(gen uint64) bool {
	return m.gen == gen
}

func (m *Monitor) publish() {
	s := m.Status()

	m.mu.Lock()
	subs := make([]func(Status), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
