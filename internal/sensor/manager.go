// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensor

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Manager is a polling Subsystem. Each reader with at least one
// registration gets one polling goroutine. It reads the reader at the
// shortest period any of its listeners asked for and hands every sample to
// every listener of that sensor, in registration order, on that goroutine.
type Manager struct {
	mu      sync.Mutex
	readers []Reader
	feeds   map[int]*feed
	closed  bool
	quit    chan struct{}
	wg      sync.WaitGroup
	logger  log.FieldLogger
}

// feed is the polling state of one reader. regs is guarded by Manager.mu.
type feed struct {
	reader Reader
	regs   []*registration
	retune chan struct{}
}

func (f *feed) minPeriod() time.Duration {
	var p time.Duration
	for _, reg := range f.regs {
		if p == 0 || reg.period < p {
			p = reg.period
		}
	}
	return p
}

func (f *feed) wake() {
	select {
	case f.retune <- struct{}{}:
	default:
	}
}

type registration struct {
	listener Listener
	period   time.Duration
	done     chan struct{}
	once     sync.Once

	// Only touched by the feed's polling goroutine.
	lastAccuracy Accuracy
	haveAccuracy bool
}

func (r *registration) stop() {
	r.once.Do(func() { close(r.done) })
}

func (r *registration) stopped() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *registration) deliver(s Sensor, sample Sample) {
	if !r.haveAccuracy || sample.Accuracy != r.lastAccuracy {
		r.lastAccuracy = sample.Accuracy
		r.haveAccuracy = true
		r.listener.OnAccuracyChanged(s, sample.Accuracy)
	}
	if r.stopped() {
		return
	}
	r.listener.OnSample(sample)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for reader errors.
func WithLogger(l log.FieldLogger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager owning the given readers. The first reader
// of each type is the default sensor for that type.
func NewManager(readers []Reader, opts ...ManagerOption) *Manager {
	m := &Manager{
		readers: append([]Reader(nil), readers...),
		feeds:   make(map[int]*feed),
		quit:    make(chan struct{}),
		logger:  log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Sensors lists the sensors of every reader, in registration order.
func (m *Manager) Sensors() []Sensor {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Sensor, 0, len(m.readers))
	for _, r := range m.readers {
		out = append(out, r.Sensor())
	}
	return out
}

// DefaultSensor returns the first sensor of type t.
func (m *Manager) DefaultSensor(t Type) (Sensor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.readers {
		if s := r.Sensor(); s.Type == t {
			return s, true
		}
	}
	return Sensor{}, false
}

// Register starts delivering samples of s to l. The reader is polled at
// the shortest period registered for it, so l may see samples more often
// than it asked for.
func (m *Manager) Register(l Listener, s Sensor, period time.Duration) error {
	if l == nil {
		return errors.New("register: nil listener")
	}
	if period <= 0 {
		return fmt.Errorf("register: sampling period must be positive, got %s", period)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	idx := -1
	for i, r := range m.readers {
		if r.Sensor() == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("register %s (%s): %w", s.Name, s.Type, ErrUnknownSensor)
	}

	reg := &registration{
		listener: l,
		period:   period,
		done:     make(chan struct{}),
	}

	f, ok := m.feeds[idx]
	if !ok {
		f = &feed{reader: m.readers[idx], retune: make(chan struct{}, 1)}
		m.feeds[idx] = f
		f.regs = append(f.regs, reg)
		m.wg.Add(1)
		go m.poll(idx, f, period)
	} else {
		f.regs = append(f.regs, reg)
		f.wake()
	}

	m.logger.Debugf("sensor: registered listener for %s (%s) every %s", s.Name, s.Type, period)
	return nil
}

// Unregister stops all deliveries to l. It does not wait for an in-flight
// callback to return, so it is safe to call from inside one.
func (m *Manager) Unregister(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.feeds {
		kept := f.regs[:0]
		for _, reg := range f.regs {
			if reg.listener == l {
				reg.stop()
				continue
			}
			kept = append(kept, reg)
		}
		if len(kept) != len(f.regs) {
			clear(f.regs[len(kept):])
			f.regs = kept
			f.wake()
		}
	}
}

// Close stops every registration, waits for the polling goroutines and
// closes the readers. It must not be called from a listener callback.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for _, f := range m.feeds {
		for _, reg := range f.regs {
			reg.stop()
		}
		f.regs = nil
	}
	close(m.quit)
	readers := m.readers
	m.mu.Unlock()

	m.wg.Wait()

	var errs []error
	for _, r := range readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", r.Sensor().Name, err))
		}
	}
	return errors.Join(errs...)
}

// live returns the registrations to deliver to and the period to poll at.
// A feed without registrations is dropped and the poller must exit.
func (m *Manager) live(idx int, f *feed) ([]*registration, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(f.regs) == 0 {
		if m.feeds[idx] == f {
			delete(m.feeds, idx)
		}
		return nil, 0
	}
	return append([]*registration(nil), f.regs...), f.minPeriod()
}

// end drops the feed of an exhausted reader and returns the registrations
// that were still live.
func (m *Manager) end(idx int, f *feed) []*registration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.feeds[idx] == f {
		delete(m.feeds, idx)
	}
	ended := f.regs
	f.regs = nil
	for _, reg := range ended {
		reg.stop()
	}
	return ended
}

func (m *Manager) poll(idx int, f *feed, period time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	s := f.reader.Sensor()

	for {
		select {
		case <-m.quit:
			return
		case <-f.retune:
			regs, p := m.live(idx, f)
			if regs == nil {
				return
			}
			if p != period {
				period = p
				ticker.Reset(period)
			}
			continue
		case <-ticker.C:
		}

		regs, _ := m.live(idx, f)
		if regs == nil {
			return
		}

		sample, err := f.reader.Read()
		switch {
		case err == nil:
		case errors.Is(err, ErrNoSample):
			continue
		case errors.Is(err, io.EOF):
			ended := m.end(idx, f)
			m.logger.Infof("sensor: %s exhausted, ending %d registration(s)", s.Name, len(ended))
			for _, reg := range ended {
				if el, ok := reg.listener.(EndListener); ok {
					el.OnStreamEnd(s)
				}
			}
			return
		default:
			m.logger.Warnf("sensor: %s read error: %v", s.Name, err)
			continue
		}

		for _, reg := range regs {
			if reg.stopped() {
				continue
			}
			reg.deliver(s, sample)
		}
	}
}
