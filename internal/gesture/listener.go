// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"sync/atomic"
	"time"
)

// ListenerFuncs adapts two plain functions to Listener. Nil fields are
// skipped.
type ListenerFuncs struct {
	Open  func()
	Close func()
}

func (f ListenerFuncs) OnOpen() {
	if f.Open != nil {
		f.Open()
	}
}

func (f ListenerFuncs) OnClose() {
	if f.Close != nil {
		f.Close()
	}
}

// Multi fans a transition out to several listeners, in order.
func Multi(listeners ...Listener) Listener {
	return multi(append([]Listener(nil), listeners...))
}

type multi []Listener

func (m multi) OnOpen() {
	for _, l := range m {
		l.OnOpen()
	}
}

func (m multi) OnClose() {
	for _, l := range m {
		l.OnClose()
	}
}

// OnStreamEnd is forwarded to the members that implement EndListener.
func (m multi) OnStreamEnd() {
	for _, l := range m {
		if el, ok := l.(EndListener); ok {
			el.OnStreamEnd()
		}
	}
}

// Transition is a transition enriched for consumers on other goroutines or
// other processes.
type Transition struct {
	Event   Event     `json:"event"`
	Pitch   float64   `json:"pitch"`
	Session string    `json:"session"`
	At      time.Time `json:"at"`
}

// ChannelListener forwards transitions onto a buffered channel. Sends never
// block the sample path; when the buffer is full the transition is dropped
// and counted.
type ChannelListener struct {
	d       *Detector
	ch      chan Transition
	dropped atomic.Uint64
	now     func() time.Time
}

// NewChannelListener creates a listener that reads pitch and session from
// d when a transition fires. d may be nil.
func NewChannelListener(d *Detector, size int) *ChannelListener {
	if size < 1 {
		size = 1
	}
	return &ChannelListener{
		d:   d,
		ch:  make(chan Transition, size),
		now: time.Now,
	}
}

// C returns the transition channel. It is never closed.
func (c *ChannelListener) C() <-chan Transition { return c.ch }

// Dropped returns how many transitions were lost to a full buffer.
func (c *ChannelListener) Dropped() uint64 { return c.dropped.Load() }

func (c *ChannelListener) OnOpen()  { c.send(Open) }
func (c *ChannelListener) OnClose() { c.send(Close) }

func (c *ChannelListener) send(e Event) {
	t := Transition{Event: e, At: c.now()}
	if c.d != nil {
		t.Pitch = c.d.LastPitch()
		t.Session = c.d.Session()
	}
	select {
	case c.ch <- t:
	default:
		c.dropped.Add(1)
	}
}
