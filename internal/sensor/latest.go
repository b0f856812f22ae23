// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensor

import (
	"io"
	"sync"
)

// latest keeps the most recent pushed sample for readers fed by a stream
// or a subscription. Read hands out each sample at most once.
type latest struct {
	mu     sync.Mutex
	sample Sample
	fresh  bool
	ended  bool
}

func (l *latest) put(s Sample) {
	l.mu.Lock()
	l.sample = s
	l.fresh = true
	l.mu.Unlock()
}

// end marks the feed as finished; Read returns io.EOF once the last sample
// has been taken.
func (l *latest) end() {
	l.mu.Lock()
	l.ended = true
	l.mu.Unlock()
}

func (l *latest) take() (Sample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fresh {
		l.fresh = false
		return l.sample, nil
	}
	if l.ended {
		return Sample{}, io.EOF
	}
	return Sample{}, ErrNoSample
}
