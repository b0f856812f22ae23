// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/feedme/internal/config"
	"github.com/relabs-tech/feedme/internal/gesture"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient records publishes. Only Publish is used by the publisher.
type fakeClient struct {
	mqtt.Client

	mu   sync.Mutex
	msgs []published
	got  chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{got: make(chan struct{}, 64)}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	c.msgs = append(c.msgs, published{topic: topic, retained: retained, payload: payload.([]byte)})
	c.mu.Unlock()
	c.got <- struct{}{}
	return doneToken{}
}

func (c *fakeClient) on(topic string) []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []published
	for _, m := range c.msgs {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func TestPublisher(t *testing.T) {
	cfg := config.Default()
	client := newFakeClient()
	pub := newPublisher(client, cfg, nil)

	det := &fakeDetector{}
	mon := NewMonitor(det, pub.transitions)
	pub.attach(mon)
	defer pub.close()

	if err := mon.Start(); err != nil {
		t.Fatal(err)
	}
	det.fire(true, 84)

	// start status, open status, open transition
	for i := 0; i < 3; i++ {
		select {
		case <-client.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d messages published", i)
		}
	}

	events := client.on(cfg.TopicEvents)
	if len(events) != 1 {
		t.Fatalf("events published = %d, want 1", len(events))
	}
	var tr gesture.Transition
	if err := json.Unmarshal(events[0].payload, &tr); err != nil {
		t.Fatal(err)
	}
	if tr.Event != gesture.Open || events[0].retained {
		t.Errorf("transition = %+v retained=%v", tr, events[0].retained)
	}

	statuses := client.on(cfg.TopicStatus)
	if len(statuses) != 2 {
		t.Fatalf("statuses published = %d, want 2", len(statuses))
	}
	var st Status
	if err := json.Unmarshal(statuses[1].payload, &st); err != nil {
		t.Fatal(err)
	}
	if !st.Open || st.Feeds != 1 || !statuses[1].retained {
		t.Errorf("status = %+v retained=%v", st, statuses[1].retained)
	}
}

func TestConsoleFormat(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	line := formatTransition(gesture.Transition{Event: gesture.Close, Pitch: 4.5, Session: "abc", At: at})
	for _, want := range []string{"close", "PITCH=  4.50", "2026-03-14T09:00:00Z", "session=abc"} {
		if !strings.Contains(line, want) {
			t.Errorf("transition line %q missing %q", line, want)
		}
	}

	line = formatStatus(Status{Active: true, Open: true, Feeds: 2, LastFed: &at}, at.Add(time.Hour))
	for _, want := range []string{"sensors=running", "lid=open", "feeds=2", "last fed: 09:00"} {
		if !strings.Contains(line, want) {
			t.Errorf("status line %q missing %q", line, want)
		}
	}
}
