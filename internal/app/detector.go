// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/feedme/internal/config"
	"github.com/relabs-tech/feedme/internal/gesture"
)

// publisher forwards transitions and status snapshots to MQTT.
type publisher struct {
	client       mqtt.Client
	topicEvents  string
	topicStatus  string
	transitions  *gesture.ChannelListener
	cancelStatus func()
	done         chan struct{}
}

func newPublisher(client mqtt.Client, cfg *config.Config, det *gesture.Detector) *publisher {
	return &publisher{
		client:      client,
		topicEvents: cfg.TopicEvents,
		topicStatus: cfg.TopicStatus,
		transitions: gesture.NewChannelListener(det, 16),
		done:        make(chan struct{}),
	}
}

// attach starts publishing mon's status changes and the transitions
// delivered to p.transitions.
func (p *publisher) attach(mon *Monitor) {
	p.cancelStatus = mon.Subscribe(p.publishStatus)
	go func() {
		for {
			select {
			case t := <-p.transitions.C():
				p.publishTransition(t)
			case <-p.done:
				return
			}
		}
	}()
}

func (p *publisher) close() {
	if p.cancelStatus != nil {
		p.cancelStatus()
	}
	close(p.done)
	if n := p.transitions.Dropped(); n > 0 {
		log.Warnf("publisher: %d transitions dropped", n)
	}
}

func (p *publisher) publishTransition(t gesture.Transition) {
	payload, err := json.Marshal(t)
	if err != nil {
		log.Printf("json marshal error (transition): %v", err)
		return
	}
	if token := p.client.Publish(p.topicEvents, 1, false, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error (%s): %v", p.topicEvents, token.Error())
	}
}

// publishStatus is called from the sample path, so it does not wait for
// the broker.
func (p *publisher) publishStatus(s Status) {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Printf("json marshal error (status): %v", err)
		return
	}
	p.client.Publish(p.topicStatus, 0, true, payload)
}

// RunDetector runs the lid detector on the configured sensor until SIGINT
// or SIGTERM. Transitions and status go to MQTT when a broker is set.
func RunDetector() error {
	log.Println("starting feedme lid detector")

	cfg := config.Get()

	det, mgr, err := newDetector(cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	var extra []gesture.Listener
	var pub *publisher
	if cfg.MQTTBroker != "" {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDetect)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		pub = newPublisher(client, cfg, det)
		extra = append(extra, pub.transitions)
	} else {
		log.Println("MQTT_BROKER not set, events are only logged")
	}

	mon := NewMonitor(det, extra...)
	if pub != nil {
		pub.attach(mon)
		defer pub.close()
	}

	if err := mon.Start(); err != nil {
		return err
	}
	defer mon.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("detector: shutting down")
	return nil
}
