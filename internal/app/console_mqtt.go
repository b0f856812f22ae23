// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/feedme/internal/config"
	"github.com/relabs-tech/feedme/internal/gesture"
)

func formatTransition(t gesture.Transition) string {
	return fmt.Sprintf("[LID ]  %-5s  PITCH=%6.2f  at=%s  session=%s",
		t.Event, t.Pitch, t.At.Format(time.RFC3339), t.Session)
}

func formatStatus(s Status, now time.Time) string {
	state := "stopped"
	if s.Active {
		state = "running"
	}
	lid := "closed"
	if s.Open {
		lid = "open"
	}
	return fmt.Sprintf("[STAT]  sensors=%s  lid=%s  feeds=%d  last fed: %s",
		state, lid, s.Feeds, s.LastFedText(now))
}

// RunConsoleMQTT prints lid events and status published by the detector.
func RunConsoleMQTT() error {
	return runConsole(os.Stdout)
}

func runConsole(out io.Writer) error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: MQTT_BROKER is not set")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	eventsToken := client.Subscribe(cfg.TopicEvents, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var t gesture.Transition
		if err := json.Unmarshal(msg.Payload(), &t); err != nil {
			log.Printf("console: event unmarshal error: %v", err)
			return
		}
		fmt.Fprintln(out, formatTransition(t))
	})
	eventsToken.Wait()
	if eventsToken.Error() != nil {
		return eventsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicEvents)

	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s Status
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Fprintln(out, formatStatus(s, time.Now()))
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	return nil
}
