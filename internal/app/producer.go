// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/feedme/internal/config"
	"github.com/relabs-tech/feedme/internal/orientation"
	"github.com/relabs-tech/feedme/internal/sensor"
)

// RunSampleProducer reads the local sensor at the sampling period and
// publishes every sample as JSON, so the detector can run elsewhere with
// SENSOR_SOURCE=mqtt.
func RunSampleProducer() error {
	log.Println("starting feedme sample producer")

	cfg := config.Get()
	if cfg.SensorSource == config.SourceMQTT {
		return fmt.Errorf("producer needs a local sensor, SENSOR_SOURCE is %q", cfg.SensorSource)
	}
	if cfg.MQTTBroker == "" {
		return errors.New("producer: MQTT_BROKER is not set")
	}

	r, err := openReader(cfg)
	if err != nil {
		return fmt.Errorf("open %s sensor: %w", cfg.SensorSource, err)
	}
	defer r.Close()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProduce)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	log.Printf("publishing %s samples to %s every %s", r.Sensor().Name, cfg.TopicSamples, cfg.SamplingPeriod())

	ticker := time.NewTicker(cfg.SamplingPeriod())
	defer ticker.Stop()

	for t := range ticker.C {
		s, err := r.Read()
		switch {
		case errors.Is(err, sensor.ErrNoSample):
			continue
		case errors.Is(err, io.EOF):
			log.Println("producer: sensor stream ended")
			return nil
		case err != nil:
			log.Printf("error reading %s: %v", r.Sensor().Name, err)
			continue
		}

		payload, err := json.Marshal(s)
		if err != nil {
			log.Printf("json marshal error (sample): %v", err)
			continue
		}
		if token := client.Publish(cfg.TopicSamples, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", cfg.TopicSamples, token.Error())
			continue
		}

		if pitch, err := orientation.PitchFromRotationVector(s.Values); err == nil {
			log.Debugf("%s tick: %s pitch=%.2f accuracy=%d", t.Format(time.RFC3339), s.Sensor.Name, pitch, s.Accuracy)
		}
	}
	return nil
}
