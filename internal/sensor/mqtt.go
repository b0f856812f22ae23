// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensor

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

type mqttReader struct {
	sensor Sensor
	client mqtt.Client
	topic  string
	latest latest
}

// NewMQTTReader subscribes to topic on an already connected client and
// exposes the JSON samples published there (see the produce command) as a
// rotation vector sensor.
func NewMQTTReader(client mqtt.Client, topic string) (Reader, error) {
	r := &mqttReader{
		sensor: Sensor{Name: "mqtt-" + topic, Type: TypeRotationVector},
		client: client,
		topic:  topic,
	}

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		r.handle(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("mqtt: subscribe %s: %w", topic, token.Error())
	}
	log.Printf("mqtt: subscribed to sensor topic %s", topic)
	return r, nil
}

func (r *mqttReader) handle(payload []byte) {
	var s Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		log.Warnf("mqtt: sample unmarshal error: %v", err)
		return
	}
	if s.Sensor.Type == 0 {
		s.Sensor.Type = r.sensor.Type
	}
	if s.Sensor.Name == "" {
		s.Sensor.Name = r.sensor.Name
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	r.latest.put(s)
}

func (r *mqttReader) Sensor() Sensor { return r.sensor }

func (r *mqttReader) Read() (Sample, error) { return r.latest.take() }

// Close drops the subscription; the client belongs to the caller.
func (r *mqttReader) Close() error {
	token := r.client.Unsubscribe(r.topic)
	token.Wait()
	return token.Error()
}
