// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/feedme/internal/config"
	"github.com/relabs-tech/feedme/internal/gesture"
	"github.com/relabs-tech/feedme/internal/sensor"
)

// connectMQTT connects a client to broker and waits for the result.
func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s as %s", broker, clientID)
	return client, nil
}

// mqttSourceReader owns the client behind an mqtt sensor reader.
type mqttSourceReader struct {
	sensor.Reader
	client mqtt.Client
}

func (r *mqttSourceReader) Close() error {
	err := r.Reader.Close()
	r.client.Disconnect(250)
	return err
}

// openReader opens the reader selected by SENSOR_SOURCE.
func openReader(cfg *config.Config) (sensor.Reader, error) {
	switch cfg.SensorSource {
	case config.SourceMock:
		log.Printf("using mock lid (swing %ds)", cfg.MockSwingSeconds)
		return sensor.NewMockReader(time.Duration(cfg.MockSwingSeconds) * time.Second), nil

	case config.SourceMPU9250:
		return sensor.NewMPU9250Reader(sensor.MPU9250Options{
			SPIDevice:  cfg.IMUSPIDevice,
			CSPin:      cfg.IMUCSPin,
			AccelRange: cfg.IMUAccelRange,
			Calibrate:  cfg.IMUCalibrate,
		})

	case config.SourceSerial:
		return sensor.NewSerialReader(sensor.SerialOptions{
			Port:     cfg.SerialPort,
			BaudRate: uint(cfg.SerialBaudRate),
		})

	case config.SourceMQTT:
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDetect+"-samples")
		if err != nil {
			return nil, err
		}
		r, err := sensor.NewMQTTReader(client, cfg.TopicSamples)
		if err != nil {
			client.Disconnect(250)
			return nil, err
		}
		return &mqttSourceReader{Reader: r, client: client}, nil

	case config.SourceReplay:
		trace, err := sensor.LoadTrace(cfg.ReplayFile)
		if err != nil {
			return nil, err
		}
		log.Printf("replaying %d samples from %s (loop=%v)", len(trace.Samples), cfg.ReplayFile, cfg.ReplayLoop)
		return sensor.NewReplayReader(trace, cfg.ReplayLoop), nil
	}
	return nil, fmt.Errorf("unknown sensor source %q", cfg.SensorSource)
}

// newDetector builds the sensor manager and a detector configured from cfg.
// Closing the manager releases the sensor.
func newDetector(cfg *config.Config) (*gesture.Detector, *sensor.Manager, error) {
	r, err := openReader(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s sensor: %w", cfg.SensorSource, err)
	}
	mgr := sensor.NewManager([]sensor.Reader{r})

	det, err := gesture.New(mgr,
		gesture.WithSamplingPeriod(cfg.SamplingPeriod()),
		gesture.WithThresholds(gesture.Thresholds{
			Open:  cfg.OpenThresholdDeg,
			Close: cfg.CloseThresholdDeg,
		}),
		gesture.WithResetOnStart(cfg.ResetOnStart),
	)
	if err != nil {
		mgr.Close()
		return nil, nil, err
	}
	return det, mgr, nil
}
