// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/feedme/internal/config"
)

const (
	oledWidth  = 128
	oledHeight = 64
	lineHeight = 13
)

// displayData holds the latest status received over MQTT.
type displayData struct {
	mu         sync.RWMutex
	status     Status
	haveStatus bool
}

func (d *displayData) set(s Status) {
	d.mu.Lock()
	d.status = s
	d.haveStatus = true
	d.mu.Unlock()
}

func (d *displayData) get() (Status, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status, d.haveStatus
}

// statusLines are the text lines shown for s, top to bottom.
func statusLines(s Status, have bool, now time.Time) []string {
	if !have {
		return []string{"", "FeedMe", "Waiting..."}
	}
	lid := "Lid: closed"
	if s.Open {
		lid = "Lid: OPEN"
	}
	sensors := "Sensors: off"
	if s.Active {
		sensors = "Sensors: on"
	}
	return []string{
		"Last fed:",
		s.LastFedText(now),
		lid,
		sensors,
	}
}

// renderLines draws one line of basicfont text per row.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if (i+1)*lineHeight > oledHeight {
			break
		}
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

// RunDisplay shows the detector status published on TOPIC_STATUS on an
// SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("display: MQTT_BROKER is not set")
	}

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Println("display: initialized")

	if err := dev.Draw(dev.Bounds(), renderLines([]string{"", "  FeedMe", "  Starting..."}), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	token := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s Status
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: status unmarshal error: %v", err)
			return
		}
		data.set(s)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicStatus)

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for now := range ticker.C {
		s, have := data.get()
		img := renderLines(statusLines(s, have, now))
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
	return nil
}
