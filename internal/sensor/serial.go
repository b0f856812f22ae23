// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensor

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

// TypeRVC is the sentence type of the rotation vector sentence sent by the
// lid board:
//
//	$FMRVC,<x>,<y>,<z>,<w>,<accuracy>*<checksum>
//
// w may be empty when the board only sends the vector part.
const TypeRVC = "RVC"

// RVC is a parsed rotation vector sentence.
type RVC struct {
	nmea.BaseSentence
	X, Y, Z  float64
	W        float64
	HasW     bool
	Accuracy int64
}

// Values returns the rotation vector components in sample order.
func (r RVC) Values() []float64 {
	if r.HasW {
		return []float64{r.X, r.Y, r.Z, r.W}
	}
	return []float64{r.X, r.Y, r.Z}
}

func init() {
	nmea.MustRegisterParser(TypeRVC, parseRVC)
}

func parseRVC(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	m := RVC{
		BaseSentence: s,
		X:            p.Float64(0, "x"),
		Y:            p.Float64(1, "y"),
		Z:            p.Float64(2, "z"),
		W:            p.Float64(3, "w"),
		Accuracy:     p.Int64(4, "accuracy"),
	}
	if p.Err() != nil {
		return nil, p.Err()
	}
	m.HasW = strings.TrimSpace(s.Fields[3]) != ""
	return m, nil
}

// SerialOptions selects the serial port the lid board is attached to.
type SerialOptions struct {
	Port     string
	BaudRate uint
}

type streamReader struct {
	sensor Sensor
	src    io.ReadCloser
	latest latest
}

// NewSerialReader opens the serial port and parses rotation vector
// sentences in the background. Read returns the newest unread sample.
func NewSerialReader(opts SerialOptions) (Reader, error) {
	baud := opts.BaudRate
	if baud == 0 {
		baud = 9600
	}
	port, err := serial.Open(serial.OpenOptions{
		PortName:              opts.Port,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", opts.Port, err)
	}
	log.Printf("serial: rotation sensor port opened on %s at %d baud", opts.Port, baud)

	return newStreamReader(Sensor{Name: "serial-" + opts.Port, Type: TypeRotationVector}, port), nil
}

func newStreamReader(s Sensor, src io.ReadCloser) *streamReader {
	r := &streamReader{sensor: s, src: src}
	go r.loop()
	return r
}

func (r *streamReader) loop() {
	defer r.latest.end()

	reader := bufio.NewReader(r.src)
	for {
		line, err := reader.ReadString('\n')
		if sample, ok := r.parse(line); ok {
			r.latest.put(sample)
		}
		if err != nil {
			if err != io.EOF {
				log.Warnf("serial: %s read error: %v", r.sensor.Name, err)
			}
			return
		}
	}
}

func (r *streamReader) parse(line string) (Sample, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Sample{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		log.Debugf("serial: NMEA parse error: %v (line: %q)", err, line)
		return Sample{}, false
	}

	m, ok := sentence.(RVC)
	if !ok {
		return Sample{}, false
	}
	return Sample{
		Sensor:    r.sensor,
		Values:    m.Values(),
		Accuracy:  Accuracy(m.Accuracy),
		Timestamp: time.Now(),
	}, true
}

func (r *streamReader) Sensor() Sensor { return r.sensor }

func (r *streamReader) Read() (Sample, error) { return r.latest.take() }

func (r *streamReader) Close() error { return r.src.Close() }
