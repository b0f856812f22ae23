// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensor

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/feedme/internal/orientation"
)

// MPU9250Options selects the SPI wiring of the IMU mounted on the lid.
type MPU9250Options struct {
	SPIDevice string // e.g. /dev/spidev0.0
	CSPin     string // GPIO name of the chip select
	// AccelRange: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	AccelRange byte
	// Calibrate runs the driver's bias calibration at startup. The lid must
	// be still while it runs.
	Calibrate bool
}

type mpu9250Reader struct {
	sensor Sensor
	imu    *mpu9250.MPU9250
}

// NewMPU9250Reader initializes an MPU9250 over SPI and exposes it as a
// rotation vector sensor. The rotation is estimated from accelerometer
// tilt only, so yaw is always 0; the lid pitch does not need it.
func NewMPU9250Reader(opts MPU9250Options) (Reader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("mpu9250: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: initialization: %w", err)
	}

	if err := imu.SetAccelRange(opts.AccelRange); err != nil {
		return nil, fmt.Errorf("mpu9250: set accel range: %w", err)
	}
	log.Printf("mpu9250: accelerometer range set to %d (±%dg)", opts.AccelRange, []int{2, 4, 8, 16}[opts.AccelRange&0x3])

	if opts.Calibrate {
		if err := imu.Calibrate(); err != nil {
			log.Warnf("mpu9250: calibration failed: %v", err)
		} else {
			log.Println("mpu9250: calibration complete")
		}
	}

	return &mpu9250Reader{
		sensor: Sensor{Name: "mpu9250-" + opts.SPIDevice, Type: TypeRotationVector},
		imu:    imu,
	}, nil
}

func (r *mpu9250Reader) Sensor() Sensor { return r.sensor }

// Read samples the accelerometer and converts the tilt into a rotation
// vector.
func (r *mpu9250Reader) Read() (Sample, error) {
	ax, err := r.imu.GetAccelerationX()
	if err != nil {
		return Sample{}, fmt.Errorf("mpu9250 accel X: %w", err)
	}
	ay, err := r.imu.GetAccelerationY()
	if err != nil {
		return Sample{}, fmt.Errorf("mpu9250 accel Y: %w", err)
	}
	az, err := r.imu.GetAccelerationZ()
	if err != nil {
		return Sample{}, fmt.Errorf("mpu9250 accel Z: %w", err)
	}

	return sampleFromAccel(r.sensor, float64(ax), float64(ay), float64(az), time.Now()), nil
}

// sampleFromAccel turns a raw accelerometer reading (any unit) into a
// rotation vector sample. A zero vector (free fall or a dead bus) is
// reported as unreliable.
func sampleFromAccel(s Sensor, ax, ay, az float64, at time.Time) Sample {
	accuracy := AccuracyMedium
	if ax == 0 && ay == 0 && az == 0 {
		accuracy = AccuracyUnreliable
	}
	q := orientation.QuaternionFromPose(orientation.ComputePoseFromAccel(ax, ay, az))
	return Sample{
		Sensor:    s,
		Values:    q[:],
		Accuracy:  accuracy,
		Timestamp: at,
	}
}

func (r *mpu9250Reader) Close() error { return nil }
