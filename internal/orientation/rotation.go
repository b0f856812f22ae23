// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"
	"math"
)

// Matrix is a row-major 3x3 rotation matrix mapping device coordinates to
// world coordinates.
type Matrix [9]float64

// Identity is the rotation of a device lying flat, screen up, top to north.
var Identity = Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Axis names a device axis for RemapCoordinateSystem. The high bit flips
// the direction.
type Axis int

const (
	AxisX      Axis = 0x01
	AxisY      Axis = 0x02
	AxisZ      Axis = 0x03
	AxisMinusX Axis = AxisX | 0x80
	AxisMinusY Axis = AxisY | 0x80
	AxisMinusZ Axis = AxisZ | 0x80
)

var (
	// ErrShortVector is returned for rotation vectors with fewer than three
	// components.
	ErrShortVector = errors.New("rotation vector needs at least 3 components")
	// ErrInvalidAxes is returned when a remap axis pair is not usable.
	ErrInvalidAxes = errors.New("invalid remap axes")
)

// RotationMatrixFromVector converts a rotation vector (x·sin(θ/2),
// y·sin(θ/2), z·sin(θ/2) and optionally cos(θ/2)) into a rotation matrix.
// When the scalar part is missing it is recovered from the unit norm.
func RotationMatrixFromVector(v []float64) (Matrix, error) {
	if len(v) < 3 {
		return Matrix{}, fmt.Errorf("%w: got %d", ErrShortVector, len(v))
	}

	q1, q2, q3 := v[0], v[1], v[2]
	var q0 float64
	if len(v) >= 4 {
		q0 = v[3]
	} else {
		q0 = 1 - q1*q1 - q2*q2 - q3*q3
		if q0 > 0 {
			q0 = math.Sqrt(q0)
		} else {
			q0 = 0
		}
	}

	sqQ1 := 2 * q1 * q1
	sqQ2 := 2 * q2 * q2
	sqQ3 := 2 * q3 * q3
	q1q2 := 2 * q1 * q2
	q3q0 := 2 * q3 * q0
	q1q3 := 2 * q1 * q3
	q2q0 := 2 * q2 * q0
	q2q3 := 2 * q2 * q3
	q1q0 := 2 * q1 * q0

	return Matrix{
		1 - sqQ2 - sqQ3, q1q2 - q3q0, q1q3 + q2q0,
		q1q2 + q3q0, 1 - sqQ1 - sqQ3, q2q3 - q1q0,
		q1q3 - q2q0, q2q3 + q1q0, 1 - sqQ1 - sqQ2,
	}, nil
}

// RemapCoordinateSystem rotates the matrix so that the device axis x maps
// onto the world X axis and the device axis y onto the world Y axis. The
// third axis follows from the right-hand rule.
func RemapCoordinateSystem(in Matrix, x, y Axis) (Matrix, error) {
	if x&0x7C != 0 || y&0x7C != 0 {
		return Matrix{}, fmt.Errorf("%w: unknown axis bits (x=%#x, y=%#x)", ErrInvalidAxes, int(x), int(y))
	}
	if x&0x3 == 0 || y&0x3 == 0 {
		return Matrix{}, fmt.Errorf("%w: missing axis (x=%#x, y=%#x)", ErrInvalidAxes, int(x), int(y))
	}
	if x&0x3 == y&0x3 {
		return Matrix{}, fmt.Errorf("%w: x and y are the same axis", ErrInvalidAxes)
	}

	z := x ^ y

	xi := int(x&0x3) - 1
	yi := int(y&0x3) - 1
	zi := int(z&0x3) - 1

	// Flip z when (x, y, z) is not a right-handed cycle.
	axisY := (zi + 1) % 3
	axisZ := (zi + 2) % 3
	if (xi^axisY)|(yi^axisZ) != 0 {
		z ^= 0x80
	}

	sx := x >= 0x80
	sy := y >= 0x80
	sz := z >= 0x80

	var out Matrix
	for j := 0; j < 3; j++ {
		row := j * 3
		for i := 0; i < 3; i++ {
			if xi == i {
				out[row+i] = signed(in[row+0], sx)
			}
			if yi == i {
				out[row+i] = signed(in[row+1], sy)
			}
			if zi == i {
				out[row+i] = signed(in[row+2], sz)
			}
		}
	}
	return out, nil
}

func signed(v float64, negate bool) float64 {
	if negate {
		return -v
	}
	return v
}

// Orientation decomposes a rotation matrix into azimuth, pitch and roll.
func Orientation(m Matrix) Angles {
	return Angles{
		Azimuth: math.Atan2(m[1], m[4]),
		Pitch:   math.Asin(clamp(-m[7], -1, 1)),
		Roll:    math.Atan2(-m[6], m[8]),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// PitchFromRotationVector runs the full lid transform: rotation vector to
// matrix, device X to world X and device Z to world Y, then returns the
// pitch in degrees.
func PitchFromRotationVector(v []float64) (float64, error) {
	m, err := RotationMatrixFromVector(v)
	if err != nil {
		return 0, err
	}
	remapped, err := RemapCoordinateSystem(m, AxisX, AxisZ)
	if err != nil {
		return 0, err
	}
	return Degrees(Orientation(remapped).Pitch), nil
}

// RotationVectorForPitch builds a four component rotation vector that
// PitchFromRotationVector maps back to pitchDeg. The rotation is about
// the device X axis only; pitchDeg must lie in [-90, 90].
func RotationVectorForPitch(pitchDeg float64) []float64 {
	half := Radians(90-pitchDeg) / 2
	return []float64{math.Sin(half), 0, 0, math.Cos(half)}
}
