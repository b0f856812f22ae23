// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
)

// Pose is the canonical degree representation of orientation for display
// and JSON payloads.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Angles holds the orientation triple in radians, in the order the
// rotation matrix decomposition produces it.
type Angles struct {
	Azimuth float64
	Pitch   float64
	Roll    float64
}

// Pose converts the angles to degrees. Azimuth becomes yaw.
func (a Angles) Pose() Pose {
	return Pose{
		Roll:  Degrees(a.Roll),
		Pitch: Degrees(a.Pitch),
		Yaw:   Degrees(a.Azimuth),
	}
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is set to 0; there is no magnetometer in the loop.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  Degrees(rollRad),
		Pitch: Degrees(pitchRad),
		Yaw:   0,
	}
}

// QuaternionFromPose returns the unit quaternion (x, y, z, w) for a
// roll/pitch/yaw pose applied in Z-Y-X order.
func QuaternionFromPose(p Pose) [4]float64 {
	hr := Radians(p.Roll) / 2
	hp := Radians(p.Pitch) / 2
	hy := Radians(p.Yaw) / 2

	cr, sr := math.Cos(hr), math.Sin(hr)
	cp, sp := math.Cos(hp), math.Sin(hp)
	cy, sy := math.Cos(hy), math.Sin(hy)

	return [4]float64{
		sr*cp*cy - cr*sp*sy,
		cr*sp*cy + sr*cp*sy,
		cr*cp*sy - sr*sp*cy,
		cr*cp*cy + sr*sp*sy,
	}
}
