// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"image"
	"reflect"
	"testing"
	"time"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func TestStatusLines(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	fed := time.Date(2026, 3, 14, 7, 5, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status Status
		have   bool
		want   []string
	}{
		{"no status yet", Status{}, false, []string{"", "FeedMe", "Waiting..."}},
		{"never fed", Status{Active: true}, true, []string{"Last fed:", "never", "Lid: closed", "Sensors: on"}},
		{"open", Status{Open: true, LastFed: &fed}, true, []string{"Last fed:", "07:05", "Lid: OPEN", "Sensors: off"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusLines(tt.status, tt.have, now)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("statusLines = %q, want %q", got, tt.want)
			}
		})
	}
}

func litPixels(img *image1bit.VerticalLSB, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderLines(t *testing.T) {
	img := renderLines([]string{"Last fed:", "", "x"})

	if got := img.Bounds(); got != image.Rect(0, 0, oledWidth, oledHeight) {
		t.Fatalf("bounds = %v", got)
	}
	if litPixels(img, image.Rect(0, 0, oledWidth, lineHeight)) == 0 {
		t.Error("first line is blank")
	}
	if n := litPixels(img, image.Rect(0, lineHeight+1, oledWidth, 2*lineHeight-3)); n != 0 {
		t.Errorf("empty second line has %d lit pixels", n)
	}
	if litPixels(img, image.Rect(0, 2*lineHeight, oledWidth, 3*lineHeight)) == 0 {
		t.Error("third line is blank")
	}
}

func TestRenderLines_DropsOverflow(t *testing.T) {
	lines := []string{"1", "2", "3", "4", "5", "6", "7"}
	img := renderLines(lines)
	if img.Bounds().Dy() != oledHeight {
		t.Fatal("image grew")
	}
}
