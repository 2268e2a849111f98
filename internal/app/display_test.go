package app

import (
	"strings"
	"testing"

	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

func TestDisplayLinesWaiting(t *testing.T) {
	lines := displayLines(NewEventCache())
	if len(lines) != 4 || lines[0] != "A waiting..." || lines[2] != "M waiting..." {
		t.Errorf("lines = %q", lines)
	}
}

func TestDisplayLines(t *testing.T) {
	c := NewEventCache()
	c.Put(sensor.Event{Quantity: sensor.Acceleration, Vector: sensor.Vector{X: 0.1, Y: -0.2, Z: 9.81}})
	c.Put(sensor.Event{Quantity: sensor.MagneticField, Vector: sensor.Vector{X: 21, Y: -4, Z: 43}})

	want := []string{
		"A   0.1  -0.2",
		"    9.8 m/s2",
		"M    21    -4",
		"     43 uT",
	}
	got := displayLines(c)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
	// 7 px wide glyphs on a 128 px panel.
	for _, l := range got {
		if len(l) > 128/7 {
			t.Errorf("%q does not fit", l)
		}
	}
}

func TestRenderLinesDrawsPixels(t *testing.T) {
	img := renderLines([]string{"LSM303"})
	lit := 0
	for _, b := range img.Pix {
		if b != 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("nothing drawn")
	}
	if blank := renderLines(nil); blank.Bounds().Dx() != 128 || blank.Bounds().Dy() != 64 {
		t.Errorf("bounds = %v", blank.Bounds())
	}
}
