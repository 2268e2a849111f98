package app

import (
	"context"
	"fmt"
	"image"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/lsm303_unified/internal/config"
	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

const (
	ssd1306DefaultAddr = 0x3C
	lineHeight         = 13
)

// addrBus sends traffic for the driver's fixed address to another one.
type addrBus struct {
	i2c.Bus
	from, to uint16
}

func (b *addrBus) Tx(addr uint16, w, r []byte) error {
	if addr == b.from {
		addr = b.to
	}
	return b.Bus.Tx(addr, w, r)
}

func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(&addrBus{Bus: bus, from: ssd1306DefaultAddr, to: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Infof("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := drawLines(dev, []string{"", " LSM303", " Waiting..."}); err != nil {
		log.Warnf("display: error showing splash: %v", err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-display")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	cache := NewEventCache()
	if err := subscribeEvents(client, TopicsFromConfig(cfg), cache, nil); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	log.Info("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return dev.Halt()
		case <-ticker.C:
			if err := drawLines(dev, displayLines(cache)); err != nil {
				log.Warnf("display: update error: %v", err)
			}
		}
	}
}

// displayLines renders the cached vectors as up to four short lines.
func displayLines(cache *EventCache) []string {
	lines := make([]string, 0, 4)
	if ev, ok := cache.Latest(sensor.Acceleration); ok {
		lines = append(lines,
			fmt.Sprintf("A %5.1f %5.1f", ev.Vector.X, ev.Vector.Y),
			fmt.Sprintf("  %5.1f m/s2", ev.Vector.Z))
	} else {
		lines = append(lines, "A waiting...", "")
	}
	if ev, ok := cache.Latest(sensor.MagneticField); ok {
		lines = append(lines,
			fmt.Sprintf("M %5.0f %5.0f", ev.Vector.X, ev.Vector.Y),
			fmt.Sprintf("  %5.0f uT", ev.Vector.Z))
	} else {
		lines = append(lines, "M waiting...", "")
	}
	return lines
}

func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, lineHeight*(i+1))
		drawer.DrawString(line)
	}
	return img
}

func drawLines(dev *ssd1306.Dev, lines []string) error {
	return dev.Draw(dev.Bounds(), renderLines(lines), image.Point{})
}
