// Package board holds the board variants. Each registers itself with
// hal.Default at startup; the program looks one up by id once.
package board

import (
	"image"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/depmon/departure-board/internal/button"
	"github.com/depmon/departure-board/internal/hal"
	log "github.com/sirupsen/logrus"
)

// DefaultKeys is the key wiring used when a board has keys but the
// configuration names none.
var DefaultKeys = hal.KeyConfig{
	Pins: [4]string{"GPIO5", "GPIO6", "GPIO13", "GPIO19"},
}

type rasterDisplay struct {
	bounds image.Rectangle
}

func (d rasterDisplay) Bounds() image.Rectangle { return d.bounds }
func (d rasterDisplay) Text() (int, int, bool) { return 0, 0, false }

type textDisplay struct {
	cols, rows int
}

func (d textDisplay) Bounds() image.Rectangle { return image.Rect(0, 0, d.cols, d.rows) }
func (d textDisplay) Text() (int, int, bool) { return d.cols, d.rows, true }

// readBattery reads a sysfs style voltage file holding microvolts. Boards
// without a voltage monitor report 0.
func readBattery(path string) float64 {
	if path == "" {
		return 0
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Debugf("Could not read battery level from %s", path)
		return 0
	}
	uv, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		log.WithError(err).Debugf("Malformed battery level in %s", path)
		return 0
	}
	return float64(uv) / 1e6
}

// OpenKeys returns the key source for a board. The simulator reads the
// keyboard; embedded boards get a GPIO key pad when they have keys. A nil
// source means the loop only waits.
func OpenKeys(c hal.Capability, kind hal.Kind) (hal.KeySource, io.Closer, error) {
	if kind == hal.Simulated {
		if src, ok := c.(hal.KeySource); ok {
			return src, noClose, nil
		}
		log.Warn("Board has no keyboard, running without keys")
		return nil, noClose, nil
	}

	cfg, ok := c.Keys()
	if !ok {
		return nil, noClose, nil
	}
	pad, err := button.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return pad, closerFunc(pad.Close), nil
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

var noClose = closerFunc(func() {})
