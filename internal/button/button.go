//go:build pi

package button

import (
	"time"

	"github.com/depmon/departure-board/internal/hal"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const debounce = 15 * time.Millisecond

// Open initializes the key pins and starts watching them for presses.
func Open(cfg hal.KeyConfig) (*Pad, error) {
	log.Infoln("Initializing key pad")
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "unable to initialize periph")
	}

	pull, pressed := gpio.PullUp, gpio.Low
	if cfg.ActiveHigh {
		pull, pressed = gpio.PullDown, gpio.High
	}

	pins := make([]gpio.PinIO, len(cfg.Pins))
	for i, name := range cfg.Pins {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, errors.Errorf("unknown key pin %q", name)
		}
		if err := pin.In(pull, gpio.BothEdges); err != nil {
			return nil, errors.Wrapf(err, "configuring key pin %s", name)
		}
		pins[i] = pin
	}

	p := newPad()
	for i, pin := range pins {
		go p.handleKey(pin, keys[i], pressed)
	}
	return p, nil
}

func (p *Pad) handleKey(b gpio.PinIO, key hal.Key, pressed gpio.Level) {
	last := b.Read()
	for !p.stopped() {
		// wait for the edge
		if !b.WaitForEdge(time.Second) {
			continue
		}

		// debounce
		l := b.Read()
		if l == last {
			continue
		}

		time.Sleep(debounce)
		if l == b.Read() {
			// ... and handle
			last = l
			if l == pressed {
				p.press(key)
			}
		}
	}
	b.Halt()
}
