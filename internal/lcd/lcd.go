//go:build pi

package lcd

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Display drives a 16x2 HD44780 in 4-bit mode.
type Display struct {
	mu                sync.Mutex
	registerSelection gpio.PinIO
	clockEdge         gpio.PinIO
	dataPins          [4]gpio.PinIO
}

// Open initializes all the LCD pins
func Open() (*Display, error) {
	log.Infoln("Initializing LCD")
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "unable to initialize periph")
	}

	d := &Display{}
	names := []string{registerSelectionPin, clockEdgePin, data4Pin, data5Pin, data6Pin, data7Pin}
	pins := make([]gpio.PinIO, len(names))
	for i, name := range names {
		if pins[i] = gpioreg.ByName(name); pins[i] == nil {
			return nil, errors.Errorf("unknown LCD pin %q", name)
		}
	}
	d.registerSelection, d.clockEdge = pins[0], pins[1]
	copy(d.dataPins[:], pins[2:])

	for _, b := range []byte{0x33, 0x32, 0x28, 0x0C, 0x06, 0x01} {
		if err := d.sendByte(b, command); err != nil {
			return nil, errors.Wrap(err, "LCD init sequence")
		}
	}
	return d, nil
}

func (d *Display) sendByte(bits byte, mode gpio.Level) error {
	if err := d.registerSelection.Out(mode); err != nil {
		return err
	}
	if err := d.pulseByte(bits, 0x10); err != nil {
		return err
	}
	return d.pulseByte(bits, 0x01)
}

func (d *Display) pulseByte(bits, mask byte) error {
	for i, pin := range d.dataPins {
		level := gpio.Low
		if bits&(mask<<uint(i)) != 0 {
			level = gpio.High
		}
		if err := pin.Out(level); err != nil {
			return err
		}
	}
	time.Sleep(signalDelay)
	if err := d.clockEdge.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(signalPulse)
	if err := d.clockEdge.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(signalDelay)
	return nil
}

func (d *Display) printLine(l Line, msg string) error {
	if err := d.sendByte(byte(l), command); err != nil {
		return err
	}
	for _, c := range encode(msg) {
		if err := d.sendByte(c, character); err != nil {
			return err
		}
	}
	return nil
}

// Print replaces both lines.
func (d *Display) Print(l1, l2 string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.printLine(Line1, l1); err != nil {
		return errors.Wrapf(err, "printing %v", Line1)
	}
	return errors.Wrapf(d.printLine(Line2, l2), "printing %v", Line2)
}

func (d *Display) Clear() error {
	return d.Print("", "")
}
