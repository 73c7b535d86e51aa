package board

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/depmon/departure-board/internal/hal"
	"github.com/depmon/departure-board/internal/neopixel"
	"github.com/depmon/departure-board/internal/view"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/waveshare2in13v2"
	"periph.io/x/host/v3"
)

const (
	epaperFrameInterval = 5 * time.Second
	epaperBusyRetries   = 5
	epaperRetryInterval = time.Second
)

func init() {
	hal.Default.Register("raspberrypi_epd2in13v2", newEpaper)
}

// epaperPanel is the part of the e-paper driver the board uses.
type epaperPanel interface {
	Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error
	Bounds() image.Rectangle
	Halt() error
}

type statusLed interface {
	Set(color uint32) error
	Off() error
	Flash(color uint32)
	Close()
}

// epaper is a Raspberry Pi with a Waveshare 2.13" v2 HAT.
type epaper struct {
	dev     epaperPanel
	reinit  func() error
	port    spi.PortCloser
	gate    *hal.RefreshGate
	retries int
	backoff time.Duration
	led     statusLed
	keys    hal.KeyConfig
	battery string

	powerPin gpio.PinIO
	powerOff func() error

	mu     sync.Mutex
	faulty bool
}

func newEpaper(o hal.Options) (hal.Capability, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "unable to initialize periph")
	}

	port, err := spireg.Open("")
	if err != nil {
		return nil, errors.Wrap(err, "opening spi port")
	}
	dev, err := waveshare2in13v2.NewHat(port, &waveshare2in13v2.EPD2in13v2)
	if err != nil {
		port.Close()
		return nil, errors.Wrap(err, "opening e-paper hat")
	}
	if err := dev.Init(); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "initializing e-paper hat")
	}

	led, err := neopixel.NewLedController(neopixel.StatusLeds)
	if err != nil {
		port.Close()
		return nil, err
	}

	e := &epaper{
		dev:     dev,
		reinit:  dev.Init,
		port:    port,
		gate:    hal.NewRefreshGate(epaperFrameInterval),
		retries: epaperBusyRetries,
		backoff: epaperRetryInterval,
		led:     led,
		keys:    DefaultKeys,
		battery: o.BatteryPath,
	}
	e.configure(o)

	if o.PowerPin != "" {
		if e.powerPin = gpioreg.ByName(o.PowerPin); e.powerPin == nil {
			e.Close()
			return nil, errors.Errorf("unknown power pin %q", o.PowerPin)
		}
	}
	if o.PowerOff {
		e.powerOff = powerOff
	}
	return e, nil
}

func (e *epaper) configure(o hal.Options) {
	if o.MinFrameInterval > 0 {
		e.gate.Interval = o.MinFrameInterval
	}
	if o.BusyRetries > 0 {
		e.retries = o.BusyRetries
	}
	if o.Keys != nil {
		e.keys = *o.Keys
	}
}

func (e *epaper) Display() (hal.Display, error) {
	if e.dev == nil {
		return nil, hal.ErrNoDisplay
	}
	return rasterDisplay{bounds: e.dev.Bounds()}, nil
}

func (e *epaper) ShowAndRefresh(ctx context.Context, d hal.Display, f *view.Frame) error {
	if err := e.gate.Wait(ctx); err != nil {
		return err
	}

	img := view.Rasterize(f, d.Bounds())
	start := time.Now()
	err := hal.RetryBusy(ctx, e.retries, e.backoff, func() error {
		if err := e.dev.Draw(img.Bounds(), img, image.Point{}); err != nil {
			// the hat reports a stuck busy line and bus faults alike
			return fmt.Errorf("%w: %v", hal.ErrBusy, err)
		}
		return nil
	})
	if err != nil {
		e.mu.Lock()
		e.faulty = true
		e.mu.Unlock()
		return err
	}
	log.Debugf("Panel refreshed in %v", time.Since(start))
	return nil
}

func (e *epaper) BatteryLevel() float64 {
	return readBattery(e.battery)
}

func (e *epaper) SetStatus(on bool, color uint32) {
	var err error
	if on {
		err = e.led.Set(color)
	} else {
		err = e.led.Off()
	}
	if err != nil {
		log.WithError(err).Debug("Unable to set status LED")
	}
}

// Shutdown puts the panel to sleep and cuts the power, either through the
// enable pin or by powering off the host.
func (e *epaper) Shutdown() error {
	log.Info("Shutting down")
	e.led.Flash(hal.ColorRed)
	if err := e.dev.Halt(); err != nil {
		log.WithError(err).Warn("Unable to halt the panel")
	}

	switch {
	case e.powerPin != nil:
		return errors.Wrap(e.powerPin.Out(gpio.Low), "cutting power")
	case e.powerOff != nil:
		return errors.Wrap(e.powerOff(), "powering off")
	}
	return nil
}

func (e *epaper) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (e *epaper) Keys() (hal.KeyConfig, bool) {
	return e.keys, true
}

// ResetIfNeeded initializes the panel again after a failed refresh.
func (e *epaper) ResetIfNeeded() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.faulty || e.reinit == nil {
		return
	}

	log.Info("Initializing the panel after a failed refresh")
	if err := e.reinit(); err != nil {
		log.WithError(err).Warn("Panel initialization failed")
		return
	}
	e.faulty = false
}

func (e *epaper) Close() error {
	e.led.Close()
	if e.port != nil {
		return e.port.Close()
	}
	return nil
}
