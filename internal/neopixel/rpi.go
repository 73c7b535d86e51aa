//go:build pi

package neopixel

import (
	"github.com/pkg/errors"
	ws "github.com/rpi-ws281x/rpi-ws281x-go"
)

func NewLedController(count int) (*LedController, error) {
	opt := ws.DefaultOptions
	opt.Channels[0].Brightness = brightness
	opt.Channels[0].LedCount = count

	dev, err := ws.MakeWS2811(&opt)
	if err != nil {
		return nil, errors.Wrap(err, "creating ws2811 device")
	}
	if err := dev.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing ws2811 device")
	}

	return &LedController{
		ws: dev,
	}, nil
}
