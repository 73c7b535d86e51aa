package neopixel

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	brightness = 90
	// StatusLeds is the length of the status strip on the supported boards.
	StatusLeds = 1
)

type wsEngine interface {
	Init() error
	Render() error
	Wait() error
	Fini()
	Leds(channel int) []uint32
}

// LedController owns the status LEDs. Animations stop early once another
// call queues for the LEDs.
type LedController struct {
	ws          wsEngine
	interruptor Queue
	mu          sync.Mutex
	closed      bool
}

func (l *LedController) setColor(color uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}

	leds := l.ws.Leds(0)
	for i := range leds {
		leds[i] = color
	}
	return l.ws.Render()
}

func (l *LedController) clear() {
	if err := l.setColor(0); err != nil {
		log.Warn("Unable to clear LEDs: ", err)
	}
}

// Set shows a steady color, stopping any running animation.
func (l *LedController) Set(color uint32) error {
	done := l.interruptor.Queue()
	defer done()
	return l.setColor(color)
}

func (l *LedController) Off() error {
	return l.Set(0)
}

// Stop interrupts a running animation and waits for it to release the LEDs.
func (l *LedController) Stop() {
	done := l.interruptor.Queue()
	done()
}

func (l *LedController) Close() {
	l.Stop()
	l.clear()

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		l.ws.Fini()
	}
}

// withBrightness scales each channel of color to light percent.
func withBrightness(color uint32, light uint32) uint32 {
	r := (color >> 16) & 0xff
	g := (color >> 8) & 0xff
	b := color & 0xff
	return (r*light/100)<<16 | (g*light/100)<<8 | b*light/100
}
