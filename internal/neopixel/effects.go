package neopixel

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type step struct {
	color uint32
	d     time.Duration
}

// flashSteps are three pulses of color, the last one fading out.
func flashSteps(color uint32) []step {
	steps := []step{
		{color, 250 * time.Millisecond},
		{0, 40 * time.Millisecond},
		{color, 100 * time.Millisecond},
		{0, 40 * time.Millisecond},
		{color, 100 * time.Millisecond},
	}
	for light := uint32(80); light > 0; light -= 20 {
		steps = append(steps, step{withBrightness(color, light), 20 * time.Millisecond})
	}
	return steps
}

// Flash blinks color a few times. A caller queueing for the LEDs cuts the
// flash short.
func (l *LedController) Flash(color uint32) {
	done := l.interruptor.Queue()
	defer done()

	log.Infof("Flashing color %06x", color)

	for _, s := range flashSteps(color) {
		if l.interruptor.IsInterrupted() {
			log.Debug("Flashing interrupted.")
			return
		}
		if err := l.setColor(s.color); err != nil {
			log.Warn("Flashing failed: ", err)
			return
		}
		<-time.After(s.d)
	}
	l.clear()

	log.Debug("Flashing done...")
}
