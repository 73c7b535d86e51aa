package button

import (
	"sync"

	"github.com/depmon/departure-board/internal/hal"
	log "github.com/sirupsen/logrus"
)

const queueSize = 8

// Pad is a set of four navigation keys. Presses are queued until the control
// loop polls them.
type Pad struct {
	events chan hal.Key
	stop   chan struct{}
	once   sync.Once
}

func newPad() *Pad {
	return &Pad{
		events: make(chan hal.Key, queueSize),
		stop:   make(chan struct{}),
	}
}

func (p *Pad) press(k hal.Key) {
	select {
	case p.events <- k:
		log.Debugf("Key %v pressed", k)
	default:
		log.Debugf("Key queue full, dropping %v", k)
	}
}

// Poll returns the oldest queued press without blocking.
func (p *Pad) Poll() (hal.Key, bool) {
	select {
	case k := <-p.events:
		return k, true
	default:
		return 0, false
	}
}

func (p *Pad) Drain() {
	for {
		select {
		case <-p.events:
		default:
			return
		}
	}
}

func (p *Pad) Close() {
	p.once.Do(func() {
		close(p.stop)
	})
}

func (p *Pad) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

// keys is the order of KeyConfig.Pins.
var keys = [4]hal.Key{hal.KeyUp, hal.KeyDown, hal.KeyLeft, hal.KeyRight}
