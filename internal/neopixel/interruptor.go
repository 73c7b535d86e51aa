package neopixel

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Queue shares the LEDs between the status indicator and long running
// animations. Queueing marks the queue as interrupted; an animation that sees
// the interruption releases the LEDs so the queued caller can continue.
type Queue struct {
	waiting       int
	runLock       sync.Mutex
	interruptLock sync.Mutex
}

type Unlocker func()

// Queue waits for the LEDs. The returned Unlocker releases them.
func (q *Queue) Queue() Unlocker {
	q.adjust(1)
	q.runLock.Lock()
	q.adjust(-1)

	return q.runLock.Unlock
}

func (q *Queue) adjust(delta int) {
	q.interruptLock.Lock()
	defer q.interruptLock.Unlock()

	q.waiting += delta
	if q.waiting < 0 {
		log.Warn("number waiting in LED queue less than zero")
	}
}

func (q *Queue) IsInterrupted() bool {
	q.interruptLock.Lock()
	defer q.interruptLock.Unlock()

	return q.waiting != 0
}
