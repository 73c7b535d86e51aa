//go:build !pi

package button

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/depmon/departure-board/internal/hal"
	log "github.com/sirupsen/logrus"
)

var signalKeys = map[os.Signal]hal.Key{
	syscall.SIGHUP:  hal.KeyUp,
	syscall.SIGUSR1: hal.KeyDown,
	syscall.SIGUSR2: hal.KeyRight,
}

// Open starts a key pad driven by signals: SIGHUP is up, SIGUSR1 down and
// SIGUSR2 right.
func Open(_ hal.KeyConfig) (*Pad, error) {
	log.Infoln("Initializing key pad")

	p := newPad()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)
	go p.simulateKeys(sig)
	return p, nil
}

func (p *Pad) simulateKeys(sig chan os.Signal) {
	defer signal.Stop(sig)
	for {
		select {
		case s := <-sig:
			p.press(signalKeys[s])
		case <-p.stop:
			return
		}
	}
}
