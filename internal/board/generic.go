package board

import (
	"context"
	"strings"
	"time"

	"github.com/depmon/departure-board/internal/hal"
	"github.com/depmon/departure-board/internal/view"
	log "github.com/sirupsen/logrus"
)

const genericWidth = 48

func init() {
	hal.Default.Register("generic", newGeneric)
}

// generic is a headless board. Frames go to the log, there is no status
// LED and shutdown only stops the program.
type generic struct {
	keys    *hal.KeyConfig
	battery string
	gate    *hal.RefreshGate
}

func newGeneric(o hal.Options) (hal.Capability, error) {
	return &generic{
		keys:    o.Keys,
		battery: o.BatteryPath,
		gate:    hal.NewRefreshGate(o.MinFrameInterval),
	}, nil
}

func (g *generic) Display() (hal.Display, error) {
	return textDisplay{cols: genericWidth, rows: 16}, nil
}

func (g *generic) ShowAndRefresh(ctx context.Context, d hal.Display, f *view.Frame) error {
	if err := g.gate.Wait(ctx); err != nil {
		return err
	}
	cols, _, _ := d.Text()
	log.Info(strings.Repeat("-", cols))
	for _, line := range view.TextLines(f, cols) {
		log.Info(line)
	}
	return nil
}

func (g *generic) BatteryLevel() float64 {
	return readBattery(g.battery)
}

func (g *generic) SetStatus(on bool, color uint32) {
	log.Debugf("Status indicator on=%v color=%06x", on, color)
}

func (g *generic) Shutdown() error {
	log.Info("Shutting down")
	return nil
}

func (g *generic) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (g *generic) Keys() (hal.KeyConfig, bool) {
	if g.keys == nil {
		return hal.KeyConfig{}, false
	}
	return *g.keys, true
}

func (g *generic) ResetIfNeeded() {}
