package board

import (
	"context"
	"time"

	"github.com/depmon/departure-board/internal/hal"
	"github.com/depmon/departure-board/internal/lcd"
	"github.com/depmon/departure-board/internal/view"
	log "github.com/sirupsen/logrus"
)

func init() {
	hal.Default.Register("raspberrypi_lcd1602", newLcd1602)
}

type printer interface {
	Print(l1, l2 string) error
}

// lcd1602 is a Raspberry Pi with a 16x2 character LCD. It shows the station
// and the first row of the current page.
type lcd1602 struct {
	lcd     printer
	gate    *hal.RefreshGate
	keys    hal.KeyConfig
	battery string
}

func newLcd1602(o hal.Options) (hal.Capability, error) {
	d, err := lcd.Open()
	if err != nil {
		return nil, err
	}

	l := &lcd1602{
		lcd:     d,
		gate:    hal.NewRefreshGate(o.MinFrameInterval),
		keys:    DefaultKeys,
		battery: o.BatteryPath,
	}
	if o.Keys != nil {
		l.keys = *o.Keys
	}
	return l, nil
}

func (l *lcd1602) Display() (hal.Display, error) {
	return textDisplay{cols: lcd.Width, rows: lcd.Rows}, nil
}

func (l *lcd1602) ShowAndRefresh(ctx context.Context, _ hal.Display, f *view.Frame) error {
	if err := l.gate.Wait(ctx); err != nil {
		return err
	}

	second := ""
	if rows := view.RowText(f.Rows); len(rows) > 0 {
		second = rows[0]
	}
	return l.lcd.Print(f.Title, second)
}

func (l *lcd1602) BatteryLevel() float64 {
	return readBattery(l.battery)
}

func (l *lcd1602) SetStatus(on bool, color uint32) {
	log.Debugf("Status indicator on=%v color=%06x", on, color)
}

func (l *lcd1602) Shutdown() error {
	return l.lcd.Print("  Sleeping...", "")
}

func (l *lcd1602) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (l *lcd1602) Keys() (hal.KeyConfig, bool) {
	return l.keys, true
}

func (l *lcd1602) ResetIfNeeded() {}
