// Package hal is the contract between the control loop and the board it runs
// on. Boards register themselves by id at startup; the program resolves one
// board once and never looks it up again.
package hal

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/depmon/departure-board/internal/view"
	"github.com/pkg/errors"
)

var (
	ErrNoDisplay = errors.New("no display available")
	ErrBusy      = errors.New("display busy")
)

// Kind tells whether the program drives real hardware or the desktop
// simulator.
type Kind int

const (
	Embedded Kind = iota
	Simulated
)

func (k Kind) String() string {
	switch k {
	case Embedded:
		return "embedded"
	case Simulated:
		return "simulated"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "embedded":
		return Embedded, nil
	case "simulated", "simulator":
		return Simulated, nil
	}
	return Embedded, fmt.Errorf("unknown mode %q", s)
}

type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	// KeyQuit only exists on the simulator.
	KeyQuit
)

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	case KeyQuit:
		return "quit"
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// KeyConfig describes the four navigation keys of a board, ordered up, down,
// left, right.
type KeyConfig struct {
	ActiveHigh bool      `yaml:"activeHigh"`
	Pins       [4]string `yaml:"pins"`
}

// KeySource delivers key presses. Poll never blocks.
type KeySource interface {
	Poll() (Key, bool)
	// Drain discards presses queued while the loop was busy.
	Drain()
}

type Display interface {
	Bounds() image.Rectangle
	// Text reports character displays; those get text lines instead of a
	// raster.
	Text() (cols, rows int, ok bool)
}

// Status indicator colours.
const (
	ColorOff   uint32 = 0x000000
	ColorRed   uint32 = 0xff0000
	ColorGreen uint32 = 0x00ff00
)

// Capability is what the control loop needs from a board.
type Capability interface {
	Display() (Display, error)
	// ShowAndRefresh puts the frame on the panel and blocks until the panel
	// is done. Panels with a refresh floor wait for it first.
	ShowAndRefresh(ctx context.Context, d Display, f *view.Frame) error
	BatteryLevel() float64
	SetStatus(on bool, color uint32)
	// Shutdown powers the board down. On boards that cannot cut their own
	// power it returns and the caller stops.
	Shutdown() error
	Sleep(d time.Duration)
	Keys() (KeyConfig, bool)
	// ResetIfNeeded runs between cycles for boards that have to recover
	// from resource exhaustion.
	ResetIfNeeded()
}

// Options carries the configuration a factory may use.
type Options struct {
	Keys             *KeyConfig
	MinFrameInterval time.Duration
	BusyRetries      int
	BatteryPath      string
	PowerPin         string
	PowerOff         bool
}
