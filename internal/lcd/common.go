package lcd

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

type Line byte

func (l Line) String() string {
	switch l {
	case Line1:
		return "L1"
	case Line2:
		return "L2"
	}
	return "N/A"
}

const (
	registerSelectionPin = "GPIO4"
	clockEdgePin         = "GPIO17"
	data4Pin             = "GPIO25"
	data5Pin             = "GPIO22"
	data6Pin             = "GPIO23"
	data7Pin             = "GPIO24"

	Line1 Line = 0x80
	Line2 Line = 0xC0

	Width = 16
	Rows  = 2

	character   = gpio.High
	command     = gpio.Low
	signalPulse = 500000 * time.Nanosecond
	signalDelay = 500000 * time.Nanosecond
)

// romA00 maps the characters outside ASCII that the HD44780 A00 character
// ROM can show.
var romA00 = map[rune]byte{
	'ä': 0xE1,
	'ß': 0xE2,
	'ö': 0xEF,
	'ü': 0xF5,
	'°': 0xDF,
}

// encode converts a message to exactly one line of character codes. Umlauts
// without a lower case glyph in the ROM are shown lower case; anything else
// the ROM cannot show becomes '?'.
func encode(msg string) []byte {
	out := make([]byte, 0, Width)
	for _, r := range msg {
		if len(out) == Width {
			break
		}
		switch r {
		case 'Ä':
			r = 'ä'
		case 'Ö':
			r = 'ö'
		case 'Ü':
			r = 'ü'
		}
		switch {
		case r >= 0x20 && r < 0x7f && r != '\\' && r != '~':
			out = append(out, byte(r))
		case romA00[r] != 0:
			out = append(out, romA00[r])
		default:
			out = append(out, '?')
		}
	}
	for len(out) < Width {
		out = append(out, ' ')
	}
	return out
}
