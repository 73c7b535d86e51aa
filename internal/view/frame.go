// Package view turns the application model into frames: a title, one row per
// visible departure and a footer. Frames are panel independent; boards turn
// them into text lines or rasters.
package view

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/depmon/departure-board/internal/model"
	"github.com/depmon/departure-board/internal/transit"
	"github.com/pkg/errors"
)

const DefaultFooter = "Aktualisiert"

type Row struct {
	Time      string
	Delay     string
	Line      string
	Direction string
	Cancelled bool
}

type Frame struct {
	Title  string
	Rows   []Row
	Footer string
	Page   int
	Pages  int
}

func (f *Frame) Clone() *Frame {
	c := *f
	c.Rows = append([]Row(nil), f.Rows...)
	return &c
}

// Replacement rewrites displayed station and direction names.
type Replacement struct {
	pattern *regexp.Regexp
	with    string
}

func NewReplacement(from, to string) (Replacement, error) {
	p, err := regexp.Compile(from)
	if err != nil {
		return Replacement{}, errors.Wrapf(err, "invalid replacement pattern %q", from)
	}
	return Replacement{pattern: p, with: to}, nil
}

func (r Replacement) Apply(s string) string {
	return r.pattern.ReplaceAllString(s, r.with)
}

type Builder struct {
	Footer       string
	Replacements []Replacement
	// Location overrides the zone departure times are shown in. When nil the
	// zone reported by the API is used.
	Location *time.Location
}

// Build creates a new frame for the current page of the selected station.
func (b *Builder) Build(m *model.AppModel) *Frame {
	f := &Frame{}
	b.Update(f, m)
	return f
}

// Update rewrites an existing frame in place.
func (b *Builder) Update(f *Frame, m *model.AppModel) {
	f.Page, f.Pages = m.Page()
	f.Rows = f.Rows[:0]

	cur, ok := m.Current()
	if !ok {
		f.Title = ""
		f.Footer = b.footer("--:--:--", m.Battery())
		return
	}

	f.Title = b.replace(cur.Name)
	for _, dep := range m.Visible() {
		f.Rows = append(f.Rows, b.row(dep))
	}
	f.Footer = b.footer(b.in(cur.Updated).Format("15:04:05"), m.Battery())
}

func (b *Builder) row(dep transit.Departure) Row {
	hour, minute, _ := dep.Clock()
	if b.Location != nil {
		t := dep.Planned.In(b.Location)
		hour, minute = t.Hour(), t.Minute()
	}

	return Row{
		Time:      fmt.Sprintf("%02d:%02d", hour, minute),
		Delay:     FormatDelay(dep),
		Line:      dep.Line,
		Direction: b.replace(dep.Direction),
		Cancelled: dep.Cancelled,
	}
}

// FormatDelay renders the delay column: X for cancelled trips, a signed
// number of minutes otherwise and nothing when on time.
func FormatDelay(dep transit.Departure) string {
	switch {
	case dep.Cancelled:
		return "X"
	case dep.Delay > 0:
		return "+" + strconv.Itoa(dep.Delay)
	case dep.Delay < 0:
		return strconv.Itoa(dep.Delay)
	}
	return ""
}

func (b *Builder) footer(updated string, battery float64) string {
	text := b.Footer
	if text == "" {
		text = DefaultFooter
	}
	text += " " + updated
	if battery > 0 {
		text += fmt.Sprintf("  %.1fV", battery)
	}
	return text
}

func (b *Builder) in(t time.Time) time.Time {
	if b.Location != nil {
		return t.In(b.Location)
	}
	return t.Local()
}

func (b *Builder) replace(s string) string {
	for _, r := range b.Replacements {
		s = r.Apply(s)
	}
	return s
}

// ErrorFrame is shown instead of departures when a cycle fails and error
// screens are enabled.
func ErrorFrame(err error, now time.Time) *Frame {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Frame{
		Title:  "Keine Verbindung",
		Rows:   []Row{{Direction: msg}},
		Footer: "Fehler " + now.Format("15:04:05"),
		Page:   1,
		Pages:  1,
	}
}
