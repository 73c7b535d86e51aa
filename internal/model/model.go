// Package model holds the state shared between the control loop and the
// view: the latest departures of every configured station and the current
// navigation position.
package model

import (
	"fmt"

	"github.com/depmon/departure-board/internal/transit"
	"github.com/pkg/errors"
)

type Direction int

const (
	NextStation Direction = iota
	PrevStation
	PageDown
	PageUp
)

func (d Direction) String() string {
	switch d {
	case NextStation:
		return "next station"
	case PrevStation:
		return "previous station"
	case PageDown:
		return "page down"
	case PageUp:
		return "page up"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Selection persists the selected station index across restarts.
type Selection interface {
	Load() (int, bool)
	Store(index int) error
}

type AppModel struct {
	battery    float64
	departures []transit.StationDepartures

	stations int
	pageSize int
	selected int
	offset   int
	store    Selection
}

// New creates a model for the given number of configured stations. A
// previously persisted selection is restored when it is still in range.
func New(stations, pageSize int, store Selection) (*AppModel, error) {
	if stations < 1 {
		return nil, errors.New("at least one station is required")
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	m := &AppModel{
		stations: stations,
		pageSize: pageSize,
		store:    store,
	}
	if store != nil {
		if index, ok := store.Load(); ok && index >= 0 && index < stations {
			m.selected = index
		}
	}
	return m, nil
}

func (m *AppModel) Selected() int { return m.selected }
func (m *AppModel) Offset() int { return m.offset }
func (m *AppModel) PageSize() int { return m.pageSize }
func (m *AppModel) Stations() int { return m.stations }
func (m *AppModel) Battery() float64 { return m.battery }
func (m *AppModel) SetBattery(v float64) { m.battery = v }

// Departures returns the departures of all stations, index-aligned with the
// configured stations.
func (m *AppModel) Departures() []transit.StationDepartures {
	return m.departures
}

// Current returns the departures of the selected station. The second value
// is false until the first successful fetch.
func (m *AppModel) Current() (transit.StationDepartures, bool) {
	if m.selected >= len(m.departures) {
		return transit.StationDepartures{}, false
	}
	return m.departures[m.selected], true
}

// Visible returns the records of the current page.
func (m *AppModel) Visible() []transit.Departure {
	cur, ok := m.Current()
	if !ok || m.offset >= len(cur.Departures) {
		return nil
	}
	end := m.offset + m.pageSize
	if end > len(cur.Departures) {
		end = len(cur.Departures)
	}
	return cur.Departures[m.offset:end]
}

// MaxOffset is the offset of the last page of the selected station: the
// largest multiple of the page size not beyond len-pageSize. Records past the
// last full page are not shown.
func (m *AppModel) MaxOffset() int {
	cur, ok := m.Current()
	if !ok {
		return 0
	}
	return max(0, len(cur.Departures)-m.pageSize) / m.pageSize * m.pageSize
}

// Page returns the 1-based current page and the page count.
func (m *AppModel) Page() (page, pages int) {
	return m.offset/m.pageSize + 1, m.MaxOffset()/m.pageSize + 1
}

// ReplaceDepartures swaps in the result of a fetch cycle. The navigation
// position is kept, but the offset is pulled back if the selected station
// now has fewer records.
func (m *AppModel) ReplaceDepartures(data []transit.StationDepartures) {
	m.departures = data
	m.clamp()
}

// Navigate moves the selection. Station changes are persisted; a persistence
// failure is returned after the navigation has been applied.
func (m *AppModel) Navigate(d Direction) error {
	switch d {
	case NextStation:
		m.selected = (m.selected + 1) % m.stations
		m.offset = 0
		return m.persist()
	case PrevStation:
		m.selected = (m.selected - 1 + m.stations) % m.stations
		m.offset = 0
		return m.persist()
	case PageDown:
		m.offset += m.pageSize
	case PageUp:
		m.offset -= m.pageSize
	default:
		return fmt.Errorf("unknown direction %v", d)
	}
	m.clamp()
	return nil
}

func (m *AppModel) clamp() {
	if last := m.MaxOffset(); m.offset > last {
		m.offset = last
	}
	if m.offset < 0 {
		m.offset = 0
	}
	m.offset -= m.offset % m.pageSize
}

func (m *AppModel) persist() error {
	if m.store == nil {
		return nil
	}
	return errors.Wrap(m.store.Store(m.selected), "persisting station selection")
}
