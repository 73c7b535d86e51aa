package transit

import (
	"strconv"
	"time"
)

// StationSpec selects the departures shown for one configured station.
type StationSpec struct {
	Station  int64    `yaml:"station"`
	Via      int64    `yaml:"via"`
	Products []string `yaml:"products"`
	Line     string   `yaml:"line"`
}

func (s StationSpec) String() string {
	str := strconv.FormatInt(s.Station, 10)
	if s.Via != 0 {
		str += "->" + strconv.FormatInt(s.Via, 10)
	}
	return str
}

// Departure is a single planned service leaving a station.
type Departure struct {
	Planned   time.Time
	Delay     int
	Line      string
	Direction string
	Cancelled bool
}

// Clock returns the planned hour and minute in the time zone reported by the
// server, along with that zone's offset from UTC in seconds.
func (d Departure) Clock() (hour, minute, utcOffset int) {
	_, utcOffset = d.Planned.Zone()
	return d.Planned.Hour(), d.Planned.Minute(), utcOffset
}

// StationDepartures is the result of one fetch for one station.
type StationDepartures struct {
	Name       string
	Departures []Departure
	Updated    time.Time
}

func (s StationDepartures) Clone() StationDepartures {
	c := s
	if s.Departures != nil {
		c.Departures = make([]Departure, len(s.Departures))
		copy(c.Departures, s.Departures)
	}
	return c
}
