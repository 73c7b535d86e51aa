package main

import (
	"fmt"
	"os"
	"time"

	"github.com/depmon/departure-board/internal/hal"
	"github.com/depmon/departure-board/internal/persist"
	"github.com/depmon/departure-board/internal/transit"
	"github.com/depmon/departure-board/internal/view"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile     = "config.yaml"
	defaultApiTimeout     = 20
	defaultDuration       = 120
	defaultUpdateInterval = 60
	defaultErrorCount     = 1
	defaultRows           = 4
	defaultBusyRetries    = 5
)

type Config struct {
	Board string `yaml:"board"`
	Mode  string `yaml:"mode"`
	Api   struct {
		Url     string `yaml:"url"`
		Timeout int    `yaml:"timeout"`
	} `yaml:"api"`
	Stations       []transit.StationSpec `yaml:"stations"`
	Duration       int                   `yaml:"duration"`
	UpdateInterval int                   `yaml:"updateInterval"`
	OffTime        int                   `yaml:"offTime"`
	ErrorCount     int                   `yaml:"errorCount"`
	ErrorReset     bool                  `yaml:"errorReset"`
	Rows           int                   `yaml:"rows"`
	Footer         string                `yaml:"footer"`
	ShowErrors     bool                  `yaml:"showErrors"`
	SelectionFile  string                `yaml:"selectionFile"`
	Replace        []struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	} `yaml:"replace"`
	Hardware struct {
		Keys             *hal.KeyConfig `yaml:"keys"`
		MinFrameInterval int            `yaml:"minFrameInterval"`
		BusyRetries      int            `yaml:"busyRetries"`
		Battery          string         `yaml:"battery"`
		PowerPin         string         `yaml:"powerPin"`
		PowerOff         bool           `yaml:"powerOff"`
	} `yaml:"hardware"`

	kind hal.Kind
}

func (c Config) Kind() hal.Kind {
	return c.kind
}

func (c Config) HardwareOptions() hal.Options {
	return hal.Options{
		Keys:             c.Hardware.Keys,
		MinFrameInterval: time.Duration(c.Hardware.MinFrameInterval) * time.Second,
		BusyRetries:      c.Hardware.BusyRetries,
		BatteryPath:      c.Hardware.Battery,
		PowerPin:         c.Hardware.PowerPin,
		PowerOff:         c.Hardware.PowerOff,
	}
}

func (c Config) Replacements() ([]view.Replacement, error) {
	r := make([]view.Replacement, 0, len(c.Replace))
	for i, entry := range c.Replace {
		rep, err := view.NewReplacement(entry.From, entry.To)
		if err != nil {
			return nil, errors.Wrapf(err, "replacement %d", i)
		}
		r = append(r, rep)
	}
	return r, nil
}

func readConfig(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	return parseConfig(content)
}

func parseConfig(content []byte) (*Config, error) {
	c := &Config{}
	err := yaml.Unmarshal(content, c)
	if err != nil {
		return nil, err
	}

	c.kind, err = hal.ParseKind(c.Mode)
	if err != nil {
		return nil, err
	}

	if c.Api.Url == "" {
		c.Api.Url = transit.DefaultBaseUrl
	}
	if c.Api.Timeout <= 0 {
		c.Api.Timeout = defaultApiTimeout
	}

	if len(c.Stations) == 0 {
		return nil, fmt.Errorf("at least one station must be configured")
	}
	for i, station := range c.Stations {
		if station.Station <= 0 {
			return nil, fmt.Errorf("station id must be specified for entry %d", i)
		}
		if station.Via < 0 {
			return nil, fmt.Errorf("invalid via station for entry %d", i)
		}
		if err := transit.ValidateProducts(station.Products); err != nil {
			return nil, fmt.Errorf("invalid products for entry %d: %w", i, err)
		}
	}

	if c.Duration <= 0 {
		c.Duration = defaultDuration
	}
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = defaultUpdateInterval
	}
	if c.OffTime < 0 {
		return nil, fmt.Errorf("offTime cannot be negative")
	}
	if c.ErrorCount <= 0 {
		c.ErrorCount = defaultErrorCount
	}
	if c.Rows <= 0 {
		c.Rows = defaultRows
	}
	if c.Footer == "" {
		c.Footer = view.DefaultFooter
	}
	if c.SelectionFile == "" {
		c.SelectionFile = persist.DefaultPath
	}
	for i, entry := range c.Replace {
		if entry.From == "" {
			return nil, fmt.Errorf("pattern must be specified for replacement %d", i)
		}
	}
	if _, err := c.Replacements(); err != nil {
		return nil, err
	}

	if c.Hardware.MinFrameInterval < 0 {
		return nil, fmt.Errorf("minFrameInterval cannot be negative")
	}
	if c.Hardware.BusyRetries <= 0 {
		c.Hardware.BusyRetries = defaultBusyRetries
	}

	return c, nil
}
