// Package control runs the departure board: it fetches departures, presents
// them, handles key presses between fetches and decides when to shut down.
//
// The loop is single threaded. The model is only written from Run, so a frame
// is never built from a half replaced departure list.
package control

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/depmon/departure-board/internal/hal"
	"github.com/depmon/departure-board/internal/model"
	"github.com/depmon/departure-board/internal/transit"
	"github.com/depmon/departure-board/internal/view"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultBlinkDuration = 100 * time.Millisecond
)

var (
	// ErrQuit is returned when the user quits the simulator.
	ErrQuit = errors.New("quit requested")
	// ErrResetRequested asks the caller to restart the program.
	ErrResetRequested = errors.New("reset requested")
	// ErrGaveUp is returned after the board was shut down because cycles
	// kept failing.
	ErrGaveUp = errors.New("giving up after repeated failures")

	errIdle = errors.New("idle")
)

type Fetcher interface {
	Fetch(ctx context.Context, stations []transit.StationSpec) ([]transit.StationDepartures, error)
}

type Renderer interface {
	Build(m *model.AppModel) *view.Frame
	Update(f *view.Frame, m *model.AppModel)
}

type Config struct {
	Stations       []transit.StationSpec
	UpdateInterval time.Duration
	// OffTime is the time without key presses after which the board shuts
	// down. Zero disables it.
	OffTime       time.Duration
	PollInterval  time.Duration
	MaxErrorCount int
	ErrorReset    bool
	BlinkDuration time.Duration
}

type Loop struct {
	// OnFailure may return a frame to present after a failed cycle.
	OnFailure func(err error) *view.Frame

	cfg      Config
	hw       hal.Capability
	keys     hal.KeySource
	model    *model.AppModel
	fetcher  Fetcher
	renderer Renderer

	display   hal.Display
	frame     *view.Frame
	state     atomic.Int32
	errCount  int
	lastInput time.Time

	now    func() time.Time
	tracer trace.Tracer
}

// New creates the loop. keys may be nil for boards without keys.
func New(cfg Config, hw hal.Capability, keys hal.KeySource, m *model.AppModel, f Fetcher, r Renderer) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxErrorCount < 1 {
		cfg.MaxErrorCount = 1
	}
	if cfg.BlinkDuration <= 0 {
		cfg.BlinkDuration = DefaultBlinkDuration
	}

	return &Loop{
		cfg:      cfg,
		hw:       hw,
		keys:     keys,
		model:    m,
		fetcher:  f,
		renderer: r,
		now:      time.Now,
		tracer:   otel.Tracer("github.com/depmon/departure-board/internal/control"),
	}
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	if old := State(l.state.Swap(int32(s))); old != s {
		log.Debugf("State %v -> %v", old, s)
	}
}

// Run drives the board until it shuts down. It returns nil after a shutdown
// for inactivity. ErrQuit, ErrResetRequested and ErrGaveUp report the other
// ways out; a failing display is returned as hal.ErrNoDisplay.
func (l *Loop) Run(ctx context.Context) error {
	d, err := l.hw.Display()
	if err != nil {
		l.setState(Failed)
		if errors.Is(err, hal.ErrNoDisplay) {
			return err
		}
		return &ExitError{Reason: hal.ErrNoDisplay, Err: err}
	}
	l.display = d
	l.lastInput = l.now()

	for {
		err := l.runCycles(ctx)
		switch {
		case errors.Is(err, errIdle):
			log.Infof("Shutting down after %v without input", l.cfg.OffTime)
			return l.shutdown()
		case errors.Is(err, ErrQuit):
			log.Info("Quit requested")
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		}

		l.errCount++
		l.setState(Failed)
		log.WithError(err).Warnf("Cycle failed (%d of %d)", l.errCount, l.cfg.MaxErrorCount)
		l.hw.SetStatus(false, hal.ColorOff)
		l.showFailure(ctx, err)

		if l.errCount < l.cfg.MaxErrorCount {
			if l.idle() {
				log.Infof("Shutting down after %v without input", l.cfg.OffTime)
				return l.shutdown()
			}
			l.hw.ResetIfNeeded()
			continue
		}

		log.Errorf("Error count reached %d", l.cfg.MaxErrorCount)
		if l.cfg.ErrorReset {
			log.Warn("Forcing a reset")
			return &ExitError{Reason: ErrResetRequested, Err: err}
		}
		if sErr := l.shutdown(); sErr != nil {
			log.WithError(sErr).Error("Shutdown failed")
		}
		return &ExitError{Reason: ErrGaveUp, Err: err}
	}
}

func (l *Loop) runCycles(ctx context.Context) error {
	for {
		start := l.now()
		if err := l.tick(ctx); err != nil {
			return err
		}
		l.errCount = 0

		if err := l.await(ctx, start.Add(l.cfg.UpdateInterval)); err != nil {
			return err
		}

		if l.idle() {
			return errIdle
		}
		if l.cfg.OffTime > 0 {
			rest := max(l.cfg.UpdateInterval, l.cfg.OffTime-l.now().Sub(l.lastInput))
			log.Debugf("About %v left before shutdown", rest.Round(time.Second))
		}
		l.hw.ResetIfNeeded()
	}
}

func (l *Loop) idle() bool {
	return l.cfg.OffTime > 0 && l.now().Sub(l.lastInput) >= l.cfg.OffTime
}

// tick fetches all stations and presents the result.
func (l *Loop) tick(ctx context.Context) (err error) {
	ctx, span := l.tracer.Start(ctx, "tick")
	defer func() { endSpan(span, err) }()

	l.setState(Fetching)
	l.model.SetBattery(l.hw.BatteryLevel())

	l.hw.SetStatus(true, hal.ColorRed)
	data, err := l.fetch(ctx)
	l.hw.SetStatus(false, hal.ColorRed)
	if err != nil {
		return err
	}
	l.blink(hal.ColorGreen)

	l.setState(Rendering)
	l.model.ReplaceDepartures(data)
	return l.present(ctx)
}

func (l *Loop) fetch(ctx context.Context) (data []transit.StationDepartures, err error) {
	ctx, span := l.tracer.Start(ctx, "fetch", trace.WithAttributes(attribute.Int("stations", len(l.cfg.Stations))))
	defer func() { endSpan(span, err) }()

	start := time.Now()
	data, err = l.fetcher.Fetch(ctx, l.cfg.Stations)
	if err != nil {
		return nil, err
	}
	if len(data) != len(l.cfg.Stations) {
		return nil, errors.Errorf("fetched %d stations, expected %d", len(data), len(l.cfg.Stations))
	}
	log.Debugf("Fetched %d stations in %v", len(data), time.Since(start))
	return data, nil
}

func (l *Loop) present(ctx context.Context) (err error) {
	ctx, span := l.tracer.Start(ctx, "present")
	defer func() { endSpan(span, err) }()

	l.setState(Rendering)
	if l.frame == nil {
		l.frame = l.renderer.Build(l.model)
	} else {
		l.renderer.Update(l.frame, l.model)
	}

	l.setState(Presenting)
	start := time.Now()
	if err := l.hw.ShowAndRefresh(ctx, l.display, l.frame); err != nil {
		return errors.Wrap(err, "presenting frame")
	}
	log.Debugf("Presented page %d/%d in %v", l.frame.Page, l.frame.Pages, time.Since(start))
	return nil
}

// await polls for key presses until the deadline. Boards without keys just
// sleep.
func (l *Loop) await(ctx context.Context, deadline time.Time) error {
	l.setState(AwaitingInput)

	if l.keys == nil {
		if d := deadline.Sub(l.now()); d > 0 {
			l.hw.Sleep(d)
		}
		return ctx.Err()
	}

	l.keys.Drain()
	for l.now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}

		k, ok := l.keys.Poll()
		if !ok {
			l.hw.Sleep(l.cfg.PollInterval)
			continue
		}
		if k == hal.KeyQuit {
			return ErrQuit
		}

		l.lastInput = l.now()
		if err := l.navigate(ctx, k); err != nil {
			return err
		}
		l.setState(AwaitingInput)
	}
	return nil
}

var directions = map[hal.Key]model.Direction{
	hal.KeyUp:    model.PageUp,
	hal.KeyDown:  model.PageDown,
	hal.KeyLeft:  model.PrevStation,
	hal.KeyRight: model.NextStation,
}

func (l *Loop) navigate(ctx context.Context, k hal.Key) (err error) {
	dir, ok := directions[k]
	if !ok {
		log.Debugf("Ignoring key %v", k)
		return nil
	}

	ctx, span := l.tracer.Start(ctx, "navigate", trace.WithAttributes(attribute.String("direction", dir.String())))
	defer func() { endSpan(span, err) }()

	log.Debugf("Key %v: %v", k, dir)
	if err := l.model.Navigate(dir); err != nil {
		log.WithError(err).Warn("Station selection was not saved")
	}
	return l.present(ctx)
}

func (l *Loop) blink(color uint32) {
	l.hw.SetStatus(true, color)
	l.hw.Sleep(l.cfg.BlinkDuration)
	l.hw.SetStatus(false, color)
}

func (l *Loop) showFailure(ctx context.Context, err error) {
	if l.OnFailure == nil {
		return
	}
	f := l.OnFailure(err)
	if f == nil {
		return
	}
	if err := l.hw.ShowAndRefresh(ctx, l.display, f); err != nil {
		log.WithError(err).Warn("Unable to show the error screen")
	}
}

func (l *Loop) shutdown() error {
	l.setState(ShuttingDown)
	return errors.Wrap(l.hw.Shutdown(), "shutting down")
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
