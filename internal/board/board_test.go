package board

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/depmon/departure-board/internal/hal"
	"github.com/depmon/departure-board/internal/view"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frame = &view.Frame{
	Title: "Starnberg",
	Rows: []view.Row{
		{Time: "23:13", Delay: "+2", Line: "S 6", Direction: "München Ost"},
		{Time: "23:33", Line: "S 6", Direction: "Zorneding"},
	},
	Footer: "Aktualisiert 23:05:09",
	Page:   1,
	Pages:  2,
}

func TestRegisteredBoards(t *testing.T) {
	boards := hal.Default.Boards()
	for _, id := range []string{"generic", "simulator", "raspberrypi_epd2in13v2", "raspberrypi_lcd1602"} {
		assert.Contains(t, boards, id)
	}
	assert.Equal(t, "generic", hal.Default.Fallback())
}

func TestReadBattery(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "voltage_now")
	require.NoError(t, os.WriteFile(good, []byte("3712000\n"), 0o644))
	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(bad, []byte("n/a"), 0o644))

	assert.InDelta(t, 3.712, readBattery(good), 1e-9)
	assert.Zero(t, readBattery(bad))
	assert.Zero(t, readBattery(filepath.Join(dir, "missing")))
	assert.Zero(t, readBattery(""))
}

func TestGeneric(t *testing.T) {
	c, id, err := hal.Default.Open("adafruit_magtag_2_9_grayscale", hal.Options{})
	require.NoError(t, err)
	assert.Equal(t, "generic", id)

	d, err := c.Display()
	require.NoError(t, err)
	require.NoError(t, c.ShowAndRefresh(context.Background(), d, frame))
	assert.NoError(t, c.Shutdown())

	_, ok := c.Keys()
	assert.False(t, ok)

	keys := &hal.KeyConfig{ActiveHigh: true, Pins: [4]string{"GPIO1", "GPIO2", "GPIO3", "GPIO4"}}
	c, _, err = hal.Default.Open("generic", hal.Options{Keys: keys})
	require.NoError(t, err)
	cfg, ok := c.Keys()
	assert.True(t, ok)
	assert.Equal(t, *keys, cfg)
}

func TestOpenKeys(t *testing.T) {
	sim := newSimulatorState(time.Millisecond)
	src, closer, err := OpenKeys(sim, hal.Simulated)
	require.NoError(t, err)
	assert.Same(t, sim, src)
	assert.NoError(t, closer.Close())

	g, err := newGeneric(hal.Options{})
	require.NoError(t, err)
	src, _, err = OpenKeys(g, hal.Simulated)
	require.NoError(t, err)
	assert.Nil(t, src, "no keyboard")

	src, _, err = OpenKeys(g, hal.Embedded)
	require.NoError(t, err)
	assert.Nil(t, src, "no keys configured")
}

func TestSimulator_Keys(t *testing.T) {
	s := newSimulatorState(time.Millisecond)

	s.key(hal.KeyLeft)
	s.key(hal.KeyDown)
	k, ok := s.Poll()
	require.True(t, ok)
	assert.Equal(t, hal.KeyLeft, k)

	s.Drain()
	_, ok = s.Poll()
	assert.False(t, ok)

	s.key(hal.KeyQuit)
	s.Drain()
	k, ok = s.Poll()
	require.True(t, ok)
	assert.Equal(t, hal.KeyQuit, k, "quit survives drain")
}

func TestSimulator_QuitEndsWaits(t *testing.T) {
	s := newSimulatorState(time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Sleep(time.Hour)
		assert.NoError(t, s.Shutdown())
		close(done)
	}()

	s.key(hal.KeyQuit)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sleep and shutdown did not return after quit")
	}
	assert.NoError(t, s.Close())
}

func TestSimulator_Contract(t *testing.T) {
	s := newSimulatorState(time.Millisecond)
	assert.Equal(t, 3.6, s.BatteryLevel())

	d, err := s.Display()
	require.NoError(t, err)
	cols, rows, ok := d.Text()
	assert.True(t, ok)
	assert.Equal(t, simulatorCols, cols)
	assert.Equal(t, simulatorRows, rows)

	assert.NoError(t, s.ShowAndRefresh(context.Background(), d, frame))
	s.SetStatus(true, hal.ColorRed)
}

func TestKeyFor(t *testing.T) {
	tt := []struct {
		msg tea.KeyMsg
		key hal.Key
		ok  bool
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, hal.KeyUp, true},
		{tea.KeyMsg{Type: tea.KeyPgUp}, hal.KeyUp, true},
		{tea.KeyMsg{Type: tea.KeyDown}, hal.KeyDown, true},
		{tea.KeyMsg{Type: tea.KeyPgDown}, hal.KeyDown, true},
		{tea.KeyMsg{Type: tea.KeyLeft}, hal.KeyLeft, true},
		{tea.KeyMsg{Type: tea.KeyRight}, hal.KeyRight, true},
		{tea.KeyMsg{Type: tea.KeyEsc}, hal.KeyQuit, true},
		{tea.KeyMsg{Type: tea.KeyCtrlC}, hal.KeyQuit, true},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, hal.KeyQuit, true},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}}, 0, false},
	}

	for _, tc := range tt {
		t.Run(tc.msg.String(), func(t *testing.T) {
			k, ok := keyFor(tc.msg)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.key, k)
		})
	}
}

func TestPanel(t *testing.T) {
	var pressed []hal.Key
	var m tea.Model = panel{onKey: func(k hal.Key) { pressed = append(pressed, k) }}

	assert.Contains(t, m.View(), "...")

	m, _ = m.Update(frameMsg{frame: frame})
	m, _ = m.Update(statusMsg{on: true, color: hal.ColorGreen})
	v := m.View()
	assert.Contains(t, v, "Starnberg")
	assert.Contains(t, v, "23:13+2 S 6 München Ost")
	assert.Contains(t, v, "Aktualisiert 23:05:09  1/2")
	assert.Contains(t, v, "●")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Nil(t, cmd)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, []hal.Key{hal.KeyRight, hal.KeyQuit}, pressed)
}

type panelMock struct {
	draws  int
	fail   int
	halted bool
}

func (p *panelMock) Draw(image.Rectangle, image.Image, image.Point) error {
	p.draws++
	if p.draws <= p.fail {
		return errors.New("busy pin stuck")
	}
	return nil
}

func (p *panelMock) Bounds() image.Rectangle { return image.Rect(0, 0, 250, 122) }

func (p *panelMock) Halt() error {
	p.halted = true
	return nil
}

type ledMock struct {
	colors  []uint32
	flashes int
	closed  bool
}

func (l *ledMock) Set(c uint32) error {
	l.colors = append(l.colors, c)
	return nil
}
func (l *ledMock) Off() error { return l.Set(0) }
func (l *ledMock) Flash(uint32) { l.flashes++ }
func (l *ledMock) Close() { l.closed = true }

func newTestEpaper(p *panelMock) *epaper {
	e := &epaper{
		dev:     p,
		gate:    hal.NewRefreshGate(0),
		retries: 3,
		backoff: time.Millisecond,
		led:     &ledMock{},
	}
	return e
}

func TestEpaper_RetriesBusyPanel(t *testing.T) {
	p := &panelMock{fail: 2}
	e := newTestEpaper(p)

	d, err := e.Display()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 250, 122), d.Bounds())

	require.NoError(t, e.ShowAndRefresh(context.Background(), d, frame))
	assert.Equal(t, 3, p.draws)
}

func TestEpaper_GivesUpAndReinits(t *testing.T) {
	p := &panelMock{fail: 10}
	e := newTestEpaper(p)
	inits := 0
	e.reinit = func() error {
		inits++
		return nil
	}

	d, err := e.Display()
	require.NoError(t, err)

	err = e.ShowAndRefresh(context.Background(), d, frame)
	var renderErr *hal.RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, 3, renderErr.Attempts)

	e.ResetIfNeeded()
	e.ResetIfNeeded()
	assert.Equal(t, 1, inits)
}

func TestEpaper_StatusAndShutdown(t *testing.T) {
	p := &panelMock{}
	e := newTestEpaper(p)
	led := e.led.(*ledMock)

	cut := 0
	e.powerOff = func() error {
		cut++
		return nil
	}

	e.SetStatus(true, hal.ColorRed)
	e.SetStatus(false, hal.ColorRed)
	assert.Equal(t, []uint32{hal.ColorRed, 0}, led.colors)

	require.NoError(t, e.Shutdown())
	assert.True(t, p.halted)
	assert.Equal(t, 1, led.flashes)
	assert.Equal(t, 1, cut)

	require.NoError(t, e.Close())
	assert.True(t, led.closed)
}

func TestEpaper_NoPanel(t *testing.T) {
	e := &epaper{}
	_, err := e.Display()
	assert.True(t, errors.Is(err, hal.ErrNoDisplay))
}

type printerMock struct {
	lines [][2]string
}

func (p *printerMock) Print(l1, l2 string) error {
	p.lines = append(p.lines, [2]string{l1, l2})
	return nil
}

func TestLcd1602(t *testing.T) {
	p := &printerMock{}
	l := &lcd1602{lcd: p, gate: hal.NewRefreshGate(0), keys: DefaultKeys}

	d, err := l.Display()
	require.NoError(t, err)
	cols, rows, ok := d.Text()
	assert.True(t, ok)
	assert.Equal(t, 16, cols)
	assert.Equal(t, 2, rows)

	require.NoError(t, l.ShowAndRefresh(context.Background(), d, frame))
	require.NoError(t, l.ShowAndRefresh(context.Background(), d, &view.Frame{Title: "Pasing"}))
	require.NoError(t, l.Shutdown())

	assert.Equal(t, [][2]string{
		{"Starnberg", "23:13+2 S 6 München Ost"},
		{"Pasing", ""},
		{"  Sleeping...", ""},
	}, p.lines)

	cfg, ok := l.Keys()
	assert.True(t, ok)
	assert.Equal(t, DefaultKeys, cfg)
}
