package board

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/depmon/departure-board/internal/hal"
	"github.com/depmon/departure-board/internal/view"
	log "github.com/sirupsen/logrus"
)

const (
	// a 296x128 panel in 7x13 cells
	simulatorCols = 42
	simulatorRows = 9

	simulatorBattery    = 3.6
	simulatorFrameFloor = time.Second
)

func init() {
	hal.Default.Register("simulator", newSimulator)
}

type frameMsg struct{ frame *view.Frame }

type statusMsg struct {
	on    bool
	color uint32
}

// simulator shows frames in the terminal and reads keys from the keyboard.
type simulator struct {
	program *tea.Program
	gate    *hal.RefreshGate

	keys     chan hal.Key
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

func newSimulator(o hal.Options) (hal.Capability, error) {
	interval := o.MinFrameInterval
	if interval < simulatorFrameFloor {
		interval = simulatorFrameFloor
	}

	s := newSimulatorState(interval)
	s.program = tea.NewProgram(panel{onKey: s.key}, tea.WithAltScreen())
	go func() {
		defer close(s.done)
		if _, err := s.program.Run(); err != nil {
			log.WithError(err).Error("Simulator display stopped")
		}
		s.stop()
	}()
	return s, nil
}

func newSimulatorState(interval time.Duration) *simulator {
	return &simulator{
		gate: hal.NewRefreshGate(interval),
		keys: make(chan hal.Key, 16),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (s *simulator) send(msg tea.Msg) {
	if s.program != nil {
		s.program.Send(msg)
	}
}

func (s *simulator) key(k hal.Key) {
	if k == hal.KeyQuit {
		s.stop()
		return
	}
	select {
	case s.keys <- k:
	default:
	}
}

func (s *simulator) stop() {
	s.quitOnce.Do(func() { close(s.quit) })
}

func (s *simulator) quitting() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// Poll reports the quit key for as long as it has been pressed, so it
// survives Drain.
func (s *simulator) Poll() (hal.Key, bool) {
	if s.quitting() {
		return hal.KeyQuit, true
	}
	select {
	case k := <-s.keys:
		return k, true
	default:
		return 0, false
	}
}

func (s *simulator) Drain() {
	for {
		select {
		case <-s.keys:
		default:
			return
		}
	}
}

func (s *simulator) Display() (hal.Display, error) {
	return textDisplay{cols: simulatorCols, rows: simulatorRows}, nil
}

func (s *simulator) ShowAndRefresh(ctx context.Context, _ hal.Display, f *view.Frame) error {
	if err := s.gate.Wait(ctx); err != nil {
		return err
	}
	s.send(frameMsg{frame: f.Clone()})
	return nil
}

func (s *simulator) BatteryLevel() float64 {
	return simulatorBattery
}

func (s *simulator) SetStatus(on bool, color uint32) {
	s.send(statusMsg{on: on, color: color})
}

// Shutdown waits for the quit key; the simulator cannot power off.
func (s *simulator) Shutdown() error {
	log.Info("Shut down, press q to leave the simulator")
	s.send(statusMsg{})
	<-s.quit
	return nil
}

func (s *simulator) Sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-s.quit:
	}
}

func (s *simulator) Keys() (hal.KeyConfig, bool) {
	return hal.KeyConfig{}, false
}

func (s *simulator) ResetIfNeeded() {}

func (s *simulator) Close() error {
	s.stop()
	if s.program != nil {
		s.program.Quit()
		<-s.done
	}
	return nil
}

// keyFor maps keyboard input to board keys.
func keyFor(msg tea.KeyMsg) (hal.Key, bool) {
	switch msg.String() {
	case "up", "pgup", "k":
		return hal.KeyUp, true
	case "down", "pgdown", "j":
		return hal.KeyDown, true
	case "left", "h":
		return hal.KeyLeft, true
	case "right", "l":
		return hal.KeyRight, true
	case "esc", "q", "ctrl+c":
		return hal.KeyQuit, true
	}
	return 0, false
}

var (
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Width(simulatorCols).Height(simulatorRows)
	titleStyle  = lipgloss.NewStyle().Bold(true).Width(simulatorCols).Align(lipgloss.Center)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// panel is the bubbletea model of the simulated display.
type panel struct {
	frame    *view.Frame
	statusOn bool
	status   uint32
	onKey    func(hal.Key)
}

func (p panel) Init() tea.Cmd {
	return nil
}

func (p panel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		p.frame = msg.frame
	case statusMsg:
		p.statusOn, p.status = msg.on, msg.color
	case tea.KeyMsg:
		k, ok := keyFor(msg)
		if !ok {
			return p, nil
		}
		if p.onKey != nil {
			p.onKey(k)
		}
		if k == hal.KeyQuit {
			return p, tea.Quit
		}
	}
	return p, nil
}

func (p panel) View() string {
	var b strings.Builder
	if p.frame == nil {
		b.WriteString(titleStyle.Render("..."))
	} else {
		b.WriteString(titleStyle.Render(p.frame.Title))
		b.WriteString("\n")
		b.WriteString(strings.Repeat("─", simulatorCols))
		rows := view.RowText(p.frame.Rows)
		for i := 0; i < simulatorRows-4; i++ {
			b.WriteString("\n")
			if i < len(rows) {
				b.WriteString(cutCols(rows[i], simulatorCols))
			}
		}
		b.WriteString("\n")
		b.WriteString(footerStyle.Render(cutCols(p.pageFooter(), simulatorCols)))
	}

	return panelStyle.Render(b.String()) + "\n" + p.statusLine() + "\n" +
		helpStyle.Render("←/→ station  ↑/↓ page  q quit")
}

func (p panel) pageFooter() string {
	if p.frame.Pages > 1 {
		return fmt.Sprintf("%s  %d/%d", p.frame.Footer, p.frame.Page, p.frame.Pages)
	}
	return p.frame.Footer
}

func (p panel) statusLine() string {
	if !p.statusOn {
		return "○"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%06x", p.status))).Render("●")
}

func cutCols(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
