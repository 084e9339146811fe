package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/lamp/internal/log"
	"github.com/gwillem/lamp/pkg/controller"
	"github.com/gwillem/lamp/pkg/eventbus"
	"github.com/gwillem/lamp/pkg/robot"
)

type MonitorCommand struct {
	Interval time.Duration `long:"interval" default:"100ms" description:"Sampling period"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 3 // readout box
	borderSize   = 2 // chart border
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type anglesMsg map[robot.MotorName]robot.Angle

type monitorModel struct {
	updates    <-chan map[robot.MotorName]robot.Angle
	motors     []robot.MotorName
	interval   time.Duration
	chart      *streamlinechart.Model
	width      int
	height     int
	quitting   bool
	lastAngles map[robot.MotorName]robot.Angle
}

func waitForAngles(ch <-chan map[robot.MotorName]robot.Angle) tea.Cmd {
	return func() tea.Msg {
		return anglesMsg(<-ch)
	}
}

func newMonitorModel(updates <-chan map[robot.MotorName]robot.Angle, motors []robot.MotorName, interval time.Duration) monitorModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-180, 180),
	)
	for _, name := range motors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColor(name)))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}
	return monitorModel{
		updates:  updates,
		motors:   motors,
		interval: interval,
		chart:    &chart,
	}
}

// hasMovement reports whether any angle changed since the last update.
func (m *monitorModel) hasMovement(angles map[robot.MotorName]robot.Angle) bool {
	if m.lastAngles == nil {
		return true
	}
	for name, a := range angles {
		if last, ok := m.lastAngles[name]; !ok || a != last {
			return true
		}
	}
	return false
}

func (m *monitorModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m monitorModel) Init() tea.Cmd {
	return waitForAngles(m.updates)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case anglesMsg:
		angles := map[robot.MotorName]robot.Angle(msg)
		if m.hasMovement(angles) {
			for name, a := range angles {
				m.chart.PushDataSet(string(name), a.Deg())
			}
			m.chart.DrawAll()
			m.lastAngles = angles
		}
		return m, waitForAngles(m.updates)
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Lamp Monitor"))
	sb.WriteString(fmt.Sprintf(" - every %s", m.interval))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(m.renderLegend())
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(m.readout() + "   press 'q' to quit"))
	sb.WriteString("\n")

	return sb.String()
}

func (m monitorModel) renderLegend() string {
	items := make([]string, 0, len(m.motors))
	for _, name := range m.motors {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColor(name))).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(name))
	}
	return strings.Join(items, "  ")
}

// readout lists the latest angle of every motor; unreadable motors show a
// dash.
func (m monitorModel) readout() string {
	parts := make([]string, 0, len(m.motors))
	for _, name := range m.motors {
		if a, ok := m.lastAngles[name]; ok {
			parts = append(parts, fmt.Sprintf("%s %.1f°", name, a.Deg()))
		} else {
			parts = append(parts, fmt.Sprintf("%s -", name))
		}
	}
	return strings.Join(parts, "  ")
}

func (c *MonitorCommand) Execute(args []string) error {
	cfg, hw, err := openBus()
	if err != nil {
		return err
	}
	defer hw.Close()

	bus := eventbus.New()
	defer func() {
		bus.Close()
		bus.Wait()
	}()

	updates := make(chan map[robot.MotorName]robot.Angle, 1)
	bus.Subscribe(eventbus.TopicAngles, func(_ context.Context, ev eventbus.Event) error {
		angles, err := eventbus.Arg[map[robot.MotorName]robot.Angle](ev, 0)
		if err != nil {
			return err
		}
		// Keep only the newest snapshot when the UI falls behind.
		select {
		case updates <- angles:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- angles:
			default:
			}
		}
		return nil
	})

	ctrl := controller.FromConfig(hw, bus, cfg, controller.Config{Interval: c.Interval})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := ctrl.Run(ctx); err != nil && err != context.Canceled {
			log.Error("monitor stopped", "error", err)
		}
	}()

	p := tea.NewProgram(newMonitorModel(updates, cfg.Names(), c.Interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run monitor: %w", err)
	}
	return nil
}
