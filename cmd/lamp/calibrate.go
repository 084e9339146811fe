package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/lamp/pkg/controller"
	"github.com/gwillem/lamp/pkg/robot"
)

type CalibrateCommand struct {
	Identify  bool `long:"identify" description:"Wiggle every servo on the bus and ask which motor it is"`
	From      int  `long:"from" default:"1" description:"First servo ID to try with --identify"`
	To        int  `long:"to" default:"10" description:"Last servo ID to try with --identify"`
	SkipRange bool `long:"skip-range" description:"Keep the configured ranges of motion"`
}

func (c *CalibrateCommand) Execute(args []string) error {
	printHeader("Lamp Calibration")

	cfg, hw, err := openBus()
	if err != nil {
		return err
	}
	defer hw.Close()

	ctx := context.Background()

	if c.Identify {
		fmt.Println(subHeaderStyle.Render("━━━ Identify motors ━━━"))
		fmt.Println()
		if err := identifyMotors(ctx, hw, cfg, c.From, c.To); err != nil {
			return err
		}
		if err := saveConfig(cfg); err != nil {
			return err
		}
	}

	ctrl := controller.FromConfig(hw, nil, cfg, controller.Config{})
	if err := ctrl.UnlockAll(ctx).Err(); err != nil {
		fmt.Println(failStyle.Render(fmt.Sprintf("Warning: %v", err)))
	}

	// Rest pose
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Rest pose ━━━"))
	fmt.Println()
	waitForUser("Move the lamp to its rest pose. Every motor will read 0° there.")

	for _, name := range cfg.Names() {
		m, err := ctrl.Motor(name)
		if err != nil {
			return err
		}
		enc, err := m.EncodedAngle(ctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		mc := cfg.Motors[name]
		mc.Offset = restOffset(enc, mc.Reverse)
		cfg.Motors[name] = mc
		m.SetOffset(mc.Offset)
		fmt.Printf("  %-16s offset %7.2f°\n", name, mc.Offset.Deg())
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}

	// Range of motion
	if !c.SkipRange {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Range of motion ━━━"))
		fmt.Println("Move each joint to its minimum AND maximum positions.")
		fmt.Println()

		model := newRangeModel(ctrl, cfg.Names())
		p := tea.NewProgram(model)
		final, err := p.Run()
		if err != nil {
			return fmt.Errorf("run range recording: %w", err)
		}
		rm := final.(rangeModel)
		for _, name := range cfg.Names() {
			r, ok := rm.ranges[name]
			if !ok {
				fmt.Println(failStyle.Render(fmt.Sprintf("  %s: no readings, range unchanged", name)))
				continue
			}
			limits := r.constraint()
			if err := limits.Validate(); err != nil || r.width() == 0 {
				fmt.Println(failStyle.Render(fmt.Sprintf("  %s: unusable range %s, range unchanged", name, limits)))
				continue
			}
			mc := cfg.Motors[name]
			mc.Constraint = limits
			cfg.Motors[name] = mc
		}
		if err := saveConfig(cfg); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Calibration complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Verify with: " + headerStyle.Render("lamp checkup"))
	return nil
}

func saveConfig(cfg *robot.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.SaveTo(opts.Config)
}

// restOffset returns the offset that makes enc read as world angle 0.
func restOffset(enc robot.EncodedAngle, reverse bool) robot.Angle {
	deg := enc.Angle()
	if reverse {
		return -deg
	}
	return deg
}

// servoFrame returns the angle that a world-angle command is checked
// against when the motor sits at enc.
func servoFrame(cal robot.Calibration, enc robot.EncodedAngle) robot.Angle {
	return cal.FromWorld(cal.ToWorld(enc))
}

// identifyMotors wiggles every servo found on the bus and asks which motor
// it drives.
func identifyMotors(ctx context.Context, hw *robot.FeetechBus, cfg *robot.Config, from, to int) error {
	scanCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	found, err := hw.Scan(scanCtx, from, to)
	cancel()
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if len(found) == 0 {
		return fmt.Errorf("no servos with IDs %d-%d", from, to)
	}
	fmt.Printf("Found %d servo(s). Let's identify them...\n\n", len(found))

	remaining := cfg.Names()
	for _, s := range found {
		if len(remaining) == 0 {
			break
		}
		wiggle(ctx, hw, s)

		options := make([]huh.Option[string], 0, len(remaining)+1)
		for _, name := range remaining {
			options = append(options, huh.NewOption(string(name), string(name)))
		}
		options = append(options, huh.NewOption("Skip this servo", ""))

		var choice string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title(fmt.Sprintf("Which motor is servo %d?", s.ID)).
					Description("The servo that just wiggled").
					Options(options...).
					Value(&choice),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("identify: %w", err)
		}
		if choice == "" {
			continue
		}

		name := robot.MotorName(choice)
		mc := cfg.Motors[name]
		mc.ID = s.ID
		cfg.Motors[name] = mc
		remaining = without(remaining, name)
	}
	return nil
}

func without(names []robot.MotorName, name robot.MotorName) []robot.MotorName {
	out := make([]robot.MotorName, 0, len(names))
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// wiggle moves servo s a few ticks back and forth and releases it.
func wiggle(ctx context.Context, hw *robot.FeetechBus, s feetech.FoundServo) {
	const (
		amount   = 60
		settle   = 600 * time.Millisecond
		slowMove = 150
	)
	motion := robot.Motion{Speed: slowMove, Accel: robot.DefaultMotion.Accel}

	origin, err := hw.ReadPosition(ctx, s.ID)
	if err != nil {
		fmt.Printf("  Error reading servo %d: %v\n", s.ID, err)
		return
	}
	if err := hw.WriteTorque(ctx, s.ID, true); err != nil {
		fmt.Printf("  Error enabling servo %d: %v\n", s.ID, err)
		return
	}
	defer hw.WriteTorque(ctx, s.ID, false)

	fmt.Printf("\n  Wiggling servo %d...\n", s.ID)
	for _, ticks := range []int{origin + amount, origin - amount, origin} {
		if ticks < 0 || ticks >= robot.TicksPerRev {
			continue
		}
		hw.WritePosition(ctx, s.ID, ticks, motion)
		time.Sleep(settle)
	}
}

// angleRange is the observed sweep of one motor in its servo frame.
type angleRange struct {
	cur, min, max robot.Angle
}

func (r angleRange) constraint() robot.Constraint {
	return robot.Constraint{Min: r.min, Max: r.max}
}

func (r angleRange) width() robot.Angle {
	return r.max - r.min
}

type rangeModel struct {
	ctrl     *controller.Controller
	motors   []robot.MotorName
	ranges   map[robot.MotorName]angleRange
	quitting bool
}

type tickMsg time.Time

func newRangeModel(ctrl *controller.Controller, motors []robot.MotorName) rangeModel {
	return rangeModel{
		ctrl:   ctrl,
		motors: motors,
		ranges: make(map[robot.MotorName]angleRange),
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m rangeModel) Init() tea.Cmd {
	return tick()
}

// observe folds one reading into the recorded range of name.
func (m rangeModel) observe(name robot.MotorName, a robot.Angle) {
	r, ok := m.ranges[name]
	if !ok {
		m.ranges[name] = angleRange{cur: a, min: a, max: a}
		return
	}
	r.cur = a
	r.min = min(r.min, a)
	r.max = max(r.max, a)
	m.ranges[name] = r
}

func (m rangeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for _, name := range m.motors {
			motor, err := m.ctrl.Motor(name)
			if err != nil {
				continue
			}
			enc, err := motor.EncodedAngle(ctx)
			if err != nil {
				continue
			}
			m.observe(name, servoFrame(motor.Calibration(), enc))
		}
		return m, tick()
	}

	return m, nil
}

func (m rangeModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.motors))
	widths := make([]robot.Angle, 0, len(m.motors))
	for _, name := range m.motors {
		r := m.ranges[name]
		widths = append(widths, r.width())
		rows = append(rows, []string{
			string(name),
			fmt.Sprintf("%.1f°", r.cur.Deg()),
			fmt.Sprintf("%.1f°", r.min.Deg()),
			fmt.Sprintf("%.1f°", r.max.Deg()),
			fmt.Sprintf("%.1f°", r.width().Deg()),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(widths) && widths[row] > 45 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
