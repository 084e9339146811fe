package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/lamp/pkg/controller"
)

type CheckupCommand struct {
	Timeout time.Duration `long:"timeout" default:"5s" description:"Give up after this long"`
}

func (c *CheckupCommand) Execute(args []string) error {
	printHeader("Lamp Checkup")

	cfg, hw, err := openBus()
	if err != nil {
		return err
	}
	defer hw.Close()

	ctrl := controller.FromConfig(hw, nil, cfg, controller.Config{})

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	status := ctrl.CheckAll(ctx)
	angles := ctrl.Snapshot(ctx)

	failed := 0
	rows := make([][]string, 0, len(status))
	for _, name := range cfg.Names() {
		ok := status[name]
		state := "ok"
		if !ok {
			state = "FAIL"
			failed++
		}
		angle := "-"
		if a, ok := angles[name]; ok {
			angle = fmt.Sprintf("%.1f°", a.Deg())
		}
		rows = append(rows, []string{
			string(name),
			fmt.Sprintf("%d", cfg.Motors[name].ID),
			angle,
			cfg.Motors[name].Constraint.String(),
			state,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "ID", "Angle", "Range", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 4:
				if row >= 0 && row < len(rows) && rows[row][4] == "ok" {
					return successStyle.Padding(0, 1)
				}
				return failStyle.Padding(0, 1)
			default:
				return tableCellStyle
			}
		})
	fmt.Println(t.Render())
	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%d of %d motors failed the checkup", failed, len(rows))
	}
	fmt.Println(successStyle.Render("All motors ready."))
	return nil
}
