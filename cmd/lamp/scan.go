package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/lamp/pkg/robot"
)

type ScanCommand struct {
	From int `long:"from" default:"1" description:"First servo ID to try"`
	To   int `long:"to" default:"10" description:"Last servo ID to try"`
}

type portScan struct {
	port   string
	servos []feetech.FoundServo
}

func (c *ScanCommand) Execute(args []string) error {
	printHeader("Lamp Scan")

	if c.From < 0 || c.To > 253 || c.From > c.To {
		return fmt.Errorf("invalid ID range %d-%d", c.From, c.To)
	}

	found := scanPorts(c.From, c.To)
	if len(found) == 0 {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the lamp is connected and powered on.")
		return nil
	}

	rows := make([][]string, 0)
	for _, p := range found {
		for _, s := range p.servos {
			rows = append(rows, []string{p.port, fmt.Sprintf("%d", s.ID), fmt.Sprintf("%v", s.Model)})
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Port", "ID", "Model").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return tableMotorStyle
			}
			return tableCellStyle
		})
	fmt.Println(t.Render())
	fmt.Println()
	fmt.Println("Assign IDs to motors with: " + headerStyle.Render("lamp calibrate --identify"))
	return nil
}

// scanPorts checks every serial port for servos with IDs in [from, to].
func scanPorts(from, to int) []portScan {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Println(failStyle.Render(fmt.Sprintf("Error listing ports: %v", err)))
		return nil
	}

	var found []portScan
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		servos, err := scanPort(port, from, to)
		if err != nil || len(servos) == 0 {
			fmt.Println(dimStyle.Render("  " + port + ": no servos"))
			continue
		}
		fmt.Printf("  Found %d servo(s) on %s\n", len(servos), port)
		found = append(found, portScan{port: port, servos: servos})
	}
	fmt.Println()
	return found
}

func scanPort(port string, from, to int) ([]feetech.FoundServo, error) {
	baud := opts.BaudRate
	if baud <= 0 {
		baud = robot.DefaultBaudRate
	}
	hw, err := robot.OpenFeetech(port, baud)
	if err != nil {
		return nil, err
	}
	defer hw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return hw.Scan(ctx, from, to)
}
