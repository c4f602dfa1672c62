package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// AttemptMeter renders bounded attempt/round counters as an ASCII bar.
type AttemptMeter struct {
	current     int
	total       int
	width       int
	enableColor bool
}

// NewAttemptMeter creates a meter for total attempts rendered width characters wide.
func NewAttemptMeter(total, width int, enableColor bool) *AttemptMeter {
	if width < 1 {
		width = 10
	}
	return &AttemptMeter{total: total, width: width, enableColor: enableColor}
}

// Update sets the current attempt
func (m *AttemptMeter) Update(current int) {
	m.current = current
}

// Percentage returns the progress percentage (0-100)
func (m *AttemptMeter) Percentage() int {
	if m.total <= 0 {
		return 0
	}
	perc := (m.current * 100) / m.total
	if perc > 100 {
		perc = 100
	}
	if perc < 0 {
		perc = 0
	}
	return perc
}

// Render generates the bar, e.g. "[====      ] 2/5 (40%)".
// The last attempt renders yellow since it is the final chance.
func (m *AttemptMeter) Render() string {
	perc := m.Percentage()
	filled := (perc * m.width) / 100

	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(strings.Repeat("=", filled))
	sb.WriteString(strings.Repeat(" ", m.width-filled))
	sb.WriteByte(']')

	result := fmt.Sprintf("%s %d/%d (%d%%)", sb.String(), m.current, m.total, perc)
	if !m.enableColor {
		return result
	}
	if perc >= 100 {
		return color.New(color.FgYellow).Sprint(result)
	}
	return color.New(color.FgCyan).Sprint(result)
}
