// Package render draws room capacity readings for the agent terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/wirechat-presence/internal/core"
)

const barWidth = 20

var (
	colorOK     = lipgloss.Color("#22c55e")
	colorBusy   = lipgloss.Color("#d97706")
	colorFull   = lipgloss.Color("#ef4444")
	colorDimmed = lipgloss.Color("#9ca3af")

	styleRoom = lipgloss.NewStyle().
			Bold(true).
			Width(10)

	styleCount = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f9fafb"))

	styleDimmed = lipgloss.NewStyle().
			Foreground(colorDimmed)
)

// Terminal writes one capacity line per accepted reading.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminal builds a renderer writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

// RenderCapacity implements core.Renderer.
func (t *Terminal) RenderCapacity(roomID int64, reading core.CapacityReading) {
	line := Line(roomID, reading)

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.out, line)
}

// Line formats a reading as "room 7  ███░░░  3/10  30%". Rooms without a
// known limit show the count only.
func Line(roomID int64, reading core.CapacityReading) string {
	room := styleRoom.Render(fmt.Sprintf("room %d", roomID))
	if reading.MaxParticipants <= 0 {
		count := styleCount.Render(fmt.Sprintf("%d", reading.CurrentParticipants))
		return room + "  " + count + styleDimmed.Render(" participants")
	}

	pct := reading.Percentage()
	bar := renderBar(pct/100, barWidth, barColor(pct))
	count := styleCount.Render(fmt.Sprintf("%d/%d", reading.CurrentParticipants, reading.MaxParticipants))
	return fmt.Sprintf("%s  %s  %s  %s", room, bar, count, styleDimmed.Render(fmt.Sprintf("%.0f%%", pct)))
}

func barColor(pct float64) lipgloss.Color {
	switch {
	case pct >= 100:
		return colorFull
	case pct >= 75:
		return colorBusy
	default:
		return colorOK
	}
}

func renderBar(pct float64, width int, color lipgloss.Color) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))
	empty := width - filled
	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return lipgloss.NewStyle().Foreground(color).Render(bar)
}

// Multi fans a reading out to several renderers in order.
type Multi []core.Renderer

// RenderCapacity implements core.Renderer.
func (m Multi) RenderCapacity(roomID int64, reading core.CapacityReading) {
	for _, r := range m {
		if r != nil {
			r.RenderCapacity(roomID, reading)
		}
	}
}
