package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/EmpoweredVote/wahlkreis/internal/chart"
)

var labelStyle = lipgloss.NewStyle().Width(24).Align(lipgloss.Left)

// renderBars prints one colored bar per row, scaled to the largest value.
func renderBars(w io.Writer, rows []chart.Row, palette chart.Palette, width int) {
	var max float64
	for _, r := range rows {
		max = math.Max(max, r.Value)
	}
	for _, r := range rows {
		n := 0
		if max > 0 {
			n = int(math.Round(r.Value / max * float64(width)))
		}
		bar := lipgloss.NewStyle().
			Foreground(lipgloss.Color(palette.Color(r.Label))).
			Render(strings.Repeat("█", n))
		fmt.Fprintf(w, "%s %s %s\n", labelStyle.Render(truncate(r.Label, 24)), bar, fmt.Sprintf("%.2f %%", r.Value))
	}
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}

// wrap breaks text at spaces so no line exceeds width.
func wrap(text string, width int) string {
	var b strings.Builder
	line := 0
	for i, word := range strings.Fields(text) {
		wl := len([]rune(word))
		if i > 0 {
			if line+1+wl > width {
				b.WriteByte('\n')
				line = 0
			} else {
				b.WriteByte(' ')
				line++
			}
		}
		b.WriteString(word)
		line += wl
	}
	return b.String()
}
