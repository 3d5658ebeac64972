package cliui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/papercomputeco/churnsense/pkg/churn"
)

const (
	gaugeFull  = "█"
	gaugeEmpty = "░"
)

// RiskBadge renders the risk label of level on its band color.
func RiskBadge(level churn.RiskLevel) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(level.Color())).
		Bold(true).
		Padding(0, 1).
		Render(churn.Badge(level))
}

// RiskText renders the bare level name in its band color.
func RiskText(level churn.RiskLevel) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(level.Color())).Render(string(level))
}

// GaugeBar renders probability p as a horizontal bar of width cells followed
// by its percentage, colored by risk band.
func GaugeBar(p float64, width int) string {
	if width < 1 {
		width = 1
	}

	g := churn.Gauge(p)
	filled := int(g.Fraction*float64(width) + 0.5)

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(g.Color))
	return fmt.Sprintf("%s%s %s",
		style.Render(strings.Repeat(gaugeFull, filled)),
		DimStyle.Render(strings.Repeat(gaugeEmpty, width-filled)),
		style.Bold(true).Render(fmt.Sprintf("%d%%", g.Percent)),
	)
}
