package churn

import (
	"fmt"
	"math"
	"strings"
)

// RiskLevel buckets a churn probability.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

const (
	// MediumRiskThreshold is the lowest probability classified Medium.
	MediumRiskThreshold = 0.35

	// HighRiskThreshold is the lowest probability classified High.
	HighRiskThreshold = 0.65

	// ChurnThreshold is the lowest probability counted as predicted churn.
	ChurnThreshold = 0.5
)

// Classify returns the risk level for probability p.
func Classify(p float64) RiskLevel {
	switch {
	case p < MediumRiskThreshold:
		return RiskLow
	case p < HighRiskThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// PredictedChurn reports whether p counts as a churn prediction.
func PredictedChurn(p float64) bool {
	return p >= ChurnThreshold
}

// ParseRiskLevel maps a stored status string to a RiskLevel. Matching is case
// insensitive; anything unrecognised is Low.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RiskHigh
	case "medium":
		return RiskMedium
	default:
		return RiskLow
	}
}

// Badge is the human label for a risk level, e.g. "High Risk".
func Badge(level RiskLevel) string {
	return fmt.Sprintf("%s Risk", ParseRiskLevel(string(level)))
}

// Band colors shared by gauges and badges.
const (
	ColorLow    = "#25A777"
	ColorMedium = "#F59F0A"
	ColorHigh   = "#EF4343"
)

// Color returns the band color for a risk level.
func (l RiskLevel) Color() string {
	switch l {
	case RiskHigh:
		return ColorHigh
	case RiskMedium:
		return ColorMedium
	default:
		return ColorLow
	}
}

// GaugeReading is a probability prepared for display.
type GaugeReading struct {
	// Percent is the clamped probability as a rounded whole percentage.
	Percent int `json:"percent"`

	// Fraction is the clamped probability in [0, 1].
	Fraction float64 `json:"fraction"`

	// Color is the band color for Fraction.
	Color string `json:"color"`
}

// Gauge clamps p to [0, 1] and returns its display reading.
func Gauge(p float64) GaugeReading {
	if math.IsNaN(p) {
		p = 0
	}
	f := math.Min(math.Max(p, 0), 1)
	return GaugeReading{
		Percent:  int(math.Round(f * 100)),
		Fraction: f,
		Color:    Classify(f).Color(),
	}
}
