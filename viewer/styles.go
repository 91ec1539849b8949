package viewer

import (
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// colors
var (
	defaultTextColor = lipgloss.AdaptiveColor{Light: "#2c2b2f", Dark: "#d3cdd4"}
	subduedTextColor = lipgloss.AdaptiveColor{Light: "#454545", Dark: "#A49FA5"}

	// catpuccin theme colors
	red      = lipgloss.AdaptiveColor{Light: "#D2042D", Dark: "#f38ba8"}
	peach    = lipgloss.AdaptiveColor{Light: "#fe640b", Dark: "#fab387"}
	lavender = lipgloss.AdaptiveColor{Light: "#7287fd", Dark: "#b4befe"}
	mauve    = lipgloss.AdaptiveColor{Light: "#8839ef", Dark: "#cba6f7"}
	green    = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"}

	surface0 = lipgloss.AdaptiveColor{Light: "#ccd0da", Dark: "#313244"}
	subtext0 = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#a6adc8"}
)

const (
	ellipsis = "…"
	// widest a row key may render before it is truncated
	keyWidth = 24
	missing  = "-"
)

// Truncate shortens str to the width of style, less its horizontal padding
func Truncate(str string, style *lipgloss.Style) string {
	// Prevent text from exceeding column width
	textwidth := uint(style.GetWidth() - style.GetPaddingLeft() - style.GetPaddingRight())
	return truncate.StringWithTail(str, textwidth, ellipsis)
}

// printer formats numbers with English digit grouping
var printer = message.NewPrinter(language.English)

// formatNumber renders whole numbers without decimals and everything else with two
func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return missing
	case math.IsInf(v, 0):
		return printer.Sprint(v)
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return printer.Sprintf("%d", int64(v))
	default:
		return printer.Sprintf("%.2f", v)
	}
}

// formatPercent renders a percentage with two decimals
func formatPercent(v float64) string {
	if math.IsNaN(v) {
		return missing
	}
	return printer.Sprintf("%.2f%%", v)
}
