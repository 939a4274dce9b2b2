package cmd

import (
	"github.com/fatih/color"

	"github.com/kastheco/monothematic/internal/check"
)

// Styled text for terminal output. fatih/color honours NO_COLOR and disables
// itself when stdout is not a terminal.

func successText(format string, a ...any) string {
	return color.New(color.FgGreen).Sprintf(format, a...)
}

func warnText(format string, a ...any) string {
	return color.New(color.FgYellow).Sprintf(format, a...)
}

func errorText(format string, a ...any) string {
	return color.New(color.FgRed).Sprintf(format, a...)
}

func mutedText(format string, a ...any) string {
	return color.New(color.FgHiBlack).Sprintf(format, a...)
}

func headingText(format string, a ...any) string {
	return color.New(color.FgMagenta, color.Bold).Sprintf(format, a...)
}

// statusMark renders the marker shown before an audited item.
func statusMark(s check.ItemStatus) string {
	switch s {
	case check.StatusOK:
		return successText("✓")
	case check.StatusWarn:
		return warnText("!")
	default:
		return errorText("✗")
	}
}
