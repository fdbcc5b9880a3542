package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Overlay draws fg over bg with its top-left corner at cell (x, y). Lines
// of fg that fall outside bg are dropped.
func Overlay(bg, fg string, x, y int) string {
	if fg == "" {
		return bg
	}
	bgLines := strings.Split(bg, "\n")
	for i, line := range strings.Split(fg, "\n") {
		row := y + i
		if row < 0 || row >= len(bgLines) {
			continue
		}
		base := bgLines[row]
		if pad := x - ansi.StringWidth(base); pad > 0 {
			base += strings.Repeat(" ", pad)
		}
		left := ansi.Truncate(base, x, "")
		right := ansi.TruncateLeft(base, x+ansi.StringWidth(line), "")
		bgLines[row] = left + line + right
	}
	return strings.Join(bgLines, "\n")
}
