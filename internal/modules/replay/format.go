package replay

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
)

// FormatElapsed renders active minutes as "Xh Ym", always including hours
func FormatElapsed(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// FormatHands renders a hand count for tooltips
func FormatHands(n int) string {
	if n == 1 {
		return "1 hand"
	}
	return fmt.Sprintf("%d hands", n)
}

// FormatAxisValue renders an X-axis tick for the given axis mode
func FormatAxisValue(v int, axis AxisMode) string {
	if axis == AxisHands {
		return strconv.Itoa(v)
	}
	return FormatElapsed(v)
}

// formatChips renders a signed chip amount with thousands separators
func formatChips(v int64) string {
	return humanize.Comma(v)
}
