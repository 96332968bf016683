package render

import (
	"fmt"
	"math"
	"strings"
)

// PrettyDuration formats a millisecond duration as e.g. "1s 200ms" or
// "2m 5s", falling back to bare milliseconds under one second.
func PrettyDuration(ms float64) string {
	total := int64(math.Round(ms))
	if total < 1000 {
		return fmt.Sprintf("%dms", total)
	}

	minutes := total / 60000
	rem := total % 60000
	seconds := rem / 1000
	millis := rem % 1000

	var b strings.Builder

	if minutes > 0 {
		fmt.Fprintf(&b, "%dm ", minutes)
	}

	fmt.Fprintf(&b, "%ds", seconds)

	if millis > 0 {
		fmt.Fprintf(&b, " %dms", millis)
	}

	return b.String()
}
