// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/model"
)

// FormatCompact formats a count with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M", 1234567890 -> "1.2B"
func FormatCompact(v float64) string {
	n := int64(v)
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatCount renders a vehicle count with comma separators.
func FormatCount(v float64) string {
	return model.FormatCount(v)
}

// FormatDuration formats seconds into a human-readable duration.
// e.g., 3725 -> "1h 2m", 125 -> "2m", 45 -> "45s"
func FormatDuration(secs int64) string {
	if secs <= 0 {
		return "0s"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatNumber adds comma thousands separators to n.
func FormatNumber(n int64) string {
	return model.FormatNumber(n)
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatDelta formats the relative change from previous to current,
// e.g. "+12.5%". An empty string means there is nothing to compare against.
func FormatDelta(current, previous float64) string {
	if previous == 0 {
		return ""
	}
	delta := (current - previous) / previous
	if delta >= 0 {
		return "+" + FormatPercent(delta)
	}
	return "-" + FormatPercent(-delta)
}

// FormatMonth renders a date as "2021-Ene".
func FormatMonth(t time.Time) string {
	return fmt.Sprintf("%d-%s", t.Year(), catalog.MonthAbbrev(t.Month()))
}
