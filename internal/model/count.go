package model

import (
	"math"
	"strconv"
	"strings"
)

// FormatCount renders a vehicle count with comma separators. Fractions are
// truncated toward zero, so 1234.9 -> "1,234". NaN and infinities read "N/A".
func FormatCount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	return FormatNumber(int64(v))
}

// FormatNumber adds comma thousands separators to n.
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
