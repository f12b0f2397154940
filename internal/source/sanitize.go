package source

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrBadYear is returned when a year cell cannot form a date.
var ErrBadYear = errors.New("invalid year")

// CoerceCount strips every character other than digits and '.', then parses
// what is left. Anything unparseable becomes 0. clean reports whether the cell
// was already a plain number.
func CoerceCount(cell string) (v float64, clean bool) {
	trimmed := strings.TrimSpace(cell)
	stripped := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, trimmed)

	v, err := strconv.ParseFloat(stripped, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, stripped == trimmed
}

// NormalizeYear trims the year cell and returns its token and numeric value.
// "2021.0" normalizes to "2021".
func NormalizeYear(cell string) (string, int, error) {
	s := strings.TrimSpace(cell)
	if y, err := strconv.Atoi(s); err == nil && y >= 1 && y <= 9999 {
		return strconv.Itoa(y), y, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && f >= 1 && f <= 9999 {
		y := int(f)
		return strconv.Itoa(y), y, nil
	}
	return "", 0, fmt.Errorf("%w: %q", ErrBadYear, cell)
}
