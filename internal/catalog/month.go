package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownMonth    = errors.New("unknown month name")
)

var monthNames = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthFromName maps a Spanish month name to 1..12. Matching ignores case and
// surrounding whitespace.
func MonthFromName(name string) (time.Month, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, m := range monthNames {
		if n == m {
			return time.Month(i + 1), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMonth, name)
}

// ParseMonth accepts a month number 1..12 or a Spanish month name.
func ParseMonth(s string) (time.Month, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("%w: %d", ErrUnknownMonth, n)
		}
		return time.Month(n), nil
	}
	return MonthFromName(s)
}

// MonthName returns the lowercase Spanish name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// MonthDisplayName returns the uppercase display form, e.g. "SEPTIEMBRE".
func MonthDisplayName(m time.Month) string {
	return strings.ToUpper(MonthName(m))
}

// MonthAbbrev returns a three-letter label for chart axes, e.g. "Sep".
func MonthAbbrev(m time.Month) string {
	n := MonthName(m)
	if n == "" {
		return ""
	}
	return strings.ToUpper(n[:1]) + n[1:3]
}
