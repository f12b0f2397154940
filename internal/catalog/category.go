// Package catalog defines the closed set of vehicle categories and the Spanish
// month names used by the traffic-count dataset.
package catalog

import (
	"fmt"
	"strings"
)

// Category is one vehicle class in the fixed enumeration. The zero value is Autos.
type Category int

// Categories in catalog order. Tie-breaking and default selections follow this order.
const (
	Autos Category = iota
	Motos
	Autobus2
	Autobus3
	Autobus4
	Camion2
	Camion3
	Camion4
	Camion5
	Camion6
	Camion7
	Camion8
	Camion9
	Triciclos

	numCategories
)

type entry struct {
	code  string // raw column header
	label string // display label
	short string // compact label for narrow charts
}

var entries = [numCategories]entry{
	Autos:     {"AUTOS", "Autos", "Autos"},
	Motos:     {"MOTOS", "Motos", "Motos"},
	Autobus2:  {"AUTOBUS DE 2 EJES", "Autobús (2 ejes)", "Bus2"},
	Autobus3:  {"AUTOBUS DE 3 EJES", "Autobús (3 ejes)", "Bus3"},
	Autobus4:  {"AUTOBUS DE 4 EJES", "Autobús (4 ejes)", "Bus4"},
	Camion2:   {"CAMIONES DE 2 EJES", "Camión (2 ejes)", "Cam2"},
	Camion3:   {"CAMIONES DE 3 EJES", "Camión (3 ejes)", "Cam3"},
	Camion4:   {"CAMIONES DE 4 EJES", "Camión (4 ejes)", "Cam4"},
	Camion5:   {"CAMIONES DE 5 EJES", "Camión (5 ejes)", "Cam5"},
	Camion6:   {"CAMIONES DE 6 EJES", "Camión (6 ejes)", "Cam6"},
	Camion7:   {"CAMIONES DE 7 EJES", "Camión (7 ejes)", "Cam7"},
	Camion8:   {"CAMIONES DE 8 EJES", "Camión (8 ejes)", "Cam8"},
	Camion9:   {"CAMIONES DE 9 EJES", "Camión (9 ejes)", "Cam9"},
	Triciclos: {"TRICICLOS", "Triciclos", "Tric"},
}

var byCode = func() map[string]Category {
	m := make(map[string]Category, numCategories)
	for i, e := range entries {
		m[e.code] = Category(i)
	}
	return m
}()

// Count is the number of categories in the catalog.
const Count = int(numCategories)

// All returns every category in catalog order.
func All() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// Defaults returns the initial distribution selection: the first five categories.
func Defaults() []Category {
	return All()[:5]
}

// Valid reports whether c is a member of the catalog.
func (c Category) Valid() bool {
	return c >= 0 && c < numCategories
}

func (c Category) entry() entry {
	if !c.Valid() {
		panic(fmt.Sprintf("catalog: category %d out of range", int(c)))
	}
	return entries[c]
}

// Code returns the raw column identifier, e.g. "AUTOBUS DE 2 EJES".
func (c Category) Code() string { return c.entry().code }

// Label returns the display label, e.g. "Autobús (2 ejes)".
func (c Category) Label() string { return c.entry().label }

// Short returns a compact label for axis ticks.
func (c Category) Short() string { return c.entry().short }

// String implements fmt.Stringer.
func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return entries[c].code
}

// MarshalText encodes the category as its column code.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("catalog: invalid category %d", int(c))
	}
	return []byte(entries[c].code), nil
}

// UnmarshalText decodes a category code.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Lookup returns the category for an exact column code.
func Lookup(code string) (Category, bool) {
	c, ok := byCode[code]
	return c, ok
}

// MustLookup is Lookup for codes that come from the program itself.
// An unknown code is a defect.
func MustLookup(code string) Category {
	c, ok := byCode[code]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown category code %q", code))
	}
	return c
}

// Parse resolves user input to a category. It accepts the column code in any
// case, the display label, or the short label.
func Parse(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if c, ok := byCode[strings.ToUpper(s)]; ok {
		return c, nil
	}
	for i, e := range entries {
		if strings.EqualFold(s, e.label) || strings.EqualFold(s, e.short) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// ParseList resolves a comma-separated list of categories. An empty string
// yields nil. Duplicates are dropped, keeping the first occurrence.
func ParseList(s string) ([]Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	seen := make(map[Category]struct{})
	var out []Category
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := Parse(part)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// Codes returns the column codes for cs.
func Codes(cs []Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Code()
	}
	return out
}
