package source

import (
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/model"
)

// Identifying columns of the raw dataset.
const (
	ColStation = "NOMBRE"
	ColKind    = "TIPO"
	ColYear    = "AÑO"
	ColMonth   = "MES"
)

// rawRow binds one CSV line by header name. Count cells stay strings so that
// sanitizing happens in one place.
type rawRow struct {
	Station string `csv:"NOMBRE"`
	Kind    string `csv:"TIPO"`
	Year    string `csv:"AÑO"`
	Month   string `csv:"MES"`

	Autos     string `csv:"AUTOS"`
	Motos     string `csv:"MOTOS"`
	Autobus2  string `csv:"AUTOBUS DE 2 EJES"`
	Autobus3  string `csv:"AUTOBUS DE 3 EJES"`
	Autobus4  string `csv:"AUTOBUS DE 4 EJES"`
	Camion2   string `csv:"CAMIONES DE 2 EJES"`
	Camion3   string `csv:"CAMIONES DE 3 EJES"`
	Camion4   string `csv:"CAMIONES DE 4 EJES"`
	Camion5   string `csv:"CAMIONES DE 5 EJES"`
	Camion6   string `csv:"CAMIONES DE 6 EJES"`
	Camion7   string `csv:"CAMIONES DE 7 EJES"`
	Camion8   string `csv:"CAMIONES DE 8 EJES"`
	Camion9   string `csv:"CAMIONES DE 9 EJES"`
	Triciclos string `csv:"TRICICLOS"`
}

// cells returns the count cells in catalog order.
func (r *rawRow) cells() [catalog.Count]string {
	return [catalog.Count]string{
		catalog.Autos:     r.Autos,
		catalog.Motos:     r.Motos,
		catalog.Autobus2:  r.Autobus2,
		catalog.Autobus3:  r.Autobus3,
		catalog.Autobus4:  r.Autobus4,
		catalog.Camion2:   r.Camion2,
		catalog.Camion3:   r.Camion3,
		catalog.Camion4:   r.Camion4,
		catalog.Camion5:   r.Camion5,
		catalog.Camion6:   r.Camion6,
		catalog.Camion7:   r.Camion7,
		catalog.Camion8:   r.Camion8,
		catalog.Camion9:   r.Camion9,
		catalog.Triciclos: r.Triciclos,
	}
}

// Options controls how raw files are decoded.
type Options struct {
	Encoding  string // "latin-1", "windows-1252" or "utf-8"
	Delimiter rune
}

// DefaultOptions matches the published dataset: latin-1, comma separated.
func DefaultOptions() Options {
	return Options{Encoding: "latin-1", Delimiter: ','}
}

// Key identifies options that change parse output; cached rows parsed under
// different options are stale.
func (o Options) Key() string {
	return normalizeEncoding(o.Encoding) + "|" + string(o.delimiter())
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

// DiscoveredFile is an input file found during scanning.
type DiscoveredFile struct {
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

// ParseResult is the outcome of parsing one file.
type ParseResult struct {
	File         DiscoveredFile
	Records      []model.Record
	CoercedCells int // numeric cells that were not clean numbers
	Err          error
}
