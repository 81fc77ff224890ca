// Package aggregate validates pre-aggregated subscriber files: one row per
// tract, technology and speed tier with the subscriber counts already summed.
package aggregate

import (
	"strconv"
	"strings"

	apperrors "bdcsubs/internal/errors"
)

// Column positions of a pre-aggregated row
const (
	colTract = iota
	colTechnology
	colDownload
	colUpload
	colTotal
	colResidential

	// ColumnCount is the fixed width of a pre-aggregated row
	ColumnCount
)

// Record is one validated pre-aggregated row
type Record struct {
	Row         int
	Tract       string
	Technology  int
	Download    float64
	Upload      float64
	Total       int
	Residential int
}

// StatePrefix returns the two-digit state FIPS prefix of the tract
func (r Record) StatePrefix() string {
	return r.Tract[:2]
}

// headerNames are the column titles a pre-aggregated header may carry
var headerNames = map[string]bool{
	"tract":       true,
	"geoid":       true,
	"tech":        true,
	"technology":  true,
	"download":    true,
	"upload":      true,
	"total":       true,
	"residential": true,
}

func headerCell(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "\ufeff"))
}

// IsHeader reports whether fields look like a header row rather than data.
// A header either uses the known column titles or has no numeric value in
// any count or speed column. Anything else is data and must be validated.
func IsHeader(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	if _, err := strconv.ParseUint(headerCell(fields[0]), 10, 64); err == nil {
		return false
	}

	named := true
	for _, f := range fields {
		if !headerNames[headerCell(f)] {
			named = false
			break
		}
	}
	if named {
		return true
	}

	for _, f := range fields[1:] {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f), 64); err == nil {
			return false
		}
	}
	return true
}

// Validator checks the rows of one pre-aggregated file. It is stateful: the
// first accepted row fixes the state prefix every later row must share.
type Validator struct {
	statePrefix string
}

// NewValidator creates a validator for one file
func NewValidator() *Validator {
	return &Validator{}
}

// StatePrefix returns the prefix established by the first accepted row
func (v *Validator) StatePrefix() string {
	return v.statePrefix
}

// Validate checks one data row. row is the 1-based data row number.
func (v *Validator) Validate(row int, fields []string) (Record, *apperrors.RowError) {
	reject := func(e apperrors.RowError) (Record, *apperrors.RowError) {
		return Record{}, &e
	}

	if len(fields) != ColumnCount {
		return reject(apperrors.NewRowError(row, "row", strconv.Itoa(len(fields)),
			"expected %d columns, found %d", ColumnCount, len(fields)))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	rec := Record{Row: row, Tract: fields[colTract]}
	if !validTract(rec.Tract) {
		return reject(apperrors.NewRowError(row, "tract", rec.Tract,
			"tract %q must be 11 digits", rec.Tract))
	}

	var ok bool
	if rec.Download, ok = positive(fields[colDownload]); !ok {
		return reject(apperrors.NewRowError(row, "download", fields[colDownload],
			"download speed must be greater than 0 (got %q)", fields[colDownload]))
	}
	if rec.Upload, ok = positive(fields[colUpload]); !ok {
		return reject(apperrors.NewRowError(row, "upload", fields[colUpload],
			"upload speed must be greater than 0 (got %q)", fields[colUpload]))
	}

	tech, err := strconv.Atoi(fields[colTechnology])
	if err != nil || tech == 0 {
		return reject(apperrors.NewRowError(row, "technology", fields[colTechnology],
			"invalid technology %q", fields[colTechnology]))
	}
	rec.Technology = tech

	if rec.Total, err = strconv.Atoi(fields[colTotal]); err != nil || rec.Total < 0 {
		return reject(apperrors.NewRowError(row, "total", fields[colTotal],
			"total subscribers must be a non-negative integer (got %q)", fields[colTotal]))
	}
	rec.Residential, err = strconv.Atoi(fields[colResidential])
	if err != nil || rec.Residential < 0 || rec.Residential > rec.Total {
		return reject(apperrors.NewRowError(row, "residential", fields[colResidential],
			"residential subscribers must be between 0 and %d (got %q)", rec.Total, fields[colResidential]))
	}

	if v.statePrefix == "" {
		v.statePrefix = rec.StatePrefix()
	} else if rec.StatePrefix() != v.statePrefix {
		return reject(apperrors.NewStateConsistencyError(row, rec.Tract, v.statePrefix))
	}

	return rec, nil
}

func validTract(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func positive(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}
