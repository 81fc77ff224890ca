package subscriber

import (
	"fmt"

	apperrors "bdcsubs/internal/errors"
)

// Validator turns raw detailed-file rows into records or row errors
type Validator struct {
	cols       Columns
	normalizer *Normalizer
}

// NewValidator creates a validator for a file whose header produced cols
func NewValidator(cols Columns) *Validator {
	return &Validator{cols: cols, normalizer: NewNormalizer()}
}

// Validate checks one data row. row is the 1-based data row number.
// Checks run in a fixed order and the first failure rejects the row:
// column count, speeds, technology, voice lines, business flag, location.
func (v *Validator) Validate(row int, fields []string) Result {
	reject := func(e apperrors.RowError) Result {
		return Result{Err: &e}
	}

	if len(fields) != len(ExpectedColumns) {
		return reject(apperrors.NewRowError(row, "row", fmt.Sprint(len(fields)),
			"expected %d columns, found %d", len(ExpectedColumns), len(fields)))
	}

	get := func(name string) string { return v.cols.Get(fields, name) }

	rec := Record{Row: row, Customer: get(ColCustomer)}

	var ok bool
	if rec.Download, ok = parseSpeed(get(ColDownload)); !ok {
		return reject(apperrors.NewRowError(row, ColDownload, get(ColDownload),
			"download speed must be greater than 0 (got %q)", get(ColDownload)))
	}
	if rec.Upload, ok = parseSpeed(get(ColUpload)); !ok {
		return reject(apperrors.NewRowError(row, ColUpload, get(ColUpload),
			"upload speed must be greater than 0 (got %q)", get(ColUpload)))
	}

	rec.TechLabel = get(ColTechnology)
	if rec.Technology, ok = ParseTechnology(rec.TechLabel); !ok {
		return reject(apperrors.NewRowError(row, ColTechnology, rec.TechLabel,
			"invalid technology %q", rec.TechLabel))
	}

	var err error
	if rec.VoiceLines, err = parseVoiceLines(get(ColVoiceLines)); err != nil {
		return reject(apperrors.NewRowError(row, ColVoiceLines, get(ColVoiceLines), "%v", err))
	}
	if rec.Business, err = parseBusiness(get(ColBusiness)); err != nil {
		return reject(apperrors.NewRowError(row, ColBusiness, get(ColBusiness), "%v", err))
	}

	var fixes []Correction
	var fix []Correction
	rec.Address, rec.Address2, fix = v.normalizer.Address(row, get(ColAddress))
	fixes = append(fixes, fix...)
	rec.City, fix = v.normalizer.City(row, get(ColCity))
	fixes = append(fixes, fix...)
	rec.State, fix = v.normalizer.State(row, get(ColState))
	fixes = append(fixes, fix...)
	rec.Zip, fix = v.normalizer.Zip(row, get(ColZip))
	fixes = append(fixes, fix...)

	var warnings []Warning
	rec.Lat, rec.Lon, rec.HasCoords = parseCoords(get(ColLat), get(ColLon))
	if rec.HasCoords {
		if inside, known := InStateBounds(rec.State, rec.Lat, rec.Lon); known && !inside {
			warnings = append(warnings, Warning{
				Row:     row,
				Field:   ColLat,
				Message: fmt.Sprintf("row %d: coordinates %.6f,%.6f fall outside %s", row, rec.Lat, rec.Lon, rec.State),
			})
		}
	} else if missing := v.missingAddress(rec); missing != "" {
		return Result{
			Corrections: fixes,
			Err: &apperrors.RowError{
				Row:     row,
				Type:    apperrors.ErrTypeRowField,
				Field:   missing,
				Value:   get(missing),
				Message: fmt.Sprintf("row %d: incomplete location: no valid coordinates and %s is missing or invalid", row, missing),
			},
		}
	}

	return Result{Record: rec, Corrections: fixes, Warnings: warnings}
}

// missingAddress returns the first address field that blocks geocoding
func (v *Validator) missingAddress(rec Record) string {
	switch {
	case rec.Address == "":
		return ColAddress
	case rec.City == "":
		return ColCity
	case !ValidState(rec.State):
		return ColState
	case !ValidZip(rec.Zip):
		return ColZip
	}
	return ""
}
