package subscriber

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "bdcsubs/internal/errors"
)

// Record is one validated subscriber row
type Record struct {
	Row        int
	Customer   string
	Lat        float64
	Lon        float64
	HasCoords  bool
	Geocoded   bool
	Address    string
	Address2   string
	City       string
	State      string
	Zip        string
	Download   float64
	Upload     float64
	VoiceLines int
	Business   bool
	Technology int
	TechLabel  string
	Tract      string
}

// NeedsGeocoding reports whether the record has only an address
func (r Record) NeedsGeocoding() bool {
	return !r.HasCoords
}

// GeocodeAddress composes the single-line address sent to the geocoder
func (r Record) GeocodeAddress() string {
	return FormatAddress(r.Address, r.City, r.State, r.Zip)
}

// FormatAddress composes "address,city,state zip"
func FormatAddress(address, city, state, zip string) string {
	return address + "," + city + "," + state + " " + zip
}

// BusinessCount returns 1 for a business customer, else 0
func (r Record) BusinessCount() int {
	if r.Business {
		return 1
	}
	return 0
}

// StatePrefix returns the two-digit state FIPS prefix of the resolved tract
func (r Record) StatePrefix() string {
	if len(r.Tract) < 2 {
		return ""
	}
	return r.Tract[:2]
}

// Warning is a non-fatal finding on an accepted row
type Warning struct {
	Row     int
	Field   string
	Message string
}

// Result is the outcome of validating one row. Exactly one of Record or
// Err is meaningful.
type Result struct {
	Record      Record
	Corrections []Correction
	Warnings    []Warning
	Err         *apperrors.RowError
}

// Accepted reports whether the row passed validation
func (r Result) Accepted() bool {
	return r.Err == nil
}

// parseBusiness accepts the usual spreadsheet spellings of a boolean
func parseBusiness(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y":
		return true, nil
	}
	// Some exports write the flag as 1.0
	if f, err := strconv.ParseFloat(s, 64); err == nil && (f == 0 || f == 1) {
		return f == 1, nil
	}
	return false, fmt.Errorf("invalid business flag %q", s)
}

// parseVoiceLines reads a non-negative line count. Blank means zero.
func parseVoiceLines(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid voice line count %q", s)
	}
	return int(f), nil
}

// parseSpeed reads a strictly positive speed
func parseSpeed(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// parseCoords reads a coordinate pair. Blank or out-of-range values yield false.
func parseCoords(latS, lonS string) (float64, float64, bool) {
	if latS == "" || lonS == "" {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	if lat == 0 && lon == 0 {
		return 0, 0, false
	}
	return lat, lon, true
}
