package subscriber

import (
	"fmt"
	"sort"
	"strings"

	apperrors "bdcsubs/internal/errors"
)

// Canonical column names of a detailed subscriber file
const (
	ColCustomer   = "customer"
	ColLat        = "lat"
	ColLon        = "lon"
	ColAddress    = "address"
	ColCity       = "city"
	ColState      = "state"
	ColZip        = "zip"
	ColDownload   = "download"
	ColUpload     = "upload"
	ColVoiceLines = "voip_lines_quantity"
	ColBusiness   = "business_customer"
	ColTechnology = "technology"
)

// ExpectedColumns lists the twelve required columns in template order
var ExpectedColumns = []string{
	ColCustomer, ColLat, ColLon, ColAddress, ColCity, ColState, ColZip,
	ColDownload, ColUpload, ColVoiceLines, ColBusiness, ColTechnology,
}

// columnAliases maps common header spellings to the canonical name
var columnAliases = map[string]string{
	"zipcode":        ColZip,
	"zip code":       ColZip,
	"zip_code":       ColZip,
	"postal code":    ColZip,
	"postal_code":    ColZip,
	"postalcode":     ColZip,
	"longitude":      ColLon,
	"long":           ColLon,
	"lng":            ColLon,
	"lon_deg":        ColLon,
	"longitude_deg":  ColLon,
	"x":              ColLon,
	"latitude":       ColLat,
	"lat_deg":        ColLat,
	"latitude_deg":   ColLat,
	"y":              ColLat,
	"customer_id":    ColCustomer,
	"cust_id":        ColCustomer,
	"street_address": ColAddress,
	"addr":           ColAddress,
	"address1":       ColAddress,
	"address_1":      ColAddress,
	"region":         ColState,
	"st":             ColState,
	"download_speed": ColDownload,
	"down":           ColDownload,
	"up":             ColUpload,
	"up_speed":       ColUpload,
	"voip":           ColVoiceLines,
	"voip_lines":     ColVoiceLines,
	"phone":          ColVoiceLines,
	"phone_lines":    ColVoiceLines,
	"lines":          ColVoiceLines,
	"tech":           ColTechnology,
}

// Columns maps canonical column names to their position in a row
type Columns map[string]int

// NormalizeHeader trims, lowercases and de-aliases each header cell.
// A UTF-8 byte order mark on the first cell is dropped.
func NormalizeHeader(raw []string) []string {
	out := make([]string, len(raw))
	for i, cell := range raw {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		if canonical, ok := columnAliases[name]; ok {
			name = canonical
		}
		out[i] = name
	}
	return out
}

// CheckHeader validates a raw header row. The twelve expected columns must
// each appear exactly once, in any order.
func CheckHeader(raw []string) (Columns, error) {
	names := NormalizeHeader(raw)
	if len(names) != len(ExpectedColumns) {
		return nil, apperrors.NewSchemaError(fmt.Sprintf(
			"column count error: expected %d columns, found %d", len(ExpectedColumns), len(names))).
			WithContext("found", len(names))
	}

	cols := make(Columns, len(names))
	var duplicate []string
	for i, name := range names {
		if _, seen := cols[name]; seen {
			duplicate = append(duplicate, name)
			continue
		}
		cols[name] = i
	}

	var missing []string
	for _, want := range ExpectedColumns {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}

	if len(missing) > 0 || len(duplicate) > 0 {
		var unexpected []string
		expected := make(map[string]bool, len(ExpectedColumns))
		for _, c := range ExpectedColumns {
			expected[c] = true
		}
		for name := range cols {
			if !expected[name] {
				unexpected = append(unexpected, name)
			}
		}
		sort.Strings(unexpected)

		return nil, apperrors.NewSchemaError(fmt.Sprintf(
			"column header error: missing [%s], unexpected [%s], duplicate [%s]",
			strings.Join(missing, ", "), strings.Join(unexpected, ", "), strings.Join(duplicate, ", ")))
	}

	return cols, nil
}

// Get returns the trimmed cell of a canonical column
func (c Columns) Get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
