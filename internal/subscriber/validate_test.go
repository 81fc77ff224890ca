package subscriber

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bdcsubs/internal/errors"
)

// row builds a template-order row; overrides are keyed by column name
func row(overrides map[string]string) []string {
	base := map[string]string{
		ColCustomer:   "C-1",
		ColLat:        "30.2672",
		ColLon:        "-97.7431",
		ColAddress:    "100 Congress Ave",
		ColCity:       "Austin",
		ColState:      "TX",
		ColZip:        "78701",
		ColDownload:   "100",
		ColUpload:     "20",
		ColVoiceLines: "",
		ColBusiness:   "0",
		ColTechnology: "fiber",
	}
	for k, v := range overrides {
		base[k] = v
	}
	out := make([]string, len(ExpectedColumns))
	for i, c := range ExpectedColumns {
		out[i] = base[c]
	}
	return out
}

func newTemplateValidator(t *testing.T) *Validator {
	t.Helper()
	cols, err := CheckHeader(ExpectedColumns)
	require.NoError(t, err)
	return NewValidator(cols)
}

func TestValidator_Accepts(t *testing.T) {
	v := newTemplateValidator(t)

	res := v.Validate(1, row(map[string]string{ColVoiceLines: "2", ColBusiness: "yes"}))
	require.True(t, res.Accepted())

	rec := res.Record
	assert.Equal(t, 1, rec.Row)
	assert.Equal(t, "C-1", rec.Customer)
	assert.True(t, rec.HasCoords)
	assert.False(t, rec.NeedsGeocoding())
	assert.InDelta(t, 30.2672, rec.Lat, 1e-9)
	assert.Equal(t, 100.0, rec.Download)
	assert.Equal(t, 2, rec.VoiceLines)
	assert.True(t, rec.Business)
	assert.Equal(t, 1, rec.BusinessCount())
	assert.Equal(t, TechFiber, rec.Technology)
	assert.Equal(t, "100 CONGRESS AVE", rec.Address)
	assert.Equal(t, "AUSTIN", rec.City)
	assert.Empty(t, res.Warnings)
	assert.NotEmpty(t, res.Corrections)
}

func TestValidator_AddressOnlyNeedsGeocoding(t *testing.T) {
	v := newTemplateValidator(t)

	res := v.Validate(2, row(map[string]string{ColLat: "", ColLon: "", ColZip: "8701"}))
	require.True(t, res.Accepted())
	assert.True(t, res.Record.NeedsGeocoding())
	assert.Equal(t, "08701", res.Record.Zip)
	assert.Equal(t, "100 CONGRESS AVE,AUSTIN,TX 08701", res.Record.GeocodeAddress())
}

func TestValidator_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		fields    []string
		wantField string
		wantMsg   string
	}{
		{
			name:      "column count",
			fields:    row(nil)[:11],
			wantField: "row",
			wantMsg:   "row 5: expected 12 columns, found 11",
		},
		{
			name:      "zero download",
			fields:    row(map[string]string{ColDownload: "0"}),
			wantField: ColDownload,
			wantMsg:   `row 5: download speed must be greater than 0 (got "0")`,
		},
		{
			name:      "negative upload",
			fields:    row(map[string]string{ColUpload: "-5"}),
			wantField: ColUpload,
		},
		{
			name:      "non numeric speed",
			fields:    row(map[string]string{ColDownload: "fast"}),
			wantField: ColDownload,
		},
		{
			name:      "unknown technology is not defaulted",
			fields:    row(map[string]string{ColTechnology: "dsl"}),
			wantField: ColTechnology,
			wantMsg:   `row 5: invalid technology "dsl"`,
		},
		{
			name:      "fractional voice lines",
			fields:    row(map[string]string{ColVoiceLines: "1.5"}),
			wantField: ColVoiceLines,
		},
		{
			name:      "bad business flag",
			fields:    row(map[string]string{ColBusiness: "maybe"}),
			wantField: ColBusiness,
		},
		{
			name:      "no coordinates and no city",
			fields:    row(map[string]string{ColLat: "", ColLon: "", ColCity: ""}),
			wantField: ColCity,
		},
		{
			name:      "bad coordinates and invalid state",
			fields:    row(map[string]string{ColLat: "abc", ColState: "XX"}),
			wantField: ColState,
		},
		{
			name:      "no coordinates and short zip",
			fields:    row(map[string]string{ColLat: "", ColZip: "123"}),
			wantField: ColZip,
		},
		{
			name:      "null island is not a coordinate",
			fields:    row(map[string]string{ColLat: "0", ColLon: "0", ColAddress: ""}),
			wantField: ColAddress,
		},
	}

	v := newTemplateValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(5, tt.fields)
			require.False(t, res.Accepted())
			assert.Equal(t, apperrors.ErrTypeRowField, res.Err.Type)
			assert.Equal(t, 5, res.Err.Row)
			assert.Equal(t, tt.wantField, res.Err.Field)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, res.Err.Message)
			}
		})
	}
}

func TestValidator_OutOfStateCoordinatesWarn(t *testing.T) {
	v := newTemplateValidator(t)

	// Denver coordinates on a Texas row
	res := v.Validate(3, row(map[string]string{ColLat: "39.7392", ColLon: "-104.9903"}))
	require.True(t, res.Accepted())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "outside TX")
}

func TestValidator_ColumnsInAnyOrder(t *testing.T) {
	header := []string{"tech", "customer_id", "latitude", "longitude", "address", "city", "state",
		"zip", "download", "upload", "voip", "business_customer"}
	cols, err := CheckHeader(header)
	require.NoError(t, err)

	res := NewValidator(cols).Validate(1, []string{"cable", "C9", "30.1", "-97.1", "1 A St", "Austin", "TX",
		"78701", "50", "5", "", "1"})
	require.True(t, res.Accepted())
	assert.Equal(t, TechCable, res.Record.Technology)
	assert.Equal(t, "C9", res.Record.Customer)
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		rows    int
		percent float64
	}{
		{0, 0}, {200, 0}, {201, 3}, {500, 3}, {501, 2}, {1500, 2}, {1501, 1}, {100000, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.percent, BandFor(tt.rows).MaxErrorPercent, "rows=%d", tt.rows)
	}

	band := BandFor(300)
	assert.True(t, band.Within(9, 300))
	assert.False(t, band.Within(10, 300))
	assert.True(t, BandFor(10).Within(0, 10))
	assert.False(t, BandFor(10).Within(1, 10))
	assert.Equal(t, "201-500 rows: up to 3% errors", band.String())
	assert.Equal(t, "1501+ rows: up to 1% errors", BandFor(2000).String())
}

func TestReader(t *testing.T) {
	input := "customer,lat\n" +
		"a,1\n" +
		",\n" +
		"b,2,extra\n"

	r := NewReader(strings.NewReader(input))
	header, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, []string{"customer", "lat"}, header)

	n, fields, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a", "1"}, fields)

	n, fields, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, fields, 3)

	_, _, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)

	_, err = NewReader(strings.NewReader("")).Header()
	assert.Error(t, err)
}
