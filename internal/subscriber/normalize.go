package subscriber

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Correction kinds
const (
	FixWhitespace   = "Whitespace Normalization"
	FixDiacritics   = "Diacritic Removal"
	FixCase         = "Case Normalization"
	FixForbidden    = "Forbidden Character Removal"
	FixCompass      = "Compass Direction Normalization"
	FixRoadType     = "Road Type Abbreviation"
	FixUnit         = "Unit Designator Split"
	FixZipPadding   = "ZIP Zero Padding"
	FixZipExtension = "ZIP+4 Truncation"
)

// Correction is one automatic change to an input cell
type Correction struct {
	Row       int
	Field     string
	Original  string
	Corrected string
	Kind      string
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	forbidden  = regexp.MustCompile(`[^A-Z0-9 .#&/'\-]`)

	// Longer words first so NORTHEAST is not rewritten as NEAST
	compassWords = []struct {
		re   *regexp.Regexp
		abbr string
	}{
		{regexp.MustCompile(`\bNORTHEAST\b`), "NE"},
		{regexp.MustCompile(`\bNORTHWEST\b`), "NW"},
		{regexp.MustCompile(`\bSOUTHEAST\b`), "SE"},
		{regexp.MustCompile(`\bSOUTHWEST\b`), "SW"},
		{regexp.MustCompile(`\bNORTH\b`), "N"},
		{regexp.MustCompile(`\bSOUTH\b`), "S"},
		{regexp.MustCompile(`\bEAST\b`), "E"},
		{regexp.MustCompile(`\bWEST\b`), "W"},
	}

	roadTypes = []struct {
		re   *regexp.Regexp
		abbr string
	}{
		{regexp.MustCompile(`\bFARM TO MARKET(?: ROAD| RD)?\b`), "FM"},
		{regexp.MustCompile(`\bSTREET\b`), "ST"},
		{regexp.MustCompile(`\bAVENUE\b`), "AVE"},
		{regexp.MustCompile(`\bBOULEVARD\b`), "BLVD"},
		{regexp.MustCompile(`\bDRIVE\b`), "DR"},
		{regexp.MustCompile(`\bROAD\b`), "RD"},
		{regexp.MustCompile(`\bLANE\b`), "LN"},
		{regexp.MustCompile(`\bCOURT\b`), "CT"},
		{regexp.MustCompile(`\bCIRCLE\b`), "CIR"},
		{regexp.MustCompile(`\bPLACE\b`), "PL"},
		{regexp.MustCompile(`\bPARKWAY\b`), "PKWY"},
		{regexp.MustCompile(`\bTERRACE\b`), "TER"},
		{regexp.MustCompile(`\bTRAIL\b`), "TRL"},
		{regexp.MustCompile(`\bHIGHWAY\b`), "HWY"},
		{regexp.MustCompile(`\bEXPRESSWAY\b`), "EXPY"},
		{regexp.MustCompile(`\bSQUARE\b`), "SQ"},
		{regexp.MustCompile(`\bALLEY\b`), "ALY"},
		{regexp.MustCompile(`\bCREEK\b`), "CRK"},
	}

	// A trailing apartment, suite or unit designator
	unitDesignator = regexp.MustCompile(`\s+((?:APT|APARTMENT|SUITE|STE|UNIT|ROOM|RM|BLDG|BUILDING|LOT|SPACE|TRLR)(?:\s+[A-Z0-9\-]+|[0-9][A-Z0-9\-]*)|#\s*[A-Z0-9\-]+)$`)

	zipDigits = regexp.MustCompile(`^[0-9]+$`)
	zipPlus4  = regexp.MustCompile(`^([0-9]{5})-?[0-9]{4}$`)
)

// Normalizer rewrites address cells into a canonical textual form. It is
// purely textual and never checks an address against a reference.
type Normalizer struct {
	upper cases.Caser
}

// NewNormalizer creates a normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{upper: cases.Upper(language.AmericanEnglish)}
}

// stripDiacritics decomposes s and drops combining marks
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// corrector applies steps to one cell and records each change
type corrector struct {
	row   int
	field string
	value string
	fixes []Correction
}

func (c *corrector) apply(kind string, fn func(string) string) {
	next := fn(c.value)
	if next != c.value {
		c.fixes = append(c.fixes, Correction{
			Row:       c.row,
			Field:     c.field,
			Original:  c.value,
			Corrected: next,
			Kind:      kind,
		})
		c.value = next
	}
}

func (n *Normalizer) text(row int, field, value string) *corrector {
	c := &corrector{row: row, field: field, value: value}
	c.apply(FixWhitespace, func(s string) string { return whitespace.ReplaceAllString(strings.TrimSpace(s), " ") })
	c.apply(FixDiacritics, stripDiacritics)
	c.apply(FixCase, n.upper.String)
	return c
}

// Address normalizes a street address. A trailing unit designator is split
// off and returned as the second value.
func (n *Normalizer) Address(row int, value string) (string, string, []Correction) {
	c := n.text(row, ColAddress, value)
	c.apply(FixForbidden, func(s string) string {
		return whitespace.ReplaceAllString(strings.TrimSpace(forbidden.ReplaceAllString(s, "")), " ")
	})
	c.apply(FixCompass, func(s string) string {
		for _, w := range compassWords {
			s = w.re.ReplaceAllString(s, w.abbr)
		}
		return s
	})
	c.apply(FixRoadType, func(s string) string {
		for _, r := range roadTypes {
			s = r.re.ReplaceAllString(s, r.abbr)
		}
		return s
	})

	var unit string
	c.apply(FixUnit, func(s string) string {
		loc := unitDesignator.FindStringSubmatchIndex(s)
		if loc == nil || loc[0] == 0 {
			return s
		}
		unit = s[loc[2]:loc[3]]
		return s[:loc[0]]
	})

	return c.value, unit, c.fixes
}

// City normalizes a city name
func (n *Normalizer) City(row int, value string) (string, []Correction) {
	c := n.text(row, ColCity, value)
	c.apply(FixForbidden, func(s string) string {
		return whitespace.ReplaceAllString(strings.TrimSpace(forbidden.ReplaceAllString(s, "")), " ")
	})
	return c.value, c.fixes
}

// State normalizes a state code
func (n *Normalizer) State(row int, value string) (string, []Correction) {
	c := n.text(row, ColState, value)
	return c.value, c.fixes
}

// Zip repairs the two common spreadsheet damages to a ZIP code: a leading
// zero lost to numeric conversion and a ZIP+4 extension.
func (n *Normalizer) Zip(row int, value string) (string, []Correction) {
	c := &corrector{row: row, field: ColZip, value: value}
	c.apply(FixWhitespace, strings.TrimSpace)
	c.apply(FixZipExtension, func(s string) string {
		if m := zipPlus4.FindStringSubmatch(s); m != nil {
			return m[1]
		}
		return s
	})
	c.apply(FixZipPadding, func(s string) string {
		if len(s) == 4 && zipDigits.MatchString(s) {
			return "0" + s
		}
		return s
	})
	return c.value, c.fixes
}

// ValidZip reports whether s is a five-digit ZIP code
func ValidZip(s string) bool {
	return len(s) == 5 && zipDigits.MatchString(s)
}
