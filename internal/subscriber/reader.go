package subscriber

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Reader streams the rows of a CSV input file. Rows may have any number of
// fields so the column count can be reported per row instead of aborting.
type Reader struct {
	csv  *csv.Reader
	rows int
}

// NewReader creates a reader over r
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return &Reader{csv: cr}
}

// Header reads the first row
func (r *Reader) Header() ([]string, error) {
	header, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return header, nil
}

// Next returns the next non-blank data row and its 1-based number.
// It returns io.EOF after the last row.
func (r *Reader) Next() (int, []string, error) {
	for {
		fields, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, nil, io.EOF
			}
			r.rows++
			return r.rows, nil, fmt.Errorf("row %d: %w", r.rows, err)
		}
		r.rows++
		if blank(fields) {
			continue
		}
		return r.rows, fields, nil
	}
}

// Rows returns the number of data rows consumed so far
func (r *Reader) Rows() int {
	return r.rows
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
