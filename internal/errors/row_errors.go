package errors

import (
	"fmt"
	"sort"
)

// reportOrder is the category order of the error report
var reportOrder = []ErrorType{ErrTypeRowField, ErrTypeGeocoding, ErrTypeStateConsistency}

// RowError is one rejected input row. Row is the 1-based data row number,
// the header excluded.
type RowError struct {
	Row     int
	Type    ErrorType
	Field   string
	Value   string
	Message string
}

// Error implements the error interface
func (e RowError) Error() string {
	return e.Message
}

// NewRowError creates a field-level rejection
func NewRowError(row int, field, value, format string, args ...interface{}) RowError {
	return RowError{
		Row:     row,
		Type:    ErrTypeRowField,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("row %d: %s", row, fmt.Sprintf(format, args...)),
	}
}

// NewGeocodingError records an address that could not be located
func NewGeocodingError(row int, address string) RowError {
	return RowError{
		Row:     row,
		Type:    ErrTypeGeocoding,
		Field:   "address",
		Value:   address,
		Message: fmt.Sprintf("error geocoding row %d addr: %s", row, address),
	}
}

// NewStateConsistencyError records a tract whose state prefix differs from the batch
func NewStateConsistencyError(row int, tract, want string) RowError {
	return RowError{
		Row:     row,
		Type:    ErrTypeStateConsistency,
		Field:   "tract",
		Value:   tract,
		Message: fmt.Sprintf("row %d: tract %s state prefix %s does not match file state prefix %s", row, tract, prefix(tract), want),
	}
}

func prefix(tract string) string {
	if len(tract) < 2 {
		return tract
	}
	return tract[:2]
}

// RowErrors accumulates the rejections of one run, grouped by category
type RowErrors struct {
	byType map[ErrorType][]RowError
}

// NewRowErrors creates an empty accumulator
func NewRowErrors() *RowErrors {
	return &RowErrors{byType: make(map[ErrorType][]RowError)}
}

// Add records a rejection
func (r *RowErrors) Add(e RowError) {
	r.byType[e.Type] = append(r.byType[e.Type], e)
}

// Len returns the number of rejections
func (r *RowErrors) Len() int {
	n := 0
	for _, errs := range r.byType {
		n += len(errs)
	}
	return n
}

// Count returns the rejections of one category
func (r *RowErrors) Count(t ErrorType) int {
	return len(r.byType[t])
}

// Counts returns the number of rejections per category name
func (r *RowErrors) Counts() map[string]int {
	out := make(map[string]int, len(r.byType))
	for t, errs := range r.byType {
		if len(errs) > 0 {
			out[string(t)] = len(errs)
		}
	}
	return out
}

// Ordered returns every rejection in report order: category, then row
func (r *RowErrors) Ordered() []RowError {
	var out []RowError
	seen := make(map[ErrorType]bool, len(reportOrder))
	for _, t := range reportOrder {
		out = append(out, sortedByRow(r.byType[t])...)
		seen[t] = true
	}

	// Categories outside the fixed order go last, by name
	var rest []ErrorType
	for t := range r.byType {
		if !seen[t] {
			rest = append(rest, t)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, t := range rest {
		out = append(out, sortedByRow(r.byType[t])...)
	}
	return out
}

// Lines returns the report line of each rejection in report order
func (r *RowErrors) Lines() []string {
	ordered := r.Ordered()
	lines := make([]string, len(ordered))
	for i, e := range ordered {
		lines[i] = e.Message
	}
	return lines
}

func sortedByRow(errs []RowError) []RowError {
	out := make([]RowError, len(errs))
	copy(out, errs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}
