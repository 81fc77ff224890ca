package subscriber

import "fmt"

// ToleranceBand is the share of rejected rows a file of a given size may carry
type ToleranceBand struct {
	MinRows         int
	MaxRows         int // 0 means unbounded
	MaxErrorPercent float64
}

var toleranceBands = []ToleranceBand{
	{MinRows: 0, MaxRows: 200, MaxErrorPercent: 0},
	{MinRows: 201, MaxRows: 500, MaxErrorPercent: 3},
	{MinRows: 501, MaxRows: 1500, MaxErrorPercent: 2},
	{MinRows: 1501, MaxRows: 0, MaxErrorPercent: 1},
}

// BandFor returns the tolerance band of a file with rows data rows
func BandFor(rows int) ToleranceBand {
	for _, b := range toleranceBands {
		if rows >= b.MinRows && (b.MaxRows == 0 || rows <= b.MaxRows) {
			return b
		}
	}
	return toleranceBands[0]
}

// Within reports whether rejected out of total rows stays inside the band
func (b ToleranceBand) Within(rejected, total int) bool {
	if total == 0 {
		return rejected == 0
	}
	return float64(rejected)*100/float64(total) <= b.MaxErrorPercent
}

// String describes the band for the admin summary
func (b ToleranceBand) String() string {
	if b.MaxRows == 0 {
		return fmt.Sprintf("%d+ rows: up to %g%% errors", b.MinRows, b.MaxErrorPercent)
	}
	return fmt.Sprintf("%d-%d rows: up to %g%% errors", b.MinRows, b.MaxRows, b.MaxErrorPercent)
}
