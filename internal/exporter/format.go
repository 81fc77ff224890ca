package exporter

import (
	"strconv"

	"bdcsubs/internal/aggregator"
)

// formatSpeed writes a speed with the shortest exact representation, so 100
// stays "100" and 2.5 stays "2.5"
func formatSpeed(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// dataRecords converts data aggregates to CSV records:
// tract, technology, download, upload, total, residential
func dataRecords(rows []aggregator.Row) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			r.Tract,
			formatInt(r.Technology),
			formatSpeed(r.Download),
			formatSpeed(r.Upload),
			formatInt(r.Total),
			formatInt(r.Residential),
		}
	}
	return out
}

// voiceRecords converts voice aggregates to CSV records:
// tract, service type, total, residential
func voiceRecords(rows []aggregator.VoiceRow) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			r.Tract,
			formatInt(r.ServiceType),
			formatInt(r.Total),
			formatInt(r.Residential),
		}
	}
	return out
}
