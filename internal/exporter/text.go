package exporter

import (
	"fmt"
	"strings"
	"time"

	"bdcsubs/internal/aggregator"
)

// ReportTimeLayout is the timestamp layout of the error report header
const ReportTimeLayout = "01/02/2006, 15:04:05"

// FormatVoiceStates renders the voice state summary. Each state block is
//
//	state XX
//	tech code N: total
//
// followed by a blank line.
func FormatVoiceStates(states []aggregator.StateVoice) string {
	var b strings.Builder
	for _, s := range states {
		fmt.Fprintf(&b, "state %s\n", s.State)
		for _, t := range s.Techs {
			fmt.Fprintf(&b, "tech code %d: %d\n", t.Technology, t.Total)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatErrorReport renders processing_errors.txt: a date line followed by
// one line per error
func FormatErrorReport(at time.Time, lines []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", at.Format(ReportTimeLayout))
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}
