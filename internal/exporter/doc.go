// Package exporter writes the artifacts of a run to the output directory.
//
// Aggregate tables are written as header-less CSV in the layout the filing
// system imports. Alongside them it produces the voice state summary, the
// plain-text error report and an Excel workbook that highlights every cell
// the validator changed or rejected. Each writer returns the path it wrote
// so the caller can record it in the run manifest.
package exporter
