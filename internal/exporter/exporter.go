package exporter

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"bdcsubs/internal/aggregator"
	"bdcsubs/internal/files"
	"bdcsubs/internal/infrastructure"
	"bdcsubs/internal/manifest"
)

// Exporter writes the contract-named artifacts of one ISP into one output
// directory
type Exporter struct {
	dir      string
	isp      string
	contract *manifest.Contract
	csv      *CSVWriter
	files    *files.Manager
	logger   *slog.Logger
}

// New creates an exporter for isp writing into dir
func New(dir, isp string, contract *manifest.Contract, logger *slog.Logger) *Exporter {
	logger = infrastructure.WithComponent(logger, "exporter")
	return &Exporter{
		dir:      dir,
		isp:      isp,
		contract: contract,
		csv:      NewCSVWriter(logger),
		files:    files.NewManager(logger),
		logger:   logger,
	}
}

// Path returns the output path of a contract name template
func (e *Exporter) Path(template string) string {
	return filepath.Join(e.dir, manifest.Name(template, e.isp))
}

// Clean removes artifacts left by an earlier run so a failed run never
// leaves stale outputs behind. It returns the removed paths.
func (e *Exporter) Clean() ([]string, error) {
	names := e.contract.OutputNames(e.isp)
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(e.dir, n)
	}
	removed, err := e.files.RemoveFiles(paths...)
	if len(removed) > 0 {
		e.logger.Info("Removed stale outputs", slog.Int("count", len(removed)))
	}
	return removed, err
}

func (e *Exporter) writeRows(template string, records [][]string) (string, error) {
	path := e.Path(template)
	if err := e.csv.WriteCSV(path, WriteOptions{Records: records, OmitFinalNewline: true}); err != nil {
		return "", err
	}
	return path, nil
}

// WriteData writes the data aggregate
func (e *Exporter) WriteData(rows []aggregator.Row) (string, error) {
	return e.writeRows(e.contract.Outputs.Data, dataRecords(rows))
}

// WriteRegulatory writes the 71 to 70 mapped data aggregate
func (e *Exporter) WriteRegulatory(rows []aggregator.Row) (string, error) {
	return e.writeRows(e.contract.Outputs.Regulatory, dataRecords(rows))
}

// WriteVoice writes the voice aggregate
func (e *Exporter) WriteVoice(rows []aggregator.VoiceRow) (string, error) {
	return e.writeRows(e.contract.Outputs.Voice, voiceRecords(rows))
}

// WriteVoiceStates writes the voice state summary
func (e *Exporter) WriteVoiceStates(states []aggregator.StateVoice) (string, error) {
	path := e.Path(e.contract.Outputs.VoiceStates)
	if err := writeFileAtomic(path, []byte(FormatVoiceStates(states))); err != nil {
		return "", err
	}
	return path, nil
}

// WriteErrorReport writes processing_errors.txt
func (e *Exporter) WriteErrorReport(at time.Time, lines []string) (string, error) {
	path := e.Path(e.contract.Outputs.ErrorReport)
	if err := writeFileAtomic(path, []byte(FormatErrorReport(at, lines))); err != nil {
		return "", err
	}
	e.logger.Info("Error report written",
		slog.String("path", path),
		slog.Int("errors", len(lines)))
	return path, nil
}

// WriteCorrections writes the correction workbook
func (e *Exporter) WriteCorrections(in CorrectionInput) (string, error) {
	path := e.Path(e.contract.Outputs.Corrections)
	if err := WriteCorrectionWorkbook(path, in); err != nil {
		return "", err
	}
	return path, nil
}

// PrepareUpstreamWorkbook writes the upstream corrected workbook without its
// row number column
func (e *Exporter) PrepareUpstreamWorkbook(src string) (string, error) {
	path := e.Path(e.contract.Outputs.UpstreamWorkbook)
	removed, err := PrepareUpstreamWorkbook(src, path, e.contract.Upstream.RowNumberColumn)
	if err != nil {
		return "", fmt.Errorf("failed to prepare upstream workbook: %w", err)
	}
	if !removed {
		e.logger.Warn("Row number column not found in upstream workbook",
			slog.String("source", src),
			slog.String("column", e.contract.Upstream.RowNumberColumn))
	}
	return path, nil
}
