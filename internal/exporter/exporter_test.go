package exporter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bdcsubs/internal/aggregator"
	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/infrastructure"
	"bdcsubs/internal/manifest"
	"bdcsubs/internal/subscriber"
)

func newTestExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	return New(dir, "1234", manifest.Default(), infrastructure.DiscardLogger()), dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestExporter_WriteAggregates(t *testing.T) {
	e, dir := newTestExporter(t)

	rows := []aggregator.Row{
		{Key: aggregator.Key{Tract: "48453001100", Technology: 50, Download: 100, Upload: 20}, Total: 2, Residential: 1},
		{Key: aggregator.Key{Tract: "48453001100", Technology: 70, Download: 2.5, Upload: 0.5}, Total: 1, Residential: 1},
	}

	path, err := e.WriteData(rows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1234_subscription_processed.csv"), path)
	assert.Equal(t, "48453001100,50,100,20,2,1\n48453001100,70,2.5,0.5,1,1", readFile(t, path))

	path, err = e.WriteRegulatory(rows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "477_1234_subscription_processed.csv"), path)

	path, err = e.WriteVoice([]aggregator.VoiceRow{{Tract: "48453001100", ServiceType: 1, Total: 5, Residential: 2}})
	require.NoError(t, err)
	assert.Equal(t, "48453001100,1,5,2", readFile(t, path))

	path, err = e.WriteVoiceStates([]aggregator.StateVoice{
		{State: "48", Techs: []aggregator.TechTotal{{Technology: 1, Total: 3}, {Technology: 70, Total: 1}}},
		{State: "35", Techs: []aggregator.TechTotal{{Technology: 50, Total: 4}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "state 48\ntech code 1: 3\ntech code 70: 1\n\nstate 35\ntech code 50: 4\n\n", readFile(t, path))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestExporter_WriteIsDeterministic(t *testing.T) {
	e, _ := newTestExporter(t)
	rows := []aggregator.Row{{Key: aggregator.Key{Tract: "1", Technology: 50, Download: 1, Upload: 1}, Total: 1}}

	first, err := e.WriteData(rows)
	require.NoError(t, err)
	a := readFile(t, first)
	second, err := e.WriteData(rows)
	require.NoError(t, err)
	assert.Equal(t, a, readFile(t, second))
}

func TestFormatErrorReport(t *testing.T) {
	at := time.Date(2024, 7, 4, 9, 5, 3, 0, time.UTC)
	got := FormatErrorReport(at, []string{"row 2: invalid technology \"dsl\"", "error geocoding row 5 addr: 1 MAIN ST,AUSTIN,TX 78701"})
	assert.Equal(t, "Date: 07/04/2024, 09:05:03\nrow 2: invalid technology \"dsl\"\nerror geocoding row 5 addr: 1 MAIN ST,AUSTIN,TX 78701\n", got)
}

func TestExporter_Clean(t *testing.T) {
	e, dir := newTestExporter(t)

	stale := []string{"processing_errors.txt", "1234_subscription_processed.csv", "1234_voice_state_data.txt"}
	for _, n := range stale {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("old"), 0644))
	}
	keep := filepath.Join(dir, "other_isp.csv")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0644))

	removed, err := e.Clean()
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	assert.FileExists(t, keep)
}

func TestWriteCorrectionWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrections.xlsx")

	cols, err := subscriber.CheckHeader(subscriber.ExpectedColumns)
	require.NoError(t, err)

	in := CorrectionInput{
		Header:  subscriber.ExpectedColumns,
		Columns: cols,
		Rows: []SourceRow{
			{Row: 1, Fields: []string{"C1", "30.1", "-97.1", "1 main street", "Austin", "TX", "78701", "100", "20", "", "0", "fiber"}},
			{Row: 2, Fields: []string{"C2", "", "", "", "Austin", "TX", "78701", "100", "20", "", "0", "fiber"}},
			{Row: 3, Fields: []string{"C3", "30.1", "-97.1", "2 Oak", "Austin", "TX", "78701", "0", "20", "", "0", "fiber"}},
		},
		Corrections: []subscriber.Correction{
			{Row: 1, Field: subscriber.ColAddress, Original: "1 main street", Corrected: "1 MAIN ST", Kind: subscriber.FixRoadType},
		},
		Errors: []apperrors.RowError{
			apperrors.NewRowError(2, subscriber.ColAddress, "", "incomplete location"),
			apperrors.NewRowError(3, subscriber.ColDownload, "0", "download speed must be greater than 0"),
		},
	}
	require.NoError(t, WriteCorrectionWorkbook(path, in))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{dataSheet, logSheet}, f.GetSheetList())

	value, err := f.GetCellValue(dataSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "1 MAIN ST", value)

	note, err := f.GetCellValue(dataSheet, "M4")
	require.NoError(t, err)
	assert.Equal(t, "row 3: download speed must be greater than 0", note)

	fillOf := func(cell string) string {
		id, err := f.GetCellStyle(dataSheet, cell)
		require.NoError(t, err)
		style, err := f.GetStyle(id)
		require.NoError(t, err)
		if len(style.Fill.Color) == 0 {
			return ""
		}
		return style.Fill.Color[0]
	}
	// excelize may report colors with an alpha prefix
	assert.Contains(t, fillOf("D2"), FillCorrected)
	assert.Contains(t, fillOf("D3"), FillLocation)
	assert.Contains(t, fillOf("H4"), FillRejected)
	assert.Empty(t, fillOf("A2"))

	changes, err := f.GetRows(logSheet)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, []string{"1", "address", "1 main street", "1 MAIN ST", subscriber.FixRoadType}, changes[1])
}

func TestPrepareUpstreamWorkbook(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.xlsx")
	dst := filepath.Join(dir, "out.xlsx")

	f := excelize.NewFile()
	header := []interface{}{"OrigRowNum", "customer", "lat"}
	row := []interface{}{7, "C1", 30.1}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &row))
	require.NoError(t, f.SaveAs(src))
	require.NoError(t, f.Close())

	removed, err := PrepareUpstreamWorkbook(src, dst, "OrigRowNum")
	require.NoError(t, err)
	assert.True(t, removed)

	out, err := excelize.OpenFile(dst)
	require.NoError(t, err)
	defer out.Close()
	rows, err := out.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, []string{"customer", "lat"}, rows[0])
	assert.Equal(t, "C1", rows[1][0])

	removed, err = PrepareUpstreamWorkbook(dst, filepath.Join(dir, "again.xlsx"), "OrigRowNum")
	require.NoError(t, err)
	assert.False(t, removed)
}
