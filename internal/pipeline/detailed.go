package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"bdcsubs/internal/aggregator"
	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/exporter"
	"bdcsubs/internal/status"
	"bdcsubs/internal/subscriber"
)

// detailedFile is what validation of a detailed file produced
type detailedFile struct {
	header      []string
	cols        subscriber.Columns
	rows        []exporter.SourceRow
	records     []subscriber.Record
	corrections []subscriber.Correction
	warnings    []subscriber.Warning
}

func (p *Pipeline) processDetailed(ctx context.Context, st *runState) {
	out := st.out
	st.table = tableLabel(p.Subscribers.Name())

	var det *detailedFile
	err := p.stage(ctx, st, StageValidate, "Validate subscriber rows", func(ctx context.Context) (map[string]interface{}, error) {
		var err error
		if det, err = p.readDetailed(st); err != nil {
			return nil, err
		}
		if det.records, err = p.resolveLocations(ctx, st, det.records); err != nil {
			return nil, err
		}
		out.Accepted = len(det.records)
		out.Warnings = len(det.warnings)
		return map[string]interface{}{
			"rows":     out.Rows,
			"accepted": out.Accepted,
			"rejected": out.Errors.Len(),
			"warnings": out.Warnings,
		}, nil
	})
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeSchema) {
			p.headerFailure(ctx, st, err)
			return
		}
		out.fail(status.SystemError, err)
		return
	}
	p.Metrics.RecordRows(ctx, string(st.input.Kind), out.Rows, out.Accepted, out.Errors.Counts())

	p.writeReports(ctx, st, det)

	if out.Accepted == 0 {
		st.run.Logger.WarnContext(ctx, "No row was accepted", slog.Int("rows", out.Rows))
		out.Status = status.DataValidationFailed
		return
	}

	_ = p.stage(ctx, st, StagePersist, "Persist subscribers", func(ctx context.Context) (map[string]interface{}, error) {
		return p.persistDetailed(ctx, det.records)
	})

	err = p.stage(ctx, st, StageOutputs, "Write aggregates", func(ctx context.Context) (map[string]interface{}, error) {
		return p.writeDetailedOutputs(ctx, st, det.records)
	})
	if err != nil {
		out.fail(status.SystemError, err)
		return
	}

	out.Status = status.Complete
	if out.Errors.Len() > 0 {
		out.Status = status.Errors
	}
}

// readDetailed checks the header and validates every row
func (p *Pipeline) readDetailed(st *runState) (*detailedFile, error) {
	f, err := os.Open(st.input.Path)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeInternal, "failed to open input", err)
	}
	defer f.Close()

	r := subscriber.NewReader(f)
	header, err := r.Header()
	if err != nil {
		return nil, apperrors.NewSchemaError(err.Error())
	}
	cols, err := subscriber.CheckHeader(header)
	if err != nil {
		return nil, err
	}

	det := &detailedFile{header: header, cols: cols}
	v := subscriber.NewValidator(cols)
	for {
		n, fields, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		st.out.Rows++
		if err != nil {
			st.out.Errors.Add(unreadableRow(n, err))
			continue
		}

		det.rows = append(det.rows, exporter.SourceRow{Row: n, Fields: fields})
		res := v.Validate(n, fields)
		det.corrections = append(det.corrections, res.Corrections...)
		if !res.Accepted() {
			st.out.Errors.Add(*res.Err)
			continue
		}
		det.warnings = append(det.warnings, res.Warnings...)
		det.records = append(det.records, res.Record)
	}
	return det, nil
}

// resolveLocations geocodes address-only rows and resolves every tract.
// A row that cannot be located is rejected and the rest carry on.
func (p *Pipeline) resolveLocations(ctx context.Context, st *runState, records []subscriber.Record) ([]subscriber.Record, error) {
	resolved := make([]subscriber.Record, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if rec.NeedsGeocoding() {
			addr := rec.GeocodeAddress()
			pt, err := p.Geocoder.Geocode(ctx, addr)
			p.Metrics.RecordGeocode(ctx, err == nil)
			if err != nil {
				st.run.Logger.WarnContext(ctx, "Geocoding failed",
					slog.Int("row", rec.Row),
					slog.String("address", addr),
					slog.String("error", err.Error()))
				st.out.Errors.Add(apperrors.NewGeocodingError(rec.Row, addr))
				continue
			}
			rec.Lat, rec.Lon = pt.Lat, pt.Lon
			rec.HasCoords, rec.Geocoded = true, true
		}

		tract, err := p.Tracts.ResolveTract(ctx, rec.State, rec.Lat, rec.Lon)
		if err != nil {
			st.run.Logger.WarnContext(ctx, "Tract lookup failed",
				slog.Int("row", rec.Row),
				slog.String("state", rec.State),
				slog.String("error", err.Error()))
			coords := fmt.Sprintf("%.6f,%.6f", rec.Lat, rec.Lon)
			st.out.Errors.Add(apperrors.NewRowError(rec.Row, subscriber.ColLat, coords,
				"no census tract found in %s at %s", rec.State, coords))
			continue
		}
		rec.Tract = tract
		resolved = append(resolved, rec)
	}
	return resolved, nil
}

// persistDetailed recreates the subscriber table and loads the accepted
// rows. Preserved rows are restored even when the load fails.
func (p *Pipeline) persistDetailed(ctx context.Context, records []subscriber.Record) (map[string]interface{}, error) {
	t := p.Subscribers
	preserved, err := t.Recreate(ctx, p.PreserveNonActive)
	if err != nil {
		return nil, err
	}

	var errs []error
	inserted, err := t.Insert(ctx, records, p.Now())
	if err != nil {
		errs = append(errs, err)
	}

	var restored int64
	if p.PreserveNonActive {
		if restored, err = t.RestorePreserved(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.CreateCustomerIndex(ctx); err != nil {
		errs = append(errs, err)
	}

	return map[string]interface{}{
		"table":     t.Name(),
		"inserted":  inserted,
		"preserved": preserved,
		"restored":  restored,
	}, errors.Join(errs...)
}

// writeDetailedOutputs writes the data, regulatory and voice aggregates
func (p *Pipeline) writeDetailedOutputs(ctx context.Context, st *runState, records []subscriber.Record) (map[string]interface{}, error) {
	data := aggregator.Data(records, aggregator.Identity)
	path, err := p.Exporter.WriteData(data)
	if err != nil {
		return nil, err
	}
	p.addArtifact(ctx, st, path)

	regulatory := aggregator.Regulatory(records)
	if path, err = p.Exporter.WriteRegulatory(regulatory); err != nil {
		return nil, err
	}
	p.addArtifact(ctx, st, path)

	meta := map[string]interface{}{
		"data_rows":       len(data),
		"regulatory_rows": len(regulatory),
	}

	voice := aggregator.Voice(records)
	if voice == nil {
		return meta, nil
	}
	if path, err = p.Exporter.WriteVoice(voice); err != nil {
		return nil, err
	}
	p.addArtifact(ctx, st, path)
	if path, err = p.Exporter.WriteVoiceStates(aggregator.VoiceStates(records)); err != nil {
		return nil, err
	}
	p.addArtifact(ctx, st, path)

	st.out.Voice = true
	meta["voice_rows"] = len(voice)
	return meta, nil
}

// unreadableRow records a row the CSV reader could not parse
func unreadableRow(row int, err error) apperrors.RowError {
	cause := errors.Unwrap(err)
	if cause == nil {
		cause = err
	}
	return apperrors.NewRowError(row, "row", "", "unreadable row: %v", cause)
}
