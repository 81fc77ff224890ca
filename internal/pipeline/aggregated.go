package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"bdcsubs/internal/aggregate"
	"bdcsubs/internal/aggregator"
	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/status"
	"bdcsubs/internal/subscriber"
)

func (p *Pipeline) processAggregated(ctx context.Context, st *runState) {
	out := st.out
	st.table = tableLabel(p.Staging.Name())

	var records []aggregate.Record
	err := p.stage(ctx, st, StageValidate, "Validate aggregate rows", func(ctx context.Context) (map[string]interface{}, error) {
		var err error
		var prefix string
		if records, prefix, err = p.readAggregated(st); err != nil {
			return nil, err
		}
		out.Accepted = len(records)
		return map[string]interface{}{
			"rows":         out.Rows,
			"accepted":     out.Accepted,
			"rejected":     out.Errors.Len(),
			"state_prefix": prefix,
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

	p.writeReports(ctx, st, nil)

	_ = p.stage(ctx, st, StagePersist, "Load staging table", func(ctx context.Context) (map[string]interface{}, error) {
		if err := p.Staging.Create(ctx); err != nil {
			return nil, err
		}
		n, err := p.Staging.Insert(ctx, records)
		if err != nil {
			if dropErr := p.Staging.Drop(ctx); dropErr != nil {
				err = errors.Join(err, dropErr)
			}
			return nil, err
		}
		return map[string]interface{}{"table": p.Staging.Name(), "inserted": n}, nil
	})

	err = p.stage(ctx, st, StageOutputs, "Write aggregates", func(ctx context.Context) (map[string]interface{}, error) {
		data := aggregator.FromAggregates(records, aggregator.Identity)
		path, err := p.Exporter.WriteData(data)
		if err != nil {
			return nil, err
		}
		p.addArtifact(ctx, st, path)

		regulatory := aggregator.RegulatoryFromAggregates(records)
		if path, err = p.Exporter.WriteRegulatory(regulatory); err != nil {
			return nil, err
		}
		p.addArtifact(ctx, st, path)
		return map[string]interface{}{"data_rows": len(data), "regulatory_rows": len(regulatory)}, nil
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

// readAggregated checks the column count of the first row and validates
// every data row. A leading header row is skipped.
func (p *Pipeline) readAggregated(st *runState) ([]aggregate.Record, string, error) {
	f, err := os.Open(st.input.Path)
	if err != nil {
		return nil, "", apperrors.NewAppError(apperrors.ErrTypeInternal, "failed to open input", err)
	}
	defer f.Close()

	r := subscriber.NewReader(f)
	first, err := r.Header()
	if err != nil {
		return nil, "", apperrors.NewSchemaError(err.Error())
	}
	if len(first) != aggregate.ColumnCount {
		return nil, "", apperrors.NewSchemaError(fmt.Sprintf("expected %d columns, found %d", aggregate.ColumnCount, len(first)))
	}

	v := aggregate.NewValidator()
	var records []aggregate.Record
	check := func(row int, fields []string) {
		st.out.Rows++
		rec, rowErr := v.Validate(row, fields)
		if rowErr != nil {
			st.out.Errors.Add(*rowErr)
			return
		}
		records = append(records, rec)
	}

	// Without a header the first row is data row 1
	offset := 0
	if !aggregate.IsHeader(first) {
		offset = 1
		check(1, first)
	}

	for {
		n, fields, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			st.out.Rows++
			st.out.Errors.Add(unreadableRow(n+offset, err))
			continue
		}
		check(n+offset, fields)
	}
	return records, v.StatePrefix(), nil
}
