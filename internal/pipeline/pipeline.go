package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/files"
	"bdcsubs/internal/geo"
	"bdcsubs/internal/infrastructure"
	"bdcsubs/internal/manifest"
	"bdcsubs/internal/notify"
	"bdcsubs/internal/status"
	"bdcsubs/internal/upstream"
)

// Stage ids as recorded in the run manifest
const (
	StageStatusBegin  = "status_begin"
	StageClassify     = "classify"
	StageClean        = "clean_outputs"
	StageUpstream     = "upstream"
	StageValidate     = "validate"
	StageReport       = "error_report"
	StagePersist      = "persist"
	StageOutputs      = "write_outputs"
	StageNotify       = "notify"
	StageStatusFinish = "status_finish"
)

// Deps are the collaborators of a pipeline. Upstream may be nil.
type Deps struct {
	Classifier  Classifier
	Upstream    UpstreamRunner
	Subscribers SubscriberTable
	Staging     StagingTable
	Tracts      TractResolver
	Geocoder    geo.Geocoder
	Status      StatusReporter
	Notifier    Notifier
	Recipients  notify.RecipientResolver
	Exporter    Exporter
	Files       FileReplacer
	Contract    *manifest.Contract

	PreserveNonActive bool

	Tracer  trace.Tracer
	Metrics *infrastructure.PipelineMetrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// Pipeline runs the stages of one ISP/period
type Pipeline struct {
	Deps
}

// New creates a pipeline. Missing tracer, logger and clock get no-op or
// default implementations.
func New(deps Deps) *Pipeline {
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if deps.Logger == nil {
		deps.Logger = infrastructure.DiscardLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Contract == nil {
		deps.Contract = manifest.Default()
	}
	return &Pipeline{Deps: deps}
}

// runState is what the stages of one run share
type runState struct {
	run   *Run
	out   *Outcome
	input files.Input

	outputReady bool
	upstream    *upstream.Result
	problem     string

	errorReport      string
	corrections      string
	upstreamWorkbook string
	table            string
}

// Execute runs every stage for run and returns its outcome. The returned
// error is the run-ending failure, if any; row errors are in the outcome.
func (p *Pipeline) Execute(ctx context.Context, run *Run) (Outcome, error) {
	start := p.Now()
	ctx, span := p.Tracer.Start(ctx, "pipeline.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", run.ID),
			attribute.String("isp", run.ISP),
			attribute.String("period", run.Period),
		),
	)
	defer span.End()

	st := &runState{
		run: run,
		out: &Outcome{Status: status.Processing, Errors: apperrors.NewRowErrors()},
	}

	run.Logger.InfoContext(ctx, "Run started", slog.String("run_id", run.ID))

	p.process(ctx, st)
	p.finish(ctx, st)

	out := *st.out
	duration := p.Now().Sub(start)
	p.Metrics.RecordRun(ctx, out.Status, duration)

	span.SetAttributes(
		attribute.String("run.status", out.Status),
		attribute.Int("run.rows", out.Rows),
		attribute.Int("run.accepted", out.Accepted),
	)
	if out.Err != nil {
		infrastructure.RecordError(ctx, out.Err)
	} else {
		span.SetStatus(codes.Ok, out.Status)
	}

	run.Logger.InfoContext(ctx, "Run finished",
		slog.String("status", out.Status),
		slog.Int("rows", out.Rows),
		slog.Int("accepted", out.Accepted),
		slog.Int("rejected", out.Errors.Len()),
		slog.Duration("duration", duration))

	return out, out.Err
}

// stage runs fn inside a span and records it in the run manifest
func (p *Pipeline) stage(ctx context.Context, st *runState, id, name string, fn func(context.Context) (map[string]interface{}, error)) error {
	ctx, span := p.Tracer.Start(ctx, "pipeline.stage."+id,
		trace.WithAttributes(attribute.String("stage.id", id)))
	defer span.End()

	st.run.Manifest.RecordStageStart(id, name)
	started := time.Now()

	meta, err := fn(ctx)
	if err != nil {
		st.run.Manifest.RecordStageFailure(id, err)
		infrastructure.RecordError(ctx, err)
		st.run.Logger.ErrorContext(ctx, "Stage failed",
			slog.String("stage", id),
			slog.String("error", err.Error()))
		return err
	}

	st.run.Manifest.RecordStageCompletion(id, meta)
	span.SetStatus(codes.Ok, "")
	st.run.Logger.DebugContext(ctx, "Stage completed",
		slog.String("stage", id),
		slog.Duration("duration", time.Since(started)))
	return nil
}

// skip records a stage that did not run
func (p *Pipeline) skip(st *runState, id, name, reason string) {
	st.run.Manifest.RecordStageSkipped(id, name, reason)
}

// addArtifact records a produced file on the outcome and in the manifest
func (p *Pipeline) addArtifact(ctx context.Context, st *runState, path string) {
	if path == "" {
		return
	}
	st.out.Artifacts = append(st.out.Artifacts, path)
	if err := st.run.Manifest.AddArtifact(path); err != nil {
		st.run.Logger.WarnContext(ctx, "Could not fingerprint artifact",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// process runs the stages that decide the outcome
func (p *Pipeline) process(ctx context.Context, st *runState) {
	run, out := st.run, st.out

	_ = p.stage(ctx, st, StageStatusBegin, "Set processing status", func(ctx context.Context) (map[string]interface{}, error) {
		p.Status.Begin(ctx)
		return nil, nil
	})

	err := p.stage(ctx, st, StageClassify, "Classify input", func(ctx context.Context) (map[string]interface{}, error) {
		in, err := p.Classifier.Classify(run.ISP, run.Period)
		if err != nil {
			return nil, err
		}
		st.input = in
		out.Kind = in.Kind
		out.Input = in.Path
		return map[string]interface{}{"kind": string(in.Kind), "file": in.Path}, nil
	})
	if err != nil {
		out.fail(status.SystemError, err)
		return
	}

	err = p.stage(ctx, st, StageClean, "Clean outputs", func(ctx context.Context) (map[string]interface{}, error) {
		if err := run.Paths.EnsureOutputDir(); err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrTypeInternal, "output directory unavailable", err)
		}
		st.outputReady = true
		removed, err := p.Exporter.Clean()
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrTypeInternal, "failed to remove stale outputs", err)
		}
		return map[string]interface{}{"removed": len(removed)}, nil
	})
	if err != nil {
		out.fail(status.SystemError, err)
		return
	}
	p.recordInput(ctx, st)

	if st.input.Kind == files.KindDetailed && p.Upstream != nil {
		if err := p.stage(ctx, st, StageUpstream, "Upstream validation", p.runUpstream(st)); err != nil {
			out.fail(status.SystemError, err)
			return
		}
		if out.Status != status.Processing {
			return
		}
	} else {
		p.skip(st, StageUpstream, "Upstream validation", "not configured for this input")
	}

	switch st.input.Kind {
	case files.KindDetailed:
		p.processDetailed(ctx, st)
	case files.KindAggregated:
		p.processAggregated(ctx, st)
	}
}

func (p *Pipeline) recordInput(ctx context.Context, st *runState) {
	if err := st.run.Manifest.SetInput(st.input.Path, string(st.input.Kind)); err != nil {
		st.run.Logger.WarnContext(ctx, "Could not fingerprint input",
			slog.String("path", st.input.Path),
			slog.String("error", err.Error()))
	}
}

// finish notifies, writes the final status and saves the run manifest.
// It runs whatever the outcome.
func (p *Pipeline) finish(ctx context.Context, st *runState) {
	run, out := st.run, st.out

	if !status.Terminal(out.Status) {
		out.fail(status.SystemError, apperrors.NewAppError(apperrors.ErrTypeInternal,
			fmt.Sprintf("run ended without a final status for %q input", st.input.Kind), nil))
	}

	if st.input.Path != "" {
		_ = p.stage(ctx, st, StageNotify, "Notify", func(ctx context.Context) (map[string]interface{}, error) {
			sent := p.notify(ctx, st)
			return map[string]interface{}{"sent": sent}, nil
		})
	} else {
		p.skip(st, StageNotify, "Notify", "no input file")
	}

	_ = p.stage(ctx, st, StageStatusFinish, "Set final status", func(ctx context.Context) (map[string]interface{}, error) {
		p.Status.Finish(ctx, out.Status)
		return map[string]interface{}{"status": out.Status}, nil
	})

	run.Manifest.Finish(out.Status, out.Errors.Counts())
	if !st.outputReady {
		return
	}
	path := run.Paths.OutputFile(manifest.Name(p.Contract.Outputs.RunManifest, run.ISP))
	if err := run.Manifest.SaveToFile(path); err != nil {
		run.Logger.ErrorContext(ctx, "Failed to save run manifest",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// tableLabel renders a sanitized table identifier for humans
func tableLabel(name string) string {
	return strings.ReplaceAll(name, `"`, "")
}
