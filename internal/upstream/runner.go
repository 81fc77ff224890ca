// Package upstream runs the external pre-validator on an input file and
// collects the artifacts it leaves behind.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"bdcsubs/internal/config"
	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/files"
	"bdcsubs/internal/infrastructure"
	"bdcsubs/internal/manifest"
)

// Verdict is the pre-validator's judgement of a file
type Verdict string

const (
	Valid       Verdict = "valid"
	Invalid     Verdict = "invalid"
	HeaderError Verdict = "header_error"
	Error       Verdict = "error"
)

// TimeoutExitCode is reported when the command is killed for running too long
const TimeoutExitCode = 124

// Artifacts are the files the pre-validator produced for one input
type Artifacts struct {
	CorrectedCSV      string
	CorrectedWorkbook string
	ColumnCountErrors string
	ValidationReport  string
	Original          string
}

// Workbook returns the workbook to send back to the filer. A column-count
// workbook takes precedence over the corrected one.
func (a Artifacts) Workbook() string {
	if a.ColumnCountErrors != "" {
		return a.ColumnCountErrors
	}
	return a.CorrectedWorkbook
}

// All lists every artifact found
func (a Artifacts) All() []string {
	var out []string
	for _, p := range []string{a.CorrectedCSV, a.CorrectedWorkbook, a.ColumnCountErrors, a.Original, a.ValidationReport} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Result is the outcome of one pre-validator run
type Result struct {
	Verdict   Verdict
	ExitCode  int
	Reason    string
	Stdout    string
	Stderr    string
	Duration  time.Duration
	Artifacts Artifacts
}

// Runner invokes the configured pre-validator command
type Runner struct {
	cfg       config.UpstreamConfig
	contract  *manifest.Contract
	discovery *files.Discovery
	logger    *slog.Logger
}

// NewRunner creates a runner for cfg
func NewRunner(cfg config.UpstreamConfig, contract *manifest.Contract, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		contract:  contract,
		discovery: files.NewDiscovery(),
		logger:    infrastructure.WithComponent(logger, "upstream"),
	}
}

// verdictFor maps the command's exit status
func verdictFor(code int) Verdict {
	switch code {
	case 0:
		return Valid
	case 1:
		return Invalid
	case 2:
		return HeaderError
	default:
		return Error
	}
}

// Run validates file for isp and period. Only a missing command is returned
// as an error; every failure of the command itself yields the Error verdict.
func (r *Runner) Run(ctx context.Context, file, isp, period string) (Result, error) {
	argv := strings.Fields(r.cfg.Command)
	if len(argv) == 0 {
		return Result{}, apperrors.NewConfigError("upstream command is not configured", nil)
	}
	argv = append(argv, file, isp, period)

	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = r.cfg.WorkDir
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.InfoContext(ctx, "Running upstream validator",
		slog.String("command", strings.Join(argv, " ")),
		slog.String("dir", cmd.Dir))

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.Verdict = Error
		res.ExitCode = TimeoutExitCode
		res.Reason = fmt.Sprintf("upstream validator timed out after %s", r.cfg.Timeout)
	case err == nil:
		res.Verdict = Valid
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		res.Verdict = verdictFor(res.ExitCode)
		if res.Verdict == Error {
			res.Reason = fmt.Sprintf("upstream validator exited with code %d", res.ExitCode)
		}
	default:
		res.Verdict = Error
		res.ExitCode = -1
		res.Reason = fmt.Sprintf("failed to start upstream validator: %v", err)
	}

	res.Artifacts = r.collect(ctx, file, isp, period)

	r.logger.InfoContext(ctx, "Upstream validator finished",
		slog.String("verdict", string(res.Verdict)),
		slog.Int("exit_code", res.ExitCode),
		slog.Duration("duration", res.Duration),
		slog.Int("artifacts", len(res.Artifacts.All())))
	return res, nil
}

// ResultsDir returns the directory the validator writes into for a run
func (r *Runner) ResultsDir(isp, period string) string {
	dir := manifest.Expand(r.cfg.ResultsDir, isp, period)
	if dir != "" && !filepath.IsAbs(dir) && r.cfg.WorkDir != "" {
		dir = filepath.Join(r.cfg.WorkDir, dir)
	}
	return dir
}

// collect finds each contract artifact. The name derived from the input's
// base name wins; otherwise the newest file with the suffix is used.
func (r *Runner) collect(ctx context.Context, file, isp, period string) Artifacts {
	dir := r.ResultsDir(isp, period)
	if dir == "" {
		return Artifacts{}
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	find := func(suffix string) string {
		if suffix == "" {
			return ""
		}
		exact := filepath.Join(dir, base+suffix)
		if info, err := os.Stat(exact); err == nil && info.Mode().IsRegular() {
			return exact
		}
		found, err := r.discovery.FindBySuffix(dir, suffix)
		if err != nil {
			r.logger.DebugContext(ctx, "Artifact lookup failed",
				slog.String("suffix", suffix),
				slog.String("error", err.Error()))
			return ""
		}
		if latest, ok := files.GetLatestFile(found); ok {
			return latest.Path
		}
		r.logger.DebugContext(ctx, "Artifact not produced", slog.String("suffix", suffix))
		return ""
	}

	u := r.contract.Upstream
	return Artifacts{
		CorrectedCSV:      find(u.CorrectedCSV),
		CorrectedWorkbook: find(u.CorrectedWorkbook),
		ColumnCountErrors: find(u.ColumnCountErrors),
		ValidationReport:  find(u.ValidationReport),
		Original:          find(u.Original),
	}
}
