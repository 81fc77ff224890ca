// Command validate-subscription validates one ISP's subscriber upload for a
// filing period, writes the aggregate outputs and notifies the filer.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"time"

	"bdcsubs/internal/config"
	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/exporter"
	"bdcsubs/internal/files"
	"bdcsubs/internal/geo"
	"bdcsubs/internal/infrastructure"
	"bdcsubs/internal/manifest"
	"bdcsubs/internal/notify"
	"bdcsubs/internal/pipeline"
	"bdcsubs/internal/status"
	"bdcsubs/internal/store"
	"bdcsubs/internal/upstream"
)

const usage = `Usage: validate-subscription [-config file] [-env file] <isp_id> <period:yyyy-mm-dd> [user_email]

  isp_id      numeric organization id of the filer
  period      filing period, for example 2024-06-30
  user_email  send the filer email here instead of the address on record
`

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// invocation is a parsed command line
type invocation struct {
	configFile string
	envFile    string
	isp        string
	period     string
	email      string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// parseArgs validates the command line. Every failure is an argument error.
func parseArgs(args []string) (invocation, error) {
	var inv invocation

	fs := flag.NewFlagSet("validate-subscription", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&inv.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&inv.envFile, "env", "", "dotenv file (default .env)")
	if err := fs.Parse(args); err != nil {
		return inv, apperrors.NewArgumentError(err.Error())
	}

	rest := fs.Args()
	if len(rest) < 2 || len(rest) > 3 {
		return inv, apperrors.NewArgumentError(fmt.Sprintf("expected 2 or 3 arguments, got %d", len(rest)))
	}
	inv.isp, inv.period = rest[0], rest[1]
	if len(rest) == 3 {
		inv.email = rest[2]
	}

	if err := config.ValidateISPID(inv.isp); err != nil {
		return inv, apperrors.NewArgumentError(err.Error())
	}
	if _, err := config.ParsePeriod(inv.period); err != nil {
		return inv, apperrors.NewArgumentError(err.Error())
	}
	if inv.email != "" && !emailPattern.MatchString(inv.email) {
		return inv, apperrors.NewArgumentError(fmt.Sprintf("invalid email address %q", inv.email))
	}
	return inv, nil
}

// run executes one invocation and returns the process exit code
func run(args []string, stderr io.Writer) int {
	inv, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n%s", err, usage)
		return apperrors.ExitArgument
	}

	cfg, err := config.Load(config.LoadOptions{ConfigFile: inv.configFile, EnvFile: inv.envFile})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return apperrors.ExitCode(err)
	}

	logger, logCloser, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize logger: %v\n", err)
		return apperrors.ExitSystem
	}
	defer logCloser.Close()

	ctx := context.Background()

	telemetry, err := infrastructure.NewTelemetry(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		return apperrors.ExitSystem
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.NewPipelineMetrics(telemetry.Meter)
	if err != nil {
		logger.Warn("Pipeline metrics unavailable", slog.String("error", err.Error()))
	}

	out, err := execute(ctx, cfg, inv, telemetry, metrics, logger)
	code := out.ExitCode()
	if err != nil {
		logger.Error("Run failed",
			slog.String("isp", inv.isp),
			slog.String("period", inv.period),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()),
			slog.Int("exit_code", code))
	}
	return code
}

// execute wires the collaborators of one run and runs the pipeline
func execute(ctx context.Context, cfg *config.Config, inv invocation, telemetry *infrastructure.Telemetry,
	metrics *infrastructure.PipelineMetrics, logger *slog.Logger) (pipeline.Outcome, error) {

	contract, err := manifest.LoadContract(cfg.Artifacts.ContractFile)
	if err != nil {
		err = apperrors.NewConfigError("artifact contract unavailable", err)
		return pipeline.Outcome{Status: status.SystemError, Err: err}, err
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return pipeline.Outcome{Status: status.SystemError, Err: err}, err
	}
	defer pool.Close()
	db := store.New(pool, cfg.Database, logger)

	geocoder, err := geo.NewGoogleGeocoder(cfg.Geocoding, logger)
	if err != nil {
		return pipeline.Outcome{Status: status.SystemError, Err: err}, err
	}

	notifier := notify.New(notify.NewSMTPSender(cfg.SMTP, logger), cfg.Notification, cfg.SMTP, logger)

	var recipients notify.RecipientResolver = notify.NewLookupResolver(db, cfg.Notification.FallbackName, logger)
	if inv.email != "" {
		recipients = notify.NewOverrideResolver(inv.email, db, cfg.Notification.FallbackName, logger)
	}

	paths := cfg.Paths.ForRun(inv.isp, inv.period, contract.DirNames())

	deps := pipeline.Deps{
		Classifier:        files.NewClassifier(cfg.Paths, contract, logger),
		Subscribers:       db.SubscriberTable(inv.isp),
		Staging:           db.Staging(inv.isp),
		Tracts:            db,
		Geocoder:          geocoder,
		Status:            status.NewReporter(db, inv.isp, inv.period, logger),
		Notifier:          notifier,
		Recipients:        recipients,
		Exporter:          exporter.New(paths.OutputDir, inv.isp, contract, logger),
		Files:             files.NewManager(logger),
		Contract:          contract,
		PreserveNonActive: cfg.Database.PreserveNonActive,
		Tracer:            telemetry.Tracer,
		Metrics:           metrics,
		Logger:            logger,
	}
	if cfg.Upstream.Enabled() {
		deps.Upstream = upstream.NewRunner(cfg.Upstream, contract, logger)
	}

	ctx, r := pipeline.NewRun(ctx, inv.isp, inv.period, paths, logger)
	return pipeline.New(deps).Execute(ctx, r)
}
